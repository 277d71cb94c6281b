package session

import "sort"

// Selection operations are pure set bookkeeping over document identifiers;
// none of them touch the backend. The invariant throughout: every member of
// the selection set corresponds to a currently listed document.

// Select marks a document as part of the retrieval scope. Unknown identifiers
// are ignored so the selection invariant holds.
func (c *Client) Select(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.hasDocument(id) {
		c.selection[id] = struct{}{}
	}
}

// Deselect removes a document from the retrieval scope.
func (c *Client) Deselect(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.selection, id)
}

// Toggle flips membership and returns the new state.
func (c *Client) Toggle(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.selection[id]; ok {
		delete(c.selection, id)
		return false
	}
	if c.hasDocument(id) {
		c.selection[id] = struct{}{}
		return true
	}
	return false
}

// SelectAll marks every currently known document.
func (c *Client) SelectAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, d := range c.docs {
		c.selection[d.ID] = struct{}{}
	}
}

// ClearSelection empties the retrieval scope.
func (c *Client) ClearSelection() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selection = make(map[string]struct{})
}

// Selected reports membership for one document.
func (c *Client) Selected(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.selection[id]
	return ok
}

// Selection returns the selected identifiers in sorted order.
func (c *Client) Selection() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.selection))
	for id := range c.selection {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// hasDocument reports whether id is currently listed. Callers hold the lock.
func (c *Client) hasDocument(id string) bool {
	for _, d := range c.docs {
		if d.ID == id {
			return true
		}
	}
	return false
}
