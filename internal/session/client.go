// Package session owns the client-visible state of one conversation with the
// retrieval backend: the document list, the selection set used as retrieval
// scope, and the append-only transcript. Every backend operation is mediated
// here so that state stays consistent with backend responses.
package session

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/entrepeneur4lyf/docchat/internal/backend"
	"github.com/entrepeneur4lyf/docchat/internal/upload"
)

// Backend is the slice of the HTTP client the session needs.
type Backend interface {
	ListDocuments(ctx context.Context, sessionID string) ([]backend.Document, error)
	UploadFile(ctx context.Context, sessionID, name string, r io.Reader) (string, error)
	DeleteDocuments(ctx context.Context, sessionID string) error
	Query(ctx context.Context, request backend.QueryRequest) (*backend.QueryResponse, error)
}

// PollPolicy bounds the post-upload reconciliation poll.
type PollPolicy struct {
	InitialDelay time.Duration
	Multiplier   float64
	MaxAttempts  int
}

// DefaultPollPolicy starts at the original 2-second heuristic and backs off.
var DefaultPollPolicy = PollPolicy{
	InitialDelay: 2 * time.Second,
	Multiplier:   1.5,
	MaxAttempts:  5,
}

// Client holds one session's state. All mutations happen under a single
// mutex; network calls are made outside it so a slow backend never blocks
// readers.
type Client struct {
	id      string
	backend Backend
	topK    int
	poll    PollPolicy

	mu         sync.Mutex
	docs       []Document
	selection  map[string]struct{}
	transcript []Message
	busy       bool

	// gen increments on every authoritative mutation of the document list.
	// A reconciliation poll captures the generation it was scheduled under
	// and becomes a no-op once a newer mutation lands.
	gen uint64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option configures a Client.
type Option func(*Client)

// WithID pins the session identifier instead of generating one. Used by tests
// and by callers resuming a known backend session.
func WithID(id string) Option {
	return func(c *Client) { c.id = id }
}

// WithTopK overrides the number of source chunks requested per question.
func WithTopK(k int) Option {
	return func(c *Client) {
		if k > 0 {
			c.topK = k
		}
	}
}

// WithPollPolicy overrides the reconciliation poll policy.
func WithPollPolicy(p PollPolicy) Option {
	return func(c *Client) { c.poll = p }
}

// New creates a session client with a fresh identifier. The session exists
// only for the lifetime of this process; the backend holds the durable copy
// of uploaded documents under the same identifier.
func New(b Backend, opts ...Option) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		id:        uuid.NewString(),
		backend:   b,
		topK:      5,
		poll:      DefaultPollPolicy,
		selection: make(map[string]struct{}),
		ctx:       ctx,
		cancel:    cancel,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Close cancels any outstanding reconciliation polls and waits for them.
func (c *Client) Close() {
	c.cancel()
	c.wg.Wait()
}

// ID returns the session identifier.
func (c *Client) ID() string { return c.id }

// Busy reports whether a question is currently in flight. This backs the UI's
// submit affordance only; nothing at the protocol level prevents overlap.
func (c *Client) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

// Documents returns a copy of the current document list.
func (c *Client) Documents() []Document {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Document, len(c.docs))
	copy(out, c.docs)
	return out
}

// Transcript returns a copy of the transcript in insertion order.
func (c *Client) Transcript() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.transcript))
	copy(out, c.transcript)
	return out
}

// Refresh replaces the document list with the backend's authoritative view.
// On failure the existing list is left untouched and nothing is reported to
// the transcript; the failure is only logged.
func (c *Client) Refresh(ctx context.Context) error {
	docs, err := c.backend.ListDocuments(ctx, c.id)
	if err != nil {
		log.Debug("document list refresh failed", "session", c.id, "error", err)
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.applyDocuments(docs)
	return nil
}

// applyDocuments overwrites the list and prunes the selection set down to
// identifiers that still exist. Callers hold the lock.
func (c *Client) applyDocuments(docs []backend.Document) {
	replaced := make([]Document, 0, len(docs))
	for _, d := range docs {
		replaced = append(replaced, fromBackend(d))
	}
	c.docs = replaced

	known := make(map[string]struct{}, len(replaced))
	for _, d := range replaced {
		known[d.ID] = struct{}{}
	}
	for id := range c.selection {
		if _, ok := known[id]; !ok {
			delete(c.selection, id)
		}
	}
}

type uploadResult struct {
	id   string
	name string
	size int64
}

// Upload validates the given files against the allow-list, uploads the
// supported ones concurrently, and joins the whole batch: if any request
// fails the batch reports failure and no document records are added, even
// though the backend may have ingested some of the files already.
func (c *Client) Upload(ctx context.Context, paths []string) error {
	allowed, rejected := upload.Split(paths)
	if len(rejected) > 0 {
		log.Warn("skipping unsupported files", "files", strings.Join(rejected, ", "))
	}
	if len(allowed) == 0 {
		c.appendSystem(fmt.Sprintf("No supported files to upload. Supported types: %s",
			strings.Join(upload.Extensions(), ", ")))
		return fmt.Errorf("no supported files in selection")
	}

	results := make([]uploadResult, len(allowed))
	var g errgroup.Group
	for i, path := range allowed {
		i, path := i, path
		g.Go(func() error {
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()

			info, err := f.Stat()
			if err != nil {
				return err
			}

			name := filepath.Base(path)
			id, err := c.backend.UploadFile(ctx, c.id, name, f)
			if err != nil {
				return err
			}
			results[i] = uploadResult{id: id, name: name, size: info.Size()}
			return nil
		})
	}

	// All requests are issued before any is awaited; the batch settles as a
	// whole rather than racing to the first failure.
	if err := g.Wait(); err != nil {
		c.appendSystem(fmt.Sprintf("Upload failed: %v", err))
		return err
	}

	names := make([]string, 0, len(results))
	c.mu.Lock()
	c.gen++
	gen := c.gen
	for i, r := range results {
		c.docs = append(c.docs, Document{
			ID:      r.id,
			Name:    r.name,
			Size:    r.size,
			Type:    upload.ContentType(allowed[i]),
			Status:  StatusProcessing,
			Pending: true,
		})
		names = append(names, r.name)
	}
	c.transcript = append(c.transcript, Message{
		Role:    RoleSystem,
		Content: fmt.Sprintf("Uploaded %d file(s): %s", len(names), strings.Join(names, ", ")),
		Time:    time.Now(),
	})
	c.mu.Unlock()

	c.scheduleReconcile(gen)
	return nil
}

// Ask runs the question flow: client-side preconditions first (each produces
// a distinct system entry and skips the network entirely), then an optimistic
// user entry, the query request, and the answer or error entry.
func (c *Client) Ask(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)

	c.mu.Lock()
	switch {
	case text == "":
		c.transcript = append(c.transcript, systemMessage("Please enter a question."))
		c.mu.Unlock()
		return nil
	case len(c.docs) == 0:
		c.transcript = append(c.transcript, systemMessage("Please upload a document first."))
		c.mu.Unlock()
		return nil
	case len(c.selection) == 0:
		c.transcript = append(c.transcript, systemMessage("Please select at least one document to search."))
		c.mu.Unlock()
		return nil
	}

	docIDs := make([]string, 0, len(c.selection))
	for id := range c.selection {
		docIDs = append(docIDs, id)
	}
	sort.Strings(docIDs)

	c.transcript = append(c.transcript, Message{
		Role:    RoleUser,
		Content: text,
		Pending: true,
		Time:    time.Now(),
	})
	userIdx := len(c.transcript) - 1
	c.busy = true
	c.mu.Unlock()

	resp, err := c.backend.Query(ctx, backend.QueryRequest{
		UserID: c.id,
		Query:  text,
		DocIDs: docIDs,
		TopK:   c.topK,
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	c.busy = false
	c.transcript[userIdx].Pending = false

	if err != nil {
		c.transcript = append(c.transcript, systemMessage(err.Error()))
		return err
	}

	c.transcript = append(c.transcript, Message{
		Role:    RoleAI,
		Content: resp.Answer,
		Sources: fromSources(resp.Sources),
		Time:    time.Now(),
	})
	return nil
}

// DeleteAll removes every document under the session. On success the document
// list and selection set are cleared wholesale; on failure both are left
// untouched.
func (c *Client) DeleteAll(ctx context.Context) error {
	if err := c.backend.DeleteDocuments(ctx, c.id); err != nil {
		c.appendSystem(err.Error())
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.docs = nil
	c.selection = make(map[string]struct{})
	c.transcript = append(c.transcript, systemMessage("All documents deleted."))
	return nil
}

func (c *Client) appendSystem(content string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transcript = append(c.transcript, systemMessage(content))
}

func systemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content, Time: time.Now()}
}
