package session

import (
	"time"

	"github.com/charmbracelet/log"
)

// scheduleReconcile starts a bounded backoff poll of the list endpoint to
// replace the optimistic post-upload records with backend-confirmed metadata.
// The backend offers no completion push, so polling is the best available
// reconciliation. The poll stops when every document has left "processing",
// when the attempt budget runs out, when the session is closed, or when a
// newer mutation supersedes the generation it was scheduled under.
func (c *Client) scheduleReconcile(gen uint64) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		delay := c.poll.InitialDelay
		for attempt := 1; attempt <= c.poll.MaxAttempts; attempt++ {
			select {
			case <-c.ctx.Done():
				return
			case <-time.After(delay):
			}

			docs, err := c.backend.ListDocuments(c.ctx, c.id)
			if err != nil {
				log.Debug("reconciliation poll failed", "session", c.id, "attempt", attempt, "error", err)
				delay = time.Duration(float64(delay) * c.poll.Multiplier)
				continue
			}

			c.mu.Lock()
			if c.gen != gen {
				// A newer upload, delete, or manual refresh owns the list now.
				c.mu.Unlock()
				return
			}
			c.applyDocuments(docs)
			settled := true
			for _, d := range c.docs {
				if d.Processing() {
					settled = false
					break
				}
			}
			c.mu.Unlock()

			if settled {
				return
			}
			delay = time.Duration(float64(delay) * c.poll.Multiplier)
		}
		log.Debug("reconciliation gave up before documents settled", "session", c.id)
	}()
}
