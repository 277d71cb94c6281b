// Package watcher uploads files dropped into a watched directory, the
// terminal counterpart of a drag-and-drop upload surface.
package watcher

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"github.com/entrepeneur4lyf/docchat/internal/session"
	"github.com/entrepeneur4lyf/docchat/internal/upload"
)

// settleDelay gives the writing process time to finish before the file is
// read for upload.
const settleDelay = 500 * time.Millisecond

// Watcher forwards supported files from a drop directory into a session.
type Watcher struct {
	fs      *fsnotify.Watcher
	session *session.Client
	dir     string
}

// New watches dir for the given session.
func New(dir string, s *session.Client) (*Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := fs.Add(dir); err != nil {
		fs.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	return &Watcher{fs: fs, session: s, dir: dir}, nil
}

// Run processes events until the context is cancelled or the watcher closes.
func (w *Watcher) Run(ctx context.Context) error {
	log.Info("watching drop folder", "dir", w.dir)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) {
				continue
			}
			if !upload.Allowed(event.Name) {
				log.Debug("ignoring unsupported drop", "file", event.Name)
				continue
			}
			path := event.Name
			go func() {
				select {
				case <-ctx.Done():
					return
				case <-time.After(settleDelay):
				}
				if err := w.session.Upload(ctx, []string{path}); err != nil {
					log.Error("drop folder upload failed", "file", path, "error", err)
				}
			}()

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			log.Error("watcher error", "dir", w.dir, "error", err)
		}
	}
}

// Close stops the underlying filesystem watcher.
func (w *Watcher) Close() error {
	return w.fs.Close()
}
