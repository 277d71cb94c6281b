package watcher

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrepeneur4lyf/docchat/internal/backend"
	"github.com/entrepeneur4lyf/docchat/internal/session"
)

type recordingBackend struct {
	mu       sync.Mutex
	uploaded []string
}

func (r *recordingBackend) ListDocuments(ctx context.Context, sessionID string) ([]backend.Document, error) {
	return nil, nil
}

func (r *recordingBackend) UploadFile(ctx context.Context, sessionID, name string, body io.Reader) (string, error) {
	io.Copy(io.Discard, body)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.uploaded = append(r.uploaded, name)
	return "id-" + name, nil
}

func (r *recordingBackend) DeleteDocuments(ctx context.Context, sessionID string) error {
	return nil
}

func (r *recordingBackend) Query(ctx context.Context, request backend.QueryRequest) (*backend.QueryResponse, error) {
	return &backend.QueryResponse{}, nil
}

func (r *recordingBackend) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.uploaded))
	copy(out, r.uploaded)
	return out
}

func TestDroppedFileIsUploaded(t *testing.T) {
	dir := t.TempDir()
	rb := &recordingBackend{}
	s := session.New(rb, session.WithPollPolicy(session.PollPolicy{
		InitialDelay: time.Hour, Multiplier: 2, MaxAttempts: 1,
	}))
	defer s.Close()

	w, err := New(dir, s)
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hello"), 0644))

	require.Eventually(t, func() bool {
		return len(rb.names()) == 1
	}, 5*time.Second, 50*time.Millisecond)
	assert.Equal(t, []string{"notes.txt"}, rb.names())
	assert.Len(t, s.Documents(), 1)
}

func TestUnsupportedDropIsIgnored(t *testing.T) {
	dir := t.TempDir()
	rb := &recordingBackend{}
	s := session.New(rb, session.WithPollPolicy(session.PollPolicy{
		InitialDelay: time.Hour, Multiplier: 2, MaxAttempts: 1,
	}))
	defer s.Close()

	w, err := New(dir, s)
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "photo.png"), []byte{0x89}, 0644))

	time.Sleep(800 * time.Millisecond)
	assert.Empty(t, rb.names())
	assert.Empty(t, s.Documents())
}

func TestNewRejectsMissingDirectory(t *testing.T) {
	s := session.New(&recordingBackend{})
	defer s.Close()

	_, err := New(filepath.Join(t.TempDir(), "does-not-exist"), s)
	require.Error(t, err)
}
