package session

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrepeneur4lyf/docchat/internal/backend"
)

// fakeBackend is a scripted Backend with call counters.
type fakeBackend struct {
	mu sync.Mutex

	listDocs  []backend.Document
	listErr   error
	listCalls int

	uploadIDs   map[string]string
	uploadErrs  map[string]error
	uploadCalls int

	deleteErr   error
	deleteCalls int

	queryResp  *backend.QueryResponse
	queryErr   error
	queryCalls int
	lastQuery  backend.QueryRequest
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		uploadIDs:  make(map[string]string),
		uploadErrs: make(map[string]error),
	}
}

func (f *fakeBackend) ListDocuments(ctx context.Context, sessionID string) ([]backend.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]backend.Document, len(f.listDocs))
	copy(out, f.listDocs)
	return out, nil
}

func (f *fakeBackend) UploadFile(ctx context.Context, sessionID, name string, r io.Reader) (string, error) {
	io.Copy(io.Discard, r)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploadCalls++
	if err := f.uploadErrs[name]; err != nil {
		return "", err
	}
	if id, ok := f.uploadIDs[name]; ok {
		return id, nil
	}
	return "id-" + name, nil
}

func (f *fakeBackend) DeleteDocuments(ctx context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls++
	return f.deleteErr
}

func (f *fakeBackend) Query(ctx context.Context, request backend.QueryRequest) (*backend.QueryResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queryCalls++
	f.lastQuery = request
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.queryResp, nil
}

func (f *fakeBackend) queries() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queryCalls
}

func (f *fakeBackend) lists() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls
}

func (f *fakeBackend) setListDocs(docs []backend.Document) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listDocs = docs
}

// noPoll keeps reconciliation out of tests that don't exercise it.
var noPoll = PollPolicy{InitialDelay: time.Hour, Multiplier: 2, MaxAttempts: 1}

func writeTempFile(t *testing.T, dir, name string, size int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte("x"), size), 0644))
	return path
}

func TestNewGeneratesUniqueSessionIDs(t *testing.T) {
	a := New(newFakeBackend(), WithPollPolicy(noPoll))
	b := New(newFakeBackend(), WithPollPolicy(noPoll))
	defer a.Close()
	defer b.Close()

	assert.NotEmpty(t, a.ID())
	assert.NotEqual(t, a.ID(), b.ID())
}

func TestAskEmptyQuestionSkipsNetwork(t *testing.T) {
	fb := newFakeBackend()
	c := New(fb, WithPollPolicy(noPoll))
	defer c.Close()

	require.NoError(t, c.Ask(context.Background(), "   "))

	transcript := c.Transcript()
	require.Len(t, transcript, 1)
	assert.Equal(t, RoleSystem, transcript[0].Role)
	assert.Equal(t, "Please enter a question.", transcript[0].Content)
	assert.Zero(t, fb.queries())
}

func TestAskWithoutDocumentsSkipsNetwork(t *testing.T) {
	fb := newFakeBackend()
	c := New(fb, WithPollPolicy(noPoll))
	defer c.Close()

	require.NoError(t, c.Ask(context.Background(), "What is the summary?"))

	transcript := c.Transcript()
	require.Len(t, transcript, 1)
	assert.Equal(t, RoleSystem, transcript[0].Role)
	assert.Equal(t, "Please upload a document first.", transcript[0].Content)
	assert.Zero(t, fb.queries())
}

func TestAskWithoutSelectionSkipsNetwork(t *testing.T) {
	fb := newFakeBackend()
	fb.setListDocs([]backend.Document{{ID: "d1", Name: "a.pdf"}})

	c := New(fb, WithPollPolicy(noPoll))
	defer c.Close()
	require.NoError(t, c.Refresh(context.Background()))

	require.NoError(t, c.Ask(context.Background(), "What is the summary?"))

	transcript := c.Transcript()
	require.Len(t, transcript, 1)
	assert.Equal(t, RoleSystem, transcript[0].Role)
	assert.Equal(t, "Please select at least one document to search.", transcript[0].Content)
	assert.Zero(t, fb.queries())
}

func TestAskAppendsUserEntryBeforeAnswer(t *testing.T) {
	fb := newFakeBackend()
	fb.setListDocs([]backend.Document{{ID: "d1", Name: "a.pdf"}})
	fb.queryResp = &backend.QueryResponse{
		Answer: "It is a report.",
		Sources: []backend.Source{
			{Filename: "a.pdf", Text: "...", Similarity: 0.87},
		},
	}

	c := New(fb, WithPollPolicy(noPoll))
	defer c.Close()
	require.NoError(t, c.Refresh(context.Background()))
	c.Select("d1")

	require.NoError(t, c.Ask(context.Background(), "What is the summary?"))

	transcript := c.Transcript()
	require.Len(t, transcript, 2)

	assert.Equal(t, RoleUser, transcript[0].Role)
	assert.Equal(t, "What is the summary?", transcript[0].Content)
	assert.False(t, transcript[0].Pending)

	assert.Equal(t, RoleAI, transcript[1].Role)
	assert.Equal(t, "It is a report.", transcript[1].Content)
	require.Len(t, transcript[1].Sources, 1)
	assert.Equal(t, "87.0% match", transcript[1].Sources[0].Match())

	assert.Equal(t, "What is the summary?", fb.lastQuery.Query)
	assert.Equal(t, []string{"d1"}, fb.lastQuery.DocIDs)
	assert.Equal(t, 5, fb.lastQuery.TopK)
	assert.Equal(t, c.ID(), fb.lastQuery.UserID)
}

func TestAskFailureAppendsSystemEntryAfterUserEntry(t *testing.T) {
	fb := newFakeBackend()
	fb.setListDocs([]backend.Document{{ID: "d1", Name: "a.pdf"}})
	fb.queryErr = errors.New("query engine unavailable")

	c := New(fb, WithPollPolicy(noPoll))
	defer c.Close()
	require.NoError(t, c.Refresh(context.Background()))
	c.Select("d1")

	require.Error(t, c.Ask(context.Background(), "anything?"))

	transcript := c.Transcript()
	require.Len(t, transcript, 2)
	assert.Equal(t, RoleUser, transcript[0].Role)
	assert.Equal(t, RoleSystem, transcript[1].Role)
	assert.Equal(t, "query engine unavailable", transcript[1].Content)
}

func TestUploadAddsOptimisticRecordsAndOneSystemEntry(t *testing.T) {
	dir := t.TempDir()
	a := writeTempFile(t, dir, "a.pdf", 10000)
	b := writeTempFile(t, dir, "b.txt", 500)

	fb := newFakeBackend()
	fb.uploadIDs["a.pdf"] = "d1"
	fb.uploadIDs["b.txt"] = "d2"

	c := New(fb, WithPollPolicy(noPoll))
	defer c.Close()

	require.NoError(t, c.Upload(context.Background(), []string{a, b}))

	docs := c.Documents()
	require.Len(t, docs, 2)
	assert.Equal(t, "a.pdf", docs[0].Name)
	assert.Equal(t, int64(10000), docs[0].Size)
	assert.Equal(t, StatusProcessing, docs[0].Status)
	assert.True(t, docs[0].Pending)
	assert.Equal(t, "b.txt", docs[1].Name)
	assert.Equal(t, int64(500), docs[1].Size)
	assert.Equal(t, StatusProcessing, docs[1].Status)

	transcript := c.Transcript()
	require.Len(t, transcript, 1)
	assert.Equal(t, RoleSystem, transcript[0].Role)
	assert.Contains(t, transcript[0].Content, "a.pdf")
	assert.Contains(t, transcript[0].Content, "b.txt")
}

func TestUploadRejectsUnsupportedFiles(t *testing.T) {
	dir := t.TempDir()
	bad := writeTempFile(t, dir, "photo.png", 100)

	fb := newFakeBackend()
	c := New(fb, WithPollPolicy(noPoll))
	defer c.Close()

	require.Error(t, c.Upload(context.Background(), []string{bad}))
	assert.Empty(t, c.Documents())
	assert.Zero(t, fb.uploadCalls)

	transcript := c.Transcript()
	require.Len(t, transcript, 1)
	assert.Equal(t, RoleSystem, transcript[0].Role)
}

func TestUploadBatchFailureAddsNoRecords(t *testing.T) {
	dir := t.TempDir()
	a := writeTempFile(t, dir, "a.pdf", 100)
	b := writeTempFile(t, dir, "b.txt", 100)

	fb := newFakeBackend()
	fb.uploadErrs["b.txt"] = errors.New("ingestion rejected")

	c := New(fb, WithPollPolicy(noPoll))
	defer c.Close()

	require.Error(t, c.Upload(context.Background(), []string{a, b}))

	assert.Empty(t, c.Documents())
	transcript := c.Transcript()
	require.Len(t, transcript, 1)
	assert.Equal(t, RoleSystem, transcript[0].Role)
	assert.Contains(t, transcript[0].Content, "Upload failed")
	assert.Contains(t, transcript[0].Content, "ingestion rejected")
}

func TestUploadReconciliationReplacesOptimisticRecords(t *testing.T) {
	dir := t.TempDir()
	a := writeTempFile(t, dir, "a.pdf", 10000)
	b := writeTempFile(t, dir, "b.txt", 500)

	fb := newFakeBackend()
	fb.uploadIDs["a.pdf"] = "d1"
	fb.uploadIDs["b.txt"] = "d2"
	fb.setListDocs([]backend.Document{
		{ID: "d1", Name: "a.pdf", TotalChunks: 12},
		{ID: "d2", Name: "b.txt", TotalChunks: 3},
	})

	c := New(fb, WithPollPolicy(PollPolicy{
		InitialDelay: 10 * time.Millisecond,
		Multiplier:   1.5,
		MaxAttempts:  5,
	}))
	defer c.Close()

	require.NoError(t, c.Upload(context.Background(), []string{a, b}))

	require.Eventually(t, func() bool {
		docs := c.Documents()
		return len(docs) == 2 && !docs[0].Pending && docs[0].TotalChunks == 12
	}, 2*time.Second, 10*time.Millisecond)

	docs := c.Documents()
	assert.Equal(t, "d1", docs[0].ID)
	assert.Equal(t, "a.pdf", docs[0].Name)
	assert.Equal(t, 12, docs[0].TotalChunks)
	assert.Equal(t, "d2", docs[1].ID)
	assert.Equal(t, "b.txt", docs[1].Name)
	assert.Equal(t, 3, docs[1].TotalChunks)
}

func TestStaleReconciliationNeverOverwritesNewerState(t *testing.T) {
	dir := t.TempDir()
	a := writeTempFile(t, dir, "a.pdf", 100)

	fb := newFakeBackend()
	fb.uploadIDs["a.pdf"] = "d1"
	fb.setListDocs([]backend.Document{{ID: "d1", Name: "a.pdf", TotalChunks: 4}})

	c := New(fb, WithPollPolicy(PollPolicy{
		InitialDelay: 50 * time.Millisecond,
		Multiplier:   1.5,
		MaxAttempts:  3,
	}))
	defer c.Close()

	require.NoError(t, c.Upload(context.Background(), []string{a}))

	// Delete lands before the first poll fires; its generation supersedes
	// the poll's, so the poll result must not resurrect the document list.
	require.NoError(t, c.DeleteAll(context.Background()))

	time.Sleep(400 * time.Millisecond)
	assert.Empty(t, c.Documents())
}

func TestRefreshOverwritesListAndPrunesSelection(t *testing.T) {
	fb := newFakeBackend()
	fb.setListDocs([]backend.Document{
		{ID: "d1", Name: "a.pdf"},
		{ID: "d2", Name: "b.txt"},
	})

	c := New(fb, WithPollPolicy(noPoll))
	defer c.Close()
	require.NoError(t, c.Refresh(context.Background()))
	c.SelectAll()
	assert.Len(t, c.Selection(), 2)

	fb.setListDocs([]backend.Document{{ID: "d2", Name: "b.txt"}})
	require.NoError(t, c.Refresh(context.Background()))

	assert.Equal(t, []string{"d2"}, c.Selection())
	require.Len(t, c.Documents(), 1)
}

func TestRefreshFailureLeavesStateUntouched(t *testing.T) {
	fb := newFakeBackend()
	fb.setListDocs([]backend.Document{{ID: "d1", Name: "a.pdf"}})

	c := New(fb, WithPollPolicy(noPoll))
	defer c.Close()
	require.NoError(t, c.Refresh(context.Background()))

	fb.mu.Lock()
	fb.listErr = errors.New("backend down")
	fb.mu.Unlock()

	require.Error(t, c.Refresh(context.Background()))
	assert.Len(t, c.Documents(), 1)
	assert.Empty(t, c.Transcript(), "list failures degrade silently")
}

func TestDeleteAllClearsDocumentsAndSelection(t *testing.T) {
	fb := newFakeBackend()
	fb.setListDocs([]backend.Document{{ID: "d1", Name: "a.pdf"}})

	c := New(fb, WithPollPolicy(noPoll))
	defer c.Close()
	require.NoError(t, c.Refresh(context.Background()))
	c.SelectAll()

	require.NoError(t, c.DeleteAll(context.Background()))

	assert.Empty(t, c.Documents())
	assert.Empty(t, c.Selection())

	transcript := c.Transcript()
	require.Len(t, transcript, 1)
	assert.Equal(t, RoleSystem, transcript[0].Role)
	assert.Equal(t, "All documents deleted.", transcript[0].Content)
}

func TestDeleteAllFailureLeavesStateUntouched(t *testing.T) {
	fb := newFakeBackend()
	fb.setListDocs([]backend.Document{{ID: "d1", Name: "a.pdf"}})
	fb.deleteErr = errors.New("delete refused")

	c := New(fb, WithPollPolicy(noPoll))
	defer c.Close()
	require.NoError(t, c.Refresh(context.Background()))
	c.SelectAll()

	require.Error(t, c.DeleteAll(context.Background()))

	assert.Len(t, c.Documents(), 1)
	assert.Equal(t, []string{"d1"}, c.Selection())

	transcript := c.Transcript()
	require.Len(t, transcript, 1)
	assert.Equal(t, "delete refused", transcript[0].Content)
}

func TestSelectAllThenClearRestoresInitialState(t *testing.T) {
	fb := newFakeBackend()
	fb.setListDocs([]backend.Document{
		{ID: "d1", Name: "a.pdf"},
		{ID: "d2", Name: "b.txt"},
	})

	c := New(fb, WithPollPolicy(noPoll))
	defer c.Close()
	require.NoError(t, c.Refresh(context.Background()))

	c.SelectAll()
	assert.Equal(t, []string{"d1", "d2"}, c.Selection())

	c.ClearSelection()
	assert.Empty(t, c.Selection())
}

func TestSelectionIgnoresUnknownDocuments(t *testing.T) {
	fb := newFakeBackend()
	c := New(fb, WithPollPolicy(noPoll))
	defer c.Close()

	c.Select("ghost")
	assert.Empty(t, c.Selection())
	assert.False(t, c.Toggle("ghost"))
}

func TestToggleFlipsMembership(t *testing.T) {
	fb := newFakeBackend()
	fb.setListDocs([]backend.Document{{ID: "d1", Name: "a.pdf"}})

	c := New(fb, WithPollPolicy(noPoll))
	defer c.Close()
	require.NoError(t, c.Refresh(context.Background()))

	assert.True(t, c.Toggle("d1"))
	assert.True(t, c.Selected("d1"))
	assert.False(t, c.Toggle("d1"))
	assert.False(t, c.Selected("d1"))
}

func TestWithIDPinsSessionIdentifier(t *testing.T) {
	c := New(newFakeBackend(), WithID("fixed-session"), WithPollPolicy(noPoll))
	defer c.Close()
	assert.Equal(t, "fixed-session", c.ID())
}

func TestSourceMatchFormatting(t *testing.T) {
	assert.Equal(t, "87.0% match", Source{Similarity: 0.87}.Match())
	assert.Equal(t, "100.0% match", Source{Similarity: 1}.Match())
	assert.Equal(t, "7.5% match", Source{Similarity: 0.075}.Match())
}
