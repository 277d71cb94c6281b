package session

import (
	"fmt"
	"time"

	"github.com/entrepeneur4lyf/docchat/internal/backend"
)

// Role tags a transcript entry by its author.
type Role string

const (
	RoleUser   Role = "user"
	RoleAI     Role = "ai"
	RoleSystem Role = "system"
)

// Source is one evidence snippet attached to an answer.
type Source struct {
	Filename   string
	Text       string
	Similarity float64
}

// Match renders the similarity score the way the transcript shows it,
// e.g. "87.0% match".
func (s Source) Match() string {
	return fmt.Sprintf("%.1f%% match", s.Similarity*100)
}

// Message is one transcript entry. The transcript is append-only: entries are
// never removed or reordered; the only post-creation change is a pending user
// entry being confirmed once its question has been answered or rejected.
type Message struct {
	Role    Role
	Content string
	Sources []Source
	Pending bool
	Time    time.Time
}

// Document is the client's record of one uploaded file. Pending records were
// created optimistically from an upload response and have not yet been
// confirmed by an authoritative list fetch.
type Document struct {
	ID          string
	Name        string
	Size        int64
	Type        string
	Status      string
	TotalChunks int
	Pending     bool
}

// Processing reports whether the backend is still chunking/indexing the file.
func (d Document) Processing() bool {
	return d.Status == StatusProcessing
}

// StatusProcessing is the optimistic status a record carries between upload
// and backend confirmation.
const StatusProcessing = "processing"

func fromBackend(doc backend.Document) Document {
	return Document{
		ID:          doc.ID,
		Name:        doc.Name,
		Size:        doc.Size,
		Type:        doc.Type,
		Status:      doc.Status,
		TotalChunks: doc.TotalChunks,
	}
}

func fromSources(sources []backend.Source) []Source {
	out := make([]Source, 0, len(sources))
	for _, s := range sources {
		out = append(out, Source{
			Filename:   s.Filename,
			Text:       s.Text,
			Similarity: s.Similarity,
		})
	}
	return out
}
