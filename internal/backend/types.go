package backend

// Document is the canonical client-side view of an uploaded document.
// The wire payload is normalized into this shape once, at the API boundary,
// so consuming code never has to care about the backend's field-name variants.
type Document struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	Type        string `json:"type"`
	Status      string `json:"status"`
	TotalChunks int    `json:"total_chunks"`
}

// documentPayload tolerates both naming variants the backend is known to
// emit: id/doc_id and name/filename.
type documentPayload struct {
	ID          string `json:"id"`
	DocID       string `json:"doc_id"`
	Name        string `json:"name"`
	Filename    string `json:"filename"`
	Size        int64  `json:"size"`
	Type        string `json:"type"`
	Status      string `json:"status"`
	TotalChunks int    `json:"total_chunks"`
}

func (p documentPayload) normalize() Document {
	doc := Document{
		ID:          p.ID,
		Name:        p.Name,
		Size:        p.Size,
		Type:        p.Type,
		Status:      p.Status,
		TotalChunks: p.TotalChunks,
	}
	if doc.ID == "" {
		doc.ID = p.DocID
	}
	if doc.Name == "" {
		doc.Name = p.Filename
	}
	return doc
}

type listResponse struct {
	Documents []documentPayload `json:"documents"`
}

type uploadResponse struct {
	Filename string `json:"filename"`
}

// QueryRequest is the wire shape of a question sent to the backend.
type QueryRequest struct {
	UserID string   `json:"user_id"`
	Query  string   `json:"query"`
	DocIDs []string `json:"doc_ids"`
	TopK   int      `json:"top_k"`
}

// Source is one evidence snippet supporting an answer.
type Source struct {
	Filename   string  `json:"filename"`
	Text       string  `json:"text"`
	Similarity float64 `json:"similarity"`
}

// QueryResponse is the backend's answer to a question.
type QueryResponse struct {
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources"`
}
