// Package v1 defines the ragd HTTP API contract: request and response
// bodies and the error taxonomy.
package v1

import "encoding/json"

// Request limits.
const (
	MaxQueryLength   = 1000
	MaxContentLength = 10000
	DefaultK         = 3
	MaxK             = 10
)

// QueryRequest is the body of /api/rag/query, /api/documents/search and
// /api/documents/direct-query. K is ignored by direct-query.
type QueryRequest struct {
	Query string      `json:"query"`
	K     json.Number `json:"k,omitempty"`
}

// DocumentRequest is the body of /api/rag/document and /api/documents/process.
type DocumentRequest struct {
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// ProcessMultipleRequest is the body of /api/documents/process-multiple.
type ProcessMultipleRequest struct {
	Documents []DocumentRequest `json:"documents"`
}

// Source is one retrieved chunk cited by an answer.
type Source struct {
	Content    string         `json:"content"`
	Metadata   map[string]any `json:"metadata"`
	Similarity float64        `json:"similarity"`
}

// QueryResponse is returned by the retrieval-backed query routes.
type QueryResponse struct {
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources"`
}

// DirectQueryResponse is returned by /api/documents/direct-query.
type DirectQueryResponse struct {
	Answer string `json:"answer"`
}

// AddDocumentResponse is returned by /api/rag/document.
type AddDocumentResponse struct {
	Message  string         `json:"message"`
	ID       string         `json:"id,omitempty"`
	Metadata map[string]any `json:"metadata"`
}

// DeleteDocumentResponse is returned by DELETE /api/rag/document/:id.
type DeleteDocumentResponse struct {
	Message string `json:"message"`
	ID      string `json:"id"`
}

// Chunk is one stored piece of a processed document.
type Chunk struct {
	PageContent string         `json:"pageContent"`
	Metadata    map[string]any `json:"metadata"`
}

// ProcessedDocument is returned by the /api/documents/process* and upload routes.
type ProcessedDocument struct {
	Content  string         `json:"content"`
	Chunks   []Chunk        `json:"chunks"`
	Metadata map[string]any `json:"metadata"`
}

// HealthResponse is returned by /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// ErrorResponse is the body of every non-2xx response.
// Details holds []FieldError for 400s and the cause's message for 500s.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}
