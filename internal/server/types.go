// Package server exposes the RAG system over a small REST API.
package server

import "github.com/bull/ragserver/internal/extract"

// embedRequest is the JSON body of POST /api/embed.
type embedRequest struct {
	Text string `json:"text"`
}

// embedResponse carries a generated embedding back to the caller.
type embedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// addRequest is the JSON body of POST /api/add. All fields are required.
type addRequest struct {
	Embedding []float32         `json:"embedding"`
	Document  string            `json:"document"`
	Metadata  *extract.Metadata `json:"metadata"`
	ID        string            `json:"id"`
}

// queryRequest is the JSON body of POST /api/query. NumResults is a
// pointer so an explicit zero is rejected rather than defaulted.
type queryRequest struct {
	Query      string `json:"query"`
	NumResults *int   `json:"num_results"`
}

// messageResponse is the generic success envelope.
type messageResponse struct {
	Message string `json:"message"`
}

// errorResponse is the generic failure envelope.
type errorResponse struct {
	Error string `json:"error"`
}

// statsResponse is the body of GET /api/stats.
type statsResponse struct {
	DocumentCount  uint64 `json:"document_count"`
	CollectionName string `json:"collection_name"`
}

// healthResponse is the body of GET /api/health.
type healthResponse struct {
	Status     string `json:"status"`
	Database   string `json:"database"`
	LLMBackend string `json:"llm_backend"`
	Model      string `json:"model,omitempty"`
	Error      string `json:"error,omitempty"`
}
