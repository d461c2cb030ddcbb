package storage

import "github.com/bull/ragserver/internal/extract"

// DefaultCollection is used when no collection name is configured.
const DefaultCollection = "documents"

// Record is one (embedding, document, metadata, id) tuple as persisted in
// the vector store. ID is the logical document id in the form
// {source_basename}_{chunk_id}; writing the same ID again overwrites the
// previous record.
type Record struct {
	ID        string
	Document  string
	Embedding []float32
	Metadata  extract.Metadata
}

// SearchResult is a stored record returned from similarity search, ordered
// by descending score.
type SearchResult struct {
	ID       string
	Document string
	Score    float64
	Metadata extract.Metadata
}
