// Package extract turns heterogeneous raw content (HTML, URLs, PDFs,
// markdown) into text chunks with provenance metadata.
package extract

// ContentType identifies which kind of source a chunk came from.
type ContentType string

const (
	ContentTypeText         ContentType = "text"
	ContentTypeHTML         ContentType = "html"
	ContentTypeHTMLFallback ContentType = "html_fallback"
	ContentTypePDF          ContentType = "pdf"
)

// ExtractionMethod records which strategy produced a chunk's text.
type ExtractionMethod string

const (
	// MethodCombined means the union of the readability and DOM strategies
	// produced the text.
	MethodCombined ExtractionMethod = "combined"

	// MethodFallback means only the last-resort full-text pass produced it.
	MethodFallback ExtractionMethod = "fallback"
)

// Metadata is the provenance attached to every chunk. ChunkID is 0-based
// and reflects original document order within a source.
type Metadata struct {
	Source           string           `json:"source"`
	ChunkID          int              `json:"chunk_id"`
	ContentType      ContentType      `json:"content_type"`
	ChunkSize        int              `json:"chunk_size"`
	ExtractionMethod ExtractionMethod `json:"extraction_method,omitempty"`
	FilePath         string           `json:"file_path,omitempty"`
}

// Chunk is a bounded span of text plus its provenance, the atomic unit
// stored in the vector index.
type Chunk struct {
	Text     string   `json:"text"`
	Metadata Metadata `json:"metadata"`
}
