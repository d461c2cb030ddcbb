// Package embedding generates vector embeddings through an
// OpenAI-compatible endpoint.
package embedding

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
)

const (
	// DefaultModel is the embedding model used when none is configured.
	DefaultModel = "text-embedding-3-small"

	// DefaultDimension is the vector size of DefaultModel. It must match
	// the store's collection dimension.
	DefaultDimension = 1536
)

// Embedder turns text into fixed-length vectors. Calls are synchronous and
// never retried; a failed call is the caller's signal to skip that unit of
// work.
type Embedder struct {
	client    *Client
	model     string
	dimension int
}

// NewEmbedder creates an Embedder for the given model. Zero values select
// DefaultModel and DefaultDimension.
func NewEmbedder(client *Client, model string, dimension int) *Embedder {
	if model == "" {
		model = DefaultModel
	}
	if dimension <= 0 {
		dimension = DefaultDimension
	}
	return &Embedder{client: client, model: model, dimension: dimension}
}

// Dimension returns the expected vector length.
func (e *Embedder) Dimension() int { return e.dimension }

// Embed generates the embedding for a single text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: []string{text},
		},
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("embed: empty response from model %s", e.model)
	}

	vector := toFloat32(resp.Data[0].Embedding)
	if len(vector) != e.dimension {
		return nil, fmt.Errorf("embed: model %s returned %d dimensions, expected %d",
			e.model, len(vector), e.dimension)
	}
	return vector, nil
}

// toFloat32 narrows the API's float64 vector for storage.
func toFloat32(f64 []float64) []float32 {
	f32 := make([]float32, len(f64))
	for i, v := range f64 {
		f32[i] = float32(v)
	}
	return f32
}
