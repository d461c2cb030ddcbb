//go:build integration

package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/ragserver/internal/extract"
)

// Requires a local Qdrant on localhost:6334.
func TestStore_RoundTrip(t *testing.T) {
	store, err := NewStore("localhost", 6334, "documents_test", 4)
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.EnsureCollection(ctx))

	rec := &Record{
		ID:        "roundtrip.txt_0",
		Document:  "The warp core is stable.",
		Embedding: []float32{0.1, 0.2, 0.3, 0.4},
		Metadata: extract.Metadata{
			Source:      "roundtrip",
			ChunkID:     0,
			ContentType: extract.ContentTypeText,
			ChunkSize:   24,
		},
	}
	require.NoError(t, store.Add(ctx, rec))

	// Re-adding the same logical id must overwrite, not duplicate.
	require.NoError(t, store.Add(ctx, rec))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, count, uint64(1))

	results, err := store.Query(ctx, []float32{0.1, 0.2, 0.3, 0.4}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "roundtrip.txt_0", results[0].ID)
	assert.Equal(t, "The warp core is stable.", results[0].Document)
	assert.Equal(t, extract.ContentTypeText, results[0].Metadata.ContentType)

	// Dimension mismatches are rejected before any network call.
	err = store.Add(ctx, &Record{ID: "bad", Embedding: []float32{1}})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}
