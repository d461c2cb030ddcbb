package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "localhost", cfg.QdrantHost)
	assert.Equal(t, 6334, cfg.QdrantPort)
	assert.Equal(t, "documents", cfg.Collection)
	assert.Equal(t, 1536, cfg.EmbeddingDim)
	assert.Equal(t, 1000, cfg.ChunkSize)
	assert.Equal(t, 200, cfg.Overlap)
	assert.Equal(t, "0.0.0.0:8080", cfg.Addr())
	assert.False(t, cfg.Debug)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("QDRANT_HOST", "qdrant.internal")
	t.Setenv("QDRANT_PORT", "7000")
	t.Setenv("COLLECTION_NAME", "fleet_docs")
	t.Setenv("LLM_BASE_URL", "http://ollama:11434/v1")
	t.Setenv("LLM_MODEL", "mistral")
	t.Setenv("DEBUG", "true")

	cfg := Load()
	assert.Equal(t, "qdrant.internal", cfg.QdrantHost)
	assert.Equal(t, 7000, cfg.QdrantPort)
	assert.Equal(t, "fleet_docs", cfg.Collection)
	assert.Equal(t, "http://ollama:11434/v1", cfg.LLMBaseURL)
	assert.Equal(t, "mistral", cfg.LLMModel)
	assert.True(t, cfg.Debug)
}

func TestLoad_BadIntFallsBack(t *testing.T) {
	t.Setenv("QDRANT_PORT", "not-a-port")
	cfg := Load()
	assert.Equal(t, 6334, cfg.QdrantPort)
}
