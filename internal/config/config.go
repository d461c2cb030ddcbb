// Package config loads runtime configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/bull/ragserver/internal/chunker"
	"github.com/bull/ragserver/internal/embedding"
	"github.com/bull/ragserver/internal/rag"
	"github.com/bull/ragserver/internal/storage"
)

// Config holds every runtime setting. Entry points call godotenv.Load()
// before Load so a local .env file can supply these.
type Config struct {
	QdrantHost     string
	QdrantPort     int
	Collection     string
	EmbeddingDim   int
	EmbeddingModel string
	LLMBaseURL     string
	LLMModel       string
	OpenAIAPIKey   string
	TempFolder     string
	Host           string
	Port           int
	ChunkSize      int
	Overlap        int
	Debug          bool
}

// Load reads the environment, applying defaults for anything unset.
func Load() *Config {
	return &Config{
		QdrantHost:     getEnv("QDRANT_HOST", "localhost"),
		QdrantPort:     getEnvInt("QDRANT_PORT", 6334),
		Collection:     getEnv("COLLECTION_NAME", storage.DefaultCollection),
		EmbeddingDim:   getEnvInt("EMBEDDING_DIM", embedding.DefaultDimension),
		EmbeddingModel: getEnv("EMBEDDING_MODEL", embedding.DefaultModel),
		LLMBaseURL:     getEnv("LLM_BASE_URL", ""),
		LLMModel:       getEnv("LLM_MODEL", rag.DefaultChatModel),
		OpenAIAPIKey:   getEnv("OPENAI_API_KEY", ""),
		TempFolder:     getEnv("TEMP_FOLDER", "./_temp"),
		Host:           getEnv("HOST", "0.0.0.0"),
		Port:           getEnvInt("PORT", 8080),
		ChunkSize:      getEnvInt("CHUNK_SIZE", chunker.DefaultChunkSize),
		Overlap:        getEnvInt("CHUNK_OVERLAP", chunker.DefaultOverlap),
		Debug:          getEnvBool("DEBUG", false),
	}
}

// Addr returns the host:port the HTTP server listens on.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultValue
}
