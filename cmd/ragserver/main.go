// Package main runs the RAG REST API server.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/bull/ragserver/internal/chunker"
	"github.com/bull/ragserver/internal/config"
	"github.com/bull/ragserver/internal/embedding"
	"github.com/bull/ragserver/internal/extract"
	"github.com/bull/ragserver/internal/pipeline"
	"github.com/bull/ragserver/internal/rag"
	"github.com/bull/ragserver/internal/server"
	"github.com/bull/ragserver/internal/storage"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// .env is for local development; in deployment the environment is set
	// by the platform.
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	cfg := config.Load()

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	store, err := storage.NewStore(cfg.QdrantHost, cfg.QdrantPort, cfg.Collection, cfg.EmbeddingDim)
	if err != nil {
		logger.Error("connecting to qdrant failed", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	if err := store.EnsureCollection(ctx); err != nil {
		logger.Error("ensuring collection failed", "error", err)
		os.Exit(1)
	}

	client, err := embedding.NewClient(cfg.LLMBaseURL, cfg.OpenAIAPIKey)
	if err != nil {
		logger.Error("creating model client failed", "error", err)
		os.Exit(1)
	}
	embedder := embedding.NewEmbedder(client, cfg.EmbeddingModel, cfg.EmbeddingDim)
	generator := rag.NewChatGenerator(client, cfg.LLMModel)
	service := rag.NewService(embedder, store, generator, logger)

	// The upload pipeline reuses the ingestion machinery for PDFs posted
	// to /api/embed.
	ck, err := chunker.New(cfg.ChunkSize, cfg.Overlap)
	if err != nil {
		logger.Error("invalid chunking configuration", "error", err)
		os.Exit(1)
	}
	uploads := pipeline.New(ck, extract.NewHTMLExtractor(ck, logger), embedder, store, logger)

	srv := server.New(&server.Config{
		Embedder:   embedder,
		Answerer:   service,
		Store:      store,
		LLM:        generator,
		Ingester:   uploads,
		TempFolder: cfg.TempFolder,
		Logger:     logger,
		Debug:      cfg.Debug,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(cfg.Addr())
	}()

	select {
	case err := <-errCh:
		logger.Error("http server failed", "error", err)
		os.Exit(1)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", "error", err)
		os.Exit(1)
	}
}
