package server

import (
	"context"
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/bull/ragserver/internal/extract"
	"github.com/bull/ragserver/internal/pipeline"
	"github.com/bull/ragserver/internal/storage"
)

// Embedder generates embeddings for request text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Answerer runs the query pipeline.
type Answerer interface {
	Answer(ctx context.Context, question string, k int) (string, error)
}

// Store is the slice of the vector store the API needs.
type Store interface {
	Add(ctx context.Context, rec *storage.Record) error
	Count(ctx context.Context) (uint64, error)
	Health(ctx context.Context) error
	Collection() string
}

// LLMChecker reports model backend reachability for health checks.
type LLMChecker interface {
	Ping(ctx context.Context) error
	Model() string
}

// Ingester handles uploaded content that arrives pre-extracted.
type Ingester interface {
	IngestChunks(ctx context.Context, sourceName string, chunks []extract.Chunk) *pipeline.RunStatistics
}

// Config holds the server's collaborators and upload settings.
type Config struct {
	Embedder   Embedder
	Answerer   Answerer
	Store      Store
	LLM        LLMChecker
	Ingester   Ingester
	TempFolder string
	Logger     *slog.Logger
	Debug      bool
}

// Server is the REST API over the ingestion and query pipelines.
type Server struct {
	echo       *echo.Echo
	embedder   Embedder
	answerer   Answerer
	store      Store
	llm        LLMChecker
	ingester   Ingester
	tempFolder string
	logger     *slog.Logger
}

// New builds the server and registers all routes.
func New(cfg *Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	if cfg.Debug {
		e.Use(middleware.Logger())
	}

	s := &Server{
		echo:       e,
		embedder:   cfg.Embedder,
		answerer:   cfg.Answerer,
		store:      cfg.Store,
		llm:        cfg.LLM,
		ingester:   cfg.Ingester,
		tempFolder: cfg.TempFolder,
		logger:     logger,
	}

	api := e.Group("/api")
	api.POST("/embed", s.handleEmbed)
	api.POST("/add", s.handleAdd)
	api.POST("/query", s.handleQuery)
	api.GET("/stats", s.handleStats)
	api.GET("/health", s.handleHealth)

	return s
}

// Echo exposes the underlying router, mainly for tests.
func (s *Server) Echo() *echo.Echo { return s.echo }

// Start listens on addr until Shutdown or a listener error.
func (s *Server) Start(addr string) error {
	s.logger.Info("http server listening", "addr", addr)
	return s.echo.Start(addr)
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
