package server

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/bull/ragserver/internal/chunker"
	"github.com/bull/ragserver/internal/extract"
	"github.com/bull/ragserver/internal/storage"
)

const (
	// PDF uploads are chunked coarsely; pages are long and the reader
	// retrieves whole passages.
	pdfChunkSize    = 7500
	pdfChunkOverlap = 100

	maxNumResults = 20
)

// handleEmbed serves POST /api/embed. A JSON body {"text"} returns the
// text's embedding; a multipart upload ingests a PDF file as a side effect.
func (s *Server) handleEmbed(c echo.Context) error {
	contentType := c.Request().Header.Get(echo.HeaderContentType)
	if strings.HasPrefix(contentType, echo.MIMEApplicationJSON) {
		return s.embedText(c)
	}
	return s.embedUpload(c)
}

func (s *Server) embedText(c echo.Context) error {
	var req embedRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "Request must be JSON"})
	}
	if strings.TrimSpace(req.Text) == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "No text provided"})
	}

	embedding, err := s.embedder.Embed(c.Request().Context(), req.Text)
	if err != nil {
		s.logger.Error("embedding failed", "error", err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "Embedding error: " + err.Error()})
	}
	return c.JSON(http.StatusOK, embedResponse{Embedding: embedding})
}

func (s *Server) embedUpload(c echo.Context) error {
	file, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "No file part"})
	}
	if file.Filename == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "No selected file"})
	}
	if !strings.EqualFold(filepath.Ext(file.Filename), ".pdf") {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "Only PDF files are supported"})
	}

	path, err := s.saveUpload(file)
	if err != nil {
		s.logger.Error("saving upload failed", "filename", file.Filename, "error", err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "Embedding error: " + err.Error()})
	}
	defer os.Remove(path)

	text, err := extract.PDFText(path)
	if err != nil {
		s.logger.Error("pdf extraction failed", "filename", file.Filename, "error", err)
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "File embedded unsuccessfully"})
	}

	pdfChunker, err := chunker.New(pdfChunkSize, pdfChunkOverlap)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "Embedding error: " + err.Error()})
	}

	base := filepath.Base(file.Filename)
	sourceName := strings.TrimSuffix(base, filepath.Ext(base))
	texts := pdfChunker.Chunk(text)
	chunks := make([]extract.Chunk, 0, len(texts))
	for i, t := range texts {
		chunks = append(chunks, extract.Chunk{
			Text: t,
			Metadata: extract.Metadata{
				Source:      sourceName,
				ChunkID:     i,
				ContentType: extract.ContentTypePDF,
				ChunkSize:   len(t),
				FilePath:    file.Filename,
			},
		})
	}

	stats := s.ingester.IngestChunks(c.Request().Context(), base, chunks)
	if stats.ChunksProcessed == 0 {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "File embedded unsuccessfully"})
	}
	s.logger.Info("file ingested", "filename", file.Filename,
		"chunks", stats.ChunksProcessed, "errors", stats.Errors)
	return c.JSON(http.StatusOK, messageResponse{Message: "File embedded successfully"})
}

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// saveUpload writes the uploaded file under the temp folder with a
// timestamped sanitized name and returns its path.
func (s *Server) saveUpload(file *multipart.FileHeader) (string, error) {
	if err := os.MkdirAll(s.tempFolder, 0o755); err != nil {
		return "", fmt.Errorf("create temp folder: %w", err)
	}

	name := unsafeFilenameChars.ReplaceAllString(filepath.Base(file.Filename), "_")
	path := filepath.Join(s.tempFolder, fmt.Sprintf("%d_%s", time.Now().UnixNano(), name))

	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("write temp file: %w", err)
	}
	return path, nil
}

// handleAdd serves POST /api/add, persisting one pre-embedded record.
func (s *Server) handleAdd(c echo.Context) error {
	var req addRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "Request must be JSON"})
	}

	var missing []string
	if len(req.Embedding) == 0 {
		missing = append(missing, "embedding")
	}
	if req.Document == "" {
		missing = append(missing, "document")
	}
	if req.Metadata == nil {
		missing = append(missing, "metadata")
	}
	if req.ID == "" {
		missing = append(missing, "id")
	}
	if len(missing) > 0 {
		return c.JSON(http.StatusBadRequest, errorResponse{
			Error: "Missing required fields: " + strings.Join(missing, ", "),
		})
	}

	rec := &storage.Record{
		ID:        req.ID,
		Document:  req.Document,
		Embedding: req.Embedding,
		Metadata:  *req.Metadata,
	}
	if err := s.store.Add(c.Request().Context(), rec); err != nil {
		s.logger.Error("add document failed", "id", req.ID, "error", err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "Failed to add document"})
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "Document added successfully"})
}

// handleQuery serves POST /api/query.
func (s *Server) handleQuery(c echo.Context) error {
	var req queryRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "Request must be JSON"})
	}
	if strings.TrimSpace(req.Query) == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "No query provided"})
	}
	numResults := 5
	if req.NumResults != nil {
		numResults = *req.NumResults
	}
	if numResults < 1 || numResults > maxNumResults {
		return c.JSON(http.StatusBadRequest, errorResponse{
			Error: fmt.Sprintf("num_results must be between 1 and %d", maxNumResults),
		})
	}

	answer, err := s.answerer.Answer(c.Request().Context(), req.Query, numResults)
	if err != nil {
		s.logger.Error("query failed", "error", err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "Query error: " + err.Error()})
	}
	if answer == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "No response generated"})
	}
	return c.JSON(http.StatusOK, messageResponse{Message: answer})
}

// handleStats serves GET /api/stats.
func (s *Server) handleStats(c echo.Context) error {
	count, err := s.store.Count(c.Request().Context())
	if err != nil {
		s.logger.Error("stats failed", "error", err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "Stats error: " + err.Error()})
	}
	return c.JSON(http.StatusOK, statsResponse{
		DocumentCount:  count,
		CollectionName: s.store.Collection(),
	})
}

// handleHealth serves GET /api/health. The store is load-bearing so its
// failure is reported as unhealthy; a missing model backend only degrades.
func (s *Server) handleHealth(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	if err := s.store.Health(ctx); err != nil {
		return c.JSON(http.StatusInternalServerError, healthResponse{
			Status:   "unhealthy",
			Database: "disconnected",
			Error:    err.Error(),
		})
	}

	if err := s.llm.Ping(ctx); err != nil {
		return c.JSON(http.StatusServiceUnavailable, healthResponse{
			Status:     "degraded",
			Database:   "connected",
			LLMBackend: "not accessible",
			Error:      err.Error(),
		})
	}

	return c.JSON(http.StatusOK, healthResponse{
		Status:     "healthy",
		Database:   "connected",
		LLMBackend: "accessible",
		Model:      s.llm.Model(),
	})
}
