// Package pipeline orchestrates ingestion: it walks content sources,
// extracts and chunks their text, obtains embeddings and persists the
// resulting records, tracking per-run statistics.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/bull/ragserver/internal/chunker"
	"github.com/bull/ragserver/internal/extract"
	"github.com/bull/ragserver/internal/storage"
)

// Embedder produces a vector for one text. Implemented by
// embedding.Embedder and, on the loader side, by the API client.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Recorder persists one chunk record. Implemented by storage.Store and by
// the loader's API client.
type Recorder interface {
	Add(ctx context.Context, rec *storage.Record) error
}

var (
	textExtensions = map[string]bool{".txt": true, ".md": true, ".rst": true}
	htmlExtensions = map[string]bool{".html": true, ".htm": true, ".xhtml": true}
)

// Pipeline ingests content sources one unit at a time. A failing chunk or
// file is logged and counted but never aborts the run; only a missing
// source path is fatal.
type Pipeline struct {
	chunker  *chunker.Chunker
	html     *extract.HTMLExtractor
	embedder Embedder
	store    Recorder
	logger   *slog.Logger
}

// New wires a pipeline from its collaborators.
func New(c *chunker.Chunker, html *extract.HTMLExtractor, embedder Embedder, store Recorder, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{chunker: c, html: html, embedder: embedder, store: store, logger: logger}
}

// ProcessFolder ingests every recognized file directly inside dir: text
// files (.txt/.md/.rst) first, then HTML files (.html/.htm/.xhtml). Files
// with other extensions are ignored. The returned statistics cover the
// whole run even when individual files failed.
func (p *Pipeline) ProcessFolder(ctx context.Context, dir string) (*RunStatistics, error) {
	stats := newRunStatistics()
	start := time.Now()

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read folder %s: %w", dir, err)
	}

	var textFiles, htmlFiles []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		switch {
		case textExtensions[ext]:
			textFiles = append(textFiles, filepath.Join(dir, entry.Name()))
		case htmlExtensions[ext]:
			htmlFiles = append(htmlFiles, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(textFiles)
	sort.Strings(htmlFiles)

	p.logger.Info("processing folder", "dir", dir,
		"text_files", len(textFiles), "html_files", len(htmlFiles))

	for _, path := range textFiles {
		if err := p.processTextFile(ctx, path, stats); err != nil {
			p.logger.Error("failed to process text file", "path", path, "error", err)
			stats.Errors++
			continue
		}
		stats.FilesProcessed++
	}
	for _, path := range htmlFiles {
		if err := p.processHTMLFile(ctx, path, stats); err != nil {
			p.logger.Error("failed to process html file", "path", path, "error", err)
			stats.Errors++
			continue
		}
		stats.FilesProcessed++
	}

	stats.Elapsed = time.Since(start)
	p.logger.Info("folder processing complete",
		"files", stats.FilesProcessed, "chunks", stats.ChunksProcessed,
		"errors", stats.Errors, "elapsed", stats.Elapsed)
	return stats, nil
}

// ProcessURLsFromFile reads URLs from a file, one per line. Blank lines and
// lines starting with # are skipped.
func (p *Pipeline) ProcessURLsFromFile(ctx context.Context, path string) (*RunStatistics, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read urls file %s: %w", path, err)
	}

	var urls []string
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	return p.ProcessURLs(ctx, urls)
}

// ProcessURLs ingests each URL in order. A URL that fails to fetch or
// ingest is counted as an error and skipped.
func (p *Pipeline) ProcessURLs(ctx context.Context, urls []string) (*RunStatistics, error) {
	stats := newRunStatistics()
	start := time.Now()

	p.logger.Info("processing urls", "count", len(urls))
	for _, pageURL := range urls {
		if err := p.processURL(ctx, pageURL, stats); err != nil {
			p.logger.Error("failed to process url", "url", pageURL, "error", err)
			stats.Errors++
			continue
		}
		stats.URLsProcessed++
	}

	stats.Elapsed = time.Since(start)
	p.logger.Info("url processing complete",
		"urls", stats.URLsProcessed, "chunks", stats.ChunksProcessed,
		"errors", stats.Errors, "elapsed", stats.Elapsed)
	return stats, nil
}

// Document is a named markdown document fetched from a remote source.
type Document struct {
	Name    string // relative name, e.g. "guide/setup.md"
	Content []byte
	Path    string // origin reference recorded in metadata
}

// ProcessDocs ingests markdown documents fetched from a remote repository.
// A document that fails to split is counted and skipped.
func (p *Pipeline) ProcessDocs(ctx context.Context, docs []Document) (*RunStatistics, error) {
	stats := newRunStatistics()
	start := time.Now()

	for _, doc := range docs {
		if err := p.processDoc(ctx, doc, stats); err != nil {
			p.logger.Error("document failed", "name", doc.Name, "error", err)
			stats.Errors++
			continue
		}
		stats.FilesProcessed++
	}

	stats.Elapsed = time.Since(start)
	p.logger.Info("document processing complete",
		"documents", stats.FilesProcessed, "chunks", stats.ChunksProcessed,
		"errors", stats.Errors, "elapsed", stats.Elapsed)
	return stats, nil
}

func (p *Pipeline) processDoc(ctx context.Context, doc Document, stats *RunStatistics) error {
	sections, err := extract.MarkdownSections(doc.Content)
	if err != nil {
		return fmt.Errorf("split sections: %w", err)
	}

	var texts []string
	for _, section := range sections {
		texts = append(texts, p.paragraphChunks(section.Text())...)
	}

	base := filepath.Base(doc.Name)
	sourceName := strings.TrimSuffix(base, filepath.Ext(base))
	for i, text := range texts {
		chunk := extract.Chunk{
			Text: text,
			Metadata: extract.Metadata{
				Source:      sourceName,
				ChunkID:     i,
				ContentType: extract.ContentTypeText,
				ChunkSize:   len(text),
				FilePath:    doc.Path,
			},
		}
		p.persistChunk(ctx, fmt.Sprintf("%s_%d", base, i), chunk, stats)
	}
	return nil
}

// IngestChunks embeds and persists pre-extracted chunks under sourceName.
// Used for content that arrives already extracted, like PDF uploads.
func (p *Pipeline) IngestChunks(ctx context.Context, sourceName string, chunks []extract.Chunk) *RunStatistics {
	stats := newRunStatistics()
	start := time.Now()
	p.ingestChunks(ctx, sourceName, chunks, stats)
	stats.Elapsed = time.Since(start)
	return stats
}

// processTextFile splits a text file on paragraph boundaries and ingests
// each paragraph. Markdown files are first divided into heading sections so
// chunks keep their section context. Paragraphs longer than the chunk size
// are passed through the sentence-aware chunker instead of being embedded
// oversized.
func (p *Pipeline) processTextFile(ctx context.Context, path string, stats *RunStatistics) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read: %w", err)
	}

	var texts []string
	if strings.EqualFold(filepath.Ext(path), ".md") {
		sections, err := extract.MarkdownSections(content)
		if err != nil {
			return fmt.Errorf("split sections: %w", err)
		}
		for _, section := range sections {
			texts = append(texts, p.paragraphChunks(section.Text())...)
		}
	} else {
		texts = p.paragraphChunks(string(content))
	}

	base := filepath.Base(path)
	sourceName := strings.TrimSuffix(base, filepath.Ext(base))
	p.logger.Debug("text file split", "path", path, "chunks", len(texts))

	for i, text := range texts {
		chunk := extract.Chunk{
			Text: text,
			Metadata: extract.Metadata{
				Source:      sourceName,
				ChunkID:     i,
				ContentType: extract.ContentTypeText,
				ChunkSize:   len(text),
				FilePath:    path,
			},
		}
		p.persistChunk(ctx, fmt.Sprintf("%s_%d", base, i), chunk, stats)
	}
	return nil
}

// processHTMLFile delegates to the HTML extractor and ingests its chunks.
func (p *Pipeline) processHTMLFile(ctx context.Context, path string, stats *RunStatistics) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read: %w", err)
	}

	base := filepath.Base(path)
	sourceName := strings.TrimSuffix(base, filepath.Ext(base))

	chunks := p.html.Extract(string(content), "file:"+path)
	p.logger.Debug("html file extracted", "path", path, "chunks", len(chunks))
	p.ingestChunks(ctx, sourceName, chunks, stats)
	return nil
}

// processURL fetches and ingests one URL. Fetch failures are fatal for the
// source and reported to the caller.
func (p *Pipeline) processURL(ctx context.Context, pageURL string, stats *RunStatistics) error {
	chunks, err := p.html.ExtractURL(ctx, pageURL)
	if err != nil {
		return err
	}
	p.ingestChunks(ctx, sourceNameFromURL(pageURL), chunks, stats)
	return nil
}

// ingestChunks runs the embed-then-persist loop with per-chunk failure
// isolation: a failing chunk is counted and skipped, never aborting the
// remainder.
func (p *Pipeline) ingestChunks(ctx context.Context, sourceName string, chunks []extract.Chunk, stats *RunStatistics) {
	for i, chunk := range chunks {
		chunkID := chunk.Metadata.ChunkID
		if chunkID == 0 && i > 0 {
			// Extractor metadata without ordering falls back to the
			// loop index.
			chunkID = i
		}
		p.persistChunk(ctx, fmt.Sprintf("%s_%d", sourceName, chunkID), chunk, stats)
	}
}

// persistChunk embeds one chunk and stores the record. Reports success
// through stats; failures only increment the error counter.
func (p *Pipeline) persistChunk(ctx context.Context, id string, chunk extract.Chunk, stats *RunStatistics) {
	vector, err := p.embedder.Embed(ctx, chunk.Text)
	if err != nil {
		p.logger.Error("embedding failed", "id", id, "error", err)
		stats.Errors++
		return
	}

	rec := &storage.Record{
		ID:        id,
		Document:  chunk.Text,
		Embedding: vector,
		Metadata:  chunk.Metadata,
	}
	if err := p.store.Add(ctx, rec); err != nil {
		p.logger.Error("persist failed", "id", id, "error", err)
		stats.Errors++
		return
	}

	stats.recordChunk(chunk.Metadata, len(chunk.Text))
	p.logger.Debug("chunk persisted", "id", id, "length", len(chunk.Text))
}

// paragraphChunks splits text on blank-line boundaries. Paragraphs within
// the chunk size pass through as author-chunked units; oversized ones go
// through the sentence-aware chunker.
func (p *Pipeline) paragraphChunks(text string) []string {
	var out []string
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if len(para) <= p.chunker.ChunkSize() {
			out = append(out, para)
			continue
		}
		out = append(out, p.chunker.Chunk(para)...)
	}
	return out
}

var urlNamePattern = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// sourceNameFromURL derives a stable source name from a URL: scheme
// stripped, remaining separators collapsed to underscores.
func sourceNameFromURL(pageURL string) string {
	name := pageURL
	for _, prefix := range []string{"https://", "http://"} {
		name = strings.TrimPrefix(name, prefix)
	}
	name = strings.Trim(urlNamePattern.ReplaceAllString(name, "_"), "_")
	if name == "" {
		return "url"
	}
	return name
}
