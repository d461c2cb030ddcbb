package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/ragserver/internal/chunker"
	"github.com/bull/ragserver/internal/extract"
	"github.com/bull/ragserver/internal/storage"
)

type fakeEmbedder struct {
	failWhen func(text string) bool
	calls    int
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.calls++
	if f.failWhen != nil && f.failWhen(text) {
		return nil, fmt.Errorf("embedding backend unavailable")
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

type fakeStore struct {
	records  []*storage.Record
	failerr  error
	failWhen func(id string) bool
}

func (f *fakeStore) Add(_ context.Context, rec *storage.Record) error {
	if f.failWhen != nil && f.failWhen(rec.ID) {
		if f.failerr != nil {
			return f.failerr
		}
		return fmt.Errorf("store rejected %s", rec.ID)
	}
	f.records = append(f.records, rec)
	return nil
}

func newTestPipeline(t *testing.T, embedder Embedder, store Recorder) *Pipeline {
	t.Helper()
	c, err := chunker.New(1000, 200)
	require.NoError(t, err)
	return New(c, extract.NewHTMLExtractor(c, nil), embedder, store, nil)
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestProcessFolder_MissingFolder(t *testing.T) {
	p := newTestPipeline(t, &fakeEmbedder{}, &fakeStore{})
	stats, err := p.ProcessFolder(context.Background(), filepath.Join(t.TempDir(), "absent"))
	assert.Error(t, err)
	assert.Nil(t, stats)
}

func TestProcessFolder_TextFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "crew.txt", "First paragraph about the crew.\n\nSecond paragraph about the bridge.")
	writeFile(t, dir, "notes.log", "ignored entirely")

	store := &fakeStore{}
	p := newTestPipeline(t, &fakeEmbedder{}, store)

	stats, err := p.ProcessFolder(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.FilesProcessed)
	assert.Equal(t, 2, stats.ChunksProcessed)
	assert.Equal(t, 0, stats.Errors)
	assert.Equal(t, 2, stats.ByContentType[extract.ContentTypeText])

	require.Len(t, store.records, 2)
	assert.Equal(t, "crew.txt_0", store.records[0].ID)
	assert.Equal(t, "crew.txt_1", store.records[1].ID)
	assert.Equal(t, "First paragraph about the crew.", store.records[0].Document)
	assert.Equal(t, "crew", store.records[0].Metadata.Source)
	assert.Equal(t, extract.ContentTypeText, store.records[0].Metadata.ContentType)
	assert.Equal(t, 0, store.records[0].Metadata.ChunkID)
	assert.Equal(t, 1, store.records[1].Metadata.ChunkID)
}

func TestProcessFolder_OversizedParagraphIsChunked(t *testing.T) {
	dir := t.TempDir()
	long := strings.Repeat("A sentence that keeps going. ", 100) // ~2900 chars, no blank lines
	writeFile(t, dir, "long.txt", long)

	store := &fakeStore{}
	p := newTestPipeline(t, &fakeEmbedder{}, store)

	stats, err := p.ProcessFolder(context.Background(), dir)
	require.NoError(t, err)

	assert.Greater(t, stats.ChunksProcessed, 1, "oversized paragraph must be split")
	for _, rec := range store.records {
		assert.LessOrEqual(t, len(rec.Document), 1000)
	}
}

func TestProcessFolder_MarkdownSections(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "guide.md", "# Guide\n\nIntro text.\n\n## Setup\n\nRun the installer.\n")

	store := &fakeStore{}
	p := newTestPipeline(t, &fakeEmbedder{}, store)

	stats, err := p.ProcessFolder(context.Background(), dir)
	require.NoError(t, err)
	require.NotEmpty(t, store.records)
	assert.Equal(t, 1, stats.FilesProcessed)

	joined := ""
	for _, rec := range store.records {
		joined += rec.Document + "\n"
		assert.Equal(t, "guide", rec.Metadata.Source)
	}
	assert.Contains(t, joined, "Intro text")
	assert.Contains(t, joined, "Guide > Setup")
	assert.Contains(t, joined, "Run the installer")
}

func TestProcessFolder_PartialFailureDoesNotAbortRun(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "Chunk a1.\n\nChunk a2.")
	writeFile(t, dir, "b.txt", "POISON one.\n\nPOISON two.\n\nPOISON three.")
	writeFile(t, dir, "c.txt", "Chunk c1.")

	store := &fakeStore{}
	embedder := &fakeEmbedder{failWhen: func(text string) bool {
		return strings.Contains(text, "POISON")
	}}
	p := newTestPipeline(t, embedder, store)

	stats, err := p.ProcessFolder(context.Background(), dir)
	require.NoError(t, err, "partial failures must not abort the run")

	assert.GreaterOrEqual(t, stats.Errors, 3, "every chunk of the failing file counts as an error")
	assert.Equal(t, 3, stats.ChunksProcessed)
	assert.Equal(t, 3, stats.FilesProcessed)

	var ids []string
	for _, rec := range store.records {
		ids = append(ids, rec.ID)
	}
	assert.ElementsMatch(t, []string{"a.txt_0", "a.txt_1", "c.txt_0"}, ids)
}

func TestProcessFolder_StoreFailureCounted(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "Chunk one.\n\nChunk two.")

	store := &fakeStore{failWhen: func(id string) bool { return id == "a.txt_0" }}
	p := newTestPipeline(t, &fakeEmbedder{}, store)

	stats, err := p.ProcessFolder(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Errors)
	assert.Equal(t, 1, stats.ChunksProcessed)
	require.Len(t, store.records, 1)
	assert.Equal(t, "a.txt_1", store.records[0].ID)
}

func TestProcessFolder_HTMLFile(t *testing.T) {
	dir := t.TempDir()
	body := strings.Repeat("The deflector array was realigned before the survey mission began. ", 4)
	writeFile(t, dir, "report.html",
		"<html><head><title>Survey Report</title></head><body><p>"+body+"</p></body></html>")

	store := &fakeStore{}
	p := newTestPipeline(t, &fakeEmbedder{}, store)

	stats, err := p.ProcessFolder(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.FilesProcessed)
	require.NotEmpty(t, store.records)
	assert.True(t, strings.HasPrefix(store.records[0].ID, "report_"))
	assert.Equal(t, extract.ContentTypeHTML, store.records[0].Metadata.ContentType)
	assert.Greater(t, stats.ByContentType[extract.ContentTypeHTML], 0)
	assert.Greater(t, stats.ByExtractionMethod[extract.MethodCombined], 0)
}

func TestProcessURLsFromFile(t *testing.T) {
	body := strings.Repeat("Long range sensors detected an anomaly near the outer marker. ", 4)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "<html><body><p>%s</p></body></html>", body)
	}))
	defer server.Close()

	dir := t.TempDir()
	urlsFile := filepath.Join(dir, "urls.txt")
	content := "# sources\n\n" + server.URL + "\n"
	require.NoError(t, os.WriteFile(urlsFile, []byte(content), 0o644))

	store := &fakeStore{}
	p := newTestPipeline(t, &fakeEmbedder{}, store)

	stats, err := p.ProcessURLsFromFile(context.Background(), urlsFile)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.URLsProcessed)
	assert.Equal(t, 0, stats.Errors)
	require.NotEmpty(t, store.records)
	assert.Contains(t, store.records[0].Metadata.Source, "url:")
}

func TestProcessURLs_FetchFailureIsCountedAndSkipped(t *testing.T) {
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer failing.Close()

	body := strings.Repeat("Engineering reported full power restored to all decks today. ", 4)
	working := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "<html><body><p>%s</p></body></html>", body)
	}))
	defer working.Close()

	store := &fakeStore{}
	p := newTestPipeline(t, &fakeEmbedder{}, store)

	stats, err := p.ProcessURLs(context.Background(), []string{failing.URL, working.URL})
	require.NoError(t, err)

	assert.Equal(t, 1, stats.URLsProcessed)
	assert.Equal(t, 1, stats.Errors)
	assert.NotEmpty(t, store.records)
}

func TestProcessURLsFromFile_MissingFile(t *testing.T) {
	p := newTestPipeline(t, &fakeEmbedder{}, &fakeStore{})
	stats, err := p.ProcessURLsFromFile(context.Background(), filepath.Join(t.TempDir(), "absent.txt"))
	assert.Error(t, err)
	assert.Nil(t, stats)
}

func TestProcessDocs(t *testing.T) {
	store := &fakeStore{}
	p := newTestPipeline(t, &fakeEmbedder{}, store)

	docs := []Document{
		{
			Name:    "guide/setup.md",
			Content: []byte("# Setup\n\nInstall the server first.\n\nThen start it."),
			Path:    "https://raw.example.com/guide/setup.md",
		},
		{
			Name:    "intro.md",
			Content: []byte("A short introduction without headings."),
			Path:    "https://raw.example.com/intro.md",
		},
	}

	stats, err := p.ProcessDocs(context.Background(), docs)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.FilesProcessed)
	assert.Equal(t, 0, stats.Errors)
	require.NotEmpty(t, store.records)

	ids := make([]string, 0, len(store.records))
	for _, rec := range store.records {
		ids = append(ids, rec.ID)
	}
	assert.Contains(t, ids, "setup.md_0")
	assert.Contains(t, ids, "intro.md_0")

	for _, rec := range store.records {
		if strings.HasPrefix(rec.ID, "setup.md_") {
			assert.Equal(t, "setup", rec.Metadata.Source)
			assert.Equal(t, "https://raw.example.com/guide/setup.md", rec.Metadata.FilePath)
		}
	}
}

func TestProcessDocs_FailedDocIsCountedAndSkipped(t *testing.T) {
	store := &fakeStore{}
	embedder := &fakeEmbedder{failWhen: func(text string) bool {
		return strings.Contains(text, "POISON")
	}}
	p := newTestPipeline(t, embedder, store)

	docs := []Document{
		{Name: "bad.md", Content: []byte("POISON paragraph.")},
		{Name: "good.md", Content: []byte("A fine paragraph.")},
	}

	stats, err := p.ProcessDocs(context.Background(), docs)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.FilesProcessed)
	assert.Equal(t, 1, stats.Errors)
	require.Len(t, store.records, 1)
	assert.Equal(t, "good.md_0", store.records[0].ID)
}

func TestIngestChunks(t *testing.T) {
	store := &fakeStore{}
	p := newTestPipeline(t, &fakeEmbedder{}, store)

	chunks := []extract.Chunk{
		{Text: "page one text", Metadata: extract.Metadata{Source: "manual", ChunkID: 0, ContentType: extract.ContentTypePDF, ChunkSize: 13}},
		{Text: "page two text", Metadata: extract.Metadata{Source: "manual", ChunkID: 1, ContentType: extract.ContentTypePDF, ChunkSize: 13}},
	}

	stats := p.IngestChunks(context.Background(), "manual.pdf", chunks)
	assert.Equal(t, 2, stats.ChunksProcessed)
	assert.Equal(t, 0, stats.Errors)
	require.Len(t, store.records, 2)
	assert.Equal(t, "manual.pdf_0", store.records[0].ID)
	assert.Equal(t, "manual.pdf_1", store.records[1].ID)
}

func TestRunStatistics_Summary(t *testing.T) {
	stats := newRunStatistics()
	stats.FilesProcessed = 2
	stats.recordChunk(extract.Metadata{ContentType: extract.ContentTypeHTML, ExtractionMethod: extract.MethodCombined}, 120)
	stats.Errors = 1

	summary := stats.Summary()
	assert.Contains(t, summary, "Files processed:   2")
	assert.Contains(t, summary, "Chunks processed:  1")
	assert.Contains(t, summary, "html:")
	assert.Contains(t, summary, "combined:")
	assert.Contains(t, summary, "WARNING: 1 errors")
}
