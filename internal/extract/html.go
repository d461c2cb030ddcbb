package extract

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	readability "github.com/go-shiori/go-readability"
	"golang.org/x/net/html"

	"github.com/bull/ragserver/internal/chunker"
)

const (
	// fetchTimeout bounds a single URL fetch.
	fetchTimeout = 30 * time.Second

	// browserUserAgent is sent on URL fetches; some sites refuse the Go
	// default agent.
	browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

	// Minimum cleaned lengths before a segment is worth keeping.
	minSegmentLen = 50
	minBodyLen    = 100
	minHeadingLen = 10
)

// HTMLExtractor extracts text chunks from HTML using multiple strategies.
// Readability-based article extraction and a DOM traversal run in order and
// their results are unioned; a failing strategy contributes nothing but
// never aborts extraction. Only when both come up empty does a raw
// full-text fallback run.
type HTMLExtractor struct {
	chunker *chunker.Chunker
	http    *resty.Client
	logger  *slog.Logger
}

// NewHTMLExtractor creates an extractor that delegates chunking to c.
func NewHTMLExtractor(c *chunker.Chunker, logger *slog.Logger) *HTMLExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	client := resty.New().
		SetTimeout(fetchTimeout).
		SetHeader("User-Agent", browserUserAgent)
	return &HTMLExtractor{chunker: c, http: client, logger: logger}
}

// Extract runs the extraction strategies over raw HTML and returns chunks
// tagged with source. An unparseable or text-free document yields an empty
// result, not an error.
func (e *HTMLExtractor) Extract(rawHTML, source string) []Chunk {
	var segments []string

	// Strategy 1: readability article extraction.
	articleSegments, err := e.extractArticle(rawHTML)
	if err != nil {
		e.logger.Warn("readability extraction failed", "source", source, "error", err)
	} else {
		segments = append(segments, articleSegments...)
		e.logger.Debug("readability extraction", "source", source, "segments", len(articleSegments))
	}

	// Strategy 2: DOM traversal for body text, title and headings.
	domSegments, err := e.extractDOM(rawHTML)
	if err != nil {
		e.logger.Warn("dom extraction failed", "source", source, "error", err)
	} else {
		segments = append(segments, domSegments...)
		e.logger.Debug("dom extraction", "source", source, "segments", len(domSegments))
	}

	if len(segments) > 0 {
		combined := strings.Join(segments, " ")
		return e.wrap(e.chunker.Chunk(combined), source, ContentTypeHTML, MethodCombined)
	}

	e.logger.Warn("no text extracted, using fallback", "source", source)
	return e.fallback(rawHTML, source)
}

// ExtractURL fetches a URL and extracts chunks from the response body.
// Unlike strategy failures, a network failure is fatal for the source.
func (e *HTMLExtractor) ExtractURL(ctx context.Context, pageURL string) ([]Chunk, error) {
	resp, err := e.http.R().SetContext(ctx).Get(pageURL)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", pageURL, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetch %s: unexpected status %s", pageURL, resp.Status())
	}
	e.logger.Debug("fetched url", "url", pageURL, "bytes", len(resp.Body()))
	return e.Extract(string(resp.Body()), "url:"+pageURL), nil
}

// extractArticle runs readability over the document and splits the article
// text into cleaned segments longer than minSegmentLen.
func (e *HTMLExtractor) extractArticle(rawHTML string) ([]string, error) {
	article, err := readability.FromReader(strings.NewReader(rawHTML), &url.URL{})
	if err != nil {
		return nil, err
	}

	var segments []string
	for _, block := range strings.Split(article.TextContent, "\n") {
		cleaned := chunker.Clean(block)
		if len(cleaned) > minSegmentLen {
			segments = append(segments, cleaned)
		}
	}
	return segments, nil
}

// extractDOM parses the document, strips script and style subtrees, and
// collects the body text, the title and any substantial headings.
func (e *HTMLExtractor) extractDOM(rawHTML string) ([]string, error) {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return nil, err
	}

	var segments []string

	if body := chunker.Clean(collectText(doc)); len(body) > minBodyLen {
		segments = append(segments, body)
	}

	if title := chunker.Clean(findTitle(doc)); title != "" {
		segments = append(segments, "Title: "+title)
	}

	for _, heading := range findHeadings(doc) {
		if cleaned := chunker.Clean(heading); len(cleaned) > minHeadingLen {
			segments = append(segments, "Heading: "+cleaned)
		}
	}

	return segments, nil
}

// fallback re-parses the document and chunks whatever text it holds. An
// empty result here is final.
func (e *HTMLExtractor) fallback(rawHTML, source string) []Chunk {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		e.logger.Warn("fallback parse failed", "source", source, "error", err)
		return nil
	}

	cleaned := chunker.Clean(collectText(doc))
	if cleaned == "" {
		e.logger.Warn("fallback extraction found no text", "source", source)
		return nil
	}

	return e.wrap(e.chunker.Chunk(cleaned), source, ContentTypeHTMLFallback, MethodFallback)
}

// wrap attaches ordered metadata to raw chunk texts.
func (e *HTMLExtractor) wrap(texts []string, source string, ct ContentType, method ExtractionMethod) []Chunk {
	chunks := make([]Chunk, 0, len(texts))
	for i, text := range texts {
		chunks = append(chunks, Chunk{
			Text: text,
			Metadata: Metadata{
				Source:           source,
				ChunkID:          i,
				ContentType:      ct,
				ChunkSize:        len(text),
				ExtractionMethod: method,
			},
		})
	}
	return chunks
}
