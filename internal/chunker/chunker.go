// Package chunker splits raw text into overlapping chunks suitable for
// embedding, preferring sentence boundaries over hard cuts.
package chunker

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// DefaultChunkSize is the maximum chunk length in bytes.
	DefaultChunkSize = 1000

	// DefaultOverlap is how many bytes consecutive chunks share.
	DefaultOverlap = 200

	// boundaryRatio is how far into the window a sentence marker must sit
	// before it is accepted as the cut point. Markers earlier than this
	// would produce pathologically short chunks.
	boundaryRatio = 0.7
)

// sentenceMarkers are the boundaries the chunker prefers to cut at.
var sentenceMarkers = []string{". ", "! ", "? ", "\n\n"}

// Chunker produces overlapping text chunks of bounded size.
type Chunker struct {
	chunkSize int
	overlap   int
}

// New creates a Chunker. chunkSize must be positive and overlap must be
// non-negative and strictly smaller than chunkSize.
func New(chunkSize, overlap int) (*Chunker, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunker: chunk size must be greater than zero, got %d", chunkSize)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("chunker: overlap cannot be negative, got %d", overlap)
	}
	if overlap >= chunkSize {
		return nil, fmt.Errorf("chunker: overlap %d must be smaller than chunk size %d", overlap, chunkSize)
	}
	return &Chunker{chunkSize: chunkSize, overlap: overlap}, nil
}

// ChunkSize returns the configured maximum chunk length.
func (c *Chunker) ChunkSize() int { return c.chunkSize }

// Overlap returns the configured overlap between consecutive chunks.
func (c *Chunker) Overlap() int { return c.overlap }

// Chunk splits text into overlapping chunks. Each cut is placed at the
// rightmost sentence marker inside the window, but only when the marker sits
// past 70% of the window; otherwise the chunk is cut at the raw size
// boundary. Empty input yields no chunks, and input at or under the chunk
// size is returned whole.
func (c *Chunker) Chunk(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if len(text) <= c.chunkSize {
		return []string{strings.TrimSpace(text)}
	}

	var chunks []string
	start := 0
	for start < len(text) {
		end := start + c.chunkSize
		if end >= len(text) {
			// Once the tail is emitted nothing unseen remains, so the
			// cursor never re-enters it.
			if chunk := strings.TrimSpace(text[start:]); chunk != "" {
				chunks = append(chunks, chunk)
			}
			break
		}

		cut := end
		if b := c.findBoundary(text, start, end); b > 0 {
			end = b
			cut = b
		} else {
			// A raw cut must not split a multi-byte rune.
			cut = alignRune(text, cut)
		}

		if chunk := strings.TrimSpace(text[start:cut]); chunk != "" {
			chunks = append(chunks, chunk)
		}

		next := alignRune(text, end-c.overlap)
		// The cursor must strictly advance or a large overlap against a
		// short sentence-bounded step would loop forever.
		if next <= start {
			next = end
		}
		start = next
	}
	return chunks
}

// alignRune backs i off to the start of the rune it points into. Indexes
// at or past the end of text are returned unchanged.
func alignRune(text string, i int) int {
	for i > 0 && i < len(text) && !utf8.RuneStart(text[i]) {
		i--
	}
	return i
}

// findBoundary returns the position just past the rightmost qualifying
// sentence marker in text[start:end], or 0 when no marker qualifies.
// A marker qualifies only when it sits past boundaryRatio of the window.
func (c *Chunker) findBoundary(text string, start, end int) int {
	window := text[start:end]
	threshold := start + int(float64(c.chunkSize)*boundaryRatio)

	best := -1
	for _, marker := range sentenceMarkers {
		if idx := strings.LastIndex(window, marker); idx >= 0 && start+idx > best {
			best = start + idx
		}
	}
	if best > threshold {
		return best + 1
	}
	return 0
}

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	disallowed    = regexp.MustCompile(`[^\p{L}\p{N}_\s.,!?;:\-()\[\]{}]`)
)

// Clean normalizes extracted text: runs of whitespace collapse to a single
// space, characters outside word characters, whitespace and common
// punctuation are dropped, and the ends are trimmed.
func Clean(text string) string {
	if text == "" {
		return ""
	}
	text = whitespaceRun.ReplaceAllString(text, " ")
	text = disallowed.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}
