package pipeline

import (
	"fmt"
	"strings"
	"time"

	"github.com/bull/ragserver/internal/extract"
)

// RunStatistics accumulates counters over one processing run. A fresh value
// is created at the start of each top-level run and returned when it
// completes; it is never shared across runs.
type RunStatistics struct {
	FilesProcessed     int
	URLsProcessed      int
	ChunksProcessed    int
	TotalTextLength    int
	Errors             int
	Elapsed            time.Duration
	ByContentType      map[extract.ContentType]int
	ByExtractionMethod map[extract.ExtractionMethod]int
}

func newRunStatistics() *RunStatistics {
	return &RunStatistics{
		ByContentType:      make(map[extract.ContentType]int),
		ByExtractionMethod: make(map[extract.ExtractionMethod]int),
	}
}

// recordChunk counts one successfully embedded and persisted chunk.
func (s *RunStatistics) recordChunk(meta extract.Metadata, textLen int) {
	s.ChunksProcessed++
	s.TotalTextLength += textLen
	s.ByContentType[meta.ContentType]++
	if meta.ExtractionMethod != "" {
		s.ByExtractionMethod[meta.ExtractionMethod]++
	}
}

// Summary renders the end-of-run report.
func (s *RunStatistics) Summary() string {
	var b strings.Builder
	line := strings.Repeat("=", 60)

	fmt.Fprintln(&b, line)
	fmt.Fprintln(&b, "CONTENT PROCESSING STATISTICS")
	fmt.Fprintln(&b, line)
	fmt.Fprintf(&b, "Files processed:   %d\n", s.FilesProcessed)
	fmt.Fprintf(&b, "URLs processed:    %d\n", s.URLsProcessed)
	fmt.Fprintf(&b, "Chunks processed:  %d\n", s.ChunksProcessed)
	fmt.Fprintf(&b, "Total text length: %d characters\n", s.TotalTextLength)
	fmt.Fprintf(&b, "Errors:            %d\n", s.Errors)
	fmt.Fprintf(&b, "Processing time:   %s\n", s.Elapsed.Round(time.Millisecond))

	if s.ChunksProcessed > 0 {
		fmt.Fprintf(&b, "Average chunk size: %d characters\n", s.TotalTextLength/s.ChunksProcessed)
	}

	if len(s.ByContentType) > 0 {
		fmt.Fprintln(&b, "\nContent type breakdown:")
		for _, ct := range []extract.ContentType{
			extract.ContentTypeText,
			extract.ContentTypeHTML,
			extract.ContentTypeHTMLFallback,
			extract.ContentTypePDF,
		} {
			if n := s.ByContentType[ct]; n > 0 {
				fmt.Fprintf(&b, "  %-14s %d\n", string(ct)+":", n)
			}
		}
	}

	if len(s.ByExtractionMethod) > 0 {
		fmt.Fprintln(&b, "\nExtraction method breakdown:")
		for _, m := range []extract.ExtractionMethod{extract.MethodCombined, extract.MethodFallback} {
			if n := s.ByExtractionMethod[m]; n > 0 {
				fmt.Fprintf(&b, "  %-10s %d\n", string(m)+":", n)
			}
		}
	}

	if s.Errors > 0 {
		fmt.Fprintf(&b, "\nWARNING: %d errors occurred during processing\n", s.Errors)
	} else {
		fmt.Fprintln(&b, "\nAll content processed without errors")
	}
	fmt.Fprint(&b, line)
	return b.String()
}
