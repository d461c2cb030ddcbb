package extract

import (
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"go.abhg.dev/goldmark/toc"
)

// Section is a heading-delimited span of a markdown document. Title is the
// heading hierarchy ("Installation > Prerequisites") and Body the raw
// section text including the heading line.
type Section struct {
	Title string
	Body  string
}

// Text returns the section with its heading hierarchy prepended, the form
// handed to the chunker so retrieval keeps section context.
func (s Section) Text() string {
	if s.Title == "" {
		return s.Body
	}
	return s.Title + "\n\n" + s.Body
}

var markdownParser = goldmark.New(
	goldmark.WithParserOptions(parser.WithAutoHeadingID()),
)

// MarkdownSections splits a markdown document at level 1 and 2 headings.
// Documents without headings come back as a single untitled section.
func MarkdownSections(source []byte) ([]Section, error) {
	doc := markdownParser.Parser().Parse(text.NewReader(source))

	tree, err := toc.Inspect(doc, source,
		toc.MinDepth(1),
		toc.MaxDepth(2),
		toc.Compact(true),
	)
	if err != nil {
		return nil, fmt.Errorf("inspect headings: %w", err)
	}

	if len(tree.Items) == 0 {
		return []Section{{Body: strings.TrimSpace(string(source))}}, nil
	}

	var sections []Section
	appendSections(doc, source, tree.Items, nil, &sections)
	return sections, nil
}

// appendSections walks the heading tree depth-first, slicing the source
// between each heading and the next one at the same or a shallower level.
func appendSections(doc ast.Node, source []byte, items toc.Items, ancestors []string, sections *[]Section) {
	for i, item := range items {
		titlePath := append(ancestors, string(item.Title))

		heading := headingByID(doc, string(item.ID))
		if heading == nil {
			continue
		}

		start := heading.Lines().At(0)
		var end text.Segment
		if i+1 < len(items) {
			if next := headingByID(doc, string(items[i+1].ID)); next != nil {
				end = next.Lines().At(0)
			}
		} else {
			end = nextBoundary(doc, heading, heading.(*ast.Heading).Level)
		}

		*sections = append(*sections, Section{
			Title: strings.Join(titlePath, " > "),
			Body:  sliceSection(source, start, end),
		})

		if len(item.Items) > 0 {
			appendSections(doc, source, item.Items, titlePath, sections)
		}
	}
}

// headingByID locates the heading node carrying the given auto-generated id.
func headingByID(root ast.Node, id string) ast.Node {
	var found ast.Node
	ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering && n.Kind() == ast.KindHeading {
			if attr, ok := n.AttributeString("id"); ok {
				if b, ok := attr.([]byte); ok && string(b) == id {
					found = n
					return ast.WalkStop, nil
				}
			}
		}
		return ast.WalkContinue, nil
	})
	return found
}

// nextBoundary finds the first heading after current at the same or a
// shallower level. A zero segment means the section runs to end of file.
func nextBoundary(root, current ast.Node, level int) text.Segment {
	var boundary ast.Node
	passed := false
	ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering || n.Kind() != ast.KindHeading {
			return ast.WalkContinue, nil
		}
		if !passed {
			if n == current {
				passed = true
			}
			return ast.WalkContinue, nil
		}
		if n.(*ast.Heading).Level <= level {
			boundary = n
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})
	if boundary != nil {
		return boundary.Lines().At(0)
	}
	return text.Segment{}
}

// sliceSection extracts the source between two heading line segments.
func sliceSection(source []byte, start, end text.Segment) string {
	if end.Start == 0 && end.Stop == 0 {
		return strings.TrimSpace(string(source[start.Start:]))
	}
	return strings.TrimSpace(string(source[start.Start:end.Start]))
}
