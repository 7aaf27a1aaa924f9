package segment

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/dgallion1/bookpress/internal/book"
)

// ErrNoChapters is returned when a markdown source contains no level-2
// headings. Unlike the HTML path there is no single-chapter fallback: the
// marker is the authoritative boundary, so its absence is an input error.
var ErrNoChapters = errors.New("no chapters found")

// MarkdownSegmenter splits a markdown document on level-2 headings. Each
// heading's text is the chapter title and everything up to the next level-2
// heading (or end of input) is the chapter body, converted to an HTML
// fragment.
type MarkdownSegmenter struct {
	md goldmark.Markdown
}

func NewMarkdown() *MarkdownSegmenter {
	return &MarkdownSegmenter{md: goldmark.New()}
}

func (s *MarkdownSegmenter) Segment(src []byte) ([]book.Chapter, error) {
	doc := s.md.Parser().Parse(text.NewReader(src))

	// Group the top-level blocks between level-2 headings. A heading with
	// no text still opens a chapter; its empty title is synthesized
	// downstream. Blocks before the first heading belong to no chapter.
	type group struct {
		title string
		nodes []ast.Node
	}
	var groups []group

	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if h, ok := n.(*ast.Heading); ok && h.Level == 2 {
			groups = append(groups, group{
				title: strings.TrimSpace(string(h.Text(src))),
			})
			continue
		}
		if len(groups) == 0 {
			continue
		}
		g := &groups[len(groups)-1]
		g.nodes = append(g.nodes, n)
	}

	if len(groups) == 0 {
		return nil, ErrNoChapters
	}

	chapters := make([]book.Chapter, 0, len(groups))
	for i, g := range groups {
		var buf bytes.Buffer
		for _, n := range g.nodes {
			if err := s.md.Renderer().Render(&buf, src, n); err != nil {
				return nil, fmt.Errorf("render chapter %d: %w", i+1, err)
			}
		}
		chapters = append(chapters, book.Chapter{
			Title:   CanonicalTitle(g.title),
			Content: buf.String(),
		})
	}
	return chapters, nil
}
