package segment

import (
	"log/slog"
	"strings"

	"golang.org/x/net/html"

	"github.com/dgallion1/bookpress/internal/book"
)

// HTMLSegmenter carves chapters out of a sanitized HTML tree.
type HTMLSegmenter struct {
	bookTitle string
	log       *slog.Logger
}

func NewHTML(bookTitle string, log *slog.Logger) *HTMLSegmenter {
	return &HTMLSegmenter{bookTitle: bookTitle, log: log}
}

// Segment returns the ordered chapter sequence for the document body.
// Zero boundary candidates is not an error: the whole body becomes a
// single "Chapter 1".
func (s *HTMLSegmenter) Segment(body *html.Node) []book.Chapter {
	if body == nil {
		return []book.Chapter{{Title: "Chapter 1"}}
	}

	candidates := collectCandidates(body)
	if len(candidates) == 0 {
		s.log.Warn("no chapter boundaries detected, treating document as a single chapter")
		return []book.Chapter{{Title: "Chapter 1", Content: innerHTML(body)}}
	}

	// A first candidate that is really the title page seeds the leading
	// chapter's title instead of opening a chapter of its own.
	title := "Introduction"
	first := strings.TrimSpace(textContent(candidates[0]))
	switch strings.ToLower(first) {
	case "title page", "title", strings.ToLower(s.bookTitle):
		title = first
		candidates = candidates[1:]
	}

	if len(candidates) == 0 {
		return []book.Chapter{{Title: CanonicalTitle(title), Content: innerHTML(body)}}
	}

	var chapters []book.Chapter
	isCandidate := make(map[*html.Node]bool, len(candidates))
	for _, c := range candidates {
		isCandidate[c] = true
	}

	// Element siblings preceding the first boundary form a synthetic
	// leading chapter when present.
	if lead := s.precedingContent(candidates[0], isCandidate); lead != "" {
		chapters = append(chapters, book.Chapter{Title: CanonicalTitle(title), Content: lead})
	}

	for i, marker := range candidates {
		var stop *html.Node
		if i+1 < len(candidates) {
			stop = candidates[i+1]
		}
		chapters = append(chapters, book.Chapter{
			Title:   CanonicalTitle(textContent(marker)),
			Content: s.siblingContent(marker, stop, i+1),
		})
	}

	s.log.Info("identified chapters", "count", len(chapters))
	return chapters
}

// siblingContent collects the element siblings between a boundary marker
// (exclusive) and the next marker (exclusive, nil meaning end of parent).
// Bare text siblings are not part of chapter content; non-blank ones are
// logged so lossy segmentation is visible in verbose output.
func (s *HTMLSegmenter) siblingContent(marker, stop *html.Node, index int) string {
	var parts []string
	for n := marker.NextSibling; n != nil && n != stop; n = n.NextSibling {
		switch n.Type {
		case html.ElementNode:
			parts = append(parts, renderNode(n))
		case html.TextNode:
			if t := strings.TrimSpace(n.Data); t != "" {
				s.log.Debug("dropping bare text between chapter boundaries",
					"chapter", index, "text", truncate(t, 60))
			}
		}
	}
	return strings.Join(parts, "")
}

func (s *HTMLSegmenter) precedingContent(marker *html.Node, isCandidate map[*html.Node]bool) string {
	if marker.Parent == nil {
		return ""
	}
	var parts []string
	for n := marker.Parent.FirstChild; n != nil && n != marker; n = n.NextSibling {
		if n.Type == html.ElementNode && !isCandidate[n] {
			parts = append(parts, renderNode(n))
		}
	}
	return strings.Join(parts, "")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
