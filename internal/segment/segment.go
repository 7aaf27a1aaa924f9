// Package segment partitions a sanitized source document into an ordered
// sequence of chapters. HTML sources are segmented heuristically from
// probable boundary nodes; markdown sources carry explicit heading markers.
package segment

import (
	"bytes"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// Matcher reports whether a node is a plausible chapter boundary. The set
// below trades precision for recall: over-collecting candidates beats
// silently dropping a chapter.
type Matcher func(n *html.Node) bool

func isHeading(n *html.Node) bool {
	switch n.Data {
	case "h1", "h2", "h3":
		return true
	}
	return false
}

func hasChapterClass(n *html.Node) bool {
	return strings.Contains(strings.ToLower(attrValue(n, "class")), "chapter")
}

func hasChapterID(n *html.Node) bool {
	return strings.Contains(strings.ToLower(attrValue(n, "id")), "chapter")
}

var boundaryMatchers = []Matcher{isHeading, hasChapterClass, hasChapterID}

// collectCandidates gathers boundary candidates in a single depth-first
// pass, so the result is already in document order. A node matching more
// than one matcher is collected once.
func collectCandidates(root *html.Node) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			for _, m := range boundaryMatchers {
				if m(n) {
					out = append(out, n)
					break
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return out
}

func attrValue(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.TrimSpace(buf.String())
}

func renderNode(n *html.Node) string {
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		return ""
	}
	return buf.String()
}

// innerHTML serializes the children of n.
func innerHTML(n *html.Node) string {
	var buf bytes.Buffer
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		html.Render(&buf, c)
	}
	return buf.String()
}

var romanChapterPattern = regexp.MustCompile(`(?i)^chapter\s+([ivxlcdm]+)$`)

// CanonicalTitle normalizes "chapter <roman numeral>" titles to
// "Chapter <NUMERAL>" and trims surrounding whitespace.
func CanonicalTitle(title string) string {
	title = strings.TrimSpace(title)
	if m := romanChapterPattern.FindStringSubmatch(title); m != nil {
		return "Chapter " + strings.ToUpper(m[1])
	}
	return title
}
