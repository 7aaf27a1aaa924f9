// Package sanitize strips Project Gutenberg boilerplate from a loaded HTML
// tree: the legal header/footer banners, navigation chrome marked with the
// pg class/id conventions, and all script/style elements.
package sanitize

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// Banner text is matched over the serialized document so that phrases split
// across inline elements are still caught; the stripped text is then
// reparsed. Absence of any match is a valid case (already-clean input).
var headerPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?is)The Project Gutenberg eBook.*?produced by`),
	regexp.MustCompile(`(?is)Project Gutenberg.*?START OF (THIS|THE) PROJECT GUTENBERG`),
}

var footerPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?is)End of (the )?Project Gutenberg.*`),
	regexp.MustCompile(`(?is)This file should be named.*?gutenberg\.org`),
}

var (
	boilerplateClasses = map[string]bool{"pgheader": true, "pgfooter": true}
	boilerplateIDs     = map[string]bool{"pg-header": true, "pg-footer": true}
)

// Clean returns a new document tree with Gutenberg boilerplate removed.
func Clean(doc *html.Node) (*html.Node, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		return nil, fmt.Errorf("serialize document: %w", err)
	}

	content := buf.String()
	for _, p := range headerPatterns {
		content = p.ReplaceAllString(content, "")
	}
	for _, p := range footerPatterns {
		content = p.ReplaceAllString(content, "")
	}

	// Reparse so that any imbalance introduced by blind substitution is
	// absorbed by the permissive HTML parser.
	cleaned, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("reparse document: %w", err)
	}

	removeBoilerplateElements(cleaned)
	return cleaned, nil
}

func removeBoilerplateElements(n *html.Node) {
	var doomed []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && shouldRemove(n) {
			doomed = append(doomed, n)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)

	for _, d := range doomed {
		if d.Parent != nil {
			d.Parent.RemoveChild(d)
		}
	}
}

func shouldRemove(n *html.Node) bool {
	if n.Data == "script" || n.Data == "style" {
		return true
	}
	for _, a := range n.Attr {
		switch a.Key {
		case "class":
			for _, cls := range strings.Fields(a.Val) {
				if boilerplateClasses[strings.ToLower(cls)] {
					return true
				}
			}
		case "id":
			if boilerplateIDs[strings.ToLower(a.Val)] {
				return true
			}
		}
	}
	return false
}
