// Package emit renders chapters as complete, well-formed Standard Ebooks
// XHTML documents. Malformed fragments are repaired where possible and
// degraded to an error notice where not, so one bad chapter never blocks
// the rest.
package emit

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/dgallion1/bookpress/internal/book"
)

// Status classifies how a chapter document reached well-formedness.
type Status int

const (
	// WellFormed means the assembled document was valid as-is.
	WellFormed Status = iota
	// RepairedWithLoss means the fragment needed rewriting (entity
	// escaping, invalid-character stripping) to become valid.
	RepairedWithLoss
	// Unrecoverable means repair failed and the chapter body was
	// replaced with an error notice.
	Unrecoverable
)

func (s Status) String() string {
	switch s {
	case WellFormed:
		return "well-formed"
	case RepairedWithLoss:
		return "repaired"
	case Unrecoverable:
		return "unrecoverable"
	}
	return "unknown"
}

// Result is one emitted chapter document.
type Result struct {
	Filename string
	Title    string
	Status   Status
	Document string
}

const xhtmlTemplate = `<?xml version="1.0" encoding="utf-8"?>
<html xmlns="http://www.w3.org/1999/xhtml" xmlns:epub="http://www.idpf.org/2007/ops" epub:prefix="z3998: http://www.daisy.org/z3998/2012/vocab/structure/, se: https://standardebooks.org/vocab/1.0" xml:lang="%s">
	<head>
		<title>%s</title>
		<link href="../css/core.css" rel="stylesheet" type="text/css"/>
		<link href="../css/local.css" rel="stylesheet" type="text/css"/>
	</head>
	<body epub:type="bodymatter z3998:fiction">
		<section id="%s" epub:type="chapter">
			<h2 epub:type="title">%s</h2>
			%s
		</section>
	</body>
</html>
`

const fallbackNotice = `<p>[This chapter could not be converted: the source markup was malformed beyond repair.]</p>`

// Emitter renders chapters into the fixed XHTML skeleton.
type Emitter struct {
	language string
	log      *slog.Logger
}

func New(language string, log *slog.Logger) *Emitter {
	return &Emitter{language: language, log: log}
}

// Render produces the document for one chapter. index is 1-based and
// matches the chapter's position in the sequence.
func (e *Emitter) Render(ch book.Chapter, index int) Result {
	title := strings.TrimSpace(ch.Title)
	if title == "" {
		title = fmt.Sprintf("Chapter %d", index)
	}

	content := removeRedundantHeading(ch.Content, title)
	content = typography(content)
	content = selfCloseVoidElements(content)

	id := fmt.Sprintf("chapter-%d", index)
	res := Result{
		Filename: id + ".xhtml",
		Title:    title,
	}

	doc := e.assemble(title, id, content)
	if err := checkWellFormed(doc); err == nil {
		res.Status = WellFormed
		res.Document = doc
		return res
	}

	repaired := repairFragment(content)
	doc = e.assemble(title, id, repaired)
	err := checkWellFormed(doc)
	if err == nil {
		e.log.Warn("chapter required repair to become well-formed", "chapter", index)
		res.Status = RepairedWithLoss
		res.Document = doc
		return res
	}

	e.log.Error("chapter content unrecoverable, emitting fallback notice",
		"chapter", index, "error", err)
	res.Status = Unrecoverable
	res.Document = e.assemble(title, id, fallbackNotice)
	return res
}

func (e *Emitter) assemble(title, id, content string) string {
	return fmt.Sprintf(xhtmlTemplate, escapeText(e.language), escapeText(title), id, escapeText(title), content)
}

// WriteAll persists every chapter as text/chapter-{i}.xhtml and returns the
// matching table-of-contents entries in sequence order.
func (e *Emitter) WriteAll(chapters []book.Chapter, textDir string) ([]book.TOCEntry, error) {
	if err := os.MkdirAll(textDir, 0o755); err != nil {
		return nil, fmt.Errorf("create text directory: %w", err)
	}

	entries := make([]book.TOCEntry, 0, len(chapters))
	for i, ch := range chapters {
		res := e.Render(ch, i+1)
		path := filepath.Join(textDir, res.Filename)
		if err := os.WriteFile(path, []byte(res.Document), 0o644); err != nil {
			return nil, fmt.Errorf("write %s: %w", res.Filename, err)
		}
		e.log.Info("created chapter file", "file", res.Filename, "title", res.Title, "status", res.Status.String())
		entries = append(entries, book.TOCEntry{Filename: res.Filename, Title: res.Title})
	}
	return entries, nil
}

// removeRedundantHeading reparses the fragment and drops the first heading
// (h1-h4) whose text equals the resolved title: the skeleton already renders
// the title, so an in-body copy would duplicate it. Reparsing here also
// normalizes nesting before verification.
func removeRedundantHeading(fragment, title string) string {
	nodes, err := parseFragment(fragment)
	if err != nil {
		return fragment
	}

	removed := false
	var buf bytes.Buffer
	for _, n := range nodes {
		// Top-level fragment nodes are detached, so a matching heading
		// is skipped rather than removed from a parent.
		if !removed && n.Type == html.ElementNode && headingMatches(n, title) {
			removed = true
			continue
		}
		if !removed {
			removed = removeNestedHeading(n, title)
		}
		html.Render(&buf, n)
	}
	return buf.String()
}

func removeNestedHeading(root *html.Node, title string) bool {
	for c := root.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type == html.ElementNode && headingMatches(c, title) {
			root.RemoveChild(c)
			return true
		}
		if removeNestedHeading(c, title) {
			return true
		}
		c = next
	}
	return false
}

func headingMatches(n *html.Node, title string) bool {
	switch n.Data {
	case "h1", "h2", "h3", "h4":
		return nodeText(n) == title
	}
	return false
}

func nodeText(n *html.Node) string {
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

func parseFragment(fragment string) ([]*html.Node, error) {
	ctx := &html.Node{
		Type:     html.ElementNode,
		Data:     "body",
		DataAtom: atom.Body,
	}
	return html.ParseFragment(strings.NewReader(fragment), ctx)
}

// typography maps straight quotes to their curly equivalents and double
// hyphens to em dashes. Only text outside tags is touched so attribute
// delimiters survive. Serialized fragments carry quotes as character
// references (&#34;, &#39;), so those forms are recognized too.
func typography(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inTag := false
	var prev byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '<':
			inTag = true
			b.WriteByte(c)
		case c == '>':
			inTag = false
			prev = 0
			b.WriteByte(c)
		case inTag:
			b.WriteByte(c)
		case c == '-' && i+1 < len(s) && s[i+1] == '-':
			b.WriteRune('—')
			prev = c
			i++
		case isDoubleQuote(s[i:]) > 0:
			if opensQuote(prev) {
				b.WriteRune('“')
			} else {
				b.WriteRune('”')
			}
			i += isDoubleQuote(s[i:]) - 1
			prev = '"'
		case isSingleQuote(s[i:]) > 0:
			if opensQuote(prev) {
				b.WriteRune('‘')
			} else {
				b.WriteRune('’')
			}
			i += isSingleQuote(s[i:]) - 1
			prev = '\''
		default:
			b.WriteByte(c)
			prev = c
		}
	}
	return b.String()
}

// isDoubleQuote reports the byte length of a straight double quote token at
// the start of s (literal or character reference), or 0.
func isDoubleQuote(s string) int {
	switch {
	case strings.HasPrefix(s, `"`):
		return 1
	case strings.HasPrefix(s, "&#34;"):
		return 5
	case strings.HasPrefix(s, "&quot;"):
		return 6
	}
	return 0
}

func isSingleQuote(s string) int {
	switch {
	case strings.HasPrefix(s, "'"):
		return 1
	case strings.HasPrefix(s, "&#39;"):
		return 5
	case strings.HasPrefix(s, "&apos;"):
		return 6
	}
	return 0
}

// opensQuote reports whether a quote following prev opens a quotation.
func opensQuote(prev byte) bool {
	switch prev {
	case 0, ' ', '\t', '\n', '\r', '(', '[', '{', '-':
		return true
	}
	return false
}

var textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func escapeText(s string) string {
	return textEscaper.Replace(s)
}
