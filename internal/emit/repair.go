package emit

import (
	"bytes"
	"encoding/xml"
	"io"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// checkWellFormed runs a strict XML token scan over the document. Entity
// expansion is disabled so only the five predefined entities and numeric
// references pass.
func checkWellFormed(doc string) error {
	dec := xml.NewDecoder(strings.NewReader(doc))
	dec.Entity = map[string]string{}
	for {
		_, err := dec.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// HTML serialization leaves void elements unclosed (<br>, <img ...>), which
// strict XML rejects. Already self-closed forms are left intact.
var voidElementPattern = regexp.MustCompile(
	`(?i)<(area|base|br|col|embed|hr|img|input|link|meta|param|source|track|wbr)(\b[^>]*?)\s*/?>`)

func selfCloseVoidElements(s string) string {
	return voidElementPattern.ReplaceAllString(s, "<$1$2/>")
}

// repairFragment rewrites a fragment that failed strict verification:
// reparse and reserialize to normalize nesting (dropping comments, whose
// bodies may contain "--"), convert HTML named entities to numeric
// references, escape bare ampersands, and strip characters outside the XML
// character ranges.
func repairFragment(fragment string) string {
	fragment = reserializeWithoutComments(fragment)
	fragment = convertNamedEntities(fragment)
	fragment = escapeBareAmpersands(fragment)
	fragment = stripInvalidXMLChars(fragment)
	return selfCloseVoidElements(fragment)
}

func reserializeWithoutComments(fragment string) string {
	nodes, err := parseFragment(fragment)
	if err != nil {
		return fragment
	}
	var buf bytes.Buffer
	for _, n := range nodes {
		renderWithoutComments(&buf, n)
	}
	return buf.String()
}

func renderWithoutComments(buf *bytes.Buffer, n *html.Node) {
	if n.Type == html.CommentNode {
		return
	}
	var doomed []*html.Node
	var find func(*html.Node)
	find = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.CommentNode {
				doomed = append(doomed, c)
				continue
			}
			find(c)
		}
	}
	find(n)
	for _, d := range doomed {
		d.Parent.RemoveChild(d)
	}
	html.Render(buf, n)
}

// entityToNumeric maps HTML named entities that strict XML does not know
// to numeric character references. Matching is case-sensitive: the
// capitalized accent entities name different characters than their
// lowercase forms, so each gets its own entry.
var entityToNumeric = map[string]string{
	"nbsp": "&#160;", "mdash": "&#8212;", "ndash": "&#8211;",
	"hellip": "&#8230;",
	"lsquo":  "&#8216;", "rsquo": "&#8217;",
	"ldquo": "&#8220;", "rdquo": "&#8221;",
	"copy": "&#169;", "reg": "&#174;",
	"sect": "&#167;", "deg": "&#176;",
	"laquo": "&#171;", "raquo": "&#187;",
	"aelig": "&#230;", "AElig": "&#198;",
	"oelig": "&#339;", "OElig": "&#338;",
	"eacute": "&#233;", "Eacute": "&#201;",
	"egrave": "&#232;", "Egrave": "&#200;",
	"ecirc": "&#234;", "Ecirc": "&#202;",
	"agrave": "&#224;", "Agrave": "&#192;",
	"ccedil": "&#231;", "Ccedil": "&#199;",
	"ouml": "&#246;", "Ouml": "&#214;",
}

var namedEntityPattern = regexp.MustCompile(`&([a-zA-Z]+);`)

// convertNamedEntities rewrites known named references to numeric ones.
// The five predefined XML entities are absent from the table and pass
// through untouched, as does anything unrecognized.
func convertNamedEntities(s string) string {
	return namedEntityPattern.ReplaceAllStringFunc(s, func(m string) string {
		if num, ok := entityToNumeric[m[1:len(m)-1]]; ok {
			return num
		}
		return m
	})
}

// entityRefPattern matches a recognized entity reference anchored at an
// ampersand: predefined named, decimal, or hexadecimal.
var entityRefPattern = regexp.MustCompile(`^&(amp|lt|gt|apos|quot|#[0-9]+|#x[0-9a-fA-F]+);`)

func escapeBareAmpersands(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '&' && !entityRefPattern.MatchString(s[i:]) {
			b.WriteString("&amp;")
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// stripInvalidXMLChars removes characters outside the ranges XML 1.0
// permits: #x9, #xA, #xD, #x20-#xD7FF, #xE000-#xFFFD, #x10000-#x10FFFF.
func stripInvalidXMLChars(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == 0x9 || r == 0xA || r == 0xD:
			return r
		case r >= 0x20 && r <= 0xD7FF:
			return r
		case r >= 0xE000 && r <= 0xFFFD:
			return r
		case r >= 0x10000 && r <= 0x10FFFF:
			return r
		}
		return -1
	}, s)
}
