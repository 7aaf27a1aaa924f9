package manifest

import (
	"fmt"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"

	"github.com/dgallion1/bookpress/internal/book"
)

var (
	navExpr = xpath.MustCompile("//nav")
	olExpr  = xpath.MustCompile("descendant::ol")
)

// UpdateTOC rewrites the table-of-contents list in a navigation document.
// The existing ordered list under the nav element with epub:type="toc" is
// cleared (or created if absent) and one entry appended per chapter, in
// reading order. A missing nav element is a structural failure: the
// scaffold is expected to have produced one.
func UpdateTOC(path string, entries []book.TOCEntry) error {
	doc, err := parseFile(path)
	if err != nil {
		return err
	}

	nav := findTOCNav(doc)
	if nav == nil {
		return fmt.Errorf("%s: table-of-contents nav element not found", path)
	}

	ol := xmlquery.QuerySelector(nav, olExpr)
	if ol == nil {
		ol = newElement("ol", "")
		xmlquery.AddChild(nav, ol)
	}
	removeChildren(ol)

	for _, entry := range entries {
		li := newElement("li", "")
		a := newElement("a", "")
		addAttr(a, "href", "text/"+entry.Filename)
		addText(a, entry.Title)
		xmlquery.AddChild(li, a)
		xmlquery.AddChild(ol, li)
	}

	return writeFile(path, doc)
}

func findTOCNav(doc *xmlquery.Node) *xmlquery.Node {
	for _, nav := range xmlquery.QuerySelectorAll(doc, navExpr) {
		if attrValue(nav, "type") == "toc" {
			return nav
		}
	}
	return nil
}
