package manifest

import (
	"fmt"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"
)

var (
	metadataExpr = xpath.MustCompile("//metadata")
	manifestExpr = xpath.MustCompile("//manifest")
	spineExpr    = xpath.MustCompile("//spine")
	// The language element carries a dc: prefix in a real package document;
	// an unprefixed name test would not match it, so select by local name.
	languageExpr = xpath.MustCompile("//*[local-name()='language']")
)

// UpdateOPF rewrites a package document: sets the declared language,
// appends one dc:subject per configured subject, and adds a manifest item
// plus spine reference per chapter. A document without a language element
// is a structural failure, like a missing manifest or spine. Item and
// reference insertion is keyed by id, so re-running against a partially
// populated document adds no duplicates.
func UpdateOPF(path, language string, subjects []string, chapterCount int) error {
	doc, err := parseFile(path)
	if err != nil {
		return err
	}

	lang := xmlquery.QuerySelector(doc, languageExpr)
	if lang == nil {
		return fmt.Errorf("%s: language element not found", path)
	}
	setText(lang, language)

	if len(subjects) > 0 {
		metadata := xmlquery.QuerySelector(doc, metadataExpr)
		if metadata == nil {
			return fmt.Errorf("%s: metadata element not found", path)
		}
		for _, subject := range subjects {
			el := newElement("subject", "dc")
			addText(el, subject)
			xmlquery.AddChild(metadata, el)
		}
	}

	manifest := xmlquery.QuerySelector(doc, manifestExpr)
	spine := xmlquery.QuerySelector(doc, spineExpr)
	if manifest == nil || spine == nil {
		return fmt.Errorf("%s: manifest or spine element not found", path)
	}

	existingItems := childAttrSet(manifest, "item", "id")
	existingRefs := childAttrSet(spine, "itemref", "idref")

	for i := 1; i <= chapterCount; i++ {
		id := fmt.Sprintf("chapter-%d", i)

		if !existingItems[id] {
			item := newElement("item", "")
			addAttr(item, "id", id)
			addAttr(item, "href", fmt.Sprintf("text/chapter-%d.xhtml", i))
			addAttr(item, "media-type", "application/xhtml+xml")
			xmlquery.AddChild(manifest, item)
		}

		if !existingRefs[id] {
			ref := newElement("itemref", "")
			addAttr(ref, "idref", id)
			xmlquery.AddChild(spine, ref)
		}
	}

	return writeFile(path, doc)
}

func childAttrSet(parent *xmlquery.Node, elem, attr string) map[string]bool {
	set := make(map[string]bool)
	for c := parent.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.ElementNode && c.Data == elem {
			if v := attrValue(c, attr); v != "" {
				set[v] = true
			}
		}
	}
	return set
}
