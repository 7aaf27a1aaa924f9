// Package manifest rewrites the navigation document (toc.xhtml) and the
// package document (content.opf) of a Standard Ebooks project in place,
// preserving all unrelated content.
package manifest

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"os"
	"strings"

	"github.com/antchfx/xmlquery"
)

func parseFile(path string) (*xmlquery.Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	doc, err := xmlquery.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return doc, nil
}

func writeFile(path string, doc *xmlquery.Node) error {
	out := doc.OutputXML(true)
	if !strings.HasPrefix(out, "<?xml") {
		out = `<?xml version="1.0" encoding="utf-8"?>` + "\n" + out
	}
	if err := os.WriteFile(path, []byte(out), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// attrValue returns the value of the first attribute with the given local
// name, ignoring any namespace prefix.
func attrValue(n *xmlquery.Node, local string) string {
	for _, a := range n.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

func newElement(name, prefix string) *xmlquery.Node {
	return &xmlquery.Node{
		Type:   xmlquery.ElementNode,
		Data:   name,
		Prefix: prefix,
	}
}

func addAttr(n *xmlquery.Node, key, value string) {
	n.Attr = append(n.Attr, xmlquery.Attr{
		Name:  xml.Name{Local: key},
		Value: value,
	})
}

func addText(n *xmlquery.Node, text string) {
	xmlquery.AddChild(n, &xmlquery.Node{
		Type: xmlquery.TextNode,
		Data: text,
	})
}

// setText replaces the text content of an element.
func setText(n *xmlquery.Node, text string) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.TextNode {
			c.Data = text
			return
		}
	}
	addText(n, text)
}

// removeChildren detaches every child of n.
func removeChildren(n *xmlquery.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		xmlquery.RemoveFromTree(c)
		c = next
	}
}
