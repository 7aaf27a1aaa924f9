package manifest

import (
	"strings"
	"testing"

	"github.com/antchfx/xmlquery"
)

const opfFixture = `<?xml version="1.0" encoding="utf-8"?>
<package xmlns="http://www.idpf.org/2007/opf" xmlns:dc="http://purl.org/dc/elements/1.1/" version="3.0" unique-identifier="uid">
	<metadata>
		<dc:identifier id="uid">url:https://standardebooks.org/ebooks/some-author/some-book</dc:identifier>
		<dc:title>Some Book</dc:title>
		<dc:language>en-GB</dc:language>
	</metadata>
	<manifest>
		<item id="toc.xhtml" href="toc.xhtml" media-type="application/xhtml+xml" properties="nav"/>
		<item id="titlepage.xhtml" href="text/titlepage.xhtml" media-type="application/xhtml+xml"/>
	</manifest>
	<spine>
		<itemref idref="titlepage.xhtml"/>
	</spine>
</package>
`

func chapterItems(t *testing.T, path string) ([]*xmlquery.Node, []*xmlquery.Node) {
	t.Helper()
	doc := parseResult(t, path)
	var items, refs []*xmlquery.Node
	for _, item := range xmlquery.Find(doc, "//item") {
		if strings.HasPrefix(attrValue(item, "id"), "chapter-") {
			items = append(items, item)
		}
	}
	for _, ref := range xmlquery.Find(doc, "//itemref") {
		if strings.HasPrefix(attrValue(ref, "idref"), "chapter-") {
			refs = append(refs, ref)
		}
	}
	return items, refs
}

func TestUpdateOPF_AddsChapters(t *testing.T) {
	path := writeFixture(t, "content.opf", opfFixture)

	if err := UpdateOPF(path, "en-US", []string{"Fiction", "Romance"}, 3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	items, refs := chapterItems(t, path)
	if len(items) != 3 {
		t.Fatalf("expected 3 manifest items, got %d", len(items))
	}
	if len(refs) != 3 {
		t.Fatalf("expected 3 spine references, got %d", len(refs))
	}

	first := items[0]
	if got := attrValue(first, "href"); got != "text/chapter-1.xhtml" {
		t.Errorf("expected href %q, got %q", "text/chapter-1.xhtml", got)
	}
	if got := attrValue(first, "media-type"); got != "application/xhtml+xml" {
		t.Errorf("expected media-type %q, got %q", "application/xhtml+xml", got)
	}

	doc := parseResult(t, path)
	lang := xmlquery.FindOne(doc, "//*[local-name()='language']")
	if lang == nil || lang.InnerText() != "en-US" {
		t.Errorf("expected language en-US, got %v", lang)
	}

	subjects := xmlquery.Find(doc, "//*[local-name()='subject']")
	if len(subjects) != 2 {
		t.Fatalf("expected 2 subjects, got %d", len(subjects))
	}
	if subjects[0].InnerText() != "Fiction" {
		t.Errorf("expected subject %q, got %q", "Fiction", subjects[0].InnerText())
	}
}

func TestUpdateOPF_Idempotent(t *testing.T) {
	path := writeFixture(t, "content.opf", opfFixture)

	if err := UpdateOPF(path, "en-US", nil, 2); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := UpdateOPF(path, "en-US", nil, 2); err != nil {
		t.Fatalf("second run: %v", err)
	}

	items, refs := chapterItems(t, path)
	if len(items) != 2 {
		t.Errorf("expected 2 manifest items after re-run, got %d", len(items))
	}
	if len(refs) != 2 {
		t.Errorf("expected 2 spine references after re-run, got %d", len(refs))
	}
}

func TestUpdateOPF_PreservesExistingEntries(t *testing.T) {
	path := writeFixture(t, "content.opf", opfFixture)

	if err := UpdateOPF(path, "en-US", nil, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	doc := parseResult(t, path)
	if xmlquery.FindOne(doc, "//item[@id='titlepage.xhtml']") == nil {
		t.Error("pre-existing manifest item lost")
	}
	if xmlquery.FindOne(doc, "//itemref[@idref='titlepage.xhtml']") == nil {
		t.Error("pre-existing spine reference lost")
	}
	if xmlquery.FindOne(doc, "//*[local-name()='title']") == nil {
		t.Error("title metadata lost")
	}
}

func TestUpdateOPF_MissingSpineReported(t *testing.T) {
	path := writeFixture(t, "content.opf", `<?xml version="1.0"?><package><metadata><language>en</language></metadata><manifest/></package>`)

	err := UpdateOPF(path, "en-US", nil, 1)
	if err == nil {
		t.Fatal("expected error for missing spine")
	}
	if !strings.Contains(err.Error(), "spine") {
		t.Errorf("error does not name the missing element: %v", err)
	}
}

func TestUpdateOPF_MissingLanguageReported(t *testing.T) {
	path := writeFixture(t, "content.opf", `<?xml version="1.0"?><package><metadata/><manifest/><spine/></package>`)

	err := UpdateOPF(path, "en-US", nil, 1)
	if err == nil {
		t.Fatal("expected error for missing language element")
	}
	if !strings.Contains(err.Error(), "language") {
		t.Errorf("error does not name the missing element: %v", err)
	}
}
