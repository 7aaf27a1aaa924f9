package segment

import (
	"errors"
	"strings"
	"testing"
)

func TestMarkdownSegmenter_HeadingSplit(t *testing.T) {
	input := `# My Book

Front matter that belongs to no chapter.

## Chapter One

First chapter text.

More of the first chapter.

## Chapter Two
Second chapter text without a trailing newline`

	chapters, err := NewMarkdown().Segment([]byte(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chapters) != 2 {
		t.Fatalf("expected 2 chapters, got %d", len(chapters))
	}

	if chapters[0].Title != "Chapter One" {
		t.Errorf("expected title %q, got %q", "Chapter One", chapters[0].Title)
	}
	for _, want := range []string{"First chapter text.", "More of the first chapter."} {
		if !strings.Contains(chapters[0].Content, want) {
			t.Errorf("expected chapter 1 content to contain %q, got %q", want, chapters[0].Content)
		}
	}
	if strings.Contains(chapters[0].Content, "Second chapter") {
		t.Error("chapter 1 content bleeds into chapter 2")
	}
	if strings.Contains(chapters[0].Content, "Front matter") {
		t.Error("chapter 1 content includes pre-heading front matter")
	}

	// The unterminated final line still belongs to the last chapter.
	if !strings.Contains(chapters[1].Content, "Second chapter text without a trailing newline") {
		t.Errorf("expected trailing line in chapter 2, got %q", chapters[1].Content)
	}
}

func TestMarkdownSegmenter_ContentIsHTMLFragment(t *testing.T) {
	input := "## Only Chapter\n\nA paragraph with *emphasis*.\n"

	chapters, err := NewMarkdown().Segment([]byte(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chapters) != 1 {
		t.Fatalf("expected 1 chapter, got %d", len(chapters))
	}
	if !strings.Contains(chapters[0].Content, "<p>") {
		t.Errorf("expected HTML paragraph in content, got %q", chapters[0].Content)
	}
	if !strings.Contains(chapters[0].Content, "<em>emphasis</em>") {
		t.Errorf("expected emphasis markup, got %q", chapters[0].Content)
	}
}

func TestMarkdownSegmenter_TextlessHeadingOpensChapter(t *testing.T) {
	input := "## Chapter One\n\nFirst text.\n\n##\n\nSecond text.\n"

	chapters, err := NewMarkdown().Segment([]byte(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chapters) != 2 {
		t.Fatalf("expected 2 chapters, got %d", len(chapters))
	}
	if chapters[1].Title != "" {
		t.Errorf("expected empty title for bare heading, got %q", chapters[1].Title)
	}
	if strings.Contains(chapters[0].Content, "Second text.") {
		t.Error("content after the bare heading merged into the previous chapter")
	}
	if !strings.Contains(chapters[1].Content, "Second text.") {
		t.Errorf("expected second chapter content, got %q", chapters[1].Content)
	}
}

func TestMarkdownSegmenter_NoHeadings(t *testing.T) {
	input := "# Top Heading\n\nOnly level-1 and plain text here.\n"

	_, err := NewMarkdown().Segment([]byte(input))
	if !errors.Is(err, ErrNoChapters) {
		t.Fatalf("expected ErrNoChapters, got %v", err)
	}
}

func TestMarkdownSegmenter_RomanTitleCanonicalized(t *testing.T) {
	input := "## chapter iv\n\nText.\n"

	chapters, err := NewMarkdown().Segment([]byte(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if chapters[0].Title != "Chapter IV" {
		t.Errorf("expected %q, got %q", "Chapter IV", chapters[0].Title)
	}
}
