// Package pipeline runs the full conversion: load, sanitize, segment,
// scaffold, emit, manifest update, toolchain build. Stages execute
// strictly in sequence; each stage's outcome is narrated on the log.
package pipeline

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgallion1/bookpress/internal/book"
	"github.com/dgallion1/bookpress/internal/config"
	"github.com/dgallion1/bookpress/internal/emit"
	"github.com/dgallion1/bookpress/internal/loader"
	"github.com/dgallion1/bookpress/internal/manifest"
	"github.com/dgallion1/bookpress/internal/sanitize"
	"github.com/dgallion1/bookpress/internal/segment"
	"github.com/dgallion1/bookpress/internal/setool"
)

// Converter orchestrates one conversion run.
type Converter struct {
	cfg  config.Config
	tool *setool.Tool
	load *loader.Loader
	log  *slog.Logger

	// stdin/stdout back the manual project-directory prompt and are
	// replaceable in tests.
	stdin  io.Reader
	stdout io.Writer
}

func New(cfg config.Config, tool *setool.Tool, log *slog.Logger) *Converter {
	return &Converter{
		cfg:    cfg,
		tool:   tool,
		load:   loader.New(cfg.HTTPTimeout),
		log:    log,
		stdin:  os.Stdin,
		stdout: os.Stdout,
	}
}

// Run executes the conversion. Load, segmentation, scaffold, and package
// document failures abort; prepare/build/lint failures are reported as
// warnings and the run still completes.
func (c *Converter) Run(ctx context.Context) error {
	c.log.Info("starting conversion",
		"author", c.cfg.Author, "title", c.cfg.Title,
		"type", c.cfg.WorkType, "year", c.cfg.ReleaseYear)

	chapters, err := c.segmentSource(ctx)
	if err != nil {
		return err
	}

	projectDir, err := c.projectDir(ctx)
	if err != nil {
		return err
	}
	c.log.Info("project directory ready", "dir", projectDir)

	emitter := emit.New(c.cfg.Language, c.log)
	textDir := filepath.Join(projectDir, "src", "epub", "text")
	entries, err := emitter.WriteAll(chapters, textDir)
	if err != nil {
		return fmt.Errorf("generate chapter files: %w", err)
	}

	tocPath := filepath.Join(projectDir, "src", "epub", "toc.xhtml")
	if err := manifest.UpdateTOC(tocPath, entries); err != nil {
		c.log.Warn("table of contents not updated", "error", err)
	} else {
		c.log.Info("updated table of contents", "entries", len(entries))
	}

	opfPath := filepath.Join(projectDir, "src", "epub", "content.opf")
	if err := manifest.UpdateOPF(opfPath, c.cfg.Language, c.cfg.Subjects, len(chapters)); err != nil {
		return fmt.Errorf("update package document: %w", err)
	}
	c.log.Info("updated package document", "chapters", len(chapters), "subjects", len(c.cfg.Subjects))

	c.runToolchain(ctx, projectDir)
	c.summarize(projectDir)
	return nil
}

func (c *Converter) segmentSource(ctx context.Context) ([]book.Chapter, error) {
	if c.cfg.MarkdownSource != "" {
		c.log.Info("loading markdown source", "source", c.cfg.MarkdownSource)
		data, err := c.load.Load(ctx, c.cfg.MarkdownSource)
		if err != nil {
			return nil, fmt.Errorf("load source: %w", err)
		}
		chapters, err := segment.NewMarkdown().Segment(data)
		if err != nil {
			return nil, fmt.Errorf("segment markdown: %w", err)
		}
		c.log.Info("identified chapters", "count", len(chapters))
		return chapters, nil
	}

	c.log.Info("loading HTML source", "source", c.cfg.HTMLSource)
	data, err := c.load.Load(ctx, c.cfg.HTMLSource)
	if err != nil {
		return nil, fmt.Errorf("load source: %w", err)
	}
	doc, err := loader.ParseHTML(data)
	if err != nil {
		return nil, fmt.Errorf("parse source: %w", err)
	}

	c.log.Info("removing Project Gutenberg boilerplate")
	cleaned, err := sanitize.Clean(doc)
	if err != nil {
		return nil, fmt.Errorf("sanitize source: %w", err)
	}

	return segment.NewHTML(c.cfg.Title, c.log).Segment(loader.Body(cleaned)), nil
}

// projectDir scaffolds the project, falling back to a manual prompt when
// the directory cannot be detected automatically.
func (c *Converter) projectDir(ctx context.Context) (string, error) {
	dir, err := c.tool.CreateDraft(ctx, c.cfg.Author, c.cfg.Title)
	if err == nil {
		return dir, nil
	}
	c.log.Warn("automatic project directory detection failed", "error", err)

	fmt.Fprint(c.stdout, "Enter the path to the Standard Ebooks project directory: ")
	line, readErr := bufio.NewReader(c.stdin).ReadString('\n')
	if readErr != nil && line == "" {
		return "", fmt.Errorf("create project: %w", err)
	}
	dir = strings.TrimSpace(line)
	if info, statErr := os.Stat(dir); statErr != nil || !info.IsDir() {
		return "", fmt.Errorf("invalid project directory %q", dir)
	}
	abs, absErr := filepath.Abs(dir)
	if absErr != nil {
		return dir, nil
	}
	return abs, nil
}

// runToolchain drives prepare-release, build, and lint. None of these are
// fatal: lint findings in particular are expected follow-up work.
func (c *Converter) runToolchain(ctx context.Context, projectDir string) {
	if err := c.tool.PrepareRelease(ctx, projectDir); err != nil {
		c.log.Warn("prepare-release failed", "error", err)
	}
	if err := c.tool.Build(ctx, projectDir); err != nil {
		c.log.Warn("build failed", "error", err)
	}
	findings, err := c.tool.Lint(ctx, projectDir)
	if err != nil {
		c.log.Warn("lint could not run", "error", err)
	} else if findings != "" {
		c.log.Info("lint findings to review", "findings", findings)
	}
}

func (c *Converter) summarize(projectDir string) {
	c.log.Info("conversion completed", "project", projectDir)
	c.log.Info("remaining manual steps:")
	c.log.Info("1. review and correct any issues reported by 'se lint'")
	c.log.Info("2. add proper cover art")
	c.log.Info("3. complete any missing metadata")
	c.log.Info("4. verify the final EPUB")
}
