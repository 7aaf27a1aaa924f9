// Command bookpress converts a Project Gutenberg HTML document or a
// markdown file into a Standard Ebooks project and drives the se toolchain
// to build it.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"github.com/dgallion1/bookpress/internal/config"
	"github.com/dgallion1/bookpress/internal/pipeline"
	"github.com/dgallion1/bookpress/internal/setool"
)

var cli struct {
	Author string `arg:"" help:"Author name, e.g. \"Jane Austen\"."`
	Title  string `arg:"" help:"Book title."`

	HTML     string `help:"Path or URL to the source HTML file." xor:"source" required:""`
	Markdown string `help:"Path to a markdown file with '##' chapter headings." xor:"source" required:""`

	Language string   `default:"en-US" help:"Language code for the ebook."`
	Year     int      `help:"Original publication year."`
	Type     string   `default:"novel" enum:"novel,short-story,novella,anthology,non-fiction" help:"Work type."`
	Subject  []string `help:"Subject tag (repeatable), e.g. --subject Fiction --subject Romance."`

	Verbose bool `short:"v" help:"Enable verbose logging."`
}

func main() {
	kong.Parse(&cli,
		kong.Name("bookpress"),
		kong.Description("Convert Project Gutenberg HTML or markdown to a Standard Ebooks project."))

	logLevel := slog.LevelInfo
	if cli.Verbose {
		logLevel = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(log)

	cfg := config.Config{
		Author:         cli.Author,
		Title:          cli.Title,
		HTMLSource:     cli.HTML,
		MarkdownSource: cli.Markdown,
		Language:       cli.Language,
		ReleaseYear:    cli.Year,
		WorkType:       cli.Type,
		Subjects:       cli.Subject,
	}.WithDefaults()

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	tool, err := setool.Find(ctx, cfg.SEPath, log)
	if err != nil {
		log.Error("toolchain not available", "error", err)
		os.Exit(1)
	}
	log.Debug("using se executable", "path", tool.Path())

	if err := pipeline.New(cfg, tool, log).Run(ctx); err != nil {
		log.Error("conversion failed", "error", err)
		os.Exit(1)
	}
}
