package config

import (
	"fmt"
	"os"
	"time"

	"golang.org/x/text/language"
)

// WorkTypes enumerates the accepted values for Config.WorkType.
var WorkTypes = map[string]bool{
	"novel":       true,
	"short-story": true,
	"novella":     true,
	"anthology":   true,
	"non-fiction": true,
}

type Config struct {
	Author string
	Title  string

	// Exactly one of these is set.
	HTMLSource     string
	MarkdownSource string

	Language    string
	ReleaseYear int
	WorkType    string
	Subjects    []string

	// SEPath, when set, skips binary probing.
	SEPath string

	// HTTPTimeout bounds remote source fetches. Zero disables the bound.
	HTTPTimeout time.Duration
}

// WithDefaults fills unset fields from the environment and fixed defaults.
func (c Config) WithDefaults() Config {
	if c.SEPath == "" {
		c.SEPath = os.Getenv("SE_PATH")
	}
	if c.HTTPTimeout == 0 {
		c.HTTPTimeout = envDuration("BOOKPRESS_HTTP_TIMEOUT", 30*time.Second)
	}
	if c.Language == "" {
		c.Language = "en-US"
	}
	if c.WorkType == "" {
		c.WorkType = "novel"
	}
	if c.ReleaseYear == 0 {
		c.ReleaseYear = time.Now().Year()
	}
	return c
}

func (c Config) Validate() error {
	if c.Author == "" {
		return fmt.Errorf("author is required")
	}
	if c.Title == "" {
		return fmt.Errorf("title is required")
	}
	if c.HTMLSource == "" && c.MarkdownSource == "" {
		return fmt.Errorf("either an HTML or a markdown source is required")
	}
	if c.HTMLSource != "" && c.MarkdownSource != "" {
		return fmt.Errorf("HTML and markdown sources are mutually exclusive")
	}
	if _, err := language.Parse(c.Language); err != nil {
		return fmt.Errorf("invalid language code %q: %w", c.Language, err)
	}
	if !WorkTypes[c.WorkType] {
		return fmt.Errorf("unknown work type %q", c.WorkType)
	}
	return nil
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
