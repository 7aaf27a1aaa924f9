// Package setool wraps the external Standard Ebooks toolchain binary:
// locating it, scaffolding a draft project, and driving the
// prepare/build/lint steps against a project directory.
package setool

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
)

// ErrProjectDirUnknown is returned when create-draft ran but the location
// of the new project directory could not be determined.
var ErrProjectDirUnknown = errors.New("could not determine project directory")

// Tool is a located se binary.
type Tool struct {
	path string
	log  *slog.Logger
}

// Path returns the binary path the tool was located at.
func (t *Tool) Path() string { return t.path }

// Find probes a fixed list of candidate paths for the se binary, verifying
// each with a version query. An explicit override is checked first.
func Find(ctx context.Context, override string, log *slog.Logger) (*Tool, error) {
	home, _ := os.UserHomeDir()
	candidates := []string{
		"se",
		filepath.Join(home, "standardebooks", "tools", "se"),
		filepath.Join(home, "tools", "se"),
		filepath.Join(home, "se"),
		"/usr/local/bin/se",
	}
	if override != "" {
		candidates = append([]string{override}, candidates...)
	}

	for _, path := range candidates {
		cmd := exec.CommandContext(ctx, path, "--version")
		err := cmd.Run()
		// A non-zero exit still proves the binary exists and responds;
		// only a failure to start it at all disqualifies the candidate.
		var exitErr *exec.ExitError
		if err == nil || errors.As(err, &exitErr) {
			log.Debug("found se executable", "path", path)
			return &Tool{path: path, log: log}, nil
		}
	}

	return nil, fmt.Errorf("could not find the Standard Ebooks 'se' command; install it from https://github.com/standardebooks/tools")
}

func (t *Tool) run(ctx context.Context, dir string, args ...string) (string, string, error) {
	cmd := exec.CommandContext(ctx, t.path, args...)
	cmd.Dir = dir // scoped working directory, process cwd is never changed
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

var (
	projectDirPattern = regexp.MustCompile(`Created project directory at (.*)`)
	hyphenRunPattern  = regexp.MustCompile(`-+`)
)

// CreateDraft scaffolds a new project and returns its directory. When the
// announcement line is absent from the output, the directory is guessed
// from the naming convention, then recovered by diffing the working
// directory around a second attempt.
func (t *Tool) CreateDraft(ctx context.Context, author, title string) (string, error) {
	args := []string{"create-draft", "-a", author, "-t", title}
	t.log.Info("creating Standard Ebooks project", "author", author, "title", title)

	stdout, stderr, err := t.run(ctx, "", args...)
	if stdout != "" {
		t.log.Info("create-draft output", "output", strings.TrimSpace(stdout))
	}
	if stderr != "" {
		t.log.Warn("create-draft error output", "output", strings.TrimSpace(stderr))
	}
	if err != nil {
		return "", fmt.Errorf("create-draft: %w", err)
	}

	if m := projectDirPattern.FindStringSubmatch(stdout); m != nil {
		return strings.TrimSpace(m[1]), nil
	}

	t.log.Warn("project directory not announced in output, guessing from naming convention")
	if dir := guessProjectDir(author, title); dir != "" {
		return dir, nil
	}

	if dir := t.recoverByDirDiff(ctx, args); dir != "" {
		return dir, nil
	}

	return "", ErrProjectDirUnknown
}

// Slug converts a name to the toolchain's directory naming convention:
// lowercase, spaces to hyphens, anything outside [a-z0-9-] dropped,
// hyphen runs collapsed.
func Slug(name string) string {
	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, " ", "-")
	var b strings.Builder
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			b.WriteRune(r)
		}
	}
	return hyphenRunPattern.ReplaceAllString(b.String(), "-")
}

func guessProjectDir(author, title string) string {
	authorSlug := Slug(author)
	titleSlug := Slug(title)
	cwd, _ := os.Getwd()

	candidates := []string{
		authorSlug + "_" + titleSlug,
		titleSlug,
		filepath.Join(cwd, authorSlug+"_"+titleSlug),
	}
	for _, dir := range candidates {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return dir
		}
	}
	return ""
}

// recoverByDirDiff snapshots the working directory, reruns create-draft,
// and returns the newest directory that appeared.
func (t *Tool) recoverByDirDiff(ctx context.Context, args []string) string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}
	before, err := listDirs(cwd)
	if err != nil {
		return ""
	}

	t.run(ctx, "", args...)

	after, err := listDirs(cwd)
	if err != nil {
		return ""
	}

	var newest string
	var newestTime int64
	for name := range after {
		if before[name] {
			continue
		}
		path := filepath.Join(cwd, name)
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if mt := info.ModTime().UnixNano(); newest == "" || mt > newestTime {
			newest = path
			newestTime = mt
		}
	}
	return newest
}

func listDirs(root string) (map[string]bool, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	dirs := make(map[string]bool, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			dirs[e.Name()] = true
		}
	}
	return dirs, nil
}

// PrepareRelease runs se prepare-release against the project.
func (t *Tool) PrepareRelease(ctx context.Context, projectDir string) error {
	return t.step(ctx, projectDir, "prepare-release")
}

// Build runs se build against the project.
func (t *Tool) Build(ctx context.Context, projectDir string) error {
	return t.step(ctx, projectDir, "build")
}

// Lint runs se lint and returns its findings. Lint exiting non-zero is
// expected when it has findings; the findings text is returned either way.
func (t *Tool) Lint(ctx context.Context, projectDir string) (string, error) {
	stdout, stderr, err := t.run(ctx, projectDir, "lint", ".")
	findings := strings.TrimSpace(stdout + stderr)
	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return findings, fmt.Errorf("lint: %w", err)
	}
	return findings, nil
}

func (t *Tool) step(ctx context.Context, projectDir, subcommand string) error {
	t.log.Info("running se step", "step", subcommand)
	stdout, stderr, err := t.run(ctx, projectDir, subcommand, ".")
	if stdout != "" {
		t.log.Info(subcommand+" output", "output", strings.TrimSpace(stdout))
	}
	if err != nil {
		if stderr != "" {
			t.log.Warn(subcommand+" error output", "output", strings.TrimSpace(stderr))
		}
		return fmt.Errorf("%s: %w", subcommand, err)
	}
	return nil
}
