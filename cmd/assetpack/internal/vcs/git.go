// Package vcs reads change information from version control.
package vcs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/albertocavalcante/assetpack/cmd/assetpack/internal/runner"
)

// ErrEmptyRevision is returned when no revision is given.
var ErrEmptyRevision = errors.New("empty revision")

// Git is a revision source backed by the git CLI.
type Git struct {
	dir    string
	runner *runner.Runner
}

// NewGit creates a Git source that runs inside dir, which may be any
// directory within the work tree.
func NewGit(dir string, r *runner.Runner) *Git {
	return &Git{dir: dir, runner: r}
}

// ChangedFiles returns the paths touched by revision, relative to the
// repository root and slash-separated.
func (g *Git) ChangedFiles(ctx context.Context, revision string) ([]string, error) {
	if strings.TrimSpace(revision) == "" {
		return nil, ErrEmptyRevision
	}

	out, err := g.runner.Run(ctx, runner.Invocation{
		Name: "git",
		// --root lists a root commit's files. -m --first-parent diffs a merge
		// against its first parent. -z keeps paths unquoted.
		Args: []string{"diff-tree", "--root", "-m", "--first-parent", "-z", "--no-commit-id", "--name-only", "-r", revision},
		Dir:  g.dir,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list files changed in %s: %w", revision, err)
	}

	return parseNameOnly(string(out)), nil
}

// WriteChangeDescription writes the output of `git show` for the latest
// commit to dest.
func (g *Git) WriteChangeDescription(ctx context.Context, dest string) (err error) {
	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create change file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("failed to close change file: %w", cerr)
		}
	}()

	if _, err := g.runner.Run(ctx, runner.Invocation{
		Name:   "git",
		Args:   []string{"show"},
		Dir:    g.dir,
		Stdout: f,
	}); err != nil {
		return fmt.Errorf("failed to describe latest change: %w", err)
	}
	return nil
}

// parseNameOnly splits NUL-terminated --name-only -z output.
func parseNameOnly(out string) []string {
	fields := strings.Split(out, "\x00")
	files := make([]string, 0, len(fields))
	for _, f := range fields {
		if f != "" {
			files = append(files, f)
		}
	}
	return files
}
