// Package runner locates and executes the external tools assetpack shells
// out to (git, 7z).
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/albertocavalcante/assetpack/internal/log"
)

var (
	// ErrToolNotFound is returned when a tool cannot be located on PATH.
	ErrToolNotFound = errors.New("tool not found")

	// ErrTimeout is returned when a tool does not finish within the
	// configured timeout.
	ErrTimeout = errors.New("tool timed out")
)

// DefaultTimeout bounds every tool invocation unless overridden.
const DefaultTimeout = 5 * time.Minute

// Runner finds and runs external tools.
type Runner struct {
	timeout  time.Duration
	lookPath func(string) (string, error)
}

// Option configures a Runner.
type Option func(*Runner)

// WithTimeout sets the per-invocation timeout. Zero or negative disables it.
func WithTimeout(d time.Duration) Option {
	return func(r *Runner) {
		r.timeout = d
	}
}

// WithLookPath replaces PATH lookup.
// Used primarily for testing.
func WithLookPath(fn func(string) (string, error)) Option {
	return func(r *Runner) {
		r.lookPath = fn
	}
}

// New creates a new Runner with the given options.
func New(opts ...Option) *Runner {
	r := &Runner{
		timeout:  DefaultTimeout,
		lookPath: exec.LookPath,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Find returns the absolute path of the named tool.
func (r *Runner) Find(name string) (string, error) {
	path, err := r.lookPath(name)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	return path, nil
}

// Available reports whether the named tool can be found.
func (r *Runner) Available(name string) bool {
	_, err := r.Find(name)
	return err == nil
}

// Invocation describes a single tool run.
type Invocation struct {
	Name   string
	Args   []string
	Dir    string
	Stdout io.Writer // nil captures into the returned output
}

// Run executes the invocation and returns its captured stdout. Stderr is
// always captured and attached to the error on failure.
func (r *Runner) Run(ctx context.Context, inv Invocation) ([]byte, error) {
	path, err := r.Find(inv.Name)
	if err != nil {
		return nil, err
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, path, inv.Args...)
	cmd.Dir = inv.Dir
	cmd.Stderr = &stderr
	if inv.Stdout != nil {
		cmd.Stdout = inv.Stdout
	} else {
		cmd.Stdout = &stdout
	}

	log.Component("runner").Debug("running tool", "tool", inv.Name, "args", inv.Args, "dir", inv.Dir)

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s after %s", ErrTimeout, inv.Name, r.timeout)
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%s %s: %w: %s", inv.Name, strings.Join(inv.Args, " "), err, msg)
		}
		return nil, fmt.Errorf("%s %s: %w", inv.Name, strings.Join(inv.Args, " "), err)
	}

	return stdout.Bytes(), nil
}
