package assets

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
)

// scratch is a private temporary directory for one build.
type scratch struct {
	dir string
}

// newScratch creates a scratch directory whose name is keyed by the asset's
// image path plus a random suffix, so builds of same-named images in
// different directories never share files.
func newScratch(key string) (*scratch, error) {
	pattern := fmt.Sprintf("assetpack-%016x-", xxhash.Sum64String(key))
	dir, err := os.MkdirTemp("", pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}
	return &scratch{dir: dir}, nil
}

// Path returns the path of name inside the scratch directory.
func (s *scratch) Path(name string) string {
	return filepath.Join(s.dir, name)
}

// Copy copies src into the scratch directory under its base name.
func (s *scratch) Copy(src string) (string, error) {
	dst := s.Path(filepath.Base(src))

	in, err := os.Open(src)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer func() { _ = in.Close() }()

	out, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("failed to create scratch copy: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return "", fmt.Errorf("failed to copy %s: %w", src, err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("failed to close scratch copy: %w", err)
	}
	return dst, nil
}

// Release removes the scratch directory and everything in it.
func (s *scratch) Release() error {
	return os.RemoveAll(s.dir)
}
