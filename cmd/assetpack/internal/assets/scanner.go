package assets

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/albertocavalcante/assetpack/cmd/assetpack/internal/transform"
	"github.com/albertocavalcante/assetpack/internal/log"
)

// ScanConfig configures the scanner.
type ScanConfig struct {
	Root        string
	Transformer transform.Transformer // handed to every Bundle
	Ignore      []string              // doublestar patterns for directories to skip
}

// Scanner builds a Catalog by walking an asset tree.
type Scanner struct {
	root        string
	transformer transform.Transformer
	ignore      []string
}

// NewScanner creates a scanner with the given config.
func NewScanner(cfg ScanConfig) *Scanner {
	return &Scanner{
		root:        cfg.Root,
		transformer: cfg.Transformer,
		ignore:      slices.Clone(cfg.Ignore),
	}
}

// Catalog is every asset found under Root.
type Catalog struct {
	Root   string  // absolute asset root
	Assets []Asset // sorted by image path
}

// Len returns the number of assets.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Assets)
}

// RelFiles returns asset's files relative to the catalog root, slash-separated.
func (c *Catalog) RelFiles(asset Asset) ([]string, error) {
	files := asset.Files()
	rel := make([]string, 0, len(files))
	for _, f := range files {
		r, err := filepath.Rel(c.Root, f)
		if err != nil {
			return nil, fmt.Errorf("failed to relativize %s: %w", f, err)
		}
		rel = append(rel, filepath.ToSlash(r))
	}
	return rel, nil
}

// Scan walks the asset root and groups files into assets.
func (s *Scanner) Scan(ctx context.Context) (*Catalog, error) {
	root, err := filepath.Abs(s.root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve asset root: %w", err)
	}
	// WalkDir does not descend into a symlinked root.
	root, err = filepath.EvalSymlinks(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve asset root: %w", err)
	}

	var images []string
	metadata := make(map[string][]string) // stem -> metadata paths

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil {
			return err
		}

		if d.IsDir() {
			if path != root && s.ignored(root, path) {
				return filepath.SkipDir
			}
			return nil
		}

		switch {
		case IsImage(path):
			images = append(images, path)
		case IsMetadata(path):
			stem := Stem(path)
			metadata[stem] = append(metadata[stem], path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.Sort(images)
	logger := log.Component("scanner")

	catalog := &Catalog{Root: root, Assets: make([]Asset, 0, len(images))}
	for _, image := range images {
		if meta, ok := pairMetadata(image, metadata[Stem(image)]); ok {
			logger.Debug("found bundle", "image", image, "metadata", meta)
			catalog.Assets = append(catalog.Assets, NewBundle(image, meta, s.transformer))
			continue
		}
		logger.Debug("found solo image", "image", image)
		catalog.Assets = append(catalog.Assets, NewSoloImage(image))
	}

	logger.Debug("scan complete", "root", root, "assets", catalog.Len())
	return catalog, nil
}

// ignored reports whether the directory at path, taken relative to root,
// matches an ignore pattern.
func (s *Scanner) ignored(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	for _, pattern := range s.ignore {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

// pairMetadata picks the metadata file for image among candidates sharing its
// stem: the one in the image's own directory, else the smallest path.
func pairMetadata(image string, candidates []string) (string, bool) {
	if len(candidates) == 0 {
		return "", false
	}
	dir := filepath.Dir(image)
	for _, c := range candidates {
		if filepath.Dir(c) == dir {
			return c, true
		}
	}
	return slices.Min(candidates), true
}
