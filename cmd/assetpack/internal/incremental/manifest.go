package incremental

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/albertocavalcante/assetpack/cmd/assetpack/internal/assets"
)

// UnchangedEntries lists the files of unchanged assets relative to the
// catalog root, sorted and without duplicates. Two images sharing a stem
// can share one metadata file.
func UnchangedEntries(catalog *assets.Catalog, unchanged []assets.Asset) ([]string, error) {
	entries := []string{}
	for _, asset := range unchanged {
		rel, err := catalog.RelFiles(asset)
		if err != nil {
			return nil, err
		}
		entries = append(entries, rel...)
	}
	slices.Sort(entries)
	return slices.Compact(entries), nil
}

// WriteManifest writes one entry per line to path atomically.
func WriteManifest(path string, entries []string) error {
	var b strings.Builder
	for _, e := range entries {
		b.WriteString(e)
		b.WriteByte('\n')
	}

	// Write to temp file first for atomic update
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("failed to write temp manifest: %w", err)
	}

	// Rename temp file to actual file (atomic on POSIX)
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename manifest: %w", err)
	}
	return nil
}
