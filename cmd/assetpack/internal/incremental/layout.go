package incremental

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// revisionKeyLen is how many leading revision characters name a run.
	revisionKeyLen = 6

	resultDirName  = "result"
	manifestName   = "unchanged.txt"
	changeFileName = "change"
)

// Layout is the on-disk shape of one run:
//
//	{OutputDir}/{revision[:6]}/result/{md5}.zip
//	{OutputDir}/{revision[:6]}/result/unchanged.txt
//	{OutputDir}/{revision[:6]}/change
type Layout struct {
	OutputDir string
	Revision  string
}

// RevisionKey shortens a revision to the directory name used for it.
func RevisionKey(revision string) string {
	if len(revision) <= revisionKeyLen {
		return revision
	}
	return revision[:revisionKeyLen]
}

// RevisionDir returns {OutputDir}/{revision[:6]}.
func (l Layout) RevisionDir() string {
	return filepath.Join(l.OutputDir, RevisionKey(l.Revision))
}

// ResultDir holds the archives and the unchanged manifest.
func (l Layout) ResultDir() string {
	return filepath.Join(l.RevisionDir(), resultDirName)
}

// ManifestPath returns the path of unchanged.txt.
func (l Layout) ManifestPath() string {
	return filepath.Join(l.ResultDir(), manifestName)
}

// ChangePath returns the path of the change description.
func (l Layout) ChangePath() string {
	return filepath.Join(l.RevisionDir(), changeFileName)
}

// Recreate wipes OutputDir and creates an empty result directory.
func (l Layout) Recreate() error {
	if strings.TrimSpace(l.OutputDir) == "" {
		return fmt.Errorf("output directory not set")
	}
	if err := os.RemoveAll(l.OutputDir); err != nil {
		return fmt.Errorf("failed to clear output directory: %w", err)
	}
	if err := os.MkdirAll(l.ResultDir(), 0o755); err != nil {
		return fmt.Errorf("failed to create result directory: %w", err)
	}
	return nil
}
