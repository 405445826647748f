// Package incremental decides which assets a revision touched and rebuilds
// only those.
package incremental

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/albertocavalcante/assetpack/internal/log"
)

// ErrChangedFiles is returned when the revision source cannot say what
// changed. It is never treated as "nothing changed".
var ErrChangedFiles = errors.New("cannot determine changed files")

// RevisionSource reports what a revision changed.
type RevisionSource interface {
	// ChangedFiles returns slash-separated paths relative to the VCS root.
	ChangedFiles(ctx context.Context, revision string) ([]string, error)
	// WriteChangeDescription writes a human-readable description of the
	// latest change to dest.
	WriteChangeDescription(ctx context.Context, dest string) error
}

// Planner computes the change set of a revision for one asset tree.
type Planner struct {
	assetsDir string
	source    RevisionSource
}

// NewPlanner creates a planner for the asset tree at assetsDir. The tree is
// expected to sit directly under the VCS root.
func NewPlanner(assetsDir string, source RevisionSource) *Planner {
	return &Planner{assetsDir: assetsDir, source: source}
}

// Plan returns the changed paths under the asset tree, split by whether
// they still exist on disk. Paths that cannot map to any asset are kept so
// they show up in reports.
func (p *Planner) Plan(ctx context.Context, revision string) (*ChangeSet, error) {
	root, err := filepath.Abs(p.assetsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve asset root: %w", err)
	}
	treeName := filepath.Base(root)
	parent := filepath.Dir(root)

	files, err := p.source.ChangedFiles(ctx, revision)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrChangedFiles, err)
	}

	logger := log.Component("planner")
	cs := NewChangeSet()
	for _, f := range files {
		if !underTree(f, treeName) {
			logger.Debug("ignoring change outside asset tree", "path", f)
			continue
		}

		path := filepath.Join(parent, filepath.FromSlash(f))
		if _, err := os.Stat(path); err == nil {
			cs.Modified = append(cs.Modified, path)
		} else {
			cs.Deleted = append(cs.Deleted, path)
		}
	}

	cs.sort()
	if cs.IsEmpty() {
		logger.Info("revision changed nothing under the asset tree", "revision", revision, "changed", len(files))
	} else {
		logger.Debug("change set computed", "revision", revision, "changes", cs.TotalChanges(), "deleted", len(cs.Deleted))
	}
	return cs, nil
}

// underTree reports whether the VCS-relative path lies inside the directory
// named treeName at the VCS root.
func underTree(rel, treeName string) bool {
	first, _, found := strings.Cut(rel, "/")
	return found && first == treeName
}
