package incremental

import (
	"maps"
	"path/filepath"
	"slices"
)

// ChangeSet is the part of a revision's diff that falls under the asset
// tree. Paths are absolute.
type ChangeSet struct {
	Modified []string `json:"modified"` // changed and present on disk
	Deleted  []string `json:"deleted"`  // changed and gone from disk
}

// NewChangeSet creates an empty ChangeSet.
func NewChangeSet() *ChangeSet {
	return &ChangeSet{
		Modified: []string{},
		Deleted:  []string{},
	}
}

// IsEmpty returns true if there are no changes.
func (cs *ChangeSet) IsEmpty() bool {
	if cs == nil {
		return true
	}
	return len(cs.Modified) == 0 && len(cs.Deleted) == 0
}

// TotalChanges returns the total number of changed files.
func (cs *ChangeSet) TotalChanges() int {
	if cs == nil {
		return 0
	}
	return len(cs.Modified) + len(cs.Deleted)
}

// AffectedDirs returns sorted unique directories containing changes.
func (cs *ChangeSet) AffectedDirs() []string {
	if cs == nil {
		return nil
	}

	dirs := make(map[string]struct{})
	for _, path := range cs.Modified {
		dirs[filepath.Dir(path)] = struct{}{}
	}
	for _, path := range cs.Deleted {
		dirs[filepath.Dir(path)] = struct{}{}
	}

	return slices.Sorted(maps.Keys(dirs))
}

// sort sorts and dedupes all slices for deterministic output.
func (cs *ChangeSet) sort() {
	if cs == nil {
		return
	}
	slices.Sort(cs.Modified)
	cs.Modified = slices.Compact(cs.Modified)
	slices.Sort(cs.Deleted)
	cs.Deleted = slices.Compact(cs.Deleted)
}
