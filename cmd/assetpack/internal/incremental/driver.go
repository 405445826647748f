package incremental

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/albertocavalcante/assetpack/cmd/assetpack/internal/archive"
	"github.com/albertocavalcante/assetpack/cmd/assetpack/internal/assets"
	"github.com/albertocavalcante/assetpack/cmd/assetpack/internal/transform"
	"github.com/albertocavalcante/assetpack/internal/log"
)

// ErrAssetsDir is returned when the asset root is missing or not a
// directory.
var ErrAssetsDir = errors.New("invalid assets directory")

// Options describes one run.
type Options struct {
	AssetsDir string
	OutputDir string
	Revision  string
	Jobs      int      // concurrent builds; values below 1 mean 1
	Ignore    []string // doublestar patterns for directories skipped while scanning
}

// Driver runs the incremental build: scan, diff, rebuild, record.
type Driver struct {
	source      RevisionSource
	archiver    archive.Archiver
	transformer transform.Transformer
}

// NewDriver wires the driver to its capabilities.
func NewDriver(source RevisionSource, archiver archive.Archiver, transformer transform.Transformer) *Driver {
	return &Driver{
		source:      source,
		archiver:    archiver,
		transformer: transformer,
	}
}

// BuildPlan is everything decided before any output is touched.
type BuildPlan struct {
	Catalog   *assets.Catalog
	Changes   *ChangeSet
	Selection *Selection
}

// Report summarizes a finished run.
type Report struct {
	Revision  string   `json:"revision"`
	Built     []string `json:"built"`     // archive paths
	Skipped   []string `json:"skipped"`   // bundles whose transform failed
	Unchanged []string `json:"unchanged"` // manifest entries
	Deleted   []string `json:"deleted"`   // deleted source paths
	Handled   int      `json:"handled"`   // assets selected for rebuild
}

// Plan validates the asset root, scans it and computes what the revision
// touched. It has no side effects.
func (d *Driver) Plan(ctx context.Context, opts Options) (*BuildPlan, error) {
	assetsDir := opts.AssetsDir
	info, err := os.Stat(assetsDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAssetsDir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrAssetsDir, assetsDir)
	}

	scanner := assets.NewScanner(assets.ScanConfig{
		Root:        assetsDir,
		Transformer: d.transformer,
		Ignore:      opts.Ignore,
	})
	catalog, err := scanner.Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to scan assets: %w", err)
	}

	cs, err := NewPlanner(assetsDir, d.source).Plan(ctx, opts.Revision)
	if err != nil {
		return nil, err
	}

	return &BuildPlan{
		Catalog:   catalog,
		Changes:   cs,
		Selection: Select(catalog, cs),
	}, nil
}

// Run performs a full build. Preconditions are checked before the output
// directory is wiped, so a failed precondition leaves it as it was.
//
// A transform failure skips that bundle's archive and the run continues. Any
// other build error, archiver failures included, aborts the run.
func (d *Driver) Run(ctx context.Context, opts Options) (*Report, error) {
	logger := log.Component("driver")

	plan, err := d.Plan(ctx, opts)
	if err != nil {
		return nil, err
	}

	layout := Layout{OutputDir: opts.OutputDir, Revision: opts.Revision}
	if err := layout.Recreate(); err != nil {
		return nil, err
	}

	report := &Report{
		Revision: RevisionKey(opts.Revision),
		Built:    []string{},
		Skipped:  []string{},
		Deleted:  plan.Changes.Deleted,
		Handled:  len(plan.Selection.Rebuild),
	}

	if err := d.build(ctx, plan.Selection.Rebuild, layout.ResultDir(), opts.Jobs, report); err != nil {
		return nil, err
	}

	for _, source := range plan.Changes.Deleted {
		logger.Info("asset source was deleted", "path", source)
	}

	unchanged, err := UnchangedEntries(plan.Catalog, plan.Selection.Unchanged)
	if err != nil {
		return nil, err
	}
	if err := WriteManifest(layout.ManifestPath(), unchanged); err != nil {
		return nil, err
	}
	report.Unchanged = unchanged

	if err := d.source.WriteChangeDescription(ctx, layout.ChangePath()); err != nil {
		logger.Warn("failed to write change description", "path", layout.ChangePath(), "error", err)
	}

	logger.Info("build finished",
		"revision", report.Revision,
		"built", len(report.Built),
		"skipped", len(report.Skipped),
		"unchanged", len(plan.Selection.Unchanged),
		"deleted", len(report.Deleted),
	)
	return report, nil
}

// build rebuilds the selected assets with at most jobs builds in flight.
// Assets that hash to the same archive are built one after another by the
// same worker.
func (d *Driver) build(ctx context.Context, selected []assets.Asset, resultDir string, jobs int, report *Report) error {
	groups, err := groupByArchive(resultDir, selected)
	if err != nil {
		return err
	}

	logger := log.Component("driver")
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(jobs, 1))

	var mu sync.Mutex
	for _, group := range groups {
		g.Go(func() error {
			for _, asset := range group {
				dest, err := asset.Build(gctx, resultDir, d.archiver)
				if errors.Is(err, assets.ErrTransformFailed) {
					// Still counts as handled, so it stays out of the manifest.
					logger.Warn("bundle skipped, no archive written", "image", asset.ImagePath(), "error", err)
					mu.Lock()
					report.Skipped = append(report.Skipped, asset.ImagePath())
					mu.Unlock()
					continue
				}
				if err != nil {
					return fmt.Errorf("failed to build %s: %w", asset.ImagePath(), err)
				}

				logger.Info("archive written", "image", asset.ImagePath(), "archive", dest)
				mu.Lock()
				report.Built = append(report.Built, dest)
				mu.Unlock()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	slices.Sort(report.Built)
	report.Built = slices.Compact(report.Built)
	slices.Sort(report.Skipped)
	return nil
}

// groupByArchive buckets assets by archive path, keeping first-seen order.
func groupByArchive(resultDir string, selected []assets.Asset) ([][]assets.Asset, error) {
	index := make(map[string]int)
	var groups [][]assets.Asset
	for _, asset := range selected {
		dest, err := assets.ArchivePath(resultDir, asset)
		if err != nil {
			return nil, err
		}
		i, ok := index[dest]
		if !ok {
			i = len(groups)
			index[dest] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], asset)
	}
	return groups, nil
}
