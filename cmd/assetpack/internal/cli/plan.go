package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/albertocavalcante/assetpack/cmd/assetpack/internal/incremental"
	"github.com/albertocavalcante/assetpack/cmd/assetpack/internal/runner"
	"github.com/albertocavalcante/assetpack/cmd/assetpack/internal/transform"
	"github.com/albertocavalcante/assetpack/cmd/assetpack/internal/vcs"
	"github.com/albertocavalcante/assetpack/internal/log"
)

var planFlags struct {
	assetsDir string
	revision  string
	json      bool
}

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show which assets a revision would rebuild",
	Long: `Shows what 'assetpack build' would do for a revision without building
anything or touching the output directory.

Lists the changed and deleted sources under the asset directory and the
assets that would be rebuilt. The --json flag outputs the result as JSON for
scripting.`,
	RunE: runPlan,
}

func init() {
	planCmd.Flags().StringVar(&planFlags.assetsDir, "assets-dir", "",
		"Directory containing the image assets")
	planCmd.Flags().StringVar(&planFlags.revision, "revision", "",
		"Revision to inspect")
	planCmd.Flags().BoolVar(&planFlags.json, "json", false,
		"Output as JSON")

	_ = planCmd.MarkFlagRequired("assets-dir")
	_ = planCmd.MarkFlagRequired("revision")

	rootCmd.AddCommand(planCmd)
}

// PlanOutput is the JSON output format for assetpack plan. Rebuild and
// Unchanged are relative to the asset directory.
type PlanOutput struct {
	Revision     string   `json:"revision"`
	Modified     []string `json:"modified"`
	Deleted      []string `json:"deleted,omitempty"`
	AffectedDirs []string `json:"affected_dirs,omitempty"`
	Rebuild      []string `json:"rebuild"`
	Unchanged    []string `json:"unchanged"`
}

func runPlan(cmd *cobra.Command, _ []string) error {
	cfg := currentConfig()
	if err := cfg.Validate(); err != nil {
		return err
	}
	timeout, err := cfg.ToolTimeoutDuration()
	if err != nil {
		return err
	}

	r := runner.New(runner.WithTimeout(timeout))
	driver := incremental.NewDriver(vcs.NewGit(planFlags.assetsDir, r), nil, transform.NewRotator())
	plan, err := driver.Plan(commandContext(cmd), incremental.Options{
		AssetsDir: planFlags.assetsDir,
		Revision:  planFlags.revision,
		Ignore:    cfg.Scan.Ignore,
	})
	if err != nil {
		return err
	}

	output, err := newPlanOutput(plan, planFlags.revision)
	if err != nil {
		return err
	}

	if planFlags.json {
		return outputJSON(cmd.OutOrStdout(), output)
	}

	printPlan(cmd.OutOrStdout(), output, plan.Changes)
	return nil
}

// printPlan writes the human-readable plan. Affected directories are listed
// from verbosity 2 up.
func printPlan(out io.Writer, output *PlanOutput, changes *incremental.ChangeSet) {
	switch {
	case changes.IsEmpty():
		fmt.Fprintf(out, "Revision %s changes nothing under the asset directory (%d unchanged)\n", output.Revision, len(output.Unchanged))
	case len(output.Rebuild) == 0:
		fmt.Fprintf(out, "Revision %s touches no assets (%d changed, %d unchanged)\n", output.Revision, changes.TotalChanges(), len(output.Unchanged))
	default:
		fmt.Fprintf(out, "Assets to rebuild (%d):\n", len(output.Rebuild))
		for _, a := range output.Rebuild {
			fmt.Fprintf(out, "  ~ %s\n", a)
		}
	}
	if len(output.Deleted) > 0 {
		fmt.Fprintf(out, "\nDeleted sources (%d):\n", len(output.Deleted))
		for _, f := range output.Deleted {
			fmt.Fprintf(out, "  - %s\n", f)
		}
	}
	if log.Verbosity() >= log.VerbosityInfo && len(output.AffectedDirs) > 0 {
		fmt.Fprintf(out, "\nAffected directories (%d):\n", len(output.AffectedDirs))
		for _, d := range output.AffectedDirs {
			fmt.Fprintf(out, "  %s\n", d)
		}
	}
}

func newPlanOutput(plan *incremental.BuildPlan, revision string) (*PlanOutput, error) {
	output := &PlanOutput{
		Revision:     incremental.RevisionKey(revision),
		Modified:     plan.Changes.Modified,
		Deleted:      plan.Changes.Deleted,
		AffectedDirs: plan.Changes.AffectedDirs(),
		Rebuild:      []string{},
		Unchanged:    []string{},
	}
	for _, asset := range plan.Selection.Rebuild {
		files, err := plan.Catalog.RelFiles(asset)
		if err != nil {
			return nil, err
		}
		output.Rebuild = append(output.Rebuild, files[0])
	}
	unchanged, err := incremental.UnchangedEntries(plan.Catalog, plan.Selection.Unchanged)
	if err != nil {
		return nil, err
	}
	output.Unchanged = unchanged
	return output, nil
}
