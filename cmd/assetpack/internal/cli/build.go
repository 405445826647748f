package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/albertocavalcante/assetpack/cmd/assetpack/internal/archive"
	"github.com/albertocavalcante/assetpack/cmd/assetpack/internal/incremental"
	"github.com/albertocavalcante/assetpack/cmd/assetpack/internal/runner"
	"github.com/albertocavalcante/assetpack/cmd/assetpack/internal/transform"
	"github.com/albertocavalcante/assetpack/cmd/assetpack/internal/vcs"
	"github.com/albertocavalcante/assetpack/pkg/config"
)

var buildFlags struct {
	assetsDir   string
	outputDir   string
	revision    string
	archiver    string
	jobs        int
	toolTimeout time.Duration
	json        bool
}

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Package the assets changed by a revision",
	Long: `Builds one archive per asset touched by the given revision.

The output directory is wiped and recreated. Archives are written to
<output-dir>/<rev>/result/<md5>.zip, where <rev> is the first six characters
of the revision. Assets the revision did not touch are listed in
<output-dir>/<rev>/result/unchanged.txt and the revision's change description
is saved to <output-dir>/<rev>/change.

The --archiver, --jobs and --tool-timeout flags override the [build] section
of the config file.`,
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().StringVar(&buildFlags.assetsDir, "assets-dir", "",
		"Directory containing the image assets")
	buildCmd.Flags().StringVar(&buildFlags.outputDir, "output-dir", "",
		"Directory to write results to (wiped on every run)")
	buildCmd.Flags().StringVar(&buildFlags.revision, "revision", "",
		"Revision whose changes select the assets to build")
	buildCmd.Flags().StringVar(&buildFlags.archiver, "archiver", "auto",
		"Archive backend (auto, zip, 7z)")
	buildCmd.Flags().IntVar(&buildFlags.jobs, "jobs", 1,
		"Number of assets built concurrently")
	buildCmd.Flags().DurationVar(&buildFlags.toolTimeout, "tool-timeout", 5*time.Minute,
		"Timeout for each external tool invocation")
	buildCmd.Flags().BoolVar(&buildFlags.json, "json", false,
		"Output the build report as JSON")

	for _, name := range []string{"assets-dir", "output-dir", "revision"} {
		_ = buildCmd.MarkFlagRequired(name)
	}

	rootCmd.AddCommand(buildCmd)
}

// buildConfig applies the build flags that were set explicitly on top of
// the layered config and validates the result.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := *currentConfig()

	flags := cmd.Flags()
	if flags.Changed("archiver") {
		cfg.Build.Archiver = buildFlags.archiver
	}
	if flags.Changed("jobs") {
		cfg.Build.Jobs = buildFlags.jobs
	}
	if flags.Changed("tool-timeout") {
		cfg.Build.ToolTimeout = buildFlags.toolTimeout.String()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func runBuild(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	timeout, err := cfg.ToolTimeoutDuration()
	if err != nil {
		return err
	}

	r := runner.New(runner.WithTimeout(timeout))
	archiver, err := archive.Select(archive.Kind(cfg.Build.Archiver), r)
	if err != nil {
		return err
	}

	driver := incremental.NewDriver(vcs.NewGit(buildFlags.assetsDir, r), archiver, transform.NewRotator())
	report, err := driver.Run(commandContext(cmd), incremental.Options{
		AssetsDir: buildFlags.assetsDir,
		OutputDir: buildFlags.outputDir,
		Revision:  buildFlags.revision,
		Jobs:      cfg.Build.Jobs,
		Ignore:    cfg.Scan.Ignore,
	})
	if err != nil {
		return err
	}

	if buildFlags.json {
		return outputJSON(cmd.OutOrStdout(), report)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Revision %s: %d archive(s) built, %d asset(s) unchanged\n",
		report.Revision, len(report.Built), len(report.Unchanged))
	for _, path := range report.Built {
		fmt.Fprintf(out, "  + %s\n", path)
	}
	for _, path := range report.Skipped {
		fmt.Fprintf(out, "  ! %s (transform failed, skipped)\n", path)
	}
	for _, path := range report.Deleted {
		fmt.Fprintf(out, "  - %s (deleted)\n", path)
	}
	return nil
}
