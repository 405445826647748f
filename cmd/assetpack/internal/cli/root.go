// Package cli implements the assetpack command-line interface.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/albertocavalcante/assetpack/internal/log"
	"github.com/albertocavalcante/assetpack/pkg/config"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	GitCommit = "unknown"
)

// globalFlags holds persistent flags that apply to all commands
var globalFlags struct {
	verbosity int
	logFormat string
}

// activeConfig is the layered configuration with global flags applied.
// It is set before any subcommand runs.
var activeConfig *config.Config

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "assetpack",
	Short: "Incremental image asset packager",
	Long: `Assetpack packages the image assets touched by a revision into
content-addressed zip archives.

Images may be paired with a JSON metadata file of the same name; its
"rotate" field ("left" or "right") rotates the image before packaging.
Untouched assets are listed in unchanged.txt next to the archives.`,
	SilenceUsage:      true,
	PersistentPreRunE: initConfig,
	// Default behavior: show help
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

// versionCmd shows version information
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "assetpack %s (%s)\n", Version, GitCommit)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)

	// Global flags (persistent across all commands)
	rootCmd.PersistentFlags().IntVarP(&globalFlags.verbosity, "verbosity", "v", 1,
		"Verbosity level (0=error, 1=warn, 2=info, 3=debug, 4=trace)")
	rootCmd.PersistentFlags().StringVar(&globalFlags.logFormat, "log-format", "text",
		"Log format (text, json)")
}

// initConfig loads the layered config, applies the global flags on top and
// initializes logging. Flags win only when set explicitly.
func initConfig(cmd *cobra.Command, _ []string) error {
	cfg := config.Load()

	flags := cmd.Flags()
	if flags.Changed("verbosity") {
		v := globalFlags.verbosity
		cfg.Log.Verbosity = &v
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = globalFlags.logFormat
	}

	log.Init(cfg.LogVerbosity(), cfg.Log.Format)
	activeConfig = cfg
	return nil
}

// currentConfig returns the config resolved for this invocation.
func currentConfig() *config.Config {
	if activeConfig == nil {
		return config.NewConfig()
	}
	return activeConfig
}

// Execute runs the root command. An interrupt cancels the running build.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

// RootCmd returns the root command for testing.
func RootCmd() *cobra.Command {
	return rootCmd
}

// commandContext returns the command's context, or a background context
// when the command runs outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func outputJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
