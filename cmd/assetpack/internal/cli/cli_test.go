package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/albertocavalcante/assetpack/cmd/assetpack/internal/incremental"
	"github.com/albertocavalcante/assetpack/internal/log"
	"github.com/albertocavalcante/assetpack/pkg/config"
)

func getCommand(name string) *cobra.Command {
	for _, c := range RootCmd().Commands() {
		if c.Name() == name {
			return c
		}
	}
	return nil
}

// setFlag sets a flag for the duration of the test and restores its value
// and changed state afterwards.
func setFlag(t *testing.T, cmd *cobra.Command, name, value string) {
	t.Helper()
	flag := cmd.Flags().Lookup(name)
	if flag == nil {
		t.Fatalf("flag %q not found on %s", name, cmd.Name())
	}
	old, oldChanged := flag.Value.String(), flag.Changed
	if err := cmd.Flags().Set(name, value); err != nil {
		t.Fatalf("failed to set --%s=%s: %v", name, value, err)
	}
	t.Cleanup(func() {
		_ = flag.Value.Set(old)
		flag.Changed = oldChanged
	})
}

// TestNoFlagConflicts verifies that all subcommands can be initialized
// without flag shorthand conflicts.
func TestNoFlagConflicts(t *testing.T) {
	root := RootCmd()
	if root == nil {
		t.Fatal("RootCmd() returned nil")
	}

	subcommands := root.Commands()
	if len(subcommands) == 0 {
		t.Fatal("expected at least one subcommand")
	}

	for _, cmd := range subcommands {
		t.Run(cmd.Name(), func(t *testing.T) {
			defer func() {
				if r := recover(); r != nil {
					t.Errorf("flag conflict in %q command: %v", cmd.Name(), r)
				}
			}()

			// Forces the merge of persistent and local flags.
			_ = cmd.Flags()
			_ = cmd.InheritedFlags()
		})
	}
}

// TestGlobalVerbosityFlag verifies the global -v flag exists and is properly configured.
func TestGlobalVerbosityFlag(t *testing.T) {
	vFlag := RootCmd().PersistentFlags().Lookup("verbosity")
	if vFlag == nil {
		t.Fatal("expected persistent 'verbosity' flag on root command")
	}
	if vFlag.Shorthand != "v" {
		t.Errorf("expected verbosity flag shorthand to be 'v', got %q", vFlag.Shorthand)
	}
	if vFlag.DefValue != "1" {
		t.Errorf("expected verbosity default 1, got %q", vFlag.DefValue)
	}
}

func TestSubcommandsExist(t *testing.T) {
	for _, name := range []string{"build", "plan", "version"} {
		if getCommand(name) == nil {
			t.Errorf("expected subcommand %q not found", name)
		}
	}
}

func TestCommands_HaveRunE(t *testing.T) {
	for _, name := range []string{"build", "plan"} {
		t.Run(name, func(t *testing.T) {
			cmd := getCommand(name)
			if cmd == nil {
				t.Fatalf("command %q not found", name)
			}
			if cmd.RunE == nil {
				t.Errorf("command %q should have RunE defined", name)
			}
		})
	}
}

func TestRequiredFlags(t *testing.T) {
	tests := []struct {
		command string
		flags   []string
	}{
		{"build", []string{"assets-dir", "output-dir", "revision"}},
		{"plan", []string{"assets-dir", "revision"}},
	}

	for _, tt := range tests {
		cmd := getCommand(tt.command)
		if cmd == nil {
			t.Fatalf("command %q not found", tt.command)
		}
		for _, name := range tt.flags {
			flag := cmd.Flags().Lookup(name)
			if flag == nil {
				t.Fatalf("flag %q not found on %s", name, tt.command)
			}
			if got := flag.Annotations[cobra.BashCompOneRequiredFlag]; len(got) != 1 || got[0] != "true" {
				t.Errorf("%s --%s should be required", tt.command, name)
			}
		}
	}
}

func TestBuildCmd_FlagDefaults(t *testing.T) {
	cmd := getCommand("build")
	if cmd == nil {
		t.Fatal("build command not found")
	}

	tests := []struct {
		flagName    string
		wantDefault string
	}{
		{"archiver", "auto"},
		{"jobs", "1"},
		{"tool-timeout", "5m0s"},
		{"json", "false"},
	}

	for _, tt := range tests {
		t.Run(tt.flagName, func(t *testing.T) {
			flag := cmd.Flags().Lookup(tt.flagName)
			if flag == nil {
				t.Fatalf("flag %q not found on build command", tt.flagName)
			}
			if flag.DefValue != tt.wantDefault {
				t.Errorf("flag %q default = %q, want %q", tt.flagName, flag.DefValue, tt.wantDefault)
			}
			if flag.Shorthand != "" {
				t.Errorf("flag %q should have no shorthand, got %q", tt.flagName, flag.Shorthand)
			}
		})
	}
}

func TestBuildConfig_FlagsOverrideConfig(t *testing.T) {
	saved := activeConfig
	t.Cleanup(func() { activeConfig = saved })

	activeConfig = config.NewConfig()
	activeConfig.Build.Archiver = "7z"
	activeConfig.Build.Jobs = 2

	cmd := getCommand("build")
	setFlag(t, cmd, "jobs", "6")
	setFlag(t, cmd, "tool-timeout", "90s")

	cfg, err := buildConfig(cmd)
	if err != nil {
		t.Fatalf("buildConfig() error = %v", err)
	}
	if cfg.Build.Archiver != "7z" {
		t.Errorf("archiver should keep the config value, got %q", cfg.Build.Archiver)
	}
	if cfg.Build.Jobs != 6 {
		t.Errorf("jobs should come from the flag, got %d", cfg.Build.Jobs)
	}
	if d, _ := cfg.ToolTimeoutDuration(); d != 90*time.Second {
		t.Errorf("tool timeout should come from the flag, got %v", d)
	}
	if activeConfig.Build.Jobs != 2 {
		t.Error("buildConfig must not modify the shared config")
	}
}

func TestBuildConfig_RejectsInvalid(t *testing.T) {
	saved := activeConfig
	t.Cleanup(func() { activeConfig = saved })
	activeConfig = config.NewConfig()

	cmd := getCommand("build")
	setFlag(t, cmd, "archiver", "rar")

	if _, err := buildConfig(cmd); !errors.Is(err, config.ErrInvalid) {
		t.Errorf("buildConfig() error = %v, want ErrInvalid", err)
	}
}

func TestVersionCmd(t *testing.T) {
	cmd := getCommand("version")
	if cmd == nil {
		t.Fatal("version command not found")
	}

	var buf bytes.Buffer
	cmd.SetOut(&buf)
	t.Cleanup(func() { cmd.SetOut(nil) })
	cmd.Run(cmd, nil)

	if !strings.HasPrefix(buf.String(), "assetpack "+Version) {
		t.Errorf("version output = %q", buf.String())
	}
}

func TestOutputJSON(t *testing.T) {
	var buf bytes.Buffer
	output := PlanOutput{
		Revision: "abcdef",
		Modified: []string{"/repo/assets/a.png"},
		Rebuild:  []string{"a.png"},
	}
	if err := outputJSON(&buf, output); err != nil {
		t.Fatalf("outputJSON() error = %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("outputJSON produced invalid JSON: %v", err)
	}
	if decoded["revision"] != "abcdef" {
		t.Errorf("revision = %v, want abcdef", decoded["revision"])
	}
	if _, ok := decoded["deleted"]; ok {
		t.Error("empty deleted list should be omitted")
	}
}

func TestPrintPlan_NothingUnderAssetDir(t *testing.T) {
	var buf bytes.Buffer
	output := &PlanOutput{Revision: "0a1b2c", Unchanged: []string{"a.png", "b.png"}}

	printPlan(&buf, output, incremental.NewChangeSet())

	want := "Revision 0a1b2c changes nothing under the asset directory (2 unchanged)\n"
	if buf.String() != want {
		t.Errorf("printPlan() = %q, want %q", buf.String(), want)
	}
}

func TestPrintPlan_ChangesWithoutAssets(t *testing.T) {
	var buf bytes.Buffer
	cs := incremental.NewChangeSet()
	cs.Modified = []string{"/repo/assets/notes.txt"}
	output := &PlanOutput{Revision: "0a1b2c", Modified: cs.Modified, Unchanged: []string{"a.png"}}

	printPlan(&buf, output, cs)

	if !strings.Contains(buf.String(), "touches no assets (1 changed, 1 unchanged)") {
		t.Errorf("printPlan() = %q", buf.String())
	}
}

func TestPrintPlan_AffectedDirsFromInfo(t *testing.T) {
	cs := incremental.NewChangeSet()
	cs.Modified = []string{"/repo/assets/ui/b.png"}
	output := &PlanOutput{
		Revision:     "0a1b2c",
		Modified:     cs.Modified,
		AffectedDirs: cs.AffectedDirs(),
		Rebuild:      []string{"ui/b.png"},
	}
	t.Cleanup(func() { log.Init(log.VerbosityWarn, "text") })

	var quiet bytes.Buffer
	log.Init(log.VerbosityWarn, "text")
	printPlan(&quiet, output, cs)
	if strings.Contains(quiet.String(), "Affected directories") {
		t.Errorf("affected directories should be hidden at verbosity 1, got:\n%s", quiet.String())
	}

	var verbose bytes.Buffer
	log.Init(log.VerbosityInfo, "text")
	printPlan(&verbose, output, cs)
	if !strings.Contains(verbose.String(), "Affected directories (1):\n  /repo/assets/ui\n") {
		t.Errorf("affected directories missing at verbosity 2, got:\n%s", verbose.String())
	}
}
