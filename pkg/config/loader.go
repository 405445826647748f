package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/albertocavalcante/assetpack/internal/log"
)

// ConfigFileName is the name of the project-level config file.
const ConfigFileName = "assetpack.toml"

// ConfigDirName is the name of the project-level config directory.
const ConfigDirName = ".assetpack"

// GlobalConfigDir is the name of the global config directory inside user's config.
const GlobalConfigDir = "assetpack"

// Load loads configuration from all layers in order of precedence:
//  1. Built-in defaults
//  2. Global user config (~/.config/assetpack/config.toml)
//  3. Project config (.assetpack/config.toml or assetpack.toml)
//  4. Environment variables (ASSETPACK_*)
//
// CLI flags are applied separately after Load() returns.
func Load() *Config {
	wd, err := os.Getwd()
	if err != nil {
		wd = ""
	}
	return LoadFrom(wd)
}

// LoadFrom loads configuration starting from a specific directory.
func LoadFrom(dir string) *Config {
	cfg := NewConfig()

	// Layer 2: Global user config
	if globalCfg := loadGlobalConfig(); globalCfg != nil {
		cfg.Merge(globalCfg)
	}

	// Layer 3: Project config
	if dir != "" {
		if projectCfg := loadProjectConfigFrom(dir); projectCfg != nil {
			cfg.Merge(projectCfg)
		}
	}

	// Layer 4: Environment variables
	applyEnvironmentVariables(cfg)

	return cfg
}

// loadGlobalConfig loads the global user configuration from ~/.config/assetpack/config.toml.
func loadGlobalConfig() *Config {
	path := GetGlobalConfigPath()
	if path == "" {
		return nil
	}
	return loadConfigFile(path)
}

// loadProjectConfigFrom looks for project configuration starting from the given directory.
func loadProjectConfigFrom(dir string) *Config {
	current := dir
	for {
		for _, path := range GetProjectConfigPaths(current) {
			if cfg := loadConfigFile(path); cfg != nil {
				return cfg
			}
		}

		// Stop at filesystem root or repository root
		if isWorkspaceRoot(current) {
			break
		}

		parent := filepath.Dir(current)
		if parent == current {
			break
		}
		current = parent
	}

	return nil
}

// isWorkspaceRoot checks if the directory is a repository root.
func isWorkspaceRoot(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ".git"))
	return err == nil
}

// loadConfigFile loads a configuration from a TOML file. A file that exists
// but does not parse is logged and ignored.
func loadConfigFile(path string) *Config {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		log.Component("config").Warn("ignoring unreadable config file", "path", path, "error", err)
		return nil
	}

	log.Component("config").Debug("loaded config file", "path", path)
	return &cfg
}

// applyEnvironmentVariables applies ASSETPACK_* environment variables to the config.
func applyEnvironmentVariables(cfg *Config) {
	if v := os.Getenv("ASSETPACK_ARCHIVER"); v != "" {
		cfg.Build.Archiver = strings.ToLower(strings.TrimSpace(v))
	}
	applyIntEnv("ASSETPACK_JOBS", &cfg.Build.Jobs)
	if v := os.Getenv("ASSETPACK_TOOL_TIMEOUT"); v != "" {
		cfg.Build.ToolTimeout = strings.TrimSpace(v)
	}

	// ASSETPACK_IGNORE: comma-separated ignore patterns
	if v := os.Getenv("ASSETPACK_IGNORE"); v != "" {
		cfg.Scan.Ignore = splitAndTrim(v)
	}

	if v := os.Getenv("ASSETPACK_VERBOSITY"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			cfg.Log.Verbosity = &n
		}
	}
	if v := os.Getenv("ASSETPACK_LOG_FORMAT"); v != "" {
		cfg.Log.Format = strings.ToLower(strings.TrimSpace(v))
	}
}

// splitAndTrim splits a comma-separated string and trims whitespace.
func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// applyIntEnv applies an integer environment variable. Unparsable values are
// ignored.
func applyIntEnv(envVar string, target *int) {
	if v := os.Getenv(envVar); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			*target = n
		}
	}
}

// GetGlobalConfigPath returns the path to the global config file.
func GetGlobalConfigPath() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(configDir, GlobalConfigDir, "config.toml")
}

// GetProjectConfigPaths returns potential project config paths for a given directory.
func GetProjectConfigPaths(dir string) []string {
	return []string{
		filepath.Join(dir, ConfigDirName, "config.toml"),
		filepath.Join(dir, ConfigFileName),
	}
}
