// Package config provides configuration management for assetpack.
// It supports multi-layer configuration with precedence:
//  1. Built-in defaults (lowest priority)
//  2. Global user config (~/.config/assetpack/config.toml)
//  3. Project config (.assetpack/config.toml or assetpack.toml)
//  4. Environment variables (ASSETPACK_*)
//  5. CLI flags (highest priority)
package config

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

// ErrInvalid is wrapped by every error returned from Validate.
var ErrInvalid = errors.New("invalid configuration")

// Archivers are the accepted values of build.archiver.
var Archivers = []string{"auto", "zip", "7z"}

// LogFormats are the accepted values of log.format.
var LogFormats = []string{"text", "json"}

// Config is the main configuration struct for assetpack.
type Config struct {
	// Build configures how archives are produced.
	Build BuildConfig `toml:"build"`

	// Scan configures the asset tree walk.
	Scan ScanConfig `toml:"scan"`

	// Log configures diagnostics.
	Log LogConfig `toml:"log"`
}

// BuildConfig holds build settings.
type BuildConfig struct {
	// Archiver selects the archive backend ("auto", "zip" or "7z").
	// "auto" uses 7z when it is on PATH and the built-in zip writer otherwise.
	Archiver string `toml:"archiver"`

	// Jobs is the number of assets built concurrently.
	Jobs int `toml:"jobs"`

	// ToolTimeout bounds each external tool invocation (e.g. "5m", "30s").
	ToolTimeout string `toml:"tool_timeout"`
}

// ScanConfig holds asset scanning settings.
type ScanConfig struct {
	// Ignore lists doublestar patterns (e.g. "**/drafts") matched against
	// directory paths relative to the asset root. Matching directories are
	// skipped.
	Ignore []string `toml:"ignore"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	// Verbosity is 0 (errors) through 4 (trace).
	Verbosity *int `toml:"verbosity"`

	// Format is "text" or "json".
	Format string `toml:"format"`
}

// NewConfig creates a new Config with built-in defaults.
func NewConfig() *Config {
	verbosity := 1
	return &Config{
		Build: BuildConfig{
			Archiver:    "auto",
			Jobs:        1,
			ToolTimeout: "5m",
		},
		Scan: ScanConfig{
			Ignore: []string{},
		},
		Log: LogConfig{
			Verbosity: &verbosity,
			Format:    "text",
		},
	}
}

// Merge merges another config into this one (other takes precedence).
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	if other.Build.Archiver != "" {
		c.Build.Archiver = other.Build.Archiver
	}
	if other.Build.Jobs != 0 {
		c.Build.Jobs = other.Build.Jobs
	}
	if other.Build.ToolTimeout != "" {
		c.Build.ToolTimeout = other.Build.ToolTimeout
	}

	if len(other.Scan.Ignore) > 0 {
		c.Scan.Ignore = other.Scan.Ignore
	}

	if other.Log.Verbosity != nil {
		c.Log.Verbosity = other.Log.Verbosity
	}
	if other.Log.Format != "" {
		c.Log.Format = other.Log.Format
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if !slices.Contains(Archivers, c.Build.Archiver) {
		return fmt.Errorf("%w: build.archiver %q (want one of %v)", ErrInvalid, c.Build.Archiver, Archivers)
	}
	if c.Build.Jobs < 1 {
		return fmt.Errorf("%w: build.jobs must be at least 1, got %d", ErrInvalid, c.Build.Jobs)
	}
	if _, err := c.ToolTimeoutDuration(); err != nil {
		return err
	}
	for _, pattern := range c.Scan.Ignore {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("%w: scan.ignore pattern %q", ErrInvalid, pattern)
		}
	}
	if c.Log.Verbosity != nil && (*c.Log.Verbosity < 0 || *c.Log.Verbosity > 4) {
		return fmt.Errorf("%w: log.verbosity must be between 0 and 4, got %d", ErrInvalid, *c.Log.Verbosity)
	}
	if !slices.Contains(LogFormats, c.Log.Format) {
		return fmt.Errorf("%w: log.format %q (want one of %v)", ErrInvalid, c.Log.Format, LogFormats)
	}
	return nil
}

// ToolTimeoutDuration parses build.tool_timeout.
func (c *Config) ToolTimeoutDuration() (time.Duration, error) {
	d, err := time.ParseDuration(c.Build.ToolTimeout)
	if err != nil {
		return 0, fmt.Errorf("%w: build.tool_timeout: %w", ErrInvalid, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%w: build.tool_timeout must be positive, got %s", ErrInvalid, d)
	}
	return d, nil
}

// LogVerbosity returns the configured verbosity, or 1 when unset.
func (c *Config) LogVerbosity() int {
	if c.Log.Verbosity == nil {
		return 1
	}
	return *c.Log.Verbosity
}
