// Package synkitconfig provides unified configuration loading for synkit
// tools.
//
// Configuration lives in a synth.toml file, discovered by walking up the
// directory tree from the working directory (stopping at the repository
// root). A specific file can also be forced via:
//   - SYNKIT_CONFIG environment variable
//   - -config flag on individual tools
package synkitconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// ConfigTOML is the config filename discovered in working trees.
const ConfigTOML = "synth.toml"

// EnvConfig is the environment variable for specifying config file path.
const EnvConfig = "SYNKIT_CONFIG"

// Config represents the unified synkit configuration.
type Config struct {
	// Server contains language server tuning.
	Server ServerConfig `json:"server" toml:"server"`

	// Debug contains debug adapter tuning.
	Debug DebugConfig `json:"debug" toml:"debug"`

	// Fmt contains formatter settings.
	Fmt FmtConfig `json:"fmt" toml:"fmt"`

	// Analysis contains diagnostics rule selection.
	Analysis AnalysisConfig `json:"analysis" toml:"analysis"`
}

// ServerConfig contains language server tuning.
type ServerConfig struct {
	// DebounceMS is the quiet period after an edit burst before
	// diagnostics run, in milliseconds. Zero uses the server default.
	DebounceMS int `json:"debounce_ms" toml:"debounce_ms"`

	// MaxDiagnostics caps the findings published per document.
	// Zero publishes everything.
	MaxDiagnostics int `json:"max_diagnostics" toml:"max_diagnostics"`
}

// DebounceInterval returns the debounce window as a duration.
func (s ServerConfig) DebounceInterval() time.Duration {
	return time.Duration(s.DebounceMS) * time.Millisecond
}

// DebugConfig contains debug adapter tuning.
type DebugConfig struct {
	// TickIntervalMS paces the run loop between executed lines, in
	// milliseconds. Zero advances as fast as possible.
	TickIntervalMS int `json:"tick_interval_ms" toml:"tick_interval_ms"`

	// UncertaintyPercent is the relative margin attached when tooling
	// adds an uncertainty specifier to a bare number. Zero uses the
	// engine default.
	UncertaintyPercent float64 `json:"uncertainty_percent" toml:"uncertainty_percent"`
}

// TickInterval returns the run loop pacing as a duration.
func (d DebugConfig) TickInterval() time.Duration {
	return time.Duration(d.TickIntervalMS) * time.Millisecond
}

// FmtConfig contains formatter settings.
type FmtConfig struct {
	// Indent is the number of spaces per indentation level.
	Indent int `json:"indent" toml:"indent"`

	// Tabs selects tab indentation. Indent is ignored when set.
	Tabs bool `json:"tabs" toml:"tabs"`

	// MaxBlankLines is the longest run of blank lines kept between
	// statements.
	MaxBlankLines int `json:"max_blank_lines" toml:"max_blank_lines"`
}

// IndentUnit returns the configured indentation unit, or "" when unset so
// the formatter default applies.
func (f FmtConfig) IndentUnit() string {
	if f.Tabs {
		return "\t"
	}
	if f.Indent <= 0 {
		return ""
	}
	return strings.Repeat(" ", f.Indent)
}

// AnalysisConfig contains diagnostics rule selection.
type AnalysisConfig struct {
	// Enable is a list of rules, categories, or glob patterns to enable.
	Enable []string `json:"enable" toml:"enable"`

	// Disable is a list of rules, categories, or glob patterns to disable.
	Disable []string `json:"disable" toml:"disable"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			DebounceMS: 200,
		},
		Debug: DebugConfig{
			UncertaintyPercent: 5,
		},
		Fmt: FmtConfig{
			Indent:        4,
			MaxBlankLines: 1,
		},
	}
}

// LoadConfig loads configuration from the specified path.
// Returns an error if the file doesn't exist or cannot be parsed.
func LoadConfig(path string) (*Config, error) {
	if ext := filepath.Ext(path); ext != ".toml" {
		return nil, fmt.Errorf("unsupported config file extension: %s (expected .toml)", ext)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing TOML config %s: %w", path, err)
	}

	return &cfg, nil
}

// DiscoverConfig searches for a configuration file.
//
// Resolution order:
//  1. If SYNKIT_CONFIG env var is set, use that path
//  2. Walk up from startDir looking for synth.toml
//
// The walk stops at the repository root (the directory containing .git).
// Returns the loaded config, the path to the config file, and any error.
// If no config is found, returns (DefaultConfig(), "", nil).
func DiscoverConfig(startDir string) (*Config, string, error) {
	// Check environment variable first
	if envPath := os.Getenv(EnvConfig); envPath != "" {
		cfg, err := LoadConfig(envPath)
		if err != nil {
			return nil, "", fmt.Errorf("loading config from %s: %w", EnvConfig, err)
		}
		return cfg, envPath, nil
	}

	if startDir == "" {
		var err error
		startDir, err = os.Getwd()
		if err != nil {
			return nil, "", fmt.Errorf("getting working directory: %w", err)
		}
	}

	absDir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, "", fmt.Errorf("resolving path: %w", err)
	}

	// Find git root to limit search
	gitRoot := findGitRoot(absDir)

	// Walk up the directory tree
	dir := absDir
	for {
		configPath := filepath.Join(dir, ConfigTOML)
		if fileExists(configPath) {
			cfg, err := LoadConfig(configPath)
			if err != nil {
				return nil, "", err
			}
			return cfg, configPath, nil
		}

		// Stop at git root
		if gitRoot != "" && dir == gitRoot {
			break
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break // reached filesystem root
		}
		dir = parent
	}

	// No config found, return defaults
	return DefaultConfig(), "", nil
}

// fileExists returns true if the file exists.
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// findGitRoot finds the git repository root from a starting directory.
// Returns empty string if not in a git repository.
func findGitRoot(startDir string) string {
	dir := startDir
	for {
		gitPath := filepath.Join(dir, ".git")
		if fileExists(gitPath) {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "" // reached filesystem root
		}
		dir = parent
	}
}

// Merge merges the other config into this one.
// Non-zero values from other override values in c.
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	if other.Server.DebounceMS != 0 {
		c.Server.DebounceMS = other.Server.DebounceMS
	}
	if other.Server.MaxDiagnostics != 0 {
		c.Server.MaxDiagnostics = other.Server.MaxDiagnostics
	}

	if other.Debug.TickIntervalMS != 0 {
		c.Debug.TickIntervalMS = other.Debug.TickIntervalMS
	}
	if other.Debug.UncertaintyPercent != 0 {
		c.Debug.UncertaintyPercent = other.Debug.UncertaintyPercent
	}

	if other.Fmt.Indent != 0 {
		c.Fmt.Indent = other.Fmt.Indent
	}
	if other.Fmt.Tabs {
		c.Fmt.Tabs = true
	}
	if other.Fmt.MaxBlankLines != 0 {
		c.Fmt.MaxBlankLines = other.Fmt.MaxBlankLines
	}

	if len(other.Analysis.Enable) > 0 {
		c.Analysis.Enable = append(c.Analysis.Enable, other.Analysis.Enable...)
	}
	if len(other.Analysis.Disable) > 0 {
		c.Analysis.Disable = append(c.Analysis.Disable, other.Analysis.Disable...)
	}
}
