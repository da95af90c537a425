// Package config handles loading and saving netdice CLI preferences.
//
// Configuration follows the XDG Base Directory specification:
//   - Config: ~/.config/netdice/config.yaml
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// OutputFormat selects how an exported forwarding/topology graph is
// rendered (pkg/export).
type OutputFormat string

const (
	FormatJSON    OutputFormat = "json"
	FormatDOT     OutputFormat = "dot"
	FormatMermaid OutputFormat = "mermaid"
	FormatSVG     OutputFormat = "svg"
	FormatPNG     OutputFormat = "png"
)

// Config is the top-level CLI preferences for netdice. Load and Save read
// and write it; the commands under cmd/ do not load it, so its values do not
// change their flag defaults.
type Config struct {
	// TargetPrecision is the preferred target precision (what -p sets on
	// the command line).
	TargetPrecision float64 `yaml:"target_precision,omitempty"`
	// LogLevel is the default verbosity ("error", "warn", "info", "debug").
	LogLevel string `yaml:"log_level,omitempty"`
	// OutputFormat is the default export format for forwarding/topology
	// graphs.
	OutputFormat OutputFormat `yaml:"output_format,omitempty"`
	// BatchParallelism is the preferred bound on how many scenarios run
	// concurrently; 0 states no preference.
	BatchParallelism int `yaml:"batch_parallelism,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		TargetPrecision: 1e-5,
		LogLevel:        "info",
		OutputFormat:    FormatJSON,
	}
}

// ConfigDir returns the XDG config directory for netdice.
func ConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "netdice")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "netdice")
}

// ConfigPath returns the full path to config.yaml.
func ConfigPath() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// Load reads the config file from the XDG config directory.
// Returns DefaultConfig if the file doesn't exist.
func Load() (Config, error) {
	path := ConfigPath()
	if path == "" {
		return DefaultConfig(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads config from a specific path.
// Returns DefaultConfig if the file doesn't exist.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// Save writes the config to the XDG config directory.
func Save(cfg Config) error {
	path := ConfigPath()
	if path == "" {
		return fmt.Errorf("cannot determine config directory")
	}
	return SaveTo(cfg, path)
}

// SaveTo writes the config to a specific path.
func SaveTo(cfg Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}
