package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.TargetPrecision != 1e-5 {
		t.Errorf("expected default precision 1e-5, got %v", cfg.TargetPrecision)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("expected default log level 'info', got %q", cfg.LogLevel)
	}
	if cfg.OutputFormat != FormatJSON {
		t.Errorf("expected default output format json, got %q", cfg.OutputFormat)
	}
}

func TestLoadFrom_NonExistent(t *testing.T) {
	cfg, err := LoadFrom("/nonexistent/path/config.yaml")
	if err != nil {
		t.Fatalf("expected no error for missing file, got: %v", err)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("expected default config, got log level %q", cfg.LogLevel)
	}
}

func TestLoadFrom_ValidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
target_precision: 0.001
log_level: debug
output_format: dot
batch_parallelism: 4
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.TargetPrecision != 0.001 {
		t.Errorf("expected precision 0.001, got %v", cfg.TargetPrecision)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("expected log level 'debug', got %q", cfg.LogLevel)
	}
	if cfg.OutputFormat != FormatDOT {
		t.Errorf("expected output format dot, got %q", cfg.OutputFormat)
	}
	if cfg.BatchParallelism != 4 {
		t.Errorf("expected batch parallelism 4, got %d", cfg.BatchParallelism)
	}
}

func TestLoadFrom_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	if err := os.WriteFile(path, []byte("{{invalid yaml"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadFrom(path)
	if err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestSaveAndLoad_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	cfg := Config{
		TargetPrecision:  1e-7,
		LogLevel:         "warn",
		OutputFormat:     FormatMermaid,
		BatchParallelism: 8,
	}

	if err := SaveTo(cfg, path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("Load after save failed: %v", err)
	}

	if loaded.TargetPrecision != cfg.TargetPrecision {
		t.Errorf("expected precision %v, got %v", cfg.TargetPrecision, loaded.TargetPrecision)
	}
	if loaded.LogLevel != cfg.LogLevel {
		t.Errorf("expected log level %q, got %q", cfg.LogLevel, loaded.LogLevel)
	}
	if loaded.OutputFormat != cfg.OutputFormat {
		t.Errorf("expected output format %q, got %q", cfg.OutputFormat, loaded.OutputFormat)
	}
	if loaded.BatchParallelism != cfg.BatchParallelism {
		t.Errorf("expected batch parallelism %d, got %d", cfg.BatchParallelism, loaded.BatchParallelism)
	}
}

func TestConfigDir_XDGOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	got := ConfigDir()
	expected := filepath.Join(dir, "netdice")
	if got != expected {
		t.Errorf("expected %q, got %q", expected, got)
	}
}

func TestConfigPath(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	got := ConfigPath()
	expected := filepath.Join(dir, "netdice", "config.yaml")
	if got != expected {
		t.Errorf("expected %q, got %q", expected, got)
	}
}
