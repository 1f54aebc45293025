package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := defaults()
	if *cfg != want {
		t.Fatalf("Load() = %+v, want %+v", *cfg, want)
	}
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := defaults()
	if *cfg != want {
		t.Fatalf("Load() = %+v, want %+v", *cfg, want)
	}
}

func TestLoadOverridesAndFillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := `
[daemon]
interface = "eth1"
namespace = "lab"
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Daemon.Interface != "eth1" {
		t.Fatalf("Interface = %q, want eth1", cfg.Daemon.Interface)
	}
	if cfg.Daemon.Namespace != "lab" {
		t.Fatalf("Namespace = %q, want lab", cfg.Daemon.Namespace)
	}
	// LogLevel and MetricsAddr were omitted from the file; defaults fill them in.
	if cfg.Daemon.LogLevel != "info" {
		t.Fatalf("LogLevel = %q, want info", cfg.Daemon.LogLevel)
	}
	if cfg.Daemon.MetricsAddr != ":9120" {
		t.Fatalf("MetricsAddr = %q, want :9120", cfg.Daemon.MetricsAddr)
	}
}
