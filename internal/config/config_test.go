package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ArchiveRetention != 10 {
		t.Fatalf("expected default retention 10, got %d", cfg.ArchiveRetention)
	}
	if cfg.FetchTimeout != 30*time.Second {
		t.Fatalf("expected default fetch timeout 30s, got %v", cfg.FetchTimeout)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := "archive_retention = 3\nmax_concurrent_ops = 7\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ArchiveRetention != 3 {
		t.Fatalf("expected retention 3, got %d", cfg.ArchiveRetention)
	}
	if cfg.MaxConcurrentOps != 7 {
		t.Fatalf("expected max_concurrent_ops 7, got %d", cfg.MaxConcurrentOps)
	}
	if cfg.FetchTimeout != 30*time.Second {
		t.Fatalf("expected fetch_timeout to keep default, got %v", cfg.FetchTimeout)
	}
}

func TestApplyEnvOverrides_WinsOverFile(t *testing.T) {
	t.Setenv("BLZ_ARCHIVE_RETENTION", "42")
	cfg := Defaults()
	cfg.ArchiveRetention = 3
	ApplyEnvOverrides(&cfg)
	if cfg.ArchiveRetention != 42 {
		t.Fatalf("expected env override to win, got %d", cfg.ArchiveRetention)
	}
}

func TestEffective_SourceOverridesApplyOnTopOfGlobal(t *testing.T) {
	global := Defaults()
	global.ArchiveRetention = 10
	disabled := false
	src := SourceOverrides{ArchiveRetention: 2, FetchEnabled: &disabled}
	eff := Effective(global, src)
	if eff.ArchiveRetention != 2 {
		t.Fatalf("expected source override to win, got %d", eff.ArchiveRetention)
	}
	if eff.FetchEnabled {
		t.Fatalf("expected fetch_enabled overridden to false")
	}
	if eff.FetchTimeout != global.FetchTimeout {
		t.Fatalf("expected unset field to inherit global")
	}
}

func TestLoadSourceOverrides_MissingFileIsZeroValue(t *testing.T) {
	o, err := LoadSourceOverrides(filepath.Join(t.TempDir(), "settings.toml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o.FetchEnabled != nil || o.ArchiveRetention != 0 {
		t.Fatalf("expected zero-value overrides, got %+v", o)
	}
}
