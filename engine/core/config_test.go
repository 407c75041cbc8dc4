package core

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "info")
	}
	if cfg.Renderer.CacheShardCapacity != 256 {
		t.Errorf("CacheShardCapacity = %d, want 256", cfg.Renderer.CacheShardCapacity)
	}
	if cfg.Renderer.WatchShaders {
		t.Error("WatchShaders defaults to true, want false")
	}
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "magma.toml")
	content := `
log_level = "debug"

[renderer]
cache_shard_capacity = 64
watch_shaders = true
shader_dir = "build/shaders"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "debug")
	}
	if cfg.Renderer.CacheShardCapacity != 64 {
		t.Errorf("CacheShardCapacity = %d, want 64", cfg.Renderer.CacheShardCapacity)
	}
	if !cfg.Renderer.WatchShaders {
		t.Error("WatchShaders = false, want true")
	}
	if cfg.Renderer.ShaderDir != "build/shaders" {
		t.Errorf("ShaderDir = %q, want %q", cfg.Renderer.ShaderDir, "build/shaders")
	}
}

func TestLoadConfigKeepsDefaultsForMissingKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "magma.toml")
	if err := os.WriteFile(path, []byte(`log_level = "warn"`), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "warn")
	}
	if cfg.Renderer.CacheShardCapacity != 256 {
		t.Errorf("CacheShardCapacity = %d, want default 256", cfg.Renderer.CacheShardCapacity)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Error("LoadConfig of a missing file succeeded, want error")
	}
}
