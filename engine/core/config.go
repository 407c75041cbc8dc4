package core

import (
	"fmt"
	"os"

	toml "github.com/pelletier/go-toml/v2"
)

// RendererConfig tunes the resource cache and shader hot reload.
type RendererConfig struct {
	// CacheShardCapacity is the per-shard entry budget of every
	// get-or-create cache (render passes, framebuffers, pipelines,
	// descriptor sets).
	CacheShardCapacity int `toml:"cache_shard_capacity"`
	// WatchShaders toggles the fsnotify watcher that invalidates cached
	// pipelines when a SPIR-V file changes on disk.
	WatchShaders bool   `toml:"watch_shaders"`
	ShaderDir    string `toml:"shader_dir"`
}

type Config struct {
	LogLevel string         `toml:"log_level"`
	Renderer RendererConfig `toml:"renderer"`
}

// DefaultConfig returns the configuration used when no file is provided.
func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		Renderer: RendererConfig{
			CacheShardCapacity: 256,
			WatchShaders:       false,
			ShaderDir:          "assets/shaders",
		},
	}
}

// LoadConfig reads a TOML configuration file. Missing keys keep their
// defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	SetLogLevel(cfg.LogLevel)

	return cfg, nil
}
