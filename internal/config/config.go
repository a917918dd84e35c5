package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config holds all externally supplied settings. The core only ever
// reads these; nothing in claudest writes the config file.
type Config struct {
	DBPath                 string   `toml:"db_path"`
	Roots                  []string `toml:"roots"`
	ExcludeProjects        []string `toml:"exclude_projects"`
	ContextTruncationLimit int      `toml:"context_truncation_limit"`
	SyncOnStop             bool     `toml:"sync_on_stop"`
	LoggingEnabled         bool     `toml:"logging_enabled"`
	LogPath                string   `toml:"log_path"`
}

func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	cfgPath := filepath.Join(home, ".config", "claudest", "config.toml")
	return loadFrom(cfgPath, home)
}

func loadFrom(cfgPath, home string) (*Config, error) {
	cfg := &Config{
		DBPath:                 filepath.Join(home, ".claudest", "conversations.db"),
		Roots:                  []string{filepath.Join(home, ".claude", "projects")},
		ContextTruncationLimit: 2000,
		SyncOnStop:             true,
		LogPath:                filepath.Join(home, ".claudest", "claudest.log"),
	}

	if _, err := os.Stat(cfgPath); err == nil {
		if _, err := toml.DecodeFile(cfgPath, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", cfgPath, err)
		}
	}

	cfg.DBPath = expandHome(cfg.DBPath, home)
	cfg.LogPath = expandHome(cfg.LogPath, home)
	for i, r := range cfg.Roots {
		cfg.Roots[i] = expandHome(r, home)
	}

	return cfg, nil
}

func expandHome(path, home string) string {
	if len(path) > 1 && path[0] == '~' && path[1] == '/' {
		return filepath.Join(home, path[2:])
	}
	return path
}
