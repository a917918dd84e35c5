package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	home := t.TempDir()

	cfg, err := loadFrom(filepath.Join(home, "nope.toml"), home)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, ".claudest", "conversations.db"), cfg.DBPath)
	assert.Equal(t, []string{filepath.Join(home, ".claude", "projects")}, cfg.Roots)
	assert.Equal(t, 2000, cfg.ContextTruncationLimit)
	assert.True(t, cfg.SyncOnStop)
	assert.False(t, cfg.LoggingEnabled)
}

func TestLoadOverrides(t *testing.T) {
	home := t.TempDir()
	cfgPath := filepath.Join(home, "config.toml")

	content := `
db_path = "~/custom/mem.db"
roots = ["~/logs/a", "/abs/b"]
exclude_projects = ["scratch"]
context_truncation_limit = 500
sync_on_stop = false
logging_enabled = true
`
	require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0o644))

	cfg, err := loadFrom(cfgPath, home)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, "custom", "mem.db"), cfg.DBPath)
	assert.Equal(t, []string{filepath.Join(home, "logs", "a"), "/abs/b"}, cfg.Roots)
	assert.Equal(t, []string{"scratch"}, cfg.ExcludeProjects)
	assert.Equal(t, 500, cfg.ContextTruncationLimit)
	assert.False(t, cfg.SyncOnStop)
	assert.True(t, cfg.LoggingEnabled)
}

func TestLoadBadToml(t *testing.T) {
	home := t.TempDir()
	cfgPath := filepath.Join(home, "config.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("db_path = [broken"), 0o644))

	_, err := loadFrom(cfgPath, home)
	assert.Error(t, err)
}
