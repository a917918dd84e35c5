package main

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gupsammy/Claudest/internal/config"
)

func testSyncConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	root := filepath.Join(dir, "projects")
	require.NoError(t, os.MkdirAll(root, 0o755))
	return &config.Config{
		DBPath:  filepath.Join(dir, "test.db"),
		Roots:   []string{root},
		LogPath: filepath.Join(dir, "claudest.log"),
	}
}

func TestRunSyncUsesInjectedLogger(t *testing.T) {
	cfg := testSyncConfig(t)
	cfg.LoggingEnabled = true

	// One logger for the whole invocation: runSync must log through it
	// instead of opening the log file a second time.
	log := newLogger(cfg)
	added, err := runSync(cfg, log, "b5c3a1d0-0000-0000-0000-000000000001")
	require.NoError(t, err)
	assert.Zero(t, added)

	data, err := os.ReadFile(cfg.LogPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "no transcript for session")
}

func TestRunSyncMissingSession(t *testing.T) {
	cfg := testSyncConfig(t)

	added, err := runSync(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), "nope")
	require.NoError(t, err)
	assert.Zero(t, added)
}

func TestNewLoggerDisabled(t *testing.T) {
	cfg := testSyncConfig(t)
	cfg.LoggingEnabled = false

	log := newLogger(cfg)
	log.Info("dropped")

	_, err := os.Stat(cfg.LogPath)
	assert.True(t, os.IsNotExist(err))
}

func TestPrintHookOutput(t *testing.T) {
	assert.NoError(t, printHookOutput(true))
	assert.NoError(t, printHookOutput(false))
}
