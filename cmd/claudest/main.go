package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/gupsammy/Claudest/internal/config"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:     "claudest",
		Short:   "Claudest - persist and search Claude Code conversation history",
		Version: version,
	}

	rootCmd.AddCommand(importCmd())
	rootCmd.AddCommand(syncCmd())
	rootCmd.AddCommand(recentCmd())
	rootCmd.AddCommand(searchCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(doctorCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

const maxLogSize = 1 << 20 // 1MB

// newLogger builds the sync logger. Disabled logging gets a discard
// handler; enabled logging appends to the configured file, starting
// over once it outgrows maxLogSize.
func newLogger(cfg *config.Config) *slog.Logger {
	if !cfg.LoggingEnabled {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if err := os.MkdirAll(filepath.Dir(cfg.LogPath), 0o755); err != nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	flags := os.O_CREATE | os.O_WRONLY | os.O_APPEND
	if info, err := os.Stat(cfg.LogPath); err == nil && info.Size() > maxLogSize {
		flags = os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	}
	f, err := os.OpenFile(cfg.LogPath, flags, 0o644)
	if err != nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewTextHandler(f, nil))
}
