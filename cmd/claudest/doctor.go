package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gupsammy/Claudest/internal/config"
	"github.com/gupsammy/Claudest/internal/ingest"
	"github.com/gupsammy/Claudest/internal/store"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Self-check: verify roots, store, FTS index, and checkpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}

			fmt.Println("=== Roots ===")
			for _, r := range cfg.Roots {
				checkDir(r)
			}

			fmt.Println("\n=== File Scan ===")
			files, err := ingest.Discover(cfg.Roots)
			if err != nil {
				fmt.Printf("  scan error: %v\n", err)
			} else {
				fmt.Printf("  Transcript files: %d\n", len(files))
			}

			fmt.Println("\n=== Database ===")
			fmt.Printf("  Path: %s\n", cfg.DBPath)
			if _, err := os.Stat(cfg.DBPath); os.IsNotExist(err) {
				fmt.Println("  Status: NOT FOUND (run 'claudest import' first)")
				return nil
			}

			st, err := store.Open(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer st.Close()

			stats, err := st.Stats()
			if err != nil {
				return fmt.Errorf("stats: %w", err)
			}
			fmt.Printf("  Projects: %d\n", stats.Projects)
			fmt.Printf("  Sessions: %d\n", stats.Sessions)
			fmt.Printf("  Messages: %d\n", stats.Messages)

			fmt.Println("\n=== FTS ===")
			var ftsCount int64
			if err := st.Raw().QueryRow("SELECT COUNT(*) FROM messages_fts").Scan(&ftsCount); err != nil {
				fmt.Printf("  FTS error: %v\n", err)
			} else {
				fmt.Printf("  FTS entries: %d\n", ftsCount)
				if ftsCount == stats.Messages {
					fmt.Println("  Status: OK (synced)")
				} else {
					fmt.Printf("  Status: MISMATCH (messages=%d, fts=%d)\n", stats.Messages, ftsCount)
				}
			}

			fmt.Println("\n=== Checkpoints ===")
			var complete, partial int64
			st.Raw().QueryRow("SELECT COUNT(*) FROM checkpoints WHERE status = 'complete'").Scan(&complete)
			st.Raw().QueryRow("SELECT COUNT(*) FROM checkpoints WHERE status = 'partial'").Scan(&partial)
			fmt.Printf("  Complete: %d\n", complete)
			fmt.Printf("  Partial:  %d\n", partial)

			fmt.Printf("\n=== DB Size: %.1f MB ===\n", float64(stats.SizeBytes)/1024/1024)
			return nil
		},
	}
}

func checkDir(path string) {
	if info, err := os.Stat(path); err != nil {
		fmt.Printf("  %s (NOT FOUND)\n", path)
	} else if !info.IsDir() {
		fmt.Printf("  %s (NOT A DIRECTORY)\n", path)
	} else {
		fmt.Printf("  %s (OK)\n", path)
	}
}
