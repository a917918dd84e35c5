package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gupsammy/Claudest/internal/config"
	"github.com/gupsammy/Claudest/internal/store"
)

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show store size and row counts without writing anything",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			if _, err := os.Stat(cfg.DBPath); os.IsNotExist(err) {
				fmt.Printf("Database: %s (not found, run 'claudest import' first)\n", cfg.DBPath)
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

			fmt.Printf("Database: %s\n", cfg.DBPath)
			fmt.Printf("Size: %.2f MB\n", float64(stats.SizeBytes)/1024/1024)
			fmt.Printf("Projects: %d\n", stats.Projects)
			fmt.Printf("Sessions: %d\n", stats.Sessions)
			fmt.Printf("Messages: %d\n", stats.Messages)
			return nil
		},
	}
}
