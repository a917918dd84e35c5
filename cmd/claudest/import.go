package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gupsammy/Claudest/internal/config"
	"github.com/gupsammy/Claudest/internal/ingest"
	"github.com/gupsammy/Claudest/internal/store"
)

func importCmd() *cobra.Command {
	var exclude []string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Scan all transcript roots and ingest unread conversation data",
		Long: `Walks the configured roots for session transcripts and ingests the
unread portion of each changed file. Unchanged files are skipped via
their checkpoints, so running import repeatedly is cheap and idempotent.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if len(exclude) > 0 {
				cfg.ExcludeProjects = append(cfg.ExcludeProjects, exclude...)
			}

			st, err := store.Open(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer st.Close()

			fmt.Fprintf(os.Stderr, "Scanning roots...\n")
			for _, r := range cfg.Roots {
				fmt.Fprintf(os.Stderr, "  %s\n", r)
			}

			engine := ingest.New(st, cfg.Roots, cfg.ExcludeProjects, newLogger(cfg))
			stats, err := engine.ImportAll()
			if err != nil {
				return fmt.Errorf("import: %w", err)
			}

			fmt.Fprintf(os.Stderr, "Done. %s\n", stats)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&exclude, "exclude", nil, "Additional project names to exclude")

	return cmd
}
