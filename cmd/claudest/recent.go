package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gupsammy/Claudest/internal/config"
	"github.com/gupsammy/Claudest/internal/query"
	"github.com/gupsammy/Claudest/internal/render"
	"github.com/gupsammy/Claudest/internal/store"
)

func recentCmd() *cobra.Command {
	var n int
	var sortOrder, before, after, projects, format string
	var verbose bool

	cmd := &cobra.Command{
		Use:   "recent",
		Short: "Show the most recent sessions with their full conversations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			st, err := store.Open(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer st.Close()

			engine := query.New(st, cfg.ContextTruncationLimit)
			res, err := engine.Recent(query.RecentParams{
				N:         n,
				SortOrder: sortOrder,
				Before:    before,
				After:     after,
				Projects:  projects,
				Verbose:   verbose,
			})
			if err != nil {
				return err
			}

			if format == "json" {
				out, err := render.RecentJSON(res)
				if err != nil {
					return err
				}
				fmt.Println(out)
				return nil
			}
			fmt.Print(render.RecentMarkdown(res, verbose))
			return nil
		},
	}

	cmd.Flags().IntVarP(&n, "n", "n", query.DefaultRecentN, "Number of sessions (1-20)")
	cmd.Flags().StringVar(&sortOrder, "sort-order", "desc", "Sort order by start time (asc/desc)")
	cmd.Flags().StringVar(&before, "before", "", "Sessions started before this time (ISO date or datetime)")
	cmd.Flags().StringVar(&after, "after", "", "Sessions started after this time (ISO date or datetime)")
	cmd.Flags().StringVar(&projects, "project", "", "Filter by project name(s), comma-separated")
	cmd.Flags().StringVar(&format, "format", "markdown", "Output format (markdown/json)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Include files_modified and commits")

	return cmd
}
