package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/gupsammy/Claudest/internal/config"
	"github.com/gupsammy/Claudest/internal/query"
	"github.com/gupsammy/Claudest/internal/render"
	"github.com/gupsammy/Claudest/internal/store"
	"github.com/gupsammy/Claudest/internal/tui"
)

func searchCmd() *cobra.Command {
	var maxResults int
	var projects, format string
	var verbose, plain bool

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Keyword search across all conversation history",
		Long: `Full-text search with stemming: every term must match somewhere in a
session for it to qualify. Interactive browser when stdout is a
terminal; markdown or JSON when piped or with --plain.`,
		Args: cobra.ExactArgs(1),
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

			if !plain && format == "markdown" && term.IsTerminal(int(os.Stdout.Fd())) {
				resume, err := tui.Run(st, engine, args[0])
				if err != nil {
					return err
				}
				if resume != "" {
					fmt.Println(resume)
				}
				return nil
			}

			res, err := engine.Search(query.SearchParams{
				Query:      args[0],
				MaxResults: maxResults,
				Projects:   projects,
				Verbose:    verbose,
			})
			if err != nil {
				return err
			}

			if format == "json" {
				out, err := render.SearchJSON(res)
				if err != nil {
					return err
				}
				fmt.Println(out)
				return nil
			}
			fmt.Print(render.SearchMarkdown(res, verbose))
			return nil
		},
	}

	cmd.Flags().IntVar(&maxResults, "max-results", query.DefaultHits, "Max sessions (1-10)")
	cmd.Flags().StringVar(&projects, "project", "", "Filter by project name(s), comma-separated")
	cmd.Flags().StringVar(&format, "format", "markdown", "Output format (markdown/json)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Full conversations and files/commits instead of excerpts")
	cmd.Flags().BoolVar(&plain, "plain", false, "Skip the interactive browser")

	return cmd
}
