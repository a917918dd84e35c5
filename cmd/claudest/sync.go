package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/gupsammy/Claudest/internal/config"
	"github.com/gupsammy/Claudest/internal/ingest"
	"github.com/gupsammy/Claudest/internal/store"
)

// hookInput is the Stop-hook payload; only session_id matters here.
type hookInput struct {
	SessionID string `json:"session_id"`
}

type hookOutput struct {
	Continue       bool `json:"continue"`
	SuppressOutput bool `json:"suppressOutput,omitempty"`
}

func syncCmd() *cobra.Command {
	var sessionID string
	var hook bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Incrementally sync one session's transcript into the store",
		Long: `Ingests the unread suffix of a single session. With --hook the
session id is read from the hook JSON on stdin and the command never
fails: sync errors are logged and swallowed so the hook caller is never
blocked on them.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				if hook {
					return printHookOutput(false)
				}
				return fmt.Errorf("load config: %w", err)
			}
			log := newLogger(cfg)

			if hook {
				var in hookInput
				if err := json.NewDecoder(os.Stdin).Decode(&in); err == nil {
					sessionID = in.SessionID
				}
				if !cfg.SyncOnStop {
					return printHookOutput(false)
				}
			}

			if _, err := uuid.Parse(sessionID); err != nil {
				if hook {
					return printHookOutput(false)
				}
				return fmt.Errorf("invalid session id %q: %w", sessionID, err)
			}

			added, err := runSync(cfg, log, sessionID)
			if err != nil {
				log.Error("sync failed", "session", sessionID, "err", err)
				if hook {
					return printHookOutput(false)
				}
				return err
			}
			log.Info("sync done", "session", sessionID, "added", added)

			if hook {
				return printHookOutput(added > 0)
			}
			fmt.Printf("Synced %s: %d new messages\n", sessionID, added)
			return nil
		},
	}

	cmd.Flags().StringVar(&sessionID, "session", "", "Session uuid to sync")
	cmd.Flags().BoolVar(&hook, "hook", false, "Read hook JSON from stdin; never fail")

	return cmd
}

func runSync(cfg *config.Config, log *slog.Logger, sessionID string) (int64, error) {
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return 0, fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	engine := ingest.New(st, cfg.Roots, cfg.ExcludeProjects, log)
	return engine.SyncSession(sessionID)
}

func printHookOutput(suppress bool) error {
	out, err := json.Marshal(hookOutput{Continue: true, SuppressOutput: suppress})
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
