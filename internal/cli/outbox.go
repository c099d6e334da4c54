package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"survey-runner/internal/app"
	"survey-runner/internal/config"
	"survey-runner/internal/domain"
	"survey-runner/internal/infra/couch"
	"survey-runner/internal/infra/sqlite"
)

func newOutboxCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "outbox",
		Short: "Inspect and retry queued submissions",
	}
	cmd.AddCommand(
		newOutboxListCmd(configPath),
		newOutboxShowCmd(configPath),
		newOutboxRetryCmd(configPath),
		newOutboxDiscardCmd(configPath),
	)
	return cmd
}

func newOutboxListCmd(configPath *string) *cobra.Command {
	var teamID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queued submissions, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			outbox, _, cleanup, err := openEnv(*configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			entries, err := outbox.ListByTeam(cmd.Context(), teamID)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Println("outbox is empty")
				return nil
			}
			for _, entry := range entries {
				team := entry.TeamName
				if team == "" {
					team = "-"
				}
				fmt.Printf("%d\t%s\t%s\t%s\t%s\t%s\n",
					entry.LocalID,
					entry.EnqueuedAt.Format("2006-01-02 15:04:05"),
					entry.SurveyName,
					team,
					entry.Submission.Type,
					domain.StatusPending,
				)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&teamID, "team", "", "only entries for this team id")
	return cmd
}

func newOutboxShowCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "show <local-id>",
		Short: "Print a queued submission as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			localID, err := parseLocalID(args[0])
			if err != nil {
				return err
			}
			outbox, _, cleanup, err := openEnv(*configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			entry, err := outbox.Get(cmd.Context(), localID)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(entry)
		},
	}
}

func newOutboxRetryCmd(configPath *string) *cobra.Command {
	var onConflict string
	cmd := &cobra.Command{
		Use:   "retry <local-id>",
		Short: "Re-attempt delivery after verifying the questionnaire revision",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			localID, err := parseLocalID(args[0])
			if err != nil {
				return err
			}
			if onConflict != "keep" && onConflict != "discard" {
				return fmt.Errorf("--on-conflict must be keep or discard")
			}
			outbox, gateway, cleanup, err := openEnv(*configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			resolver := app.NewConflictResolver(gateway, outbox)
			result, err := resolver.Retry(cmd.Context(), localID)
			if err != nil {
				return err
			}
			switch result.Outcome {
			case app.RetryDelivered:
				fmt.Printf("delivered as %s (rev %s); entry %d removed\n", result.Ref.ID, result.Ref.Rev, localID)
			case app.RetryUnverifiable:
				fmt.Printf("unable to verify the questionnaire revision; entry %d kept, retry later\n", localID)
			case app.RetryConflict:
				fmt.Printf("questionnaire changed (local %s, remote %s)\n", result.LocalRev, result.RemoteRev)
				if onConflict == "discard" {
					if _, err := resolver.Discard(cmd.Context(), localID); err != nil {
						return err
					}
					fmt.Printf("entry %d discarded\n", localID)
				} else {
					fmt.Printf("entry %d kept\n", localID)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&onConflict, "on-conflict", "keep", "what to do when the questionnaire changed: keep or discard")
	return cmd
}

func newOutboxDiscardCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "discard <local-id>",
		Short: "Remove a queued submission without sending it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			localID, err := parseLocalID(args[0])
			if err != nil {
				return err
			}
			outbox, _, cleanup, err := openEnv(*configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			deleted, err := outbox.Delete(cmd.Context(), localID)
			if err != nil {
				return err
			}
			if !deleted {
				return fmt.Errorf("entry %d: %w", localID, domain.ErrEntryNotFound)
			}
			fmt.Printf("entry %d discarded\n", localID)
			return nil
		},
	}
}

// openEnv builds the outbox service and gateway from config, applying
// migrations so the commands work on a fresh database.
func openEnv(configPath string) (*app.OutboxService, app.SubmissionGateway, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, err
	}
	if cfg.Outbox.Path == "" {
		return nil, nil, nil, fmt.Errorf("outbox path not configured")
	}
	if err := runMigrationsWithConfig(context.Background(), cfg); err != nil {
		return nil, nil, nil, err
	}

	db, err := sqlite.Open(cfg.Outbox.Path)
	if err != nil {
		return nil, nil, nil, err
	}
	outbox := app.NewOutboxService(sqlite.NewOutbox(db))
	gateway := couch.NewGateway(couch.Config{
		BaseURL:  cfg.Store.URL,
		Database: cfg.Store.Database,
		Username: cfg.Store.Username,
		Password: cfg.Store.Password,
	})
	cleanup := func() { _ = db.Close() }
	return outbox, gateway, cleanup, nil
}

func parseLocalID(raw string) (int64, error) {
	localID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid local id %q", raw)
	}
	return localID, nil
}
