package cli

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"github.com/uptrace/bun/migrate"

	"survey-runner/internal/config"
	"survey-runner/internal/infra/sqlite"
	sqlitemigrations "survey-runner/internal/infra/sqlite/migrations"
)

// NewMigrateCmd applies the outbox database migrations.
func NewMigrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply outbox database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrations(cmd.Context(), *configPath)
		},
	}
}

func runMigrations(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	return runMigrationsWithConfig(ctx, cfg)
}

func runMigrationsWithConfig(ctx context.Context, cfg config.Config) error {
	if cfg.Outbox.Path == "" {
		return fmt.Errorf("outbox path not configured")
	}

	db, err := sqlite.Open(cfg.Outbox.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	migrator := migrate.NewMigrator(db, sqlitemigrations.Migrations)

	if err := migrator.Init(ctx); err != nil {
		return err
	}

	if _, err := migrator.Migrate(ctx); err != nil {
		return err
	}
	log.Printf("migrations applied")
	return nil
}
