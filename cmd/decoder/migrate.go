package main

import (
	"context"
	"database/sql"

	"github.com/spf13/cobra"

	"contract-decoder/internal/shared/storage/db"
	"contract-decoder/internal/shared/telemetry"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the history database schema",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withMigrationDB(cmd, db.RunMigrations)
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the most recent migration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withMigrationDB(cmd, db.RollbackMigration)
			},
		},
	)
	return cmd
}

func withMigrationDB(cmd *cobra.Command, run func(ctx context.Context, database *sql.DB, dialect db.Dialect) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultMigrateOptions()))
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	if err := run(ctx, sqlDB, db.DialectFor(cfg.DatabaseURL)); err != nil {
		return err
	}
	telemetry.Info("migrations complete", map[string]any{"command": cmd.Name()})
	return nil
}
