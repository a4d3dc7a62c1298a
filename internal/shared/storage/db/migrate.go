package db

import (
	"context"
	"database/sql"
	"embed"
	"sync"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// goose keeps its dialect and filesystem in package globals.
var gooseMu sync.Mutex

// RunMigrations applies embedded SQL migrations via goose. If database is nil, it's a no-op.
func RunMigrations(ctx context.Context, database *sql.DB, dialect Dialect) error {
	if database == nil {
		return nil
	}
	gooseMu.Lock()
	defer gooseMu.Unlock()
	goose.SetBaseFS(migrationFiles)
	if err := goose.SetDialect(dialect.gooseDialect()); err != nil {
		return err
	}
	return goose.UpContext(ctx, database, "migrations")
}

// RollbackMigration reverts the most recent migration.
func RollbackMigration(ctx context.Context, database *sql.DB, dialect Dialect) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()
	goose.SetBaseFS(migrationFiles)
	if err := goose.SetDialect(dialect.gooseDialect()); err != nil {
		return err
	}
	return goose.DownContext(ctx, database, "migrations")
}
