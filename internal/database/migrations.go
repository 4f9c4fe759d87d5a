package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

const migrationsDir = "migrations"

// GooseDialect maps a DB_DRIVER value to the goose dialect name.
func GooseDialect(driver string) (string, error) {
	switch driver {
	case "postgres", "mysql", "sqlite3":
		return driver, nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", driver)
	}
}

func prepare(driver string) error {
	dialect, err := GooseDialect(driver)
	if err != nil {
		return err
	}
	goose.SetBaseFS(migrations)
	return goose.SetDialect(dialect)
}

// Migrate applies every pending migration.
func Migrate(ctx context.Context, db *sql.DB, driver string) error {
	if err := prepare(driver); err != nil {
		return err
	}
	if err := goose.UpContext(ctx, db, migrationsDir); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// Rollback reverts the most recent migration.
func Rollback(ctx context.Context, db *sql.DB, driver string) error {
	if err := prepare(driver); err != nil {
		return err
	}
	if err := goose.DownContext(ctx, db, migrationsDir); err != nil {
		return fmt.Errorf("failed to roll back migration: %w", err)
	}
	return nil
}

// Status logs the state of every migration.
func Status(ctx context.Context, db *sql.DB, driver string) error {
	if err := prepare(driver); err != nil {
		return err
	}
	return goose.StatusContext(ctx, db, migrationsDir)
}

// Version returns the current schema version.
func Version(ctx context.Context, db *sql.DB, driver string) (int64, error) {
	if err := prepare(driver); err != nil {
		return 0, err
	}
	return goose.GetDBVersionContext(ctx, db)
}
