package main

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/pressly/goose/v3"
	"github.com/visionsmith/argus-api/migrations"
)

// runMigrations applies any pending embedded migrations. The server
// refuses to start when the schema cannot be brought up to date.
func runMigrations(db *sql.DB, logger *slog.Logger) error {
	goose.SetBaseFS(migrations.FS)
	goose.SetLogger(gooseSlogAdapter{logger: logger})

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}

	if err := goose.Up(db, "."); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, err := goose.GetDBVersion(db)
	if err != nil {
		return fmt.Errorf("failed to read migration version: %w", err)
	}

	logger.Info("database migrations applied", "version", version)
	return nil
}

// gooseSlogAdapter routes goose's log output through slog so migration
// logs share the server's structured format.
type gooseSlogAdapter struct {
	logger *slog.Logger
}

func (a gooseSlogAdapter) Fatalf(format string, v ...interface{}) {
	a.logger.Error(fmt.Sprintf(format, v...), "source", "goose")
}

func (a gooseSlogAdapter) Printf(format string, v ...interface{}) {
	a.logger.Info(fmt.Sprintf(format, v...), "source", "goose")
}
