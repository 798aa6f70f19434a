package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"tables-pos/internal/local"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const migrationsDir = "migrations"

func newProvider(db *sql.DB, dialect local.Dialect) (*goose.Provider, error) {
	sub, err := fs.Sub(migrationsFS, migrationsDir)
	if err != nil {
		return nil, err
	}

	provider, err := goose.NewProvider(goose.Dialect(dialect), db, sub)
	if err != nil {
		return nil, fmt.Errorf("failed to create migration provider for %s: %w", dialect, err)
	}
	return provider, nil
}

// RunMigrations applies every pending cache schema migration.
// The provider is not closed since it would close db.
func RunMigrations(ctx context.Context, db *sql.DB, dialect local.Dialect, logger *zap.Logger) error {
	provider, err := newProvider(db, dialect)
	if err != nil {
		return err
	}

	logger.Info("Checking for pending migrations...", zap.String("dialect", string(dialect)))

	results, err := provider.Up(ctx)
	if err != nil {
		logger.Error("Failed to run migrations", zap.Error(err))
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	for _, result := range results {
		logger.Info("Migration applied",
			zap.Int64("version", result.Source.Version),
			zap.String("file", result.Source.Path),
			zap.Duration("duration", result.Duration),
		)
	}

	logger.Info("Migrations completed successfully", zap.Int("applied", len(results)))
	return nil
}

// PendingMigrations returns the versions not yet applied to db
func PendingMigrations(ctx context.Context, db *sql.DB, dialect local.Dialect) ([]int64, error) {
	provider, err := newProvider(db, dialect)
	if err != nil {
		return nil, err
	}

	statuses, err := provider.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read migration status: %w", err)
	}

	pending := []int64{}
	for _, status := range statuses {
		if status.State == goose.StatePending {
			pending = append(pending, status.Source.Version)
		}
	}
	return pending, nil
}
