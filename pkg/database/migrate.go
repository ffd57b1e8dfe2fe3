package database

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// ResolveMigrationsPath returns configured if it exists, otherwise the first
// "migrations" directory found in the working directory or its parent.
func ResolveMigrationsPath(configured string) string {
	if configured != "" {
		if _, err := os.Stat(configured); err == nil {
			return configured
		}
	}

	workDir, err := os.Getwd()
	if err != nil {
		return "./migrations"
	}
	for _, candidate := range []string{
		filepath.Join(workDir, "migrations"),
		filepath.Join(workDir, "..", "migrations"),
	} {
		if _, err = os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return "./migrations"
}

// RunMigrations applies every pending up-migration found in migrationsPath.
func RunMigrations(logger *slog.Logger, databaseURL, migrationsPath string) error {
	if _, err := os.Stat(migrationsPath); os.IsNotExist(err) {
		return fmt.Errorf("migrations directory does not exist: %s", migrationsPath)
	}

	absPath, err := filepath.Abs(migrationsPath)
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %w", err)
	}

	m, err := migrate.New(fmt.Sprintf("file://%s", absPath), databaseURL)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer m.Close()

	if err = m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Info("Schema is up to date")
			return nil
		}
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	logger.Info("Migrations applied successfully", "version", version, "dirty", dirty)
	return nil
}
