package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/formulando/relay/internal/config"
	"github.com/formulando/relay/internal/logger"
)

func main() {
	// Parse command line flags
	var (
		direction = flag.String("direction", "up", "Migration direction: up, down")
		steps     = flag.Int("steps", 0, "Number of migration steps (0 for all)")
		version   = flag.Uint("version", 0, "Target migration version")
		source    = flag.String("source", "file://db/migrations", "Application migrations source URL")
		skipRiver = flag.Bool("skip-river", false, "Skip River queue migrations")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger.Configure(cfg.LogLevel, cfg.LogFormat)
	log := logger.NewLogger("migration")

	log.Info("Starting database migration",
		"direction", *direction,
		"source", *source,
	)

	ctx := context.Background()

	// River's job tables are only needed for the postgres store and are
	// never rolled back from here
	if !*skipRiver && *direction == "up" {
		if err := runRiverMigrations(ctx, cfg.DatabaseURL, log); err != nil {
			log.Error("Failed to run River migrations", "error", err)
			os.Exit(1)
		}
	}

	if err := runAppMigrations(cfg.DatabaseURL, *source, *direction, *steps, *version, log); err != nil {
		log.Error("Failed to run application migrations", "error", err)
		os.Exit(1)
	}

	log.Info("All migrations completed successfully")
}

func runRiverMigrations(ctx context.Context, databaseURL string, log *slog.Logger) error {
	log.Info("Running River queue migrations...")

	dbPool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return fmt.Errorf("failed to create database pool: %w", err)
	}
	defer dbPool.Close()

	if err := dbPool.Ping(ctx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	migrator, err := rivermigrate.New(riverpgxv5.New(dbPool), nil)
	if err != nil {
		return fmt.Errorf("failed to create River migrator: %w", err)
	}

	res, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, &rivermigrate.MigrateOpts{})
	if err != nil {
		return fmt.Errorf("failed to run River migrations: %w", err)
	}

	log.Info("River migrations completed",
		"migrations_run", len(res.Versions),
	)

	for _, version := range res.Versions {
		log.Info("Applied River migration",
			"version", version.Version,
			"name", version.Name,
		)
	}

	if len(res.Versions) == 0 {
		log.Info("No River migrations needed - database is already up to date")
	}

	return nil
}

func runAppMigrations(databaseURL, source, direction string, steps int, targetVersion uint, log *slog.Logger) error {
	log.Info("Running application migrations...")

	// golang-migrate needs database/sql, served by pgx's stdlib driver
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create postgres driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		source,
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer m.Close()

	currentVersion, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to get current migration version: %w", err)
	}

	if dirty {
		log.Warn("Database is in dirty state, forcing version", "version", currentVersion)
		if err := m.Force(int(currentVersion)); err != nil {
			return fmt.Errorf("failed to force version: %w", err)
		}
	}

	log.Info("Current migration state",
		"version", currentVersion,
		"dirty", dirty,
	)

	switch direction {
	case "up":
		if targetVersion > 0 {
			log.Info("Migrating to specific version", "target_version", targetVersion)
			if err := m.Migrate(targetVersion); err != nil && !errors.Is(err, migrate.ErrNoChange) {
				return fmt.Errorf("failed to migrate to version %d: %w", targetVersion, err)
			}
		} else if steps > 0 {
			log.Info("Migrating up with steps", "steps", steps)
			if err := m.Steps(steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
				return fmt.Errorf("failed to migrate %d steps up: %w", steps, err)
			}
		} else {
			log.Info("Migrating to latest version")
			if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
				return fmt.Errorf("failed to migrate up: %w", err)
			}
		}

	case "down":
		if targetVersion > 0 {
			log.Info("Migrating down to specific version", "target_version", targetVersion)
			if err := m.Migrate(targetVersion); err != nil && !errors.Is(err, migrate.ErrNoChange) {
				return fmt.Errorf("failed to migrate to version %d: %w", targetVersion, err)
			}
		} else if steps > 0 {
			log.Info("Migrating down with steps", "steps", steps)
			if err := m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
				return fmt.Errorf("failed to migrate %d steps down: %w", steps, err)
			}
		} else {
			log.Info("Migrating down one step")
			if err := m.Steps(-1); err != nil && !errors.Is(err, migrate.ErrNoChange) {
				return fmt.Errorf("failed to migrate down: %w", err)
			}
		}

	default:
		return fmt.Errorf("invalid direction: %s (must be 'up' or 'down')", direction)
	}

	finalVersion, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to get final migration version: %w", err)
	}

	log.Info("Application migrations completed",
		"final_version", finalVersion,
		"dirty", dirty,
	)

	return nil
}
