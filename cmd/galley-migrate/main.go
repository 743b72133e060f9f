// Package main is the entry point for the Galley database migration tool.
// It manages schema migrations for both the PostgreSQL and SQLite backends.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/galley-app/galley/internal/config"
	"github.com/galley-app/galley/internal/repository/postgres"
	"github.com/galley-app/galley/internal/repository/sqlite"
)

// Version information (set at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	if flag.NArg() < 1 {
		printUsage()
		os.Exit(1)
	}

	command := flag.Arg(0)
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	switch command {
	case "version":
		fmt.Printf("Galley Migration Tool\n")
		fmt.Printf("Version: %s\n", Version)
		fmt.Printf("Build Time: %s\n", BuildTime)
		fmt.Printf("Git Commit: %s\n", GitCommit)

	case "up":
		if err := runUp(*configPath, logger); err != nil {
			logger.Fatal().Err(err).Msg("migration failed")
		}
		fmt.Println("migrations applied")

	case "ping":
		if err := runPing(*configPath, logger); err != nil {
			logger.Fatal().Err(err).Msg("database unreachable")
		}
		fmt.Println("database reachable")

	case "help", "-h", "--help":
		printUsage()

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

// runUp applies all pending migrations, waiting for the database to come
// up first.
func runUp(configPath string, logger zerolog.Logger) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	ctx := context.Background()

	switch cfg.Database.Driver {
	case "postgres":
		db, err := connectPostgres(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer db.Close()
		return db.Migrate(ctx)
	default:
		db, err := sqlite.NewDB(ctx, sqliteConfig(cfg.Database), logger)
		if err != nil {
			return err
		}
		defer db.Close()
		return db.Migrate(ctx)
	}
}

// runPing checks database connectivity without touching the schema.
func runPing(configPath string, logger zerolog.Logger) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	ctx := context.Background()

	switch cfg.Database.Driver {
	case "postgres":
		db, err := connectPostgres(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer db.Close()
		return db.Ping(ctx)
	default:
		db, err := sqlite.NewDB(ctx, sqliteConfig(cfg.Database), logger)
		if err != nil {
			return err
		}
		defer db.Close()
		return db.Ping(ctx)
	}
}

// connectPostgres retries the initial connection so the tool can run
// before the database finishes starting.
func connectPostgres(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*postgres.DB, error) {
	retries := cfg.Database.ConnectRetries
	if retries < 1 {
		retries = 1
	}

	var lastErr error
	for attempt := 1; attempt <= retries; attempt++ {
		db, err := postgres.NewDB(ctx, cfg.Database, logger)
		if err == nil {
			return db, nil
		}
		lastErr = err

		if attempt < retries {
			logger.Warn().
				Err(err).
				Int("attempt", attempt).
				Msg("database unavailable, retrying")
			time.Sleep(cfg.Database.ConnectRetryDelay)
		}
	}
	return nil, lastErr
}

// sqliteConfig maps the shared database config onto SQLite settings.
func sqliteConfig(cfg config.DatabaseConfig) sqlite.Config {
	sc := sqlite.DefaultConfig(cfg.Path)
	if cfg.JournalMode != "" {
		sc.JournalMode = cfg.JournalMode
	}
	if cfg.BusyTimeout > 0 {
		sc.BusyTimeout = cfg.BusyTimeout
	}
	if cfg.CacheSize != 0 {
		sc.CacheSize = cfg.CacheSize
	}
	if cfg.SynchronousMode != "" {
		sc.SynchronousMode = cfg.SynchronousMode
	}
	return sc
}

func printUsage() {
	fmt.Println(`Galley Migration Tool

Usage:
  galley-migrate [flags] <command>

Commands:
  up          Run all pending migrations
  ping        Wait for the database and report connectivity
  version     Print version information
  help        Show this help message

Flags:
  -config     Path to config file (environment variables also apply,
              prefix GALLEY_)

Examples:
  galley-migrate up
  galley-migrate -config /etc/galley/config.yaml up
  galley-migrate ping`)
}
