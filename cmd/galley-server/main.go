// Package main is the entry point for the Galley server.
// Galley is a recipe management API with token authentication, tag and
// ingredient catalogs, and recipe image storage.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/galley-app/galley/internal/auth"
	memorycache "github.com/galley-app/galley/internal/cache/memory"
	rediscache "github.com/galley-app/galley/internal/cache/redis"
	"github.com/galley-app/galley/internal/config"
	"github.com/galley-app/galley/internal/handler"
	"github.com/galley-app/galley/internal/lock"
	"github.com/galley-app/galley/internal/metrics"
	"github.com/galley-app/galley/internal/repository"
	"github.com/galley-app/galley/internal/repository/postgres"
	"github.com/galley-app/galley/internal/repository/sqlite"
	"github.com/galley-app/galley/internal/service"
	"github.com/galley-app/galley/internal/storage"
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

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg.Logging)
	logger.Info().
		Str("version", Version).
		Str("build_time", BuildTime).
		Str("git_commit", GitCommit).
		Msg("Starting Galley server")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Database (with wait-for-db retry while it comes up alongside us)
	repos, db, err := connectDatabase(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// Cache and locker: Redis when configured, in-process otherwise
	var (
		cache  repository.Cache
		locker lock.Locker
	)
	if cfg.Redis.Enabled {
		rc, err := rediscache.NewCache(ctx, cfg.Redis, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to Redis")
		}
		defer rc.Close()
		cache = rc
		locker = lock.NewRedisLocker(rc.Client())
		logger.Info().Str("addr", cfg.Redis.Addr()).Msg("using Redis cache and locks")
	} else {
		mc := memorycache.NewCache()
		defer mc.Stop()
		cache = mc
		locker = lock.NewMemoryLocker()
		logger.Info().Msg("using in-memory cache and locks")
	}

	// Media store
	media, err := buildMediaStore(ctx, cfg.Media, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize media store")
	}

	// Metrics
	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	// Services
	userService := service.NewUserService(repos.User, service.UserServiceConfig{
		MinPasswordLength: cfg.Auth.MinPasswordLength,
		BcryptCost:        cfg.Auth.BcryptCost,
	}, logger)
	tokenService := service.NewTokenService(repos.Token, repos.User, cache, service.TokenServiceConfig{
		TokenTTL: cfg.Auth.TokenTTL,
		CacheTTL: cfg.Auth.CacheTTL,
	}, logger)
	tagService := service.NewCatalogService(repos.Tag, logger)
	ingredientService := service.NewCatalogService(repos.Ingredient, logger)
	recipeService := service.NewRecipeService(
		repos.Recipe, repos.Tag, repos.Ingredient,
		repos.Tx, locker, media, logger,
	)

	authMiddleware := auth.NewMiddleware(tokenService, logger)

	// HTTP layer
	router := handler.NewRouter(handler.RouterConfig{
		UserHandler:       handler.NewUserHandler(userService, tokenService, m, logger),
		TagHandler:        handler.NewCatalogHandler(tagService, logger),
		IngredientHandler: handler.NewCatalogHandler(ingredientService, logger),
		RecipeHandler: handler.NewRecipeHandler(handler.RecipeHandlerConfig{
			Service:       recipeService,
			Metrics:       m,
			MaxUploadSize: cfg.Media.MaxUploadSize,
			Logger:        logger,
		}),
		AuthMiddleware: authMiddleware,
		Metrics:        m,
		MetricsPath:    cfg.Metrics.Path,
		Database:       db,
		MaxBodySize:    cfg.Server.MaxBodySize,
		Logger:         logger,
	})

	// Expired token sweeper
	sweeper := service.NewTokenSweeper(tokenService, locker, m, logger, service.SweeperConfig{
		Enabled:  cfg.GC.Enabled,
		Interval: cfg.GC.Interval,
	})
	if cfg.GC.Enabled {
		sweeper.Start()
		defer sweeper.Stop()
	}

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		logger.Fatal().Err(err).Msg("HTTP server failed")
	case <-ctx.Done():
		logger.Info().Msg("Shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
}

// setupLogger builds the root logger from config.
func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = zerolog.InfoLevel
	}

	zerolog.TimeFieldFormat = cfg.TimeFormat

	var out = os.Stdout
	if cfg.Output == "stderr" {
		out = os.Stderr
	}

	var logger zerolog.Logger
	if cfg.Format == "console" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339})
	} else {
		logger = zerolog.New(out)
	}

	return logger.Level(level).With().Timestamp().Logger()
}

// connectDatabase opens the configured backend, retrying the initial
// connection, runs migrations, and returns the repository bundle.
func connectDatabase(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*repository.Repositories, repository.DatabaseHealth, error) {
	retries := cfg.Database.ConnectRetries
	if retries < 1 {
		retries = 1
	}

	var lastErr error
	for attempt := 1; attempt <= retries; attempt++ {
		repos, db, err := openDatabase(ctx, cfg, logger)
		if err == nil {
			if err := migrate(ctx, cfg.Database.Driver, db); err != nil {
				db.Close()
				return nil, nil, err
			}
			return repos, db, nil
		}
		lastErr = err

		if attempt < retries {
			logger.Warn().
				Err(err).
				Int("attempt", attempt).
				Int("retries", retries).
				Msg("database unavailable, retrying")
			select {
			case <-time.After(cfg.Database.ConnectRetryDelay):
			case <-ctx.Done():
				return nil, nil, ctx.Err()
			}
		}
	}

	return nil, nil, lastErr
}

func openDatabase(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*repository.Repositories, repository.DatabaseHealth, error) {
	switch cfg.Database.Driver {
	case "postgres":
		db, err := postgres.NewDB(ctx, cfg.Database, logger)
		if err != nil {
			return nil, nil, err
		}
		return db.NewRepositories(), db, nil
	default:
		db, err := sqlite.NewDB(ctx, sqliteConfig(cfg.Database), logger)
		if err != nil {
			return nil, nil, err
		}
		return db.NewRepositories(), db, nil
	}
}

// migrate runs schema migrations on the freshly opened database.
func migrate(ctx context.Context, driver string, db repository.DatabaseHealth) error {
	type migrator interface {
		Migrate(ctx context.Context) error
	}
	m, ok := db.(migrator)
	if !ok {
		return fmt.Errorf("driver %s does not support migrations", driver)
	}
	return m.Migrate(ctx)
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

// buildMediaStore constructs the configured media backend.
func buildMediaStore(ctx context.Context, cfg config.MediaConfig, logger zerolog.Logger) (storage.MediaStore, error) {
	switch cfg.Backend {
	case "s3":
		return storage.NewS3Store(ctx, cfg.S3, logger)
	default:
		return storage.NewFilesystemStore(cfg.DataDir, logger)
	}
}
