// Package main is the entry point for the Galley admin CLI.
// It provides administrative commands for managing user accounts.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"

	"github.com/galley-app/galley/internal/config"
	"github.com/galley-app/galley/internal/repository"
	"github.com/galley-app/galley/internal/repository/postgres"
	"github.com/galley-app/galley/internal/repository/sqlite"
	"github.com/galley-app/galley/internal/service"
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
	args := flag.Args()[1:]

	switch command {
	case "version":
		fmt.Printf("Galley Admin CLI\n")
		fmt.Printf("Version: %s\n", Version)
		fmt.Printf("Build Time: %s\n", BuildTime)
		fmt.Printf("Git Commit: %s\n", GitCommit)

	case "createsuperuser":
		run(*configPath, func(ctx context.Context, users *service.UserService) error {
			return createSuperuser(ctx, users, args)
		})

	case "list":
		run(*configPath, listUsers)

	case "activate":
		run(*configPath, func(ctx context.Context, users *service.UserService) error {
			return setActive(ctx, users, args, true)
		})

	case "deactivate":
		run(*configPath, func(ctx context.Context, users *service.UserService) error {
			return setActive(ctx, users, args, false)
		})

	case "help", "-h", "--help":
		printUsage()

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

// run wires up a user service against the configured database and invokes fn.
func run(configPath string, fn func(ctx context.Context, users *service.UserService) error) {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(zerolog.WarnLevel).With().Timestamp().Logger()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	var (
		repos *repository.Repositories
		db    repository.DatabaseHealth
	)
	switch cfg.Database.Driver {
	case "postgres":
		pg, err := postgres.NewDB(ctx, cfg.Database, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to connect to database: %v\n", err)
			os.Exit(1)
		}
		repos, db = pg.NewRepositories(), pg
	default:
		sq, err := sqlite.NewDB(ctx, sqliteConfig(cfg.Database), logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to open database: %v\n", err)
			os.Exit(1)
		}
		repos, db = sq.NewRepositories(), sq
	}
	defer db.Close()

	users := service.NewUserService(repos.User, service.UserServiceConfig{
		MinPasswordLength: cfg.Auth.MinPasswordLength,
		BcryptCost:        cfg.Auth.BcryptCost,
	}, logger)

	if err := fn(ctx, users); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func createSuperuser(ctx context.Context, users *service.UserService, args []string) error {
	fs := flag.NewFlagSet("createsuperuser", flag.ExitOnError)
	email := fs.String("email", "", "superuser email")
	password := fs.String("password", "", "superuser password")
	name := fs.String("name", "", "display name")
	_ = fs.Parse(args)

	if *email == "" || *password == "" {
		return fmt.Errorf("both -email and -password are required")
	}

	user, err := users.CreateSuperuser(ctx, service.CreateSuperuserInput{
		Email:    *email,
		Password: *password,
		Name:     *name,
	})
	if err != nil {
		return err
	}

	fmt.Printf("superuser created: id=%d email=%s\n", user.ID, user.Email)
	return nil
}

func listUsers(ctx context.Context, users *service.UserService) error {
	result, err := users.ListUsers(ctx, repository.ListOptions{Limit: 200})
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tEMAIL\tNAME\tACTIVE\tSTAFF\tSUPERUSER\tCREATED")
	for _, u := range result.Items {
		fmt.Fprintf(w, "%d\t%s\t%s\t%t\t%t\t%t\t%s\n",
			u.ID, u.Email, u.Name, u.IsActive, u.IsStaff, u.IsSuperuser,
			u.CreatedAt.Format(time.RFC3339))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Printf("\n%d of %d users\n", len(result.Items), result.Total)
	return nil
}

func setActive(ctx context.Context, users *service.UserService, args []string, active bool) error {
	if len(args) < 1 {
		return fmt.Errorf("user id argument required")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid user id %q", args[0])
	}

	if err := users.SetActive(ctx, id, active); err != nil {
		return err
	}

	state := "deactivated"
	if active {
		state = "activated"
	}
	fmt.Printf("user %d %s\n", id, state)
	return nil
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
	fmt.Println(`Galley Admin CLI

Usage:
  galley-admin [flags] <command> [arguments]

Commands:
  createsuperuser   Create a superuser account (-email, -password, -name)
  list              List user accounts
  activate <id>     Activate a user account
  deactivate <id>   Deactivate a user account
  version           Print version information
  help              Show this help message

Flags:
  -config           Path to config file (environment variables also apply,
                    prefix GALLEY_)

Examples:
  galley-admin createsuperuser -email admin@example.com -password secret
  galley-admin list
  galley-admin deactivate 42`)
}
