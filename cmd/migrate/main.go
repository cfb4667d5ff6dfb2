package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"

	"github.com/angelmondragon/foodhall-backend/internal/catalog"
	"github.com/angelmondragon/foodhall-backend/pkg/config"
	"github.com/angelmondragon/foodhall-backend/pkg/db"
	"github.com/angelmondragon/foodhall-backend/pkg/logger"
	"github.com/angelmondragon/foodhall-backend/pkg/migrate"
)

type options struct {
	cmd     string
	dir     string
	name    string
	version string
}

type offlineCommand func(opts options) error

type onlineCommand func(ctx context.Context, opts options, conn *sql.DB, client *db.Client, logg *logger.Logger) error

// offline commands only touch the migrations directory.
var offline = map[string]offlineCommand{
	"create": func(opts options) error {
		if opts.name == "" {
			return errors.New("missing -name for create")
		}
		path, err := migrate.CreateSQLMigration(opts.dir, opts.name)
		if err != nil {
			return fmt.Errorf("create migration: %w", err)
		}
		fmt.Println("created migration:", path)
		return nil
	},
	"validate": func(opts options) error {
		if err := migrate.ValidateDir(opts.dir); err != nil {
			return fmt.Errorf("migration validation: %w", err)
		}
		fmt.Println("migration validation passed")
		return nil
	},
}

var online = map[string]onlineCommand{
	"up":     gooseCommand("up"),
	"down":   gooseCommand("down"),
	"status": gooseCommand("status"),
	"version": func(ctx context.Context, opts options, conn *sql.DB, _ *db.Client, _ *logger.Logger) error {
		if opts.version == "" {
			return errors.New("missing -version for version command")
		}
		return migrate.MigrateToVersion(ctx, conn, opts.dir, opts.version)
	},
	"seed": func(ctx context.Context, _ options, _ *sql.DB, client *db.Client, logg *logger.Logger) error {
		sellers, items := catalog.Fixtures()
		created, err := catalog.Seed(ctx, catalog.NewRepository(client.DB()), sellers, items)
		if err != nil {
			return fmt.Errorf("seed catalog: %w", err)
		}
		logg.Info(logg.WithField(ctx, "menu_items", created), "catalog seeded")
		return nil
	},
}

func gooseCommand(name string) onlineCommand {
	return func(ctx context.Context, opts options, conn *sql.DB, _ *db.Client, _ *logger.Logger) error {
		if err := migrate.Run(ctx, conn, opts.dir, name); err != nil {
			return fmt.Errorf("goose %s: %w", name, err)
		}
		return nil
	}
}

func commandNames() string {
	names := make([]string, 0, len(offline)+len(online))
	for name := range offline {
		names = append(names, name)
	}
	for name := range online {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, "|")
}

func main() {
	_ = godotenv.Load()

	var opts options
	flag.StringVar(&opts.cmd, "cmd", "up", "migration command: "+commandNames())
	flag.StringVar(&opts.dir, "dir", migrate.DefaultDir, "goose migrations directory")
	flag.StringVar(&opts.name, "name", "", "migration name (for create)")
	flag.StringVar(&opts.version, "version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logg := logger.New(logger.Options{
		ServiceName: "migrate",
		Environment: cfg.App.Env,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env": cfg.App.Env,
		"cmd": opts.cmd,
		"dir": opts.dir,
	})

	if err := run(ctx, cfg, logg, opts); err != nil {
		logg.Error(ctx, "migrate failed", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger, opts options) (err error) {
	if cmd, ok := offline[opts.cmd]; ok {
		return cmd(opts)
	}
	cmd, ok := online[opts.cmd]
	if !ok {
		return fmt.Errorf("unknown -cmd %q (want %s)", opts.cmd, commandNames())
	}

	client, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer func() { err = multierr.Append(err, client.Close()) }()

	conn, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("sql handle: %w", err)
	}

	logg.Info(ctx, "migrate ready")
	return cmd(ctx, opts, conn, client, logg)
}
