package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"

	"github.com/catalogtools/pimasset/pkg/config"
	"github.com/catalogtools/pimasset/pkg/db"
	"github.com/catalogtools/pimasset/pkg/errors"
	"github.com/catalogtools/pimasset/pkg/logger"
	"github.com/catalogtools/pimasset/pkg/migrate"
	"github.com/joho/godotenv"
)

const serviceName = "pimasset-migrate"

type options struct {
	cmd     string
	dir     string
	name    string
	version string
}

func main() {
	os.Exit(run())
}

func run() int {
	_ = godotenv.Load()
	opts := parseFlags(os.Args[1:])
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: serviceName})

	// create and validate never need a database
	switch opts.cmd {
	case "create":
		path, err := createMigration(opts)
		if err != nil {
			return fail(ctx, logg, err)
		}
		fmt.Println("created migration:", path)
		return 0
	case "validate":
		if err := migrate.ValidateDir(opts.dir); err != nil {
			return fail(ctx, logg, errors.Wrap(errors.CodeValidation, err, "validate migrations"))
		}
		fmt.Println("migration validation passed")
		return 0
	}

	cfg, err := config.Load()
	if err != nil {
		return fail(ctx, logg, errors.Wrap(errors.CodeValidation, err, "load config"))
	}
	logg = logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx = logg.WithFields(ctx, map[string]any{
		"env":    cfg.App.Env,
		"driver": cfg.DB.Dialect(),
		"cmd":    opts.cmd,
		"dir":    opts.dir,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fail(ctx, logg, errors.Wrap(errors.CodeDependency, err, "connect database"))
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()
	sqlDB, err := dbClient.DB().DB()
	if err != nil {
		return fail(ctx, logg, errors.Wrap(errors.CodeDependency, err, "sql database"))
	}

	if err := apply(ctx, sqlDB, cfg.DB.Driver, opts); err != nil {
		return fail(ctx, logg, err)
	}
	logg.Info(ctx, "migrate finished")
	return 0
}

func parseFlags(args []string) options {
	fs := flag.NewFlagSet(serviceName, flag.ExitOnError)
	var opts options
	fs.StringVar(&opts.cmd, "cmd", "up", "migration command: up|down|status|version|create|validate")
	fs.StringVar(&opts.dir, "dir", migrate.DefaultDir, "goose migrations directory")
	fs.StringVar(&opts.name, "name", "", "migration name (for create)")
	fs.StringVar(&opts.version, "version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	_ = fs.Parse(args)
	return opts
}

func createMigration(opts options) (string, error) {
	if opts.name == "" {
		return "", errors.New(errors.CodeValidation, "-name is required for create")
	}
	path, err := migrate.CreateSQLMigration(opts.dir, opts.name)
	if err != nil {
		return "", errors.Wrap(errors.CodeValidation, err, "create migration")
	}
	return path, nil
}

func apply(ctx context.Context, sqlDB *sql.DB, driver string, opts options) error {
	switch opts.cmd {
	case "up", "down", "status":
		if err := migrate.Run(ctx, sqlDB, driver, opts.dir, opts.cmd); err != nil {
			return errors.Wrap(errors.CodeFatal, err, "goose "+opts.cmd)
		}
		return nil
	case "version":
		if opts.version == "" {
			return errors.New(errors.CodeValidation, "-version is required for version")
		}
		if err := migrate.MigrateToVersion(ctx, sqlDB, driver, opts.dir, opts.version); err != nil {
			return errors.Wrap(errors.CodeFatal, err, "goose version "+opts.version)
		}
		return nil
	default:
		return errors.New(errors.CodeValidation, fmt.Sprintf("unknown -cmd value %q", opts.cmd))
	}
}

func fail(ctx context.Context, logg *logger.Logger, err error) int {
	code := errors.CodeInternal
	if typed := errors.As(err); typed != nil {
		code = typed.Code()
	}
	meta := errors.MetadataFor(code)
	logg.Error(logg.WithField(ctx, "error_dump", errors.Dump(err)), meta.PublicMessage, err)
	if meta.ExitCode == 0 {
		return 1
	}
	return meta.ExitCode
}
