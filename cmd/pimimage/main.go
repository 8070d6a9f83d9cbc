package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/catalogtools/pimasset/internal/assets"
	"github.com/catalogtools/pimasset/internal/legacy"
	"github.com/catalogtools/pimasset/internal/lock"
	"github.com/catalogtools/pimasset/internal/pimimage"
	"github.com/catalogtools/pimasset/internal/storage"
	"github.com/catalogtools/pimasset/pkg/config"
	"github.com/catalogtools/pimasset/pkg/db"
	"github.com/catalogtools/pimasset/pkg/errors"
	"github.com/catalogtools/pimasset/pkg/logger"
	"github.com/catalogtools/pimasset/pkg/metrics"
	"github.com/catalogtools/pimasset/pkg/redis"
)

const serviceName = "pimimage-migration"

func main() {
	os.Exit(run())
}

func run() int {
	logg := logger.New(logger.Options{ServiceName: serviceName})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		return errors.MetadataFor(errors.CodeValidation).ExitCode
	}

	logg = logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":    cfg.App.Env,
		"driver": cfg.DB.Dialect(),
	})

	var closers []func() error
	defer func() {
		var closeErr error
		for i := len(closers) - 1; i >= 0; i-- {
			closeErr = multierr.Append(closeErr, closers[i]())
		}
		if closeErr != nil {
			logg.Error(ctx, "error releasing resources", closeErr)
		}
	}()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fail(ctx, logg, errors.Wrap(errors.CodeDependency, err, "bootstrap database"))
	}
	closers = append(closers, dbClient.Close)

	runLock, closeLock, err := buildLock(ctx, cfg, logg)
	if err != nil {
		return fail(ctx, logg, err)
	}
	if closeLock != nil {
		closers = append(closers, closeLock)
	}

	migrationMetrics := metrics.NewMigrationMetrics(prometheus.NewRegistry())
	migrator, err := buildMigrator(cfg, logg, dbClient, runLock, migrationMetrics)
	if err != nil {
		return fail(ctx, logg, err)
	}

	logg.Info(ctx, "starting pim image migration")
	runErr := migrator.Run(ctx)

	if err := migrationMetrics.Push(ctx, cfg.Migration.PushgatewayURL, cfg.Migration.JobName); err != nil {
		logg.Warn(logg.WithField(ctx, "error", err.Error()), "failed to push migration metrics")
	}

	if runErr != nil {
		return fail(ctx, logg, runErr)
	}
	return 0
}

func buildLock(ctx context.Context, cfg *config.Config, logg *logger.Logger) (lock.Lock, func() error, error) {
	if !cfg.Redis.Enabled() {
		logg.Warn(ctx, "redis not configured, running without a migration lock")
		return lock.NoopLock{}, nil, nil
	}
	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return nil, nil, errors.Wrap(errors.CodeDependency, err, "bootstrap redis")
	}
	redisLock, err := lock.NewRedisLock(redisClient, redis.LockKey(cfg.Migration.LockKey), cfg.Migration.LockTTL)
	if err != nil {
		_ = redisClient.Close()
		return nil, nil, errors.Wrap(errors.CodeValidation, err, "create migration lock")
	}
	return redisLock, redisClient.Close, nil
}

func buildMigrator(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, runLock lock.Lock, migrationMetrics *metrics.MigrationMetrics) (*pimimage.Migrator, error) {
	reader, err := legacy.NewReader(dbClient.DB())
	if err != nil {
		return nil, errors.Wrap(errors.CodeValidation, err, "create legacy reader")
	}
	creator, err := assets.NewGormCreator(dbClient)
	if err != nil {
		return nil, errors.Wrap(errors.CodeValidation, err, "create asset creator")
	}
	collections, err := assets.NewCollectionResolver(
		assets.NewCollectionRepository(dbClient.DB()),
		cfg.Migration.CollectionCode,
		cfg.Migration.CollectionName,
	)
	if err != nil {
		return nil, errors.Wrap(errors.CodeValidation, err, "create collection resolver")
	}
	resolver, err := storage.NewLocalResolver(cfg.Storage.UploadDir)
	if err != nil {
		return nil, errors.Wrap(errors.CodeValidation, err, "create storage resolver")
	}

	return pimimage.NewMigrator(pimimage.Params{
		Logger:         logg,
		Reader:         reader,
		Executor:       dbClient,
		Creator:        creator,
		Collections:    collections,
		Resolver:       resolver,
		Hasher:         storage.MD5Hasher{},
		Locales:        cfg.Locale,
		Lock:           runLock,
		Metrics:        migrationMetrics,
		Ready:          dbClient.Ping,
		ReadinessDelay: cfg.Migration.ReadinessDelay,
		BatchSize:      cfg.Migration.BatchSize,
		SystemUserID:   cfg.Migration.SystemUserID,
	})
}

func fail(ctx context.Context, logg *logger.Logger, err error) int {
	code := errors.CodeInternal
	if typed := errors.As(err); typed != nil {
		code = typed.Code()
	}
	meta := errors.MetadataFor(code)
	logg.Error(logg.WithFields(ctx, map[string]any{
		"code":       code,
		"error_dump": errors.Dump(err),
	}), meta.PublicMessage, err)
	if meta.ExitCode == 0 {
		return 1
	}
	return meta.ExitCode
}
