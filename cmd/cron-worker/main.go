package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/angelmondragon/foodhall-backend/internal/cron"
	"github.com/angelmondragon/foodhall-backend/internal/locks"
	"github.com/angelmondragon/foodhall-backend/pkg/config"
	"github.com/angelmondragon/foodhall-backend/pkg/db"
	"github.com/angelmondragon/foodhall-backend/pkg/logger"
	"github.com/angelmondragon/foodhall-backend/pkg/metrics"
	"github.com/angelmondragon/foodhall-backend/pkg/migrate"
	"github.com/angelmondragon/foodhall-backend/pkg/redis"
)

const lockKeyFormat = "fh:maintenance:lock:%s"

func main() {
	once := flag.Bool("once", false, "run a single maintenance cycle and exit")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	if cfg.Storage.InMemory() {
		logg.Error(context.Background(), "cron worker requires the db storage backend", errors.New("memory backend is process local"))
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Environment: cfg.App.Env,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg, *once); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(context.Background(), "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(context.Background(), "cron worker shutting down gracefully")
}

func run(cfg *config.Config, logg *logger.Logger, once bool) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("bootstrap database: %w", err)
	}
	defer func() { err = multierr.Append(err, dbClient.Close()) }()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return fmt.Errorf("dev migrations: %w", err)
	}

	var (
		lock   cron.Lock
		locker locks.Locker = locks.NewKeyedMutex()
	)
	if cfg.Redis.Enabled() {
		redisClient, redisErr := redis.New(ctx, cfg.Redis, logg)
		if redisErr != nil {
			return fmt.Errorf("bootstrap redis: %w", redisErr)
		}
		defer func() { err = multierr.Append(err, redisClient.Close()) }()

		redisLock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), 0)
		if err != nil {
			return fmt.Errorf("maintenance lock: %w", err)
		}
		lock = redisLock
		redisLocker, err := locks.NewRedisLocker(redisClient, cfg.Redis.UserLockTTL, 0, logg)
		if err != nil {
			return fmt.Errorf("redis locker: %w", err)
		}
		locker = redisLocker
	} else {
		logg.Warn(ctx, "redis not configured; run a single cron worker")
		lock = &cron.LocalLock{}
	}

	registry, err := buildRegistry(cfg, logg, dbClient, locker, metrics.NewDomainMetrics(prometheus.DefaultRegisterer))
	if err != nil {
		return fmt.Errorf("build jobs: %w", err)
	}
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metrics.NewJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		return fmt.Errorf("cron service: %w", err)
	}

	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": "cron-worker",
		"interval":    cfg.Cron.Interval.String(),
	})
	if once {
		ran, err := service.RunOnce(ctx)
		logg.Info(logg.WithField(ctx, "ran", ran), "single maintenance cycle finished")
		return err
	}
	go serveMetrics(ctx, cfg, logg)
	logg.Info(ctx, "starting cron worker")
	return service.Run(ctx)
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}

func serveMetrics(ctx context.Context, cfg *config.Config, logg *logger.Logger) {
	if err := metrics.Serve(ctx, cfg.App.MetricsAddr, prometheus.DefaultGatherer, logg); err != nil {
		logg.Error(ctx, "metrics listener stopped", err)
	}
}
