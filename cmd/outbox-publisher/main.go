package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/angelmondragon/foodhall-backend/pkg/config"
	"github.com/angelmondragon/foodhall-backend/pkg/db"
	"github.com/angelmondragon/foodhall-backend/pkg/kafka"
	"github.com/angelmondragon/foodhall-backend/pkg/logger"
	"github.com/angelmondragon/foodhall-backend/pkg/metrics"
	"github.com/angelmondragon/foodhall-backend/pkg/migrate"
	"github.com/angelmondragon/foodhall-backend/pkg/outbox"
	"github.com/angelmondragon/foodhall-backend/pkg/outbox/registry"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "outbox-publisher"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	if cfg.Storage.InMemory() {
		logg.Error(context.Background(), "outbox publisher requires the db storage backend", errors.New("memory backend has no outbox table"))
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "outbox-publisher",
		Environment: cfg.App.Env,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		_ = dbClient.Close()
		os.Exit(1)
	}

	kafkaClient, err := kafka.NewClient(context.Background(), cfg.Kafka, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap kafka", err)
		_ = dbClient.Close()
		os.Exit(1)
	}

	closeAll := func(ctx context.Context) {
		if err := multierr.Combine(kafkaClient.Close(), dbClient.Close()); err != nil {
			for _, closeErr := range multierr.Errors(err) {
				logg.Error(ctx, "error closing resource", closeErr)
			}
		}
	}

	eventRegistry, err := registry.NewEventRegistry(cfg.Kafka)
	if err != nil {
		logg.Error(context.Background(), "failed to build event registry", err)
		closeAll(context.Background())
		os.Exit(1)
	}
	service, err := NewService(ServiceParams{
		Config:        cfg,
		Logger:        logg,
		DB:            dbClient,
		Broker:        kafkaClient,
		Repository:    outbox.NewRepository(dbClient.DB()),
		Registry:      eventRegistry,
		DLQRepository: outbox.NewDLQRepository(dbClient.DB()),
		Metrics:       metrics.NewOutboxMetrics(prometheus.DefaultRegisterer),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create outbox publisher", err)
		closeAll(context.Background())
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": "outbox-publisher",
		"topics":      eventRegistry.Topics(),
	})
	go func() {
		if err := metrics.Serve(ctx, cfg.App.MetricsAddr, prometheus.DefaultGatherer, logg); err != nil {
			logg.Error(ctx, "metrics listener stopped", err)
		}
	}()
	logg.Info(ctx, "starting outbox publisher")

	runErr := service.Run(ctx)
	closeAll(context.Background())
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		logg.Error(ctx, "outbox publisher stopped unexpectedly", runErr)
		os.Exit(1)
	}

	logg.Info(ctx, "outbox publisher shutting down gracefully")
}
