package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/angelmondragon/foodhall-backend/api/routes"
	"github.com/angelmondragon/foodhall-backend/pkg/config"
	"github.com/angelmondragon/foodhall-backend/pkg/env"
	"github.com/angelmondragon/foodhall-backend/pkg/logger"
	"github.com/angelmondragon/foodhall-backend/pkg/metrics"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Environment: cfg.App.Env,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	application, err := buildApp(ctx, cfg, logg, metrics.NewDomainMetrics(registry))
	if err != nil {
		logg.Error(ctx, "failed to assemble api", err)
		if application != nil {
			closeAll(ctx, logg, application)
		}
		os.Exit(1)
	}

	addr := ":" + env.Get("PORT", cfg.App.Port)
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":     cfg.App.Env,
		"addr":    addr,
		"storage": cfg.Storage.Backend,
	})
	logg.Info(logCtx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, application.services, routes.Options{
			Store:       application.store,
			Pingers:     application.pingers,
			HTTPMetrics: metrics.NewHTTPMetrics(registry),
			Gatherer:    registry,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	exitCode := 0
	select {
	case err := <-serveErr:
		if err != nil {
			logg.Error(logCtx, "api server stopped unexpectedly", err)
			exitCode = 1
		}
	case <-ctx.Done():
		logg.Info(logCtx, "shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logg.Error(logCtx, "graceful shutdown failed", err)
		exitCode = 1
	}
	if !closeAll(logCtx, logg, application) {
		exitCode = 1
	}
	os.Exit(exitCode)
}

// closeAll releases the backing connections and reports whether all closed cleanly.
func closeAll(ctx context.Context, logg *logger.Logger, application *app) bool {
	var err error
	for i := len(application.closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, application.closers[i].Close())
	}
	if err != nil {
		for _, closeErr := range multierr.Errors(err) {
			logg.Error(ctx, "error closing resource", closeErr)
		}
		return false
	}
	return true
}
