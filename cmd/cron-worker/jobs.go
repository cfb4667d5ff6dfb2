package main

import (
	"fmt"

	"github.com/angelmondragon/foodhall-backend/internal/cart"
	"github.com/angelmondragon/foodhall-backend/internal/catalog"
	"github.com/angelmondragon/foodhall-backend/internal/coupons"
	"github.com/angelmondragon/foodhall-backend/internal/cron"
	"github.com/angelmondragon/foodhall-backend/internal/locks"
	"github.com/angelmondragon/foodhall-backend/internal/orders"
	"github.com/angelmondragon/foodhall-backend/internal/pricing"
	"github.com/angelmondragon/foodhall-backend/internal/wallet"
	"github.com/angelmondragon/foodhall-backend/pkg/config"
	"github.com/angelmondragon/foodhall-backend/pkg/db"
	"github.com/angelmondragon/foodhall-backend/pkg/logger"
	"github.com/angelmondragon/foodhall-backend/pkg/metrics"
	"github.com/angelmondragon/foodhall-backend/pkg/outbox"
)

// buildRegistry wires the maintenance jobs against the database. Order
// expiry goes through the order service so refunds and events stay in the
// same transaction as the status change.
func buildRegistry(cfg *config.Config, logg *logger.Logger, client *db.Client, locker locks.Locker, domainMetrics *metrics.DomainMetrics) (*cron.Registry, error) {
	conn := client.DB()
	events := outbox.NewService(outbox.NewRepository(conn), logg).WithSource("cron-worker")

	calc, err := pricing.NewCalculator(cfg.Pricing.DeliveryFeeAmount())
	if err != nil {
		return nil, fmt.Errorf("pricing calculator: %w", err)
	}
	couponSvc, err := coupons.NewService(coupons.ServiceParams{Repo: coupons.NewRepository(conn), Logger: logg})
	if err != nil {
		return nil, err
	}
	cartSvc, err := cart.NewService(cart.ServiceParams{
		Repo:       cart.NewRepository(conn),
		Catalog:    catalog.NewRepository(conn),
		Coupons:    couponSvc,
		Calculator: calc,
		Locker:     locker,
		Logger:     logg,
	})
	if err != nil {
		return nil, err
	}
	walletSvc, err := wallet.NewService(wallet.ServiceParams{
		Repo:    wallet.NewRepository(conn),
		Tx:      client,
		Locker:  locker,
		Events:  events,
		Metrics: domainMetrics,
		Logger:  logg,
	})
	if err != nil {
		return nil, err
	}
	orderRepo := orders.NewRepository(conn)
	orderSvc, err := orders.NewService(orders.ServiceParams{
		Repo:       orderRepo,
		Tx:         client,
		Locker:     locker,
		Cart:       cartSvc,
		Coupons:    couponSvc,
		Wallet:     walletSvc,
		Calculator: calc,
		Events:     events,
		Metrics:    domainMetrics,
		Logger:     logg,
	})
	if err != nil {
		return nil, err
	}

	expiry, err := cron.NewOrderExpiryJob(cron.OrderExpiryJobParams{
		Logger:    logg,
		Pending:   orderRepo,
		Canceller: orderSvc,
		TTL:       cfg.Cron.PendingOrderTTL,
	})
	if err != nil {
		return nil, err
	}
	retention, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:      logg,
		DB:          client,
		Repository:  outbox.NewRepository(conn),
		DeadLetters: outbox.NewDLQRepository(conn),
		Retention:   cfg.Cron.OutboxRetentionDays,
		MinAttempts: cfg.Outbox.MaxAttempts,
	})
	if err != nil {
		return nil, err
	}

	registry := cron.NewRegistry()
	for _, job := range []cron.Job{expiry, retention} {
		if err := registry.Register(job); err != nil {
			return nil, err
		}
	}
	return registry, nil
}
