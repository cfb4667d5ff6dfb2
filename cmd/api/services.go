package main

import (
	"context"
	"fmt"
	"io"

	"github.com/angelmondragon/foodhall-backend/api/controllers"
	"github.com/angelmondragon/foodhall-backend/api/routes"
	"github.com/angelmondragon/foodhall-backend/internal/cart"
	"github.com/angelmondragon/foodhall-backend/internal/catalog"
	"github.com/angelmondragon/foodhall-backend/internal/coupons"
	"github.com/angelmondragon/foodhall-backend/internal/locks"
	"github.com/angelmondragon/foodhall-backend/internal/orders"
	"github.com/angelmondragon/foodhall-backend/internal/pricing"
	"github.com/angelmondragon/foodhall-backend/internal/wallet"
	"github.com/angelmondragon/foodhall-backend/pkg/config"
	"github.com/angelmondragon/foodhall-backend/pkg/db"
	"github.com/angelmondragon/foodhall-backend/pkg/logger"
	"github.com/angelmondragon/foodhall-backend/pkg/metrics"
	"github.com/angelmondragon/foodhall-backend/pkg/migrate"
	"github.com/angelmondragon/foodhall-backend/pkg/outbox"
	"github.com/angelmondragon/foodhall-backend/pkg/redis"
)

// backend holds the storage-specific pieces the services are assembled from.
type backend struct {
	catalog catalog.Store
	cart    cart.Repository
	coupons coupons.Repository
	wallet  wallet.Repository
	orders  orders.Repository
	tx      db.TxRunner
	events  outbox.Emitter
}

// app is everything main needs to serve and later shut down.
type app struct {
	services routes.Services
	store    routes.KeyValueStore
	pingers  map[string]controllers.Pinger
	closers  []io.Closer
}

func memoryBackend() backend {
	return backend{
		catalog: catalog.NewMemorySource(catalog.Fixtures()),
		cart:    cart.NewMemoryRepository(),
		coupons: coupons.NewMemoryRepository(),
		wallet:  wallet.NewMemoryRepository(),
		orders:  orders.NewMemoryRepository(),
		tx:      db.NoTx{},
		events:  outbox.NopEmitter{},
	}
}

func databaseBackend(client *db.Client, logg *logger.Logger) backend {
	conn := client.DB()
	return backend{
		catalog: catalog.NewRepository(conn),
		cart:    cart.NewRepository(conn),
		coupons: coupons.NewRepository(conn),
		wallet:  wallet.NewRepository(conn),
		orders:  orders.NewRepository(conn),
		tx:      client,
		events:  outbox.NewService(outbox.NewRepository(conn), logg).WithSource("api"),
	}
}

func buildApp(ctx context.Context, cfg *config.Config, logg *logger.Logger, domainMetrics *metrics.DomainMetrics) (*app, error) {
	out := &app{pingers: map[string]controllers.Pinger{}}

	var be backend
	if cfg.Storage.InMemory() {
		logg.Warn(ctx, "serving from the in-memory backend; state is lost on restart")
		be = memoryBackend()
	} else {
		dbClient, err := db.New(ctx, cfg.DB, logg)
		if err != nil {
			return nil, fmt.Errorf("bootstrap database: %w", err)
		}
		out.closers = append(out.closers, dbClient)
		out.pingers["db"] = dbClient
		if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
			return out, fmt.Errorf("dev migrations: %w", err)
		}
		be = databaseBackend(dbClient, logg)
	}

	var locker locks.Locker = locks.NewKeyedMutex()
	var couponCache coupons.Cache
	if cfg.Redis.Enabled() {
		redisClient, err := redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			return out, fmt.Errorf("bootstrap redis: %w", err)
		}
		out.closers = append(out.closers, redisClient)
		out.pingers["redis"] = redisClient
		out.store = redisClient

		redisLocker, err := locks.NewRedisLocker(redisClient, cfg.Redis.UserLockTTL, 0, logg)
		if err != nil {
			return out, fmt.Errorf("redis locker: %w", err)
		}
		locker = redisLocker
		couponCache = coupons.NewRedisCache(redisClient, cfg.Redis.CouponTTL, logg)
	} else {
		logg.Warn(ctx, "redis not configured; idempotency replay and rate limiting are disabled")
	}

	calc, err := pricing.NewCalculator(cfg.Pricing.DeliveryFeeAmount())
	if err != nil {
		return out, fmt.Errorf("pricing calculator: %w", err)
	}

	catalogSvc, err := catalog.NewService(be.catalog)
	if err != nil {
		return out, err
	}
	couponSvc, err := coupons.NewService(coupons.ServiceParams{
		Repo:   be.coupons,
		Cache:  couponCache,
		Logger: logg,
	})
	if err != nil {
		return out, err
	}
	cartSvc, err := cart.NewService(cart.ServiceParams{
		Repo:       be.cart,
		Catalog:    be.catalog,
		Coupons:    couponSvc,
		Calculator: calc,
		Locker:     locker,
		Logger:     logg,
	})
	if err != nil {
		return out, err
	}
	walletSvc, err := wallet.NewService(wallet.ServiceParams{
		Repo:    be.wallet,
		Tx:      be.tx,
		Locker:  locker,
		Events:  be.events,
		Metrics: domainMetrics,
		Logger:  logg,
	})
	if err != nil {
		return out, err
	}
	orderSvc, err := orders.NewService(orders.ServiceParams{
		Repo:       be.orders,
		Tx:         be.tx,
		Locker:     locker,
		Cart:       cartSvc,
		Coupons:    couponSvc,
		Wallet:     walletSvc,
		Calculator: calc,
		Events:     be.events,
		Metrics:    domainMetrics,
		Logger:     logg,
	})
	if err != nil {
		return out, err
	}

	out.services = routes.Services{
		Catalog: catalogSvc,
		Cart:    cartSvc,
		Coupons: couponSvc,
		Wallet:  walletSvc,
		Orders:  orderSvc,
	}
	return out, nil
}
