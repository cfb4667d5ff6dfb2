package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/foodhall-backend/api/controllers"
	cartcontrollers "github.com/angelmondragon/foodhall-backend/api/controllers/cart"
	ordercontrollers "github.com/angelmondragon/foodhall-backend/api/controllers/orders"
	"github.com/angelmondragon/foodhall-backend/api/middleware"
	"github.com/angelmondragon/foodhall-backend/internal/cart"
	"github.com/angelmondragon/foodhall-backend/internal/catalog"
	"github.com/angelmondragon/foodhall-backend/internal/coupons"
	"github.com/angelmondragon/foodhall-backend/internal/orders"
	"github.com/angelmondragon/foodhall-backend/internal/wallet"
	"github.com/angelmondragon/foodhall-backend/pkg/config"
	"github.com/angelmondragon/foodhall-backend/pkg/enums"
	"github.com/angelmondragon/foodhall-backend/pkg/logger"
	"github.com/angelmondragon/foodhall-backend/pkg/metrics"
)

// KeyValueStore backs idempotency replay and rate limiting. *redis.Client satisfies it.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	DelIfValue(ctx context.Context, key, value string) (bool, error)
	IdempotencyKey(scope, id string) string
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	CounterKey(name string) string
}

// Services groups everything the HTTP surface dispatches to.
type Services struct {
	Catalog catalog.Service
	Cart    cart.Service
	Coupons coupons.Service
	Wallet  wallet.Service
	Orders  orders.Service
}

// Options carries the optional infrastructure. A nil Store disables
// idempotency replay and rate limiting; a nil Gatherer hides /metrics.
type Options struct {
	Store       KeyValueStore
	Pingers     map[string]controllers.Pinger
	HTTPMetrics *metrics.HTTPMetrics
	Gatherer    prometheus.Gatherer
}

func NewRouter(cfg *config.Config, logg *logger.Logger, svc Services, opts Options) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, opts.HTTPMetrics),
	)

	checkoutPolicy := middleware.NewRateLimitPolicy(
		"checkout",
		cfg.RateLimit.CheckoutWindow,
		cfg.RateLimit.CheckoutIPLimit,
		cfg.RateLimit.CheckoutUserLimit,
	)

	store := opts.Store

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, opts.Pingers))
	})
	if opts.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(store, logg))

		r.Get("/sellers", controllers.ListSellers(svc.Catalog, logg))
		r.Get("/sellers/{sellerId}/menu", controllers.SellerMenu(svc.Catalog, logg))
		r.Post("/coupons/validate", controllers.ValidateCoupon(svc.Coupons, logg))

		r.Route("/wallet", func(r chi.Router) {
			r.Get("/", controllers.WalletBalance(svc.Wallet, logg))
			r.Get("/transactions", controllers.WalletTransactions(svc.Wallet, logg))
			r.Post("/deposit", controllers.WalletDeposit(svc.Wallet, logg))
			r.Post("/withdraw", controllers.WalletWithdraw(svc.Wallet, logg))
		})

		r.Route("/cart", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.RoleBuyer))
			r.Get("/", cartcontrollers.CartFetch(svc.Cart, logg))
			r.Delete("/", cartcontrollers.CartClear(svc.Cart, logg))
			r.Post("/items", cartcontrollers.CartAddItem(svc.Cart, logg))
			r.Patch("/items/{itemId}", cartcontrollers.CartChangeQuantity(svc.Cart, logg))
			r.Delete("/items/{itemId}", cartcontrollers.CartRemoveItem(svc.Cart, logg))
			r.Post("/quote", cartcontrollers.CartQuote(svc.Cart, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.With(
				middleware.RequireRole(logg, enums.RoleBuyer),
				middleware.RateLimit(checkoutPolicy, store, logg),
			).Post("/", ordercontrollers.Place(svc.Orders, logg))
			r.Get("/", ordercontrollers.List(svc.Orders, logg))
			r.Get("/{orderId}", ordercontrollers.Get(svc.Orders, logg))
			r.Post("/{orderId}/cancel", ordercontrollers.Cancel(svc.Orders, logg))
		})

		r.Route("/seller", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.RoleSeller))
			r.Get("/menu", controllers.OwnMenu(svc.Catalog, logg))
			r.Post("/menu", controllers.CreateMenuItem(svc.Catalog, logg))
			r.Patch("/menu/{itemId}", controllers.UpdateMenuItem(svc.Catalog, logg))
			r.Get("/orders", ordercontrollers.List(svc.Orders, logg))
			r.Post("/orders/{orderId}/advance", ordercontrollers.Advance(svc.Orders, logg))
		})

		r.Route("/courier", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.RoleCourier))
			r.Get("/orders", ordercontrollers.List(svc.Orders, logg))
			r.Post("/orders/{orderId}/advance", ordercontrollers.Advance(svc.Orders, logg))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.RoleAdmin))
			r.Get("/coupons", controllers.AdminListCoupons(svc.Coupons, logg))
			r.Post("/coupons", controllers.AdminCreateCoupon(svc.Coupons, logg))
			r.Patch("/coupons/{code}", controllers.AdminUpdateCoupon(svc.Coupons, logg))
			r.Post("/orders/{orderId}/assign", ordercontrollers.AssignCourier(svc.Orders, logg))
			r.Post("/orders/{orderId}/advance", ordercontrollers.Advance(svc.Orders, logg))
			r.Get("/wallet/{userId}", controllers.AdminWalletAudit(svc.Wallet, logg))
			r.Post("/wallet/{userId}/bonus", controllers.AdminWalletBonus(svc.Wallet, logg))
		})
	})

	return r
}
