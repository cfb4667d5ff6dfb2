package coupons

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/angelmondragon/foodhall-backend/pkg/db/models"
	"github.com/angelmondragon/foodhall-backend/pkg/logger"
	"github.com/angelmondragon/foodhall-backend/pkg/redis"
)

// Cache is a best-effort read-through layer in front of the repository.
// Failures are logged and treated as misses.
type Cache interface {
	Get(ctx context.Context, code string) (*models.Coupon, bool)
	Set(ctx context.Context, coupon *models.Coupon)
	Invalidate(ctx context.Context, code string)
}

type cacheStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	CouponKey(code string) string
}

// RedisCache stores coupons as JSON under the coupon key namespace.
type RedisCache struct {
	store cacheStore
	ttl   time.Duration
	logg  *logger.Logger
}

func NewRedisCache(store cacheStore, ttl time.Duration, logg *logger.Logger) *RedisCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisCache{store: store, ttl: ttl, logg: logg}
}

func (c *RedisCache) Get(ctx context.Context, code string) (*models.Coupon, bool) {
	raw, err := c.store.Get(ctx, c.store.CouponKey(code))
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.warn(ctx, "coupon cache read failed", code, err)
		}
		return nil, false
	}
	var coupon models.Coupon
	if err := json.Unmarshal([]byte(raw), &coupon); err != nil {
		c.warn(ctx, "coupon cache entry corrupt", code, err)
		return nil, false
	}
	return &coupon, true
}

func (c *RedisCache) Set(ctx context.Context, coupon *models.Coupon) {
	if coupon == nil {
		return
	}
	payload, err := json.Marshal(coupon)
	if err != nil {
		c.warn(ctx, "coupon cache encode failed", coupon.Code, err)
		return
	}
	if err := c.store.Set(ctx, c.store.CouponKey(coupon.Code), string(payload), c.ttl); err != nil {
		c.warn(ctx, "coupon cache write failed", coupon.Code, err)
	}
}

func (c *RedisCache) Invalidate(ctx context.Context, code string) {
	if err := c.store.Del(ctx, c.store.CouponKey(code)); err != nil {
		c.warn(ctx, "coupon cache invalidate failed", code, err)
	}
}

func (c *RedisCache) warn(ctx context.Context, msg, code string, err error) {
	if c.logg == nil {
		return
	}
	ctx = c.logg.WithFields(ctx, map[string]any{"coupon_code": code, "error": err.Error()})
	c.logg.Warn(ctx, msg)
}

type nopCache struct{}

func (nopCache) Get(context.Context, string) (*models.Coupon, bool) { return nil, false }
func (nopCache) Set(context.Context, *models.Coupon)                {}
func (nopCache) Invalidate(context.Context, string)                 {}
