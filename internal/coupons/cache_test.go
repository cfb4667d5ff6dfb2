package coupons

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/foodhall-backend/pkg/db/models"
	"github.com/angelmondragon/foodhall-backend/pkg/enums"
	"github.com/angelmondragon/foodhall-backend/pkg/redis"
)

type mapCache struct {
	entries map[string]models.Coupon
}

func newMapCache() *mapCache {
	return &mapCache{entries: make(map[string]models.Coupon)}
}

func (c *mapCache) Get(_ context.Context, code string) (*models.Coupon, bool) {
	coupon, ok := c.entries[code]
	if !ok {
		return nil, false
	}
	return &coupon, true
}

func (c *mapCache) Set(_ context.Context, coupon *models.Coupon) {
	c.entries[coupon.Code] = *coupon
}

func (c *mapCache) Invalidate(_ context.Context, code string) {
	delete(c.entries, code)
}

type fakeCacheStore struct {
	data    map[string]string
	ttls    map[string]time.Duration
	failGet bool
}

func newFakeCacheStore() *fakeCacheStore {
	return &fakeCacheStore{data: make(map[string]string), ttls: make(map[string]time.Duration)}
}

func (f *fakeCacheStore) Get(_ context.Context, key string) (string, error) {
	if f.failGet {
		return "", errors.New("connection refused")
	}
	v, ok := f.data[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (f *fakeCacheStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	f.data[key] = fmt.Sprint(value)
	f.ttls[key] = ttl
	return nil
}

func (f *fakeCacheStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.data, key)
	}
	return nil
}

func (f *fakeCacheStore) CouponKey(code string) string {
	return "fh:coupon:" + code
}

func TestRedisCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newFakeCacheStore()
	cache := NewRedisCache(store, time.Minute, nil)

	_, ok := cache.Get(ctx, "SAVE20")
	assert.False(t, ok)

	cache.Set(ctx, &models.Coupon{
		ID:                7,
		Code:              "SAVE20",
		DiscountType:      enums.DiscountTypePercentage,
		DiscountValue:     dec("20"),
		MaxDiscountAmount: decPtr("30.00"),
		IsActive:          true,
		Sellers:           []models.CouponSeller{{CouponID: 7, SellerID: 2}},
	})
	assert.Equal(t, time.Minute, store.ttls["fh:coupon:SAVE20"])

	got, ok := cache.Get(ctx, "SAVE20")
	require.True(t, ok)
	assert.Equal(t, int64(7), got.ID)
	assert.True(t, got.MaxDiscountAmount.Equal(dec("30.00")))
	require.Len(t, got.Sellers, 1)
	assert.Equal(t, int64(2), got.Sellers[0].SellerID)

	cache.Invalidate(ctx, "SAVE20")
	_, ok = cache.Get(ctx, "SAVE20")
	assert.False(t, ok)
}

func TestRedisCacheTreatsFailuresAsMiss(t *testing.T) {
	ctx := context.Background()
	store := newFakeCacheStore()
	store.data["fh:coupon:BROKEN"] = "{not json"
	cache := NewRedisCache(store, 0, nil)

	_, ok := cache.Get(ctx, "BROKEN")
	assert.False(t, ok)

	store.failGet = true
	_, ok = cache.Get(ctx, "ANY")
	assert.False(t, ok)
}
