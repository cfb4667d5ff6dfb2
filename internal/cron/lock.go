package cron

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/angelmondragon/foodhall-backend/internal/locks"
)

const defaultLockTTL = 10 * time.Minute

// Lock guards a maintenance cycle.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// RedisLock is a non-blocking leader lease keyed per environment: a worker
// that loses the SETNX skips the cycle instead of waiting. The TTL bounds how
// long a crashed worker can block the others.
type RedisLock struct {
	store locks.LeaseStore
	key   string
	ttl   time.Duration

	mu    sync.Mutex
	lease *locks.Lease
}

func NewRedisLock(store locks.LeaseStore, key string, ttl time.Duration) (*RedisLock, error) {
	if store == nil {
		return nil, errors.New("redis client required for lock")
	}
	if key == "" {
		return nil, errors.New("lock key is required")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLock{store: store, key: key, ttl: ttl}, nil
}

func (l *RedisLock) Acquire(ctx context.Context) (bool, error) {
	lease, err := locks.TryAcquire(ctx, l.store, l.key, l.ttl)
	if err != nil || lease == nil {
		return false, err
	}
	l.mu.Lock()
	l.lease = lease
	l.mu.Unlock()
	return true, nil
}

func (l *RedisLock) Release(ctx context.Context) error {
	l.mu.Lock()
	lease := l.lease
	l.lease = nil
	l.mu.Unlock()
	if lease == nil {
		return nil
	}
	return lease.Release(ctx)
}

// LocalLock serializes cycles inside one process. It is used when no redis
// endpoint is configured and a single worker runs.
type LocalLock struct {
	mu sync.Mutex
}

func (l *LocalLock) Acquire(context.Context) (bool, error) {
	return l.mu.TryLock(), nil
}

func (l *LocalLock) Release(context.Context) error {
	l.mu.Unlock()
	return nil
}
