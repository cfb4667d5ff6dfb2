package locks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/foodhall-backend/pkg/errors"
	"github.com/angelmondragon/foodhall-backend/pkg/logger"
)

const (
	defaultLockTTL    = 30 * time.Second
	defaultRetryDelay = 25 * time.Millisecond
	maxRetryDelay     = 250 * time.Millisecond
)

// LeaseStore is the SETNX plus compare-and-delete surface of pkg/redis.
type LeaseStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	DelIfValue(ctx context.Context, key, value string) (bool, error)
}

// Lease is an owned Redis key. Each acquisition carries a fresh owner token,
// so releasing a lease that already expired never frees a later holder's.
type Lease struct {
	store LeaseStore
	key   string
	owner string
}

// TryAcquire makes one SETNX attempt and returns nil when key is taken.
func TryAcquire(ctx context.Context, store LeaseStore, key string, ttl time.Duration) (*Lease, error) {
	owner := uuid.NewString()
	ok, err := store.SetNX(ctx, key, owner, ttl)
	if err != nil {
		return nil, fmt.Errorf("setnx: %w", err)
	}
	if !ok {
		return nil, nil
	}
	return &Lease{store: store, key: key, owner: owner}, nil
}

func (l *Lease) Key() string { return l.key }

// Release deletes the key while it still carries this lease's owner. An
// expired lease is not an error.
func (l *Lease) Release(ctx context.Context) error {
	if _, err := l.store.DelIfValue(ctx, l.key, l.owner); err != nil {
		return fmt.Errorf("release lock: %w", err)
	}
	return nil
}

type redisStore interface {
	LeaseStore
	LockKey(scope, id string) string
}

// RedisLocker implements Locker with Redis SETNX + TTL so several API replicas
// share one per-user lock.
type RedisLocker struct {
	client  redisStore
	ttl     time.Duration
	maxWait time.Duration
	logg    *logger.Logger
}

// NewRedisLocker constructs a Redis-backed locker. Lock gives up after maxWait.
func NewRedisLocker(client redisStore, ttl, maxWait time.Duration, logg *logger.Logger) (*RedisLocker, error) {
	if client == nil {
		return nil, errors.New("redis client required for lock")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	if maxWait <= 0 {
		maxWait = ttl
	}
	return &RedisLocker{client: client, ttl: ttl, maxWait: maxWait, logg: logg}, nil
}

// Lock polls SETNX with a growing delay until it owns the key.
func (l *RedisLocker) Lock(ctx context.Context, key string) (Unlock, error) {
	if key == "" {
		return nil, errors.New("lock key is required")
	}
	redisKey := l.client.LockKey(key, "")
	deadline := time.Now().Add(l.maxWait)
	delay := defaultRetryDelay

	for {
		lease, err := TryAcquire(ctx, l.client, redisKey, l.ttl)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire lock")
		}
		if lease != nil {
			var once sync.Once
			return func() {
				once.Do(func() { l.release(lease) })
			}, nil
		}
		if time.Now().After(deadline) {
			return nil, pkgerrors.New(pkgerrors.CodeBusy, "another request for this account is in progress")
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		delay *= 2
		if delay > maxRetryDelay {
			delay = maxRetryDelay
		}
	}
}

func (l *RedisLocker) release(lease *Lease) {
	ctx := context.Background()
	if err := lease.Release(ctx); err != nil && l.logg != nil {
		l.logg.Error(l.logg.WithField(ctx, "lock_key", lease.Key()), "failed to release lock", err)
	}
}
