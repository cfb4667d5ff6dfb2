package locks

import (
	"context"
	"strconv"
	"sync"
)

// Unlock releases a held lock. Calling it more than once is safe.
type Unlock func()

// Locker serializes work sharing a key. Cart mutations, wallet appends and
// order placement for one user all run under UserKey(userID).
type Locker interface {
	Lock(ctx context.Context, key string) (Unlock, error)
}

// UserKey is the lock key for per-user work.
func UserKey(userID int64) string {
	return "user:" + strconv.FormatInt(userID, 10)
}

// KeyedMutex is an in-process Locker. It is enough when a single API replica
// serves all traffic.
type KeyedMutex struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	ch   chan struct{}
	refs int
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{slots: make(map[string]*slot)}
}

// Lock blocks until the key is free or ctx is done.
func (k *KeyedMutex) Lock(ctx context.Context, key string) (Unlock, error) {
	k.mu.Lock()
	if k.slots == nil {
		k.slots = make(map[string]*slot)
	}
	s, ok := k.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		k.slots[key] = s
	}
	s.refs++
	k.mu.Unlock()

	select {
	case s.ch <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-s.ch
				k.release(key, s)
			})
		}, nil
	case <-ctx.Done():
		k.release(key, s)
		return nil, ctx.Err()
	}
}

func (k *KeyedMutex) release(key string, s *slot) {
	k.mu.Lock()
	defer k.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(k.slots, key)
	}
}

// held reports how many callers hold or wait on key.
func (k *KeyedMutex) held(key string) int {
	k.mu.Lock()
	defer k.mu.Unlock()
	if s, ok := k.slots[key]; ok {
		return s.refs
	}
	return 0
}
