package locks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	pkgerrors "github.com/angelmondragon/foodhall-backend/pkg/errors"
)

func TestKeyedMutexSerializesSameKey(t *testing.T) {
	km := NewKeyedMutex()
	var inside int32
	var maxInside int32
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := km.Lock(context.Background(), UserKey(7))
			if err != nil {
				t.Errorf("lock: %v", err)
				return
			}
			defer unlock()
			n := atomic.AddInt32(&inside, 1)
			for {
				cur := atomic.LoadInt32(&maxInside)
				if n <= cur || atomic.CompareAndSwapInt32(&maxInside, cur, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
		}()
	}
	wg.Wait()

	if maxInside != 1 {
		t.Fatalf("expected at most one holder, saw %d", maxInside)
	}
	if got := km.held(UserKey(7)); got != 0 {
		t.Fatalf("expected slot cleanup, %d refs remain", got)
	}
}

func TestKeyedMutexIndependentKeys(t *testing.T) {
	km := NewKeyedMutex()
	unlockA, err := km.Lock(context.Background(), UserKey(1))
	if err != nil {
		t.Fatalf("lock a: %v", err)
	}
	defer unlockA()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	unlockB, err := km.Lock(ctx, UserKey(2))
	if err != nil {
		t.Fatalf("different key should not block: %v", err)
	}
	unlockB()
}

func TestKeyedMutexHonorsContext(t *testing.T) {
	km := NewKeyedMutex()
	unlock, err := km.Lock(context.Background(), "k")
	if err != nil {
		t.Fatalf("lock: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := km.Lock(ctx, "k"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}

	unlock()
	unlock()
	if got := km.held("k"); got != 0 {
		t.Fatalf("expected slot cleanup, %d refs remain", got)
	}
}

type fakeRedis struct {
	mu      sync.Mutex
	data    map[string]string
	setNXFn func() error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string]string{}}
}

func (f *fakeRedis) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setNXFn != nil {
		if err := f.setNXFn(); err != nil {
			return false, err
		}
	}
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	f.data[key] = fmt.Sprint(value)
	return true, nil
}

func (f *fakeRedis) DelIfValue(_ context.Context, key, value string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.data[key] != value {
		return false, nil
	}
	delete(f.data, key)
	return true, nil
}

func (f *fakeRedis) LockKey(scope, id string) string {
	parts := []string{"fh", "lock", scope}
	if id != "" {
		parts = append(parts, id)
	}
	return strings.Join(parts, ":")
}

func TestRedisLockerAcquireAndRelease(t *testing.T) {
	store := newFakeRedis()
	locker, err := NewRedisLocker(store, time.Second, 50*time.Millisecond, nil)
	if err != nil {
		t.Fatalf("new locker: %v", err)
	}

	unlock, err := locker.Lock(context.Background(), UserKey(9))
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	if _, ok := store.data["fh:lock:user:9"]; !ok {
		t.Fatalf("expected lock key to be stored, got %v", store.data)
	}

	_, err = locker.Lock(context.Background(), UserKey(9))
	if !pkgerrors.IsCode(err, pkgerrors.CodeBusy) {
		t.Fatalf("expected busy while held, got %v", err)
	}

	unlock()
	if _, ok := store.data["fh:lock:user:9"]; ok {
		t.Fatalf("expected lock key to be removed")
	}

	unlock2, err := locker.Lock(context.Background(), UserKey(9))
	if err != nil {
		t.Fatalf("relock: %v", err)
	}
	unlock2()
}

func TestRedisLockerReleaseKeepsForeignOwner(t *testing.T) {
	store := newFakeRedis()
	locker, err := NewRedisLocker(store, time.Second, 10*time.Millisecond, nil)
	if err != nil {
		t.Fatalf("new locker: %v", err)
	}
	unlock, err := locker.Lock(context.Background(), "user:3")
	if err != nil {
		t.Fatalf("lock: %v", err)
	}

	// simulate TTL expiry followed by another replica taking the lock
	store.data["fh:lock:user:3"] = "someone-else"
	unlock()

	if store.data["fh:lock:user:3"] != "someone-else" {
		t.Fatalf("release must not delete a lock owned by another holder")
	}
}

func TestRedisLockerWrapsStoreError(t *testing.T) {
	store := newFakeRedis()
	store.setNXFn = func() error { return errors.New("connection reset") }
	locker, err := NewRedisLocker(store, time.Second, time.Second, nil)
	if err != nil {
		t.Fatalf("new locker: %v", err)
	}

	_, err = locker.Lock(context.Background(), "user:1")
	if !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestNewRedisLockerRequiresClient(t *testing.T) {
	if _, err := NewRedisLocker(nil, 0, 0, nil); err == nil {
		t.Fatal("expected error without client")
	}
}

func TestLeaseReleaseOnlyFreesOwnAcquisition(t *testing.T) {
	ctx := context.Background()
	store := newFakeRedis()

	first, err := TryAcquire(ctx, store, "fh:lock:leader", time.Second)
	if err != nil || first == nil {
		t.Fatalf("first acquire: lease=%v err=%v", first, err)
	}
	if again, err := TryAcquire(ctx, store, "fh:lock:leader", time.Second); err != nil || again != nil {
		t.Fatalf("expected key to be taken, lease=%v err=%v", again, err)
	}

	// The first lease expires and another holder takes the key.
	delete(store.data, "fh:lock:leader")
	second, err := TryAcquire(ctx, store, "fh:lock:leader", time.Second)
	if err != nil || second == nil {
		t.Fatalf("second acquire: lease=%v err=%v", second, err)
	}

	if err := first.Release(ctx); err != nil {
		t.Fatalf("stale release: %v", err)
	}
	if _, ok := store.data["fh:lock:leader"]; !ok {
		t.Fatalf("stale release must not free the new holder's key")
	}
	if err := second.Release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
	if _, ok := store.data["fh:lock:leader"]; ok {
		t.Fatalf("expected key to be removed")
	}
}
