package lock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestLocalSerializesSameKey(t *testing.T) {
	locker := NewLocal()
	exerciseLocker(t, locker)

	if len(locker.entries) != 0 {
		t.Fatalf("expected entries to be released, got %d", len(locker.entries))
	}
}

func TestLocalHonorsContext(t *testing.T) {
	locker := NewLocal()
	unlock, err := locker.Lock(context.Background(), "user:1")
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := locker.Lock(ctx, "user:1"); err == nil {
		t.Fatalf("expected second lock to time out")
	}

	other, err := locker.Lock(context.Background(), "user:2")
	if err != nil {
		t.Fatalf("expected other key to lock: %v", err)
	}
	other()
}

func TestRedisSerializesSameKey(t *testing.T) {
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer client.Close()

	locker := NewRedis(client)
	locker.Retry = time.Millisecond
	exerciseLocker(t, locker)

	if server.Exists(keyPrefix + "user:1") {
		t.Fatalf("expected lock key to be released")
	}
}

func TestRedisLockExpires(t *testing.T) {
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer client.Close()

	locker := NewRedis(client)
	locker.TTL = time.Second
	locker.Retry = time.Millisecond

	if _, err := locker.Lock(context.Background(), "user:1"); err != nil {
		t.Fatalf("lock: %v", err)
	}
	server.FastForward(2 * time.Second)

	unlock, err := locker.Lock(context.Background(), "user:1")
	if err != nil {
		t.Fatalf("expected expired lock to be reacquired: %v", err)
	}
	unlock()
}

func exerciseLocker(t *testing.T, locker Locker) {
	t.Helper()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		holders int
		maxSeen int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := locker.Lock(context.Background(), "user:1")
			if err != nil {
				t.Errorf("lock: %v", err)
				return
			}
			mu.Lock()
			holders++
			maxSeen = max(maxSeen, holders)
			mu.Unlock()

			time.Sleep(2 * time.Millisecond)

			mu.Lock()
			holders--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()

	if maxSeen != 1 {
		t.Fatalf("expected one holder at a time, saw %d", maxSeen)
	}
}
