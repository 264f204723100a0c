package lock

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	defaultTTL   = 10 * time.Second
	defaultRetry = 25 * time.Millisecond
	keyPrefix    = "taskmanager:lock:"
)

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is a Locker shared by every process talking to the same Redis.
// A lock expires after TTL if its holder dies without releasing it.
type Redis struct {
	Client *redis.Client
	TTL    time.Duration
	Retry  time.Duration
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{Client: client, TTL: defaultTTL, Retry: defaultRetry}
}

// ConnectRedis pings addr and returns a client, or an error if Redis is
// unreachable.
func ConnectRedis(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return client, nil
}

func (r *Redis) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := keyPrefix + key
	token := uuid.NewString()

	ttl := r.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	retry := r.Retry
	if retry <= 0 {
		retry = defaultRetry
	}

	ticker := time.NewTicker(retry)
	defer ticker.Stop()

	for {
		ok, err := r.Client.SetNX(ctx, redisKey, token, ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}

	released := false
	return func() {
		if released {
			return
		}
		released = true
		// the caller's context may already be done
		if err := releaseScript.Run(context.Background(), r.Client, []string{redisKey}, token).Err(); err != nil {
			slog.Warn("release redis lock", "key", key, "error", err)
		}
	}, nil
}
