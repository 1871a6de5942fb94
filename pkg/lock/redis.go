package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// Compile-time interface assertion.
var _ Locker = (*Redis)(nil)

// releaseScript deletes the key only when this process still holds it, so
// a lock that expired and was re-acquired by a peer is never stolen back.
const releaseScript = `if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end`

// Redis is the multi-node Locker backed by SET NX PX.
type Redis struct {
	client *redis.Client

	mu     sync.Mutex
	tokens map[string]string
}

// NewRedis creates a Redis-backed Locker.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client, tokens: make(map[string]string)}
}

func (r *Redis) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	token := uuid.NewString()
	ok, err := r.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("lock: redis acquire %s: %w", key, err)
	}
	if !ok {
		return false, nil
	}
	r.mu.Lock()
	r.tokens[key] = token
	r.mu.Unlock()
	return true, nil
}

func (r *Redis) Held(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("lock: redis held %s: %w", key, err)
	}
	return n > 0, nil
}

func (r *Redis) Release(ctx context.Context, key string) error {
	r.mu.Lock()
	token, ok := r.tokens[key]
	delete(r.tokens, key)
	r.mu.Unlock()
	if !ok {
		return nil
	}
	if err := r.client.Eval(ctx, releaseScript, []string{key}, token).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("lock: redis release %s: %w", key, err)
	}
	return nil
}
