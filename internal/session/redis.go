package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/simplecom/checkout/internal/checkout"
)

func sessionKey(id string) string {
	return fmt.Sprintf("checkout:session:%s", id)
}

func lockKey(id string) string {
	return fmt.Sprintf("lock:checkout:%s", id)
}

// RedisStore keeps snapshots in Redis as JSON
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a RedisStore whose keys expire after ttl
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

// Load returns the snapshot for id
func (s *RedisStore) Load(ctx context.Context, id string) (checkout.Snapshot, error) {
	data, err := s.client.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return checkout.Snapshot{}, ErrNotFound
	}
	if err != nil {
		return checkout.Snapshot{}, fmt.Errorf("redis get failed: %w", err)
	}

	var snapshot checkout.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return checkout.Snapshot{}, fmt.Errorf("unmarshal checkout session failed: %w", err)
	}
	return snapshot, nil
}

// Save stores the snapshot for id and refreshes its expiry
func (s *RedisStore) Save(ctx context.Context, id string, snapshot checkout.Snapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal checkout session failed: %w", err)
	}
	if err := s.client.Set(ctx, sessionKey(id), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// releaseScript deletes the lock only while it still carries the caller's token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisGuard is a SETNX lock shared by every server instance
type RedisGuard struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisGuard creates a guard whose locks lapse after ttl
func NewRedisGuard(client *redis.Client, ttl time.Duration) *RedisGuard {
	return &RedisGuard{client: client, ttl: ttl}
}

// Acquire takes the lock for key. Returns false if it is already held.
func (g *RedisGuard) Acquire(ctx context.Context, key string) (string, bool, error) {
	token := uuid.NewString()
	ok, err := g.client.SetNX(ctx, lockKey(key), token, g.ttl).Result()
	if err != nil {
		return "", false, err
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

// Release drops the lock for key if token still holds it. A lock that lapsed
// and was taken by another attempt is left alone.
func (g *RedisGuard) Release(ctx context.Context, key, token string) error {
	if err := releaseScript.Run(ctx, g.client, []string{lockKey(key)}, token).Err(); err != nil {
		return fmt.Errorf("redis release failed: %w", err)
	}
	return nil
}
