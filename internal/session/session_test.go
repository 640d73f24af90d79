package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simplecom/checkout/internal/checkout"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client, mr
}

func declined() checkout.Snapshot {
	msg := "Your card was declined."
	return checkout.Snapshot{State: checkout.StateErrorShown, ErrorMessage: &msg}
}

func TestStores_RoundTrip(t *testing.T) {
	client, _ := setupTestRedis(t)

	stores := map[string]Store{
		"memory": NewMemoryStore(time.Minute),
		"redis":  NewRedisStore(client, time.Minute),
	}

	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := store.Load(ctx, "missing")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, store.Save(ctx, "abc", declined()))

			got, err := store.Load(ctx, "abc")
			require.NoError(t, err)
			assert.Equal(t, checkout.StateErrorShown, got.State)
			require.NotNil(t, got.ErrorMessage)
			assert.Equal(t, "Your card was declined.", *got.ErrorMessage)
		})
	}
}

func TestMemoryStore_Expiry(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	now := time.Now()
	store.now = func() time.Time { return now }

	require.NoError(t, store.Save(context.Background(), "abc", declined()))

	now = now.Add(2 * time.Minute)
	_, err := store.Load(context.Background(), "abc")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_SweepsAbandonedSessions(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	now := time.Now()
	store.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "abandoned", declined()))
	require.NoError(t, store.Save(ctx, "active", declined()))

	now = now.Add(90 * time.Second)
	require.NoError(t, store.Save(ctx, "active", declined()))
	require.NoError(t, store.Save(ctx, "new", declined()))

	store.mu.Lock()
	_, abandoned := store.entries["abandoned"]
	count := len(store.entries)
	store.mu.Unlock()

	assert.False(t, abandoned, "expired entry must be swept without being loaded")
	assert.Equal(t, 2, count)
}

func TestRedisStore_TTLAndCorruption(t *testing.T) {
	client, mr := setupTestRedis(t)
	store := NewRedisStore(client, 5*time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "abc", declined()))
	assert.Equal(t, 5*time.Minute, mr.TTL(sessionKey("abc")))

	mr.FastForward(6 * time.Minute)
	_, err := store.Load(ctx, "abc")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, mr.Set(sessionKey("bad"), "{not json"))
	_, err = store.Load(ctx, "bad")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestGuards(t *testing.T) {
	client, _ := setupTestRedis(t)

	guards := map[string]checkout.Guard{
		"memory": NewMemoryGuard(time.Minute),
		"redis":  NewRedisGuard(client, time.Minute),
	}

	for name, guard := range guards {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			token, ok, err := guard.Acquire(ctx, "abc")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.NotEmpty(t, token)

			_, ok, err = guard.Acquire(ctx, "abc")
			require.NoError(t, err)
			assert.False(t, ok, "second acquire must fail while held")

			_, ok, err = guard.Acquire(ctx, "other")
			require.NoError(t, err)
			assert.True(t, ok, "locks are per key")

			require.NoError(t, guard.Release(ctx, "abc", "not-the-holder"))
			_, ok, err = guard.Acquire(ctx, "abc")
			require.NoError(t, err)
			assert.False(t, ok, "release with a foreign token must not unlock")

			require.NoError(t, guard.Release(ctx, "abc", token))

			_, ok, err = guard.Acquire(ctx, "abc")
			require.NoError(t, err)
			assert.True(t, ok)
		})
	}
}

func TestRedisGuard_StaleReleaseKeepsNewLock(t *testing.T) {
	client, mr := setupTestRedis(t)
	ctx := context.Background()
	guard := NewRedisGuard(client, time.Minute)

	first, ok, err := guard.Acquire(ctx, "abc")
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Minute)
	second, ok, err := guard.Acquire(ctx, "abc")
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, guard.Release(ctx, "abc", first))
	assert.True(t, mr.Exists(lockKey("abc")), "lapsed holder must not drop the new lock")

	got, err := mr.Get(lockKey("abc"))
	require.NoError(t, err)
	assert.Equal(t, second, got)

	require.NoError(t, guard.Release(ctx, "abc", second))
	assert.False(t, mr.Exists(lockKey("abc")))
}

func TestMemoryGuard_StaleReleaseKeepsNewLock(t *testing.T) {
	ctx := context.Background()
	guard := NewMemoryGuard(time.Minute)
	now := time.Now()
	guard.now = func() time.Time { return now }

	first, ok, _ := guard.Acquire(ctx, "abc")
	require.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok, _ = guard.Acquire(ctx, "abc")
	require.True(t, ok)

	require.NoError(t, guard.Release(ctx, "abc", first))
	_, ok, err := guard.Acquire(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, ok, "lapsed holder must not drop the new lock")
}

func TestGuards_Lapse(t *testing.T) {
	client, mr := setupTestRedis(t)
	ctx := context.Background()

	redisGuard := NewRedisGuard(client, time.Minute)
	_, ok, _ := redisGuard.Acquire(ctx, "abc")
	require.True(t, ok)
	mr.FastForward(2 * time.Minute)
	_, ok, err := redisGuard.Acquire(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, ok)

	memGuard := NewMemoryGuard(time.Minute)
	now := time.Now()
	memGuard.now = func() time.Time { return now }
	_, ok, _ = memGuard.Acquire(ctx, "abc")
	require.True(t, ok)
	now = now.Add(2 * time.Minute)
	_, ok, err = memGuard.Acquire(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisGuard_ClientError(t *testing.T) {
	client, mr := setupTestRedis(t)
	guard := NewRedisGuard(client, time.Minute)
	mr.Close()

	_, _, err := guard.Acquire(context.Background(), "abc")
	assert.Error(t, err)
	assert.Error(t, guard.Release(context.Background(), "abc", "token"))
}
