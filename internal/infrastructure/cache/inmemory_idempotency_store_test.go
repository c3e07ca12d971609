package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rentledger/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryIdempotencyStore_RememberLookup(t *testing.T) {
	store := NewInMemoryIdempotencyStore(time.Hour)
	defer store.Close()
	ctx := context.Background()

	_, found, err := store.Lookup(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, found)

	isNew, err := store.Remember(ctx, "k1", "payment-1", time.Hour)
	require.NoError(t, err)
	assert.True(t, isNew)

	isNew, err = store.Remember(ctx, "k1", "payment-2", time.Hour)
	require.NoError(t, err)
	assert.False(t, isNew, "first value wins")

	value, found, err := store.Lookup(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "payment-1", value)
}

func TestInMemoryIdempotencyStore_Expiry(t *testing.T) {
	store := NewInMemoryIdempotencyStore(time.Hour)
	defer store.Close()
	ctx := context.Background()

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	_, err := store.Remember(ctx, "k", "v1", time.Minute)
	require.NoError(t, err)

	now = now.Add(time.Minute)
	_, found, err := store.Lookup(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)

	isNew, err := store.Remember(ctx, "k", "v2", time.Minute)
	require.NoError(t, err)
	assert.True(t, isNew, "expired key can be reused")

	now = now.Add(2 * time.Minute)
	store.cleanup()
	assert.Equal(t, 0, store.Size())
}

func TestInMemoryIdempotencyStore_ConcurrentRemember(t *testing.T) {
	store := NewInMemoryIdempotencyStore(time.Hour)
	defer store.Close()
	ctx := context.Background()

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		winners int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := store.Remember(ctx, "shared", "v", time.Hour)
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, winners)
}

func TestInMemoryIdempotencyStore_CloseTwice(t *testing.T) {
	store := NewInMemoryIdempotencyStore(0)
	assert.NoError(t, store.Close())
	assert.NoError(t, store.Close())
}

func TestIdempotencyStoreFactory(t *testing.T) {
	ctx := context.Background()

	t.Run("memory backend", func(t *testing.T) {
		f := NewIdempotencyStoreFactory(config.RedisConfig{})
		store, err := f.CreateStore(ctx, "memory")
		require.NoError(t, err)
		assert.IsType(t, &InMemoryIdempotencyStore{}, store)
		store.Close()
	})

	t.Run("unreachable redis falls back", func(t *testing.T) {
		f := NewIdempotencyStoreFactory(config.RedisConfig{Host: "127.0.0.1", Port: 1})
		store, err := f.CreateStore(ctx, "redis")
		require.NoError(t, err)
		assert.IsType(t, &InMemoryIdempotencyStore{}, store)
		store.Close()
	})

	t.Run("unreachable redis without fallback fails", func(t *testing.T) {
		f := NewIdempotencyStoreFactory(config.RedisConfig{Host: "127.0.0.1", Port: 1}, WithInMemoryFallback(false))
		_, err := f.CreateStore(ctx, "redis")
		assert.Error(t, err)
	})
}
