package cache

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryIdempotencyStore_MarkProcessed(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()

	ctx := context.Background()

	t.Run("marks new key", func(t *testing.T) {
		isNew, err := store.MarkProcessed(ctx, "req-1", time.Hour)
		require.NoError(t, err)
		assert.True(t, isNew)
	})

	t.Run("rejects live key", func(t *testing.T) {
		_, err := store.MarkProcessed(ctx, "req-2", time.Hour)
		require.NoError(t, err)

		isNew, err := store.MarkProcessed(ctx, "req-2", time.Hour)
		require.NoError(t, err)
		assert.False(t, isNew)

		processed, err := store.IsProcessed(ctx, "req-2")
		require.NoError(t, err)
		assert.True(t, processed)
	})

	t.Run("accepts key again after expiry", func(t *testing.T) {
		now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
		store := NewInMemoryIdempotencyStore(WithStoreClock(func() time.Time { return now }))

		_, err := store.MarkProcessed(ctx, "req-3", time.Minute)
		require.NoError(t, err)

		now = now.Add(time.Minute)

		processed, err := store.IsProcessed(ctx, "req-3")
		require.NoError(t, err)
		assert.False(t, processed)

		isNew, err := store.MarkProcessed(ctx, "req-3", time.Hour)
		require.NoError(t, err)
		assert.True(t, isNew)
	})
}

func TestInMemoryIdempotencyStore_Forget(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()
	ctx := context.Background()

	_, err := store.MarkProcessed(ctx, "req-1", time.Hour)
	require.NoError(t, err)
	require.NoError(t, store.Forget(ctx, "req-1"))
	require.NoError(t, store.Forget(ctx, "never-marked"))

	isNew, err := store.MarkProcessed(ctx, "req-1", time.Hour)
	require.NoError(t, err)
	assert.True(t, isNew)
	assert.Equal(t, 1, store.Size())
}

func TestInMemoryIdempotencyStore_ConcurrentMark(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()

	var (
		wg    sync.WaitGroup
		fresh int32
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := store.MarkProcessed(context.Background(), "same", time.Hour)
			if err == nil && ok {
				atomic.AddInt32(&fresh, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), fresh)
}

func TestInMemoryIdempotencyStore_Sweep(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	store := NewInMemoryIdempotencyStore(WithStoreClock(func() time.Time { return now }))
	ctx := context.Background()

	_, _ = store.MarkProcessed(ctx, "short", time.Second)
	_, _ = store.MarkProcessed(ctx, "long", time.Hour)
	now = now.Add(time.Minute)

	store.sweep()
	assert.Equal(t, 1, store.Size())

	// two marks so far; the next sweepEvery-2 marks end on a sweep
	for i := 0; i < sweepEvery-3; i++ {
		_, _ = store.MarkProcessed(ctx, fmt.Sprintf("k-%d", i), time.Second)
	}
	now = now.Add(time.Minute)
	_, _ = store.MarkProcessed(ctx, "trigger", time.Hour)
	assert.Equal(t, 2, store.Size())
}

func TestInMemoryIdempotencyStore_CloseTwice(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	_, _ = store.MarkProcessed(context.Background(), "req-1", time.Hour)
	assert.NoError(t, store.Close())
	assert.NoError(t, store.Close())
	assert.Zero(t, store.Size())
}
