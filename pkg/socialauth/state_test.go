package socialauth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStateStore(t *testing.T) {
	t.Parallel()

	t.Run("consume is single use", func(t *testing.T) {
		t.Parallel()

		store := NewMemoryStateStore(0)
		ctx := context.Background()

		require.NoError(t, store.Store(ctx, "abc", time.Now().Add(time.Minute)))
		require.NoError(t, store.Consume(ctx, "abc"))
		require.ErrorIs(t, store.Consume(ctx, "abc"), ErrStateNotFound)
	})

	t.Run("unknown state", func(t *testing.T) {
		t.Parallel()

		store := NewMemoryStateStore(0)
		require.ErrorIs(t, store.Consume(context.Background(), "nope"), ErrStateNotFound)
	})

	t.Run("expired state", func(t *testing.T) {
		t.Parallel()

		store := NewMemoryStateStore(0)
		ctx := context.Background()

		require.NoError(t, store.Store(ctx, "abc", time.Now().Add(-time.Second)))
		require.ErrorIs(t, store.Consume(ctx, "abc"), ErrStateNotFound)
	})

	t.Run("background cleanup sweeps abandoned states", func(t *testing.T) {
		t.Parallel()

		store := NewMemoryStateStore(10 * time.Millisecond)
		defer store.Close()
		ctx := context.Background()

		require.NoError(t, store.Store(ctx, "abandoned", time.Now().Add(-time.Second)))
		require.NoError(t, store.Store(ctx, "live", time.Now().Add(time.Minute)))

		assert.Eventually(t, func() bool {
			store.mu.Lock()
			defer store.mu.Unlock()
			_, gone := store.states["abandoned"]
			return !gone
		}, time.Second, 10*time.Millisecond, "abandoned state must be swept without being consumed")

		require.NoError(t, store.Consume(ctx, "live"))
	})

	t.Run("delete expired keeps live states", func(t *testing.T) {
		t.Parallel()

		store := NewMemoryStateStore(0)
		ctx := context.Background()

		require.NoError(t, store.Store(ctx, "stale", time.Now().Add(-time.Second)))
		require.NoError(t, store.Store(ctx, "live", time.Now().Add(time.Minute)))

		require.NoError(t, store.DeleteExpired(ctx))

		require.ErrorIs(t, store.Consume(ctx, "stale"), ErrStateNotFound)
		require.NoError(t, store.Consume(ctx, "live"))
	})

	t.Run("concurrent consumers race for one success", func(t *testing.T) {
		t.Parallel()

		store := NewMemoryStateStore(0)
		ctx := context.Background()
		require.NoError(t, store.Store(ctx, "abc", time.Now().Add(time.Minute)))

		const racers = 8
		results := make([]error, racers)
		var wg sync.WaitGroup
		for i := range racers {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i] = store.Consume(ctx, "abc")
			}(i)
		}
		wg.Wait()

		var succeeded int
		for _, err := range results {
			if err == nil {
				succeeded++
			} else {
				assert.ErrorIs(t, err, ErrStateNotFound)
			}
		}
		assert.Equal(t, 1, succeeded)
	})
}
