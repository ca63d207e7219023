package resource

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestController_Memory(t *testing.T) {
	c := NewController(Config{MemoryLimitBytes: 100})
	assert.Equal(t, int64(100), c.MemoryLimit())

	require.True(t, c.ReserveMemory(50))
	require.True(t, c.ReserveMemory(40))
	assert.Equal(t, int64(90), c.MemoryUsage())

	assert.False(t, c.ReserveMemory(20))
	assert.Equal(t, int64(90), c.MemoryUsage())

	c.ReleaseMemory(50)
	assert.True(t, c.ReserveMemory(20))
	assert.Equal(t, int64(60), c.MemoryUsage())

	// Non-positive sizes are ignored.
	assert.True(t, c.ReserveMemory(-1))
	c.ReleaseMemory(0)
	assert.Equal(t, int64(60), c.MemoryUsage())
}

func TestController_UnlimitedMemory(t *testing.T) {
	c := NewController(Config{})
	assert.Zero(t, c.MemoryLimit())

	assert.True(t, c.ReserveMemory(1<<40))
	c.ReleaseMemory(1 << 39)
	assert.Equal(t, int64(1<<39), c.MemoryUsage())
}

func TestController_Fetch(t *testing.T) {
	ctx := context.Background()
	c := NewController(Config{MaxConcurrentFetches: 2})

	require.NoError(t, c.AcquireFetch(ctx))
	require.NoError(t, c.AcquireFetch(ctx))
	assert.Equal(t, int64(2), c.Fetching())

	timeout, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, c.AcquireFetch(timeout), context.DeadlineExceeded)
	assert.Equal(t, int64(2), c.Fetching())

	c.ReleaseFetch()
	require.NoError(t, c.AcquireFetch(ctx))
	c.ReleaseFetch()
	c.ReleaseFetch()
	assert.Zero(t, c.Fetching())
}

func TestController_FetchBoundsConcurrency(t *testing.T) {
	ctx := context.Background()
	c := NewController(Config{MaxConcurrentFetches: 3})

	var (
		mu   sync.Mutex
		peak int64
		wg   sync.WaitGroup
	)
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if !assert.NoError(t, c.AcquireFetch(ctx)) {
				return
			}
			defer c.ReleaseFetch()
			mu.Lock()
			peak = max(peak, c.Fetching())
			mu.Unlock()
			time.Sleep(time.Millisecond)
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, peak, int64(3))
}

func TestController_DefaultFetchSlots(t *testing.T) {
	ctx := context.Background()
	c := NewController(Config{})
	for range DefaultMaxConcurrentFetches {
		require.NoError(t, c.AcquireFetch(ctx))
	}
	assert.Equal(t, int64(DefaultMaxConcurrentFetches), c.Fetching())
}

func TestController_WaitIO(t *testing.T) {
	ctx := context.Background()
	assert.NoError(t, NewController(Config{IOLimitBytesPerSec: 1000}).WaitIO(ctx, 100))
	assert.NoError(t, NewController(Config{}).WaitIO(ctx, 1<<30))

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	assert.Error(t, NewController(Config{IOLimitBytesPerSec: 1}).WaitIO(canceled, 1))
}

func TestController_NilSafe(t *testing.T) {
	var c *Controller
	ctx := context.Background()

	assert.True(t, c.ReserveMemory(100))
	c.ReleaseMemory(100)
	assert.Zero(t, c.MemoryUsage())
	assert.Zero(t, c.MemoryLimit())

	assert.NoError(t, c.AcquireFetch(ctx))
	c.ReleaseFetch()
	assert.Zero(t, c.Fetching())

	assert.NoError(t, c.WaitIO(ctx, 1<<30))
}
