package resource

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// DefaultMaxConcurrentFetches applies when Config.MaxConcurrentFetches is 0.
const DefaultMaxConcurrentFetches = 8

// Config holds the node-wide limits.
type Config struct {
	// MemoryLimitBytes caps the bytes block caches may hold. 0 tracks usage
	// without a limit.
	MemoryLimitBytes int64

	// MaxConcurrentFetches caps backend reads that fill the block cache
	// across all blobs.
	MaxConcurrentFetches int64

	// IOLimitBytesPerSec caps remote directory throughput. 0 is unlimited.
	IOLimitBytesPerSec int64
}

// Controller enforces Config. A nil *Controller imposes no limits.
type Controller struct {
	memLimit int64
	memSem   *semaphore.Weighted
	memUsed  atomic.Int64

	fetchSem *semaphore.Weighted
	fetching atomic.Int64

	io *rate.Limiter
}

// NewController creates a controller for cfg.
func NewController(cfg Config) *Controller {
	fetches := cfg.MaxConcurrentFetches
	if fetches <= 0 {
		fetches = DefaultMaxConcurrentFetches
	}

	c := &Controller{
		memLimit: cfg.MemoryLimitBytes,
		fetchSem: semaphore.NewWeighted(fetches),
	}
	if cfg.MemoryLimitBytes > 0 {
		c.memSem = semaphore.NewWeighted(cfg.MemoryLimitBytes)
	}
	if cfg.IOLimitBytesPerSec > 0 {
		c.io = rate.NewLimiter(rate.Limit(cfg.IOLimitBytesPerSec), int(cfg.IOLimitBytesPerSec))
	}
	return c
}

// ReserveMemory charges bytes against the memory limit without blocking.
// It reports false, charging nothing, when the limit would be exceeded.
func (c *Controller) ReserveMemory(bytes int64) bool {
	if c == nil || bytes <= 0 {
		return true
	}
	if c.memSem != nil && !c.memSem.TryAcquire(bytes) {
		return false
	}
	c.memUsed.Add(bytes)
	return true
}

// ReleaseMemory returns bytes taken by ReserveMemory.
func (c *Controller) ReleaseMemory(bytes int64) {
	if c == nil || bytes <= 0 {
		return
	}
	if c.memSem != nil {
		c.memSem.Release(bytes)
	}
	c.memUsed.Add(-bytes)
}

// MemoryUsage returns the bytes currently reserved.
func (c *Controller) MemoryUsage() int64 {
	if c == nil {
		return 0
	}
	return c.memUsed.Load()
}

// MemoryLimit returns the configured limit, 0 when unlimited.
func (c *Controller) MemoryLimit() int64 {
	if c == nil {
		return 0
	}
	return c.memLimit
}

// AcquireFetch blocks until a fetch slot is free or ctx is done. Every
// successful call must be paired with ReleaseFetch.
func (c *Controller) AcquireFetch(ctx context.Context) error {
	if c == nil {
		return ctx.Err()
	}
	if err := c.fetchSem.Acquire(ctx, 1); err != nil {
		return err
	}
	c.fetching.Add(1)
	return nil
}

// ReleaseFetch frees a slot taken by AcquireFetch.
func (c *Controller) ReleaseFetch() {
	if c == nil {
		return
	}
	c.fetching.Add(-1)
	c.fetchSem.Release(1)
}

// Fetching returns the number of fetch slots in use.
func (c *Controller) Fetching() int64 {
	if c == nil {
		return 0
	}
	return c.fetching.Load()
}

// WaitIO blocks until n bytes of remote IO are allowed. n must not exceed
// the burst; the rate-limited wrappers split larger transfers.
func (c *Controller) WaitIO(ctx context.Context, n int) error {
	if c == nil || c.io == nil {
		return nil
	}
	return c.io.WaitN(ctx, n)
}
