package cache

import (
	"context"
	"errors"
)

// TieredCache fronts a slower cache (usually a DiskBlockCache) with a memory
// cache. Hits in the second tier are promoted to the first.
type TieredCache struct {
	l1, l2 BlockCache
}

// NewTieredCache stacks l1 over l2.
func NewTieredCache(l1, l2 BlockCache) *TieredCache {
	return &TieredCache{l1: l1, l2: l2}
}

func (t *TieredCache) Get(ctx context.Context, key CacheKey) ([]byte, bool) {
	if b, ok := t.l1.Get(ctx, key); ok {
		return b, true
	}
	b, ok := t.l2.Get(ctx, key)
	if ok {
		t.l1.Set(ctx, key, b)
	}
	return b, ok
}

func (t *TieredCache) Set(ctx context.Context, key CacheKey, b []byte) {
	t.l1.Set(ctx, key, b)
	t.l2.Set(ctx, key, b)
}

// InvalidateFile drops f from both tiers and reports the larger count.
func (t *TieredCache) InvalidateFile(f FileRef) int {
	return max(t.l1.InvalidateFile(f), t.l2.InvalidateFile(f))
}

func (t *TieredCache) Close() error {
	return errors.Join(t.l1.Close(), t.l2.Close())
}

// Stats reports first-tier hits and second-tier misses.
func (t *TieredCache) Stats() (hits, misses int64) {
	h1, _ := t.l1.Stats()
	h2, m2 := t.l2.Stats()
	return h1 + h2, m2
}
