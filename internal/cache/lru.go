package cache

import (
	"container/list"
	"context"
	"sync"
	"sync/atomic"

	"github.com/hupe1980/segread/internal/resource"
)

// LRUBlockCache holds at most capacity bytes of blocks, evicting the least
// recently used first. Blocks are indexed by file so a whole file can be
// dropped without walking the cache.
type LRUBlockCache struct {
	capacity int64
	rc       *resource.Controller

	mu    sync.Mutex
	used  int64
	order *list.List // front is most recent; values are *block
	files fileIndex[*list.Element]

	hits   atomic.Int64
	misses atomic.Int64
}

type block struct {
	key  CacheKey
	data []byte
}

// NewLRUBlockCache creates an LRU cache holding at most capacity bytes.
// Cached bytes are also reserved from rc when it is non-nil.
func NewLRUBlockCache(capacity int64, rc *resource.Controller) *LRUBlockCache {
	return &LRUBlockCache{
		capacity: capacity,
		rc:       rc,
		order:    list.New(),
		files:    make(fileIndex[*list.Element]),
	}
}

func (c *LRUBlockCache) Get(_ context.Context, key CacheKey) ([]byte, bool) {
	c.mu.Lock()
	el, ok := c.files.get(key)
	if ok {
		c.order.MoveToFront(el)
	}
	c.mu.Unlock()

	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return el.Value.(*block).data, true
}

// Set caches a block. Blocks larger than the capacity, or that the resource
// controller refuses, are dropped.
func (c *LRUBlockCache) Set(_ context.Context, key CacheKey, b []byte) {
	n := int64(len(b))
	if n > c.capacity {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.files.get(key); ok {
		// Blocks are immutable; a repeated Set only refreshes recency.
		c.order.MoveToFront(el)
		return
	}

	// Shrink before reserving so evicted bytes return to the controller first.
	c.shrinkTo(c.capacity - n)
	if !c.rc.ReserveMemory(n) {
		return
	}
	c.files.put(key, c.order.PushFront(&block{key: key, data: b}))
	c.used += n
}

// InvalidateFile drops every cached block of f.
func (c *LRUBlockCache) InvalidateFile(f FileRef) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	els := c.files.take(f)
	for _, el := range els {
		c.unlink(el)
	}
	return len(els)
}

func (c *LRUBlockCache) Close() error { return nil }

func (c *LRUBlockCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Size returns the bytes currently cached.
func (c *LRUBlockCache) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.used
}

// Len returns the number of cached blocks.
func (c *LRUBlockCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Files returns the number of files with at least one cached block.
func (c *LRUBlockCache) Files() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.files)
}

// shrinkTo evicts from the back until at most limit bytes remain.
// Callers hold c.mu.
func (c *LRUBlockCache) shrinkTo(limit int64) {
	for c.used > limit {
		el := c.order.Back()
		if el == nil {
			return
		}
		c.files.del(el.Value.(*block).key)
		c.unlink(el)
	}
}

// unlink removes el from the recency list and returns its bytes. The caller
// has already removed it from the file index.
func (c *LRUBlockCache) unlink(el *list.Element) {
	b := c.order.Remove(el).(*block)
	n := int64(len(b.data))
	c.used -= n
	c.rc.ReleaseMemory(n)
}
