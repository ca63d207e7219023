package cache

import (
	"context"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

const defaultDiskWriters = 16

// DiskCacheConfig holds configuration for the disk cache.
type DiskCacheConfig struct {
	// RootDir is the directory where cache files are stored.
	RootDir string
	// MaxSizeBytes is the maximum size of the cache in bytes.
	MaxSizeBytes int64
	// MaxConcurrentWrites limits background disk writes. Defaults to 16.
	MaxConcurrentWrites int64
}

// DiskBlockCache keeps blocks as files under RootDir, one directory per
// cached file:
//
//	<RootDir>/<kind>/<escaped path>/<offset>.blk
//
// An in-memory LRU index over the block files is rebuilt on open, so blocks
// written by an earlier process are served again.
type DiskBlockCache struct {
	root    string
	limit   int64
	writers *semaphore.Weighted
	pending sync.WaitGroup

	mu         sync.Mutex
	used       int64
	files      fileIndex[*diskBlock]
	head, tail *diskBlock // head is most recent

	hits   atomic.Int64
	misses atomic.Int64
}

type diskBlock struct {
	key        CacheKey
	size       int64
	prev, next *diskBlock
}

// NewDiskBlockCache creates a disk-backed block cache.
func NewDiskBlockCache(cfg DiskCacheConfig) (*DiskBlockCache, error) {
	if err := os.MkdirAll(cfg.RootDir, 0o755); err != nil {
		return nil, err
	}
	writers := cfg.MaxConcurrentWrites
	if writers <= 0 {
		writers = defaultDiskWriters
	}

	c := &DiskBlockCache{
		root:    cfg.RootDir,
		limit:   cfg.MaxSizeBytes,
		writers: semaphore.NewWeighted(writers),
		files:   make(fileIndex[*diskBlock]),
	}
	c.load()
	return c, nil
}

// load indexes block files left by a previous process. Anything that does
// not parse as a block is ignored.
func (c *DiskBlockCache) load() {
	_ = filepath.WalkDir(c.root, func(p string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil //nolint:nilerr // keep scanning past unreadable entries
		}
		key, ok := c.keyOf(p)
		if !ok {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil //nolint:nilerr
		}
		c.link(key, info.Size())
		return nil
	})
	c.mu.Lock()
	c.shrinkTo(c.limit)
	c.mu.Unlock()
}

func (c *DiskBlockCache) fileDir(f FileRef) string {
	return filepath.Join(c.root, strconv.Itoa(int(f.Kind)), url.PathEscape(f.Path))
}

func (c *DiskBlockCache) blockPath(key CacheKey) string {
	return filepath.Join(c.fileDir(key.File()), strconv.FormatUint(key.Offset, 10)+".blk")
}

func (c *DiskBlockCache) keyOf(p string) (CacheKey, bool) {
	rel, err := filepath.Rel(c.root, p)
	if err != nil {
		return CacheKey{}, false
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) != 3 || !strings.HasSuffix(parts[2], ".blk") {
		return CacheKey{}, false
	}
	kind, err := strconv.ParseUint(parts[0], 10, 8)
	if err != nil {
		return CacheKey{}, false
	}
	path, err := url.PathUnescape(parts[1])
	if err != nil {
		return CacheKey{}, false
	}
	off, err := strconv.ParseUint(strings.TrimSuffix(parts[2], ".blk"), 10, 64)
	if err != nil {
		return CacheKey{}, false
	}
	return CacheKey{Kind: CacheKind(kind), Path: path, Offset: off}, true
}

func (c *DiskBlockCache) Get(_ context.Context, key CacheKey) ([]byte, bool) {
	c.mu.Lock()
	b, ok := c.files.get(key)
	if ok {
		c.touch(b)
	}
	c.mu.Unlock()

	if ok {
		data, err := os.ReadFile(c.blockPath(key))
		if err == nil {
			c.hits.Add(1)
			return data, true
		}
		// The file vanished underneath us; forget it.
		c.mu.Lock()
		if cur, ok := c.files.get(key); ok && cur == b {
			c.files.del(key)
			c.unlink(b)
		}
		c.mu.Unlock()
	}
	c.misses.Add(1)
	return nil, false
}

// Set writes the block in the background. The block is dropped when every
// writer is busy.
func (c *DiskBlockCache) Set(_ context.Context, key CacheKey, data []byte) {
	size := int64(len(data))
	if size > c.limit {
		return
	}

	c.mu.Lock()
	if b, ok := c.files.get(key); ok {
		c.touch(b)
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	if !c.writers.TryAcquire(1) {
		return
	}
	c.pending.Add(1)
	go func() {
		defer c.pending.Done()
		defer c.writers.Release(1)

		c.mu.Lock()
		c.shrinkTo(c.limit - size)
		c.mu.Unlock()

		if err := writeBlockFile(c.blockPath(key), data); err != nil {
			return
		}

		c.mu.Lock()
		defer c.mu.Unlock()
		if _, ok := c.files.get(key); !ok {
			c.shrinkTo(c.limit - size)
			c.link(key, size)
		}
	}()
}

// writeBlockFile publishes data at p through a temp file and rename so
// readers never see a partial block.
func writeBlockFile(p string, data []byte) error {
	dir := filepath.Dir(p)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), p)
}

// InvalidateFile drops every block of f and removes its directory.
func (c *DiskBlockCache) InvalidateFile(f FileRef) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	blocks := c.files.take(f)
	for _, b := range blocks {
		c.unlink(b)
	}
	_ = os.RemoveAll(c.fileDir(f))
	return len(blocks)
}

// Close waits for background writes to finish.
func (c *DiskBlockCache) Close() error {
	c.pending.Wait()
	return nil
}

// Flush waits for in-flight writes without closing the cache.
func (c *DiskBlockCache) Flush() {
	c.pending.Wait()
}

func (c *DiskBlockCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Size returns the bytes currently indexed.
func (c *DiskBlockCache) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.used
}

// The helpers below expect c.mu to be held, except link during load.

func (c *DiskBlockCache) link(key CacheKey, size int64) {
	b := &diskBlock{key: key, size: size}
	c.files.put(key, b)
	c.used += size
	c.pushFront(b)
}

func (c *DiskBlockCache) pushFront(b *diskBlock) {
	b.prev, b.next = nil, c.head
	if c.head != nil {
		c.head.prev = b
	}
	c.head = b
	if c.tail == nil {
		c.tail = b
	}
}

func (c *DiskBlockCache) touch(b *diskBlock) {
	if c.head == b {
		return
	}
	c.detach(b)
	c.pushFront(b)
}

func (c *DiskBlockCache) detach(b *diskBlock) {
	if b.prev != nil {
		b.prev.next = b.next
	} else {
		c.head = b.next
	}
	if b.next != nil {
		b.next.prev = b.prev
	} else {
		c.tail = b.prev
	}
	b.prev, b.next = nil, nil
}

// unlink forgets b. The caller has removed it from the file index.
func (c *DiskBlockCache) unlink(b *diskBlock) {
	c.detach(b)
	c.used -= b.size
}

func (c *DiskBlockCache) shrinkTo(limit int64) {
	for c.used > limit && c.tail != nil {
		b := c.tail
		_ = os.Remove(c.blockPath(b.key))
		c.files.del(b.key)
		c.unlink(b)
	}
}
