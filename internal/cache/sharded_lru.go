package cache

import (
	"context"
	"hash/maphash"

	"github.com/hupe1980/segread/internal/resource"
)

const (
	numShards = 64

	// stripeBlocks consecutive blocks of a file share a shard, so a
	// sequential read touches few locks while large files still spread.
	stripeBlocks = 16
)

// ShardedLRUBlockCache splits the capacity across 64 LRU shards to reduce
// lock contention between concurrent readers.
type ShardedLRUBlockCache struct {
	shards [numShards]*LRUBlockCache
	seed   maphash.Seed
}

// NewShardedLRUBlockCache creates a sharded cache. The capacity is divided
// evenly across shards.
func NewShardedLRUBlockCache(capacity int64, rc *resource.Controller) *ShardedLRUBlockCache {
	s := &ShardedLRUBlockCache{seed: maphash.MakeSeed()}
	per := max(capacity/numShards, 1)
	for i := range s.shards {
		s.shards[i] = NewLRUBlockCache(per, rc)
	}
	return s
}

func (s *ShardedLRUBlockCache) shardFor(key CacheKey) *LRUBlockCache {
	var h maphash.Hash
	h.SetSeed(s.seed)
	_ = h.WriteByte(byte(key.Kind))
	_, _ = h.WriteString(key.Path)
	i := (h.Sum64() + key.Offset/stripeBlocks) % numShards
	return s.shards[i]
}

func (s *ShardedLRUBlockCache) Get(ctx context.Context, key CacheKey) ([]byte, bool) {
	return s.shardFor(key).Get(ctx, key)
}

func (s *ShardedLRUBlockCache) Set(ctx context.Context, key CacheKey, b []byte) {
	s.shardFor(key).Set(ctx, key, b)
}

// InvalidateFile drops every block of f. Each shard answers from its file
// index, so the sweep costs one lookup per shard.
func (s *ShardedLRUBlockCache) InvalidateFile(f FileRef) int {
	n := 0
	for _, sh := range s.shards {
		n += sh.InvalidateFile(f)
	}
	return n
}

func (s *ShardedLRUBlockCache) Close() error { return nil }

// Stats sums hits and misses over all shards.
func (s *ShardedLRUBlockCache) Stats() (hits, misses int64) {
	for _, sh := range s.shards {
		h, m := sh.Stats()
		hits += h
		misses += m
	}
	return hits, misses
}

// Size returns the bytes cached across all shards.
func (s *ShardedLRUBlockCache) Size() int64 {
	var total int64
	for _, sh := range s.shards {
		total += sh.Size()
	}
	return total
}

// ShardStat describes one shard.
type ShardStat struct {
	ShardID int
	Size    int64
	Blocks  int
	Hits    int64
	Misses  int64
}

// ShardStats returns per-shard statistics.
func (s *ShardedLRUBlockCache) ShardStats() []ShardStat {
	out := make([]ShardStat, 0, numShards)
	for i, sh := range s.shards {
		h, m := sh.Stats()
		out = append(out, ShardStat{ShardID: i, Size: sh.Size(), Blocks: sh.Len(), Hits: h, Misses: m})
	}
	return out
}
