// Package cache provides block caches for remote directory files.
//
// Keys are (kind, path, block index). Index files are write-once, so a block
// never needs revalidation. Every cache indexes its blocks by file, and
// InvalidateFile drops a deleted or rewritten file without scanning
// unrelated entries.
//
// LRUBlockCache is a byte-bounded LRU whose bytes are also reserved from a
// resource.Controller when one is given. ShardedLRUBlockCache splits the
// capacity over 64 of them; runs of consecutive blocks of a file land in the
// same shard.
//
// DiskBlockCache persists blocks under a local directory with one
// subdirectory per cached file. Writes happen in the background and are
// dropped when too many are in flight. The index is rebuilt from disk on
// open. TieredCache stacks a memory cache over a disk cache.
package cache
