package cache

import (
	"context"
)

// CacheKind separates key spaces.
type CacheKind uint8

const (
	CacheKindUnknown  CacheKind = iota
	CacheKindBlob               // remote directory file blocks
	CacheKindOrdinals           // encoded ordinal index files
)

// CacheKey identifies one immutable block. Keys are stable across processes
// because index files are write-once.
type CacheKey struct {
	Kind CacheKind
	// Path identifies the source file (blob key or directory-relative name).
	Path string
	// Offset is the block index within Path.
	Offset uint64
}

// File returns the file the block belongs to.
func (k CacheKey) File() FileRef {
	return FileRef{Kind: k.Kind, Path: k.Path}
}

// FileRef names every block of one file.
type FileRef struct {
	Kind CacheKind
	Path string
}

// BlockCache is a byte-oriented cache for immutable blocks.
// Returned slices must be treated as read-only.
type BlockCache interface {
	// Get returns a cached block. ok=false if missing.
	Get(ctx context.Context, key CacheKey) (b []byte, ok bool)
	// Set caches a block. Implementations may retain b; callers must not modify it.
	Set(ctx context.Context, key CacheKey, b []byte)
	// InvalidateFile drops every block of f and returns how many were dropped.
	InvalidateFile(f FileRef) int
	// Close releases any resources (e.g. background writers).
	Close() error
	// Stats returns cache statistics.
	Stats() (hits, misses int64)
}

// fileIndex tracks which blocks of each file are resident.
type fileIndex[V any] map[FileRef]map[uint64]V

func (ix fileIndex[V]) put(k CacheKey, v V) {
	f := k.File()
	blocks := ix[f]
	if blocks == nil {
		blocks = make(map[uint64]V)
		ix[f] = blocks
	}
	blocks[k.Offset] = v
}

func (ix fileIndex[V]) get(k CacheKey) (V, bool) {
	v, ok := ix[k.File()][k.Offset]
	return v, ok
}

func (ix fileIndex[V]) del(k CacheKey) {
	f := k.File()
	blocks := ix[f]
	delete(blocks, k.Offset)
	if len(blocks) == 0 {
		delete(ix, f)
	}
}

// take removes and returns every block of f.
func (ix fileIndex[V]) take(f FileRef) []V {
	blocks := ix[f]
	if len(blocks) == 0 {
		return nil
	}
	out := make([]V, 0, len(blocks))
	for _, v := range blocks {
		out = append(out, v)
	}
	delete(ix, f)
	return out
}

func (ix fileIndex[V]) count() int {
	n := 0
	for _, blocks := range ix {
		n += len(blocks)
	}
	return n
}
