package blobstore

import (
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/hupe1980/segread/internal/cache"
	"github.com/hupe1980/segread/internal/resource"
	"golang.org/x/sync/errgroup"
)

// DefaultBlockSize is the caching block size used when none is given.
const DefaultBlockSize = 64 * 1024

// maxFetchConcurrency bounds parallel backend reads for one ReadAt.
const maxFetchConcurrency = 16

// CachingStore wraps a BlobStore and caches reads in fixed-size blocks.
type CachingStore struct {
	inner     BlobStore
	cache     cache.BlockCache
	blockSize int64
	rc        *resource.Controller
}

// CachingOption configures a CachingStore.
type CachingOption func(*CachingStore)

// WithFetchLimit makes every backend read that fills the cache hold one of
// rc's fetch slots, bounding fetches across all blobs of the store.
func WithFetchLimit(rc *resource.Controller) CachingOption {
	return func(s *CachingStore) {
		s.rc = rc
	}
}

// NewCachingStore creates a new CachingStore.
// blockSize defaults to DefaultBlockSize if <= 0.
func NewCachingStore(inner BlobStore, c cache.BlockCache, blockSize int64, opts ...CachingOption) *CachingStore {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	s := &CachingStore{
		inner:     inner,
		cache:     c,
		blockSize: blockSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *CachingStore) Open(ctx context.Context, name string) (Blob, error) {
	b, err := s.inner.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	return &CachingBlob{
		inner:     b,
		cache:     s.cache,
		name:      name,
		blockSize: s.blockSize,
		rc:        s.rc,
	}, nil
}

// Create passes through. Cached blocks of name are dropped once the new blob
// is visible.
func (s *CachingStore) Create(ctx context.Context, name string) (WritableBlob, error) {
	w, err := s.inner.Create(ctx, name)
	if err != nil {
		return nil, err
	}
	return &invalidatingWriter{WritableBlob: w, invalidate: func() { s.invalidate(name) }}, nil
}

func (s *CachingStore) Put(ctx context.Context, name string, data []byte) error {
	s.invalidate(name)
	return s.inner.Put(ctx, name, data)
}

func (s *CachingStore) Delete(ctx context.Context, name string) error {
	s.invalidate(name)
	return s.inner.Delete(ctx, name)
}

func (s *CachingStore) List(ctx context.Context, prefix string) ([]string, error) {
	return s.inner.List(ctx, prefix)
}

func (s *CachingStore) invalidate(name string) {
	s.cache.InvalidateFile(cache.FileRef{Kind: cache.CacheKindBlob, Path: name})
}

type invalidatingWriter struct {
	WritableBlob
	invalidate func()
}

func (w *invalidatingWriter) Close() error {
	err := w.WritableBlob.Close()
	w.invalidate()
	return err
}

// CachingBlob wraps a Blob and serves reads from the block cache.
type CachingBlob struct {
	inner     Blob
	cache     cache.BlockCache
	name      string
	blockSize int64
	rc        *resource.Controller
}

func (b *CachingBlob) Close() error { return b.inner.Close() }
func (b *CachingBlob) Size() int64  { return b.inner.Size() }

func (b *CachingBlob) key(blk int64) cache.CacheKey {
	return cache.CacheKey{Kind: cache.CacheKindBlob, Path: b.name, Offset: uint64(blk)}
}

// ReadAt assembles p from the blocks it spans. Missing blocks are fetched
// from the backend first. It returns io.EOF when p extends past the blob.
func (b *CachingBlob) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if off < 0 {
		return 0, ErrInvalidRange
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	size := b.Size()
	if off >= size {
		return 0, io.EOF
	}
	end := min(off+int64(len(p)), size)

	first := off / b.blockSize
	blocks, err := b.blocks(ctx, first, (end-1)/b.blockSize)
	if err != nil {
		if errors.Is(err, ErrModified) {
			b.cache.InvalidateFile(cache.FileRef{Kind: cache.CacheKindBlob, Path: b.name})
		}
		return 0, err
	}

	n := 0
	for i, data := range blocks {
		base := (first + int64(i)) * b.blockSize
		lo := max(off, base) - base
		if lo >= int64(len(data)) {
			break
		}
		hi := min(end-base, int64(len(data)))
		n += copy(p[max(base, off)-off:], data[lo:hi])
	}
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// blocks returns blocks first..last. Cached blocks are used as they are;
// each run of missing blocks becomes one backend read, and the runs are
// fetched in parallel.
func (b *CachingBlob) blocks(ctx context.Context, first, last int64) ([][]byte, error) {
	out := make([][]byte, last-first+1)

	type run struct{ start, count int64 }
	var missing []run
	for blk := first; blk <= last; blk++ {
		if data, ok := b.cache.Get(ctx, b.key(blk)); ok {
			out[blk-first] = data
			continue
		}
		if k := len(missing) - 1; k >= 0 && missing[k].start+missing[k].count == blk {
			missing[k].count++
		} else {
			missing = append(missing, run{start: blk, count: 1})
		}
	}
	if len(missing) == 0 {
		return out, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxFetchConcurrency)
	size := b.Size()
	for _, r := range missing {
		g.Go(func() error {
			from := r.start * b.blockSize
			buf := make([]byte, min(r.count*b.blockSize, size-from))

			if err := b.rc.AcquireFetch(gctx); err != nil {
				return err
			}
			n, err := b.inner.ReadAt(gctx, buf, from)
			b.rc.ReleaseFetch()
			if err != nil && !errors.Is(err, io.EOF) {
				return err
			}

			for i := range r.count {
				lo := i * b.blockSize
				if lo >= int64(n) {
					break
				}
				// Copy so one cached block does not pin the whole run.
				data := bytes.Clone(buf[lo:min(lo+b.blockSize, int64(n))])
				out[r.start+i-first] = data
				b.cache.Set(gctx, b.key(r.start+i), data)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// ReadRange streams through the block cache.
func (b *CachingBlob) ReadRange(ctx context.Context, off, length int64) (io.ReadCloser, error) {
	if off < 0 || length < 0 {
		return nil, ErrInvalidRange
	}
	return io.NopCloser(&blockReader{blob: b, ctx: ctx, off: off, end: off + length}), nil
}

type blockReader struct {
	blob     *CachingBlob
	ctx      context.Context
	off, end int64
}

func (r *blockReader) Read(p []byte) (int, error) {
	if r.off >= r.end {
		return 0, io.EOF
	}
	if rest := r.end - r.off; int64(len(p)) > rest {
		p = p[:rest]
	}
	n, err := r.blob.ReadAt(r.ctx, p, r.off)
	r.off += int64(n)
	if n > 0 && errors.Is(err, io.EOF) {
		err = nil
	}
	return n, err
}
