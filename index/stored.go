package index

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hupe1980/segread/directory"
	"github.com/hupe1980/segread/internal/cache"
	"github.com/hupe1980/segread/ordinal"
)

// OrdinalsExt is the file extension of persisted ordinal indexes.
const OrdinalsExt = ".ord"

// OrdinalsFileName names the ordinal file of field in segment.
func OrdinalsFileName(segment, field string) string {
	return segment + "_" + field + OrdinalsExt
}

// WriteOrdinals encodes idx into a new file name in dir.
func WriteOrdinals(ctx context.Context, dir directory.Directory, name string, idx *ordinal.Index, c ordinal.Compression) error {
	var buf bytes.Buffer
	if err := ordinal.Encode(&buf, idx, c); err != nil {
		return fmt.Errorf("index: encode %s: %w", name, err)
	}
	if err := directory.WriteFile(ctx, dir, name, buf.Bytes()); err != nil {
		return fmt.Errorf("index: write %s: %w", name, err)
	}
	return nil
}

// ReadOrdinals decodes the ordinal index stored in name.
func ReadOrdinals(ctx context.Context, dir directory.Directory, name string) (*ordinal.Index, error) {
	in, err := dir.OpenInput(ctx, name)
	if err != nil {
		return nil, err
	}
	defer func() { _ = in.Close() }()

	idx, err := ordinal.ReadFrom(in, in.Length())
	if err != nil {
		return nil, fmt.Errorf("index: read %s: %w", name, err)
	}
	return idx, nil
}

// WriteSegmentOrdinals persists the sorted ordinals of every field of r.
func WriteSegmentOrdinals(ctx context.Context, dir directory.Directory, segment string, r LeafReader, c ordinal.Compression) error {
	fields := r.Fields()
	if fields == nil {
		return nil
	}
	it := fields.Iterator()
	for field, ok := it.Next(); ok; field, ok = it.Next() {
		idx, err := r.SortedOrds(field)
		if err != nil {
			return err
		}
		if err := WriteOrdinals(ctx, dir, OrdinalsFileName(segment, field), idx, c); err != nil {
			return err
		}
	}
	return nil
}

// StoredOrdinalsReader serves SortedOrds from ordinal files in a directory
// and delegates everything else to the wrapped reader.
type StoredOrdinalsReader struct {
	LeafReader

	dir     directory.Directory
	segment string
	cache   cache.BlockCache
	scope   string

	mu     sync.Mutex
	cached map[string]*ordinal.Index
}

// StoredOption configures a StoredOrdinalsReader.
type StoredOption func(*StoredOrdinalsReader)

// WithOrdinalCache keeps encoded ordinal files in c across readers. scope
// separates directories sharing one cache, typically the directory path.
func WithOrdinalCache(c cache.BlockCache, scope string) StoredOption {
	return func(r *StoredOrdinalsReader) {
		r.cache = c
		r.scope = scope
	}
}

// WithStoredOrdinals wraps r so that SortedOrds reads
// OrdinalsFileName(segment, field) from dir. A missing file means the field
// has no values.
func WithStoredOrdinals(r LeafReader, dir directory.Directory, segment string, opts ...StoredOption) *StoredOrdinalsReader {
	s := &StoredOrdinalsReader{
		LeafReader: r,
		dir:        dir,
		segment:    segment,
		cached:     make(map[string]*ordinal.Index),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *StoredOrdinalsReader) SortedOrds(field string) (*ordinal.Index, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if idx, ok := s.cached[field]; ok {
		return idx, nil
	}

	ctx := context.Background()
	name := OrdinalsFileName(s.segment, field)
	key := cache.CacheKey{Kind: cache.CacheKindOrdinals, Path: s.scope + "/" + name}

	var idx *ordinal.Index
	if s.cache != nil {
		if data, ok := s.cache.Get(ctx, key); ok {
			decoded, err := ordinal.Decode(data)
			if err == nil {
				idx = decoded
			} else {
				s.cache.InvalidateFile(key.File())
			}
		}
	}

	if idx == nil {
		data, err := directory.ReadFile(ctx, s.dir, name)
		switch {
		case errors.Is(err, directory.ErrFileNotFound):
			idx = ordinal.Empty(s.MaxDoc())
		case err != nil:
			return nil, fmt.Errorf("index: read %s: %w", name, err)
		default:
			idx, err = ordinal.Decode(data)
			if err != nil {
				return nil, fmt.Errorf("index: read %s: %w", name, err)
			}
			if s.cache != nil {
				s.cache.Set(ctx, key, data)
			}
		}
	}

	if idx.MaxDoc() != s.MaxDoc() {
		return nil, fmt.Errorf("%w: %s covers %d docs, segment has %d", ordinal.ErrCorrupt, name, idx.MaxDoc(), s.MaxDoc())
	}
	s.cached[field] = idx
	return idx, nil
}
