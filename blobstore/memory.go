package blobstore

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/armon/go-radix"
)

// MemoryStore keeps blobs in a radix tree, so List walks only the keys under
// the prefix and returns them already sorted. It is safe for concurrent use
// and mostly serves tests and the memory backend.
type MemoryStore struct {
	mu   sync.RWMutex
	tree *radix.Tree // name -> []byte, never mutated after insert
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tree: radix.New()}
}

func (m *MemoryStore) Open(ctx context.Context, name string) (Blob, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	v, ok := m.tree.Get(name)
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return memoryBlob(v.([]byte)), nil
}

// Create returns a writer whose bytes become visible under name on Close.
func (m *MemoryStore) Create(ctx context.Context, name string) (WritableBlob, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &memoryWriter{store: m, name: name}, nil
}

func (m *MemoryStore) Put(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.publish(name, bytes.Clone(data))
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	m.tree.Delete(name)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) List(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var names []string
	m.tree.WalkPrefix(prefix, func(name string, _ interface{}) bool {
		names = append(names, name)
		return false
	})
	return names, nil
}

// Len returns the number of stored blobs.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tree.Len()
}

func (m *MemoryStore) publish(name string, data []byte) {
	m.mu.Lock()
	m.tree.Insert(name, data)
	m.mu.Unlock()
}

// memoryBlob reads a published byte slice in place.
type memoryBlob []byte

func (b memoryBlob) ReadAt(_ context.Context, p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, ErrInvalidRange
	}
	if off >= int64(len(b)) {
		return 0, io.EOF
	}
	n := copy(p, b[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (b memoryBlob) ReadRange(_ context.Context, off, length int64) (io.ReadCloser, error) {
	if off < 0 || length < 0 {
		return nil, ErrInvalidRange
	}
	size := int64(len(b))
	start := min(off, size)
	end := min(start+length, size)
	return io.NopCloser(bytes.NewReader(b[start:end])), nil
}

func (b memoryBlob) Size() int64  { return int64(len(b)) }
func (b memoryBlob) Close() error { return nil }

type memoryWriter struct {
	store  *MemoryStore
	name   string
	buf    bytes.Buffer
	closed bool
}

func (w *memoryWriter) Write(p []byte) (int, error) {
	if w.closed {
		return 0, ErrWriterClosed
	}
	return w.buf.Write(p)
}

func (w *memoryWriter) Sync() error { return nil }

// Abort discards the buffered bytes.
func (w *memoryWriter) Abort() error {
	w.closed = true
	w.buf.Reset()
	return nil
}

func (w *memoryWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	w.store.publish(w.name, w.buf.Bytes())
	return nil
}
