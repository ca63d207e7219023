package directory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"slices"
	"sync"
	"sync/atomic"
)

// MemoryDirectory keeps files in memory. It is safe for concurrent use.
// Closing it drops every file.
type MemoryDirectory struct {
	baseDirectory

	mu      sync.RWMutex
	files   map[string][]byte
	pending map[string]struct{}
}

// NewMemoryDirectory creates an empty in-memory directory with an
// in-process lock factory.
func NewMemoryDirectory() *MemoryDirectory {
	d := &MemoryDirectory{
		files:   make(map[string][]byte),
		pending: make(map[string]struct{}),
	}
	d.lf = NewSingleInstanceLockFactory()
	return d
}

func (d *MemoryDirectory) ListAll(context.Context) ([]string, error) {
	if err := d.ensureOpen(); err != nil {
		return nil, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()

	names := make([]string, 0, len(d.files))
	for name := range d.files {
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}

func (d *MemoryDirectory) FileLength(_ context.Context, name string) (int64, error) {
	if err := d.ensureOpen(); err != nil {
		return 0, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()

	data, ok := d.files[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrFileNotFound, name)
	}
	return int64(len(data)), nil
}

func (d *MemoryDirectory) DeleteFile(_ context.Context, name string) error {
	if err := d.ensureOpen(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.files[name]; !ok {
		return fmt.Errorf("%w: %s", ErrFileNotFound, name)
	}
	delete(d.files, name)
	return nil
}

func (d *MemoryDirectory) OpenInput(_ context.Context, name string) (Input, error) {
	if err := d.ensureOpen(); err != nil {
		return nil, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()

	data, ok := d.files[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, name)
	}
	return &memoryInput{name: name, r: bytes.NewReader(data), size: int64(len(data))}, nil
}

func (d *MemoryDirectory) CreateOutput(_ context.Context, name string) (Output, error) {
	if err := d.ensureOpen(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.files[name]; ok {
		return nil, fmt.Errorf("%w: %s", ErrFileExists, name)
	}
	if _, ok := d.pending[name]; ok {
		return nil, fmt.Errorf("%w: %s", ErrFileExists, name)
	}
	d.pending[name] = struct{}{}
	return &memoryOutput{dir: d, name: name}, nil
}

// Close drops all files. Subsequent operations fail with ErrAlreadyClosed.
func (d *MemoryDirectory) Close() error {
	if !d.markClosed() {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.files = make(map[string][]byte)
	d.pending = make(map[string]struct{})
	return nil
}

type memoryInput struct {
	name   string
	r      *bytes.Reader
	size   int64
	closed atomic.Bool
}

func (in *memoryInput) ReadAt(p []byte, off int64) (int, error) {
	if in.closed.Load() {
		return 0, ErrAlreadyClosed
	}
	return in.r.ReadAt(p, off)
}

func (in *memoryInput) Close() error  { in.closed.Store(true); return nil }
func (in *memoryInput) Length() int64 { return in.size }
func (in *memoryInput) Name() string  { return in.name }

type memoryOutput struct {
	dir    *MemoryDirectory
	name   string
	buf    bytes.Buffer
	closed bool
}

func (o *memoryOutput) Write(p []byte) (int, error) {
	if o.closed {
		return 0, io.ErrClosedPipe
	}
	return o.buf.Write(p)
}

func (o *memoryOutput) Sync() error  { return nil }
func (o *memoryOutput) Name() string { return o.name }

func (o *memoryOutput) Close() error {
	if o.closed {
		return nil
	}
	o.closed = true
	if err := o.dir.ensureOpen(); err != nil {
		return err
	}
	o.dir.mu.Lock()
	defer o.dir.mu.Unlock()
	delete(o.dir.pending, o.name)
	o.dir.files[o.name] = bytes.Clone(o.buf.Bytes())
	return nil
}
