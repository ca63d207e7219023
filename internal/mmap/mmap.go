package mmap

import (
	"errors"
	"io"
	"os"
	"sync/atomic"
)

// Advice tells the kernel how a mapping will be read.
type Advice int

const (
	AdviseNormal Advice = iota
	AdviseSequential
	AdviseRandom
	// AdviseWillNeed asks for read-ahead of the whole file, for files that
	// are decoded in one pass right after opening.
	AdviseWillNeed
)

var (
	ErrClosed        = errors.New("mmap: mapping is closed")
	ErrTooLarge      = errors.New("mmap: file too large to map")
	ErrInvalidOffset = errors.New("mmap: negative offset")
)

// Mapping is a read-only view of a whole file.
type Mapping struct {
	data   []byte
	unmap  func() error
	closed atomic.Bool
}

// Open maps the file at path read-only and applies advice. Empty files
// yield an empty mapping without a system mapping behind it.
func Open(path string, advice Advice) (*Mapping, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size := fi.Size()
	if int64(int(size)) != size {
		return nil, ErrTooLarge
	}

	m := &Mapping{}
	if size > 0 {
		if m.data, m.unmap, err = osMap(f, int(size)); err != nil {
			return nil, err
		}
		if advice != AdviseNormal {
			_ = osAdvise(m.data, advice)
		}
	}
	return m, nil
}

// Close unmaps the file. Repeated calls return nil.
func (m *Mapping) Close() error {
	if m.closed.Swap(true) || m.unmap == nil {
		return nil
	}
	return m.unmap()
}

// Bytes returns the mapped bytes, or nil after Close. The slice is invalid
// once the mapping is closed.
func (m *Mapping) Bytes() []byte {
	if m.closed.Load() {
		return nil
	}
	return m.data
}

func (m *Mapping) Len() int { return len(m.data) }

// Advise changes the access hint of an open mapping.
func (m *Mapping) Advise(advice Advice) error {
	switch {
	case m.closed.Load():
		return ErrClosed
	case len(m.data) == 0:
		return nil
	}
	return osAdvise(m.data, advice)
}

// ReadAt implements io.ReaderAt.
func (m *Mapping) ReadAt(p []byte, off int64) (int, error) {
	if m.closed.Load() {
		return 0, ErrClosed
	}
	if off < 0 {
		return 0, ErrInvalidOffset
	}
	if off >= int64(len(m.data)) {
		if len(p) == 0 {
			return 0, nil
		}
		return 0, io.EOF
	}
	n := copy(p, m.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}
