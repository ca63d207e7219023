package directory

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/hupe1980/segread/internal/fs"
	"github.com/hupe1980/segread/internal/mmap"
)

// FSDirectory stores files in one local file system directory.
// Inputs are memory mapped when the directory uses the real file system.
type FSDirectory struct {
	baseDirectory

	path      string
	fs        fs.FileSystem
	useMmap   bool
	readAhead []string
}

// FSOption configures an FSDirectory.
type FSOption func(*FSDirectory)

// WithFileSystem replaces the file system, e.g. with an fs.FaultyFS in tests.
// Memory mapping is disabled for non-local file systems.
func WithFileSystem(fsys fs.FileSystem) FSOption {
	return func(d *FSDirectory) {
		d.fs = fsys
	}
}

// WithMmap toggles memory mapped inputs. Enabled by default.
func WithMmap(enabled bool) FSOption {
	return func(d *FSDirectory) {
		d.useMmap = enabled
	}
}

// WithReadAhead maps files whose names end in one of suffixes with
// read-ahead advice instead of random access. Meant for files decoded
// whole right after opening.
func WithReadAhead(suffixes ...string) FSOption {
	return func(d *FSDirectory) {
		d.readAhead = append(d.readAhead, suffixes...)
	}
}

// NewFSDirectory opens (creating if needed) the directory at path. Its
// default lock factory is the native flock(2) factory.
func NewFSDirectory(path string, opts ...FSOption) (*FSDirectory, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	d := &FSDirectory{
		path:    abs,
		fs:      fs.Default,
		useMmap: true,
	}
	for _, opt := range opts {
		opt(d)
	}
	if _, ok := d.fs.(fs.LocalFS); !ok {
		d.useMmap = false
	}
	if err := d.fs.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("directory: create %s: %w", abs, err)
	}
	d.lf = NewNativeFSLockFactory(abs)
	return d, nil
}

// Path returns the absolute directory path.
func (d *FSDirectory) Path() string { return d.path }

// NativeLockFactory implements LockProvider.
func (d *FSDirectory) NativeLockFactory() LockFactory {
	return NewNativeFSLockFactory(d.path)
}

func (d *FSDirectory) file(name string) string {
	return filepath.Join(d.path, name)
}

func (d *FSDirectory) advice(name string) mmap.Advice {
	for _, suffix := range d.readAhead {
		if strings.HasSuffix(name, suffix) {
			return mmap.AdviseWillNeed
		}
	}
	return mmap.AdviseRandom
}

func (d *FSDirectory) ListAll(context.Context) ([]string, error) {
	if err := d.ensureOpen(); err != nil {
		return nil, err
	}
	entries, err := d.fs.ReadDir(d.path)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() && !isStaged(e.Name()) {
			names = append(names, e.Name())
		}
	}
	slices.Sort(names)
	return names, nil
}

func (d *FSDirectory) FileLength(_ context.Context, name string) (int64, error) {
	if err := d.ensureOpen(); err != nil {
		return 0, err
	}
	fi, err := d.fs.Stat(d.file(name))
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

func (d *FSDirectory) DeleteFile(_ context.Context, name string) error {
	if err := d.ensureOpen(); err != nil {
		return err
	}
	return d.fs.Remove(d.file(name))
}

func (d *FSDirectory) OpenInput(_ context.Context, name string) (Input, error) {
	if err := d.ensureOpen(); err != nil {
		return nil, err
	}
	path := d.file(name)
	if d.useMmap {
		m, err := mmap.Open(path, d.advice(name))
		if err != nil {
			return nil, err
		}
		return &mmapInput{name: name, m: m}, nil
	}

	f, err := d.fs.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return nil, err
	}
	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &fileInput{name: name, f: f, size: fi.Size()}, nil
}

// CreateOutput stages the new file under a hidden name. Close links it into
// place, so readers never observe a partial file and a concurrent writer of
// the same name fails with ErrFileExists.
func (d *FSDirectory) CreateOutput(_ context.Context, name string) (Output, error) {
	if err := d.ensureOpen(); err != nil {
		return nil, err
	}
	final := d.file(name)
	if _, err := d.fs.Stat(final); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrFileExists, name)
	}
	staged := d.file("." + name + "." + uuid.NewString() + stagedSuffix)
	f, err := d.fs.OpenFile(staged, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	return &fileOutput{name: name, fs: d.fs, f: f, staged: staged, final: final}, nil
}

const stagedSuffix = ".tmp"

func isStaged(name string) bool {
	return strings.HasPrefix(name, ".") && strings.HasSuffix(name, stagedSuffix)
}

// Close marks the directory closed. Files on disk are kept.
func (d *FSDirectory) Close() error {
	d.markClosed()
	return nil
}

// RemoveAll deletes the directory and everything in it from disk.
func (d *FSDirectory) RemoveAll() error {
	return d.fs.RemoveAll(d.path)
}

type mmapInput struct {
	name string
	m    *mmap.Mapping
}

func (in *mmapInput) ReadAt(p []byte, off int64) (int, error) {
	n, err := in.m.ReadAt(p, off)
	if errors.Is(err, mmap.ErrClosed) {
		return n, ErrAlreadyClosed
	}
	return n, err
}

func (in *mmapInput) Close() error  { return in.m.Close() }
func (in *mmapInput) Length() int64 { return int64(in.m.Len()) }
func (in *mmapInput) Name() string  { return in.name }

type fileInput struct {
	name   string
	f      fs.File
	size   int64
	closed atomic.Bool
}

func (in *fileInput) ReadAt(p []byte, off int64) (int, error) {
	if in.closed.Load() {
		return 0, ErrAlreadyClosed
	}
	return in.f.ReadAt(p, off)
}

func (in *fileInput) Close() error {
	if in.closed.Swap(true) {
		return nil
	}
	return in.f.Close()
}

func (in *fileInput) Length() int64 { return in.size }
func (in *fileInput) Name() string  { return in.name }

type fileOutput struct {
	name          string
	fs            fs.FileSystem
	f             fs.File
	staged, final string
	failed        error
	done          bool
}

func (o *fileOutput) Write(p []byte) (int, error) {
	n, err := o.f.Write(p)
	if err != nil && o.failed == nil {
		o.failed = err
	}
	return n, err
}

func (o *fileOutput) Sync() error {
	err := o.f.Sync()
	if err != nil && o.failed == nil {
		o.failed = err
	}
	return err
}

func (o *fileOutput) Name() string { return o.name }

// Close publishes the file unless a write or sync failed. The staged copy is
// removed either way.
func (o *fileOutput) Close() error {
	if o.done {
		return nil
	}
	o.done = true
	defer func() { _ = o.fs.Remove(o.staged) }()

	if err := o.f.Close(); err != nil {
		return err
	}
	if o.failed != nil {
		return o.failed
	}
	if err := o.fs.Link(o.staged, o.final); err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%w: %s", ErrFileExists, o.name)
		}
		return err
	}
	return nil
}
