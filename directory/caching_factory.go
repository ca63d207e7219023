package directory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/armon/go-radix"
)

var (
	// ErrFactoryClosed is returned by every CachingFactory call after Close.
	ErrFactoryClosed = errors.New("directory: factory closed")
	// ErrUnknownDirectory is returned for a handle the factory does not track.
	ErrUnknownDirectory = errors.New("directory: unknown directory handle")
	// ErrRefCountUnderflow is returned by Release on a handle with no references.
	ErrRefCountUnderflow = errors.New("directory: release without matching reference")
)

// CreateFunc opens the directory stored at a normalized path.
type CreateFunc func(ctx context.Context, path string) (Directory, error)

// DirectoryFactory hands out shared directory handles by path.
type DirectoryFactory interface {
	Get(ctx context.Context, path string, lt LockType) (Directory, error)
	GetForceNew(ctx context.Context, path string, lt LockType) (Directory, error)
	IncRef(dir Directory) error
	Release(dir Directory) error
	DoneWithDirectory(dir Directory) error
	Close() error
}

// CloseListener observes the close of one cached directory. Both hooks run
// under the factory lock on the closing goroutine and must not block or
// call back into the factory.
type CloseListener interface {
	PreClose()
	PostClose()
}

// CloseListenerFuncs adapts two functions to CloseListener. Nil fields are skipped.
type CloseListenerFuncs struct {
	Pre  func()
	Post func()
}

func (c CloseListenerFuncs) PreClose() {
	if c.Pre != nil {
		c.Pre()
	}
}

func (c CloseListenerFuncs) PostClose() {
	if c.Post != nil {
		c.Post()
	}
}

type entryState uint8

const (
	stateOpen entryState = iota
	// statePendingClose closes the handle once its last reference is released.
	statePendingClose
	stateClosed
)

func (s entryState) String() string {
	switch s {
	case stateOpen:
		return "open"
	case statePendingClose:
		return "pending-close"
	default:
		return "closed"
	}
}

type cacheEntry struct {
	dir       Directory
	path      string
	refs      int
	state     entryState
	remove    bool
	listeners []CloseListener
}

// CachingFactory caches directory handles by normalized path and closes a
// handle once it has been marked done and its reference count drops to zero.
//
// All bookkeeping, including handle creation, runs under one mutex. I/O
// through the returned directories does not.
type CachingFactory struct {
	create    CreateFunc
	normalize func(string) (string, error)
	logger    *slog.Logger

	mu     sync.Mutex
	byPath map[string]*cacheEntry
	byDir  map[Directory]*cacheEntry
	paths  *radix.Tree
	closed bool
}

// FactoryOption configures a CachingFactory.
type FactoryOption func(*CachingFactory)

// WithLogger sets the logger for lock warnings and close failures.
func WithLogger(l *slog.Logger) FactoryOption {
	return func(f *CachingFactory) {
		if l != nil {
			f.logger = l
		}
	}
}

// WithNormalizer replaces the path normalization. The default makes paths
// absolute and cleans them with the host's file path rules.
func WithNormalizer(fn func(string) (string, error)) FactoryOption {
	return func(f *CachingFactory) {
		if fn != nil {
			f.normalize = fn
		}
	}
}

// NormalizeFilePath is the default normalizer.
func NormalizeFilePath(path string) (string, error) {
	if path == "" {
		return "", errors.New("directory: empty path")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.Clean(abs), nil
}

// NormalizeKeyPrefix normalizes slash-separated object store prefixes to
// the form "/a/b".
func NormalizeKeyPrefix(path string) (string, error) {
	p := strings.Trim(path, "/")
	if p == "" {
		return "", errors.New("directory: empty key prefix")
	}
	parts := strings.Split(p, "/")
	out := parts[:0]
	for _, s := range parts {
		switch s {
		case "", ".":
		case "..":
			if len(out) > 0 {
				out = out[:len(out)-1]
			}
		default:
			out = append(out, s)
		}
	}
	return "/" + strings.Join(out, "/"), nil
}

// NewCachingFactory creates a factory that opens directories with create.
func NewCachingFactory(create CreateFunc, opts ...FactoryOption) *CachingFactory {
	f := &CachingFactory{
		create:    create,
		normalize: NormalizeFilePath,
		logger:    slog.New(slog.DiscardHandler),
		byPath:    make(map[string]*cacheEntry),
		byDir:     make(map[Directory]*cacheEntry),
		paths:     radix.New(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Normalize returns the cache key for path.
func (f *CachingFactory) Normalize(path string) (string, error) {
	return f.normalize(path)
}

// Get returns the shared handle for path, creating it on first use, and
// takes one reference on it. A handle that was marked done but is still
// referenced is returned as is and closes after its last release.
func (f *CachingFactory) Get(ctx context.Context, path string, lt LockType) (Directory, error) {
	return f.get(ctx, path, lt, false)
}

// GetForceNew marks the current handle for path done, closing it now if it
// is unreferenced, and returns a new handle under the same path.
func (f *CachingFactory) GetForceNew(ctx context.Context, path string, lt LockType) (Directory, error) {
	return f.get(ctx, path, lt, true)
}

func (f *CachingFactory) get(ctx context.Context, path string, lt LockType, forceNew bool) (Directory, error) {
	lt, err := ParseLockType(string(lt))
	if err != nil {
		return nil, err
	}
	norm, err := f.normalize(path)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil, ErrFactoryClosed
	}

	e := f.byPath[norm]
	if e != nil && forceNew {
		f.unlinkPath(e)
		if e.state == stateOpen {
			e.state = statePendingClose
		}
		if e.refs == 0 {
			if err := f.closeEntry(e); err != nil {
				f.logger.Error("failed to close replaced directory", "path", norm, "error", err)
			}
		}
		e = nil
	}
	if e != nil {
		e.refs++
		return e.dir, nil
	}

	dir, err := f.create(ctx, norm)
	if err != nil {
		return nil, fmt.Errorf("directory: create %s: %w", norm, err)
	}
	lf, err := NewLockFactory(dir, lt)
	if err == nil {
		err = dir.SetLockFactory(lf)
	}
	if err != nil {
		_ = dir.Close()
		return nil, err
	}
	if lt == LockNone {
		f.logger.Warn("directory opened without locking; concurrent writers are not excluded", "path", norm)
	}

	e = &cacheEntry{dir: dir, path: norm, refs: 1}
	f.byPath[norm] = e
	f.byDir[dir] = e
	f.paths.Insert(norm, e)
	return dir, nil
}

// IncRef takes one more reference on dir.
func (f *CachingFactory) IncRef(dir Directory) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	e, err := f.lookup(dir)
	if err != nil {
		return err
	}
	e.refs++
	return nil
}

// Release drops one reference on dir. The handle is closed, and its close
// listeners run, when this was the last reference and the handle was marked
// done.
func (f *CachingFactory) Release(dir Directory) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	e, err := f.lookup(dir)
	if err != nil {
		return err
	}
	if e.refs <= 0 {
		return fmt.Errorf("%w: %s", ErrRefCountUnderflow, e.path)
	}
	e.refs--
	if e.refs == 0 && e.state == statePendingClose {
		return f.closeEntry(e)
	}
	return nil
}

// DoneWithDirectory marks dir for close. An unreferenced handle is closed
// before DoneWithDirectory returns.
func (f *CachingFactory) DoneWithDirectory(dir Directory) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	e, err := f.lookup(dir)
	if err != nil {
		return err
	}
	if e.state == stateOpen {
		e.state = statePendingClose
	}
	if e.refs == 0 {
		return f.closeEntry(e)
	}
	return nil
}

// AddCloseListener registers l to run around the close of dir.
func (f *CachingFactory) AddCloseListener(dir Directory, l CloseListener) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	e, err := f.lookup(dir)
	if err != nil {
		return err
	}
	e.listeners = append(e.listeners, l)
	return nil
}

// Remove deletes the contents of dir when it closes.
func (f *CachingFactory) Remove(dir Directory) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	e, err := f.lookup(dir)
	if err != nil {
		return err
	}
	e.remove = true
	return nil
}

// Exists reports whether a handle for path is cached.
func (f *CachingFactory) Exists(path string) bool {
	norm, err := f.normalize(path)
	if err != nil {
		return false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.byPath[norm]
	return ok
}

// Paths returns the cached paths starting with prefix in ascending order.
// An empty prefix returns every path.
func (f *CachingFactory) Paths(prefix string) []string {
	if prefix != "" {
		norm, err := f.normalize(prefix)
		if err != nil {
			return nil
		}
		prefix = norm
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []string
	f.paths.WalkPrefix(prefix, func(k string, _ interface{}) bool {
		out = append(out, k)
		return false
	})
	return out
}

// RefCount returns the reference count of dir.
func (f *CachingFactory) RefCount(dir Directory) (int, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.byDir[dir]
	if !ok {
		return 0, false
	}
	return e.refs, true
}

// Len returns the number of live handles, including replaced handles that
// are still referenced.
func (f *CachingFactory) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.byDir)
}

// Close closes every cached handle regardless of references, children
// before parents. Close failures are logged and do not stop the shutdown.
func (f *CachingFactory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrFactoryClosed
	}
	f.closed = true

	entries := make([]*cacheEntry, 0, len(f.byDir))
	for _, e := range f.byDir {
		entries = append(entries, e)
	}
	slices.SortFunc(entries, func(a, b *cacheEntry) int {
		return strings.Compare(b.path, a.path)
	})

	for _, e := range entries {
		if e.refs > 0 {
			f.logger.Warn("closing referenced directory", "path", e.path, "refs", e.refs, "state", e.state.String())
		}
		if err := f.closeEntry(e); err != nil {
			f.logger.Error("failed to close directory", "path", e.path, "error", err)
		}
	}

	clear(f.byPath)
	clear(f.byDir)
	f.paths = radix.New()
	return nil
}

func (f *CachingFactory) lookup(dir Directory) (*cacheEntry, error) {
	if f.closed {
		return nil, ErrFactoryClosed
	}
	e, ok := f.byDir[dir]
	if !ok {
		return nil, ErrUnknownDirectory
	}
	return e, nil
}

// unlinkPath drops the path mapping if it still points at e.
func (f *CachingFactory) unlinkPath(e *cacheEntry) {
	if cur, ok := f.byPath[e.path]; ok && cur == e {
		delete(f.byPath, e.path)
		f.paths.Delete(e.path)
	}
}

// closeEntry runs the listeners, optionally removes the contents and closes
// the handle. Callers hold f.mu.
func (f *CachingFactory) closeEntry(e *cacheEntry) error {
	if e.state == stateClosed {
		return nil
	}
	e.state = stateClosed
	f.unlinkPath(e)
	delete(f.byDir, e.dir)

	for _, l := range e.listeners {
		l.PreClose()
	}

	var errs []error
	if e.remove {
		if err := DeleteAll(context.Background(), e.dir); err != nil {
			errs = append(errs, fmt.Errorf("remove contents: %w", err))
		}
	}
	if err := e.dir.Close(); err != nil {
		errs = append(errs, err)
	}
	if e.remove {
		if r, ok := e.dir.(interface{ RemoveAll() error }); ok {
			if err := r.RemoveAll(); err != nil {
				errs = append(errs, fmt.Errorf("remove directory: %w", err))
			}
		}
	}

	for _, l := range e.listeners {
		l.PostClose()
	}

	if len(errs) > 0 {
		return fmt.Errorf("directory: close %s: %w", e.path, errors.Join(errs...))
	}
	return nil
}

var _ DirectoryFactory = (*CachingFactory)(nil)
