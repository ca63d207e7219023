package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// WriteLockName is the lock file guarding a directory against concurrent writers.
const WriteLockName = "write.lock"

var (
	// ErrUnknownLockType is returned for an unrecognized lock type name.
	ErrUnknownLockType = errors.New("directory: unknown lock type")
	// ErrLockObtainFailed is returned when a lock is held elsewhere.
	ErrLockObtainFailed = errors.New("directory: lock obtain failed")
	// ErrLockNotHeld is returned when releasing a lock this handle does not hold.
	ErrLockNotHeld = errors.New("directory: lock not held")
)

// LockType names a locking strategy.
type LockType string

const (
	// LockSimple creates an exclusive lock file inside the directory.
	LockSimple LockType = "simple"
	// LockNative uses the backend's native lock (flock on file systems).
	LockNative LockType = "native"
	// LockSingle locks within this process only.
	LockSingle LockType = "single"
	// LockNone disables locking.
	LockNone LockType = "none"
)

// LockTypeError reports an unrecognized lock type.
type LockTypeError struct {
	Value string
}

func (e *LockTypeError) Error() string {
	return fmt.Sprintf("directory: unknown lock type %q (want simple, native, single or none)", e.Value)
}

func (e *LockTypeError) Unwrap() error { return ErrUnknownLockType }

// ParseLockType parses a lock type name case-insensitively.
func ParseLockType(s string) (LockType, error) {
	switch lt := LockType(strings.ToLower(strings.TrimSpace(s))); lt {
	case LockSimple, LockNative, LockSingle, LockNone:
		return lt, nil
	default:
		return "", &LockTypeError{Value: s}
	}
}

// Lock is a named, non-reentrant mutual exclusion primitive.
type Lock interface {
	// Obtain tries once to acquire the lock. It reports false without error
	// when the lock is held elsewhere.
	Obtain(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
	IsLocked(ctx context.Context) (bool, error)
}

// LockFactory creates locks scoped to one directory.
type LockFactory interface {
	MakeLock(name string) Lock
	// ClearLock forcibly removes a stale lock.
	ClearLock(ctx context.Context, name string) error
}

// Obtain acquires l or fails with ErrLockObtainFailed.
func Obtain(ctx context.Context, l Lock) error {
	ok, err := l.Obtain(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return ErrLockObtainFailed
	}
	return nil
}

// SimpleLockFactory implements locks as exclusively created files inside a
// Directory. A crashed holder leaves a stale lock file behind that must be
// cleared with ClearLock.
type SimpleLockFactory struct {
	dir Directory
}

// NewSimpleLockFactory creates lock files inside dir.
func NewSimpleLockFactory(dir Directory) *SimpleLockFactory {
	return &SimpleLockFactory{dir: dir}
}

func (f *SimpleLockFactory) MakeLock(name string) Lock {
	return &simpleLock{dir: f.dir, name: name}
}

func (f *SimpleLockFactory) ClearLock(ctx context.Context, name string) error {
	if err := f.dir.DeleteFile(ctx, name); err != nil && !errors.Is(err, ErrFileNotFound) {
		return err
	}
	return nil
}

type simpleLock struct {
	dir  Directory
	name string

	mu    sync.Mutex
	owner string
}

func (l *simpleLock) Obtain(ctx context.Context) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.owner != "" {
		return false, nil
	}
	owner := uuid.NewString()
	if err := WriteFile(ctx, l.dir, l.name, []byte(owner)); err != nil {
		if errors.Is(err, ErrFileExists) {
			return false, nil
		}
		return false, err
	}
	l.owner = owner
	return true, nil
}

func (l *simpleLock) Release(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.owner == "" {
		return ErrLockNotHeld
	}
	data, err := ReadFile(ctx, l.dir, l.name)
	if err != nil {
		return err
	}
	if string(data) != l.owner {
		return fmt.Errorf("%w: %s was taken over by another owner", ErrLockNotHeld, l.name)
	}
	l.owner = ""
	return l.dir.DeleteFile(ctx, l.name)
}

func (l *simpleLock) IsLocked(ctx context.Context) (bool, error) {
	_, err := l.dir.FileLength(ctx, l.name)
	if errors.Is(err, ErrFileNotFound) {
		return false, nil
	}
	return err == nil, err
}

// SingleInstanceLockFactory locks within this factory instance only.
type SingleInstanceLockFactory struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewSingleInstanceLockFactory creates an in-process lock factory.
func NewSingleInstanceLockFactory() *SingleInstanceLockFactory {
	return &SingleInstanceLockFactory{held: make(map[string]struct{})}
}

func (f *SingleInstanceLockFactory) MakeLock(name string) Lock {
	return &singleLock{f: f, name: name}
}

func (f *SingleInstanceLockFactory) ClearLock(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.held, name)
	return nil
}

type singleLock struct {
	f    *SingleInstanceLockFactory
	name string
	mine bool
}

func (l *singleLock) Obtain(context.Context) (bool, error) {
	l.f.mu.Lock()
	defer l.f.mu.Unlock()
	if _, ok := l.f.held[l.name]; ok {
		return false, nil
	}
	l.f.held[l.name] = struct{}{}
	l.mine = true
	return true, nil
}

func (l *singleLock) Release(context.Context) error {
	l.f.mu.Lock()
	defer l.f.mu.Unlock()
	if !l.mine {
		return ErrLockNotHeld
	}
	delete(l.f.held, l.name)
	l.mine = false
	return nil
}

func (l *singleLock) IsLocked(context.Context) (bool, error) {
	l.f.mu.Lock()
	defer l.f.mu.Unlock()
	_, ok := l.f.held[l.name]
	return ok, nil
}

// NoLockFactory hands out locks that always succeed.
type NoLockFactory struct{}

func (NoLockFactory) MakeLock(string) Lock                     { return noLock{} }
func (NoLockFactory) ClearLock(context.Context, string) error { return nil }

type noLock struct{}

func (noLock) Obtain(context.Context) (bool, error)   { return true, nil }
func (noLock) Release(context.Context) error          { return nil }
func (noLock) IsLocked(context.Context) (bool, error) { return false, nil }

// NewLockFactory resolves lt to a lock factory for dir.
//
// native uses the directory's own backend lock when it provides one and
// falls back to an in-process lock otherwise.
func NewLockFactory(dir Directory, lt LockType) (LockFactory, error) {
	switch lt {
	case LockSimple:
		return NewSimpleLockFactory(dir), nil
	case LockNative:
		if p, ok := dir.(LockProvider); ok {
			if lf := p.NativeLockFactory(); lf != nil {
				return lf, nil
			}
		}
		return NewSingleInstanceLockFactory(), nil
	case LockSingle:
		return NewSingleInstanceLockFactory(), nil
	case LockNone:
		return NoLockFactory{}, nil
	default:
		return nil, &LockTypeError{Value: string(lt)}
	}
}
