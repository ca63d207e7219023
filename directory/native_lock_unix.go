//go:build unix

package directory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sys/unix"
)

// flock(2) is per open file description, so this process tracks the paths it
// holds to make a second in-process Obtain fail deterministically.
var (
	nativeHeldMu sync.Mutex
	nativeHeld   = make(map[string]struct{})
)

// NativeFSLockFactory locks files in a directory with flock(2).
// Locks are released by the kernel when the process exits.
type NativeFSLockFactory struct {
	dir string
}

// NewNativeFSLockFactory creates lock files under dir.
func NewNativeFSLockFactory(dir string) *NativeFSLockFactory {
	return &NativeFSLockFactory{dir: dir}
}

func (f *NativeFSLockFactory) MakeLock(name string) Lock {
	return &nativeFSLock{path: filepath.Join(f.dir, name)}
}

// ClearLock removes the lock file. It does not break a lock held by a live process.
func (f *NativeFSLockFactory) ClearLock(_ context.Context, name string) error {
	err := os.Remove(filepath.Join(f.dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

type nativeFSLock struct {
	path string

	mu sync.Mutex
	f  *os.File
}

func (l *nativeFSLock) Obtain(context.Context) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.f != nil {
		return false, nil
	}

	nativeHeldMu.Lock()
	defer nativeHeldMu.Unlock()
	if _, ok := nativeHeld[l.path]; ok {
		return false, nil
	}

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return false, err
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return false, err
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		_ = f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return false, nil
		}
		return false, err
	}
	nativeHeld[l.path] = struct{}{}
	l.f = f
	return true, nil
}

func (l *nativeFSLock) Release(context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.f == nil {
		return ErrLockNotHeld
	}
	err := unix.Flock(int(l.f.Fd()), unix.LOCK_UN)
	err = errors.Join(err, l.f.Close())
	l.f = nil

	nativeHeldMu.Lock()
	delete(nativeHeld, l.path)
	nativeHeldMu.Unlock()
	return err
}

func (l *nativeFSLock) IsLocked(ctx context.Context) (bool, error) {
	l.mu.Lock()
	held := l.f != nil
	l.mu.Unlock()
	if held {
		return true, nil
	}

	nativeHeldMu.Lock()
	_, inProcess := nativeHeld[l.path]
	nativeHeldMu.Unlock()
	if inProcess {
		return true, nil
	}

	f, err := os.OpenFile(l.path, os.O_RDWR, 0)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	defer func() { _ = f.Close() }()
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		if errors.Is(err, unix.EWOULDBLOCK) {
			return true, nil
		}
		return false, err
	}
	_ = unix.Flock(int(f.Fd()), unix.LOCK_UN)
	return false, nil
}
