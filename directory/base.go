package directory

import (
	"errors"
	"sync"
	"sync/atomic"
)

// baseDirectory carries the lock factory and closed state shared by all
// Directory implementations.
type baseDirectory struct {
	lfMu   sync.RWMutex
	lf     LockFactory
	closed atomic.Bool
}

func (b *baseDirectory) MakeLock(name string) Lock {
	b.lfMu.RLock()
	defer b.lfMu.RUnlock()
	return b.lf.MakeLock(name)
}

func (b *baseDirectory) LockFactory() LockFactory {
	b.lfMu.RLock()
	defer b.lfMu.RUnlock()
	return b.lf
}

func (b *baseDirectory) SetLockFactory(lf LockFactory) error {
	if lf == nil {
		return errors.New("directory: nil lock factory")
	}
	if err := b.ensureOpen(); err != nil {
		return err
	}
	b.lfMu.Lock()
	defer b.lfMu.Unlock()
	b.lf = lf
	return nil
}

func (b *baseDirectory) ensureOpen() error {
	if b.closed.Load() {
		return ErrAlreadyClosed
	}
	return nil
}

// markClosed reports whether this call performed the close.
func (b *baseDirectory) markClosed() bool {
	return b.closed.CompareAndSwap(false, true)
}
