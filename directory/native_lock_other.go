//go:build !unix

package directory

import (
	"context"
	"os"
	"path/filepath"
)

// NativeFSLockFactory falls back to exclusive lock files where flock(2) is unavailable.
type NativeFSLockFactory struct {
	dir string
	in  *SingleInstanceLockFactory
}

// NewNativeFSLockFactory creates lock files under dir.
func NewNativeFSLockFactory(dir string) *NativeFSLockFactory {
	return &NativeFSLockFactory{dir: dir, in: NewSingleInstanceLockFactory()}
}

func (f *NativeFSLockFactory) MakeLock(name string) Lock {
	return f.in.MakeLock(filepath.Join(f.dir, name))
}

func (f *NativeFSLockFactory) ClearLock(ctx context.Context, name string) error {
	_ = os.Remove(filepath.Join(f.dir, name))
	return f.in.ClearLock(ctx, filepath.Join(f.dir, name))
}
