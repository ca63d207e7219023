package s3

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/hupe1980/segread/directory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDDBLock_ObtainRelease(t *testing.T) {
	ctx := context.Background()
	lf := NewDDBLockFactory(newMockDDBClient(), "locks", "bucket/core1")

	a := lf.MakeLock(directory.WriteLockName)
	b := lf.MakeLock(directory.WriteLockName)

	ok, err := a.Obtain(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = b.Obtain(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.ErrorIs(t, directory.Obtain(ctx, b), directory.ErrLockObtainFailed)

	locked, err := b.IsLocked(ctx)
	require.NoError(t, err)
	assert.True(t, locked)

	assert.ErrorIs(t, b.Release(ctx), directory.ErrLockNotHeld)
	require.NoError(t, a.Release(ctx))

	locked, err = a.IsLocked(ctx)
	require.NoError(t, err)
	assert.False(t, locked)

	ok, err = b.Obtain(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDDBLock_ScopesAreIndependent(t *testing.T) {
	ctx := context.Background()
	client := newMockDDBClient()
	base := NewDDBLockFactory(client, "locks", "bucket/core1")
	one := base.MakeLock(directory.WriteLockName)
	two := base.WithScope("bucket/core2").MakeLock(directory.WriteLockName)

	require.NoError(t, directory.Obtain(ctx, one))
	require.NoError(t, directory.Obtain(ctx, two))
	assert.Len(t, client.items, 2)
	assert.Contains(t, client.items, "bucket/core2/"+directory.WriteLockName)
}

func TestDDBLock_ClearLockBreaksOwnership(t *testing.T) {
	ctx := context.Background()
	lf := NewDDBLockFactory(newMockDDBClient(), "locks", "scope")

	l := lf.MakeLock("write.lock")
	require.NoError(t, directory.Obtain(ctx, l))
	require.NoError(t, lf.ClearLock(ctx, "write.lock"))

	other := lf.MakeLock("write.lock")
	require.NoError(t, directory.Obtain(ctx, other))

	assert.ErrorIs(t, l.Release(ctx), directory.ErrLockNotHeld)
	require.NoError(t, other.Release(ctx))
}

func TestDDBLock_ConcurrentObtain(t *testing.T) {
	ctx := context.Background()
	lf := NewDDBLockFactory(newMockDDBClient(), "locks", "scope")

	var wins atomic.Int32
	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, err := lf.MakeLock("write.lock").Obtain(ctx); err == nil && ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}
