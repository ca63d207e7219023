package directory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/segread/blobstore"
)

func TestParseLockType(t *testing.T) {
	tests := []struct {
		in      string
		want    LockType
		wantErr bool
	}{
		{in: "simple", want: LockSimple},
		{in: "NATIVE", want: LockNative},
		{in: " Single ", want: LockSingle},
		{in: "none", want: LockNone},
		{in: "hdfs", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLockType(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrUnknownLockType)
				var lte *LockTypeError
				require.ErrorAs(t, err, &lte)
				assert.Equal(t, tt.in, lte.Value)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLockFactories(t *testing.T) {
	ctx := context.Background()

	fsDir, err := NewFSDirectory(t.TempDir())
	require.NoError(t, err)

	factories := map[string]LockFactory{
		"simple-memory": NewSimpleLockFactory(NewMemoryDirectory()),
		"simple-blob":   NewSimpleLockFactory(NewBlobDirectory(blobstore.NewMemoryStore(), "locks")),
		"single":        NewSingleInstanceLockFactory(),
		"native-fs":     fsDir.NativeLockFactory(),
	}

	for name, lf := range factories {
		t.Run(name, func(t *testing.T) {
			a := lf.MakeLock(WriteLockName)
			b := lf.MakeLock(WriteLockName)

			locked, err := a.IsLocked(ctx)
			require.NoError(t, err)
			assert.False(t, locked)

			require.NoError(t, Obtain(ctx, a))

			ok, err := b.Obtain(ctx)
			require.NoError(t, err)
			assert.False(t, ok)
			assert.ErrorIs(t, Obtain(ctx, b), ErrLockObtainFailed)
			assert.ErrorIs(t, b.Release(ctx), ErrLockNotHeld)

			locked, err = b.IsLocked(ctx)
			require.NoError(t, err)
			assert.True(t, locked)

			require.NoError(t, a.Release(ctx))
			assert.ErrorIs(t, a.Release(ctx), ErrLockNotHeld)

			require.NoError(t, Obtain(ctx, b))
			require.NoError(t, b.Release(ctx))
			require.NoError(t, lf.ClearLock(ctx, WriteLockName))
		})
	}
}

func TestSimpleLock_ClearStale(t *testing.T) {
	ctx := context.Background()
	d := NewMemoryDirectory()
	require.NoError(t, WriteFile(ctx, d, WriteLockName, []byte("crashed-owner")))

	lf := NewSimpleLockFactory(d)
	l := lf.MakeLock(WriteLockName)
	ok, err := l.Obtain(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, lf.ClearLock(ctx, WriteLockName))
	require.NoError(t, Obtain(ctx, l))
}

func TestNoLockFactory(t *testing.T) {
	ctx := context.Background()
	l := NoLockFactory{}.MakeLock(WriteLockName)
	require.NoError(t, Obtain(ctx, l))
	require.NoError(t, Obtain(ctx, l))
	locked, err := l.IsLocked(ctx)
	require.NoError(t, err)
	assert.False(t, locked)
}

type stubLockFactory struct{ NoLockFactory }

func TestNewLockFactory(t *testing.T) {
	fsDir, err := NewFSDirectory(t.TempDir())
	require.NoError(t, err)
	mem := NewMemoryDirectory()
	backend := &stubLockFactory{}
	blob := NewBlobDirectory(blobstore.NewMemoryStore(), "x", WithNativeLockFactory(backend))

	lf, err := NewLockFactory(mem, LockSimple)
	require.NoError(t, err)
	assert.IsType(t, &SimpleLockFactory{}, lf)

	lf, err = NewLockFactory(fsDir, LockNative)
	require.NoError(t, err)
	assert.IsType(t, &NativeFSLockFactory{}, lf)

	lf, err = NewLockFactory(blob, LockNative)
	require.NoError(t, err)
	assert.Same(t, backend, lf)

	lf, err = NewLockFactory(mem, LockNative)
	require.NoError(t, err)
	assert.IsType(t, &SingleInstanceLockFactory{}, lf)

	lf, err = NewLockFactory(NewBlobDirectory(blobstore.NewMemoryStore(), "y"), LockNative)
	require.NoError(t, err)
	assert.IsType(t, &SingleInstanceLockFactory{}, lf)

	lf, err = NewLockFactory(mem, LockNone)
	require.NoError(t, err)
	assert.IsType(t, NoLockFactory{}, lf)

	_, err = NewLockFactory(mem, LockType("bogus"))
	assert.ErrorIs(t, err, ErrUnknownLockType)
}
