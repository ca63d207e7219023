package fs

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalFS(t *testing.T) {
	tmp := t.TempDir()
	lfs := LocalFS{}

	dir := filepath.Join(tmp, "core1")
	require.NoError(t, lfs.MkdirAll(dir, 0o755))

	path := filepath.Join(dir, "seg_1.ord")
	f, err := lfs.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.Write([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, f.Sync())
	require.NoError(t, f.Close())

	_, err = lfs.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	assert.ErrorIs(t, err, os.ErrExist)

	info, err := lfs.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(5), info.Size())

	entries, err := lfs.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	require.NoError(t, lfs.Remove(path))
	_, err = lfs.Stat(path)
	assert.ErrorIs(t, err, os.ErrNotExist)

	require.NoError(t, lfs.RemoveAll(dir))
	_, err = lfs.Stat(dir)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestFaultyFS_WriteLimit(t *testing.T) {
	ffs := NewFaultyFS(nil)
	ffs.AddRule("faulty", Fault{FailAfterBytes: 5})

	f, err := ffs.OpenFile(filepath.Join(t.TempDir(), "faulty.bin"), os.O_CREATE|os.O_RDWR, 0o644)
	require.NoError(t, err)

	n, err := f.Write([]byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	n, err = f.Write([]byte("!"))
	assert.ErrorIs(t, err, ErrInjected)
	assert.Equal(t, 0, n)
	require.NoError(t, f.Close())
}

func TestFaultyFS_CloseSyncOpenRemove(t *testing.T) {
	tmp := t.TempDir()
	custom := errors.New("disk on fire")

	ffs := NewFaultyFS(LocalFS{})
	ffs.AddRule("sync", Fault{FailAfterBytes: -1, FailOnSync: true})
	ffs.AddRule("close", Fault{FailAfterBytes: -1, FailOnClose: true, Err: custom})
	ffs.AddRule("open", Fault{FailAfterBytes: -1, FailOnOpen: true})
	ffs.AddRule("remove", Fault{FailAfterBytes: -1, FailOnRemove: true})

	f, err := ffs.OpenFile(filepath.Join(tmp, "sync.bin"), os.O_CREATE|os.O_RDWR, 0o644)
	require.NoError(t, err)
	assert.ErrorIs(t, f.Sync(), ErrInjected)
	require.NoError(t, f.Close())

	f, err = ffs.OpenFile(filepath.Join(tmp, "close.bin"), os.O_CREATE|os.O_RDWR, 0o644)
	require.NoError(t, err)
	assert.ErrorIs(t, f.Close(), custom)

	_, err = ffs.OpenFile(filepath.Join(tmp, "open.bin"), os.O_CREATE|os.O_RDWR, 0o644)
	assert.ErrorIs(t, err, ErrInjected)

	assert.ErrorIs(t, ffs.RemoveAll(filepath.Join(tmp, "remove")), ErrInjected)

	ffs.ClearRules()
	f, err = ffs.OpenFile(filepath.Join(tmp, "open.bin"), os.O_CREATE|os.O_RDWR, 0o644)
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

func TestLink(t *testing.T) {
	tmp := t.TempDir()
	src := filepath.Join(tmp, "staged")
	require.NoError(t, os.WriteFile(src, []byte("seg"), 0o644))

	dst := filepath.Join(tmp, "seg_1.ord")
	require.NoError(t, Default.Link(src, dst))
	assert.ErrorIs(t, Default.Link(src, dst), os.ErrExist)

	ffs := NewFaultyFS(nil)
	ffs.AddRule("seg_2", Fault{FailAfterBytes: -1, FailOnLink: true})
	assert.ErrorIs(t, ffs.Link(src, filepath.Join(tmp, "seg_2.ord")), ErrInjected)
	require.NoError(t, ffs.Link(src, filepath.Join(tmp, "seg_3.ord")))
}
