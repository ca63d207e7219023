package blobstore

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStore_Lifecycle(t *testing.T) {
	tmpDir := t.TempDir()
	store := NewLocalStore(tmpDir)
	ctx := context.Background()

	name := "core1/seg_1.ord"
	data := []byte("hello world, this is a test blob")

	w, err := store.Create(ctx, name)
	require.NoError(t, err)
	n, err := w.Write(data)
	require.NoError(t, err)
	require.Equal(t, len(data), n)
	require.NoError(t, w.Sync())

	// Not visible until Close.
	_, err = store.Open(ctx, name)
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, w.Close())
	_, err = os.Stat(filepath.Join(tmpDir, "core1", "seg_1.ord"))
	require.NoError(t, err)

	blob, err := store.Open(ctx, name)
	require.NoError(t, err)
	defer func() { _ = blob.Close() }()
	require.Equal(t, int64(len(data)), blob.Size())

	buf := make([]byte, 5)
	n, err = blob.ReadAt(ctx, buf, 6)
	require.NoError(t, err)
	require.Equal(t, 5, n)
	require.Equal(t, "world", string(buf))

	r, err := blob.ReadRange(ctx, 13, 4)
	require.NoError(t, err)
	content, err := io.ReadAll(r)
	require.NoError(t, err)
	require.Equal(t, "this", string(content))

	mapped, err := blob.(Mappable).Bytes()
	require.NoError(t, err)
	assert.Equal(t, data, mapped)

	require.NoError(t, store.Put(ctx, "core1/seg_2.ord", []byte("x")))
	require.NoError(t, store.Put(ctx, "core2/seg_1.ord", []byte("y")))

	names, err := store.List(ctx, "core1/")
	require.NoError(t, err)
	require.Equal(t, []string{"core1/seg_1.ord", "core1/seg_2.ord"}, names)

	require.NoError(t, store.Delete(ctx, name))
	require.NoError(t, store.Delete(ctx, name), "deleting twice is not an error")

	names, err = store.List(ctx, "")
	require.NoError(t, err)
	require.Equal(t, []string{"core1/seg_2.ord", "core2/seg_1.ord"}, names)

	_, err = store.Open(ctx, name)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestLocalStore_ReadRangeBoundaries(t *testing.T) {
	store := NewLocalStore(t.TempDir())
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "boundary.bin", []byte("0123456789")))

	blob, err := store.Open(ctx, "boundary.bin")
	require.NoError(t, err)
	defer func() { _ = blob.Close() }()

	r, err := blob.ReadRange(ctx, 0, 10)
	require.NoError(t, err)
	content, _ := io.ReadAll(r)
	assert.Equal(t, "0123456789", string(content))

	r, err = blob.ReadRange(ctx, 8, 5)
	require.NoError(t, err)
	content, _ = io.ReadAll(r)
	assert.Equal(t, "89", string(content))

	_, err = blob.ReadRange(ctx, 20, 5)
	assert.ErrorIs(t, err, io.EOF)
}

func TestLocalStore_ListMissingRoot(t *testing.T) {
	store := NewLocalStore(filepath.Join(t.TempDir(), "absent"))
	names, err := store.List(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	w, err := store.Create(ctx, "a/1")
	require.NoError(t, err)
	_, err = w.Write([]byte("abc"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, store.Put(ctx, "b/1", []byte("x")))

	names, err := store.List(ctx, "a/")
	require.NoError(t, err)
	assert.Equal(t, []string{"a/1"}, names)

	blob, err := store.Open(ctx, "a/1")
	require.NoError(t, err)
	buf := make([]byte, 4)
	n, err := blob.ReadAt(ctx, buf, 0)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, "abc", string(buf[:n]))

	require.NoError(t, store.Delete(ctx, "a/1"))
	_, err = store.Open(ctx, "a/1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_ListSortedByPrefix(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	for _, name := range []string{"cores/b/seg_2", "cores/a/seg_1", "cores/b/seg_1", "other"} {
		require.NoError(t, store.Put(ctx, name, []byte(name)))
	}

	names, err := store.List(ctx, "cores/b/")
	require.NoError(t, err)
	assert.Equal(t, []string{"cores/b/seg_1", "cores/b/seg_2"}, names)

	all, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 4)
	assert.Equal(t, 4, store.Len())
}

func TestMemoryStore_WriterAndRanges(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	w, err := store.Create(ctx, "f")
	require.NoError(t, err)
	_, err = w.Write([]byte("hello"))
	require.NoError(t, err)
	_, err = store.Open(ctx, "f")
	require.ErrorIs(t, err, ErrNotFound, "invisible until Close")
	require.NoError(t, w.Close())
	_, err = w.Write([]byte("!"))
	require.ErrorIs(t, err, ErrWriterClosed)

	blob, err := store.Open(ctx, "f")
	require.NoError(t, err)
	rc, err := blob.ReadRange(ctx, 3, 10)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "lo", string(data))

	_, err = blob.ReadAt(ctx, make([]byte, 1), -1)
	assert.ErrorIs(t, err, ErrInvalidRange)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = store.Open(cancelled, "f")
	assert.ErrorIs(t, err, context.Canceled)
}
