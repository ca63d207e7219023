package minio

import (
	"context"
	"io"
	"os"
	"testing"
	"time"

	"github.com/hupe1980/segread/blobstore"
	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePrefix(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"/", ""},
		{"cores", "cores/"},
		{"cores/", "cores/"},
		{"/a/b/", "a/b/"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizePrefix(tt.in), tt.in)
	}

	s := &Store{prefix: normalizePrefix("cores")}
	assert.Equal(t, "cores/core1/seg_1.ord", s.key("core1/seg_1.ord"))
}

func TestMinioBlob_TranslateErrors(t *testing.T) {
	b := &minioBlob{key: "cores/seg_1.ord"}
	assert.ErrorIs(t, b.translate(minio.ErrorResponse{Code: "PreconditionFailed"}), blobstore.ErrModified)
	assert.ErrorIs(t, b.translate(minio.ErrorResponse{Code: "NoSuchKey"}), blobstore.ErrNotFound)

	other := minio.ErrorResponse{Code: "SlowDown"}
	assert.Equal(t, error(other), b.translate(other))
}

func TestNew_BuildsClient(t *testing.T) {
	s, err := New(Config{
		Endpoint:  "localhost:9000",
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
		Bucket:    "b",
		Prefix:    "p",
	})
	require.NoError(t, err)
	assert.Equal(t, "b", s.bucket)
	assert.Equal(t, "p/", s.prefix)
}

// TestMinioStore_Integration runs against MINIO_ENDPOINT (e.g. localhost:9000)
// with the default minioadmin credentials.
func TestMinioStore_Integration(t *testing.T) {
	endpoint := os.Getenv("MINIO_ENDPOINT")
	if endpoint == "" {
		t.Skip("Skipping MinIO integration test: MINIO_ENDPOINT not set")
	}
	const bucket = "test-segread"

	store, err := New(Config{
		Endpoint:  endpoint,
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
		Bucket:    bucket,
		Prefix:    "test-prefix/",
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	exists, err := store.client.BucketExists(ctx, bucket)
	require.NoError(t, err)
	if !exists {
		require.NoError(t, store.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}))
	}

	data := []byte("hello minio world")
	require.NoError(t, store.Put(ctx, "core1/test.txt", data))

	blob, err := store.Open(ctx, "core1/test.txt")
	require.NoError(t, err)
	require.Equal(t, int64(len(data)), blob.Size())

	buf := make([]byte, len(data))
	n, err := blob.ReadAt(ctx, buf, 0)
	require.NoError(t, err)
	require.Equal(t, data, buf[:n])

	rc, err := blob.ReadRange(ctx, 6, 5)
	require.NoError(t, err)
	part, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "minio", string(part))
	require.NoError(t, rc.Close())

	names, err := store.List(ctx, "core1/")
	require.NoError(t, err)
	assert.Contains(t, names, "core1/test.txt")

	require.NoError(t, store.Delete(ctx, "core1/test.txt"))
	_, err = store.Open(ctx, "core1/test.txt")
	require.ErrorIs(t, err, blobstore.ErrNotFound)

	wb, err := store.Create(ctx, "core1/stream.txt")
	require.NoError(t, err)
	_, err = wb.Write([]byte("streamed data"))
	require.NoError(t, err)
	require.NoError(t, wb.Close())

	blob, err = store.Open(ctx, "core1/stream.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(13), blob.Size())

	// Replacing the object invalidates the open handle.
	require.NoError(t, store.Put(ctx, "core1/stream.txt", []byte("replaced data")))
	_, err = blob.ReadAt(ctx, make([]byte, 4), 0)
	assert.ErrorIs(t, err, blobstore.ErrModified)
	_ = store.Delete(ctx, "core1/stream.txt")
}
