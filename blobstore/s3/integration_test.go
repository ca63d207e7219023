package s3

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntegration_S3Store(t *testing.T) {
	bucket := os.Getenv("S3_BUCKET")
	if bucket == "" {
		t.Skip("Skipping S3 integration test: S3_BUCKET not set")
	}

	ctx := context.Background()
	prefix := fmt.Sprintf("test-segread-%d/", time.Now().UnixNano())
	store, err := New(ctx, bucket, WithPrefix(prefix))
	require.NoError(t, err)

	data := make([]byte, 1024*1024)
	_, _ = rand.Read(data)

	w, err := store.Create(ctx, "core1/seg_1.ord")
	require.NoError(t, err)
	_, err = w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	b, err := store.Open(ctx, "core1/seg_1.ord")
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), b.Size())

	r, err := b.ReadRange(ctx, 100, 50)
	require.NoError(t, err)
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, data[100:150], got)

	keys, err := store.List(ctx, "core1/")
	require.NoError(t, err)
	assert.Equal(t, []string{"core1/seg_1.ord"}, keys)

	require.NoError(t, store.Delete(ctx, "core1/seg_1.ord"))
}
