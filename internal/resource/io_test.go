package resource

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimitedWriter_Chunks(t *testing.T) {
	c := NewController(Config{IOLimitBytesPerSec: 1 << 20})

	var buf bytes.Buffer
	w := NewRateLimitedWriter(context.Background(), &buf, c)

	data := bytes.Repeat([]byte{7}, 3*maxChunk+17)
	n, err := w.Write(data)
	require.NoError(t, err)
	assert.Equal(t, len(data), n)
	assert.Equal(t, data, buf.Bytes())
}

func TestRateLimitedWriter_SmallBurst(t *testing.T) {
	c := NewController(Config{IOLimitBytesPerSec: 4096})
	assert.Equal(t, 4096, c.chunk())

	var buf bytes.Buffer
	w := NewRateLimitedWriter(context.Background(), &buf, c)
	n, err := w.Write([]byte("segments_1"))
	require.NoError(t, err)
	assert.Equal(t, 10, n)
}

func TestRateLimitedReader(t *testing.T) {
	c := NewController(Config{IOLimitBytesPerSec: 10000})
	r := NewRateLimitedReader(context.Background(), bytes.NewReader([]byte("hello world")), c)

	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(data))
}

func TestRateLimitedReader_ContextCanceled(t *testing.T) {
	c := NewController(Config{IOLimitBytesPerSec: 1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewRateLimitedReader(ctx, bytes.NewReader([]byte("hello world")), c)
	_, err := r.Read(make([]byte, 1000))
	assert.Error(t, err)
}

func TestRateLimited_NilController(t *testing.T) {
	var buf bytes.Buffer
	w := NewRateLimitedWriter(context.Background(), &buf, nil)
	_, err := w.Write(bytes.Repeat([]byte{1}, 2*maxChunk))
	require.NoError(t, err)

	r := NewRateLimitedReader(context.Background(), &buf, nil)
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Len(t, data, 2*maxChunk)
}
