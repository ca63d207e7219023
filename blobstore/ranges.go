package blobstore

import (
	"context"
	"errors"
	"io"
)

// RangeGetter fetches the inclusive byte range [first, last] of a blob.
type RangeGetter func(ctx context.Context, first, last int64) (io.ReadCloser, error)

// ReadAtRange implements Blob.ReadAt for stores that serve HTTP-style byte
// ranges. A read crossing the end of the blob is clamped and reports io.EOF.
func ReadAtRange(ctx context.Context, get RangeGetter, size int64, p []byte, off int64) (int, error) {
	switch {
	case off < 0:
		return 0, ErrInvalidRange
	case len(p) == 0:
		return 0, nil
	case off >= size:
		return 0, io.EOF
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	want := p[:min(int64(len(p)), size-off)]
	body, err := get(ctx, off, off+int64(len(want))-1)
	if err != nil {
		return 0, err
	}
	defer func() { _ = body.Close() }()

	n, err := io.ReadFull(body, want)
	switch {
	case errors.Is(err, io.ErrUnexpectedEOF):
		return n, io.EOF
	case err != nil:
		return n, err
	case n < len(p):
		return n, io.EOF
	}
	return n, nil
}

// OpenRange implements Blob.ReadRange on top of get.
func OpenRange(ctx context.Context, get RangeGetter, size, off, length int64) (io.ReadCloser, error) {
	if off < 0 || length < 0 {
		return nil, ErrInvalidRange
	}
	if off >= size || length == 0 {
		return io.NopCloser(eofReader{}), nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return get(ctx, off, min(off+length, size)-1)
}

type eofReader struct{}

func (eofReader) Read([]byte) (int, error) { return 0, io.EOF }
