package resource

import (
	"context"
	"io"
)

// maxChunk bounds one limiter wait; WaitN fails for requests above the burst.
const maxChunk = 64 * 1024

// RateLimitedWriter passes writes through the controller's IO limit.
type RateLimitedWriter struct {
	ctx context.Context
	w   io.Writer
	rc  *Controller
}

// NewRateLimitedWriter wraps w. A nil rc leaves w unthrottled.
func NewRateLimitedWriter(ctx context.Context, w io.Writer, rc *Controller) *RateLimitedWriter {
	return &RateLimitedWriter{ctx: ctx, w: w, rc: rc}
}

func (w *RateLimitedWriter) Write(p []byte) (int, error) {
	var written int
	for len(p) > 0 {
		n := min(len(p), w.rc.chunk())
		if err := w.rc.WaitIO(w.ctx, n); err != nil {
			return written, err
		}
		m, err := w.w.Write(p[:n])
		written += m
		if err != nil {
			return written, err
		}
		p = p[n:]
	}
	return written, nil
}

// RateLimitedReader passes reads through the controller's IO limit. Each
// Read returns at most one chunk.
type RateLimitedReader struct {
	ctx context.Context
	r   io.Reader
	rc  *Controller
}

// NewRateLimitedReader wraps r. A nil rc leaves r unthrottled.
func NewRateLimitedReader(ctx context.Context, r io.Reader, rc *Controller) *RateLimitedReader {
	return &RateLimitedReader{ctx: ctx, r: r, rc: rc}
}

func (r *RateLimitedReader) Read(p []byte) (int, error) {
	if n := r.rc.chunk(); len(p) > n {
		p = p[:n]
	}
	if err := r.rc.WaitIO(r.ctx, len(p)); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}

func (c *Controller) chunk() int {
	if c == nil || c.io == nil {
		return maxChunk
	}
	return max(1, min(maxChunk, c.io.Burst()))
}
