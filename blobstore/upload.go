package blobstore

import (
	"context"
	"errors"
	"io"
	"sync"
)

// ErrUploadAborted is the error an aborted PipeUpload hands to its upload.
var ErrUploadAborted = errors.New("blobstore: upload aborted")

// PipeUpload adapts a streaming upload API to WritableBlob. Writes are piped
// into upload, which runs in the background; Close waits for it.
type PipeUpload struct {
	pw   *io.PipeWriter
	done chan error

	mu       sync.Mutex
	finished bool
	err      error
}

// NewPipeUpload starts upload reading from the returned writer. upload keeps
// running when ctx is cancelled so that Close, not the caller's context,
// decides whether the blob is published.
func NewPipeUpload(ctx context.Context, upload func(ctx context.Context, r io.Reader) error) *PipeUpload {
	pr, pw := io.Pipe()
	u := &PipeUpload{pw: pw, done: make(chan error, 1)}
	go func() {
		err := upload(context.WithoutCancel(ctx), pr)
		_ = pr.CloseWithError(err)
		u.done <- err
	}()
	return u
}

func (u *PipeUpload) Write(p []byte) (int, error) {
	u.mu.Lock()
	finished := u.finished
	u.mu.Unlock()
	if finished {
		return 0, ErrWriterClosed
	}
	return u.pw.Write(p)
}

// Sync is a no-op; the blob is committed by Close.
func (u *PipeUpload) Sync() error { return nil }

// Close ends the stream and returns the upload's result. The blob is
// visible once Close returns nil.
func (u *PipeUpload) Close() error {
	return u.finish(nil)
}

// Abort fails the upload so nothing is published.
func (u *PipeUpload) Abort() error {
	_ = u.finish(ErrUploadAborted)
	return nil
}

func (u *PipeUpload) finish(cause error) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.finished {
		return u.err
	}
	u.finished = true

	if cause != nil {
		_ = u.pw.CloseWithError(cause)
		<-u.done
		u.err = cause
		return cause
	}
	_ = u.pw.Close()
	u.err = <-u.done
	return u.err
}
