package blobstore

import (
	"context"
	"errors"
	"io"
	"os"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations return an error satisfying errors.Is(err, ErrNotFound).
// It is os.ErrNotExist so file-system errors match without translation.
var ErrNotFound = os.ErrNotExist

var (
	// ErrInvalidRange is returned for negative offsets or lengths.
	ErrInvalidRange = errors.New("blobstore: invalid range")
	// ErrWriterClosed is returned when writing to a closed WritableBlob.
	ErrWriterClosed = errors.New("blobstore: write after close")
	// ErrModified is returned by reads of a blob that was replaced after it
	// was opened. Index files are write-once, so this means a rewrite raced
	// the reader.
	ErrModified = errors.New("blobstore: blob modified since open")
)

// BlobStore is a flat key space of immutable blobs. Keys use forward
// slashes; a remote directory maps to one key prefix.
type BlobStore interface {
	// Open opens a blob for reading.
	Open(ctx context.Context, name string) (Blob, error)
	// Create starts a new blob. It becomes visible when Close returns.
	Create(ctx context.Context, name string) (WritableBlob, error)
	// Put writes a whole blob atomically.
	Put(ctx context.Context, name string, data []byte) error
	// Delete removes a blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, name string) error
	// List returns the keys starting with prefix in ascending order.
	List(ctx context.Context, prefix string) ([]string, error)
}

// Blob is a read-only handle to one blob.
type Blob interface {
	ReadAt(ctx context.Context, p []byte, off int64) (int, error)
	// ReadRange streams length bytes starting at off.
	ReadRange(ctx context.Context, off, length int64) (io.ReadCloser, error)
	io.Closer
	// Size returns the size of the blob in bytes.
	Size() int64
}

// WritableBlob receives the bytes of a new blob.
type WritableBlob interface {
	io.Writer
	io.Closer
	Sync() error
}

// Aborter is implemented by WritableBlobs that can discard an unfinished
// blob instead of publishing it.
type Aborter interface {
	Abort() error
}

// Mappable is implemented by blobs backed by a memory mapping.
type Mappable interface {
	// Bytes returns the mapped bytes, valid until the Blob is closed.
	Bytes() ([]byte, error)
}
