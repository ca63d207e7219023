// Package blobstore provides storage for remote index directories.
//
// BlobStore is a flat key space of immutable blobs. A BlobDirectory in the
// directory package maps one key prefix to one index directory.
// Implementations must be safe for concurrent use.
//
// # Built-in Implementations
//
//   - LocalStore: local file system, memory-mapped reads
//   - MemoryStore: in-process, for tests
//   - CachingStore: block cache in front of any other store
//   - s3.Store: Amazon S3 with range reads and multipart uploads
//   - minio.Store: MinIO and other S3-compatible servers
//
// # Custom Implementations
//
//	type BlobStore interface {
//	    Open(ctx, name) (Blob, error)
//	    Create(ctx, name) (WritableBlob, error)
//	    Put(ctx, name, data) error
//	    Delete(ctx, name) error
//	    List(ctx, prefix) ([]string, error)
//	}
//
// Remote blobs should implement ReadRange with a single ranged request.
package blobstore
