// Package directory provides the storage handles index segments are read
// through and a reference-counted cache of those handles.
//
// A [Directory] is a flat namespace of write-once files. Implementations:
//
//   - [FSDirectory] stores files on the local file system and memory maps inputs.
//   - [MemoryDirectory] keeps files in memory.
//   - [BlobDirectory] maps one key prefix of a blobstore.BlobStore, optionally
//     throttled by a resource.Controller.
//
// Locking is pluggable by [LockType]: simple lock files, native backend
// locks (flock(2) for file systems, a backend factory such as DynamoDB for
// blob stores), in-process locks or none.
//
// [CachingFactory] shares one handle per normalized path:
//
//	f := directory.NewCachingFactory(func(ctx context.Context, p string) (directory.Directory, error) {
//		return directory.NewFSDirectory(p)
//	}, directory.WithLogger(logger))
//
//	dir, err := f.Get(ctx, "/data/core1", directory.LockNative)
//	if err != nil {
//		return err
//	}
//	defer f.Release(dir)
//
// A handle closes when it has been marked with DoneWithDirectory (or
// replaced by GetForceNew) and its last reference is released.
package directory
