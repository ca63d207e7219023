// Package fs abstracts the local file system so directory code can be tested
// with injected I/O failures.
//
//   - [LocalFS] delegates to the os package; [Default] is a LocalFS.
//   - [FaultyFS] wraps another FileSystem and fails opens, writes, syncs,
//     closes, links or removals for paths matching a rule.
//
// Tests inject a FaultyFS into an FSDirectory:
//
//	ffs := fs.NewFaultyFS(nil)
//	ffs.AddRule(".ord", fs.Fault{FailAfterBytes: -1, FailOnSync: true})
//	dir, _ := directory.NewFSDirectory(root, directory.WithFileSystem(ffs))
//
// Operations take no context.Context: local syscalls are not interruptible.
// Remote storage goes through blobstore, which is context-aware.
package fs
