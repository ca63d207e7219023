// Package mmap provides read-only memory-mapped file access.
//
// Segment files opened through an FSDirectory are mapped instead of read
// through the page cache into heap buffers:
//
//	m, err := mmap.Open("seg_1_title.ord", mmap.AdviseWillNeed)
//	if err != nil { ... }
//	defer m.Close()
//	n, err := m.ReadAt(buf, off)
//
// Unix systems use mmap(2) and madvise(2); Windows uses MapViewOfFile and
// ignores access hints.
//
// A Mapping is safe for concurrent reads. Close is idempotent, but callers
// must not touch slices returned by Bytes after Close.
package mmap
