package fs

import (
	"io"
	"os"
)

// File is an open file.
type File interface {
	io.ReadWriteCloser
	io.ReaderAt
	Sync() error
	Stat() (os.FileInfo, error)
}

// FileSystem is the set of file operations an FSDirectory performs.
type FileSystem interface {
	OpenFile(name string, flag int, perm os.FileMode) (File, error)
	// Link publishes oldname under newname and fails with os.ErrExist when
	// newname is taken.
	Link(oldname, newname string) error
	Remove(name string) error
	RemoveAll(path string) error
	Stat(name string) (os.FileInfo, error)
	MkdirAll(path string, perm os.FileMode) error
	ReadDir(name string) ([]os.DirEntry, error)
}

// LocalFS is the operating system's file system.
type LocalFS struct{}

func (LocalFS) OpenFile(name string, flag int, perm os.FileMode) (File, error) {
	f, err := os.OpenFile(name, flag, perm)
	if err != nil {
		// Avoid a non-nil File interface holding a nil *os.File.
		return nil, err
	}
	return f, nil
}

func (LocalFS) Link(oldname, newname string) error          { return os.Link(oldname, newname) }
func (LocalFS) Remove(name string) error                     { return os.Remove(name) }
func (LocalFS) RemoveAll(path string) error                  { return os.RemoveAll(path) }
func (LocalFS) Stat(name string) (os.FileInfo, error)        { return os.Stat(name) }
func (LocalFS) MkdirAll(path string, perm os.FileMode) error { return os.MkdirAll(path, perm) }
func (LocalFS) ReadDir(name string) ([]os.DirEntry, error)   { return os.ReadDir(name) }

// Default is the local file system.
var Default FileSystem = LocalFS{}
