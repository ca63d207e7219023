package directory

import (
	"context"
	"errors"
	"io"
	"os"
)

var (
	// ErrAlreadyClosed is returned by operations on a closed directory or file.
	ErrAlreadyClosed = errors.New("directory: already closed")
	// ErrFileNotFound is returned when a named file does not exist.
	// It matches os.ErrNotExist.
	ErrFileNotFound = os.ErrNotExist
	// ErrFileExists is returned by CreateOutput when the file already exists.
	ErrFileExists = os.ErrExist
)

// Directory is a flat namespace of immutable index files.
type Directory interface {
	// ListAll returns every file name in ascending order.
	ListAll(ctx context.Context) ([]string, error)
	FileLength(ctx context.Context, name string) (int64, error)
	DeleteFile(ctx context.Context, name string) error
	OpenInput(ctx context.Context, name string) (Input, error)
	// CreateOutput creates a new file. Files are write-once.
	CreateOutput(ctx context.Context, name string) (Output, error)

	// MakeLock returns a lock named name from the directory's lock factory.
	MakeLock(name string) Lock
	LockFactory() LockFactory
	SetLockFactory(lf LockFactory) error

	io.Closer
}

// Input is a random-access reader over one file.
type Input interface {
	io.ReaderAt
	io.Closer
	Length() int64
	Name() string
}

// Output is a sequential writer for one new file. Readers must not open the
// file before Close returns.
type Output interface {
	io.Writer
	io.Closer
	Sync() error
	Name() string
}

// LockProvider is implemented by directories whose backend supplies its own
// native lock factory.
type LockProvider interface {
	NativeLockFactory() LockFactory
}

// ReadFile reads the whole of name.
func ReadFile(ctx context.Context, d Directory, name string) ([]byte, error) {
	in, err := d.OpenInput(ctx, name)
	if err != nil {
		return nil, err
	}
	defer func() { _ = in.Close() }()

	buf := make([]byte, in.Length())
	n, err := in.ReadAt(buf, 0)
	if err != nil && !(errors.Is(err, io.EOF) && n == len(buf)) {
		return nil, err
	}
	return buf, nil
}

// WriteFile creates name with data, syncing before close.
func WriteFile(ctx context.Context, d Directory, name string, data []byte) error {
	out, err := d.CreateOutput(ctx, name)
	if err != nil {
		return err
	}
	if _, err := out.Write(data); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Sync(); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

// DeleteAll removes every file in d.
func DeleteAll(ctx context.Context, d Directory) error {
	names, err := d.ListAll(ctx)
	if err != nil {
		return err
	}
	var errs []error
	for _, name := range names {
		if err := d.DeleteFile(ctx, name); err != nil && !errors.Is(err, ErrFileNotFound) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
