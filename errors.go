package segread

import (
	"errors"
	"fmt"

	"github.com/hupe1980/segread/blobstore"
	"github.com/hupe1980/segread/config"
	"github.com/hupe1980/segread/directory"
	"github.com/hupe1980/segread/ordinal"
	"github.com/hupe1980/segread/search"
)

var (
	// ErrInvalidArgument is returned for malformed requests, such as an
	// unknown lock type or shard hits without sort values.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotFound is returned when a file, blob or directory handle is unknown.
	ErrNotFound = errors.New("not found")

	// ErrClosed is returned when the node, factory or directory is closed.
	ErrClosed = errors.New("closed")

	// ErrConfig is returned when the configuration is invalid.
	ErrConfig = errors.New("invalid configuration")

	// ErrCorrupt is returned when stored data fails validation or a blob
	// changed underneath an open reader.
	ErrCorrupt = errors.New("corrupt data")
)

// translateError maps package errors onto the root sentinels while keeping
// the original error in the chain.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, config.ErrInvalid):
		return fmt.Errorf("%w: %w", ErrConfig, err)

	// Blob stores report misses with the same os.ErrNotExist sentinel.
	case errors.Is(err, directory.ErrFileNotFound),
		errors.Is(err, directory.ErrUnknownDirectory):
		return fmt.Errorf("%w: %w", ErrNotFound, err)

	case errors.Is(err, directory.ErrAlreadyClosed),
		errors.Is(err, directory.ErrFactoryClosed):
		return fmt.Errorf("%w: %w", ErrClosed, err)

	case errors.Is(err, directory.ErrUnknownLockType),
		errors.Is(err, directory.ErrRefCountUnderflow),
		errors.Is(err, search.ErrSortValuesNotFilled),
		errors.Is(err, search.ErrInvalidNumHits),
		errors.Is(err, search.ErrEmptySort),
		errors.Is(err, search.ErrUnknownSortType),
		errors.Is(err, blobstore.ErrInvalidRange):
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)

	case errors.Is(err, ordinal.ErrCorrupt),
		errors.Is(err, blobstore.ErrModified):
		return fmt.Errorf("%w: %w", ErrCorrupt, err)
	}

	return err
}
