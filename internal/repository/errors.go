package repository

import (
	"errors"
	"fmt"

	"github.com/arslant84/vendori/internal/record"
)

var (
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("repository closed")

	// ErrInvalidKey is returned for an empty vendorName.
	ErrInvalidKey = record.ErrInvalidKey

	// ErrNotFound is returned by Rename when the old key does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrKeyExists is returned by Rename when the new key is taken.
	ErrKeyExists = errors.New("record key already exists")

	// ErrChangesDiscarded is returned by Reset when changes queued during
	// the reset could not be saved and were dropped with the engine.
	ErrChangesDiscarded = errors.New("unpersisted changes discarded")
)

// RepositoryUnavailableError means initialization failed and no operation
// is possible until Reset. Err is the memoized cause: a
// *store.EngineLoadError, a *store.SnapshotCorruptError (with PolicyFail)
// or a *durability.AdapterIOError from the initial load.
type RepositoryUnavailableError struct {
	Err error
}

// Error implements the error interface.
func (e *RepositoryUnavailableError) Error() string {
	return fmt.Sprintf("repository unavailable: %v", e.Err)
}

func (e *RepositoryUnavailableError) Unwrap() error {
	return e.Err
}

// IsUnavailable returns true if err is or wraps a RepositoryUnavailableError.
func IsUnavailable(err error) bool {
	var ue *RepositoryUnavailableError
	return errors.As(err, &ue)
}
