package durability

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoSnapshot is returned by Medium.Load when nothing was ever saved.
var ErrNoSnapshot = errors.New("no snapshot stored")

// Medium stores one opaque snapshot.
//
// Load returns ErrNoSnapshot (possibly wrapped) when the medium is empty.
// Save replaces the stored snapshot entirely and must not return before the
// bytes are durable on the medium.
type Medium interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, snapshot []byte) error
	Name() string
	Close() error
}

// Deleter is implemented by media that can remove the stored snapshot.
// After Delete, Load returns ErrNoSnapshot.
type Deleter interface {
	Delete(ctx context.Context) error
}

var (
	_ Deleter = (*FileMedium)(nil)
	_ Deleter = (*KVMedium)(nil)
	_ Deleter = (*MemoryMedium)(nil)
)

// ErrDeleteUnsupported is returned by Adapter.Discard when the medium
// cannot remove its snapshot.
var ErrDeleteUnsupported = errors.New("medium cannot delete its snapshot")

// AdapterIOError is a failed load or save against a medium.
// It is recoverable: the in-memory engine is untouched by it.
type AdapterIOError struct {
	// Op is "load" or "save".
	Op string

	// Medium is the medium name.
	Medium string

	Err error
}

// Error implements the error interface.
func (e *AdapterIOError) Error() string {
	return fmt.Sprintf("%s snapshot (%s): %v", e.Op, e.Medium, e.Err)
}

func (e *AdapterIOError) Unwrap() error {
	return e.Err
}

// IsIOError returns true if err is or wraps an AdapterIOError.
func IsIOError(err error) bool {
	var ioe *AdapterIOError
	return errors.As(err, &ioe)
}
