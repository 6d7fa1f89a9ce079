package store

import (
	"errors"
	"fmt"
)

// EngineLoadError means the engine itself could not be brought up.
// It is fatal: no operation is possible without an engine.
type EngineLoadError struct {
	Err error
}

// Error implements the error interface.
func (e *EngineLoadError) Error() string {
	return fmt.Sprintf("engine load: %v", e.Err)
}

func (e *EngineLoadError) Unwrap() error {
	return e.Err
}

// EngineExecutionError means a statement was rejected by the engine.
// With correct schema usage this indicates a bug, typically a column list
// mismatch or a key constraint violation.
type EngineExecutionError struct {
	// Statement is the SQL text that failed.
	Statement string

	Err error
}

// Error implements the error interface.
func (e *EngineExecutionError) Error() string {
	return fmt.Sprintf("execute %q: %v", e.Statement, e.Err)
}

func (e *EngineExecutionError) Unwrap() error {
	return e.Err
}

// SnapshotCorruptError means persisted bytes could not be turned back into
// a usable engine.
type SnapshotCorruptError struct {
	// Reason says which check rejected the snapshot.
	Reason string

	// Size is the snapshot length in bytes, when known.
	Size int

	Err error
}

// Error implements the error interface.
func (e *SnapshotCorruptError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("snapshot corrupt: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("snapshot corrupt: %s", e.Reason)
}

func (e *SnapshotCorruptError) Unwrap() error {
	return e.Err
}

// IsEngineLoadError returns true if err is or wraps an EngineLoadError.
func IsEngineLoadError(err error) bool {
	var le *EngineLoadError
	return errors.As(err, &le)
}

// IsExecutionError returns true if err is or wraps an EngineExecutionError.
func IsExecutionError(err error) bool {
	var ee *EngineExecutionError
	return errors.As(err, &ee)
}

// IsSnapshotCorrupt returns true if err is or wraps a SnapshotCorruptError.
func IsSnapshotCorrupt(err error) bool {
	var se *SnapshotCorruptError
	return errors.As(err, &se)
}
