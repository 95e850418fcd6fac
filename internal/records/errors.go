package records

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks input that failed validation; no state was changed.
	ErrValidation = errors.New("records: validation failed")
	// ErrNotFound marks an update or delete that referenced an unknown id.
	ErrNotFound = errors.New("records: not found")
	// ErrStorage marks a failure of the underlying persistence layer.
	ErrStorage = errors.New("records: storage failure")
)

// ValidationError names the offending field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Is matches ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// StorageError wraps a persistence failure with the store operation that produced it.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	if e.Err == nil {
		return e.Op
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Is matches ErrStorage.
func (e *StorageError) Is(target error) bool {
	return target == ErrStorage
}

// NewStorageError wraps err unless it is nil or already a not-found error.
func NewStorageError(op string, err error) error {
	if err == nil || errors.Is(err, ErrNotFound) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// NotFound builds an ErrNotFound for kind and id.
func NotFound(kind Kind, id string) error {
	return fmt.Errorf("%w: %s %q", ErrNotFound, kind, id)
}
