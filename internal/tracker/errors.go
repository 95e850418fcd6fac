package tracker

import (
	"errors"

	"github.com/MarcoPoloResearchLab/babytracker/internal/records"
)

// photoError marks an upload that could not be decoded. It matches records.ErrValidation.
type photoError struct {
	err error
}

func (e *photoError) Error() string { return "photo: " + e.err.Error() }

func (e *photoError) Unwrap() error { return e.err }

func (e *photoError) Is(target error) bool { return target == records.ErrValidation }

// photoStorageError marks a photo backend failure. It matches records.ErrStorage.
type photoStorageError struct {
	err error
}

func (e *photoStorageError) Error() string { return "photo storage: " + e.err.Error() }

func (e *photoStorageError) Unwrap() error { return e.err }

func (e *photoStorageError) Is(target error) bool { return target == records.ErrStorage }

// IsValidation reports whether err was caused by rejected input.
func IsValidation(err error) bool {
	return errors.Is(err, records.ErrValidation)
}

// IsNotFound reports whether err referenced an unknown record.
func IsNotFound(err error) bool {
	return errors.Is(err, records.ErrNotFound)
}
