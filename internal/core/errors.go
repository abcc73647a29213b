package core

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by registries and stores when no entry exists for a key
	ErrNotFound = errors.New("entry not found")
	// ErrStoreUnavailable is returned when a backing store cannot be reached
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrConflict is returned when a concurrent update raced a read-modify-write
	ErrConflict = errors.New("concurrent update conflict")
)

// ValidationError indicates the input email is malformed and cannot be scored
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid email: %s %s", e.Field, e.Reason)
}

// IsValidationError reports whether err is a ValidationError
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
