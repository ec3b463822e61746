package repo

import (
	"errors"
	"fmt"
)

var (
	ErrorNotFound  = errors.New("not found")
	ErrorConflict  = errors.New("conflict")
	ErrorTransient = errors.New("transient storage failure")
)

// StorageError wraps a persistence failure with the operation that hit it.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// IsTransient reports whether retrying the whole transaction may succeed.
func IsTransient(err error) bool {
	return errors.Is(err, ErrorTransient)
}

func notFound(what string) error {
	return fmt.Errorf("%s %w", what, ErrorNotFound)
}

func conflict(what string) error {
	return fmt.Errorf("%s: %w", what, ErrorConflict)
}

func transient(op string, err error) error {
	return &StorageError{Op: op, Err: fmt.Errorf("%w: %v", ErrorTransient, err)}
}
