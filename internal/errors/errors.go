package errors

import (
	"errors"
	"fmt"
)

// Common error types shared across packages
var (
	// Store errors
	ErrNotFound    = errors.New("not found")
	ErrEmptyKey    = errors.New("key cannot be empty")
	ErrStoreClosed = errors.New("store closed")
	ErrConflict    = errors.New("concurrent update conflict")

	// General errors
	ErrInvalidInput  = errors.New("invalid input")
	ErrNotConfigured = errors.New("not configured")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
