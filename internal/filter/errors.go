package filter

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicatePrefix is returned when a prefix set is built from two byte-equal prefixes.
	ErrDuplicatePrefix = errors.New("prefixes must be distinct")
	// ErrInvalidLength is returned when a serialized count or length is out of range.
	ErrInvalidLength = errors.New("invalid length")
)

// Error wraps a sentinel error with additional context
type Error struct {
	err     error  // The underlying sentinel error
	context string // Additional error context
}

// Error satisfies the error interface
func (e *Error) Error() string {
	if e.context == "" {
		return e.err.Error()
	}
	return fmt.Sprintf("%s: %s", e.err.Error(), e.context)
}

// Unwrap implements the errors.Unwrap interface for compatibility with errors.Is/As
func (e *Error) Unwrap() error {
	return e.err
}

func newError(err error, format string, args ...interface{}) *Error {
	return &Error{
		err:     err,
		context: fmt.Sprintf(format, args...),
	}
}
