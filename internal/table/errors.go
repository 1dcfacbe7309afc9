package table

import (
	"errors"
	"fmt"
)

var (
	ErrTableNotFound   = errors.New("table not found")
	ErrFamilyNotFound  = errors.New("column family does not exist")
	ErrInvalidArgument = errors.New("invalid argument")
)

// Error wraps a sentinel error with additional context
type Error struct {
	err     error
	context string
}

func (e *Error) Error() string {
	if e.context == "" {
		return e.err.Error()
	}
	return fmt.Sprintf("%s: %s", e.err.Error(), e.context)
}

func (e *Error) Unwrap() error {
	return e.err
}

func newError(err error, format string, args ...interface{}) *Error {
	return &Error{
		err:     err,
		context: fmt.Sprintf(format, args...),
	}
}
