package transfer

import (
	"errors"
)

// ErrEmptyRequest marks a request with no items.
var ErrEmptyRequest = errors.New("transfer request has no items")

// ErrInvalidOperation marks an operation outside copy/move.
var ErrInvalidOperation = errors.New("invalid transfer operation")

// fatalError wraps a failure that must abort the whole request instead of
// being recorded against a single item.
type fatalError struct {
	err error
}

func (e *fatalError) Error() string { return e.err.Error() }

func (e *fatalError) Unwrap() error { return e.err }

// Fatal marks err as stream-aborting.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &fatalError{err: err}
}

// IsFatal reports whether err (or anything it wraps) aborts the request.
func IsFatal(err error) bool {
	var fe *fatalError
	return errors.As(err, &fe)
}
