package reader

import (
	"errors"
	"fmt"
)

// ErrClosed is returned by accessors of a document that is not open and was
// not loaded eagerly.
var ErrClosed = errors.New("document is closed")

// ErrUnattached is returned when a wrapper that belongs to no document is
// asked to follow a reference.
var ErrUnattached = errors.New("object is not attached to a document")

// AlreadyOpenError is returned by Load on a document that is already open.
type AlreadyOpenError struct {
	Source string
}

func (e *AlreadyOpenError) Error() string {
	if e.Source == "" {
		return "document is already open"
	}
	return fmt.Sprintf("document is already open (%s)", e.Source)
}
