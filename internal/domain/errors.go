package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrBadRequest = errors.New("bad request")

	// ErrInvalidName is a bad request naming a file with a directory part.
	ErrInvalidName = fmt.Errorf("invalid file name: %w", ErrBadRequest)
)

// DecodeError wraps a failure to turn a mask payload into an image.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return e.Err.Error()
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
