package errors

import (
	"errors"
	"fmt"
)

// ErrStopped marks work the user ended early, such as quitting the picker.
var ErrStopped = errors.New("stopped by user")

// Stopped wraps ErrStopped with what was stopped.
func Stopped(what string) error {
	return fmt.Errorf("%s %w", what, ErrStopped)
}

// IsStopped reports whether err, or anything it wraps, is ErrStopped.
func IsStopped(err error) bool {
	return errors.Is(err, ErrStopped)
}
