package errors

import (
	"errors"
	"fmt"
)

// SourceUnavailableError wraps any failure that kept a search source from
// answering: transport errors, timeouts, bad status codes, undecodable bodies
// and open circuit breakers.
type SourceUnavailableError struct {
	Source string
	Err    error
}

func (e *SourceUnavailableError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Source, e.Err)
}

func (e *SourceUnavailableError) Unwrap() error {
	return e.Err
}

// NewSourceUnavailableError wraps err for source.
func NewSourceUnavailableError(source string, err error) *SourceUnavailableError {
	return &SourceUnavailableError{Source: source, Err: err}
}

// IsSourceUnavailable reports whether err is a SourceUnavailableError (even when wrapped).
func IsSourceUnavailable(err error) bool {
	var suErr *SourceUnavailableError
	return errors.As(err, &suErr)
}
