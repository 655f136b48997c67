package errors

import (
	"errors"
	"fmt"
)

// RateLimitError is returned when an upstream keeps answering HTTP 429
// after all retries were spent.
type RateLimitError struct {
	Source   string
	Attempts int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s: rate limited after %d attempts", e.Source, e.Attempts)
}

// NewRateLimitError creates a RateLimitError for source.
func NewRateLimitError(source string, attempts int) *RateLimitError {
	return &RateLimitError{Source: source, Attempts: attempts}
}

// IsRateLimitError reports whether err is a RateLimitError (even when wrapped).
func IsRateLimitError(err error) bool {
	var rlErr *RateLimitError
	return errors.As(err, &rlErr)
}
