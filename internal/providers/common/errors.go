// internal/providers/common/errors.go
package common

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrEmptyResponse reports a call that succeeded at the transport level
// but produced no usable text. Empty responses are never retried.
var ErrEmptyResponse = errors.New("provider returned an empty response")

// TransientError marks a failure worth retrying: rate limits, upstream
// 5xx, timeouts. Unmarked errors are unexpected and fail the call
// immediately.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient provider error: %v", e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// MarkTransient wraps err as retryable. Nil stays nil.
func MarkTransient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// IsTransient reports whether err is marked retryable.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// TransientStatus reports whether an HTTP status from a provider API
// should be retried.
func TransientStatus(code int) bool {
	if code >= http.StatusInternalServerError {
		return true
	}
	return code == http.StatusTooManyRequests || code == http.StatusRequestTimeout
}
