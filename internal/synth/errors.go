package synth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a synthesis failure.
type Kind int

const (
	// KindTransient failures (timeouts, overload, connection resets) are retried.
	KindTransient Kind = iota
	// KindFatal failures (invalid parameters, rejected input) are reported at once.
	KindFatal
)

func (k Kind) String() string {
	if k == KindFatal {
		return "fatal"
	}
	return "transient"
}

// Error is a classified synthesis failure.
type Error struct {
	Kind    Kind
	Backend string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s synthesis error (%s): %v", e.Backend, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Transient wraps err as a retryable failure.
func Transient(backend string, err error) error {
	return &Error{Kind: KindTransient, Backend: backend, Err: err}
}

// Fatal wraps err as a non-retryable failure.
func Fatal(backend string, err error) error {
	return &Error{Kind: KindFatal, Backend: backend, Err: err}
}

// FromStatus classifies an HTTP status: 408, 429 and 5xx are transient,
// everything else fatal.
func FromStatus(backend string, status int, err error) error {
	if status == http.StatusRequestTimeout || status == http.StatusTooManyRequests || status >= 500 {
		return Transient(backend, err)
	}
	return Fatal(backend, err)
}

// IsTransient reports whether err should be retried.
//
// Classified errors follow their Kind. Cancellation is never retried; a
// deadline is. Anything else is treated as transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var se *Error
	if errors.As(err, &se) {
		return se.Kind == KindTransient
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	return true
}
