package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrRemoteExhausted is returned when every attempt failed with a transient error.
	ErrRemoteExhausted = errors.New("remote service unavailable after retries")
	// ErrRemoteRejected is returned for non-transient remote failures.
	ErrRemoteRejected = errors.New("remote service rejected the request")
)

// StatusError is an HTTP-level failure reported by a backend.
type StatusError struct {
	Code    int
	Status  string
	Message string
}

func (e *StatusError) Error() string {
	switch {
	case e.Status != "" && e.Message != "":
		return fmt.Sprintf("remote status %d %s: %s", e.Code, e.Status, e.Message)
	case e.Message != "":
		return fmt.Sprintf("remote status %d: %s", e.Code, e.Message)
	default:
		return fmt.Sprintf("remote status %d", e.Code)
	}
}

// CallError describes a failed remote call.
type CallError struct {
	// Kind is ErrRemoteExhausted or ErrRemoteRejected.
	Kind     error
	Attempts int
	Err      error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("%v (attempts: %d): %v", e.Kind, e.Attempts, e.Err)
}

func (e *CallError) Unwrap() []error { return []error{e.Kind, e.Err} }

var transientCodes = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return transientCodes[statusErr.Code]
	}

	return false
}
