package llm

import (
	"errors"
	"fmt"
)

var (
	// ErrNoModelAvailable means no profile passed selection.
	ErrNoModelAvailable = errors.New("no model available")
	// ErrMissingAPIKey means the resolved model has no usable key.
	ErrMissingAPIKey = errors.New("missing api key")
)

// ErrorKind classifies provider call failures for user-facing reporting.
type ErrorKind string

const (
	KindInvalidKey  ErrorKind = "invalid_key"
	KindRateLimited ErrorKind = "rate_limited"
	KindUnreachable ErrorKind = "unreachable"
	KindTimeout     ErrorKind = "timeout"
	KindBadResponse ErrorKind = "bad_response"
	KindUnavailable ErrorKind = "unavailable"
)

// APIError is a failed call to a model provider.
type APIError struct {
	Model      string
	Provider   string
	StatusCode int
	Kind       ErrorKind
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s (%s): %s (HTTP %d)", e.Model, e.Provider, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("%s (%s): %s", e.Model, e.Provider, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// KindOf extracts the error kind from an APIError chain.
func KindOf(err error) ErrorKind {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ""
}
