package extractor

import (
	"errors"
	"fmt"
)

// ErrorKind classifies terminal extraction failures.
type ErrorKind string

const (
	KindTimeout          ErrorKind = "timeout"
	KindDNS              ErrorKind = "dns"
	KindConnRefused      ErrorKind = "conn_refused"
	KindTooLarge         ErrorKind = "too_large"
	KindAccessDenied     ErrorKind = "access_denied"
	KindNotFound         ErrorKind = "not_found"
	KindRateLimited      ErrorKind = "rate_limited"
	KindServerError      ErrorKind = "server_error"
	KindInvalidFormat    ErrorKind = "invalid_format"
	KindEncrypted        ErrorKind = "encrypted"
	KindInsufficientText ErrorKind = "insufficient_text"
	KindAntiBot          ErrorKind = "anti_bot"
	KindContentTooShort  ErrorKind = "content_too_short"
	KindNetwork          ErrorKind = "network"
)

// ExtractionError is a terminal failure of the extraction pipeline. The
// message is specific enough to show to an end user directly.
type ExtractionError struct {
	Kind    ErrorKind
	URL     string
	Message string
	Err     error
}

func (e *ExtractionError) Error() string {
	return e.Message
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// NewError builds an ExtractionError with a formatted message.
func NewError(kind ErrorKind, url string, format string, args ...any) *ExtractionError {
	return &ExtractionError{
		Kind:    kind,
		URL:     url,
		Message: fmt.Sprintf(format, args...),
	}
}

// KindOf returns the error kind if err is an ExtractionError, or "" otherwise.
func KindOf(err error) ErrorKind {
	var ee *ExtractionError
	if errors.As(err, &ee) {
		return ee.Kind
	}
	return ""
}
