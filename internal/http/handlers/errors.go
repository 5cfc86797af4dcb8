package handlers

import (
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/streamwisdom/streamwisdom-api/internal/extractor"
	"github.com/streamwisdom/streamwisdom-api/internal/llm"
	"github.com/streamwisdom/streamwisdom-api/internal/transform"
)

// statusFor maps pipeline errors to HTTP statuses. Messages stay intact;
// they are the user-facing Chinese strings the pipeline produces.
func statusFor(err error) int {
	var policyErr *transform.PolicyError
	var validationErr *transform.ValidationError
	var extractErr *extractor.ExtractionError
	var apiErr *llm.APIError

	switch {
	case errors.As(err, &policyErr):
		return http.StatusBadRequest
	case errors.As(err, &validationErr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, llm.ErrMissingAPIKey), errors.Is(err, llm.ErrNoModelAvailable):
		return http.StatusServiceUnavailable
	case errors.As(err, &apiErr):
		return http.StatusBadGateway
	case errors.As(err, &extractErr):
		switch extractErr.Kind {
		case extractor.KindNotFound:
			return http.StatusNotFound
		case extractor.KindInvalidFormat, extractor.KindContentTooShort, extractor.KindInsufficientText:
			return http.StatusUnprocessableEntity
		default:
			return http.StatusBadGateway
		}
	default:
		return http.StatusInternalServerError
	}
}

// pipelineError turns a pipeline failure into a huma error with the
// original message.
func pipelineError(err error) error {
	msg := err.Error()
	if msg == "" {
		msg = "处理请求时发生错误"
	}
	return huma.NewError(statusFor(err), msg)
}
