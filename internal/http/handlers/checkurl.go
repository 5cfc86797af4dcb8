package handlers

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/streamwisdom/streamwisdom-api/internal/contenttype"
)

// CheckURLHandler exposes the content-type policy check so the UI can warn
// before submitting a transformation.
type CheckURLHandler struct {
	checker *contenttype.Checker
}

// NewCheckURLHandler creates a check-url handler.
func NewCheckURLHandler(checker *contenttype.Checker) *CheckURLHandler {
	return &CheckURLHandler{checker: checker}
}

// CheckURLInput represents a policy check request.
type CheckURLInput struct {
	URL string `query:"url" doc:"URL to classify"`
}

// CheckURLOutput represents the classifier verdict.
type CheckURLOutput struct {
	Body contenttype.Verdict
}

// CheckURL classifies a URL against the content-type policy.
func (h *CheckURLHandler) CheckURL(ctx context.Context, input *CheckURLInput) (*CheckURLOutput, error) {
	if input.URL == "" {
		return nil, huma.Error400BadRequest("请提供URL地址")
	}
	return &CheckURLOutput{Body: h.checker.Check(input.URL)}, nil
}
