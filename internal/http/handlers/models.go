package handlers

import (
	"context"

	"github.com/streamwisdom/streamwisdom-api/internal/llm"
)

// ModelsHandler reports model availability.
type ModelsHandler struct {
	mgr *llm.Manager
}

// NewModelsHandler creates a model status handler.
func NewModelsHandler(mgr *llm.Manager) *ModelsHandler {
	return &ModelsHandler{mgr: mgr}
}

// ModelStatusOutput represents the model availability report.
type ModelStatusOutput struct {
	Body struct {
		Models []llm.ModelStatus `json:"models"`
	}
}

// ModelStatus lists every known model in priority order with key and
// enablement state; Current marks the one Select would use right now.
func (h *ModelsHandler) ModelStatus(ctx context.Context, input *struct{}) (*ModelStatusOutput, error) {
	out := &ModelStatusOutput{}
	out.Body.Models = h.mgr.Status()
	return out, nil
}
