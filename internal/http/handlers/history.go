package handlers

import (
	"context"
	"errors"
	"log/slog"

	"github.com/danielgtaylor/huma/v2"

	"github.com/streamwisdom/streamwisdom-api/internal/models"
	"github.com/streamwisdom/streamwisdom-api/internal/repository"
)

// HistoryStore is the slice of the repository the history endpoints need.
type HistoryStore interface {
	List(ctx context.Context, limit, offset int) ([]*models.Transformation, error)
	Count(ctx context.Context) (int, error)
	GetByUUID(ctx context.Context, uuid string) (*models.Transformation, error)
	DeleteByUUID(ctx context.Context, uuid string) error
}

// HistoryHandler serves the stored transformation history.
type HistoryHandler struct {
	store  HistoryStore
	logger *slog.Logger
}

// NewHistoryHandler creates a history handler.
func NewHistoryHandler(store HistoryStore, logger *slog.Logger) *HistoryHandler {
	return &HistoryHandler{store: store, logger: logger}
}

// ListTransformationsInput represents history list parameters.
type ListTransformationsInput struct {
	Limit  int `query:"limit" default:"50" minimum:"1" maximum:"200" doc:"Page size"`
	Offset int `query:"offset" default:"0" minimum:"0" doc:"Rows to skip"`
}

// ListTransformationsOutput represents a page of stored transformations.
type ListTransformationsOutput struct {
	Body struct {
		Transformations []*models.Transformation `json:"transformations"`
		Total           int                      `json:"total"`
	}
}

// ListTransformations returns stored transformations newest first.
func (h *HistoryHandler) ListTransformations(ctx context.Context, input *ListTransformationsInput) (*ListTransformationsOutput, error) {
	items, err := h.store.List(ctx, input.Limit, input.Offset)
	if err != nil {
		h.logger.Error("failed to list transformations", "error", err)
		return nil, huma.Error500InternalServerError("获取历史记录失败")
	}
	total, err := h.store.Count(ctx)
	if err != nil {
		h.logger.Error("failed to count transformations", "error", err)
		return nil, huma.Error500InternalServerError("获取历史记录失败")
	}

	out := &ListTransformationsOutput{}
	out.Body.Transformations = items
	out.Body.Total = total
	return out, nil
}

// GetTransformationInput identifies one stored transformation.
type GetTransformationInput struct {
	UUID string `path:"uuid" doc:"Share identifier of the transformation"`
}

// GetTransformationOutput represents one stored transformation.
type GetTransformationOutput struct {
	Body models.Transformation
}

// GetTransformation returns a single stored transformation by share id.
func (h *HistoryHandler) GetTransformation(ctx context.Context, input *GetTransformationInput) (*GetTransformationOutput, error) {
	t, err := h.store.GetByUUID(ctx, input.UUID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, huma.Error404NotFound("记录不存在")
		}
		h.logger.Error("failed to get transformation", "uuid", input.UUID, "error", err)
		return nil, huma.Error500InternalServerError("获取历史记录失败")
	}
	return &GetTransformationOutput{Body: *t}, nil
}

// DeleteTransformationOutput acknowledges a deletion.
type DeleteTransformationOutput struct {
	Body struct {
		Success bool `json:"success"`
	}
}

// DeleteTransformation removes a stored transformation by share id.
func (h *HistoryHandler) DeleteTransformation(ctx context.Context, input *GetTransformationInput) (*DeleteTransformationOutput, error) {
	if err := h.store.DeleteByUUID(ctx, input.UUID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, huma.Error404NotFound("记录不存在")
		}
		h.logger.Error("failed to delete transformation", "uuid", input.UUID, "error", err)
		return nil, huma.Error500InternalServerError("删除历史记录失败")
	}

	out := &DeleteTransformationOutput{}
	out.Body.Success = true
	return out, nil
}
