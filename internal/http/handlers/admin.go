package handlers

import (
	"context"
	"errors"
	"log/slog"

	"github.com/danielgtaylor/huma/v2"

	"github.com/streamwisdom/streamwisdom-api/internal/auth"
	"github.com/streamwisdom/streamwisdom-api/internal/contenttype"
	"github.com/streamwisdom/streamwisdom-api/internal/llm"
	"github.com/streamwisdom/streamwisdom-api/internal/repository"
	"github.com/streamwisdom/streamwisdom-api/internal/service"
)

// StatsStore is the slice of the repository the admin stats endpoint needs.
type StatsStore interface {
	Stats(ctx context.Context) (*repository.CompressionStats, error)
}

// AdminHandler serves the password-protected admin surface: login, runtime
// model config, content-type policy, manual cleanup and history stats.
type AdminHandler struct {
	admin   *auth.Admin
	mgr     *llm.Manager
	checker *contenttype.Checker
	cleanup *service.CleanupService
	stats   StatsStore
	logger  *slog.Logger
}

// NewAdminHandler creates an admin handler.
func NewAdminHandler(admin *auth.Admin, mgr *llm.Manager, checker *contenttype.Checker, cleanup *service.CleanupService, stats StatsStore, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		admin:   admin,
		mgr:     mgr,
		checker: checker,
		cleanup: cleanup,
		stats:   stats,
		logger:  logger,
	}
}

// LoginInput represents an admin login request.
type LoginInput struct {
	Body struct {
		Password string `json:"password" doc:"Admin password"`
	}
}

// LoginOutput represents a successful login.
type LoginOutput struct {
	Body struct {
		Token string `json:"token"`
	}
}

// Login exchanges the admin password for a session token.
func (h *AdminHandler) Login(ctx context.Context, input *LoginInput) (*LoginOutput, error) {
	token, err := h.admin.Login(input.Body.Password)
	if err != nil {
		if errors.Is(err, auth.ErrDisabled) {
			return nil, huma.Error403Forbidden("管理功能未启用")
		}
		return nil, huma.Error401Unauthorized("密码错误")
	}

	out := &LoginOutput{}
	out.Body.Token = token
	return out, nil
}

// AdminStatusOutput reports whether the admin surface is configured.
type AdminStatusOutput struct {
	Body struct {
		Enabled bool `json:"enabled"`
	}
}

// Status reports whether admin login is available. Public so the UI knows
// whether to show the login form.
func (h *AdminHandler) Status(ctx context.Context, input *struct{}) (*AdminStatusOutput, error) {
	out := &AdminStatusOutput{}
	out.Body.Enabled = h.admin.Enabled()
	return out, nil
}

// ModelConfigOutput carries the runtime model selection config.
type ModelConfigOutput struct {
	Body llm.RuntimeConfig
}

// GetModelConfig returns the current model selection config.
func (h *AdminHandler) GetModelConfig(ctx context.Context, input *struct{}) (*ModelConfigOutput, error) {
	return &ModelConfigOutput{Body: h.mgr.LoadConfig()}, nil
}

// ModelConfigInput carries a model selection config update.
type ModelConfigInput struct {
	Body llm.RuntimeConfig
}

// PutModelConfig replaces the model selection config. Takes effect on the
// next selection; no restart needed.
func (h *AdminHandler) PutModelConfig(ctx context.Context, input *ModelConfigInput) (*ModelConfigOutput, error) {
	if err := h.mgr.SaveConfig(input.Body); err != nil {
		return nil, huma.Error400BadRequest(err.Error())
	}
	h.logger.Info("model config updated",
		"selected_model", input.Body.SelectedModel,
		"priority", input.Body.Priority)
	return &ModelConfigOutput{Body: h.mgr.LoadConfig()}, nil
}

// ContentPolicyOutput carries the content-type policy.
type ContentPolicyOutput struct {
	Body contenttype.Policy
}

// GetContentPolicy returns the active content-type policy.
func (h *AdminHandler) GetContentPolicy(ctx context.Context, input *struct{}) (*ContentPolicyOutput, error) {
	return &ContentPolicyOutput{Body: *h.checker.LoadPolicy()}, nil
}

// ContentPolicyInput carries a content-type policy update.
type ContentPolicyInput struct {
	Body contenttype.Policy
}

// PutContentPolicy replaces the content-type policy.
func (h *AdminHandler) PutContentPolicy(ctx context.Context, input *ContentPolicyInput) (*ContentPolicyOutput, error) {
	policy := input.Body
	if err := h.checker.SavePolicy(&policy); err != nil {
		h.logger.Error("failed to save content policy", "error", err)
		return nil, huma.Error500InternalServerError("保存内容策略失败")
	}
	h.logger.Info("content policy updated", "enabled", policy.Enabled)
	return &ContentPolicyOutput{Body: policy}, nil
}

// CleanupOutput reports a manual cleanup run.
type CleanupOutput struct {
	Body struct {
		Deleted int64 `json:"deleted"`
	}
}

// RunCleanup triggers one history cleanup pass immediately.
func (h *AdminHandler) RunCleanup(ctx context.Context, input *struct{}) (*CleanupOutput, error) {
	deleted, err := h.cleanup.CleanupOnce(ctx)
	if err != nil {
		h.logger.Error("manual cleanup failed", "error", err)
		return nil, huma.Error500InternalServerError("清理历史记录失败")
	}

	out := &CleanupOutput{}
	out.Body.Deleted = deleted
	return out, nil
}

// StatsOutput carries aggregate compression stats.
type StatsOutput struct {
	Body repository.CompressionStats
}

// CompressionStats returns aggregate ratio metrics across stored history.
func (h *AdminHandler) CompressionStats(ctx context.Context, input *struct{}) (*StatsOutput, error) {
	stats, err := h.stats.Stats(ctx)
	if err != nil {
		h.logger.Error("failed to load compression stats", "error", err)
		return nil, huma.Error500InternalServerError("获取统计数据失败")
	}
	return &StatsOutput{Body: *stats}, nil
}
