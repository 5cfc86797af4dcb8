// Package validator gates extracted content before it reaches the costly
// transformation step: cheap rule checks first, then an optional AI pass.
package validator

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/streamwisdom/streamwisdom-api/internal/llm"
	"github.com/streamwisdom/streamwisdom-api/internal/models"
	"github.com/streamwisdom/streamwisdom-api/internal/prompt"
)

const (
	minContentChars   = 50
	markupScanChars   = 1000
	diversityMinChars = 20
	diversityLenGate  = 200
)

// errorPagePatterns match phrases that only appear on error pages, in both
// English and Chinese, checked against content and title.
var errorPagePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b404\b.{0,20}not found`),
	regexp.MustCompile(`(?i)page (?:was )?not found`),
	regexp.MustCompile(`(?i)\b403\b.{0,20}forbidden`),
	regexp.MustCompile(`(?i)access denied`),
	regexp.MustCompile(`(?i)\b50[0234]\b.{0,30}(?:error|unavailable)`),
	regexp.MustCompile(`(?i)internal server error`),
	regexp.MustCompile(`(?i)service (?:temporarily )?unavailable`),
	regexp.MustCompile(`页面不存在`),
	regexp.MustCompile(`页面未找到`),
	regexp.MustCompile(`访问被拒绝`),
	regexp.MustCompile(`服务器(?:内部)?错误`),
	regexp.MustCompile(`无权(?:限)?访问`),
}

// rawMarkupPatterns catch extraction results that are markup or machine
// config rather than prose. Only the head of the document is scanned.
var rawMarkupPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)<!DOCTYPE\s+html`),
	regexp.MustCompile(`(?i)<html[\s>]`),
	regexp.MustCompile(`(?i)<\?xml\s`),
	regexp.MustCompile(`^\s*[{[](?s:.*)[}\]]\s*$`),
	regexp.MustCompile(`(?i)(?:syntax|parse|database|sql)\s+error`),
	regexp.MustCompile(`(?i)stack\s*trace:`),
	regexp.MustCompile(`(?m)^\s*(?:var|const|function)\s+\w+\s*[=(]`),
}

// ModelCaller is the slice of the model manager the AI stage needs.
type ModelCaller interface {
	Select() (llm.Profile, string, error)
	Complete(ctx context.Context, p llm.Profile, key string, messages []llm.Message) (string, error)
}

// Validator runs the two-stage content gate. The AI stage is skipped when
// mgr is nil or the runtime flag disables it.
type Validator struct {
	mgr        ModelCaller
	prompts    *prompt.Loader
	configPath string
	logger     *slog.Logger
}

func New(mgr ModelCaller, prompts *prompt.Loader, configDir string, logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{
		mgr:        mgr,
		prompts:    prompts,
		configPath: filepath.Join(configDir, "config.json"),
		logger:     logger,
	}
}

// Validate checks extracted content and returns a result with a
// user-displayable reason on rejection. AI-stage infrastructure failures
// never reject: a best-effort quality check must not block the pipeline.
func (v *Validator) Validate(ctx context.Context, content *models.ExtractedContent) models.ValidationResult {
	if res := validateRules(content); !res.IsValid {
		return res
	}

	if v.mgr == nil || !v.aiEnabled() {
		return models.ValidationResult{IsValid: true}
	}
	return v.validateAI(ctx, content)
}

// validateRules is stage 1: cheap, local, always runs.
func validateRules(content *models.ExtractedContent) models.ValidationResult {
	text := content.Content
	runes := []rune(text)

	if len(runes) < minContentChars {
		return models.ValidationResult{IsValid: false, Reason: "内容过短，不足50字符"}
	}

	for _, p := range errorPagePatterns {
		if p.MatchString(text) || p.MatchString(content.Title) {
			return models.ValidationResult{IsValid: false, Reason: "提取到的是错误页面而非正文内容"}
		}
	}

	head := text
	if len(runes) > markupScanChars {
		head = string(runes[:markupScanChars])
	}
	for _, p := range rawMarkupPatterns {
		if p.MatchString(head) {
			return models.ValidationResult{IsValid: false, Reason: "提取到的是页面代码而非正文内容"}
		}
	}

	if len(runes) > diversityLenGate {
		distinct := make(map[rune]struct{})
		for _, r := range runes {
			if !isSpace(r) {
				distinct[r] = struct{}{}
			}
		}
		if len(distinct) < diversityMinChars {
			return models.ValidationResult{IsValid: false, Reason: "内容重复度过高，疑似无效内容"}
		}
	}

	return models.ValidationResult{IsValid: true}
}

func isSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r', '\f', '\v', ' ', '　':
		return true
	}
	return false
}

var invalidReplyRe = regexp.MustCompile(`无效[:：]\s*(.+)`)

// validateAI is stage 2: sample the document and ask the current model.
func (v *Validator) validateAI(ctx context.Context, content *models.ExtractedContent) models.ValidationResult {
	profile, key, err := v.mgr.Select()
	if err != nil {
		v.logger.Warn("ai validation skipped, no usable model", "error", err)
		return models.ValidationResult{IsValid: true, Warning: "AI内容检查不可用，已跳过"}
	}

	sample := SampleForValidation(content.Content)
	messages := []llm.Message{
		{Role: "system", Content: v.prompts.Load(prompt.ValidationPrompt)},
		{Role: "user", Content: sample},
	}

	reply, err := v.mgr.Complete(ctx, profile, key, messages)
	if err != nil {
		v.logger.Warn("ai validation call failed, passing content through",
			"model", profile.ID, "error", err)
		return models.ValidationResult{IsValid: true, Warning: "AI内容检查失败，已跳过"}
	}

	switch {
	case strings.Contains(reply, "有效"):
		return models.ValidationResult{IsValid: true}
	case strings.Contains(reply, "无效"):
		reason := "AI判定内容无效"
		if m := invalidReplyRe.FindStringSubmatch(reply); m != nil {
			reason = "AI判定内容无效: " + strings.TrimSpace(m[1])
		}
		return models.ValidationResult{IsValid: false, Reason: reason}
	default:
		v.logger.Debug("ambiguous ai validation reply", "model", profile.ID, "reply", reply)
		return models.ValidationResult{IsValid: true, Warning: "AI内容检查结果不明确"}
	}
}

// SampleForValidation builds a representative excerpt: short documents go
// whole, medium documents send their head, long documents get a three
// point sample. The pieces are joined without labels so the model judges
// them as ordinary text.
func SampleForValidation(text string) string {
	runes := []rune(text)
	n := len(runes)
	switch {
	case n <= 800:
		return text
	case n <= 2000:
		return string(runes[:800])
	default:
		mid := n * 40 / 100
		parts := []string{
			string(runes[:400]),
			string(runes[mid:min(mid+400, n)]),
			string(runes[n-200:]),
		}
		return strings.Join(parts, "\n\n")
	}
}

// aiEnabled reads the runtime flag from config.json on every call.
// Missing or corrupt config means enabled.
func (v *Validator) aiEnabled() bool {
	data, err := os.ReadFile(v.configPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			v.logger.Warn("cannot read runtime config", "path", v.configPath, "error", err)
		}
		return true
	}
	var cfg struct {
		AIValidation struct {
			Enabled *bool `json:"enabled"`
		} `json:"aiValidation"`
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		v.logger.Warn("invalid runtime config", "path", v.configPath, "error", err)
		return true
	}
	return cfg.AIValidation.Enabled == nil || *cfg.AIValidation.Enabled
}
