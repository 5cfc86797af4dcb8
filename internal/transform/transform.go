// Package transform runs the full pipeline: policy check, extraction,
// validation, prompt assembly, model call, and history persistence.
package transform

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/streamwisdom/streamwisdom-api/internal/contenttype"
	"github.com/streamwisdom/streamwisdom-api/internal/llm"
	"github.com/streamwisdom/streamwisdom-api/internal/models"
	"github.com/streamwisdom/streamwisdom-api/internal/prompt"
	"github.com/streamwisdom/streamwisdom-api/internal/urlutil"
)

// ModelCaller is the slice of the model manager the orchestrator needs.
type ModelCaller interface {
	Select() (llm.Profile, string, error)
	Complete(ctx context.Context, p llm.Profile, key string, messages []llm.Message) (string, error)
	Stream(ctx context.Context, p llm.Profile, key string, messages []llm.Message, onChunk func(string) error) (string, error)
}

// Extractor is satisfied by extractor.Service.
type Extractor interface {
	Extract(ctx context.Context, rawURL string) (*models.ExtractedContent, error)
}

// Validator is satisfied by validator.Validator.
type Validator interface {
	Validate(ctx context.Context, content *models.ExtractedContent) models.ValidationResult
}

// HistoryStore persists finished transformations. Persistence failures
// never fail the request.
type HistoryStore interface {
	Save(ctx context.Context, t *models.Transformation) error
}

// PolicyError carries a rejection from the content-type policy check.
type PolicyError struct {
	Reason string
}

func (e *PolicyError) Error() string { return e.Reason }

// ValidationError carries a content-validation rejection.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// Request is one transformation job.
type Request struct {
	URL        string
	Complexity models.ComplexityLevel
}

// Result is the finished transformation plus its bookkeeping.
type Result struct {
	Result            string             `json:"result"`
	Title             string             `json:"title"`
	OriginalLength    int                `json:"originalLength"`
	TransformedLength int                `json:"transformedLength"`
	ImageCount        int                `json:"imageCount"`
	Images            []models.ImageRef  `json:"images,omitempty"`
	Model             string             `json:"model"`
	UUID              string             `json:"uuid"`
	Warning           string             `json:"warning,omitempty"`
}

// Callbacks receive progress while a transformation runs. Nil fields are
// skipped; a blocking caller passes the zero value.
type Callbacks struct {
	OnProgress func(stage, message string)
	OnChunk    func(delta string) error
}

// Service wires the pipeline stages together.
type Service struct {
	checker   *contenttype.Checker
	extractor Extractor
	validator Validator
	mgr       ModelCaller
	prompts   *prompt.Loader
	history   HistoryStore
	logger    *slog.Logger
}

func NewService(checker *contenttype.Checker, ex Extractor, val Validator, mgr ModelCaller, prompts *prompt.Loader, history HistoryStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		checker:   checker,
		extractor: ex,
		validator: val,
		mgr:       mgr,
		prompts:   prompts,
		history:   history,
		logger:    logger,
	}
}

// Transform runs the pipeline for req. With cb.OnChunk set the model is
// called in streaming mode and deltas are forwarded as they arrive.
func (s *Service) Transform(ctx context.Context, req Request, cb Callbacks) (*Result, error) {
	start := time.Now()
	progress := func(stage, message string) {
		if cb.OnProgress != nil {
			cb.OnProgress(stage, message)
		}
	}

	if s.checker != nil {
		progress("checking", "正在检查URL...")
		check := s.checker.Check(req.URL)
		if !check.Allowed {
			return nil, &PolicyError{Reason: check.Reason}
		}
	}

	progress("extracting", "正在提取内容...")
	content, err := s.extractor.Extract(ctx, req.URL)
	if err != nil {
		return nil, err
	}

	progress("validating", "正在检查内容质量...")
	vr := s.validator.Validate(ctx, content)
	if !vr.IsValid {
		return nil, &ValidationError{Reason: vr.Reason}
	}

	// Fail fast before prompt assembly: a missing key should not cost a
	// wasted provider roundtrip.
	profile, key, err := s.mgr.Select()
	if err != nil {
		return nil, err
	}

	progress("transforming", "正在生成讲解稿...")
	messages := []llm.Message{
		{Role: "system", Content: s.prompts.Load(prompt.TransformPrompt)},
		{Role: "user", Content: buildUserPrompt(content, req.Complexity)},
	}

	var transformed string
	if cb.OnChunk != nil {
		transformed, err = s.mgr.Stream(ctx, profile, key, messages, cb.OnChunk)
	} else {
		transformed, err = s.mgr.Complete(ctx, profile, key, messages)
	}
	if err != nil {
		return nil, err
	}

	originalLen := len([]rune(content.Content))
	transformedLen := len([]rune(transformed))
	s.logMetrics(req.URL, profile.ID, originalLen, transformedLen, time.Since(start))

	res := &Result{
		Result:            transformed,
		Title:             content.Title,
		OriginalLength:    originalLen,
		TransformedLength: transformedLen,
		ImageCount:        content.ImageCount,
		Images:            content.Images,
		Model:             profile.ID,
		UUID:              newShareID(),
		Warning:           vr.Warning,
	}
	s.persist(ctx, req, content, res)
	return res, nil
}

// persist saves the finished transformation. Errors are logged only; the
// caller already has their result.
func (s *Service) persist(ctx context.Context, req Request, content *models.ExtractedContent, res *Result) {
	if s.history == nil {
		return
	}
	now := time.Now().UTC()
	record := &models.Transformation{
		ID:                 ulid.Make().String(),
		UUID:               res.UUID,
		Title:              res.Title,
		OriginalURL:        urlutil.Normalize(req.URL),
		TransformedContent: res.Result,
		Complexity:         string(req.Complexity),
		Model:              res.Model,
		ImageCount:         res.ImageCount,
		ImagesJSON:         marshalImages(res.Images),
		OriginalLength:     res.OriginalLength,
		TransformedLength:  res.TransformedLength,
		CompressionRatio:   ratio(res.TransformedLength, res.OriginalLength),
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.history.Save(ctx, record); err != nil {
		s.logger.Error("cannot persist transformation", "url", req.URL, "error", err)
	}
}

func (s *Service) logMetrics(url, model string, originalLen, transformedLen int, took time.Duration) {
	r := ratio(transformedLen, originalLen)
	direction := "compression"
	if transformedLen > originalLen {
		direction = "expansion"
	}
	s.logger.Info("transformation finished",
		"url", url,
		"model", model,
		"original_chars", originalLen,
		"transformed_chars", transformedLen,
		"ratio", fmt.Sprintf("%.2f", r),
		"direction", direction,
		"delta_chars", transformedLen-originalLen,
		"took", took)
}

func marshalImages(images []models.ImageRef) string {
	if len(images) == 0 {
		return "[]"
	}
	data, err := json.Marshal(images)
	if err != nil {
		return "[]"
	}
	return string(data)
}

func ratio(transformed, original int) float64 {
	if original == 0 {
		return 0
	}
	return float64(transformed) / float64(original)
}

// newShareID generates the public identifier for a stored transformation.
func newShareID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand failing means the process is in serious trouble;
		// a ULID still gives a unique, unguessable-enough fallback.
		return ulid.Make().String()
	}
	return fmt.Sprintf("%s-%s-%s-%s-%s",
		hex.EncodeToString(b[0:4]), hex.EncodeToString(b[4:6]),
		hex.EncodeToString(b[6:8]), hex.EncodeToString(b[8:10]),
		hex.EncodeToString(b[10:16]))
}
