package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/streamwisdom/streamwisdom-api/internal/extractor"
	"github.com/streamwisdom/streamwisdom-api/internal/llm"
	"github.com/streamwisdom/streamwisdom-api/internal/models"
	"github.com/streamwisdom/streamwisdom-api/internal/prompt"
	"github.com/streamwisdom/streamwisdom-api/internal/transform"
)

type stubExtractor struct {
	content *models.ExtractedContent
	err     error
}

func (s *stubExtractor) Extract(ctx context.Context, rawURL string) (*models.ExtractedContent, error) {
	return s.content, s.err
}

type passValidator struct{}

func (passValidator) Validate(ctx context.Context, content *models.ExtractedContent) models.ValidationResult {
	return models.ValidationResult{IsValid: true}
}

type stubCaller struct {
	chunks []string
}

func (s *stubCaller) Select() (llm.Profile, string, error) {
	return llm.Profile{ID: "stub-model"}, "sk-test", nil
}

func (s *stubCaller) Complete(ctx context.Context, p llm.Profile, key string, messages []llm.Message) (string, error) {
	return strings.Join(s.chunks, ""), nil
}

func (s *stubCaller) Stream(ctx context.Context, p llm.Profile, key string, messages []llm.Message, onChunk func(string) error) (string, error) {
	for _, c := range s.chunks {
		if err := onChunk(c); err != nil {
			return "", err
		}
	}
	return strings.Join(s.chunks, ""), nil
}

func newStreamHandler(t *testing.T, ex transform.Extractor) *TransformHandler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := transform.NewService(
		nil,
		ex,
		passValidator{},
		&stubCaller{chunks: []string{"第一段。", "第二段。"}},
		prompt.NewLoader(t.TempDir(), logger),
		nil,
		logger,
	)
	return NewTransformHandler(svc, "http://localhost:3000", logger)
}

func TestBuildRequest(t *testing.T) {
	tests := []struct {
		name       string
		url        string
		complexity string
		wantErr    bool
		wantLevel  models.ComplexityLevel
	}{
		{"valid with default", "https://example.com/article", "", false, models.ComplexityBeginner},
		{"valid intermediate", "https://example.com/article", "intermediate", false, models.ComplexityIntermediate},
		{"missing url", "", "beginner", true, ""},
		{"not a url", "::::", "beginner", true, ""},
		{"no scheme", "example.com/article", "beginner", true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := buildRequest(tt.url, tt.complexity)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("buildRequest: %v", err)
			}
			if req.Complexity != tt.wantLevel {
				t.Errorf("complexity = %q, want %q", req.Complexity, tt.wantLevel)
			}
		})
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"policy rejection", &transform.PolicyError{Reason: "仅支持技术文档"}, http.StatusBadRequest},
		{"validation rejection", &transform.ValidationError{Reason: "内容过短"}, http.StatusUnprocessableEntity},
		{"missing key", llm.ErrMissingAPIKey, http.StatusServiceUnavailable},
		{"provider failure", &llm.APIError{Kind: llm.KindUnavailable, Message: "AI服务暂时不可用"}, http.StatusBadGateway},
		{"page not found", extractor.NewError(extractor.KindNotFound, "u", "页面不存在 (404)"), http.StatusNotFound},
		{"blocked upstream", extractor.NewError(extractor.KindAccessDenied, "u", "访问被禁止 (403)"), http.StatusBadGateway},
		{"scanned pdf", extractor.NewError(extractor.KindInsufficientText, "u", "可能是扫描版PDF"), http.StatusUnprocessableEntity},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := statusFor(tt.err); got != tt.want {
				t.Errorf("%s: status = %d, want %d", tt.name, got, tt.want)
			}
		})
	}
}

func TestStreamTransform(t *testing.T) {
	h := newStreamHandler(t, &stubExtractor{content: &models.ExtractedContent{
		Content:    strings.Repeat("内容", 60),
		Title:      "测试文章",
		SourceURL:  "https://example.com/article",
		ImageCount: 1,
		Images:     []models.ImageRef{{AbsoluteURL: "https://example.com/a.png", AltText: "图一"}},
	}})

	req := httptest.NewRequest(http.MethodPost, "/api/transform-stream",
		strings.NewReader(`{"url":"https://example.com/article","complexity":"beginner"}`))
	rec := httptest.NewRecorder()
	h.StreamTransform(rec, req)

	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q", ct)
	}
	body := rec.Body.String()

	for _, want := range []string{
		`"type":"init"`,
		`"type":"progress"`,
		`"stage":"extracting"`,
		`"type":"content_chunk"`,
		`"chunk":"第一段。"`,
		`"type":"complete"`,
		`"shareUrl":"http://localhost:3000/share/`,
		"data: [DONE]\n\n",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("stream missing %s\nbody:\n%s", want, body)
		}
	}

	if strings.Contains(body, "a.png") {
		t.Error("image source URLs must not leak into the stream")
	}
	if !strings.HasSuffix(body, "data: [DONE]\n\n") {
		t.Error("stream must end with the [DONE] marker")
	}
}

func TestStreamTransformPipelineError(t *testing.T) {
	h := newStreamHandler(t, &stubExtractor{
		err: extractor.NewError(extractor.KindAccessDenied, "https://example.com", "访问被禁止 (403)，该网站可能阻止了自动访问"),
	})

	req := httptest.NewRequest(http.MethodPost, "/api/transform-stream",
		strings.NewReader(`{"url":"https://example.com/article"}`))
	rec := httptest.NewRecorder()
	h.StreamTransform(rec, req)

	body := rec.Body.String()
	if !strings.Contains(body, `"type":"error"`) || !strings.Contains(body, "访问被禁止") {
		t.Errorf("expected error event with upstream message, got:\n%s", body)
	}
	if !strings.HasSuffix(body, "data: [DONE]\n\n") {
		t.Error("error streams still end with the [DONE] marker")
	}
}

func TestStreamTransformBadBody(t *testing.T) {
	h := newStreamHandler(t, &stubExtractor{})

	req := httptest.NewRequest(http.MethodPost, "/api/transform-stream", strings.NewReader(`{"url":""}`))
	rec := httptest.NewRecorder()
	h.StreamTransform(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "data:") {
		t.Error("invalid requests must fail before the stream opens")
	}
}

func TestTransformBlocking(t *testing.T) {
	h := newStreamHandler(t, &stubExtractor{content: &models.ExtractedContent{
		Content:   strings.Repeat("内容", 60),
		Title:     "测试文章",
		SourceURL: "https://example.com/article",
	}})

	input := &TransformInput{}
	input.Body.URL = "https://example.com/article"
	out, err := h.Transform(context.Background(), input)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if !out.Body.Success {
		t.Error("success = false")
	}
	if out.Body.Result != "第一段。第二段。" {
		t.Errorf("result = %q", out.Body.Result)
	}
	if out.Body.Model != "stub-model" {
		t.Errorf("model = %q", out.Body.Model)
	}
	if !strings.HasPrefix(out.Body.ShareURL, "http://localhost:3000/share/") {
		t.Errorf("shareUrl = %q", out.Body.ShareURL)
	}
}
