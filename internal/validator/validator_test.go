package validator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/streamwisdom/streamwisdom-api/internal/llm"
	"github.com/streamwisdom/streamwisdom-api/internal/models"
	"github.com/streamwisdom/streamwisdom-api/internal/prompt"
)

func contentOf(text string) *models.ExtractedContent {
	return &models.ExtractedContent{Content: text, Title: "t", SourceURL: "https://example.com/a"}
}

func goodArticle() string {
	return strings.Repeat("这是一段正常的文章内容，讨论软件工程实践与系统设计。", 20)
}

func TestValidateRules(t *testing.T) {
	tests := []struct {
		name    string
		content *models.ExtractedContent
		valid   bool
		reason  string
	}{
		{"good article", contentOf(goodArticle()), true, ""},
		{"too short", contentOf("short"), false, "内容过短，不足50字符"},
		{"error page en", contentOf(strings.Repeat("x y z w v u t s r q p o n m l k j i h g ", 10) + "404 - Not Found"), false, "错误页面"},
		{"error page zh", contentOf(goodArticle() + "页面不存在"), false, "错误页面"},
		{"error page in title", &models.ExtractedContent{Content: goodArticle(), Title: "Access Denied"}, false, "错误页面"},
		{"raw html", contentOf("<!DOCTYPE html><html><head>" + goodArticle()), false, "页面代码"},
		{"javascript", contentOf("function init() { return 1; }\n" + goodArticle()), false, "页面代码"},
		{"degenerate", contentOf(strings.Repeat("a", 300)), false, "重复度过高"},
		{"short repetitive ok", contentOf(strings.Repeat("ab", 60)), true, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := validateRules(tt.content)
			if got.IsValid != tt.valid {
				t.Fatalf("IsValid = %v, reason %q", got.IsValid, got.Reason)
			}
			if tt.reason != "" && !strings.Contains(got.Reason, tt.reason) {
				t.Errorf("reason = %q, want substring %q", got.Reason, tt.reason)
			}
		})
	}
}

func TestSampleForValidation(t *testing.T) {
	short := strings.Repeat("a", 500)
	if got := SampleForValidation(short); got != short {
		t.Error("short documents should pass whole")
	}

	medium := strings.Repeat("b", 1500)
	if got := SampleForValidation(medium); len([]rune(got)) != 800 {
		t.Errorf("medium sample = %d runes, want 800", len([]rune(got)))
	}

	long := strings.Repeat("c", 10000)
	got := SampleForValidation(long)
	parts := strings.Split(got, "\n\n")
	if len(parts) != 3 {
		t.Fatalf("long sample parts = %d, want 3", len(parts))
	}
	for i, want := range []int{400, 400, 200} {
		if n := len([]rune(parts[i])); n != want {
			t.Errorf("part %d = %d runes, want %d", i, n, want)
		}
	}
}

type stubCaller struct {
	selectErr error
	reply     string
	callErr   error
	called    bool
}

func (s *stubCaller) Select() (llm.Profile, string, error) {
	if s.selectErr != nil {
		return llm.Profile{}, "", s.selectErr
	}
	return llm.Profile{ID: "stub", Format: llm.FormatStandardChat}, "sk-test", nil
}

func (s *stubCaller) Complete(_ context.Context, _ llm.Profile, _ string, _ []llm.Message) (string, error) {
	s.called = true
	return s.reply, s.callErr
}

func newTestValidator(t *testing.T, stub *stubCaller) *Validator {
	t.Helper()
	dir := t.TempDir()
	return New(stub, prompt.NewLoader(dir, nil), dir, nil)
}

func TestValidateAIAccepts(t *testing.T) {
	v := newTestValidator(t, &stubCaller{reply: "有效"})
	got := v.Validate(context.Background(), contentOf(goodArticle()))
	if !got.IsValid || got.Warning != "" {
		t.Errorf("got %+v", got)
	}
}

func TestValidateAIRejectsWithReason(t *testing.T) {
	v := newTestValidator(t, &stubCaller{reply: "无效: 这是登录墙页面"})
	got := v.Validate(context.Background(), contentOf(goodArticle()))
	if got.IsValid {
		t.Fatal("want rejection")
	}
	if !strings.Contains(got.Reason, "登录墙") {
		t.Errorf("reason = %q", got.Reason)
	}
}

func TestValidateAIAmbiguousReplyPassesWithWarning(t *testing.T) {
	v := newTestValidator(t, &stubCaller{reply: "我不确定"})
	got := v.Validate(context.Background(), contentOf(goodArticle()))
	if !got.IsValid || got.Warning == "" {
		t.Errorf("got %+v", got)
	}
}

func TestValidateAIInfraFailurePasses(t *testing.T) {
	v := newTestValidator(t, &stubCaller{callErr: errors.New("connection refused")})
	got := v.Validate(context.Background(), contentOf(goodArticle()))
	if !got.IsValid || got.Warning == "" {
		t.Errorf("infrastructure failure must pass with warning, got %+v", got)
	}

	v = newTestValidator(t, &stubCaller{selectErr: llm.ErrMissingAPIKey})
	got = v.Validate(context.Background(), contentOf(goodArticle()))
	if !got.IsValid || got.Warning == "" {
		t.Errorf("no-model failure must pass with warning, got %+v", got)
	}
}

func TestValidateAIDisabledByConfig(t *testing.T) {
	stub := &stubCaller{reply: "无效: 应该不会被调用"}
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.json"),
		[]byte(`{"aiValidation":{"enabled":false}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	v := New(stub, prompt.NewLoader(dir, nil), dir, nil)
	got := v.Validate(context.Background(), contentOf(goodArticle()))
	if !got.IsValid {
		t.Errorf("got %+v", got)
	}
	if stub.called {
		t.Error("AI stage must not run when disabled")
	}
}

func TestValidateRulesRunBeforeAI(t *testing.T) {
	stub := &stubCaller{reply: "有效"}
	v := newTestValidator(t, stub)
	got := v.Validate(context.Background(), contentOf("tiny"))
	if got.IsValid {
		t.Fatal("want rule rejection")
	}
	if stub.called {
		t.Error("AI stage must not run after a rule rejection")
	}
}
