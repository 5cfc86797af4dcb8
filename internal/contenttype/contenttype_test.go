package contenttype

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/streamwisdom/streamwisdom-api/internal/models"
)

func newTestChecker(t *testing.T) *Checker {
	t.Helper()
	return NewChecker(t.TempDir(), nil)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want models.ContentType
	}{
		{"pdf extension", "https://example.com/paper.pdf", models.ContentTypePDF},
		{"pdf in url", "https://example.com/download?format=pdf", models.ContentTypePDF},
		{"acm pdf pattern", "https://dl.acm.org/doi/pdf/10.1145/3297858", models.ContentTypePDF},
		{"ieee stamp pattern", "https://ieeexplore.ieee.org/stamp/stamp.jsp?arnumber=1", models.ContentTypePDF},
		{"arxiv pdf", "https://arxiv.org/pdf/2301.00001", models.ContentTypePDF},
		{"youtube", "https://www.youtube.com/watch?v=abc", models.ContentTypeVideo},
		{"youtu.be", "https://youtu.be/abc", models.ContentTypeVideo},
		{"github", "https://github.com/user/repo", models.ContentTypeCode},
		{"raw github", "https://raw.githubusercontent.com/u/r/main/README.md", models.ContentTypeCode},
		{"arxiv abstract", "https://arxiv.org/abs/2301.00001", models.ContentTypeAcademic},
		{"nature article", "https://www.nature.com/articles/s41586", models.ContentTypeAcademic},
		{"docs path", "https://example.com/docs/getting-started", models.ContentTypeDocumentation},
		{"wiki path", "https://example.com/wiki/Main_Page", models.ContentTypeDocumentation},
		{"docs subdomain", "https://docs.example.com/start", models.ContentTypeDocumentation},
		{"plain page", "https://example.com/blog/post-1", models.ContentTypeHTML},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestChecker(t)
			v := c.Check(tt.url)
			if v.ContentType != tt.want {
				t.Errorf("Check(%q).ContentType = %q, want %q", tt.url, v.ContentType, tt.want)
			}
		})
	}
}

func TestCheckMalformedURL(t *testing.T) {
	c := newTestChecker(t)
	v := c.Check("://not-a-url")
	if v.Allowed {
		t.Error("malformed URL must not be allowed")
	}
	if v.Reason != "URL格式无效" {
		t.Errorf("unexpected reason %q", v.Reason)
	}
}

func TestCheckIdempotent(t *testing.T) {
	c := newTestChecker(t)
	url := "https://example.com/docs/guide"
	first := c.Check(url)
	second := c.Check(url)
	if first.Allowed != second.Allowed || first.ContentType != second.ContentType {
		t.Errorf("classification not idempotent: %+v vs %+v", first, second)
	}
}

func TestDenyListWinsOverAllowList(t *testing.T) {
	dir := t.TempDir()
	p := DefaultPolicy()
	p.AllowedContentTypes["html"] = TypePolicy{
		Enabled:           true,
		Domains:           []string{"*"},
		RestrictedDomains: []string{"blocked.example.com"},
	}
	writePolicy(t, dir, p)

	c := NewChecker(dir, nil)
	v := c.Check("https://blocked.example.com/page")
	if v.Allowed {
		t.Error("restricted domain must be denied even with * allow list")
	}
}

func TestDisabledType(t *testing.T) {
	c := newTestChecker(t)
	// Default policy disables video.
	v := c.Check("https://www.youtube.com/watch?v=abc")
	if v.Allowed {
		t.Error("video should be disabled by default")
	}
	if v.ContentType != models.ContentTypeVideo {
		t.Errorf("expected video type, got %q", v.ContentType)
	}
}

func TestUnknownTypeFallsBackToAllowUnknown(t *testing.T) {
	dir := t.TempDir()
	p := DefaultPolicy()
	// Academic type is not configured; allowUnknownTypes governs it.
	p.Restrictions.AllowUnknownTypes = false
	writePolicy(t, dir, p)

	c := NewChecker(dir, nil)
	v := c.Check("https://www.nature.com/articles/s41586")
	if v.Allowed {
		t.Error("unknown type should be denied when allowUnknownTypes is false")
	}
}

func TestGlobalDisableAllowsEverything(t *testing.T) {
	dir := t.TempDir()
	p := DefaultPolicy()
	p.Enabled = false
	writePolicy(t, dir, p)

	c := NewChecker(dir, nil)
	if v := c.Check("https://www.youtube.com/watch?v=abc"); !v.Allowed {
		t.Error("disabled policy must allow all URLs")
	}
}

func TestCorruptPolicyFallsBackToDefaults(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "content-types.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	c := NewChecker(dir, nil)
	if v := c.Check("https://example.com/post"); !v.Allowed {
		t.Error("defaults should allow plain HTML")
	}
}

func TestSaveAndReloadPolicy(t *testing.T) {
	dir := t.TempDir()
	c := NewChecker(dir, nil)

	p := DefaultPolicy()
	p.AllowedContentTypes["pdf"] = TypePolicy{Enabled: false}
	if err := c.SavePolicy(p); err != nil {
		t.Fatalf("SavePolicy: %v", err)
	}

	v := c.Check("https://example.com/paper.pdf")
	if v.Allowed {
		t.Error("pdf should be disabled after saved policy")
	}
}

func writePolicy(t *testing.T, dir string, p *Policy) {
	t.Helper()
	data, err := json.Marshal(p)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "content-types.json"), data, 0o644); err != nil {
		t.Fatal(err)
	}
}
