package extractor

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestPDFExtractor(maxSize int64) *PDFExtractor {
	return NewPDFExtractor(maxSize, 5*time.Second, nil)
}

func TestIsPDFURL(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://example.com/paper.pdf", true},
		{"https://example.com/paper.pdf?download=1", true},
		{"https://arxiv.org/pdf/2401.00001", true},
		{"https://example.com/export?format=pdf", true},
		{"https://openreview.net/pdf?id=abc", true},
		{"https://example.com/article", false},
		{"https://example.com/pdfs-explained.html", false},
	}
	for _, tt := range tests {
		if got := IsPDFURL(tt.url); got != tt.want {
			t.Errorf("IsPDFURL(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}

func TestOptimizeAcademicURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"https://arxiv.org/abs/2401.00001", "https://arxiv.org/pdf/2401.00001"},
		{"https://arxiv.org/pdf/2401.00001", "https://arxiv.org/pdf/2401.00001"},
		{"https://openreview.net/forum?id=abc", "https://openreview.net/pdf?id=abc"},
		{"https://example.com/abs/123", "https://example.com/abs/123"},
	}
	for _, tt := range tests {
		if got := OptimizeAcademicURL(tt.in); got != tt.want {
			t.Errorf("OptimizeAcademicURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDownloadRejectsOversized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "2048")
		w.Write(make([]byte, 2048))
	}))
	defer srv.Close()

	_, err := newTestPDFExtractor(1024).Extract(context.Background(), srv.URL+"/big.pdf")
	if KindOf(err) != KindTooLarge {
		t.Fatalf("kind = %q, err = %v", KindOf(err), err)
	}
	if !strings.Contains(err.Error(), "PDF文件过大") {
		t.Errorf("error = %q", err.Error())
	}
}

func TestDownloadRejectsOversizedWithoutContentLength(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Transfer-Encoding", "chunked")
		w.Write(make([]byte, 4096))
	}))
	defer srv.Close()

	_, err := newTestPDFExtractor(1024).Extract(context.Background(), srv.URL+"/big.pdf")
	if KindOf(err) != KindTooLarge {
		t.Fatalf("kind = %q, err = %v", KindOf(err), err)
	}
}

func TestDownloadDetectsAntiBotPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head><title>Just a moment...</title></head><body>checking</body></html>`)
	}))
	defer srv.Close()

	_, err := newTestPDFExtractor(1<<20).Extract(context.Background(), srv.URL+"/paper.pdf")
	if KindOf(err) != KindAntiBot {
		t.Fatalf("kind = %q, err = %v", KindOf(err), err)
	}
	if !strings.Contains(err.Error(), "反爬虫") {
		t.Errorf("error = %q", err.Error())
	}
}

func TestDownloadRejectsNonPDFBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><body>not a pdf at all, plain page body text</body></html>")
	}))
	defer srv.Close()

	_, err := newTestPDFExtractor(1<<20).Extract(context.Background(), srv.URL+"/paper.pdf")
	if KindOf(err) != KindInvalidFormat {
		t.Fatalf("kind = %q, err = %v", KindOf(err), err)
	}
}

func TestDownloadSetsPublisherReferer(t *testing.T) {
	req, _ := http.NewRequest(http.MethodGet, "https://arxiv.org/pdf/2401.00001", nil)
	applyPDFHeaders(req, 0)
	if got := req.Header.Get("Referer"); got != "https://arxiv.org/" {
		t.Errorf("Referer = %q", got)
	}

	req, _ = http.NewRequest(http.MethodGet, "https://example.com/a.pdf", nil)
	applyPDFHeaders(req, 0)
	if got := req.Header.Get("Referer"); got != "" {
		t.Errorf("unexpected Referer %q for unknown host", got)
	}
}

func TestParseContentStream(t *testing.T) {
	stream := strings.Join([]string{
		"BT",
		"/F1 12 Tf",
		"(Hello) Tj",
		"10 0 Td",
		"(world) Tj",
		"0 -14 Td",
		"[(Second) -250 (line)] TJ",
		"T*",
		"(Third line) '",
		"ET",
	}, "\n")

	got := parseContentStream([]byte(stream))
	if !strings.Contains(got, "Hello world") {
		t.Errorf("horizontal move should join words, got %q", got)
	}
	if !strings.Contains(got, "Secondline") {
		t.Errorf("TJ array strings should concatenate, got %q", got)
	}
	if strings.Index(got, "Hello world") > strings.Index(got, "Second") {
		t.Errorf("order lost: %q", got)
	}
	lines := strings.Split(got, "\n")
	if len(lines) < 3 {
		t.Fatalf("vertical moves should break lines, got %q", got)
	}
}

func TestDecodePDFString(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`plain`, "plain"},
		{`a\(b\)c`, "a(b)c"},
		{`tab\there`, "tab\there"},
		{`oct\040space`, "oct space"},
		{`back\\slash`, `back\slash`},
		{`short\7oct`, "short\aoct"},
	}
	for _, tt := range tests {
		if got := decodePDFString([]byte(tt.in)); got != tt.want {
			t.Errorf("decodePDFString(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTitleFromURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"https://example.com/papers/deep-learning_survey.pdf", "Deep Learning Survey"},
		{"https://example.com/", "PDF文档"},
		{"https://arxiv.org/pdf/2401.00001", "2401.00001"},
	}
	for _, tt := range tests {
		if got := titleFromURL(tt.in); got != tt.want {
			t.Errorf("titleFromURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
