// Package extractor turns a URL into clean text plus image references,
// handling both HTML pages and PDF documents with retries, caching, and
// user-facing error messages.
package extractor

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/streamwisdom/streamwisdom-api/internal/models"
	"github.com/streamwisdom/streamwisdom-api/internal/urlutil"
)

// Service dispatches extraction to the PDF or HTML path and caches results
// by normalized URL.
type Service struct {
	html         *HTMLExtractor
	pdf          *PDFExtractor
	cache        *Cache
	allowPrivate bool
	logger       *slog.Logger
}

// Options configure a Service. Zero values fall back to the documented
// defaults.
type Options struct {
	ExtractTimeout time.Duration
	PDFTimeout     time.Duration
	MaxPDFSize     int64
	CacheTTL       time.Duration
	// AllowPrivateIPs permits fetching loopback and RFC1918 targets.
	// Off outside development; the API takes arbitrary user URLs.
	AllowPrivateIPs bool
	Logger          *slog.Logger
}

func NewService(opts Options) *Service {
	if opts.ExtractTimeout <= 0 {
		opts.ExtractTimeout = 15 * time.Second
	}
	if opts.PDFTimeout <= 0 {
		opts.PDFTimeout = 30 * time.Second
	}
	if opts.MaxPDFSize <= 0 {
		opts.MaxPDFSize = 50 << 20
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 24 * time.Hour
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		html:         NewHTMLExtractor(opts.ExtractTimeout, logger),
		pdf:          NewPDFExtractor(opts.MaxPDFSize, opts.PDFTimeout, logger),
		cache:        NewCache(opts.CacheTTL),
		allowPrivate: opts.AllowPrivateIPs,
		logger:       logger,
	}
}

// Extract returns content for rawURL, serving from cache when fresh.
// PDF-looking URLs take the PDF path first; if the URL only looked like a
// PDF because of loose pattern matching, extraction falls back to HTML.
func (s *Service) Extract(ctx context.Context, rawURL string) (*models.ExtractedContent, error) {
	if !s.allowPrivate {
		if err := rejectPrivateHost(rawURL); err != nil {
			return nil, err
		}
	}

	key := urlutil.Normalize(rawURL)
	if cached, ok := s.cache.Get(key); ok {
		s.logger.Debug("cache hit", "url", rawURL)
		return cached, nil
	}

	target := OptimizeAcademicURL(rawURL)

	var content *models.ExtractedContent
	var err error
	if IsPDFURL(target) || (pdfHint(target) && s.probeIsPDF(ctx, target)) {
		content, err = s.pdf.Extract(ctx, target)
		if err != nil && fallbackToHTML(target, err) {
			s.logger.Debug("pdf path failed, trying html", "url", target, "error", err)
			content, err = s.html.Extract(ctx, rawURL)
		}
	} else {
		content, err = s.html.Extract(ctx, rawURL)
	}
	if err != nil {
		return nil, err
	}

	s.cache.Set(key, content)
	return content, nil
}

// fallbackToHTML decides whether an HTML attempt could still succeed after
// the PDF path failed. URLs ending in .pdf are unambiguous; everything the
// pattern match caught loosely gets a second chance unless the failure was
// about the transfer itself.
func fallbackToHTML(target string, err error) bool {
	if pdfURLPatterns[0].MatchString(target) {
		return false
	}
	switch KindOf(err) {
	case KindTooLarge, KindAccessDenied, KindNotFound, KindTimeout, KindDNS, KindConnRefused:
		return false
	default:
		return true
	}
}

// probeIsPDF issues a short HEAD request when the URL shape is inconclusive
// and trusts an application/pdf content type. Any probe failure means "not
// a PDF"; the HTML path will surface real errors.
func (s *Service) probeIsPDF(ctx context.Context, rawURL string) bool {
	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodHead, rawURL, nil)
	if err != nil {
		return false
	}
	req.Header.Set("User-Agent", userAgentFor(0))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return strings.HasPrefix(resp.Header.Get("Content-Type"), "application/pdf")
}

// pdfHint reports whether the URL mentions PDFs at all without matching the
// strict patterns. Only these URLs are worth a HEAD probe.
func pdfHint(rawURL string) bool {
	return strings.Contains(strings.ToLower(rawURL), "pdf")
}

// rejectPrivateHost blocks requests whose host is a literal loopback,
// private, or link-local address. Hostnames resolving to private ranges
// are not caught here; this guards the obvious SSRF shapes.
func rejectPrivateHost(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return NewError(KindInvalidFormat, rawURL, "URL格式无效")
	}
	host := strings.ToLower(u.Hostname())
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return NewError(KindAccessDenied, rawURL, "禁止访问内网地址")
	}
	if ip := net.ParseIP(host); ip != nil {
		if ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsUnspecified() {
			return NewError(KindAccessDenied, rawURL, "禁止访问内网地址")
		}
	}
	return nil
}
