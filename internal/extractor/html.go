package extractor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/streamwisdom/streamwisdom-api/internal/models"
)

// contentSelectors are tried in order of declared specificity; the longest
// match wins regardless of order as long as it clears minContentLength.
var contentSelectors = []string{
	"article",
	"main article",
	"[role=\"main\"] article",
	"main",
	"[role=\"main\"]",
	".post-content",
	".entry-content",
	".article-content",
	".article-body",
	".post-body",
	".story-body",
	".content-body",
	".markdown-body",
	".rich-text",
	".prose",
	"#article",
	"#content article",
	"#main-content",
	"#post-content",
	".post",
	".article",
	".entry",
	".blog-post",
	".page-content",
	"#content",
}

// strippedSelectors name elements that never carry article text.
var strippedSelectors = []string{
	"script", "style", "noscript", "iframe", "svg", "form", "button",
	"nav", "header", "footer", "aside",
	".nav", ".navbar", ".menu", ".sidebar", ".footer", ".header",
	".advertisement", ".ads", ".ad", ".social-share", ".comments",
	".related-posts", ".newsletter", ".cookie-banner",
}

const (
	minContentLength  = 100
	minTerminalLength = 50
	maxImages         = 10
	imageContextLen   = 200
)

// HTMLExtractor fetches a page and pulls out its main article text plus
// the images embedded in that text.
type HTMLExtractor struct {
	baseTimeout time.Duration
	retry       RetryPolicy
	logger      *slog.Logger
}

func NewHTMLExtractor(baseTimeout time.Duration, logger *slog.Logger) *HTMLExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTMLExtractor{
		baseTimeout: baseTimeout,
		retry:       DefaultRetryPolicy(),
		logger:      logger,
	}
}

// Extract fetches rawURL with retries and returns its main content.
func (e *HTMLExtractor) Extract(ctx context.Context, rawURL string) (*models.ExtractedContent, error) {
	pageURL, err := url.Parse(rawURL)
	if err != nil || (pageURL.Scheme != "http" && pageURL.Scheme != "https") {
		return nil, NewError(KindInvalidFormat, rawURL, "URL格式无效")
	}

	var body []byte
	fetchErr := Retry(ctx, e.retry, isRetryableFetch, func(attempt int) error {
		if attempt > 0 {
			e.logger.Debug("retrying fetch", "url", rawURL, "attempt", attempt)
		}
		var err error
		body, err = e.fetchOnce(ctx, rawURL, attempt)
		return err
	})
	if fetchErr != nil {
		return nil, fetchErr
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, NewError(KindInvalidFormat, rawURL, "页面解析失败: %v", err)
	}

	for _, sel := range strippedSelectors {
		doc.Find(sel).Remove()
	}

	content, scope := e.pickContent(doc)
	if utf8.RuneCountInString(content) < minTerminalLength {
		e.logger.Error("content extraction failed",
			"url", rawURL,
			"content_length", utf8.RuneCountInString(content),
			"html_length", len(body),
			"title", CleanHTMLText(doc.Find("title").First().Text()),
			"has_body", doc.Find("body").Length() > 0,
		)
		return nil, NewError(KindInsufficientText, rawURL,
			"无法提取有效内容。URL: %s 提取到的内容长度: %d 字符", rawURL, utf8.RuneCountInString(content))
	}

	images := e.extractImages(scope, pageURL)

	return &models.ExtractedContent{
		Content:     content,
		Images:      images,
		ImageCount:  len(images),
		Title:       e.extractTitle(doc),
		SourceURL:   rawURL,
		ExtractedAt: time.Now().UTC(),
	}, nil
}

func (e *HTMLExtractor) fetchOnce(ctx context.Context, rawURL string, attempt int) ([]byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, attemptTimeout(e.baseTimeout, attempt))
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, NewError(KindInvalidFormat, rawURL, "URL格式无效")
	}
	applyFetchHeaders(req, attempt)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, classifyTransportError(rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(rawURL, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransportError(rawURL, err)
	}
	return body, nil
}

// classifyStatus maps an HTTP status to a user-facing extraction error.
func classifyStatus(rawURL string, status int) error {
	switch {
	case status == http.StatusForbidden:
		return NewError(KindAccessDenied, rawURL, "访问被禁止 (403)，该网站可能阻止了自动访问")
	case status == http.StatusNotFound:
		return NewError(KindNotFound, rawURL, "页面不存在 (404)")
	case status == http.StatusTooManyRequests:
		return NewError(KindRateLimited, rawURL, "请求过于频繁 (429)，请稍后再试")
	case status >= 500:
		return NewError(KindServerError, rawURL, "目标服务器错误 (%d)", status)
	default:
		return NewError(KindNetwork, rawURL, "请求失败 (HTTP %d)", status)
	}
}

func classifyTransportError(rawURL string, err error) error {
	var dnsErr *net.DNSError
	switch {
	case errors.Is(err, context.DeadlineExceeded) || os.IsTimeout(err):
		return &ExtractionError{Kind: KindTimeout, URL: rawURL, Message: "请求超时，目标网站响应过慢", Err: err}
	case errors.As(err, &dnsErr):
		return &ExtractionError{Kind: KindDNS, URL: rawURL, Message: "域名解析失败，请检查URL是否正确", Err: err}
	case strings.Contains(err.Error(), "connection refused"):
		return &ExtractionError{Kind: KindConnRefused, URL: rawURL, Message: "连接被拒绝，目标服务器不可达", Err: err}
	default:
		return &ExtractionError{Kind: KindNetwork, URL: rawURL, Message: fmt.Sprintf("网络请求失败: %v", err), Err: err}
	}
}

// isRetryableFetch approves another attempt for transient failures only.
// 404 and malformed URLs will not get better on retry.
func isRetryableFetch(err error) bool {
	switch KindOf(err) {
	case KindNotFound, KindInvalidFormat, KindInsufficientText:
		return false
	default:
		return true
	}
}

// pickContent returns the cleaned text of the best candidate container and
// the selection image extraction is scoped to.
func (e *HTMLExtractor) pickContent(doc *goquery.Document) (string, *goquery.Selection) {
	var best string
	var bestSel *goquery.Selection
	for _, sel := range contentSelectors {
		s := doc.Find(sel).First()
		if s.Length() == 0 {
			continue
		}
		text := CleanHTMLText(s.Text())
		n := utf8.RuneCountInString(text)
		if n >= minContentLength && n > utf8.RuneCountInString(best) {
			best = text
			bestSel = s
		}
	}
	if best != "" {
		return best, bestSel
	}
	return e.fallbackContent(doc)
}

// fallbackContent is the ladder used when no candidate container matched:
// whole body, then paragraphs, then medium-sized divs.
func (e *HTMLExtractor) fallbackContent(doc *goquery.Document) (string, *goquery.Selection) {
	body := doc.Find("body").First()
	if text := CleanHTMLText(body.Text()); utf8.RuneCountInString(text) >= minContentLength {
		return text, body
	}

	var paragraphs []string
	doc.Find("p").Each(func(_ int, p *goquery.Selection) {
		if t := CleanHTMLText(p.Text()); t != "" {
			paragraphs = append(paragraphs, t)
		}
	})
	if joined := strings.Join(paragraphs, "\n\n"); utf8.RuneCountInString(joined) >= minContentLength {
		return joined, body
	}

	var blocks []string
	doc.Find("div").Each(func(_ int, d *goquery.Selection) {
		t := CleanHTMLText(d.Text())
		if n := utf8.RuneCountInString(t); n >= 50 && n <= 2000 {
			blocks = append(blocks, t)
		}
	})
	if joined := strings.Join(blocks, "\n\n"); utf8.RuneCountInString(joined) >= minContentLength {
		return joined, body
	}
	return "", nil
}

func (e *HTMLExtractor) extractTitle(doc *goquery.Document) string {
	if t := CleanHTMLText(doc.Find("title").First().Text()); t != "" {
		return t
	}
	if og, ok := doc.Find(`meta[property="og:title"]`).First().Attr("content"); ok {
		if t := CleanHTMLText(og); t != "" {
			return t
		}
	}
	return CleanHTMLText(doc.Find("h1").First().Text())
}

// extractImages collects up to maxImages content images with absolute URLs
// and the text around each one so the summary can reference them.
func (e *HTMLExtractor) extractImages(scope *goquery.Selection, pageURL *url.URL) []models.ImageRef {
	if scope == nil {
		return nil
	}
	var images []models.ImageRef
	scope.Find("img").EachWithBreak(func(_ int, img *goquery.Selection) bool {
		if len(images) >= maxImages {
			return false
		}
		src, ok := img.Attr("src")
		if !ok || src == "" || strings.HasPrefix(src, "data:") {
			if lazy, lok := img.Attr("data-src"); lok && lazy != "" {
				src = lazy
			} else {
				return true
			}
		}
		abs := absolutize(pageURL, src)
		if abs == "" {
			return true
		}

		ref := models.ImageRef{AbsoluteURL: abs}
		ref.AltText, _ = img.Attr("alt")
		ref.TitleText, _ = img.Attr("title")
		if fig := img.Closest("figure"); fig.Length() > 0 {
			ref.CaptionText = CleanHTMLText(fig.Find("figcaption").First().Text())
		}
		if parent := img.Parent(); parent.Length() > 0 {
			ctxText := CleanHTMLText(parent.Text())
			if runes := []rune(ctxText); len(runes) > imageContextLen {
				ctxText = string(runes[:imageContextLen])
			}
			ref.Context = ctxText
		}
		images = append(images, ref)
		return true
	})
	return images
}

func absolutize(base *url.URL, src string) string {
	ref, err := url.Parse(strings.TrimSpace(src))
	if err != nil {
		return ""
	}
	abs := base.ResolveReference(ref)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return ""
	}
	return abs.String()
}
