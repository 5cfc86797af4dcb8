package extractor

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/streamwisdom/streamwisdom-api/internal/models"
)

// antiBotMarkers appear in challenge pages served in place of the PDF.
// Only the first kilobyte is checked; a real PDF never starts with HTML.
var antiBotMarkers = []string{
	"Just a moment...",
	"Enable JavaScript and cookies",
	"cf-mitigated",
	"cloudflare",
}

const (
	antiBotScanLen  = 1000
	minPDFTextChars = 100
)

// pdfURLPatterns recognize direct PDF links beyond the .pdf suffix.
var pdfURLPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\.pdf(?:[?#]|$)`),
	regexp.MustCompile(`(?i)arxiv\.org/pdf/`),
	regexp.MustCompile(`(?i)[?&](?:format|type)=pdf`),
	regexp.MustCompile(`(?i)/pdf(?:download)?/`),
	regexp.MustCompile(`(?i)/stamp/`),
	regexp.MustCompile(`(?i)/content/pdf/`),
	regexp.MustCompile(`(?i)openreview\.net/pdf`),
}

// PDFExtractor downloads a PDF into memory and recovers its text layer.
type PDFExtractor struct {
	maxSize int64
	timeout time.Duration
	logger  *slog.Logger
}

func NewPDFExtractor(maxSize int64, timeout time.Duration, logger *slog.Logger) *PDFExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &PDFExtractor{maxSize: maxSize, timeout: timeout, logger: logger}
}

// IsPDFURL reports whether rawURL points at a PDF without fetching it.
func IsPDFURL(rawURL string) bool {
	for _, p := range pdfURLPatterns {
		if p.MatchString(rawURL) {
			return true
		}
	}
	return false
}

// OptimizeAcademicURL rewrites known landing-page URLs to their direct PDF
// form. Unrecognized URLs pass through unchanged.
func OptimizeAcademicURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	host := strings.ToLower(u.Hostname())
	switch {
	case (host == "arxiv.org" || host == "export.arxiv.org") && strings.HasPrefix(u.Path, "/abs/"):
		u.Path = "/pdf" + strings.TrimPrefix(u.Path, "/abs")
		return u.String()
	case host == "openreview.net" && u.Path == "/forum":
		u.Path = "/pdf"
		return u.String()
	}
	return rawURL
}

// Extract downloads and parses the PDF at rawURL.
func (e *PDFExtractor) Extract(ctx context.Context, rawURL string) (*models.ExtractedContent, error) {
	data, err := e.download(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	conf := model.NewDefaultConfiguration()
	pdfCtx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), conf)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "encrypt") {
			return nil, &ExtractionError{Kind: KindEncrypted, URL: rawURL, Message: "PDF文件已加密，无法提取内容", Err: err}
		}
		return nil, &ExtractionError{Kind: KindInvalidFormat, URL: rawURL, Message: "PDF文件解析失败，文件可能已损坏", Err: err}
	}

	var pages []string
	for pageNr := 1; pageNr <= pdfCtx.PageCount; pageNr++ {
		if text := extractPageText(pdfCtx, pageNr); text != "" {
			pages = append(pages, text)
		}
	}

	content := CleanPDFText(strings.Join(pages, "\n\n"))
	if len([]rune(content)) < minPDFTextChars {
		return nil, NewError(KindInsufficientText, rawURL,
			"PDF中未找到可提取的文本，可能是扫描版PDF，请尝试其他来源")
	}

	ec := &models.ExtractedContent{
		Content:     content,
		Title:       pdfTitle(pdfCtx, rawURL),
		SourceURL:   rawURL,
		ExtractedAt: time.Now().UTC(),
		PDFInfo: &models.DocumentMeta{
			PageCount: pdfCtx.PageCount,
			Author:    pdfCtx.Author,
			Subject:   pdfCtx.Subject,
			Keywords:  pdfCtx.Keywords,
			Producer:  pdfCtx.Producer,
		},
	}
	e.logger.Debug("pdf extracted",
		"url", rawURL, "pages", pdfCtx.PageCount, "chars", len(content))
	return ec, nil
}

// download fetches the PDF body, enforcing the size cap both on the
// declared Content-Length and on the actual bytes read.
func (e *PDFExtractor) download(ctx context.Context, rawURL string) ([]byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, NewError(KindInvalidFormat, rawURL, "URL格式无效")
	}
	applyPDFHeaders(req, 0)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, classifyTransportError(rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(rawURL, resp.StatusCode)
	}
	if resp.ContentLength > e.maxSize {
		return nil, NewError(KindTooLarge, rawURL,
			"PDF文件过大 (%.1fMB)，最大支持%dMB", float64(resp.ContentLength)/(1<<20), e.maxSize/(1<<20))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, e.maxSize+1))
	if err != nil {
		return nil, classifyTransportError(rawURL, err)
	}
	if int64(len(data)) > e.maxSize {
		return nil, NewError(KindTooLarge, rawURL, "PDF文件过大，最大支持%dMB", e.maxSize/(1<<20))
	}

	head := data
	if len(head) > antiBotScanLen {
		head = head[:antiBotScanLen]
	}
	for _, marker := range antiBotMarkers {
		if bytes.Contains(head, []byte(marker)) {
			return nil, NewError(KindAntiBot, rawURL, "目标网站启用了反爬虫保护，无法下载PDF")
		}
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		return nil, NewError(KindInvalidFormat, rawURL, "下载的文件不是有效的PDF格式")
	}
	return data, nil
}

func extractPageText(ctx *model.Context, pageNr int) string {
	r, err := pdfcpu.ExtractPageContent(ctx, pageNr)
	if err != nil {
		return ""
	}
	data, err := io.ReadAll(r)
	if err != nil || len(data) == 0 {
		return ""
	}
	return parseContentStream(data)
}

var pdfStringRe = regexp.MustCompile(`\(((?:[^()\\]|\\.)*)\)`)

// parseContentStream walks text operators in a page content stream. Text
// show operators append to the current line; positioning operators with a
// vertical move start a new one, a purely horizontal move just separates
// words.
func parseContentStream(data []byte) string {
	var sb strings.Builder

	appendStrings := func(line []byte) {
		for _, m := range pdfStringRe.FindAllSubmatch(line, -1) {
			if text := decodePDFString(m[1]); text != "" {
				sb.WriteString(text)
			}
		}
	}

	for _, line := range bytes.Split(data, []byte{'\n'}) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		switch {
		case bytes.HasSuffix(line, []byte("Tj")):
			appendStrings(line)
		case bytes.HasSuffix(line, []byte("TJ")):
			appendStrings(line)
		case bytes.HasSuffix(line, []byte("'")) && bytes.Contains(line, []byte("(")):
			sb.WriteByte('\n')
			appendStrings(line)
		case bytes.HasSuffix(line, []byte("Td")) || bytes.HasSuffix(line, []byte("TD")):
			if verticalMove(line) {
				sb.WriteByte('\n')
			} else if sb.Len() > 0 {
				sb.WriteByte(' ')
			}
		case bytes.Equal(line, []byte("T*")):
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// verticalMove reports whether a Td/TD operator carries a non-zero y
// displacement, meaning the text cursor dropped to another line.
func verticalMove(line []byte) bool {
	fields := bytes.Fields(line)
	if len(fields) < 3 {
		return false
	}
	y, err := strconv.ParseFloat(string(fields[len(fields)-2]), 64)
	if err != nil {
		return false
	}
	return y != 0
}

// decodePDFString resolves backslash escapes in a PDF string literal,
// including up-to-three-digit octal codes.
func decodePDFString(raw []byte) string {
	var sb strings.Builder
	for i := 0; i < len(raw); i++ {
		if raw[i] != '\\' || i+1 >= len(raw) {
			sb.WriteByte(raw[i])
			continue
		}
		i++
		switch raw[i] {
		case 'n':
			sb.WriteByte('\n')
		case 'r':
			sb.WriteByte('\r')
		case 't':
			sb.WriteByte('\t')
		case '\\', '(', ')':
			sb.WriteByte(raw[i])
		default:
			if raw[i] >= '0' && raw[i] <= '7' {
				val := int(raw[i] - '0')
				for d := 0; d < 2 && i+1 < len(raw) && raw[i+1] >= '0' && raw[i+1] <= '7'; d++ {
					i++
					val = val*8 + int(raw[i]-'0')
				}
				sb.WriteByte(byte(val))
			} else {
				sb.WriteByte(raw[i])
			}
		}
	}
	return sb.String()
}

// pdfTitle prefers the document info title, then a readable form of the
// URL's file name.
func pdfTitle(ctx *model.Context, rawURL string) string {
	if t := strings.TrimSpace(ctx.Title); t != "" {
		return t
	}
	return titleFromURL(rawURL)
}

func titleFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "PDF文档"
	}
	name := strings.TrimSuffix(path.Base(u.Path), ".pdf")
	name = strings.NewReplacer("-", " ", "_", " ", "%20", " ").Replace(name)
	name = strings.TrimSpace(name)
	if name == "" || name == "/" || name == "." {
		return "PDF文档"
	}
	return titleCase(name)
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
