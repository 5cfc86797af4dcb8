package extractor

import (
	"regexp"
	"strings"
)

var (
	horizontalWS  = regexp.MustCompile(`[ \t\f\v\x{00a0}]+`)
	spacedNewline = regexp.MustCompile(` ?\n ?`)
	manyNewlines  = regexp.MustCompile(`\n{3,}`)
	// Whole lines that are nothing but a page marker, then leftover inline
	// markers PDF text layers scatter mid-paragraph.
	pageNumberLine = regexp.MustCompile(`(?m)^[ \t]*(?:(?:Page +)?\d{1,4}(?: +of +\d{1,4})?|第[ \t]*\d{1,4}[ \t]*页)[ \t]*$\n?`)
	inlinePageMark = regexp.MustCompile(`第[ \t]*\d{1,4}[ \t]*页|Page[ \t]*\d{1,4}`)
	hyphenWrap     = regexp.MustCompile(`(\p{L})-\n(\p{L})`)
	punctRun       = regexp.MustCompile(`\.{3,}|-{3,}|_{3,}|\*{3,}|={3,}|~{3,}`)
)

// CleanHTMLText normalizes whitespace in text pulled out of a DOM. Runs of
// spaces collapse to one, blank-line runs collapse to a single blank line.
// Idempotent.
func CleanHTMLText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = horizontalWS.ReplaceAllString(s, " ")
	s = spacedNewline.ReplaceAllString(s, "\n")
	s = manyNewlines.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// CleanPDFText normalizes whitespace in text recovered from PDF content
// streams and strips common layout artifacts: page-number lines and inline
// page markers ("Page N", "第N页"), hyphenated line wraps, and decorative
// punctuation runs. Idempotent.
func CleanPDFText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = pageNumberLine.ReplaceAllString(s, "")
	s = inlinePageMark.ReplaceAllString(s, "")
	s = horizontalWS.ReplaceAllString(s, " ")
	// Each merge consumes the trailing letter, so chained wraps need
	// another pass to reach a fixpoint.
	for {
		merged := hyphenWrap.ReplaceAllString(s, "$1$2")
		if merged == s {
			break
		}
		s = merged
	}
	s = spacedNewline.ReplaceAllString(s, "\n")
	s = manyNewlines.ReplaceAllString(s, "\n\n")
	s = punctRun.ReplaceAllStringFunc(s, func(run string) string {
		return run[:3]
	})
	return strings.TrimSpace(s)
}
