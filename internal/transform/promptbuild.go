package transform

import (
	"fmt"
	"strings"

	"github.com/streamwisdom/streamwisdom-api/internal/models"
)

// reduceThreshold is the raw length above which the document is sampled
// instead of sent whole.
const reduceThreshold = 60000

const targetLengthClause = "讲解稿的目标长度为1000到2000字。"

// complexityClause tailors the register of the output.
func complexityClause(level models.ComplexityLevel) string {
	switch level {
	case models.ComplexityBeginner:
		return "面向初学者：使用简单直白的语言，先解释概念再展开细节，避免未经解释的专业术语。"
	case models.ComplexityIntermediate:
		return "面向有一定基础的听众：可以使用专业术语，但首次出现时给出简短解释，可以引用行业惯例。"
	default:
		return ""
	}
}

// imageBlock describes each image so the model can reference them inline
// with markdown image syntax.
func imageBlock(images []models.ImageRef) string {
	if len(images) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("原文包含以下图片。在讲解中与图片相关的位置，使用markdown格式 ![描述](链接) 引用对应图片：\n")
	for i, img := range images {
		fmt.Fprintf(&b, "图片%d: 链接=%s", i+1, img.AbsoluteURL)
		if img.AltText != "" {
			fmt.Fprintf(&b, " 描述=%s", img.AltText)
		}
		if img.TitleText != "" {
			fmt.Fprintf(&b, " 标题=%s", img.TitleText)
		}
		if img.CaptionText != "" {
			fmt.Fprintf(&b, " 图注=%s", img.CaptionText)
		}
		if img.Context != "" {
			fmt.Fprintf(&b, " 上下文=%s", img.Context)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// reduceContent samples five windows across an overlong document so the
// prompt preserves its overall structure instead of only the opening.
func reduceContent(text string) string {
	runes := []rune(text)
	n := len(runes)
	if n <= reduceThreshold {
		return text
	}

	window := func(offset, size int) string {
		end := offset + size
		if end > n {
			end = n
		}
		return string(runes[offset:end])
	}

	parts := []string{
		window(0, 18000),
		window(n*25/100, 12000),
		window(n*50/100, 12000),
		window(n*75/100, 8000),
		string(runes[n-10000:]),
	}
	return strings.Join(parts, "\n\n")
}

// buildUserPrompt assembles the instruction sections sent alongside the
// base prompt.
func buildUserPrompt(content *models.ExtractedContent, complexity models.ComplexityLevel) string {
	var sections []string
	if c := complexityClause(complexity); c != "" {
		sections = append(sections, c)
	}
	if ib := imageBlock(content.Images); ib != "" {
		sections = append(sections, ib)
	}
	sections = append(sections, targetLengthClause)
	if content.Title != "" {
		sections = append(sections, "标题: "+content.Title)
	}
	sections = append(sections, "内容:\n"+reduceContent(content.Content))
	return strings.Join(sections, "\n\n")
}
