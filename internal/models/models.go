// Package models defines the domain models for the application.
package models

import (
	"time"
)

// ContentType classifies what kind of resource a URL points at.
type ContentType string

const (
	ContentTypePDF           ContentType = "pdf"
	ContentTypeHTML          ContentType = "html"
	ContentTypeVideo         ContentType = "video"
	ContentTypeCode          ContentType = "code"
	ContentTypeAcademic      ContentType = "academic"
	ContentTypeDocumentation ContentType = "documentation"
)

// ComplexityLevel controls the target reading level of a transformation.
type ComplexityLevel string

const (
	ComplexityBeginner     ComplexityLevel = "beginner"
	ComplexityIntermediate ComplexityLevel = "intermediate"
)

// ImageRef describes one image found inside the extracted content region.
// AbsoluteURL is always resolved against the source page URL by the
// extractor; consumers never see relative paths.
type ImageRef struct {
	AbsoluteURL string `json:"src"`
	AltText     string `json:"alt,omitempty"`
	TitleText   string `json:"title,omitempty"`
	CaptionText string `json:"caption,omitempty"`
	// Context holds up to 200 characters of the text surrounding the image.
	Context string `json:"context,omitempty"`
}

// DocumentMeta carries PDF document metadata when available.
type DocumentMeta struct {
	PageCount int    `json:"pages"`
	Author    string `json:"author,omitempty"`
	Subject   string `json:"subject,omitempty"`
	Keywords  string `json:"keywords,omitempty"`
	Producer  string `json:"producer,omitempty"`
}

// ExtractedContent is the normalized output of both extractors.
// Content under 50 characters is treated by callers as a terminal
// extraction failure.
type ExtractedContent struct {
	Content     string        `json:"content"`
	Images      []ImageRef    `json:"images"`
	ImageCount  int           `json:"imageCount"`
	Title       string        `json:"title"`
	SourceURL   string        `json:"url"`
	ExtractedAt time.Time     `json:"extractedAt"`
	PDFInfo     *DocumentMeta `json:"pdfInfo,omitempty"`
}

// ValidationResult is the verdict of the content validator. It is consumed
// synchronously by the orchestrator and never persisted.
type ValidationResult struct {
	IsValid bool   `json:"isValid"`
	Reason  string `json:"reason,omitempty"`
	Warning string `json:"warning,omitempty"`
}

// Transformation is a persisted history record of one completed
// transformation.
type Transformation struct {
	ID                 string    `json:"id"`
	UUID               string    `json:"uuid"`
	Title              string    `json:"title"`
	OriginalURL        string    `json:"original_url"` // normalized for de-duplication
	TransformedContent string    `json:"transformed_content"`
	Complexity         string    `json:"complexity"`
	Model              string    `json:"model"`
	ImageCount         int       `json:"image_count"`
	ImagesJSON         string    `json:"-"`
	OriginalLength     int       `json:"original_length"`
	TransformedLength  int       `json:"transformed_length"`
	CompressionRatio   float64   `json:"compression_ratio"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}
