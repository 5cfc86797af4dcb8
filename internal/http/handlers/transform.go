package handlers

import (
	"context"
	"log/slog"
	"net/url"

	"github.com/danielgtaylor/huma/v2"

	"github.com/streamwisdom/streamwisdom-api/internal/models"
	"github.com/streamwisdom/streamwisdom-api/internal/transform"
)

// TransformHandler serves the blocking and streaming transformation
// endpoints.
type TransformHandler struct {
	svc     *transform.Service
	baseURL string
	logger  *slog.Logger
}

// NewTransformHandler creates a transformation handler.
func NewTransformHandler(svc *transform.Service, baseURL string, logger *slog.Logger) *TransformHandler {
	return &TransformHandler{svc: svc, baseURL: baseURL, logger: logger}
}

// imageInfo is the client-safe slice of an extracted image. Source URLs
// stay server-side.
type imageInfo struct {
	Alt     string `json:"alt,omitempty"`
	Title   string `json:"title,omitempty"`
	Caption string `json:"caption,omitempty"`
}

func safeImages(images []models.ImageRef) []imageInfo {
	out := make([]imageInfo, 0, len(images))
	for _, img := range images {
		out = append(out, imageInfo{
			Alt:     img.AltText,
			Title:   img.TitleText,
			Caption: img.CaptionText,
		})
	}
	return out
}

// TransformInput represents a transformation request.
type TransformInput struct {
	Body struct {
		URL        string `json:"url" doc:"URL of the page or PDF to transform"`
		Complexity string `json:"complexity,omitempty" enum:"beginner,intermediate" default:"beginner" doc:"Target audience level"`
	}
}

// TransformOutput represents a finished transformation.
type TransformOutput struct {
	Body struct {
		Success           bool        `json:"success"`
		Result            string      `json:"result"`
		Title             string      `json:"title"`
		OriginalLength    int         `json:"originalLength"`
		TransformedLength int         `json:"transformedLength"`
		ImageCount        int         `json:"imageCount"`
		Images            []imageInfo `json:"images"`
		Model             string      `json:"model"`
		UUID              string      `json:"uuid"`
		ShareURL          string      `json:"shareUrl"`
		Warning           string      `json:"warning,omitempty"`
	}
}

// Transform runs the full pipeline and returns the finished script.
func (h *TransformHandler) Transform(ctx context.Context, input *TransformInput) (*TransformOutput, error) {
	req, err := buildRequest(input.Body.URL, input.Body.Complexity)
	if err != nil {
		return nil, err
	}

	res, err := h.svc.Transform(ctx, req, transform.Callbacks{})
	if err != nil {
		h.logger.Error("transform failed", "url", req.URL, "error", err)
		return nil, pipelineError(err)
	}

	out := &TransformOutput{}
	out.Body.Success = true
	out.Body.Result = res.Result
	out.Body.Title = res.Title
	out.Body.OriginalLength = res.OriginalLength
	out.Body.TransformedLength = res.TransformedLength
	out.Body.ImageCount = res.ImageCount
	out.Body.Images = safeImages(res.Images)
	out.Body.Model = res.Model
	out.Body.UUID = res.UUID
	out.Body.ShareURL = h.shareURL(res.UUID)
	out.Body.Warning = res.Warning
	return out, nil
}

func (h *TransformHandler) shareURL(uuid string) string {
	return h.baseURL + "/share/" + uuid
}

// buildRequest validates the request body and applies the complexity
// default.
func buildRequest(rawURL, complexity string) (transform.Request, error) {
	if rawURL == "" {
		return transform.Request{}, huma.Error400BadRequest("请提供URL地址")
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return transform.Request{}, huma.Error400BadRequest("无效的URL格式")
	}

	level := models.ComplexityLevel(complexity)
	if level == "" {
		level = models.ComplexityBeginner
	}
	return transform.Request{URL: rawURL, Complexity: level}, nil
}
