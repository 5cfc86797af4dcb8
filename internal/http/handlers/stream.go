package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/streamwisdom/streamwisdom-api/internal/models"
	"github.com/streamwisdom/streamwisdom-api/internal/transform"
)

// StreamTransform runs the pipeline with live SSE progress. Registered as a
// raw chi handler because huma buffers response bodies.
//
// Event script: init, then progress per stage, content_chunk per model
// delta, then either complete or error, then the literal [DONE] marker.
func (h *TransformHandler) StreamTransform(w http.ResponseWriter, r *http.Request) {
	var body struct {
		URL        string `json:"url"`
		Complexity string `json:"complexity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		jsonError(w, http.StatusBadRequest, "无效的请求格式")
		return
	}
	req, err := buildRequest(body.URL, body.Complexity)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // disable nginx buffering

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, `{"error":"streaming not supported"}`, http.StatusInternalServerError)
		return
	}

	// Model generation can easily outlive any server write deadline.
	rc := http.NewResponseController(w)
	_ = rc.SetWriteDeadline(time.Time{})

	sendEvent(w, flusher, models.StreamEvent{
		Type:    models.StreamEventInit,
		Message: "开始处理请求...",
	})

	res, err := h.svc.Transform(r.Context(), req, transform.Callbacks{
		OnProgress: func(stage, message string) {
			sendEvent(w, flusher, models.StreamEvent{
				Type:    models.StreamEventProgress,
				Stage:   stage,
				Message: message,
			})
		},
		OnChunk: func(delta string) error {
			if err := r.Context().Err(); err != nil {
				return err
			}
			sendEvent(w, flusher, models.StreamEvent{
				Type:  models.StreamEventContentChunk,
				Chunk: delta,
			})
			return nil
		},
	})
	if err != nil {
		if r.Context().Err() == nil {
			h.logger.Error("stream transform failed", "url", req.URL, "error", err)
			sendEvent(w, flusher, models.StreamEvent{
				Type:  models.StreamEventError,
				Error: err.Error(),
			})
			sendDone(w, flusher)
		}
		return
	}

	sendEvent(w, flusher, models.StreamEvent{
		Type:    models.StreamEventComplete,
		Message: "转化完成！",
		Data: map[string]any{
			"result":            res.Result,
			"title":             res.Title,
			"originalLength":    res.OriginalLength,
			"transformedLength": res.TransformedLength,
			"imageCount":        res.ImageCount,
			"images":            safeImages(res.Images),
			"model":             res.Model,
			"uuid":              res.UUID,
			"shareUrl":          h.shareURL(res.UUID),
		},
	})
	sendDone(w, flusher)
}

func sendEvent(w http.ResponseWriter, flusher http.Flusher, event models.StreamEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	_, _ = fmt.Fprintf(w, "data: %s\n\n", payload)
	flusher.Flush()
}

// sendDone terminates the stream with the literal end-of-stream marker
// clients key off.
func sendDone(w http.ResponseWriter, flusher http.Flusher) {
	_, _ = fmt.Fprintf(w, "data: [DONE]\n\n")
	flusher.Flush()
}

func jsonError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
