package models

// StreamEventType enumerates the SSE event kinds emitted during a streaming
// transformation.
type StreamEventType string

const (
	StreamEventInit         StreamEventType = "init"
	StreamEventProgress     StreamEventType = "progress"
	StreamEventContentChunk StreamEventType = "content_chunk"
	StreamEventComplete     StreamEventType = "complete"
	StreamEventError        StreamEventType = "error"
)

// StreamEvent is one event in the transform-stream SSE protocol. The stream
// is terminated by a literal `data: [DONE]` line after the complete event.
type StreamEvent struct {
	Type    StreamEventType `json:"type"`
	Stage   string          `json:"stage,omitempty"`
	Message string          `json:"message,omitempty"`
	Chunk   string          `json:"chunk,omitempty"`
	Error   string          `json:"error,omitempty"`
	Data    any             `json:"data,omitempty"`
}
