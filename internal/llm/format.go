package llm

import (
	"encoding/json"
	"fmt"
)

// Message is one turn of a chat request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type standardRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
	Stream      bool      `json:"stream"`
}

type vendorRequest struct {
	Model string `json:"model"`
	Input struct {
		Messages []Message `json:"messages"`
	} `json:"input"`
	Parameters vendorParameters `json:"parameters"`
}

type vendorParameters struct {
	MaxTokens         int     `json:"max_tokens"`
	Temperature       float64 `json:"temperature"`
	TopP              float64 `json:"top_p"`
	Stream            bool    `json:"stream,omitempty"`
	IncrementalOutput bool    `json:"incremental_output,omitempty"`
}

// BuildRequest serializes a chat request for p's wire format. stream also
// switches the vendor envelope to incremental output.
func BuildRequest(p Profile, messages []Message, stream bool) ([]byte, error) {
	switch p.Format {
	case FormatStandardChat:
		return json.Marshal(standardRequest{
			Model:       p.Model,
			Messages:    messages,
			MaxTokens:   p.MaxTokens,
			Temperature: p.Temperature,
			Stream:      stream,
		})
	case FormatVendorEnvelope:
		req := vendorRequest{Model: p.Model}
		req.Input.Messages = messages
		req.Parameters = vendorParameters{
			MaxTokens:         p.MaxTokens,
			Temperature:       p.Temperature,
			TopP:              0.8,
			Stream:            stream,
			IncrementalOutput: stream,
		}
		return json.Marshal(req)
	default:
		return nil, fmt.Errorf("unknown wire format %q", p.Format)
	}
}

type standardResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

type vendorResponse struct {
	Output struct {
		Text         string `json:"text"`
		FinishReason string `json:"finish_reason"`
	} `json:"output"`
}

// ExtractText pulls the full completion out of a blocking response body.
func ExtractText(p Profile, body []byte) (string, error) {
	switch p.Format {
	case FormatStandardChat:
		var resp standardResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return "", fmt.Errorf("decode response: %w", err)
		}
		if len(resp.Choices) == 0 {
			return "", fmt.Errorf("response carries no choices")
		}
		return resp.Choices[0].Message.Content, nil
	case FormatVendorEnvelope:
		var resp vendorResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return "", fmt.Errorf("decode response: %w", err)
		}
		return resp.Output.Text, nil
	default:
		return "", fmt.Errorf("unknown wire format %q", p.Format)
	}
}

// extractDelta pulls one streaming increment out of an SSE data payload.
// done reports that the provider signaled completion in-band.
func extractDelta(p Profile, payload []byte) (delta string, done bool, err error) {
	switch p.Format {
	case FormatStandardChat:
		var resp standardResponse
		if err := json.Unmarshal(payload, &resp); err != nil {
			return "", false, err
		}
		if len(resp.Choices) == 0 {
			return "", false, nil
		}
		c := resp.Choices[0]
		return c.Delta.Content, c.FinishReason == "stop", nil
	case FormatVendorEnvelope:
		var resp vendorResponse
		if err := json.Unmarshal(payload, &resp); err != nil {
			return "", false, err
		}
		return resp.Output.Text, resp.Output.FinishReason == "stop", nil
	default:
		return "", false, fmt.Errorf("unknown wire format %q", p.Format)
	}
}
