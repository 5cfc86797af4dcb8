package llm

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
)

// doneSentinel terminates a provider SSE stream.
const doneSentinel = "[DONE]"

// Complete performs a blocking chat call against p and returns the trimmed
// completion text.
func (m *Manager) Complete(ctx context.Context, p Profile, key string, messages []Message) (string, error) {
	resp, err := m.post(ctx, p, key, messages, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", m.transportError(p, err)
	}
	text, err := ExtractText(p, body)
	if err != nil {
		return "", &APIError{Model: p.ID, Provider: p.Provider, Kind: KindBadResponse, Message: err.Error(), Err: err}
	}
	return strings.TrimSpace(text), nil
}

// Stream performs a streaming chat call, invoking onChunk for every text
// increment before it is accumulated. The full accumulated text is
// returned on success. An onChunk error aborts the stream.
func (m *Manager) Stream(ctx context.Context, p Profile, key string, messages []Message, onChunk func(string) error) (string, error) {
	resp, err := m.post(ctx, p, key, messages, true)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var full strings.Builder
	sawDone := false

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}
		payload, ok := strings.CutPrefix(line, "data:")
		if !ok {
			continue
		}
		payload = strings.TrimSpace(payload)
		if payload == doneSentinel {
			sawDone = true
			break
		}

		delta, finished, err := extractDelta(p, []byte(payload))
		if err != nil {
			m.logger.Debug("skipping malformed stream line", "model", p.ID, "error", err)
			continue
		}
		if delta != "" {
			if err := onChunk(delta); err != nil {
				return "", err
			}
			full.WriteString(delta)
		}
		if finished {
			sawDone = true
			break
		}
	}

	if err := scanner.Err(); err != nil {
		if full.Len() > 0 {
			// The provider dropped the connection after sending real
			// content. Salvage what arrived.
			m.logger.Warn("stream ended abnormally, keeping partial output",
				"model", p.ID, "chars", full.Len(), "error", err)
			return strings.TrimSpace(full.String()), nil
		}
		return "", m.transportError(p, err)
	}
	if !sawDone && full.Len() == 0 {
		return "", &APIError{Model: p.ID, Provider: p.Provider, Kind: KindBadResponse,
			Message: "stream ended without content"}
	}
	return strings.TrimSpace(full.String()), nil
}

func (m *Manager) post(ctx context.Context, p Profile, key string, messages []Message, stream bool) (*http.Response, error) {
	if key == "" {
		return nil, fmt.Errorf("%w for model %s", ErrMissingAPIKey, p.ID)
	}
	body, err := BuildRequest(p, messages, stream)
	if err != nil {
		return nil, err
	}

	reqCtx := ctx
	var cancel context.CancelFunc
	if !stream {
		// Streaming calls outlive the dial timeout by design; only the
		// blocking path gets a hard deadline here.
		reqCtx, cancel = context.WithTimeout(ctx, m.timeout)
	}
	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, p.Endpoint, bytes.NewReader(body))
	if err != nil {
		if cancel != nil {
			cancel()
		}
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+key)
	if stream {
		req.Header.Set("Accept", "text/event-stream")
		if p.Format == FormatVendorEnvelope {
			req.Header.Set("X-DashScope-SSE", "enable")
		}
	}

	resp, err := m.client.Do(req)
	if err != nil {
		if cancel != nil {
			cancel()
		}
		return nil, m.transportError(p, err)
	}
	if cancel != nil {
		// Tie the deadline to the body so slow reads still time out.
		resp.Body = cancelReadCloser{resp.Body, cancel}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, m.statusError(p, resp.StatusCode, raw)
	}
	return resp, nil
}

type cancelReadCloser struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c cancelReadCloser) Close() error {
	c.cancel()
	return c.ReadCloser.Close()
}

func (m *Manager) statusError(p Profile, status int, raw []byte) error {
	msg := strings.TrimSpace(string(raw))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &APIError{Model: p.ID, Provider: p.Provider, StatusCode: status,
			Kind: KindInvalidKey, Message: "API密钥无效或已过期"}
	case status == http.StatusTooManyRequests:
		return &APIError{Model: p.ID, Provider: p.Provider, StatusCode: status,
			Kind: KindRateLimited, Message: "AI服务请求频率超限，请稍后再试"}
	default:
		return &APIError{Model: p.ID, Provider: p.Provider, StatusCode: status,
			Kind: KindUnavailable, Message: "AI服务暂时不可用: " + msg}
	}
}

func (m *Manager) transportError(p Profile, err error) error {
	var dnsErr *net.DNSError
	switch {
	case errors.Is(err, context.DeadlineExceeded) || os.IsTimeout(err):
		return &APIError{Model: p.ID, Provider: p.Provider, Kind: KindTimeout,
			Message: "AI服务响应超时", Err: err}
	case errors.As(err, &dnsErr), strings.Contains(err.Error(), "connection refused"):
		return &APIError{Model: p.ID, Provider: p.Provider, Kind: KindUnreachable,
			Message: "无法连接AI服务", Err: err}
	default:
		return &APIError{Model: p.ID, Provider: p.Provider, Kind: KindUnavailable,
			Message: fmt.Sprintf("AI服务调用失败: %v", err), Err: err}
	}
}
