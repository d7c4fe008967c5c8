package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
)

// Stream is a lazy, finite, non-restartable sequence of text deltas.
// Consumers range over Deltas() and then call Result() for the
// assembled text plus whatever accounting the provider sent.
// Cancelling the request context abandons the stream; deltas already
// delivered remain valid.
type Stream struct {
	deltas chan string
	done   chan struct{}

	result *Result
	err    error
}

// Deltas yields incremental text fragments in arrival order. The
// channel is closed when the stream ends for any reason.
func (s *Stream) Deltas() <-chan string { return s.deltas }

// Result blocks until the stream has ended and returns the full
// assembled text. Usage and Cost are nil when the transport closed
// without sending usage; that is not an error.
func (s *Stream) Result() (*Result, error) {
	<-s.done
	return s.result, s.err
}

type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
	Usage *Usage `json:"usage"`
	Model string `json:"model"`
}

func (c *client) GenerateStream(ctx context.Context, messages []Message) (*Stream, error) {
	wire := make([]wireMessage, 0, len(messages))
	for _, m := range messages {
		wire = append(wire, wireMessage{Role: m.Role, Content: m.Content})
	}

	body := map[string]any{
		"model":          c.model,
		"messages":       wire,
		"stream":         true,
		"stream_options": map[string]any{"include_usage": true},
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, wrapTimeout(ctx, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		upErr := &UpstreamError{StatusCode: resp.StatusCode, Status: resp.Status, Body: string(raw)}
		c.emit(ctx, CallRecord{CallType: "stream", Model: c.model, Error: upErr.Error()})
		return nil, upErr
	}

	s := &Stream{
		deltas: make(chan string, 16),
		done:   make(chan struct{}),
	}
	go c.consume(ctx, resp.Body, s)
	return s, nil
}

// consume reads the line-delimited event protocol: each "data:" line is
// a JSON fragment carrying an incremental delta, terminated by the
// "[DONE]" sentinel. A transport close without the sentinel still ends
// the stream cleanly with whatever text arrived.
func (c *client) consume(ctx context.Context, body io.ReadCloser, s *Stream) {
	defer body.Close()

	var full strings.Builder
	var usage *Usage
	model := c.model

	finish := func(err error) {
		close(s.deltas)
		if err == nil {
			s.result = &Result{
				Text:  full.String(),
				Usage: usage,
				Model: model,
				Cost:  costFor(model, usage),
			}
			c.emit(ctx, CallRecord{CallType: "stream", Model: model, Success: true, Usage: usage, Cost: s.result.Cost})
		} else {
			s.err = err
			c.emit(ctx, CallRecord{CallType: "stream", Model: model, Error: err.Error()})
		}
		close(s.done)
	}

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "[DONE]" {
			finish(nil)
			return
		}

		var chunk streamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			continue
		}
		if chunk.Model != "" {
			model = chunk.Model
		}
		if chunk.Usage != nil {
			usage = chunk.Usage
		}
		for _, choice := range chunk.Choices {
			d := choice.Delta.Content
			if d == "" {
				continue
			}
			full.WriteString(d)
			select {
			case s.deltas <- d:
			case <-ctx.Done():
				finish(wrapTimeout(ctx, ctx.Err()))
				return
			}
		}
	}

	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		finish(err)
		return
	}
	if ctx.Err() != nil {
		finish(wrapTimeout(ctx, ctx.Err()))
		return
	}
	finish(nil)
}
