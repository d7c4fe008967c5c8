// Package llm is the gateway to the generation backend: whole-response
// generation, delta streaming, and batched embeddings over an
// OpenAI-compatible JSON HTTP API, with usage/cost accounting attached
// to every call.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/devBarbar/smart-study-notes-sub002/internal/httpx"
	"github.com/devBarbar/smart-study-notes-sub002/internal/logger"
	"github.com/devBarbar/smart-study-notes-sub002/internal/utils"
)

const embedBatchSize = 12

// Message is one turn of a chat-style prompt.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ImageInput references an inline image for multimodal prompts, either
// an https URL or a data URI.
type ImageInput struct {
	ImageURL string
	Detail   string
}

// Prompt is the input to Generate.
type Prompt struct {
	System string
	User   string
	Images []ImageInput
}

// Result is the terminal shape of both Generate and a drained stream.
// Usage and Cost are nil when the provider sent no accounting.
type Result struct {
	Text  string
	Usage *Usage
	Model string
	Cost  *Cost
}

// EmbedResult carries one vector per input, in input order.
type EmbedResult struct {
	Embeddings [][]float32
	Usage      *Usage
	Model      string
	Cost       *Cost
}

// CallRecord is handed to the optional recorder after every call for
// usage-log persistence. Recording is best-effort and never affects the
// call outcome.
type CallRecord struct {
	CallType string
	Model    string
	Success  bool
	Error    string
	Usage    *Usage
	Cost     *Cost
}

type Recorder func(ctx context.Context, rec CallRecord)

type Client interface {
	Generate(ctx context.Context, prompt Prompt) (*Result, error)
	// GenerateStream returns a live Stream of text deltas. The stream is
	// finite and non-restartable; cancel the context to abandon it.
	GenerateStream(ctx context.Context, messages []Message) (*Stream, error)
	Embed(ctx context.Context, texts []string) (*EmbedResult, error)
}

type client struct {
	log        *logger.Logger
	baseURL    string
	apiKey     string
	model      string
	embedModel string
	httpClient *http.Client
	maxRetries int
	record     Recorder
}

type Option func(*client)

// WithRecorder attaches a usage-log sink.
func WithRecorder(r Recorder) Option {
	return func(c *client) { c.record = r }
}

func NewClient(log *logger.Logger, opts ...Option) (Client, error) {
	apiKey := strings.TrimSpace(utils.GetEnv("LLM_API_KEY", "", log))
	if apiKey == "" {
		return nil, &ConfigurationError{Missing: "LLM_API_KEY"}
	}

	baseURL := strings.TrimRight(utils.GetEnv("LLM_BASE_URL", "https://api.openai.com", log), "/")
	model := utils.GetEnv("LLM_MODEL", "gpt-4o-mini", log)
	embedModel := utils.GetEnv("LLM_EMBED_MODEL", "text-embedding-3-small", log)
	timeoutSec := utils.GetEnvAsInt("LLM_TIMEOUT_SECONDS", 90, log)
	maxRetries := utils.GetEnvAsInt("LLM_MAX_RETRIES", 3, log)

	c := &client{
		log:        log.With("service", "LLMClient"),
		baseURL:    baseURL,
		apiKey:     apiKey,
		model:      model,
		embedModel: embedModel,
		httpClient: &http.Client{Timeout: time.Duration(timeoutSec) * time.Second},
		maxRetries: maxRetries,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *client) doOnce(ctx context.Context, path string, body any) (*http.Response, []byte, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, wrapTimeout(ctx, err)
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, nil, wrapTimeout(ctx, readErr)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, raw, &UpstreamError{StatusCode: resp.StatusCode, Status: resp.Status, Body: string(raw)}
	}
	return resp, raw, nil
}

func (c *client) do(ctx context.Context, path string, body, out any) error {
	backoff := time.Second
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return wrapTimeout(ctx, ctx.Err())
		}
		resp, raw, err := c.doOnce(ctx, path, body)
		if err == nil {
			if out == nil {
				return nil
			}
			if uErr := json.Unmarshal(raw, out); uErr != nil {
				return fmt.Errorf("llm decode: %w; raw=%s", uErr, string(raw))
			}
			return nil
		}
		if !httpx.IsRetryableError(err) || attempt == c.maxRetries {
			return err
		}
		sleepFor := httpx.JitterSleep(httpx.RetryAfterDuration(resp, backoff, 10*time.Second))
		c.log.Warn("LLM request retrying",
			"path", path,
			"attempt", attempt+1,
			"max_retries", c.maxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)
		time.Sleep(sleepFor)
		backoff *= 2
	}
	return fmt.Errorf("unreachable retry loop")
}

func (c *client) emit(ctx context.Context, rec CallRecord) {
	if c.record == nil {
		return
	}
	c.record(ctx, rec)
}

// ---- chat completions wire shapes ----

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []wireMessage `json:"messages"`
	Stream   bool          `json:"stream,omitempty"`
}

type wireMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage *Usage `json:"usage"`
	Model string `json:"model"`
}

func (c *client) Generate(ctx context.Context, prompt Prompt) (*Result, error) {
	messages := []wireMessage{}
	if strings.TrimSpace(prompt.System) != "" {
		messages = append(messages, wireMessage{Role: "system", Content: prompt.System})
	}

	if len(prompt.Images) == 0 {
		messages = append(messages, wireMessage{Role: "user", Content: prompt.User})
	} else {
		content := []map[string]any{{"type": "text", "text": prompt.User}}
		for _, img := range prompt.Images {
			u := strings.TrimSpace(img.ImageURL)
			if u == "" {
				continue
			}
			part := map[string]any{"type": "image_url", "image_url": map[string]any{"url": u}}
			if d := strings.TrimSpace(img.Detail); d != "" {
				part["image_url"].(map[string]any)["detail"] = d
			}
			content = append(content, part)
		}
		messages = append(messages, wireMessage{Role: "user", Content: content})
	}

	var resp chatResponse
	if err := c.do(ctx, "/v1/chat/completions", chatRequest{Model: c.model, Messages: messages}, &resp); err != nil {
		c.emit(ctx, CallRecord{CallType: "generate", Model: c.model, Error: err.Error()})
		return nil, err
	}
	if len(resp.Choices) == 0 {
		err := fmt.Errorf("llm response had no choices")
		c.emit(ctx, CallRecord{CallType: "generate", Model: c.model, Error: err.Error()})
		return nil, err
	}

	model := resp.Model
	if model == "" {
		model = c.model
	}
	result := &Result{
		Text:  resp.Choices[0].Message.Content,
		Usage: resp.Usage,
		Model: model,
		Cost:  costFor(model, resp.Usage),
	}
	c.emit(ctx, CallRecord{CallType: "generate", Model: model, Success: true, Usage: result.Usage, Cost: result.Cost})
	return result, nil
}

// ---- embeddings ----

type embeddingsRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingsResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Usage *Usage `json:"usage"`
	Model string `json:"model"`
}

// Embed sends inputs in fixed-size batches and concatenates the vectors
// in input order. A failure on any batch aborts the whole call; no
// partial embeddings are returned.
func (c *client) Embed(ctx context.Context, texts []string) (*EmbedResult, error) {
	if len(texts) == 0 {
		return &EmbedResult{Embeddings: [][]float32{}, Model: c.embedModel}, nil
	}

	clean := make([]string, len(texts))
	for i := range texts {
		s := strings.TrimSpace(texts[i])
		if s == "" {
			s = " "
		}
		clean[i] = s
	}

	out := make([][]float32, 0, len(clean))
	total := Usage{}
	sawUsage := false

	for start := 0; start < len(clean); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(clean) {
			end = len(clean)
		}
		batch := clean[start:end]

		var resp embeddingsResponse
		if err := c.do(ctx, "/v1/embeddings", embeddingsRequest{Model: c.embedModel, Input: batch}, &resp); err != nil {
			c.emit(ctx, CallRecord{CallType: "embed", Model: c.embedModel, Error: err.Error()})
			return nil, err
		}
		if len(resp.Data) != len(batch) {
			err := fmt.Errorf("llm embeddings: requested %d vectors, got %d", len(batch), len(resp.Data))
			c.emit(ctx, CallRecord{CallType: "embed", Model: c.embedModel, Error: err.Error()})
			return nil, err
		}

		vectors := make([][]float32, len(batch))
		for _, d := range resp.Data {
			vec := make([]float32, len(d.Embedding))
			for i, f := range d.Embedding {
				vec[i] = float32(f)
			}
			if d.Index >= 0 && d.Index < len(vectors) {
				vectors[d.Index] = vec
			}
		}
		out = append(out, vectors...)

		if resp.Usage != nil {
			sawUsage = true
			total.PromptTokens += resp.Usage.PromptTokens
			total.CompletionTokens += resp.Usage.CompletionTokens
			total.TotalTokens += resp.Usage.TotalTokens
		}
	}

	result := &EmbedResult{Embeddings: out, Model: c.embedModel}
	if sawUsage {
		result.Usage = &total
		result.Cost = costFor(c.embedModel, &total)
	}
	c.emit(ctx, CallRecord{CallType: "embed", Model: c.embedModel, Success: true, Usage: result.Usage, Cost: result.Cost})
	return result, nil
}
