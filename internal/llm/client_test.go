package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/devBarbar/smart-study-notes-sub002/internal/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

func newTestClient(t *testing.T, baseURL string, opts ...Option) Client {
	t.Helper()
	t.Setenv("LLM_API_KEY", "test-key")
	t.Setenv("LLM_BASE_URL", baseURL)
	t.Setenv("LLM_MODEL", "gpt-4o-mini")
	t.Setenv("LLM_EMBED_MODEL", "text-embedding-3-small")
	t.Setenv("LLM_MAX_RETRIES", "0")
	c, err := NewClient(testLogger(t), opts...)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	t.Setenv("LLM_API_KEY", "")
	_, err := NewClient(testLogger(t))
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
	if cfgErr.Missing != "LLM_API_KEY" {
		t.Fatalf("unexpected missing field: %q", cfgErr.Missing)
	}
}

func TestGenerateDecodesChoiceAndUsage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("missing auth header, got %q", got)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"model": "gpt-4o-mini",
			"choices": []map[string]any{
				{"message": map[string]any{"content": "hello there"}},
			},
			"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
		})
	}))
	defer srv.Close()

	var records []CallRecord
	c := newTestClient(t, srv.URL, WithRecorder(func(_ context.Context, rec CallRecord) {
		records = append(records, rec)
	}))

	res, err := c.Generate(context.Background(), Prompt{System: "sys", User: "hi"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if res.Text != "hello there" {
		t.Fatalf("unexpected text %q", res.Text)
	}
	if res.Usage == nil || res.Usage.TotalTokens != 15 {
		t.Fatalf("usage not decoded: %+v", res.Usage)
	}
	if res.Cost == nil || res.Cost.TotalUsd <= 0 {
		t.Fatalf("cost not derived: %+v", res.Cost)
	}
	if len(records) != 1 || !records[0].Success || records[0].CallType != "generate" {
		t.Fatalf("recorder not invoked correctly: %+v", records)
	}
}

func TestGenerateUpstreamErrorCarriesStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "bad request"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	_, err := c.Generate(context.Background(), Prompt{User: "hi"})
	var upErr *UpstreamError
	if !errors.As(err, &upErr) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if upErr.StatusCode != http.StatusBadRequest {
		t.Fatalf("unexpected status %d", upErr.StatusCode)
	}
}

func sseWrite(t *testing.T, w http.ResponseWriter, payload string) {
	t.Helper()
	if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
		t.Errorf("write: %v", err)
	}
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

func TestGenerateStreamAssemblesDeltas(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req["stream"] != true {
			t.Errorf("stream flag not set: %v", req["stream"])
		}
		w.Header().Set("Content-Type", "text/event-stream")
		sseWrite(t, w, `{"model":"gpt-4o-mini","choices":[{"delta":{"content":"Hel"}}]}`)
		sseWrite(t, w, `{"choices":[{"delta":{"content":"lo"}}]}`)
		sseWrite(t, w, `{"choices":[{"delta":{"content":" world"}}]}`)
		sseWrite(t, w, `{"choices":[],"usage":{"prompt_tokens":4,"completion_tokens":3,"total_tokens":7}}`)
		sseWrite(t, w, "[DONE]")
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	stream, err := c.GenerateStream(context.Background(), []Message{{Role: "user", Content: "hi"}})
	if err != nil {
		t.Fatalf("stream: %v", err)
	}

	var got []string
	for d := range stream.Deltas() {
		got = append(got, d)
	}
	res, err := stream.Result()
	if err != nil {
		t.Fatalf("result: %v", err)
	}
	if res.Text != "Hello world" {
		t.Fatalf("assembled text %q", res.Text)
	}
	if len(got) != 3 || got[0] != "Hel" || got[2] != " world" {
		t.Fatalf("deltas out of order: %v", got)
	}
	if res.Usage == nil || res.Usage.TotalTokens != 7 {
		t.Fatalf("usage not captured: %+v", res.Usage)
	}
	if res.Model != "gpt-4o-mini" {
		t.Fatalf("model not captured: %q", res.Model)
	}
}

func TestGenerateStreamCleanCloseWithoutSentinel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		sseWrite(t, w, `{"choices":[{"delta":{"content":"partial"}}]}`)
		// Connection closes with no [DONE] and no usage.
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	stream, err := c.GenerateStream(context.Background(), []Message{{Role: "user", Content: "hi"}})
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	for range stream.Deltas() {
	}
	res, err := stream.Result()
	if err != nil {
		t.Fatalf("transport close must end the stream cleanly: %v", err)
	}
	if res.Text != "partial" {
		t.Fatalf("text %q", res.Text)
	}
	if res.Usage != nil || res.Cost != nil {
		t.Fatalf("absent usage must stay nil: %+v", res)
	}
}

func TestGenerateStreamUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	_, err := c.GenerateStream(context.Background(), []Message{{Role: "user", Content: "hi"}})
	var upErr *UpstreamError
	if !errors.As(err, &upErr) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if upErr.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("unexpected status %d", upErr.StatusCode)
	}
}

func TestEmbedPreservesInputOrderAcrossBatches(t *testing.T) {
	var batchSizes []int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/embeddings" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req struct {
			Input []string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		batchSizes = append(batchSizes, len(req.Input))

		// Vectors returned in reverse; the index field is authoritative.
		data := make([]map[string]any, 0, len(req.Input))
		for i := len(req.Input) - 1; i >= 0; i-- {
			data = append(data, map[string]any{
				"index":     i,
				"embedding": []float64{float64(len(req.Input[i]))},
			})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"model": "text-embedding-3-small",
			"data":  data,
			"usage": map[string]any{"prompt_tokens": len(req.Input), "total_tokens": len(req.Input)},
		})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)

	texts := make([]string, 15)
	for i := range texts {
		// Length-i strings so each vector encodes its input's position.
		for j := 0; j <= i; j++ {
			texts[i] += "x"
		}
	}

	res, err := c.Embed(context.Background(), texts)
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if len(res.Embeddings) != 15 {
		t.Fatalf("expected 15 vectors, got %d", len(res.Embeddings))
	}
	for i, vec := range res.Embeddings {
		if len(vec) != 1 || vec[0] != float32(i+1) {
			t.Fatalf("vector %d out of order: %v", i, vec)
		}
	}
	if len(batchSizes) != 2 || batchSizes[0] != 12 || batchSizes[1] != 3 {
		t.Fatalf("unexpected batching: %v", batchSizes)
	}
	if res.Usage == nil || res.Usage.PromptTokens != 15 {
		t.Fatalf("usage not summed across batches: %+v", res.Usage)
	}
}

func TestEmbedAbortsOnBatchFailure(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls > 1 {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		var req struct {
			Input []string `json:"input"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		data := make([]map[string]any, len(req.Input))
		for i := range req.Input {
			data[i] = map[string]any{"index": i, "embedding": []float64{1}}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)

	texts := make([]string, 14)
	for i := range texts {
		texts[i] = "t"
	}
	res, err := c.Embed(context.Background(), texts)
	if err == nil {
		t.Fatalf("expected failure on second batch")
	}
	if res != nil {
		t.Fatalf("no partial results on failure, got %+v", res)
	}
}

func TestEmbedEmptyInput(t *testing.T) {
	c := newTestClient(t, "http://127.0.0.1:0")
	res, err := c.Embed(context.Background(), nil)
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if len(res.Embeddings) != 0 {
		t.Fatalf("expected no vectors, got %d", len(res.Embeddings))
	}
}
