package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"testing"
	"time"
)

var ollamaReq = GenerateRequest{Model: "llama3:latest", Messages: []Message{{Role: "user", Content: "hi"}}}

func TestOllamaGenerateSendsOptions(t *testing.T) {
	var got ollamaChatRequest
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			http.Error(w, "bad body", http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"message": map[string]any{"role": "assistant", "content": "[]"},
			"done":    true,
		})
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL, 2*time.Second, 1, 0, 0)
	req := ollamaReq
	req.Messages = []Message{{Role: "system", Content: "be terse"}, {Role: "user", Content: "chart this"}}
	req.MaxTokens = 64
	req.Temperature = 0.3
	resp, err := c.Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if resp.Text() != "[]" || resp.RequestID == "" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if got.Stream || len(got.Messages) != 2 || got.Messages[0].Role != "system" || got.Messages[1].Content != "chart this" {
		t.Fatalf("unexpected request: %+v", got)
	}
	if got.Options["num_predict"] != float64(64) || got.Options["temperature"] != 0.3 {
		t.Fatalf("unexpected options: %v", got.Options)
	}
}

func TestOllamaRetriesServerErrors(t *testing.T) {
	var hits int32
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(map[string]any{"error": "loading model"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"message": map[string]any{"content": "ok"}})
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL, 2*time.Second, 2, 10*time.Millisecond, 50*time.Millisecond)
	resp, err := c.Generate(context.Background(), ollamaReq)
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if n := atomic.LoadInt32(&hits); resp.Text() != "ok" || n != 2 {
		t.Fatalf("expected success on second attempt, got %q after %d hits", resp.Text(), n)
	}
}

func TestOllamaMissingModelIsNotRetried(t *testing.T) {
	var hits int32
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": "model 'llama3:latest' not found"})
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL, 2*time.Second, 3, 10*time.Millisecond, 50*time.Millisecond)
	_, err := c.Generate(context.Background(), ollamaReq)
	var missing *ModelNotFoundError
	if !errors.As(err, &missing) {
		t.Fatalf("expected ModelNotFoundError, got %v", err)
	}
	if missing.Message != "model 'llama3:latest' not found" {
		t.Fatalf("unexpected message %q", missing.Message)
	}
	if n := atomic.LoadInt32(&hits); n != 1 {
		t.Fatalf("expected one attempt, got %d", n)
	}
}

func TestOllamaUnreachable(t *testing.T) {
	srv := newIPv4Server(t, http.NotFoundHandler())
	host := srv.URL
	srv.Close()

	c := NewOllamaClient(host, time.Second, 1, 0, 0)
	_, err := c.Generate(context.Background(), ollamaReq)
	var unreach *UnreachableError
	if !errors.As(err, &unreach) || unreach.Host != host {
		t.Fatalf("expected UnreachableError for %s, got %v", host, err)
	}
}

func TestOllamaRejectsEmptyRequests(t *testing.T) {
	c := NewOllamaClient("http://localhost:11434", 2*time.Second, 1, 0, 0)
	_, err := c.Generate(context.Background(), GenerateRequest{Model: "llama3:latest"})
	if err == nil || err.Error() != "messages cannot be empty" {
		t.Fatalf("expected 'messages cannot be empty' error, got: %v", err)
	}
	err = c.GenerateStream(context.Background(), GenerateRequest{Messages: ollamaReq.Messages}, func(string) {})
	if err == nil || err.Error() != "model cannot be empty" {
		t.Fatalf("expected 'model cannot be empty' error, got: %v", err)
	}
}

func TestOllamaStreamReadsNDJSON(t *testing.T) {
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-ndjson")
		fmt.Fprintln(w, `{"message":{"content":"[{\"kind\":"},"done":false}`)
		fmt.Fprintln(w, `{"message":{"content":"\"bar\"}]"},"done":false}`)
		fmt.Fprintln(w, `{"message":{"content":""},"done":true}`)
		fmt.Fprintln(w, `{"message":{"content":"ignored"},"done":false}`)
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL, 2*time.Second, 1, 0, 0)
	var out string
	if err := c.GenerateStream(context.Background(), ollamaReq, func(d string) { out += d }); err != nil {
		t.Fatalf("GenerateStream error: %v", err)
	}
	if out != `[{"kind":"bar"}]` {
		t.Fatalf("unexpected stream accumulation: %q", out)
	}
}
