package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"runtime"
	"testing"
	"time"
)

type groqCapturedRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func groqChunk(content string) string {
	return fmt.Sprintf(`{"id":"chatcmpl-test","object":"chat.completion.chunk","created":1234567890,"model":"llama-3.3-70b-versatile","choices":[{"index":0,"delta":{"content":%q},"finish_reason":null}]}`, content)
}

func TestGroqOpenStream(t *testing.T) {
	var captured groqCapturedRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}

		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, chunk := range []string{
			groqChunk("Hel"),
			groqChunk("lo!"),
			`{"id":"chatcmpl-test","object":"chat.completion.chunk","created":1234567890,"model":"llama-3.3-70b-versatile","choices":[{"index":0,"delta":{},"finish_reason":"stop"}]}`,
		} {
			fmt.Fprintf(w, "data: %s\n\n", chunk)
			flusher.Flush()
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
		flusher.Flush()
	}))
	defer server.Close()

	g, err := NewGroq(GroqConfig{APIKey: "gsk-test", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewGroq() error = %v", err)
	}

	history := []Message{
		{Role: RoleUser, Content: "hi"},
		{Role: RoleModel, Content: "hello"},
	}
	events, err := g.OpenStream(context.Background(), "llama-3.3-70b-versatile", history)
	if err != nil {
		t.Fatalf("OpenStream() error = %v", err)
	}

	full, streamErr := collect(t, events)
	if streamErr != nil {
		t.Fatalf("stream error = %v", streamErr)
	}
	if full != "Hello!" {
		t.Errorf("full = %q, want Hello!", full)
	}

	// Stored "model" role maps to the OpenAI-style assistant role.
	if len(captured.Messages) != 2 {
		t.Fatalf("messages = %d, want 2", len(captured.Messages))
	}
	if captured.Messages[0].Role != "user" {
		t.Errorf("messages[0].Role = %q, want user", captured.Messages[0].Role)
	}
	if captured.Messages[1].Role != "assistant" {
		t.Errorf("messages[1].Role = %q, want assistant", captured.Messages[1].Role)
	}
}

func TestGroqOpenStreamUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"model decommissioned"}}`, http.StatusBadRequest)
	}))
	defer server.Close()

	g, err := NewGroq(GroqConfig{APIKey: "gsk-test", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewGroq() error = %v", err)
	}

	events, err := g.OpenStream(context.Background(), "llama-3.3-70b-versatile", nil)
	if err != nil {
		t.Fatalf("OpenStream() error = %v", err)
	}
	if _, streamErr := collect(t, events); streamErr == nil {
		t.Fatal("expected stream error for upstream failure")
	}
}

func TestGroqOpenStreamAbandonedConsumer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for i := 0; i < 40; i++ {
			fmt.Fprintf(w, "data: %s\n\n", groqChunk("chunk "))
			flusher.Flush()
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
		flusher.Flush()
	}))
	defer server.Close()

	g, err := NewGroq(GroqConfig{APIKey: "gsk-test", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewGroq() error = %v", err)
	}

	before := runtime.NumGoroutine()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := g.OpenStream(ctx, "llama-3.3-70b-versatile", nil)
	if err != nil {
		t.Fatalf("OpenStream() error = %v", err)
	}

	// One delta arrives, then the client disconnects; the channel is
	// abandoned without draining, so the producer must not block on it.
	<-events
	cancel()

	deadline := time.Now().Add(2 * time.Second)
	for runtime.NumGoroutine() > before {
		if time.Now().After(deadline) {
			t.Fatalf("%d goroutines still running, want at most %d after cancellation",
				runtime.NumGoroutine(), before)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestGroqMissingKey(t *testing.T) {
	if _, err := NewGroq(GroqConfig{}); err == nil {
		t.Fatal("expected configuration error")
	}
}
