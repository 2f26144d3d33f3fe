package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewAnthropicProvider_RequiresKey(t *testing.T) {
	if _, err := NewAnthropicProvider(""); err == nil {
		t.Fatal("NewAnthropicProvider(\"\") should error")
	}
}

func TestAnthropicProvider_Complete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/messages" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "test-key" {
			t.Errorf("x-api-key = %q", r.Header.Get("x-api-key"))
		}
		if r.Header.Get("anthropic-version") == "" {
			t.Error("missing anthropic-version header")
		}

		var req anthropicRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.System != "You write JEE questions." {
			t.Errorf("system = %q", req.System)
		}
		if len(req.Messages) != 1 || req.Messages[0].Role != "user" {
			t.Errorf("messages = %+v, want one user message", req.Messages)
		}
		if req.MaxTokens != 4096 {
			t.Errorf("max_tokens = %d, want default 4096", req.MaxTokens)
		}

		w.Write([]byte(`{"content":[{"text":"Sure."}],"model":"claude-sonnet-4-6","usage":{"input_tokens":12,"output_tokens":3}}`))
	}))
	defer server.Close()

	p, _ := NewAnthropicProvider("test-key", WithAnthropicBaseURL(server.URL))
	resp, err := p.Complete(context.Background(), CompletionRequest{
		Messages: []Message{
			{Role: "system", Content: "You write JEE questions."},
			{Role: "user", Content: "One kinematics MCQ"},
		},
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if resp.Content != "Sure." || resp.TotalTokens() != 15 {
		t.Errorf("resp = %+v", resp)
	}
}

func TestAnthropicProvider_JSONModePrefill(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req anthropicRequest
		json.NewDecoder(r.Body).Decode(&req)
		last := req.Messages[len(req.Messages)-1]
		if last.Role != "assistant" || last.Content != "{" {
			t.Errorf("last message = %+v, want assistant prefill", last)
		}
		w.Write([]byte(`{"content":[{"text":"\"a\":1}"}],"model":"m"}`))
	}))
	defer server.Close()

	p, _ := NewAnthropicProvider("test-key", WithAnthropicBaseURL(server.URL))
	resp, err := p.Complete(context.Background(), CompletionRequest{
		Messages: []Message{{Role: "user", Content: "json please"}},
		JSONMode: true,
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if resp.Content != `{"a":1}` {
		t.Errorf("content = %q, want prefill restored", resp.Content)
	}
}

func TestAnthropicProvider_EmptyContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"content":[]}`))
	}))
	defer server.Close()

	p, _ := NewAnthropicProvider("test-key", WithAnthropicBaseURL(server.URL))
	if _, err := p.Complete(context.Background(), CompletionRequest{
		Messages: []Message{{Role: "user", Content: "hi"}},
	}); err == nil {
		t.Fatal("Complete() should error on empty content")
	}
}
