package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestClaude(t *testing.T, h http.HandlerFunc) *ClaudeClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c := NewClaudeClient("test-key", "claude-test")
	c.baseURL = srv.URL
	return c
}

func TestClaudeClientAsk(t *testing.T) {
	var got anthropicRequest
	c := newTestClaude(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "test-key" {
			t.Errorf("expected api key header, got %q", r.Header.Get("x-api-key"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Write([]byte(`{"content":[{"type":"text","text":" Revenue was $5M. "}]}`))
	})

	answer, err := c.Ask(context.Background(), Request{
		Text:        "Revenue was $5M in 2024.",
		Question:    "What was revenue?",
		Temperature: 0.5,
		MaxTokens:   256,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if answer != "Revenue was $5M." {
		t.Errorf("expected trimmed answer, got %q", answer)
	}
	if got.Model != "claude-test" || got.MaxTokens != 256 {
		t.Errorf("unexpected request model=%q max_tokens=%d", got.Model, got.MaxTokens)
	}
	if got.Temperature == nil || *got.Temperature != 0.5 {
		t.Errorf("expected temperature 0.5, got %v", got.Temperature)
	}
	if len(got.Messages) != 1 || !strings.Contains(got.Messages[0].Content, "Question: What was revenue?") {
		t.Errorf("expected one user message with the question, got %+v", got.Messages)
	}
}

func TestClaudeClientRequestModelOverrides(t *testing.T) {
	var got anthropicRequest
	c := newTestClaude(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"content":[{"type":"text","text":"ok"}]}`))
	})
	if _, err := c.Ask(context.Background(), Request{Text: "t", Question: "q", Model: "claude-other"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Model != "claude-other" {
		t.Errorf("expected request model to win, got %q", got.Model)
	}
	if got.MaxTokens != 512 {
		t.Errorf("expected default max tokens 512, got %d", got.MaxTokens)
	}
}

func TestClaudeClientErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantKind  ErrorKind
		retryable bool
	}{
		{"unauthorized", 401, `{"error":{"type":"authentication_error","message":"bad key"}}`, KindAuth, false},
		{"rate limited", 429, `{"error":{"type":"rate_limit_error","message":"slow"}}`, KindRateLimit, true},
		{"overloaded", 529, `{"error":{"type":"overloaded_error","message":"busy"}}`, KindUnavailable, true},
		{"bad request", 400, `{"error":{"type":"invalid_request_error","message":"too long"}}`, KindRejected, false},
		{"not json", 200, `<html>`, KindMalformed, false},
		{"empty content", 200, `{"content":[]}`, KindMalformed, false},
		{"error body", 200, `{"error":{"type":"invalid_request_error","message":"nope"}}`, KindRejected, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClaude(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			})
			_, err := c.Ask(context.Background(), Request{Text: "t", Question: "q"})
			var svcErr *ServiceError
			if !errors.As(err, &svcErr) {
				t.Fatalf("expected *ServiceError, got %T (%v)", err, err)
			}
			if svcErr.Kind != tc.wantKind {
				t.Errorf("expected kind %s, got %s", tc.wantKind, svcErr.Kind)
			}
			if svcErr.Retryable() != tc.retryable {
				t.Errorf("expected retryable=%v", tc.retryable)
			}
		})
	}
}

func TestClaudeClientNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClaudeClient("k", "m")
	c.baseURL = url
	_, err := c.Ask(context.Background(), Request{Text: "t", Question: "q"})
	var svcErr *ServiceError
	if !errors.As(err, &svcErr) || svcErr.Kind != KindNetwork {
		t.Fatalf("expected network ServiceError, got %v", err)
	}
}
