package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"

	"github.com/Bharath-kolekar/cognomega-edge-sub004/internal/config"
)

func TestOpenAICompleteReportedUsage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer k1" {
			t.Errorf("missing bearer header")
		}
		var req openAIRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Model != "m1" || len(req.Messages) != 1 {
			t.Errorf("unexpected request: %+v", req)
		}

		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": "hello there"}},
			},
			"usage": map[string]any{"prompt_tokens": 7, "completion_tokens": 9},
		})
	}))
	defer server.Close()

	p := NewOpenAI(config.ProviderEntry{Name: "groq", BaseURL: server.URL, Model: "m1", APIKey: "k1"})
	result, err := p.Complete(context.Background(), []Message{{Role: "user", Content: "hi"}})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if result.Provider != "groq" || result.Text != "hello there" {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.TokensIn != 7 || result.TokensOut != 9 {
		t.Fatalf("expected reported usage, got %+v", result)
	}
}

func TestOpenAICompleteEstimatesMissingUsage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": "12345678"}},
			},
		})
	}))
	defer server.Close()

	messages := []Message{{Role: "user", Content: "hi"}}
	p := NewOpenAI(config.ProviderEntry{Name: "groq", BaseURL: server.URL, Model: "m1", APIKey: "k1"})
	result, err := p.Complete(context.Background(), messages)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if result.TokensOut != EstimateTokens("12345678") {
		t.Fatalf("expected estimated output tokens, got %d", result.TokensOut)
	}
	if result.TokensIn != EstimateInputTokens(messages) {
		t.Fatalf("expected estimated input tokens, got %d", result.TokensIn)
	}
}

func TestOpenAICompleteNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	p := NewOpenAI(config.ProviderEntry{Name: "groq", BaseURL: server.URL, Model: "m1", APIKey: "k1"})
	if _, err := p.Complete(context.Background(), nil); err == nil {
		t.Fatalf("expected error on non-2xx")
	}
}

func TestOpenAICompleteMissingKey(t *testing.T) {
	p := NewOpenAI(config.ProviderEntry{Name: "groq", BaseURL: "http://127.0.0.1:0", Model: "m1"})
	if _, err := p.Complete(context.Background(), nil); !errors.Is(err, ErrMissingProviderKey) {
		t.Fatalf("expected ErrMissingProviderKey, got %v", err)
	}
}
