package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kailas-cloud/lorekeeper/internal/domain"
)

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float32 `json:"temperature"`
}

func TestGenerator_Generate(t *testing.T) {
	var got chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"model":  "chat-model",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": "  An owlbear has 59 hit points.\n"},
			}},
			"usage": map[string]any{"prompt_tokens": 120, "completion_tokens": 9, "total_tokens": 129},
		})
	}))
	defer server.Close()

	gen := NewGenerator(&Config{
		APIKey:      "test-key",
		BaseURL:     server.URL,
		Model:       "chat-model",
		MaxTokens:   800,
		Temperature: 0.1,
	})

	answer, err := gen.Generate(context.Background(), "system rules", "question and context")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if answer != "An owlbear has 59 hit points." {
		t.Errorf("unexpected answer %q", answer)
	}
	if got.Model != "chat-model" || got.MaxTokens != 800 {
		t.Errorf("unexpected request: %+v", got)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" || got.Messages[1].Content != "question and context" {
		t.Errorf("unexpected messages: %+v", got.Messages)
	}
}

func TestGenerator_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"id": "x", "choices": []any{}})
	}))
	defer server.Close()

	gen := NewGenerator(&Config{APIKey: "k", BaseURL: server.URL, Model: "m"})

	_, err := gen.Generate(context.Background(), "s", "u")
	if !errors.Is(err, domain.ErrGenerationFailed) {
		t.Fatalf("expected ErrGenerationFailed, got %v", err)
	}
}

func TestGenerator_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "context length exceeded", "type": "invalid_request_error"},
		})
	}))
	defer server.Close()

	gen := NewGenerator(&Config{APIKey: "k", BaseURL: server.URL, Model: "m"})

	_, err := gen.Generate(context.Background(), "s", "u")
	if !errors.Is(err, domain.ErrGenerationFailed) {
		t.Fatalf("expected ErrGenerationFailed, got %v", err)
	}
}

func TestGenerator_HealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"object": "list", "data": []any{}})
	}))
	defer server.Close()

	gen := NewGenerator(&Config{APIKey: "k", BaseURL: server.URL, Model: "m"})
	if err := gen.HealthCheck(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
