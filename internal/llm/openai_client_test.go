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

func TestOpenAIClientComplete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("unexpected authorization header %q", got)
		}
		var payload struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
			Temperature float64 `json:"temperature"`
			MaxTokens   int     `json:"max_tokens"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		if payload.Model != "gpt-4" {
			t.Errorf("expected gpt-4, got %s", payload.Model)
		}
		if len(payload.Messages) != 3 {
			t.Errorf("expected 3 messages, got %d", len(payload.Messages))
		} else {
			if payload.Messages[0].Role != "system" || payload.Messages[0].Content != "You are a tutor." {
				t.Errorf("unexpected system turn %+v", payload.Messages[0])
			}
			if payload.Messages[1].Role != "assistant" || payload.Messages[2].Role != "user" {
				t.Errorf("unexpected turn order %+v", payload.Messages)
			}
		}
		if payload.Temperature != 0.7 {
			t.Errorf("unexpected temperature %v", payload.Temperature)
		}
		if payload.MaxTokens != 0 {
			t.Errorf("max_tokens should be omitted, got %d", payload.MaxTokens)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"chatcmpl-1","object":"chat.completion","created":1,"model":"gpt-4","choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"Photosynthesis turns light into sugar."}}]}`))
	}))
	defer server.Close()

	client := newOpenAIClient("sk-test", server.URL, "gpt-3.5-turbo", server.Client())
	got, err := client.Complete(context.Background(), CompletionRequest{
		Model:       "gpt-4",
		System:      "You are a tutor.",
		Turns:       []Turn{{Role: RoleAssistant, Content: "I'm now looking at page 2."}, {Role: RoleUser, Content: "Explain"}},
		Temperature: 0.7,
	})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if got != "Photosynthesis turns light into sugar." {
		t.Fatalf("unexpected reply %q", got)
	}
}

func TestOpenAIClientNoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"chatcmpl-1","object":"chat.completion","created":1,"model":"gpt-4","choices":[]}`))
	}))
	defer server.Close()

	client := newOpenAIClient("sk-test", server.URL, "gpt-4", server.Client())
	_, err := client.Complete(context.Background(), CompletionRequest{Turns: []Turn{{Role: RoleUser, Content: "hi"}}})
	if !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("expected ErrEmptyResponse, got %v", err)
	}
}

func TestOpenAIClientSendsMaxTokens(t *testing.T) {
	var maxTokens int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			MaxTokens int `json:"max_tokens"`
		}
		_ = json.NewDecoder(r.Body).Decode(&payload)
		maxTokens = payload.MaxTokens
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","created":1,"model":"gpt-4","choices":[{"index":0,"finish_reason":"length","message":{"role":"assistant","content":"H"}}]}`))
	}))
	defer server.Close()

	client := newOpenAIClient("sk-test", server.URL, "gpt-4", server.Client())
	if _, err := client.Complete(context.Background(), CompletionRequest{Turns: []Turn{{Role: RoleUser, Content: "Hello"}}, MaxTokens: 1}); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if maxTokens != 1 {
		t.Fatalf("expected max_tokens 1, got %d", maxTokens)
	}
}

func TestOpenAIClientSurfacesAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`))
	}))
	defer server.Close()

	client := newOpenAIClient("sk-bad", server.URL, "gpt-4", server.Client())
	if _, err := client.Complete(context.Background(), CompletionRequest{Turns: []Turn{{Role: RoleUser, Content: "hi"}}}); err == nil {
		t.Fatal("expected error for 401")
	}
}

func TestOpenAIClientListModels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/models") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[{"id":"gpt-4","object":"model","created":1,"owned_by":"openai"},{"id":"whisper-1","object":"model","created":1,"owned_by":"openai-internal"}]}`))
	}))
	defer server.Close()

	client := newOpenAIClient("sk-test", server.URL, "gpt-4", server.Client())
	models, err := client.ListModels(context.Background())
	if err != nil {
		t.Fatalf("list models: %v", err)
	}
	if len(models) != 2 || models[0].ID != "gpt-4" || models[0].OwnedBy != "openai" {
		t.Fatalf("unexpected models %+v", models)
	}
}

func TestNormalizeOpenAIBaseURL(t *testing.T) {
	cases := map[string]string{
		"":                           "",
		"https://api.openai.com":     "https://api.openai.com/v1",
		"https://api.openai.com/v1/": "https://api.openai.com/v1",
		"http://proxy.local/openai":  "http://proxy.local/openai/v1",
	}
	for in, want := range cases {
		if got := normalizeOpenAIBaseURL(in); got != want {
			t.Fatalf("normalizeOpenAIBaseURL(%q) = %q, want %q", in, got, want)
		}
	}
}
