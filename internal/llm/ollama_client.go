package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

type ollamaClient struct {
	host   string
	model  string
	client *http.Client
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (c *ollamaClient) Name() string {
	return fmt.Sprintf("Ollama (%s)", c.model)
}

func (c *ollamaClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}
	messages := make([]ollamaMessage, 0, len(req.Turns)+1)
	messages = append(messages, ollamaMessage{Role: string(RoleSystem), Content: req.System})
	for _, turn := range req.Turns {
		if turn.Role == RoleSystem {
			continue
		}
		messages = append(messages, ollamaMessage{Role: string(turn.Role), Content: turn.Content})
	}
	options := map[string]any{"temperature": req.Temperature}
	if req.MaxTokens > 0 {
		options["num_predict"] = req.MaxTokens
	}
	payload := map[string]any{
		"model":    model,
		"messages": messages,
		"stream":   false,
		"options":  options,
	}

	var parsed struct {
		Message ollamaMessage `json:"message"`
		Done    bool          `json:"done"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/chat", payload, &parsed); err != nil {
		return "", err
	}
	content := strings.TrimSpace(parsed.Message.Content)
	if content == "" {
		return "", ErrEmptyResponse
	}
	return content, nil
}

func (c *ollamaClient) ListModels(ctx context.Context) ([]ModelInfo, error) {
	var parsed struct {
		Models []struct {
			Name  string `json:"name"`
			Model string `json:"model"`
		} `json:"models"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/tags", nil, &parsed); err != nil {
		return nil, err
	}
	models := make([]ModelInfo, 0, len(parsed.Models))
	for _, item := range parsed.Models {
		id := strings.TrimSpace(item.Model)
		if id == "" {
			id = strings.TrimSpace(item.Name)
		}
		if id == "" {
			continue
		}
		models = append(models, ModelInfo{ID: id, Name: item.Name, OwnedBy: "ollama", Provenance: ProvenanceRemote})
	}
	return models, nil
}

func (c *ollamaClient) do(ctx context.Context, method, path string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.host+path, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("ollama API error: %s (%s)", resp.Status, string(data))
	}
	return json.Unmarshal(data, out)
}
