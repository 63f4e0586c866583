package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

type anthropicClient struct {
	model  string
	client anthropic.Client
}

func newAnthropicClient(apiKey, endpoint, model string, httpClient *http.Client) *anthropicClient {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	if endpoint = strings.TrimSpace(endpoint); endpoint != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimRight(endpoint, "/")+"/"))
	}
	return &anthropicClient{model: model, client: anthropic.NewClient(opts...)}
}

func (c *anthropicClient) Name() string {
	return fmt.Sprintf("Anthropic (%s)", c.model)
}

func (c *anthropicClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}

	turns := mergeTurns(req.Turns)
	for len(turns) > 0 && turns[0].Role == RoleAssistant {
		turns = turns[1:]
	}
	if len(turns) == 0 {
		return "", fmt.Errorf("anthropic completion: no user turn")
	}
	messages := make([]anthropic.MessageParam, 0, len(turns))
	for _, turn := range turns {
		block := anthropic.NewTextBlock(turn.Content)
		if turn.Role == RoleAssistant {
			messages = append(messages, anthropic.NewAssistantMessage(block))
		} else {
			messages = append(messages, anthropic.NewUserMessage(block))
		}
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(model),
		MaxTokens:   int64(maxTokens(req)),
		Messages:    messages,
		Temperature: anthropic.Float(req.Temperature),
	}
	if strings.TrimSpace(req.System) != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic completion: %w", err)
	}
	var out strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			out.WriteString(block.Text)
		}
	}
	content := strings.TrimSpace(out.String())
	if content == "" {
		return "", ErrEmptyResponse
	}
	return content, nil
}

func (c *anthropicClient) ListModels(ctx context.Context) ([]ModelInfo, error) {
	page, err := c.client.Models.List(ctx, anthropic.ModelListParams{})
	if err != nil {
		return nil, fmt.Errorf("anthropic list models: %w", err)
	}
	models := make([]ModelInfo, 0, len(page.Data))
	for _, item := range page.Data {
		id := strings.TrimSpace(item.ID)
		if id == "" {
			continue
		}
		name := strings.TrimSpace(item.DisplayName)
		if name == "" {
			name = id
		}
		models = append(models, ModelInfo{ID: id, Name: name, OwnedBy: "anthropic", Provenance: ProvenanceRemote})
	}
	return models, nil
}
