package llm

import (
	"context"
	"fmt"
	"net/http"
	neturl "net/url"
	"strings"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

type openAIClient struct {
	model  string
	client openai.Client
}

func newOpenAIClient(apiKey, endpoint, model string, httpClient *http.Client) *openAIClient {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	if base := normalizeOpenAIBaseURL(endpoint); base != "" {
		opts = append(opts, option.WithBaseURL(base+"/"))
	}
	return &openAIClient{model: model, client: openai.NewClient(opts...)}
}

func (c *openAIClient) Name() string {
	return fmt.Sprintf("OpenAI (%s)", c.model)
}

func (c *openAIClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Turns)+1)
	messages = append(messages, openai.SystemMessage(req.System))
	for _, turn := range req.Turns {
		switch turn.Role {
		case RoleAssistant:
			messages = append(messages, openai.AssistantMessage(turn.Content))
		case RoleUser:
			messages = append(messages, openai.UserMessage(turn.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(model),
		Messages:    messages,
		Temperature: openai.Float(req.Temperature),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai API returned no choices: %w", ErrEmptyResponse)
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", ErrEmptyResponse
	}
	return content, nil
}

func (c *openAIClient) ListModels(ctx context.Context) ([]ModelInfo, error) {
	page, err := c.client.Models.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("openai list models: %w", err)
	}
	models := make([]ModelInfo, 0, len(page.Data))
	for _, item := range page.Data {
		id := strings.TrimSpace(item.ID)
		if id == "" {
			continue
		}
		models = append(models, ModelInfo{ID: id, Name: id, OwnedBy: item.OwnedBy, Provenance: ProvenanceRemote})
	}
	return models, nil
}

func normalizeOpenAIBaseURL(raw string) string {
	base := strings.TrimSpace(raw)
	if base == "" {
		return ""
	}
	parsed, err := neturl.Parse(base)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return strings.TrimRight(base, "/")
	}

	path := strings.TrimRight(parsed.Path, "/")
	if !strings.HasSuffix(path, "/v1") {
		path += "/v1"
	}
	parsed.Path = path
	return strings.TrimRight(parsed.String(), "/")
}
