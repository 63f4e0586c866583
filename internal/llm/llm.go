package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"slices"
	"strings"
	"time"
)

const (
	defaultOllamaModel    = "ministral-3:latest"
	defaultOpenAIModel    = "gpt-3.5-turbo"
	defaultAnthropicModel = "claude-3-5-haiku-latest"
	defaultOllamaHost     = "http://localhost:11434"

	DefaultTemperature = 0.7
	defaultMaxTokens   = 1024
)

const defaultLLMHTTPTimeout = 3 * time.Minute

var (
	ErrEmptyResponse      = errors.New("llm: empty response")
	ErrMissingCredential  = errors.New("llm: missing credential")
	ErrInvalidCredential  = errors.New("llm: invalid credential format")
	ErrUnsupportedBackend = errors.New("llm: unsupported provider")
)

type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderOllama    Provider = "ollama"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one prior message sent back to the backend as context.
type Turn struct {
	Role    Role
	Content string
}

// CompletionRequest is sent as one system turn followed by Turns in order.
type CompletionRequest struct {
	Model       string
	System      string
	Turns       []Turn
	Temperature float64
	MaxTokens   int
}

const (
	ProvenanceBuiltin = "builtin"
	ProvenanceRemote  = "remote"
)

// ModelInfo describes a selectable model and where the entry came from.
type ModelInfo struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	OwnedBy    string `json:"ownedBy,omitempty"`
	Provenance string `json:"provenance"`
}

// Client talks to one chat-completion backend with a fixed credential.
type Client interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
	ListModels(ctx context.Context) ([]ModelInfo, error)
	Name() string
}

// Config describes how to build LLM clients.
type Config struct {
	Provider    Provider
	Model       string
	Endpoint    string
	APIKey      string
	HTTPClient  *http.Client
	Timeout     time.Duration
	Temperature float64
}

// Factory builds clients for a configured provider on demand, since the
// credential can change at runtime.
type Factory struct {
	cfg Config
}

func NewFactory(cfg Config) (*Factory, error) {
	if cfg.Provider == "" {
		cfg.Provider = ProviderOpenAI
	}
	cfg.Provider = Provider(strings.ToLower(strings.TrimSpace(string(cfg.Provider))))
	switch cfg.Provider {
	case ProviderOpenAI, ProviderAnthropic, ProviderOllama:
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedBackend, cfg.Provider)
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = DefaultTemperature
	}
	if cfg.HTTPClient == nil && cfg.Timeout > 0 {
		cfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	cfg.HTTPClient = pickHTTPClient(cfg.HTTPClient)
	return &Factory{cfg: cfg}, nil
}

// NewFromEnv fills unset endpoint and model fields from provider-specific
// environment variables before building the factory.
func NewFromEnv(cfg Config) (*Factory, error) {
	switch cfg.Provider {
	case ProviderOllama:
		if cfg.Endpoint == "" {
			cfg.Endpoint = strings.TrimRight(os.Getenv("OLLAMA_HOST"), "/")
		}
		if cfg.Model == "" {
			cfg.Model = os.Getenv("OLLAMA_MODEL")
		}
	case ProviderAnthropic:
		if cfg.Endpoint == "" {
			cfg.Endpoint = os.Getenv("ANTHROPIC_BASE_URL")
		}
		if cfg.APIKey == "" {
			cfg.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		}
	default:
		if cfg.Endpoint == "" {
			cfg.Endpoint = os.Getenv("OPENAI_BASE_URL")
		}
		if cfg.APIKey == "" {
			cfg.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	}
	return NewFactory(cfg)
}

func (f *Factory) Provider() Provider {
	return f.cfg.Provider
}

func (f *Factory) Temperature() float64 {
	return f.cfg.Temperature
}

// APIKey returns the credential from configuration, if any.
func (f *Factory) APIKey() string {
	return f.cfg.APIKey
}

// Client returns a backend client bound to credential. An empty credential
// falls back to the configured key.
func (f *Factory) Client(credential string) (Client, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		credential = strings.TrimSpace(f.cfg.APIKey)
	}
	model := f.DefaultModel()
	switch f.cfg.Provider {
	case ProviderOllama:
		host := f.cfg.Endpoint
		if host == "" {
			host = defaultOllamaHost
		}
		return &ollamaClient{host: strings.TrimRight(host, "/"), model: model, client: f.cfg.HTTPClient}, nil
	case ProviderAnthropic:
		if credential == "" {
			return nil, ErrMissingCredential
		}
		return newAnthropicClient(credential, f.cfg.Endpoint, model, f.cfg.HTTPClient), nil
	default:
		if credential == "" {
			return nil, ErrMissingCredential
		}
		return newOpenAIClient(credential, f.cfg.Endpoint, model, f.cfg.HTTPClient), nil
	}
}

// ValidateCredential checks the shape of a credential without contacting the backend.
func (f *Factory) ValidateCredential(credential string) error {
	credential = strings.TrimSpace(credential)
	switch f.cfg.Provider {
	case ProviderOllama:
		return nil
	case ProviderAnthropic:
		if credential == "" {
			return ErrMissingCredential
		}
		if !strings.HasPrefix(credential, "sk-ant-") || len(credential) < 40 {
			return ErrInvalidCredential
		}
	default:
		if credential == "" {
			return ErrMissingCredential
		}
		if !strings.HasPrefix(credential, "sk-") || len(credential) < 50 {
			return ErrInvalidCredential
		}
	}
	return nil
}

// RequiresCredential reports whether the provider needs an API key.
func (f *Factory) RequiresCredential() bool {
	return f.cfg.Provider != ProviderOllama
}

// Family is the model id prefix that identifies chat models for the provider.
func (f *Factory) Family() string {
	switch f.cfg.Provider {
	case ProviderOpenAI:
		return "gpt-"
	case ProviderAnthropic:
		return "claude-"
	default:
		return ""
	}
}

func (f *Factory) DefaultModel() string {
	if model := strings.TrimSpace(f.cfg.Model); model != "" {
		return model
	}
	switch f.cfg.Provider {
	case ProviderOllama:
		return defaultOllamaModel
	case ProviderAnthropic:
		return defaultAnthropicModel
	default:
		return defaultOpenAIModel
	}
}

// FallbackModels is the built-in model set offered before a live listing is available.
func (f *Factory) FallbackModels() []ModelInfo {
	var ids []string
	switch f.cfg.Provider {
	case ProviderOllama:
		ids = []string{f.DefaultModel()}
	case ProviderAnthropic:
		ids = []string{"claude-3-5-haiku-latest", "claude-3-5-sonnet-latest", "claude-3-opus-latest"}
	default:
		ids = []string{"gpt-4-0125-preview", "gpt-4-vision-preview", "gpt-4-0613", "gpt-4-32k", "gpt-3.5-turbo-0125"}
	}
	// The default must always be pickable.
	if def := f.DefaultModel(); !slices.Contains(ids, def) {
		ids = append([]string{def}, ids...)
	}
	models := make([]ModelInfo, 0, len(ids))
	for _, id := range ids {
		models = append(models, ModelInfo{ID: id, Name: id, OwnedBy: string(f.cfg.Provider), Provenance: ProvenanceBuiltin})
	}
	return models
}

func pickHTTPClient(custom *http.Client) *http.Client {
	if custom != nil {
		return custom
	}
	// Allow longer-running generations and rely on the caller's context for cancellation.
	return &http.Client{Timeout: defaultLLMHTTPTimeout}
}

func maxTokens(req CompletionRequest) int {
	if req.MaxTokens > 0 {
		return req.MaxTokens
	}
	return defaultMaxTokens
}
