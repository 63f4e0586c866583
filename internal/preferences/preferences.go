// Package preferences persists the user's selections: the backend
// credential, the system prompt template and the model.
package preferences

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/csheth/pagetutor/internal/llm"
	"github.com/csheth/pagetutor/internal/storage"
)

const (
	DefaultPromptID = "default"
	customPrefix    = "custom-"
)

var (
	ErrUnknownPrompt = errors.New("preferences: unknown prompt")
	ErrBuiltinPrompt = errors.New("preferences: built-in prompts cannot be removed")
	ErrEmptyPrompt   = errors.New("preferences: prompt name and text are required")
)

// Prompt is a named system prompt template.
type Prompt struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Text        string `json:"prompt"`
}

// Custom reports whether p was added by the user.
func (p Prompt) Custom() bool {
	return strings.HasPrefix(p.ID, customPrefix)
}

var builtinPrompts = []Prompt{
	{
		ID:          "default",
		Name:        "Default Tutor",
		Description: "A balanced, helpful tutor",
		Text:        "You are an expert tutor helping a student understand academic content. Provide clear, accurate explanations at the requested level of detail.",
	},
	{
		ID:          "socratic",
		Name:        "Socratic Teacher",
		Description: "Guides through questions",
		Text:        "You are a Socratic teacher who guides students through understanding by asking thought-provoking questions. Help them discover insights through careful questioning and dialogue.",
	},
	{
		ID:          "expert",
		Name:        "Domain Expert",
		Description: "Deep technical explanations",
		Text:        "You are a subject matter expert with deep knowledge in multiple fields. Provide detailed, technical explanations while making complex concepts accessible.",
	},
	{
		ID:          "friendly",
		Name:        "Friendly Guide",
		Description: "Casual and approachable",
		Text:        "You are a friendly, approachable tutor who makes learning fun and engaging. Use analogies, examples, and conversational language to explain concepts.",
	},
}

// BuiltinPrompts returns a copy of the shipped templates.
func BuiltinPrompts() []Prompt {
	return append([]Prompt(nil), builtinPrompts...)
}

// ModelDefaults supplies the model used before the user picks one and the
// list offered when no credential is set.
type ModelDefaults interface {
	DefaultModel() string
	FallbackModels() []llm.ModelInfo
}

// ModelSource fetches the live model list for a credential.
type ModelSource interface {
	RefreshModels(ctx context.Context, credential string) []llm.ModelInfo
}

type Preferences struct {
	records  storage.Store
	defaults ModelDefaults
	logger   *zap.Logger

	mu         sync.RWMutex
	credential string
	prompt     Prompt
	model      llm.ModelInfo
	custom     []Prompt
}

func New(records storage.Store, defaults ModelDefaults, logger *zap.Logger) *Preferences {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Preferences{
		records:  records,
		defaults: defaults,
		logger:   logger,
		prompt:   builtinPrompts[0],
	}
	if defaults != nil {
		p.model = modelByID(defaults.FallbackModels(), defaults.DefaultModel())
	}
	return p
}

// Load reads persisted selections. Records that are missing keep their
// defaults; records that cannot be decoded are logged and ignored.
func (p *Preferences) Load(ctx context.Context) error {
	credential, err := storage.GetString(ctx, p.records, storage.KeyCredential)
	if err != nil {
		return fmt.Errorf("load credential: %w", err)
	}

	var custom []Prompt
	if err := p.getJSON(ctx, storage.KeyCustomPrompts, &custom); err != nil {
		return err
	}
	var prompt Prompt
	if err := p.getJSON(ctx, storage.KeySystemPrompt, &prompt); err != nil {
		return err
	}
	var model llm.ModelInfo
	if err := p.getJSON(ctx, storage.KeySelectedModel, &model); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.credential = credential
	p.custom = p.custom[:0]
	for _, c := range custom {
		if c.Custom() {
			p.custom = append(p.custom, c)
		}
	}
	if prompt.ID != "" && prompt.Text != "" {
		p.prompt = prompt
	}
	if model.ID != "" {
		p.model = model
	}
	return nil
}

func (p *Preferences) getJSON(ctx context.Context, name string, out any) error {
	err := storage.GetJSON(ctx, p.records, name, out)
	switch {
	case err == nil, errors.Is(err, storage.ErrNotFound):
		return nil
	case errors.Is(err, storage.ErrDecode):
		p.logger.Warn("ignoring unreadable preference", zap.String("record", name), zap.Error(err))
		return nil
	default:
		return fmt.Errorf("load %s: %w", name, err)
	}
}

func (p *Preferences) Credential() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.credential
}

// SetCredential stores credential verbatim. An empty value deletes it.
func (p *Preferences) SetCredential(ctx context.Context, credential string) error {
	credential = strings.TrimSpace(credential)
	var err error
	if credential == "" {
		err = p.records.Delete(ctx, storage.KeyCredential)
	} else {
		err = p.records.Set(ctx, storage.KeyCredential, []byte(credential))
	}
	if err != nil {
		return fmt.Errorf("save credential: %w", err)
	}
	p.mu.Lock()
	p.credential = credential
	p.mu.Unlock()
	return nil
}

func (p *Preferences) SystemPrompt() Prompt {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.prompt
}

// SetSystemPrompt selects the template with id and persists the full template.
func (p *Preferences) SetSystemPrompt(ctx context.Context, id string) error {
	prompt, ok := p.lookup(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPrompt, id)
	}
	if err := storage.SetJSON(ctx, p.records, storage.KeySystemPrompt, prompt); err != nil {
		return err
	}
	p.mu.Lock()
	p.prompt = prompt
	p.mu.Unlock()
	return nil
}

func (p *Preferences) Model() llm.ModelInfo {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.model
}

// SetModel persists model as the selection. The caller decides which ids
// are valid; an unknown id is stored as-is so a remote model survives restarts.
func (p *Preferences) SetModel(ctx context.Context, model llm.ModelInfo) error {
	model.ID = strings.TrimSpace(model.ID)
	if model.ID == "" {
		return errors.New("preferences: model id is required")
	}
	if model.Name == "" {
		model.Name = model.ID
	}
	if err := storage.SetJSON(ctx, p.records, storage.KeySelectedModel, model); err != nil {
		return err
	}
	p.mu.Lock()
	p.model = model
	p.mu.Unlock()
	return nil
}

// Prompts lists built-in templates followed by custom ones in insertion order.
func (p *Preferences) Prompts() []Prompt {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := BuiltinPrompts()
	return append(out, p.custom...)
}

// AddCustomPrompt stores a new user template and returns it.
func (p *Preferences) AddCustomPrompt(ctx context.Context, name, text string) (Prompt, error) {
	name, text = strings.TrimSpace(name), strings.TrimSpace(text)
	if name == "" || text == "" {
		return Prompt{}, ErrEmptyPrompt
	}
	prompt := Prompt{ID: customPrefix + uuid.NewString(), Name: name, Text: text}

	p.mu.Lock()
	defer p.mu.Unlock()
	next := append(append([]Prompt(nil), p.custom...), prompt)
	if err := storage.SetJSON(ctx, p.records, storage.KeyCustomPrompts, next); err != nil {
		return Prompt{}, err
	}
	p.custom = next
	p.logger.Info("custom prompt added", zap.String("prompt_id", prompt.ID))
	return prompt, nil
}

// RemoveCustomPrompt deletes a user template. Removing the selected one
// falls back to the default template.
func (p *Preferences) RemoveCustomPrompt(ctx context.Context, id string) error {
	if !strings.HasPrefix(id, customPrefix) {
		if _, ok := p.lookup(id); ok {
			return ErrBuiltinPrompt
		}
		return fmt.Errorf("%w: %s", ErrUnknownPrompt, id)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	next := make([]Prompt, 0, len(p.custom))
	for _, c := range p.custom {
		if c.ID != id {
			next = append(next, c)
		}
	}
	if len(next) == len(p.custom) {
		return fmt.Errorf("%w: %s", ErrUnknownPrompt, id)
	}
	if err := storage.SetJSON(ctx, p.records, storage.KeyCustomPrompts, next); err != nil {
		return err
	}
	p.custom = next
	if p.prompt.ID == id {
		p.prompt = builtinPrompts[0]
		if err := storage.SetJSON(ctx, p.records, storage.KeySystemPrompt, p.prompt); err != nil {
			return err
		}
	}
	return nil
}

// Models returns the built-in fallback set when no credential is stored,
// otherwise whatever source reports for it (possibly empty).
func (p *Preferences) Models(ctx context.Context, source ModelSource) []llm.ModelInfo {
	credential := p.Credential()
	if credential == "" || source == nil {
		if p.defaults == nil {
			return nil
		}
		return p.defaults.FallbackModels()
	}
	return source.RefreshModels(ctx, credential)
}

func (p *Preferences) lookup(id string) (Prompt, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, b := range builtinPrompts {
		if b.ID == id {
			return b, true
		}
	}
	for _, c := range p.custom {
		if c.ID == id {
			return c, true
		}
	}
	return Prompt{}, false
}

func modelByID(models []llm.ModelInfo, id string) llm.ModelInfo {
	for _, m := range models {
		if m.ID == id {
			return m
		}
	}
	return llm.ModelInfo{ID: id, Name: id, Provenance: llm.ProvenanceBuiltin}
}
