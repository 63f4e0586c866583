// Package conversation owns the message transcript and drives requests to
// the completion backend.
package conversation

import (
	"context"
	"errors"
	"io"
	"math/rand"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid"
	"go.uber.org/zap"

	"github.com/csheth/pagetutor/internal/llm"
)

const DefaultTimeout = 60 * time.Second

var ErrEmptyMessage = errors.New("conversation: message is empty")

// Options is the selection state read at the start of every request.
type Options struct {
	Difficulty   Difficulty
	SystemPrompt string
	Model        string
	Credential   string
}

type OptionsFunc func() Options

// ClientFactory builds backend clients for a credential.
type ClientFactory interface {
	Client(credential string) (llm.Client, error)
	ValidateCredential(credential string) error
	Family() string
	Temperature() float64
}

// Engine serializes request chains so the acknowledgement and reply of one
// call are never interleaved with another call's messages.
type Engine struct {
	factory ClientFactory
	options OptionsFunc
	logger  *zap.Logger
	timeout time.Duration

	callMu  sync.Mutex
	loading atomic.Int32

	mu       sync.RWMutex
	messages []Message
	models   []llm.ModelInfo
	epoch    uint64
	entropy  io.Reader
}

type EngineOption func(*Engine)

func WithTimeout(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

func WithLogger(logger *zap.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

func NewEngine(factory ClientFactory, options OptionsFunc, opts ...EngineOption) *Engine {
	if options == nil {
		options = func() Options { return Options{Difficulty: DefaultDifficulty} }
	}
	e := &Engine{
		factory: factory,
		options: options,
		logger:  zap.NewNop(),
		timeout: DefaultTimeout,
		entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SubmitUserMessage appends text as a user turn and then the backend's reply,
// or an "Error: " assistant turn when the request fails.
func (e *Engine) SubmitUserMessage(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyMessage
	}
	e.callMu.Lock()
	defer e.callMu.Unlock()

	e.mu.Lock()
	epoch := e.epoch
	history := e.historyLocked()
	e.appendLocked(llm.RoleUser, text, false)
	e.mu.Unlock()

	e.exchange(ctx, epoch, history, text)
	return nil
}

// ExplainPage appends an acknowledgement for pageNumber, then asks the
// backend to explain pageText at the current difficulty.
func (e *Engine) ExplainPage(ctx context.Context, pageText string, pageNumber int) {
	e.callMu.Lock()
	defer e.callMu.Unlock()

	opts := e.options()
	e.mu.Lock()
	epoch := e.epoch
	e.appendLocked(llm.RoleAssistant, acknowledgement(pageNumber), false)
	history := e.historyLocked()
	e.mu.Unlock()

	e.exchange(ctx, epoch, history, ExplanationPrompt(opts.Difficulty, pageText))
}

func (e *Engine) exchange(ctx context.Context, epoch uint64, history []llm.Turn, final string) {
	e.loading.Add(1)
	defer e.loading.Add(-1)

	start := time.Now()
	reply, err := e.complete(ctx, history, final)
	if err != nil {
		e.logger.Warn("completion failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		e.appendIfCurrent(epoch, errorContent(err), true)
		return
	}
	e.logger.Info("completion finished", zap.Int("chars", len(reply)), zap.Duration("elapsed", time.Since(start)))
	e.appendIfCurrent(epoch, reply, false)
}

func (e *Engine) complete(ctx context.Context, history []llm.Turn, final string) (string, error) {
	opts := e.options()
	client, err := e.factory.Client(opts.Credential)
	if err != nil {
		return "", err
	}
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	turns := append(history, llm.Turn{Role: llm.RoleUser, Content: final})
	return client.Complete(ctx, llm.CompletionRequest{
		Model:       opts.Model,
		System:      opts.SystemPrompt,
		Turns:       turns,
		Temperature: e.factory.Temperature(),
	})
}

// TestConnection reports whether credential can complete a one-token request
// against model. It never changes engine state.
func (e *Engine) TestConnection(ctx context.Context, credential, model string) bool {
	if err := e.factory.ValidateCredential(credential); err != nil {
		e.logger.Info("connection test rejected credential", zap.Error(err))
		return false
	}
	client, err := e.factory.Client(credential)
	if err != nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	_, err = client.Complete(ctx, llm.CompletionRequest{
		Model:       model,
		System:      "",
		Turns:       []llm.Turn{{Role: llm.RoleUser, Content: "Hello"}},
		Temperature: e.factory.Temperature(),
		MaxTokens:   1,
	})
	// A one-token reply may be blank; the request still reached the model.
	if err != nil && !errors.Is(err, llm.ErrEmptyResponse) {
		e.logger.Info("connection test failed", zap.String("model", model), zap.Error(err))
		return false
	}
	return true
}

// RefreshModels replaces the model set with the backend's chat models.
// Any failure leaves the set empty rather than stale.
func (e *Engine) RefreshModels(ctx context.Context, credential string) []llm.ModelInfo {
	models, err := e.listModels(ctx, credential)
	if err != nil {
		e.logger.Warn("model listing failed", zap.Error(err))
		models = nil
	}
	filtered := llm.FilterChatModels(models, e.factory.Family())

	e.mu.Lock()
	e.models = filtered
	e.mu.Unlock()
	return append([]llm.ModelInfo(nil), filtered...)
}

func (e *Engine) listModels(ctx context.Context, credential string) ([]llm.ModelInfo, error) {
	client, err := e.factory.Client(credential)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	return client.ListModels(ctx)
}

// Models returns the last fetched model set.
func (e *Engine) Models() []llm.ModelInfo {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]llm.ModelInfo(nil), e.models...)
}

func (e *Engine) Messages() []Message {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]Message(nil), e.messages...)
}

func (e *Engine) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.messages)
}

// Replace swaps in a restored transcript. Replies still in flight for the
// previous transcript are discarded.
func (e *Engine) Replace(messages []Message) {
	e.mu.Lock()
	e.epoch++
	e.messages = append([]Message(nil), messages...)
	e.mu.Unlock()
}

func (e *Engine) Clear() {
	e.Replace(nil)
}

func (e *Engine) IsLoading() bool {
	return e.loading.Load() > 0
}

func (e *Engine) appendIfCurrent(epoch uint64, content string, isError bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.epoch != epoch {
		e.logger.Debug("dropping reply for replaced conversation")
		return
	}
	e.appendLocked(llm.RoleAssistant, content, isError)
}

func (e *Engine) appendLocked(role llm.Role, content string, isError bool) {
	now := time.Now()
	id := ulid.MustNew(ulid.Timestamp(now), e.entropy)
	e.messages = append(e.messages, Message{
		ID:        id.String(),
		Role:      role,
		Content:   content,
		Timestamp: now,
		Error:     isError,
	})
}

func (e *Engine) historyLocked() []llm.Turn {
	turns := make([]llm.Turn, 0, len(e.messages))
	for _, msg := range e.messages {
		if msg.Error {
			continue
		}
		turns = append(turns, llm.Turn{Role: msg.Role, Content: msg.Content})
	}
	return turns
}
