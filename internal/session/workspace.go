package session

import (
	"context"
	"errors"
	"fmt"
	"image"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/csheth/pagetutor/internal/blob"
	"github.com/csheth/pagetutor/internal/conversation"
	"github.com/csheth/pagetutor/internal/document"
	"github.com/csheth/pagetutor/internal/history"
	"github.com/csheth/pagetutor/internal/llm"
	"github.com/csheth/pagetutor/internal/preferences"
	"github.com/csheth/pagetutor/internal/render"
)

var (
	ErrNoDocument = errors.New("session: no document open")
	ErrNoFetcher  = errors.New("session: remote documents are not enabled")
)

// Backend is what the workspace needs from the completion provider.
type Backend interface {
	conversation.ClientFactory
	preferences.ModelDefaults
}

// Deps are the long-lived components a Workspace coordinates.
type Deps struct {
	Ingestor *document.Ingestor
	Renders  *render.Cache
	History  *history.Store
	Prefs    *preferences.Preferences
	Backend  Backend
	Fetcher  history.Fetcher
	Logger   *zap.Logger
}

// Selection is a read-only view of what the next request will use.
type Selection struct {
	Difficulty    conversation.Difficulty
	Model         llm.ModelInfo
	Prompt        preferences.Prompt
	HasCredential bool
}

// Workspace ties the session state to ingestion, rendering, the
// conversation and history. Document transitions are serialized.
type Workspace struct {
	state    *State
	ingestor *document.Ingestor
	renders  *render.Cache
	history  *history.Store
	prefs    *preferences.Preferences
	backend  Backend
	fetcher  history.Fetcher
	chat     *conversation.Engine
	logger   *zap.Logger

	viewerScale    float64
	thumbnailScale float64
	chatTimeout    time.Duration
	now            func() time.Time

	mu sync.Mutex
}

type Option func(*Workspace)

func WithScales(viewer, thumbnail float64) Option {
	return func(w *Workspace) {
		if viewer > 0 {
			w.viewerScale = viewer
		}
		if thumbnail > 0 {
			w.thumbnailScale = thumbnail
		}
	}
}

func WithChatTimeout(d time.Duration) Option {
	return func(w *Workspace) { w.chatTimeout = d }
}

func WithClock(now func() time.Time) Option {
	return func(w *Workspace) {
		if now != nil {
			w.now = now
		}
	}
}

func New(deps Deps, opts ...Option) *Workspace {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &Workspace{
		ingestor:       deps.Ingestor,
		renders:        deps.Renders,
		history:        deps.History,
		prefs:          deps.Prefs,
		backend:        deps.Backend,
		fetcher:        deps.Fetcher,
		logger:         logger,
		viewerScale:    render.DefaultViewerScale,
		thumbnailScale: render.DefaultThumbnailScale,
		chatTimeout:    conversation.DefaultTimeout,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	w.state = NewState(w.now)
	w.chat = conversation.NewEngine(deps.Backend, w.chatOptions,
		conversation.WithTimeout(w.chatTimeout),
		conversation.WithLogger(logger.Named("conversation")),
	)
	w.history.SetPinned(w.isCurrentSource)
	return w
}

// Bootstrap loads persisted preferences.
func (w *Workspace) Bootstrap(ctx context.Context) error {
	if err := w.prefs.Load(ctx); err != nil {
		return fmt.Errorf("load preferences: %w", err)
	}
	return nil
}

func (w *Workspace) chatOptions() conversation.Options {
	return conversation.Options{
		Difficulty:   w.state.Difficulty(),
		SystemPrompt: w.prefs.SystemPrompt().Text,
		Model:        w.prefs.Model().ID,
		Credential:   w.prefs.Credential(),
	}
}

func (w *Workspace) isCurrentSource(h blob.Handle) bool {
	doc := w.state.Document()
	return doc != nil && doc.Source == h
}

// Open ingests raw and makes it the current document. A parse failure
// leaves the session as it was.
func (w *Workspace) Open(ctx context.Context, raw []byte, name string, opts ...document.Option) (*document.Document, error) {
	doc, err := w.ingestor.Ingest(ctx, raw, name, opts...)
	if err != nil {
		return nil, err
	}
	if err := w.adopt(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// OpenFile ingests a local PDF.
func (w *Workspace) OpenFile(ctx context.Context, path string) (*document.Document, error) {
	doc, err := w.ingestor.IngestFile(ctx, path)
	if err != nil {
		return nil, err
	}
	if err := w.adopt(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// OpenURL downloads a remote PDF and records the URL as its origin.
func (w *Workspace) OpenURL(ctx context.Context, rawURL string) (*document.Document, error) {
	if w.fetcher == nil {
		return nil, ErrNoFetcher
	}
	raw, err := w.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	return w.Open(ctx, raw, nameFromURL(rawURL), document.WithOrigin(rawURL))
}

func (w *Workspace) adopt(ctx context.Context, doc *document.Document) error {
	path, err := w.ingestor.Path(ctx, doc)
	if err != nil {
		_ = w.ingestor.Release(ctx, doc)
		return fmt.Errorf("resolve document bytes: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	prev := w.state.Document()
	if prev != nil {
		if err := w.snapshotLocked(ctx); err != nil {
			w.logger.Warn("snapshot before switching failed", zap.String("document_id", prev.ID), zap.Error(err))
		}
	}
	w.state.SetDocument(doc)
	w.renders.Bind(doc.ID, path, doc.TotalPages)
	w.chat.Clear()
	w.releaseIfOrphan(ctx, prev)
	w.logger.Info("document opened",
		zap.String("document_id", doc.ID),
		zap.String("name", doc.Name),
		zap.Int("pages", doc.TotalPages),
	)
	return nil
}

// releaseIfOrphan frees doc's bytes unless history or the current document
// still refers to them.
func (w *Workspace) releaseIfOrphan(ctx context.Context, doc *document.Document) {
	if doc == nil || doc.Source == "" || w.isCurrentSource(doc.Source) {
		return
	}
	if w.history.OwnsSource(ctx, doc.Source) {
		return
	}
	if err := w.ingestor.Release(ctx, doc); err != nil {
		w.logger.Warn("release document bytes failed", zap.String("document_id", doc.ID), zap.Error(err))
	}
}

// Document returns the current document or nil.
func (w *Workspace) Document() *document.Document {
	return w.state.Document()
}

func (w *Workspace) CurrentPage() int {
	return w.state.CurrentPage()
}

func (w *Workspace) State() *State {
	return w.state
}

// GoToPage clamps n into range and returns the applied page.
func (w *Workspace) GoToPage(n int) int {
	return w.state.SetCurrentPage(n)
}

func (w *Workspace) NextPage() int {
	return w.state.SetCurrentPage(w.state.CurrentPage() + 1)
}

func (w *Workspace) PrevPage() int {
	return w.state.SetCurrentPage(w.state.CurrentPage() - 1)
}

// RenderPage renders the current page at viewer scale.
func (w *Workspace) RenderPage(ctx context.Context) (image.Image, error) {
	doc := w.state.Document()
	if doc == nil {
		return nil, ErrNoDocument
	}
	return w.renders.GetOrRender(ctx, doc.ID, w.state.CurrentPage(), w.viewerScale)
}

// Thumbnail renders page at thumbnail scale.
func (w *Workspace) Thumbnail(ctx context.Context, page int) (image.Image, error) {
	doc := w.state.Document()
	if doc == nil {
		return nil, ErrNoDocument
	}
	return w.renders.GetOrRender(ctx, doc.ID, page, w.thumbnailScale)
}

// Explain asks for an explanation of the current page at the selected difficulty.
func (w *Workspace) Explain(ctx context.Context) error {
	doc := w.state.Document()
	if doc == nil {
		return ErrNoDocument
	}
	page := w.state.CurrentPage()
	w.chat.ExplainPage(ctx, doc.PageText(page), page)
	return nil
}

// Ask sends a free-form question. A document is not required.
func (w *Workspace) Ask(ctx context.Context, text string) error {
	return w.chat.SubmitUserMessage(ctx, text)
}

func (w *Workspace) Messages() []conversation.Message {
	return w.chat.Messages()
}

func (w *Workspace) IsLoading() bool {
	return w.chat.IsLoading()
}

// Snapshot saves the current document, page and conversation to history.
func (w *Workspace) Snapshot(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshotLocked(ctx)
}

func (w *Workspace) snapshotLocked(ctx context.Context) error {
	doc := w.state.Document()
	if doc == nil {
		return ErrNoDocument
	}
	return w.history.Save(ctx, doc, w.state.CurrentPage(), w.chat.Messages())
}

// Close snapshots the current document and returns to the empty state.
func (w *Workspace) Close(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	doc := w.state.Document()
	if doc == nil {
		return nil
	}
	snapErr := w.snapshotLocked(ctx)
	if snapErr != nil {
		w.logger.Warn("snapshot on close failed", zap.String("document_id", doc.ID), zap.Error(snapErr))
	}
	w.state.ClearDocument()
	w.renders.Clear()
	w.chat.Clear()
	w.releaseIfOrphan(ctx, doc)
	return snapErr
}

// Restore replays the history entry id. The current document is saved
// first only once the replay succeeded, so a failed restore changes nothing.
func (w *Workspace) Restore(ctx context.Context, id string) (*history.Replay, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	prev := w.state.Document()
	if prev != nil && prev.ID == id {
		if err := w.snapshotLocked(ctx); err != nil {
			return nil, err
		}
		entry, err := w.history.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		return &history.Replay{
			Entry:       entry,
			Document:    prev,
			CurrentPage: w.state.CurrentPage(),
			Messages:    w.chat.Messages(),
		}, nil
	}

	replay, err := w.history.Load(ctx, id)
	if err != nil {
		w.logger.Warn("history replay failed", zap.String("document_id", id), zap.Error(err))
		return nil, err
	}
	path, err := w.ingestor.Path(ctx, replay.Document)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", history.ErrReplayFailed, err)
	}

	if prev != nil {
		if err := w.snapshotLocked(ctx); err != nil {
			w.logger.Warn("snapshot before restore failed", zap.String("document_id", prev.ID), zap.Error(err))
		}
	}
	w.state.SetDocument(replay.Document)
	w.state.SetCurrentPage(replay.CurrentPage)
	w.renders.Bind(replay.Document.ID, path, replay.Document.TotalPages)
	w.chat.Replace(replay.Messages)
	w.releaseIfOrphan(ctx, prev)
	w.logger.Info("history restored",
		zap.String("document_id", id),
		zap.Int("page", replay.CurrentPage),
		zap.Int("messages", len(replay.Messages)),
	)
	return replay, nil
}

func (w *Workspace) History(ctx context.Context) ([]history.Entry, error) {
	return w.history.List(ctx)
}

func (w *Workspace) RemoveHistory(ctx context.Context, id string) error {
	return w.history.Remove(ctx, id)
}

func (w *Workspace) ClearHistory(ctx context.Context) error {
	return w.history.Clear(ctx)
}

// Selection reports the difficulty, model and prompt the next request uses.
func (w *Workspace) Selection() Selection {
	return Selection{
		Difficulty:    w.state.Difficulty(),
		Model:         w.prefs.Model(),
		Prompt:        w.prefs.SystemPrompt(),
		HasCredential: w.prefs.Credential() != "",
	}
}

func (w *Workspace) SetDifficulty(d conversation.Difficulty) {
	w.state.SetDifficulty(d)
}

// CycleDifficulty advances to the next level and returns it.
func (w *Workspace) CycleDifficulty() conversation.Difficulty {
	next := w.state.Difficulty().Next()
	w.state.SetDifficulty(next)
	return next
}

// SetCredential validates the format and stores credential.
func (w *Workspace) SetCredential(ctx context.Context, credential string) error {
	if credential != "" {
		if err := w.backend.ValidateCredential(credential); err != nil {
			return err
		}
	}
	return w.prefs.SetCredential(ctx, credential)
}

// TestConnection checks credential against the selected model without
// changing any selection.
func (w *Workspace) TestConnection(ctx context.Context, credential string) bool {
	if credential == "" {
		credential = w.prefs.Credential()
	}
	return w.chat.TestConnection(ctx, credential, w.prefs.Model().ID)
}

// RefreshModels returns the built-in list without a credential, otherwise
// the filtered remote list (empty on failure).
func (w *Workspace) RefreshModels(ctx context.Context) []llm.ModelInfo {
	return w.prefs.Models(ctx, w.chat)
}

// SelectModel persists id as the model for later requests.
func (w *Workspace) SelectModel(ctx context.Context, id string) error {
	known := append(w.chat.Models(), w.backend.FallbackModels()...)
	for _, m := range known {
		if m.ID == id {
			return w.prefs.SetModel(ctx, m)
		}
	}
	return w.prefs.SetModel(ctx, llm.ModelInfo{ID: id, Provenance: llm.ProvenanceRemote})
}

func (w *Workspace) SelectPrompt(ctx context.Context, id string) error {
	return w.prefs.SetSystemPrompt(ctx, id)
}

func (w *Workspace) Prompts() []preferences.Prompt {
	return w.prefs.Prompts()
}

func (w *Workspace) AddPrompt(ctx context.Context, name, text string) (preferences.Prompt, error) {
	return w.prefs.AddCustomPrompt(ctx, name, text)
}

func (w *Workspace) RemovePrompt(ctx context.Context, id string) error {
	return w.prefs.RemoveCustomPrompt(ctx, id)
}

func nameFromURL(rawURL string) string {
	name := "document.pdf"
	if parsed, err := url.Parse(rawURL); err == nil {
		if base := path.Base(parsed.Path); base != "." && base != "/" && base != "" {
			name = base
		}
	}
	if !strings.HasSuffix(strings.ToLower(name), ".pdf") {
		name += ".pdf"
	}
	return name
}
