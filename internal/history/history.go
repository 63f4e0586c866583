// Package history keeps a bounded, most-recently-viewed list of documents
// with their conversation snapshots and replays them on demand.
package history

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/csheth/pagetutor/internal/blob"
	"github.com/csheth/pagetutor/internal/conversation"
	"github.com/csheth/pagetutor/internal/document"
	"github.com/csheth/pagetutor/internal/storage"
)

const DefaultCapacity = 10

var (
	ErrNotFound     = errors.New("history: entry not found")
	ErrReplayFailed = errors.New("history: replay failed")
)

// Entry is one persisted snapshot.
type Entry struct {
	ID          string                 `json:"id"`
	Name        string                 `json:"name"`
	TotalPages  int                    `json:"totalPages"`
	LastViewed  time.Time              `json:"lastViewed"`
	CurrentPage int                    `json:"currentPage"`
	Source      blob.Handle            `json:"source"`
	Origin      string                 `json:"origin,omitempty"`
	Messages    []conversation.Message `json:"messages"`
}

// Replay is a restored session: the re-ingested document, its transcript
// and the page to show.
type Replay struct {
	Entry       Entry
	Document    *document.Document
	CurrentPage int
	Messages    []conversation.Message
}

// Fetcher re-acquires bytes for remote origins.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) ([]byte, error)
}

type Store struct {
	records  storage.Store
	ingestor *document.Ingestor
	fetcher  Fetcher
	logger   *zap.Logger
	capacity int
	now      func() time.Time

	mu     sync.Mutex
	pinned func(blob.Handle) bool
}

type Option func(*Store)

func WithCapacity(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.capacity = n
		}
	}
}

func WithFetcher(f Fetcher) Option {
	return func(s *Store) { s.fetcher = f }
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

func New(records storage.Store, ingestor *document.Ingestor, opts ...Option) *Store {
	s := &Store{
		records:  records,
		ingestor: ingestor,
		logger:   zap.NewNop(),
		capacity: DefaultCapacity,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetPinned registers a predicate for byte sources that must survive
// eviction, such as the one backing the open document.
func (s *Store) SetPinned(fn func(blob.Handle) bool) {
	s.mu.Lock()
	s.pinned = fn
	s.mu.Unlock()
}

// Save upserts the snapshot for doc, moves it to the front and trims the
// list to capacity. Sources of evicted entries are released.
func (s *Store) Save(ctx context.Context, doc *document.Document, currentPage int, messages []conversation.Message) error {
	if doc == nil {
		return errors.New("history: nil document")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.loadLocked(ctx)
	if err != nil {
		return err
	}

	entry := Entry{
		ID:          doc.ID,
		Name:        doc.Name,
		TotalPages:  doc.TotalPages,
		LastViewed:  s.now(),
		CurrentPage: clampPage(currentPage, doc.TotalPages),
		Source:      doc.Source,
		Origin:      doc.Origin,
		Messages:    append([]conversation.Message{}, messages...),
	}

	var replacedSource blob.Handle
	next := make([]Entry, 0, len(entries)+1)
	next = append(next, entry)
	for _, existing := range entries {
		if existing.ID == entry.ID {
			replacedSource = existing.Source
			continue
		}
		next = append(next, existing)
	}
	sort.SliceStable(next, func(i, j int) bool {
		return next[i].LastViewed.After(next[j].LastViewed)
	})

	var evicted []Entry
	if len(next) > s.capacity {
		evicted = append(evicted, next[s.capacity:]...)
		next = next[:s.capacity]
	}

	if err := s.storeLocked(ctx, next); err != nil {
		return err
	}
	s.logger.Info("history saved",
		zap.String("document_id", entry.ID),
		zap.Int("page", entry.CurrentPage),
		zap.Int("messages", len(entry.Messages)),
		zap.Int("entries", len(next)),
	)

	if replacedSource != "" && replacedSource != entry.Source {
		s.releaseLocked(ctx, replacedSource)
	}
	for _, e := range evicted {
		s.logger.Info("history entry evicted", zap.String("document_id", e.ID))
		s.releaseLocked(ctx, e.Source)
	}
	return nil
}

// Load replays the entry for id. When the stored source is no longer
// usable the bytes are re-acquired from the origin and the entry is updated
// to the new source. On failure the history list is left as it was.
func (s *Store) Load(ctx context.Context, id string) (*Replay, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.loadLocked(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReplayFailed, err)
	}
	idx := indexOf(entries, id)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %w", ErrReplayFailed, ErrNotFound)
	}
	entry := entries[idx]
	blobs := s.ingestor.Blobs()

	source := entry.Source
	raw, err := blobs.Open(ctx, source)
	reacquired := false
	if err != nil {
		s.logger.Warn("history source unusable, re-acquiring",
			zap.String("document_id", entry.ID),
			zap.String("source", string(source)),
			zap.Error(err),
		)
		raw, err = s.reacquire(ctx, entry.Origin)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrReplayFailed, err)
		}
		source, err = blobs.Put(ctx, entry.Name, raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrReplayFailed, err)
		}
		reacquired = true
	}

	doc, err := s.ingestor.Ingest(ctx, raw, entry.Name,
		document.WithID(entry.ID),
		document.WithSource(source),
		document.WithOrigin(entry.Origin),
	)
	if err != nil {
		if reacquired {
			_ = blobs.Release(ctx, source)
		}
		return nil, fmt.Errorf("%w: %w", ErrReplayFailed, err)
	}

	if reacquired {
		entries[idx].Source = source
		if err := s.storeLocked(ctx, entries); err != nil {
			_ = blobs.Release(ctx, source)
			return nil, fmt.Errorf("%w: %w", ErrReplayFailed, err)
		}
		entry.Source = source
	}

	return &Replay{
		Entry:       entry,
		Document:    doc,
		CurrentPage: clampPage(entry.CurrentPage, doc.TotalPages),
		Messages:    append([]conversation.Message{}, entry.Messages...),
	}, nil
}

func (s *Store) reacquire(ctx context.Context, origin string) ([]byte, error) {
	if origin == "" {
		return nil, errors.New("no origin recorded")
	}
	if blob.Handle(origin).IsRemote() {
		if s.fetcher == nil {
			return nil, fmt.Errorf("no fetcher for %s", origin)
		}
		return s.fetcher.Fetch(ctx, origin)
	}
	return os.ReadFile(origin)
}

// List returns the entries newest first.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(ctx)
}

func (s *Store) Get(ctx context.Context, id string) (Entry, error) {
	entries, err := s.List(ctx)
	if err != nil {
		return Entry{}, err
	}
	if idx := indexOf(entries, id); idx >= 0 {
		return entries[idx], nil
	}
	return Entry{}, ErrNotFound
}

func (s *Store) Has(ctx context.Context, id string) bool {
	_, err := s.Get(ctx, id)
	return err == nil
}

// OwnsSource reports whether any entry references h.
func (s *Store) OwnsSource(ctx context.Context, h blob.Handle) bool {
	entries, err := s.List(ctx)
	if err != nil {
		return false
	}
	for _, e := range entries {
		if e.Source == h {
			return true
		}
	}
	return false
}

// Remove deletes the entry for id and releases its source.
func (s *Store) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, err := s.loadLocked(ctx)
	if err != nil {
		return err
	}
	idx := indexOf(entries, id)
	if idx < 0 {
		return ErrNotFound
	}
	removed := entries[idx]
	entries = append(entries[:idx], entries[idx+1:]...)
	if err := s.storeLocked(ctx, entries); err != nil {
		return err
	}
	s.releaseLocked(ctx, removed.Source)
	return nil
}

// Clear drops every entry and releases their sources.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, err := s.loadLocked(ctx)
	if err != nil {
		return err
	}
	if err := s.records.Delete(ctx, storage.KeyHistory); err != nil {
		return err
	}
	for _, e := range entries {
		s.releaseLocked(ctx, e.Source)
	}
	return nil
}

func (s *Store) loadLocked(ctx context.Context) ([]Entry, error) {
	var entries []Entry
	err := storage.GetJSON(ctx, s.records, storage.KeyHistory, &entries)
	if errors.Is(err, storage.ErrNotFound) {
		return []Entry{}, nil
	}
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *Store) storeLocked(ctx context.Context, entries []Entry) error {
	if entries == nil {
		entries = []Entry{}
	}
	return storage.SetJSON(ctx, s.records, storage.KeyHistory, entries)
}

func (s *Store) releaseLocked(ctx context.Context, h blob.Handle) {
	if h == "" {
		return
	}
	if s.pinned != nil && s.pinned(h) {
		return
	}
	if err := s.ingestor.Blobs().Release(ctx, h); err != nil {
		s.logger.Warn("release history source failed", zap.String("source", string(h)), zap.Error(err))
	}
}

func indexOf(entries []Entry, id string) int {
	for i, e := range entries {
		if e.ID == id {
			return i
		}
	}
	return -1
}

func clampPage(page, total int) int {
	if total < 1 {
		return 1
	}
	if page < 1 {
		return 1
	}
	if page > total {
		return total
	}
	return page
}
