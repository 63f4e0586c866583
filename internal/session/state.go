// Package session holds the reader's current document, page and
// difficulty, and the Workspace that drives every other component from them.
package session

import (
	"sync"
	"time"

	"github.com/csheth/pagetutor/internal/conversation"
	"github.com/csheth/pagetutor/internal/document"
)

// State is the current document and page. The page is 0 exactly when no
// document is current.
type State struct {
	now func() time.Time

	mu         sync.RWMutex
	doc        *document.Document
	page       int
	lastViewed time.Time
	difficulty conversation.Difficulty
}

func NewState(now func() time.Time) *State {
	if now == nil {
		now = time.Now
	}
	return &State{now: now, difficulty: conversation.DefaultDifficulty}
}

// SetDocument makes doc current at page 1 and stamps the view time. The
// state keeps its own copy so the ingested value is left untouched.
func (s *State) SetDocument(doc *document.Document) {
	if doc == nil {
		s.ClearDocument()
		return
	}
	held := *doc
	s.mu.Lock()
	s.doc = &held
	s.page = 1
	s.lastViewed = s.now()
	s.mu.Unlock()
}

// SetCurrentPage clamps n into the document's page range and returns the
// applied page. With no document it does nothing and returns 0.
func (s *State) SetCurrentPage(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return 0
	}
	switch {
	case n < 1:
		n = 1
	case n > s.doc.TotalPages:
		n = s.doc.TotalPages
	}
	s.page = n
	return n
}

func (s *State) ClearDocument() {
	s.mu.Lock()
	s.doc = nil
	s.page = 0
	s.lastViewed = time.Time{}
	s.mu.Unlock()
}

func (s *State) Document() *document.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc
}

func (s *State) HasDocument() bool {
	return s.Document() != nil
}

func (s *State) CurrentPage() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.page
}

func (s *State) LastViewed() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastViewed
}

func (s *State) Difficulty() conversation.Difficulty {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.difficulty
}

func (s *State) SetDifficulty(d conversation.Difficulty) {
	s.mu.Lock()
	s.difficulty = d
	s.mu.Unlock()
}
