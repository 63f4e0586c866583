// Package render rasterizes document pages through an LRU-bounded cache
// that coalesces concurrent requests for the same page image.
package render

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultEntries        = 64
	DefaultViewerScale    = 1.5
	DefaultThumbnailScale = 0.2
)

var (
	// ErrStaleDocument is returned for requests that do not target the bound document.
	ErrStaleDocument  = errors.New("render: document is not current")
	ErrPageOutOfRange = errors.New("render: page out of range")
)

// Key identifies one rendered image. Scales never share entries.
type Key struct {
	DocumentID string
	Page       int
	Scale      float64
}

// PageError reports a failed render of a single page.
type PageError struct {
	DocumentID string
	Page       int
	Err        error
}

func (e *PageError) Error() string {
	return fmt.Sprintf("render page %d: %v", e.Page, e.Err)
}

func (e *PageError) Unwrap() error {
	return e.Err
}

// Cache owns rendered page images for the currently bound document.
type Cache struct {
	engine  Engine
	logger  *zap.Logger
	entries *lru.Cache
	group   singleflight.Group
	renders atomic.Int64

	mu         sync.Mutex
	generation uint64
	documentID string
	path       string
	totalPages int
}

func NewCache(engine Engine, size int, logger *zap.Logger) (*Cache, error) {
	if size <= 0 {
		size = DefaultEntries
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	entries, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &Cache{engine: engine, logger: logger, entries: entries}, nil
}

// Bind makes docID the current document and drops every cached image.
func (c *Cache) Bind(docID, path string, totalPages int) {
	c.mu.Lock()
	c.generation++
	c.documentID = docID
	c.path = path
	c.totalPages = totalPages
	c.entries.Purge()
	c.mu.Unlock()
}

// Clear drops every cached image and unbinds the current document.
func (c *Cache) Clear() {
	c.Bind("", "", 0)
}

// GetOrRender returns the image for page of docID at scale, rendering it at
// most once no matter how many callers ask concurrently.
func (c *Cache) GetOrRender(ctx context.Context, docID string, page int, scale float64) (image.Image, error) {
	c.mu.Lock()
	if docID == "" || docID != c.documentID {
		c.mu.Unlock()
		return nil, ErrStaleDocument
	}
	if page < 1 || page > c.totalPages {
		c.mu.Unlock()
		return nil, &PageError{DocumentID: docID, Page: page, Err: ErrPageOutOfRange}
	}
	generation := c.generation
	path := c.path
	c.mu.Unlock()

	key := Key{DocumentID: docID, Page: page, Scale: scale}
	if cached, ok := c.entries.Get(key); ok {
		return cached.(image.Image), nil
	}

	flight := fmt.Sprintf("%d/%s/%d/%g", generation, docID, page, scale)
	ch := c.group.DoChan(flight, func() (interface{}, error) {
		return c.render(context.WithoutCancel(ctx), generation, path, key)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if !c.isCurrent(generation) {
			return nil, ErrStaleDocument
		}
		return res.Val.(image.Image), nil
	}
}

func (c *Cache) render(ctx context.Context, generation uint64, path string, key Key) (image.Image, error) {
	start := time.Now()
	c.renders.Add(1)
	img, err := c.engine.Render(ctx, path, key.Page, key.Scale)
	if err != nil {
		c.logger.Warn("page render failed",
			zap.String("document_id", key.DocumentID),
			zap.Int("page", key.Page),
			zap.Float64("scale", key.Scale),
			zap.Error(err),
		)
		return nil, &PageError{DocumentID: key.DocumentID, Page: key.Page, Err: err}
	}

	c.mu.Lock()
	committed := c.generation == generation
	if committed {
		c.entries.Add(key, img)
	}
	c.mu.Unlock()

	c.logger.Debug("page rendered",
		zap.String("document_id", key.DocumentID),
		zap.Int("page", key.Page),
		zap.Float64("scale", key.Scale),
		zap.Bool("committed", committed),
		zap.Duration("elapsed", time.Since(start)),
	)
	return img, nil
}

func (c *Cache) isCurrent(generation uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation == generation
}

// Current returns the bound document id, or "" when unbound.
func (c *Cache) Current() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.documentID
}

// Len reports the number of cached images.
func (c *Cache) Len() int {
	return c.entries.Len()
}

// Renders reports how many times the engine has been invoked.
func (c *Cache) Renders() int64 {
	return c.renders.Load()
}
