// Package document turns raw PDF bytes into an immutable, page-indexed
// text model with a fresh identity and a byte-source handle.
package document

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"

	"github.com/csheth/pagetutor/internal/blob"
)

var ErrUnsupportedFormat = errors.New("document: unsupported format")

var whitespaceRun = regexp.MustCompile(`\s+`)

// Page is the extracted text of one page, numbered from 1.
type Page struct {
	Number int    `json:"number"`
	Text   string `json:"text"`
}

// Document is never mutated after ingestion. Navigation state lives in the session.
type Document struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	TotalPages int         `json:"totalPages"`
	Pages      []Page      `json:"pages"`
	Source     blob.Handle `json:"source"`
	Origin     string      `json:"origin,omitempty"`
	IngestedAt time.Time   `json:"ingestedAt"`
}

// PageText returns the text of page n, or "" when n is out of range.
func (d *Document) PageText(n int) string {
	if d == nil || n < 1 || n > len(d.Pages) {
		return ""
	}
	return d.Pages[n-1].Text
}

type options struct {
	id     string
	source blob.Handle
	origin string
}

type Option func(*options)

// WithID keeps an existing identity instead of minting a new one.
func WithID(id string) Option {
	return func(o *options) { o.id = strings.TrimSpace(id) }
}

// WithSource reuses an already stored byte source.
func WithSource(h blob.Handle) Option {
	return func(o *options) { o.source = h }
}

// WithOrigin records where the bytes were obtained (a local path or URL).
func WithOrigin(origin string) Option {
	return func(o *options) { o.origin = strings.TrimSpace(origin) }
}

// Ingestor parses documents and allocates their byte sources.
type Ingestor struct {
	blobs  blob.Store
	logger *zap.Logger
}

func NewIngestor(blobs blob.Store, logger *zap.Logger) *Ingestor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ingestor{blobs: blobs, logger: logger}
}

// Ingest parses raw and returns a new Document. A blob is allocated only
// after the bytes parse successfully.
func (in *Ingestor) Ingest(ctx context.Context, raw []byte, fileName string, opts ...Option) (*Document, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	pages, err := Parse(raw)
	if err != nil {
		in.logger.Warn("document parse failed", zap.String("name", fileName), zap.Error(err))
		return nil, err
	}

	source := o.source
	if source == "" {
		source, err = in.blobs.Put(ctx, fileName, raw)
		if err != nil {
			return nil, fmt.Errorf("store document bytes: %w", err)
		}
	}

	id := o.id
	if id == "" {
		id = uuid.NewString()
	}
	doc := &Document{
		ID:         id,
		Name:       fileName,
		TotalPages: len(pages),
		Pages:      pages,
		Source:     source,
		Origin:     o.origin,
		IngestedAt: time.Now(),
	}
	in.logger.Info("document ingested",
		zap.String("document_id", doc.ID),
		zap.String("name", doc.Name),
		zap.Int("pages", doc.TotalPages),
	)
	return doc, nil
}

// IngestFile reads a local PDF and records its absolute path as origin.
func (in *Ingestor) IngestFile(ctx context.Context, path string, opts ...Option) (*Document, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(abs)
	if err != nil {
		return nil, err
	}
	opts = append([]Option{WithOrigin(abs)}, opts...)
	return in.Ingest(ctx, raw, filepath.Base(abs), opts...)
}

// Release frees the byte source held by doc.
func (in *Ingestor) Release(ctx context.Context, doc *Document) error {
	if doc == nil || doc.Source == "" {
		return nil
	}
	return in.blobs.Release(ctx, doc.Source)
}

// Path resolves a local file for doc's byte source.
func (in *Ingestor) Path(ctx context.Context, doc *Document) (string, error) {
	return in.blobs.Path(ctx, doc.Source)
}

// Blobs exposes the underlying byte store.
func (in *Ingestor) Blobs() blob.Store {
	return in.blobs
}

// Parse extracts per-page text. Pages without a text layer yield "".
func Parse(raw []byte) (pages []Page, err error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrUnsupportedFormat)
	}
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = fmt.Errorf("%w: %v", ErrUnsupportedFormat, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	total := reader.NumPage()
	if total == 0 {
		return nil, fmt.Errorf("%w: no pages", ErrUnsupportedFormat)
	}

	pages = make([]Page, 0, total)
	for i := 1; i <= total; i++ {
		pages = append(pages, Page{Number: i, Text: pageText(reader.Page(i))})
	}
	return pages, nil
}

// pageText joins the page's show-text items with single spaces, in
// content-stream order.
func pageText(page pdf.Page) string {
	if page.V.IsNull() {
		return ""
	}
	contents := page.V.Key("Contents")
	var items []string
	if contents.Kind() == pdf.Array {
		for i := 0; i < contents.Len(); i++ {
			items = appendTextItems(items, page, contents.Index(i))
		}
	} else {
		items = appendTextItems(items, page, contents)
	}
	return NormalizeText(strings.Join(items, " "))
}

func appendTextItems(items []string, page pdf.Page, stream pdf.Value) []string {
	if stream.IsNull() {
		return items
	}
	var enc pdf.TextEncoding = rawEncoding{}
	show := func(raw string) {
		if text := enc.Decode(raw); strings.TrimSpace(text) != "" {
			items = append(items, text)
		}
	}
	pdf.Interpret(stream, func(stk *pdf.Stack, op string) {
		n := stk.Len()
		args := make([]pdf.Value, n)
		for i := n - 1; i >= 0; i-- {
			args[i] = stk.Pop()
		}
		switch op {
		case "Tf":
			if n == 2 {
				enc = page.Font(args[0].Name()).Encoder()
			}
		case "Tj", "'":
			if n >= 1 {
				show(args[n-1].RawString())
			}
		case "\"":
			if n == 3 {
				show(args[2].RawString())
			}
		case "TJ":
			if n != 1 {
				return
			}
			var run strings.Builder
			for i := 0; i < args[0].Len(); i++ {
				if part := args[0].Index(i); part.Kind() == pdf.String {
					run.WriteString(part.RawString())
				}
			}
			show(run.String())
		}
	})
	return items
}

// rawEncoding decodes text shown before any font is selected.
type rawEncoding struct{}

func (rawEncoding) Decode(raw string) string { return raw }

// NormalizeText collapses whitespace runs to single spaces and trims the ends.
func NormalizeText(text string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(text, " "))
}
