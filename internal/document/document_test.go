package document

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/csheth/pagetutor/internal/blob"
	"github.com/csheth/pagetutor/internal/document/documenttest"
)

func newTestIngestor(t *testing.T) (*Ingestor, *blob.DiskStore) {
	t.Helper()
	store, err := blob.NewDiskStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewDiskStore: %v", err)
	}
	return NewIngestor(store, nil), store
}

func TestIngestExtractsPerPageText(t *testing.T) {
	t.Parallel()
	in, store := newTestIngestor(t)
	raw := documenttest.BuildPDF("Cells divide   by mitosis", "", "Energy flows through ecosystems")

	doc, err := in.Ingest(context.Background(), raw, "biology.pdf")
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if doc.TotalPages != 3 || len(doc.Pages) != 3 {
		t.Fatalf("expected 3 pages, got total=%d len=%d", doc.TotalPages, len(doc.Pages))
	}
	for i, page := range doc.Pages {
		if page.Number != i+1 {
			t.Fatalf("page %d numbered %d", i, page.Number)
		}
	}
	if !strings.Contains(doc.PageText(1), "Cells divide by mitosis") {
		t.Fatalf("page 1 text not normalized: %q", doc.PageText(1))
	}
	if doc.PageText(2) != "" {
		t.Fatalf("blank page should have empty text, got %q", doc.PageText(2))
	}
	if !strings.Contains(doc.PageText(3), "Energy flows") {
		t.Fatalf("page 3 text missing: %q", doc.PageText(3))
	}
	if doc.PageText(0) != "" || doc.PageText(4) != "" {
		t.Fatalf("out of range pages should be empty")
	}
	if doc.Name != "biology.pdf" {
		t.Fatalf("unexpected name %q", doc.Name)
	}
	if !store.Owns(doc.Source) {
		t.Fatalf("source %q should be allocated in the store", doc.Source)
	}
}

func TestIngestMintsFreshIdentity(t *testing.T) {
	t.Parallel()
	in, _ := newTestIngestor(t)
	raw := documenttest.BuildPDF("same bytes")
	ctx := context.Background()

	first, err := in.Ingest(ctx, raw, "a.pdf")
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	second, err := in.Ingest(ctx, raw, "a.pdf")
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if first.ID == "" || first.ID == second.ID {
		t.Fatalf("expected distinct ids, got %q and %q", first.ID, second.ID)
	}
	if first.Source == second.Source {
		t.Fatalf("expected distinct sources")
	}
}

func TestIngestOptionsKeepIdentityAndSource(t *testing.T) {
	t.Parallel()
	in, store := newTestIngestor(t)
	raw := documenttest.BuildPDF("replayed")
	ctx := context.Background()
	h, err := store.Put(ctx, "kept.pdf", raw)
	if err != nil {
		t.Fatalf("put: %v", err)
	}

	doc, err := in.Ingest(ctx, raw, "kept.pdf", WithID("hist-1"), WithSource(h), WithOrigin("https://example.com/kept.pdf"))
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if doc.ID != "hist-1" || doc.Source != h || doc.Origin != "https://example.com/kept.pdf" {
		t.Fatalf("options not applied: %+v", doc)
	}
	entries, err := os.ReadDir(filepath.Dir(mustPath(t, store, h)))
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected no extra blob, found %d files", len(entries))
	}
}

func TestIngestRejectsNonPDF(t *testing.T) {
	t.Parallel()
	cases := map[string][]byte{
		"empty":     nil,
		"text":      []byte("definitely not a pdf"),
		"truncated": documenttest.BuildPDF("cut short")[:40],
	}
	for name, raw := range cases {
		in, store := newTestIngestor(t)
		_, err := in.Ingest(context.Background(), raw, name+".pdf")
		if !errors.Is(err, ErrUnsupportedFormat) {
			t.Fatalf("%s: expected ErrUnsupportedFormat, got %v", name, err)
		}
		entries, _ := os.ReadDir(store.Dir())
		if len(entries) != 0 {
			t.Fatalf("%s: blob allocated for rejected input", name)
		}
	}
}

func TestIngestFileRecordsOrigin(t *testing.T) {
	t.Parallel()
	in, _ := newTestIngestor(t)
	path := documenttest.WritePDF(t, "notes.pdf", "Chapter one")

	doc, err := in.IngestFile(context.Background(), path)
	if err != nil {
		t.Fatalf("ingest file: %v", err)
	}
	if doc.Origin != path {
		t.Fatalf("origin = %q, want %q", doc.Origin, path)
	}
	if doc.Name != "notes.pdf" {
		t.Fatalf("name = %q", doc.Name)
	}
}

func TestReleaseFreesSource(t *testing.T) {
	t.Parallel()
	in, store := newTestIngestor(t)
	ctx := context.Background()
	doc, err := in.Ingest(ctx, documenttest.BuildPDF("x"), "x.pdf")
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if err := in.Release(ctx, doc); err != nil {
		t.Fatalf("release: %v", err)
	}
	if _, err := store.Open(ctx, doc.Source); !errors.Is(err, blob.ErrNotFound) {
		t.Fatalf("expected released source, got %v", err)
	}
}

func TestParseSeparatesShowTextItems(t *testing.T) {
	t.Parallel()
	raw := documenttest.BuildPDFContent(
		"BT /F1 12 Tf 72 720 Td (Hello) Tj 60 0 Td (World) Tj ET",
		"BT /F1 12 Tf 72 720 Td [(Mito) -20 (chondria)] TJ 0 -14 Td (make ATP) ' ET",
	)
	pages, err := Parse(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(pages) != 2 {
		t.Fatalf("expected 2 pages, got %d", len(pages))
	}
	if pages[0].Text != "Hello World" {
		t.Fatalf("page 1 = %q, want %q", pages[0].Text, "Hello World")
	}
	if pages[1].Text != "Mitochondria make ATP" {
		t.Fatalf("page 2 = %q, want %q", pages[1].Text, "Mitochondria make ATP")
	}
}

func TestNormalizeText(t *testing.T) {
	t.Parallel()
	if got := NormalizeText("  a\n\tb   c \r\n"); got != "a b c" {
		t.Fatalf("NormalizeText = %q", got)
	}
}

func mustPath(t *testing.T, store blob.Store, h blob.Handle) string {
	t.Helper()
	path, err := store.Path(context.Background(), h)
	if err != nil {
		t.Fatalf("path: %v", err)
	}
	return path
}
