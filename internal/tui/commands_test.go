package tui

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/csheth/pagetutor/internal/document"
	"github.com/csheth/pagetutor/internal/history"
	"github.com/csheth/pagetutor/internal/llm"
	"github.com/csheth/pagetutor/internal/preferences"
	"github.com/csheth/pagetutor/internal/session"
)

func TestOpenDocumentJobRoutesByTarget(t *testing.T) {
	t.Parallel()
	cases := []struct {
		target string
		want   string
	}{
		{"/home/reader/lecture.pdf", "file:/home/reader/lecture.pdf"},
		{"https://example.com/paper.pdf", "url:https://example.com/paper.pdf"},
		{"HTTP://example.com/paper", "url:HTTP://example.com/paper"},
		{"notes/http.pdf", "file:notes/http.pdf"},
	}
	for _, tc := range cases {
		ws := newFakeWorkspace()
		msg, err := openDocumentJob(ws, tc.target)(context.Background())
		if err != nil {
			t.Fatalf("%s: unexpected error %v", tc.target, err)
		}
		if len(ws.opened) != 1 || ws.opened[0] != tc.want {
			t.Fatalf("%s: opened %v, want %s", tc.target, ws.opened, tc.want)
		}
		result, ok := msg.(documentResultMsg)
		if !ok || result.doc == nil {
			t.Fatalf("%s: unexpected payload %#v", tc.target, msg)
		}
	}
}

func TestOpenDocumentJobPropagatesError(t *testing.T) {
	t.Parallel()
	ws := newFakeWorkspace()
	ws.openErr = document.ErrUnsupportedFormat
	msg, err := openDocumentJob(ws, "broken.pdf")(context.Background())
	if !errors.Is(err, document.ErrUnsupportedFormat) {
		t.Fatalf("err = %v", err)
	}
	if result := msg.(documentResultMsg); result.err == nil || result.doc != nil {
		t.Fatalf("payload = %#v", result)
	}
}

func TestRenderPageJobReportsBounds(t *testing.T) {
	t.Parallel()
	ws := newFakeWorkspace()
	ws.doc, ws.page = fixtureDocument(), 2
	msg, err := renderPageJob(ws, "doc-1", 2)(context.Background())
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	result := msg.(renderResultMsg)
	if result.width != 918 || result.height != 1188 || result.page != 2 || result.docID != "doc-1" {
		t.Fatalf("result = %+v", result)
	}

	_, err = renderPageJob(newFakeWorkspace(), "doc-1", 1)(context.Background())
	if !errors.Is(err, session.ErrNoDocument) {
		t.Fatalf("err = %v", err)
	}
}

func TestConversationJobs(t *testing.T) {
	t.Parallel()
	ws := newFakeWorkspace()
	if _, err := explainPageJob(ws)(context.Background()); !errors.Is(err, session.ErrNoDocument) {
		t.Fatalf("explain without document err = %v", err)
	}
	ws.doc, ws.page = fixtureDocument(), 1
	msg, err := explainPageJob(ws)(context.Background())
	if err != nil || ws.explains != 1 {
		t.Fatalf("explain err=%v calls=%d", err, ws.explains)
	}
	if msg.(conversationResultMsg).kind != jobKindExplain {
		t.Fatalf("payload = %#v", msg)
	}

	if _, err := askQuestionJob(ws, "What is ATP?")(context.Background()); err != nil {
		t.Fatalf("ask: %v", err)
	}
	if len(ws.asked) != 1 || ws.asked[0] != "What is ATP?" {
		t.Fatalf("asked = %v", ws.asked)
	}
}

func TestBackendJobs(t *testing.T) {
	t.Parallel()
	ws := newFakeWorkspace()
	ws.models = []llm.ModelInfo{{ID: "gpt-4"}}

	msg, _ := refreshModelsJob(ws)(context.Background())
	if got := msg.(modelsResultMsg).models; len(got) != 1 || got[0].ID != "gpt-4" {
		t.Fatalf("models = %v", got)
	}

	msg, _ = testConnectionJob(ws)(context.Background())
	if msg.(connectionResultMsg).ok {
		t.Fatalf("connection should fail without a key")
	}

	if _, err := setCredentialJob(ws, "bad")(context.Background()); !errors.Is(err, llm.ErrInvalidCredential) {
		t.Fatalf("credential err = %v", err)
	}
	msg, err := setCredentialJob(ws, "sk-valid")(context.Background())
	if err != nil || msg.(credentialResultMsg).cleared {
		t.Fatalf("credential msg=%#v err=%v", msg, err)
	}
	msg, _ = testConnectionJob(ws)(context.Background())
	if !msg.(connectionResultMsg).ok {
		t.Fatalf("connection should pass with a key")
	}

	if _, err := selectModelJob(ws, "gpt-4")(context.Background()); err != nil || ws.selected != "gpt-4" {
		t.Fatalf("select err=%v selected=%s", err, ws.selected)
	}
}

func TestHistoryJobs(t *testing.T) {
	t.Parallel()
	ws := newFakeWorkspace()
	ws.entries = []history.Entry{{ID: "a", Name: "a.pdf", TotalPages: 2, CurrentPage: 2}}

	msg, err := loadHistoryJob(ws)(context.Background())
	if err != nil || len(msg.(historyResultMsg).entries) != 1 {
		t.Fatalf("history msg=%#v err=%v", msg, err)
	}

	if _, err := restoreHistoryJob(ws, "missing")(context.Background()); !errors.Is(err, history.ErrNotFound) {
		t.Fatalf("restore missing err = %v", err)
	}
	msg, err = restoreHistoryJob(ws, "a")(context.Background())
	if err != nil || msg.(restoreResultMsg).replay.CurrentPage != 2 {
		t.Fatalf("restore msg=%#v err=%v", msg, err)
	}

	if _, err := closeDocumentJob(ws, "a.pdf")(context.Background()); err != nil || ws.closed != 1 {
		t.Fatalf("close err=%v closed=%d", err, ws.closed)
	}
	if len(ws.restored) != 2 {
		t.Fatalf("restored = %v", ws.restored)
	}
}

func TestFriendlyError(t *testing.T) {
	t.Parallel()
	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{fmt.Errorf("ingest: %w", document.ErrUnsupportedFormat), "That file is not a readable PDF."},
		{llm.ErrInvalidCredential, "That API key does not look valid for this provider."},
		{preferences.ErrBuiltinPrompt, "Built-in prompts cannot be removed."},
		{fmt.Errorf("%w: custom-x", preferences.ErrUnknownPrompt), "That prompt no longer exists."},
		{errors.New("boom"), "boom"},
	}
	for _, tc := range cases {
		if got := friendlyError(tc.err); got != tc.want {
			t.Fatalf("friendlyError(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestThumbnailsJobStopsWhenSuperseded(t *testing.T) {
	t.Parallel()
	ws := newFakeWorkspace()
	ws.doc = fixtureDocument()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	msg, err := thumbnailsJob(ws, "doc-1", 1, 3)(ctx)
	if !errors.Is(err, context.Canceled) || msg != nil {
		t.Fatalf("msg=%v err=%v", msg, err)
	}
	if len(ws.thumbnails) != 0 {
		t.Fatalf("no pages should render after cancellation, got %v", ws.thumbnails)
	}
}
