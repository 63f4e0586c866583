package tui

import "time"

type stage int

const (
	stageIdle stage = iota
	stageLoading
	stageReading
	stageModels
	stagePrompts
)

const heroTagline = "Read a PDF page by page with an explainer at your side."

const (
	minViewportWidth          = 40
	viewportHorizontalPadding = 4
	transcriptPreviewLimit    = 240
	historyShortcutLimit      = 9
	thumbnailRadius           = 4
)

type interactionMode int

const (
	modeNormal interactionMode = iota
	modeInsert
)

type composerMode int

const (
	composerModeIdle composerMode = iota
	composerModeOpen
	composerModeAsk
	composerModeCredential
	composerModePrompt
	composerModeGoto
)

const (
	composerOpenPlaceholder       = "Path to a PDF or an http(s) URL…"
	composerAskPlaceholder        = "Ask about this page…"
	composerCredentialPlaceholder = "Paste an API key (empty clears it)…"
	composerPromptPlaceholder     = "Name: instructions for the tutor…"
	composerGotoPlaceholder       = "Page number…"
)

// transcriptEntry is one line of the session log. The conversation itself
// is read from the workspace on every refresh.
type transcriptEntry struct {
	Kind    string
	Content string
	At      time.Time
}

type renderStatus struct {
	DocumentID string
	Page       int
	Width      int
	Height     int
	Pending    bool
	Err        string
}

type thumbnailState int

const (
	thumbnailPending thumbnailState = iota
	thumbnailReady
	thumbnailFailed
)

// thumbnailStrip tracks thumbnail renders for the pages around the
// current one.
type thumbnailStrip struct {
	DocumentID string
	First      int
	States     []thumbnailState
}
