package tui

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/csheth/pagetutor/internal/conversation"
	"github.com/csheth/pagetutor/internal/document"
	"github.com/csheth/pagetutor/internal/history"
	"github.com/csheth/pagetutor/internal/llm"
	"github.com/csheth/pagetutor/internal/preferences"
	"github.com/csheth/pagetutor/internal/render"
	"github.com/csheth/pagetutor/internal/session"
)

// Workspace is the reading session the UI drives. *session.Workspace
// satisfies it.
type Workspace interface {
	Document() *document.Document
	CurrentPage() int
	OpenFile(ctx context.Context, path string) (*document.Document, error)
	OpenURL(ctx context.Context, rawURL string) (*document.Document, error)
	GoToPage(n int) int
	NextPage() int
	PrevPage() int
	RenderPage(ctx context.Context) (image.Image, error)
	Thumbnail(ctx context.Context, page int) (image.Image, error)
	Explain(ctx context.Context) error
	Ask(ctx context.Context, text string) error
	Messages() []conversation.Message
	IsLoading() bool
	Close(ctx context.Context) error
	Restore(ctx context.Context, id string) (*history.Replay, error)
	History(ctx context.Context) ([]history.Entry, error)
	ClearHistory(ctx context.Context) error
	Selection() session.Selection
	CycleDifficulty() conversation.Difficulty
	SetCredential(ctx context.Context, credential string) error
	TestConnection(ctx context.Context, credential string) bool
	RefreshModels(ctx context.Context) []llm.ModelInfo
	SelectModel(ctx context.Context, id string) error
	Prompts() []preferences.Prompt
	SelectPrompt(ctx context.Context, id string) error
	AddPrompt(ctx context.Context, name, text string) (preferences.Prompt, error)
	RemovePrompt(ctx context.Context, id string) error
}

var _ Workspace = (*session.Workspace)(nil)

// Config wires the program to a workspace.
type Config struct {
	Workspace   Workspace
	Logger      *zap.Logger
	InitialPath string
}

type model struct {
	config Config
	ws     Workspace
	logger *zap.Logger
	now    func() time.Time

	stage        stage
	mode         interactionMode
	composerMode composerMode
	helpVisible  bool

	layout             pageLayout
	viewport           viewport.Model
	transcriptViewport viewport.Model
	composer           textinput.Model
	spinner            spinner.Model

	jobs       *jobBus
	activeJobs map[string]jobSnapshot

	transcript  []transcriptEntry
	history     []history.Entry
	models       []llm.ModelInfo
	modelCursor  int
	prompts      []preferences.Prompt
	promptCursor int
	render       renderStatus

	thumbsVisible bool
	thumbs        thumbnailStrip
	clearArmed    bool

	infoMessage  string
	errorMessage string

	viewportDirty   bool
	transcriptDirty bool
	lastMessages    int
}

// New builds the bubbletea model.
func New(cfg Config) tea.Model {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	composer := textinput.New()
	composer.Prompt = "› "
	composer.CharLimit = 4096

	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	layout := newPageLayout()
	m := &model{
		config:             cfg,
		ws:                 cfg.Workspace,
		logger:             logger,
		now:                time.Now,
		stage:              stageIdle,
		layout:             layout,
		viewport:           viewport.New(layout.viewportWidth, layout.viewportHeight),
		transcriptViewport: viewport.New(layout.viewportWidth, layout.transcriptHeight),
		composer:           composer,
		spinner:            spin,
		jobs:               newJobBus(logger.Named("jobs")),
		activeJobs:         map[string]jobSnapshot{},
		viewportDirty:      true,
		transcriptDirty:    true,
	}
	if m.ws.Document() != nil {
		m.stage = stageReading
	}
	return m
}

func (m *model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick, m.jobs.Start(jobKindHistory, loadHistoryJob(m.ws))}
	if path := strings.TrimSpace(m.config.InitialPath); path != "" {
		cmds = append(cmds, m.startOpen(path))
	}
	return tea.Batch(cmds...)
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout.Update(msg.Width, msg.Height)
		m.viewport.Width = m.layout.viewportWidth
		m.viewport.Height = m.layout.viewportHeight
		m.transcriptViewport.Width = m.layout.viewportWidth
		m.transcriptViewport.Height = m.layout.transcriptHeight
		m.composer.Width = m.layout.viewportWidth - 4
		m.markViewportDirty()
		m.markTranscriptDirty()
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if n := len(m.ws.Messages()); n != m.lastMessages || m.ws.IsLoading() {
			m.lastMessages = n
			m.markViewportDirty()
		}
		return m, cmd
	case jobSignalMsg:
		m.activeJobs[msg.Snapshot.ID] = msg.Snapshot
		return m, nil
	case jobResultEnvelope:
		delete(m.activeJobs, msg.Snapshot.ID)
		return m.handleJobResult(msg.Payload)
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *model) handleJobResult(payload tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := payload.(type) {
	case documentResultMsg:
		return m.handleDocumentResult(msg)
	case renderResultMsg:
		return m.handleRenderResult(msg)
	case conversationResultMsg:
		if msg.err != nil {
			m.setError(friendlyError(msg.err))
		}
		m.markViewportDirty()
		return m, nil
	case modelsResultMsg:
		m.models = msg.models
		m.modelCursor = 0
		current := m.ws.Selection().Model.ID
		for idx, info := range m.models {
			if info.ID == current {
				m.modelCursor = idx
			}
		}
		m.stage = stageModels
		m.appendTranscript("models", fmt.Sprintf("%d models available.", len(m.models)))
		return m, nil
	case modelSelectedMsg:
		if msg.err != nil {
			m.setError(friendlyError(msg.err))
			return m, nil
		}
		m.appendTranscript("select", "Model set to "+msg.id+".")
		return m, nil
	case connectionResultMsg:
		if msg.ok {
			m.setInfo("Connection OK.")
			m.appendTranscript("test", "Connection test passed.")
		} else {
			m.setError("Connection test failed. Check the API key and model.")
			m.appendTranscript("test", "Connection test failed.")
		}
		return m, nil
	case credentialResultMsg:
		if msg.err != nil {
			m.setError(friendlyError(msg.err))
			return m, nil
		}
		if msg.cleared {
			m.appendTranscript("credential", "API key removed.")
		} else {
			m.appendTranscript("credential", "API key saved.")
		}
		return m, nil
	case promptSelectedMsg:
		if msg.err != nil {
			m.setError(friendlyError(msg.err))
			return m, nil
		}
		m.appendTranscript("prompt", "Tutor style set to "+msg.name+".")
		return m, nil
	case promptAddedMsg:
		if msg.err != nil {
			m.setError(friendlyError(msg.err))
			return m, nil
		}
		m.setInfo("Added prompt " + msg.prompt.Name + ". Press p to use it.")
		m.appendTranscript("prompt", "Added custom prompt "+msg.prompt.Name+".")
		return m, nil
	case promptRemovedMsg:
		if msg.err != nil {
			m.setError(friendlyError(msg.err))
			return m, nil
		}
		m.prompts = m.ws.Prompts()
		if m.promptCursor >= len(m.prompts) {
			m.promptCursor = len(m.prompts) - 1
		}
		m.appendTranscript("prompt", "Removed custom prompt "+msg.name+".")
		return m, nil
	case historyClearedMsg:
		if msg.err != nil {
			m.setError("Could not clear history: " + msg.err.Error())
			return m, nil
		}
		m.setInfo("Recent documents cleared.")
		m.appendTranscript("history", "Recent list cleared.")
		return m, m.jobs.Start(jobKindHistory, loadHistoryJob(m.ws))
	case thumbnailsResultMsg:
		if msg.docID == m.thumbs.DocumentID && msg.first == m.thumbs.First && len(msg.states) == len(m.thumbs.States) {
			m.thumbs.States = msg.states
		}
		return m, nil
	case restoreResultMsg:
		return m.handleRestoreResult(msg)
	case closeResultMsg:
		if msg.err != nil {
			m.appendTranscript("error", "Could not save "+msg.name+" to history: "+msg.err.Error())
		} else if msg.name != "" {
			m.appendTranscript("close", "Closed "+msg.name+".")
		}
		m.stage = stageIdle
		m.render = renderStatus{}
		m.thumbs = thumbnailStrip{}
		m.markViewportDirty()
		return m, m.jobs.Start(jobKindHistory, loadHistoryJob(m.ws))
	case historyResultMsg:
		if msg.err != nil {
			m.appendTranscript("error", "Could not read history: "+msg.err.Error())
			return m, nil
		}
		m.history = msg.entries
		m.markViewportDirty()
		return m, nil
	}
	return m, nil
}

func (m *model) handleDocumentResult(msg documentResultMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		if m.ws.Document() == nil {
			m.stage = stageIdle
		} else {
			m.stage = stageReading
		}
		m.infoMessage = ""
		m.setError(friendlyError(msg.err))
		m.appendTranscript("error", msg.err.Error())
		return m, nil
	}
	m.stage = stageReading
	m.errorMessage = ""
	m.infoMessage = ""
	m.appendTranscript("open", fmt.Sprintf("Opened %s (%d pages).", msg.doc.Name, msg.doc.TotalPages))
	m.viewport.GotoTop()
	m.markViewportDirty()
	return m, tea.Batch(m.startRender(), m.startThumbnails(), m.jobs.Start(jobKindHistory, loadHistoryJob(m.ws)))
}

func (m *model) handleRestoreResult(msg restoreResultMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		if m.ws.Document() == nil {
			m.stage = stageIdle
		} else {
			m.stage = stageReading
		}
		m.infoMessage = ""
		m.setError(friendlyError(msg.err))
		m.appendTranscript("error", msg.err.Error())
		return m, nil
	}
	m.stage = stageReading
	m.infoMessage = ""
	m.errorMessage = ""
	m.appendTranscript("restore", fmt.Sprintf("Reopened %s at page %d.", msg.replay.Entry.Name, msg.replay.CurrentPage))
	m.viewport.GotoBottom()
	m.markViewportDirty()
	return m, tea.Batch(m.startRender(), m.startThumbnails(), m.jobs.Start(jobKindHistory, loadHistoryJob(m.ws)))
}

func (m *model) handleRenderResult(msg renderResultMsg) (tea.Model, tea.Cmd) {
	if msg.docID != m.render.DocumentID || msg.page != m.render.Page {
		return m, nil
	}
	m.render.Pending = false
	if msg.err != nil {
		if errors.Is(msg.err, render.ErrStaleDocument) {
			return m, nil
		}
		m.render.Err = msg.err.Error()
		m.appendTranscript("render", fmt.Sprintf("Page %d could not be rendered: %s", msg.page, msg.err))
		return m, nil
	}
	m.render.Err = ""
	m.render.Width = msg.width
	m.render.Height = msg.height
	return m, nil
}

func (m *model) handleKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}
	if m.composerMode != composerModeIdle {
		if cmd, handled := m.processComposerKey(key); handled {
			return m, cmd
		}
	}
	switch m.stage {
	case stageModels:
		return m.handleModelsKey(key)
	case stagePrompts:
		return m.handlePromptsKey(key)
	}
	return m.handleReaderKey(key)
}

func (m *model) processComposerKey(key tea.KeyMsg) (tea.Cmd, bool) {
	switch key.Type {
	case tea.KeyEsc:
		m.exitComposer()
		return nil, true
	case tea.KeyEnter:
		value := strings.TrimSpace(m.composer.Value())
		mode := m.composerMode
		m.exitComposer()
		return m.submitComposer(mode, value), true
	}
	var cmd tea.Cmd
	m.composer, cmd = m.composer.Update(key)
	return cmd, true
}

func (m *model) submitComposer(mode composerMode, value string) tea.Cmd {
	switch mode {
	case composerModeOpen:
		if value == "" {
			return nil
		}
		return m.startOpen(value)
	case composerModeAsk:
		if value == "" {
			return nil
		}
		m.errorMessage = ""
		m.lastMessages = -1
		m.viewport.GotoBottom()
		return tea.Batch(m.spinner.Tick, m.jobs.Start(jobKindAsk, askQuestionJob(m.ws, value)))
	case composerModeCredential:
		return m.jobs.Start(jobKindCred, setCredentialJob(m.ws, value))
	case composerModePrompt:
		if value == "" {
			return nil
		}
		name, text, ok := strings.Cut(value, ":")
		if !ok {
			m.setError(friendlyError(preferences.ErrEmptyPrompt))
			return nil
		}
		return m.jobs.Start(jobKindPrompt, addPromptJob(m.ws, name, text))
	case composerModeGoto:
		if value == "" {
			return nil
		}
		page, err := strconv.Atoi(value)
		if err != nil {
			m.setError("Enter a page number.")
			return nil
		}
		before := m.ws.CurrentPage()
		return m.pageChanged(before, m.ws.GoToPage(page))
	}
	return nil
}

func (m *model) handleReaderKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	clearArmed := m.clearArmed
	m.clearArmed = false
	switch key.Type {
	case tea.KeyEnter:
		return m, m.enterComposer(composerModeAsk)
	case tea.KeyLeft:
		return m, m.turnPage(-1)
	case tea.KeyRight:
		return m, m.turnPage(1)
	case tea.KeyEsc:
		m.helpVisible = false
		m.errorMessage = ""
		return m, nil
	case tea.KeyUp, tea.KeyDown, tea.KeyPgUp, tea.KeyPgDown:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(key)
		return m, cmd
	}

	switch s := key.String(); s {
	case "o":
		return m, m.enterComposer(composerModeOpen)
	case "q":
		return m, m.enterComposer(composerModeAsk)
	case "k":
		return m, m.enterComposer(composerModeCredential)
	case "h":
		return m, m.turnPage(-1)
	case "l":
		return m, m.turnPage(1)
	case "e":
		return m, m.actionExplainCmd()
	case "d":
		level := m.ws.CycleDifficulty()
		m.setInfo("Explanation level: " + level.Label())
		return m, nil
	case "m":
		m.setInfo("Loading models…")
		return m, m.jobs.Start(jobKindModels, refreshModelsJob(m.ws))
	case "t":
		m.setInfo("Testing connection…")
		return m, m.jobs.Start(jobKindTest, testConnectionJob(m.ws))
	case "x":
		return m, m.actionCloseCmd()
	case "p":
		m.openPromptPicker()
		return m, nil
	case "g":
		m.thumbsVisible = !m.thumbsVisible
		return m, m.startThumbnails()
	case "G":
		if m.ws.Document() == nil {
			return m, nil
		}
		return m, m.enterComposer(composerModeGoto)
	case "C":
		if len(m.history) == 0 {
			return m, nil
		}
		if !clearArmed {
			m.clearArmed = true
			m.setInfo("Press C again to clear the recent documents list.")
			return m, nil
		}
		m.infoMessage = ""
		return m, m.jobs.Start(jobKindHistoryClear, clearHistoryJob(m.ws))
	case "?":
		m.helpVisible = !m.helpVisible
		return m, nil
	case "1", "2", "3", "4", "5", "6", "7", "8", "9":
		return m, m.actionRestoreCmd(int(s[0] - '1'))
	}
	return m, nil
}

func (m *model) handleModelsKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.String() {
	case "esc":
		m.stage = m.readerStage()
		m.infoMessage = ""
		return m, nil
	case "up", "k":
		if m.modelCursor > 0 {
			m.modelCursor--
		}
		return m, nil
	case "down", "j":
		if m.modelCursor < len(m.models)-1 {
			m.modelCursor++
		}
		return m, nil
	case "enter":
		m.stage = m.readerStage()
		m.infoMessage = ""
		if m.modelCursor < 0 || m.modelCursor >= len(m.models) {
			return m, nil
		}
		return m, m.jobs.Start(jobKindSelect, selectModelJob(m.ws, m.models[m.modelCursor].ID))
	}
	return m, nil
}

func (m *model) openPromptPicker() {
	m.prompts = m.ws.Prompts()
	m.promptCursor = 0
	current := m.ws.Selection().Prompt.ID
	for idx, prompt := range m.prompts {
		if prompt.ID == current {
			m.promptCursor = idx
		}
	}
	m.stage = stagePrompts
}

func (m *model) handlePromptsKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.String() {
	case "esc":
		m.stage = m.readerStage()
		return m, nil
	case "up", "k":
		if m.promptCursor > 0 {
			m.promptCursor--
		}
		return m, nil
	case "down", "j":
		if m.promptCursor < len(m.prompts)-1 {
			m.promptCursor++
		}
		return m, nil
	case "a":
		m.stage = m.readerStage()
		return m, m.enterComposer(composerModePrompt)
	case "x":
		if m.promptCursor < 0 || m.promptCursor >= len(m.prompts) {
			return m, nil
		}
		prompt := m.prompts[m.promptCursor]
		if !prompt.Custom() {
			m.setError(friendlyError(preferences.ErrBuiltinPrompt))
			return m, nil
		}
		return m, m.jobs.Start(jobKindPrompt, removePromptJob(m.ws, prompt))
	case "enter":
		m.stage = m.readerStage()
		if m.promptCursor < 0 || m.promptCursor >= len(m.prompts) {
			return m, nil
		}
		return m, m.jobs.Start(jobKindPrompt, selectPromptJob(m.ws, m.prompts[m.promptCursor]))
	}
	return m, nil
}

func (m *model) readerStage() stage {
	if m.ws.Document() == nil {
		return stageIdle
	}
	return stageReading
}

func (m *model) enterComposer(mode composerMode) tea.Cmd {
	m.composerMode = mode
	m.mode = modeInsert
	m.composer.Reset()
	m.composer.EchoMode = textinput.EchoNormal
	switch mode {
	case composerModeOpen:
		m.composer.Placeholder = composerOpenPlaceholder
	case composerModeCredential:
		m.composer.Placeholder = composerCredentialPlaceholder
		m.composer.EchoMode = textinput.EchoPassword
		m.composer.EchoCharacter = '•'
	case composerModePrompt:
		m.composer.Placeholder = composerPromptPlaceholder
	case composerModeGoto:
		m.composer.Placeholder = composerGotoPlaceholder
	default:
		m.composer.Placeholder = composerAskPlaceholder
	}
	return m.composer.Focus()
}

func (m *model) exitComposer() {
	m.composer.Reset()
	m.composer.Blur()
	m.composerMode = composerModeIdle
	m.mode = modeNormal
}

func (m *model) startOpen(target string) tea.Cmd {
	m.stage = stageLoading
	m.errorMessage = ""
	m.infoMessage = "Opening " + target + "…"
	return tea.Batch(m.spinner.Tick, m.jobs.Start(jobKindOpen, openDocumentJob(m.ws, target)))
}

func (m *model) startRender() tea.Cmd {
	doc := m.ws.Document()
	if doc == nil {
		m.render = renderStatus{}
		return nil
	}
	page := m.ws.CurrentPage()
	m.render = renderStatus{DocumentID: doc.ID, Page: page, Pending: true}
	return m.jobs.Start(jobKindRender, renderPageJob(m.ws, doc.ID, page))
}

func (m *model) turnPage(delta int) tea.Cmd {
	if m.ws.Document() == nil {
		return nil
	}
	before := m.ws.CurrentPage()
	var after int
	if delta < 0 {
		after = m.ws.PrevPage()
	} else {
		after = m.ws.NextPage()
	}
	return m.pageChanged(before, after)
}

func (m *model) pageChanged(before, after int) tea.Cmd {
	if after == before {
		return nil
	}
	m.viewport.GotoTop()
	m.markViewportDirty()
	return tea.Batch(m.startRender(), m.startThumbnails())
}

// startThumbnails renders the pages around the current one at thumbnail
// scale while the strip is shown.
func (m *model) startThumbnails() tea.Cmd {
	doc := m.ws.Document()
	if !m.thumbsVisible || doc == nil {
		m.thumbs = thumbnailStrip{}
		return nil
	}
	first, last := thumbnailWindow(m.ws.CurrentPage(), doc.TotalPages)
	m.thumbs = thumbnailStrip{DocumentID: doc.ID, First: first, States: make([]thumbnailState, last-first+1)}
	return m.jobs.Start(jobKindThumbs, thumbnailsJob(m.ws, doc.ID, first, last-first+1))
}

func thumbnailWindow(page, total int) (first, last int) {
	return max(1, page-thumbnailRadius), min(total, page+thumbnailRadius)
}

func (m *model) actionExplainCmd() tea.Cmd {
	if m.ws.Document() == nil {
		m.setError("Open a document first.")
		return nil
	}
	m.errorMessage = ""
	m.lastMessages = -1
	m.viewport.GotoBottom()
	return tea.Batch(m.spinner.Tick, m.jobs.Start(jobKindExplain, explainPageJob(m.ws)))
}

func (m *model) actionCloseCmd() tea.Cmd {
	doc := m.ws.Document()
	if doc == nil {
		return nil
	}
	m.setInfo("Saving " + doc.Name + " to history…")
	return m.jobs.Start(jobKindClose, closeDocumentJob(m.ws, doc.Name))
}

func (m *model) actionRestoreCmd(index int) tea.Cmd {
	if index < 0 || index >= len(m.history) {
		return nil
	}
	entry := m.history[index]
	m.stage = stageLoading
	m.errorMessage = ""
	m.infoMessage = "Reopening " + entry.Name + "…"
	return tea.Batch(m.spinner.Tick, m.jobs.Start(jobKindRestore, restoreHistoryJob(m.ws, entry.ID)))
}

func (m *model) setInfo(message string) {
	m.infoMessage = message
	m.errorMessage = ""
}

func (m *model) setError(message string) {
	m.errorMessage = message
	m.infoMessage = ""
}

func (m *model) appendTranscript(kind, content string) {
	m.transcript = append(m.transcript, transcriptEntry{Kind: kind, Content: content, At: m.now()})
	m.logger.Info("session event", zap.String("kind", kind), zap.String("detail", content))
	m.markTranscriptDirty()
}

func (m *model) markViewportDirty() {
	m.viewportDirty = true
}

func (m *model) markTranscriptDirty() {
	m.transcriptDirty = true
}

func (m *model) refreshViewportIfDirty() {
	if !m.viewportDirty {
		return
	}
	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(m.buildReaderContent())
	if atBottom && m.ws.IsLoading() {
		m.viewport.GotoBottom()
	}
	m.viewportDirty = false
}

func (m *model) refreshTranscriptIfDirty() {
	if !m.transcriptDirty {
		return
	}
	m.transcriptViewport.SetContent(m.buildTranscriptContent())
	m.transcriptViewport.GotoBottom()
	m.transcriptDirty = false
}

var (
	sectionHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("81"))
	errorStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	helperStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))

	heroAccentColor        = lipgloss.Color("#2a9d8f")
	heroInkColor           = lipgloss.Color("#0b1f1c")
	heroTextColor          = lipgloss.Color("#e9f5f2")
	heroSecondaryTextColor = lipgloss.Color("#8ad1c2")

	heroTitleStyle     = lipgloss.NewStyle().Bold(true).Foreground(heroAccentColor)
	heroBoxStyle       = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(heroAccentColor).Foreground(heroTextColor).Background(heroInkColor).Padding(0, 2)
	heroSummaryStyle   = lipgloss.NewStyle().PaddingLeft(2)
	taglineStyle       = lipgloss.NewStyle().Foreground(heroSecondaryTextColor).Italic(true)
	statusBarStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#0f0f0f")).Background(lipgloss.Color("#8ecae6")).Padding(0, 1)
	keyStyle           = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#0f0f0f")).Background(lipgloss.Color("#ffd166")).Padding(0, 1)
	keyDescStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#e0def4"))
	legendBoxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#56526e")).Padding(1, 2)
	helpBoxStyle       = lipgloss.NewStyle().Border(lipgloss.DoubleBorder()).BorderForeground(lipgloss.Color("#7f5af0")).Padding(1, 2)
	currentLineStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#0f0f0f")).Background(lipgloss.Color("#8ecae6"))
	logoFaceStyle      = lipgloss.NewStyle().Bold(true).Foreground(heroTextColor).Background(heroInkColor)
	logoShadowStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#041210"))
	logoContainerStyle = lipgloss.NewStyle().Padding(0, 1)
	logoArtLines       = []string{
		"█▀█ ▄▀█ █▀▀ █▀▀ ▀█▀ █ █ ▀█▀ █▀█ █▀█",
		"█▀▀ █▀█ █▄█ ██▄  █  █▄█  █  █▄█ █▀▄",
	}
)
