package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/muesli/reflow/wordwrap"

	"github.com/csheth/pagetutor/internal/conversation"
	"github.com/csheth/pagetutor/internal/llm"
)

type pageLayout struct {
	windowWidth      int
	windowHeight     int
	viewportWidth    int
	viewportHeight   int
	transcriptHeight int
	composerHeight   int
}

func newPageLayout() pageLayout {
	return pageLayout{
		viewportWidth:    80,
		viewportHeight:   20,
		transcriptHeight: 6,
		composerHeight:   1,
	}
}

func (l *pageLayout) Update(width, height int) {
	l.windowWidth = width
	l.windowHeight = height
	innerWidth := width - viewportHorizontalPadding
	if innerWidth < minViewportWidth {
		innerWidth = minViewportWidth
	}
	l.viewportWidth = innerWidth
	l.composerHeight = 1
	const chrome = 10
	usable := height - chrome - l.composerHeight
	if usable < 12 {
		usable = 12
	}
	l.transcriptHeight = usable / 4
	if l.transcriptHeight < 3 {
		l.transcriptHeight = 3
	}
	l.viewportHeight = usable - l.transcriptHeight
	if l.viewportHeight < 6 {
		l.viewportHeight = 6
	}
}

type contentBuilder struct {
	builder strings.Builder
	lines   int
}

func (cb *contentBuilder) WriteString(s string) {
	cb.builder.WriteString(s)
	cb.lines += strings.Count(s, "\n")
}

func (cb *contentBuilder) WriteRune(r rune) {
	cb.builder.WriteRune(r)
	if r == '\n' {
		cb.lines++
	}
}

func (cb *contentBuilder) String() string {
	return cb.builder.String()
}

func (cb *contentBuilder) Line() int {
	return cb.lines
}

func (m *model) buildReaderContent() string {
	doc := m.ws.Document()
	if doc == nil {
		return m.buildIdleContent()
	}
	cb := &contentBuilder{}
	page := m.ws.CurrentPage()
	cb.WriteString(sectionHeaderStyle.Render(fmt.Sprintf("Page %d of %d", page, doc.TotalPages)))
	cb.WriteRune('\n')
	text := doc.PageText(page)
	if strings.TrimSpace(text) == "" {
		cb.WriteString(helperStyle.Render("No extractable text on this page."))
	} else {
		cb.WriteString(wordwrap.String(text, m.wrapWidth(2)))
	}
	cb.WriteRune('\n')
	cb.WriteRune('\n')
	m.writeConversation(cb)
	return cb.String()
}

func (m *model) buildIdleContent() string {
	cb := &contentBuilder{}
	cb.WriteString(sectionHeaderStyle.Render("Open a PDF to start reading"))
	cb.WriteRune('\n')
	cb.WriteString(helperStyle.Render("Press o and type a file path or an http(s) link, then Enter."))
	cb.WriteRune('\n')
	cb.WriteString(helperStyle.Render("Press q to ask a question without a document, ? for every shortcut."))
	cb.WriteRune('\n')
	cb.WriteRune('\n')
	m.writeHistory(cb)
	if len(m.ws.Messages()) > 0 {
		cb.WriteRune('\n')
		m.writeConversation(cb)
	}
	return cb.String()
}

func (m *model) writeHistory(cb *contentBuilder) {
	cb.WriteString(sectionHeaderStyle.Render("Recent Documents"))
	cb.WriteRune('\n')
	if len(m.history) == 0 {
		cb.WriteString(helperStyle.Render("Documents you close are kept here for quick return."))
		cb.WriteRune('\n')
		return
	}
	for idx, entry := range m.history {
		key := " "
		if idx < historyShortcutLimit {
			key = fmt.Sprintf("%d", idx+1)
		}
		line := fmt.Sprintf(" %s  %s", keyStyle.Render(key), entry.Name)
		meta := fmt.Sprintf("  page %d/%d • %s", entry.CurrentPage, entry.TotalPages, relativeTime(m.now(), entry.LastViewed))
		cb.WriteString(line + helperStyle.Render(meta))
		cb.WriteRune('\n')
	}
}

func (m *model) writeConversation(cb *contentBuilder) {
	cb.WriteString(sectionHeaderStyle.Render("Conversation"))
	cb.WriteRune('\n')
	messages := m.ws.Messages()
	if len(messages) == 0 {
		cb.WriteString(helperStyle.Render("Press e to explain this page or q to ask a question."))
		cb.WriteRune('\n')
		return
	}
	wrap := m.wrapWidth(4)
	for idx, msg := range messages {
		label := messageLabel(msg)
		if msg.Error {
			cb.WriteString(errorStyle.Render(label))
		} else {
			cb.WriteString(helperStyle.Render(label))
		}
		cb.WriteRune('\n')
		cb.WriteString(indentMultiline(wordwrap.String(msg.Content, wrap), "  "))
		cb.WriteRune('\n')
		if idx < len(messages)-1 {
			cb.WriteRune('\n')
		}
	}
	if m.ws.IsLoading() {
		cb.WriteRune('\n')
		cb.WriteString(helperStyle.Render(fmt.Sprintf("%s Awaiting response…", m.spinner.View())))
		cb.WriteRune('\n')
	}
}

func (m *model) buildTranscriptContent() string {
	if len(m.transcript) == 0 {
		return ""
	}
	wrap := m.wrapWidth(2)
	lines := make([]string, 0, len(m.transcript))
	for _, entry := range m.transcript {
		label := transcriptLabel(entry.Kind)
		body := wordwrap.String(previewText(entry.Content, transcriptPreviewLimit), wrap)
		if entry.Kind == "error" {
			lines = append(lines, errorStyle.Render(label+": "+body))
			continue
		}
		lines = append(lines, helperStyle.Render(label+":")+" "+body)
	}
	return strings.Join(lines, "\n")
}

func indentMultiline(text, prefix string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}

func (m *model) wrapWidth(padding int) int {
	width := m.viewport.Width
	if width <= 0 {
		width = 80
	}
	if padding < 0 {
		padding = 0
	}
	available := width - padding
	if available < 20 {
		available = 20
	}
	return available
}

func previewText(value string, limit int) string {
	value = strings.TrimSpace(value)
	if limit <= 0 {
		return value
	}
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return strings.TrimSpace(string(runes[:limit])) + "…"
}

func relativeTime(now, then time.Time) string {
	if then.IsZero() {
		return "never"
	}
	d := now.Sub(then)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return then.Format("Jan 2")
	}
}

func messageLabel(msg conversation.Message) string {
	switch {
	case msg.Error:
		return "Tutor (error)"
	case msg.Role == llm.RoleUser:
		return "You"
	default:
		return "Tutor"
	}
}

func transcriptLabel(kind string) string {
	switch kind {
	case "open", "restore", "close":
		return "Document"
	case "render":
		return "Render"
	case "models", "select", "test", "credential":
		return "Backend"
	case "error":
		return "Error"
	default:
		return "System"
	}
}
