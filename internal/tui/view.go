package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/reflow/wordwrap"
)

func (m *model) View() string {
	switch m.stage {
	case stageModels:
		return m.viewModels()
	case stagePrompts:
		return m.viewPrompts()
	default:
		return m.viewReader()
	}
}

const minFittedViewportHeight = 3

// viewReader shrinks the viewport by however much the other panels push
// the frame past the window height.
func (m *model) viewReader() string {
	m.refreshViewportIfDirty()
	m.refreshTranscriptIfDirty()
	m.viewport.Height = m.layout.viewportHeight
	frame := m.readerFrame()
	if m.layout.windowHeight <= 0 {
		return frame
	}
	if over := lipgloss.Height(frame) - m.layout.windowHeight; over > 0 {
		m.viewport.Height = max(minFittedViewportHeight, m.viewport.Height-over)
		frame = m.readerFrame()
	}
	return frame
}

func (m *model) readerFrame() string {
	return joinNonEmpty([]string{m.renderStackedDisplay(), m.composerPanel(), m.footerView()})
}

func (m *model) renderStackedDisplay() string {
	parts := []string{m.heroView(), m.viewport.View(), m.thumbnailStripView()}
	if m.errorMessage != "" {
		parts = append(parts, errorStyle.Render(m.errorMessage))
	}
	if m.infoMessage != "" {
		message := m.infoMessage
		if m.stage == stageLoading {
			message = fmt.Sprintf("%s %s", m.spinner.View(), message)
		}
		parts = append(parts, helperStyle.Render(message))
	}
	if m.helpVisible {
		parts = append(parts, m.keyLegendView(), m.helpView())
	}
	return joinNonEmpty(parts)
}

func (m *model) composerPanel() string {
	if m.composerMode == composerModeIdle {
		return ""
	}
	return joinNonEmpty([]string{
		sectionHeaderStyle.Render(m.composerTitle()),
		m.composer.View(),
		helperStyle.Render("Enter: submit • Esc: cancel"),
	})
}

func (m *model) composerTitle() string {
	switch m.composerMode {
	case composerModeOpen:
		return "Open Document"
	case composerModeCredential:
		return "API Key"
	case composerModePrompt:
		return "New Tutor Prompt"
	case composerModeGoto:
		return "Go to Page"
	default:
		return "Ask"
	}
}

func (m *model) footerView() string {
	footer := []string{m.sessionMeterView()}
	if m.helpVisible {
		return joinNonEmpty(footer)
	}
	if logBody := strings.TrimSpace(m.transcriptViewport.View()); logBody != "" {
		footer = append(footer, joinNonEmpty([]string{
			sectionHeaderStyle.Render("Session Log"),
			logBody,
		}))
	}
	return joinNonEmpty(footer)
}

func (m *model) viewModels() string {
	var b strings.Builder
	b.WriteString(sectionHeaderStyle.Render("Choose a Model"))
	b.WriteRune('\n')
	b.WriteString(helperStyle.Render("↑/↓ to move, Enter to select, Esc to cancel."))
	b.WriteRune('\n')
	b.WriteRune('\n')
	if len(m.models) == 0 {
		b.WriteString(helperStyle.Render("No chat models are available for this key."))
	}
	current := m.ws.Selection().Model.ID
	for idx, info := range m.models {
		label := info.ID
		if info.Name != "" && info.Name != info.ID {
			label = fmt.Sprintf("%s (%s)", info.Name, info.ID)
		}
		if info.ID == current {
			label += "  ✓"
		}
		if idx == m.modelCursor {
			b.WriteString(currentLineStyle.Render("▸ " + label))
		} else {
			b.WriteString("  " + label)
		}
		b.WriteRune('\n')
	}
	return joinNonEmpty([]string{m.heroView(), b.String(), m.footerView()})
}

func (m *model) viewPrompts() string {
	var b strings.Builder
	b.WriteString(sectionHeaderStyle.Render("Choose a Tutor Style"))
	b.WriteRune('\n')
	b.WriteString(helperStyle.Render("↑/↓ to move, Enter to select, a to add, x to remove a custom prompt, Esc to cancel."))
	b.WriteRune('\n')
	b.WriteRune('\n')
	current := m.ws.Selection().Prompt.ID
	for idx, prompt := range m.prompts {
		label := prompt.Name
		if prompt.Custom() {
			label += " (custom)"
		}
		if prompt.ID == current {
			label += "  ✓"
		}
		if idx == m.promptCursor {
			b.WriteString(currentLineStyle.Render("▸ " + label))
		} else {
			b.WriteString("  " + label)
		}
		b.WriteRune('\n')
	}
	if m.promptCursor >= 0 && m.promptCursor < len(m.prompts) {
		b.WriteRune('\n')
		b.WriteString(helperStyle.Render(wordwrap.String(m.prompts[m.promptCursor].Text, m.wrapWidth(2))))
	}
	parts := []string{m.heroView(), b.String()}
	if m.errorMessage != "" {
		parts = append(parts, errorStyle.Render(m.errorMessage))
	}
	return joinNonEmpty(append(parts, m.footerView()))
}

// thumbnailStripView lists the pages around the current one with their
// thumbnail render state.
func (m *model) thumbnailStripView() string {
	doc := m.ws.Document()
	if !m.thumbsVisible || doc == nil || doc.ID != m.thumbs.DocumentID {
		return ""
	}
	current := m.ws.CurrentPage()
	cells := []string{helperStyle.Render("Pages")}
	if m.thumbs.First > 1 {
		cells = append(cells, helperStyle.Render("…"))
	}
	for i, state := range m.thumbs.States {
		page := m.thumbs.First + i
		mark := "·"
		switch state {
		case thumbnailReady:
			mark = "✓"
		case thumbnailFailed:
			mark = "✗"
		}
		cell := fmt.Sprintf("%d%s", page, mark)
		if page == current {
			cell = currentLineStyle.Render(" " + cell + " ")
		}
		cells = append(cells, cell)
	}
	if last := m.thumbs.First + len(m.thumbs.States) - 1; last < doc.TotalPages {
		cells = append(cells, helperStyle.Render("…"))
	}
	return strings.Join(cells, " ")
}

func (m *model) heroView() string {
	logo := renderLogo()
	doc := m.ws.Document()
	if doc == nil {
		return lipgloss.JoinVertical(lipgloss.Left, logo, taglineStyle.Render(heroTagline))
	}
	title := heroTitleStyle.Render(truncate.StringWithTail(doc.Name, 48, "…"))
	meta := []string{helperStyle.Render(fmt.Sprintf("%d pages", doc.TotalPages))}
	if doc.Origin != "" {
		meta = append(meta, helperStyle.Render(truncate.StringWithTail(doc.Origin, 48, "…")))
	}
	summary := heroBoxStyle.Render(strings.Join(append([]string{title}, meta...), "\n"))
	return lipgloss.JoinHorizontal(lipgloss.Top, logo, heroSummaryStyle.Render(summary))
}

func joinNonEmpty(parts []string) string {
	filtered := make([]string, 0, len(parts))
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			continue
		}
		filtered = append(filtered, part)
	}
	return strings.Join(filtered, "\n\n")
}

func (m *model) modeLabel() string {
	if m.mode == modeInsert {
		return "INSERT"
	}
	return "NORMAL"
}

func (m *model) sessionMeterView() string {
	sel := m.ws.Selection()
	stats := []string{fmt.Sprintf("Mode %s", m.modeLabel())}
	if doc := m.ws.Document(); doc != nil {
		stats = append(stats, fmt.Sprintf("Page %d/%d", m.ws.CurrentPage(), doc.TotalPages))
	} else {
		stats = append(stats, "No document")
	}
	stats = append(stats, "Level "+sel.Difficulty.Label())
	model := sel.Model.Name
	if model == "" {
		model = sel.Model.ID
	}
	stats = append(stats, "Model "+model)
	if !sel.HasCredential {
		stats = append(stats, "No key")
	}
	if render := m.renderLabel(); render != "" {
		stats = append(stats, render)
	}
	if m.ws.IsLoading() {
		stats = append(stats, "Tutor thinking…")
	}
	stats = append(stats, m.jobStatusBadges()...)
	return statusBarStyle.Render(strings.Join(stats, "  •  "))
}

func (m *model) renderLabel() string {
	switch {
	case m.render.DocumentID == "":
		return ""
	case m.render.Pending:
		return "Rendering…"
	case m.render.Err != "":
		return "Render failed"
	default:
		return fmt.Sprintf("Rendered %d×%d", m.render.Width, m.render.Height)
	}
}

func (m *model) jobStatusBadges() []string {
	if len(m.activeJobs) == 0 {
		return nil
	}
	counts := map[jobKind]int{}
	for _, snap := range m.activeJobs {
		if snap.Kind == jobKindRender || snap.Kind == jobKindThumbs {
			continue
		}
		counts[snap.Kind]++
	}
	badges := make([]string, 0, len(counts))
	for _, kind := range []jobKind{jobKindOpen, jobKindRestore, jobKindExplain, jobKindAsk, jobKindModels, jobKindTest, jobKindClose} {
		if n := counts[kind]; n > 0 {
			badges = append(badges, fmt.Sprintf("%s×%d", kind, n))
		}
	}
	return badges
}

type keyHint struct {
	Key         string
	Description string
}

func (m *model) keyLegendView() string {
	hints := []keyHint{
		{"o", "Open PDF"},
		{"←/→", "Previous/next page"},
		{"e", "Explain page"},
		{"q", "Ask question"},
		{"d", "Cycle level"},
		{"m", "Models"},
		{"t", "Test connection"},
		{"k", "Set API key"},
		{"x", "Close document"},
		{"G", "Go to page"},
		{"g", "Page strip"},
		{"p", "Tutor style"},
		{"1-9", "Reopen recent"},
		{"C C", "Clear recent"},
		{"↑/↓", "Scroll"},
		{"?", "Toggle cheatsheet"},
	}
	rows := []string{sectionHeaderStyle.Render("Reader Cheatsheet")}
	const columns = 3
	for i := 0; i < len(hints); i += columns {
		end := i + columns
		if end > len(hints) {
			end = len(hints)
		}
		var cells []string
		for _, hint := range hints[i:end] {
			key := keyStyle.Render(hint.Key)
			desc := keyDescStyle.Render(" " + hint.Description)
			cells = append(cells, lipgloss.JoinHorizontal(lipgloss.Top, key, desc))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}
	return legendBoxStyle.Render(strings.Join(rows, "\n"))
}

func (m *model) helpView() string {
	lines := []string{
		sectionHeaderStyle.Render("How It Works"),
		helperStyle.Render("• e explains the current page at the selected level; d cycles ELI5, High-level and Detailed."),
		helperStyle.Render("• q asks a free-form question; the tutor sees the whole conversation so far."),
		helperStyle.Render("• x closes the document and keeps it, with its conversation, in the recent list."),
		helperStyle.Render("• k stores an API key, t checks it against the selected model, m lists models."),
		helperStyle.Render("• p picks the tutor style; add your own as Name: instructions."),
		helperStyle.Render("• Esc leaves the composer or the model list, Ctrl+C quits."),
	}
	return helpBoxStyle.Render(strings.Join(lines, "\n"))
}

func renderLogo() string {
	if len(logoArtLines) == 0 {
		return ""
	}
	width := 0
	lineRunes := make([][]rune, len(logoArtLines))
	for i, line := range logoArtLines {
		runes := []rune(line)
		lineRunes[i] = runes
		if len(runes) > width {
			width = len(runes)
		}
	}
	width++
	height := len(logoArtLines) + 1

	type cell struct {
		r     rune
		style lipgloss.Style
	}

	grid := make([][]cell, height)
	for i := range grid {
		grid[i] = make([]cell, width)
	}
	for y, runes := range lineRunes {
		for x, r := range runes {
			if r != ' ' && y+1 < height && x+1 < width {
				grid[y+1][x+1] = cell{r: r, style: logoShadowStyle}
			}
		}
	}
	for y, runes := range lineRunes {
		for x, r := range runes {
			if r != ' ' {
				grid[y][x] = cell{r: r, style: logoFaceStyle}
			}
		}
	}

	lines := make([]string, height)
	for y, row := range grid {
		var b strings.Builder
		for _, c := range row {
			if c.r == 0 {
				b.WriteRune(' ')
				continue
			}
			b.WriteString(c.style.Render(string(c.r)))
		}
		lines[y] = b.String()
	}
	return logoContainerStyle.Render(strings.Join(lines, "\n"))
}
