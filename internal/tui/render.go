package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/entrepeneur4lyf/docchat/internal/markdown"
	"github.com/entrepeneur4lyf/docchat/internal/session"
)

// transcriptRenderer turns transcript entries into styled terminal output,
// with markdown rendering for answers and a plain fallback when that fails.
type transcriptRenderer struct {
	theme    Theme
	markdown *markdown.Renderer
	width    int
}

func newTranscriptRenderer(theme Theme, width int) *transcriptRenderer {
	if width < 20 {
		width = 20
	}
	return &transcriptRenderer{
		theme:    theme,
		markdown: markdown.New(width),
		width:    width,
	}
}

// SetWidth rebuilds the markdown renderer when the wrap width changes.
func (r *transcriptRenderer) SetWidth(width int) {
	if width < 20 {
		width = 20
	}
	if width == r.width {
		return
	}
	r.width = width
	r.markdown.SetWidth(width)
}

// Render renders the whole transcript in insertion order.
func (r *transcriptRenderer) Render(transcript []session.Message) string {
	var content strings.Builder

	for i, msg := range transcript {
		if i > 0 {
			content.WriteString("\n\n")
		}
		content.WriteString(r.renderMessage(msg))
	}

	return content.String()
}

func (r *transcriptRenderer) renderMessage(msg session.Message) string {
	switch msg.Role {
	case session.RoleUser:
		header := lipgloss.NewStyle().Bold(true).Foreground(r.theme.Primary).Render("You:")
		body := msg.Content
		if msg.Pending {
			body += " …"
		}
		return lipgloss.JoinVertical(lipgloss.Left, header, body)

	case session.RoleAI:
		header := lipgloss.NewStyle().Bold(true).Foreground(r.theme.Secondary).Render("Assistant:")
		content := strings.TrimSpace(r.markdown.Render(msg.Content))
		parts := []string{header, content}
		if len(msg.Sources) > 0 {
			parts = append(parts, r.renderSources(msg.Sources))
		}
		return lipgloss.JoinVertical(lipgloss.Left, parts...)

	case session.RoleSystem:
		return lipgloss.NewStyle().
			Italic(true).
			Foreground(r.theme.TextMuted).
			Render("System: " + msg.Content)

	default:
		return msg.Content
	}
}

func (r *transcriptRenderer) renderSources(sources []session.Source) string {
	label := lipgloss.NewStyle().Foreground(r.theme.TextMuted).Render("Sources:")
	lines := []string{label}
	for _, src := range sources {
		snippet := src.Text
		if len(snippet) > 80 {
			snippet = snippet[:80] + "..."
		}
		line := fmt.Sprintf("  • %s (%s): %s", src.Filename, src.Match(), snippet)
		lines = append(lines, lipgloss.NewStyle().Foreground(r.theme.TextMuted).Render(line))
	}
	return strings.Join(lines, "\n")
}

// renderDocsPanel draws the document list with checkbox selection markers.
func (m *Model) renderDocsPanel() string {
	docs := m.session.Documents()

	title := lipgloss.NewStyle().Bold(true).Foreground(m.theme.Primary).Render("Documents")
	lines := []string{title}

	if len(docs) == 0 {
		lines = append(lines, lipgloss.NewStyle().
			Foreground(m.theme.TextMuted).
			Render("Drop files or /upload <path>"))
	}

	for i, doc := range docs {
		marker := "[ ]"
		if m.session.Selected(doc.ID) {
			marker = "[x]"
		}

		status := doc.Status
		if doc.Pending || doc.Processing() {
			status = "processing…"
		} else if doc.TotalChunks > 0 {
			status = fmt.Sprintf("%d chunks", doc.TotalChunks)
		}

		name := doc.Name
		if len(name) > docsPanelWidth-10 {
			name = name[:docsPanelWidth-13] + "..."
		}

		line := fmt.Sprintf("%s %s", marker, name)
		style := lipgloss.NewStyle()
		if m.focusDocs && i == m.docCursor {
			style = style.Bold(true).Foreground(m.theme.Primary)
		}
		lines = append(lines, style.Render(line))
		lines = append(lines, lipgloss.NewStyle().
			Foreground(m.theme.TextMuted).
			Render("      "+status))
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(m.theme.Border).
		Width(docsPanelWidth - 2).
		Height(m.viewport.Height).
		Render(strings.Join(lines, "\n"))
}
