// Package tui implements the full-screen terminal interface: a transcript
// viewport, a document panel with checkbox selection, and an input line.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/entrepeneur4lyf/docchat/internal/session"
)

const docsPanelWidth = 34

// opDoneMsg signals that an asynchronous session operation finished.
type opDoneMsg struct{ err error }

// tickMsg drives periodic re-renders so background reconciliation results
// become visible without user input.
type tickMsg time.Time

// Model is the top-level bubbletea model.
type Model struct {
	session  *session.Client
	theme    Theme
	renderer *transcriptRenderer

	viewport  viewport.Model
	input     textinput.Model
	spinner   spinner.Model
	focusDocs bool
	docCursor int
	busy      bool
	notice    string

	width  int
	height int
	ready  bool
}

// New creates the TUI model over an existing session.
func New(s *session.Client) *Model {
	theme := NewDefaultTheme()

	ti := textinput.New()
	ti.Placeholder = "Ask a question about your documents..."
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.Primary)

	return &Model{
		session:  s,
		theme:    theme,
		renderer: newTranscriptRenderer(theme, 80),
		input:    ti,
		spinner:  sp,
	}
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.tick())
}

func (m *Model) tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		m.refreshTranscript()
		m.ready = true
		return m, nil

	case tickMsg:
		// Background reconciliation may have replaced optimistic records.
		m.refreshTranscript()
		return m, m.tick()

	case opDoneMsg:
		m.busy = false
		m.input.Focus()
		m.refreshTranscript()
		return m, nil

	case spinner.TickMsg:
		if m.busy {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case tea.KeyMsg:
		if cmd, handled := m.handleKey(msg); handled {
			return m, cmd
		}
	}

	if !m.focusDocs {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// handleKey processes global and panel-specific key bindings.
func (m *Model) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch {
	case key.Matches(msg, keys.Quit):
		return tea.Quit, true

	case key.Matches(msg, keys.FocusSwitch):
		m.focusDocs = !m.focusDocs
		if m.focusDocs {
			m.input.Blur()
		} else {
			m.input.Focus()
		}
		return nil, true

	case key.Matches(msg, keys.SelectAll):
		m.session.SelectAll()
		m.notice = "Selected all documents"
		return nil, true

	case key.Matches(msg, keys.ClearSelection):
		m.session.ClearSelection()
		m.notice = "Selection cleared"
		return nil, true

	case key.Matches(msg, keys.DeleteAll):
		if len(m.session.Documents()) == 0 {
			m.notice = "No documents to delete"
			return nil, true
		}
		return m.startOp(func(ctx context.Context) error {
			return m.session.DeleteAll(ctx)
		}), true
	}

	if m.focusDocs {
		return m.handleDocsKey(msg), true
	}

	if key.Matches(msg, keys.Submit) {
		return m.submitInput(), true
	}

	return nil, false
}

// handleDocsKey navigates and toggles the document panel.
func (m *Model) handleDocsKey(msg tea.KeyMsg) tea.Cmd {
	docs := m.session.Documents()

	switch {
	case key.Matches(msg, keys.CursorUp):
		if m.docCursor > 0 {
			m.docCursor--
		}
	case key.Matches(msg, keys.CursorDown):
		if m.docCursor < len(docs)-1 {
			m.docCursor++
		}
	case key.Matches(msg, keys.ToggleDoc), key.Matches(msg, keys.Submit):
		if m.docCursor >= 0 && m.docCursor < len(docs) {
			doc := docs[m.docCursor]
			if m.session.Toggle(doc.ID) {
				m.notice = "Selected " + doc.Name
			} else {
				m.notice = "Deselected " + doc.Name
			}
		}
	}
	return nil
}

// submitInput dispatches the input line: slash commands or a question.
func (m *Model) submitInput() tea.Cmd {
	text := strings.TrimSpace(m.input.Value())
	if text == "" || m.busy {
		return nil
	}
	m.input.SetValue("")

	if strings.HasPrefix(text, "/") {
		return m.runCommand(text)
	}

	return m.startOp(func(ctx context.Context) error {
		return m.session.Ask(ctx, text)
	})
}

// runCommand handles the slash commands available inside the TUI.
func (m *Model) runCommand(command string) tea.Cmd {
	fields := strings.Fields(command)
	switch fields[0] {
	case "/upload":
		if len(fields) < 2 {
			m.notice = "Usage: /upload <file> [file...]"
			return nil
		}
		paths := fields[1:]
		return m.startOp(func(ctx context.Context) error {
			return m.session.Upload(ctx, paths)
		})
	case "/clear-docs":
		if len(m.session.Documents()) == 0 {
			m.notice = "No documents to delete"
			return nil
		}
		return m.startOp(func(ctx context.Context) error {
			return m.session.DeleteAll(ctx)
		})
	default:
		m.notice = "Unknown command: " + fields[0]
		return nil
	}
}

// startOp runs a session operation off the UI loop and reports completion.
func (m *Model) startOp(op func(context.Context) error) tea.Cmd {
	m.busy = true
	m.input.Blur()
	run := func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
		defer cancel()
		return opDoneMsg{err: op(ctx)}
	}
	return tea.Batch(run, m.spinner.Tick)
}

// layout recomputes component sizes from the window size.
func (m *Model) layout() {
	contentWidth := m.width - docsPanelWidth - 4
	if contentWidth < 20 {
		contentWidth = m.width - 4
	}
	contentHeight := m.height - 5
	if contentHeight < 3 {
		contentHeight = 3
	}

	if !m.ready {
		m.viewport = viewport.New(contentWidth, contentHeight)
	} else {
		m.viewport.Width = contentWidth
		m.viewport.Height = contentHeight
	}
	m.input.Width = m.width - 6
	m.renderer.SetWidth(contentWidth - 2)
}

// refreshTranscript re-renders the transcript into the viewport and tails it.
func (m *Model) refreshTranscript() {
	if m.viewport.Width == 0 {
		return
	}
	m.viewport.SetContent(m.renderer.Render(m.session.Transcript()))
	m.viewport.GotoBottom()
}

func (m *Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	transcript := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(m.theme.Border).
		Width(m.viewport.Width).
		Height(m.viewport.Height).
		Render(m.viewport.View())

	main := transcript
	if m.width-docsPanelWidth-4 >= 20 {
		main = lipgloss.JoinHorizontal(lipgloss.Top, transcript, m.renderDocsPanel())
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		main,
		m.renderInput(),
		m.renderStatus(),
	)
}

func (m *Model) renderInput() string {
	prompt := m.input.View()
	if m.busy {
		prompt = m.spinner.View() + " Waiting for answer..."
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(m.theme.Border).
		Width(m.width - 2).
		Render(prompt)
}

func (m *Model) renderStatus() string {
	sel := len(m.session.Selection())
	docs := len(m.session.Documents())

	left := fmt.Sprintf(" %d docs · %d selected", docs, sel)
	hints := "tab: focus · space: toggle · ctrl+a: all · ctrl+x: none · ctrl+d: delete all · ctrl+c: quit"
	if m.notice != "" {
		hints = m.notice
	}

	style := lipgloss.NewStyle().Foreground(m.theme.TextMuted)
	return style.Render(left + "  " + hints)
}

// Run starts the TUI program.
func Run(s *session.Client) error {
	p := tea.NewProgram(New(s), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}

// Key bindings
type keyMap struct {
	Quit           key.Binding
	Submit         key.Binding
	FocusSwitch    key.Binding
	CursorUp       key.Binding
	CursorDown     key.Binding
	ToggleDoc      key.Binding
	SelectAll      key.Binding
	ClearSelection key.Binding
	DeleteAll      key.Binding
}

var keys = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("ctrl+c", "ctrl+q"),
		key.WithHelp("ctrl+c/q", "quit"),
	),
	Submit: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "submit"),
	),
	FocusSwitch: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "switch focus"),
	),
	CursorUp: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	CursorDown: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
	ToggleDoc: key.NewBinding(
		key.WithKeys(" "),
		key.WithHelp("space", "toggle document"),
	),
	SelectAll: key.NewBinding(
		key.WithKeys("ctrl+a"),
		key.WithHelp("ctrl+a", "select all"),
	),
	ClearSelection: key.NewBinding(
		key.WithKeys("ctrl+x"),
		key.WithHelp("ctrl+x", "clear selection"),
	),
	DeleteAll: key.NewBinding(
		key.WithKeys("ctrl+d"),
		key.WithHelp("ctrl+d", "delete all documents"),
	),
}
