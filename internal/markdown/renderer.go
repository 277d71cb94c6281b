// Package markdown renders answer text for terminal display. Answers come
// back from the backend as markdown; both the interactive REPL and the TUI
// render them through the same glamour setup so output looks identical on
// either surface.
package markdown

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// DefaultWidth is the wrap width used when the caller has no better idea of
// the terminal size.
const DefaultWidth = 100

// Renderer wraps glamour with answer-display tuning. A zero-value Renderer is
// not usable; construct with New.
type Renderer struct {
	glamour *glamour.TermRenderer
	width   int
}

// New creates a renderer wrapping at the given width. If glamour cannot be
// initialized the renderer still works and falls back to plain text.
func New(width int) *Renderer {
	if width <= 0 {
		width = DefaultWidth
	}
	r := &Renderer{width: width}
	if g, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	); err == nil {
		r.glamour = g
	}
	return r
}

// SetWidth rebuilds the underlying renderer at a new wrap width. Used when
// the terminal is resized.
func (r *Renderer) SetWidth(width int) {
	if width <= 0 || width == r.width {
		return
	}
	r.width = width
	if g, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	); err == nil {
		r.glamour = g
	}
}

// Render renders markdown to styled terminal output. On any rendering
// failure the original text comes back unchanged; an answer is never lost to
// a styling problem.
func (r *Renderer) Render(text string) string {
	if text == "" {
		return ""
	}
	if r.glamour == nil {
		return text
	}
	rendered, err := r.glamour.Render(preprocess(text))
	if err != nil || strings.TrimSpace(rendered) == "" {
		return text
	}
	return postprocess(rendered)
}

// preprocess trims trailing whitespace outside code fences so glamour's
// paragraph detection does not mis-split answer text.
func preprocess(text string) string {
	lines := strings.Split(text, "\n")
	inFence := false
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			inFence = !inFence
			continue
		}
		if !inFence {
			lines[i] = strings.TrimRight(line, " \t")
		}
	}
	return strings.Join(lines, "\n")
}

// postprocess collapses runs of blank lines that glamour leaves around block
// elements, keeping transcript entries compact.
func postprocess(rendered string) string {
	lines := strings.Split(rendered, "\n")
	out := make([]string, 0, len(lines))
	blanks := 0
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			blanks++
			if blanks > 1 {
				continue
			}
		} else {
			blanks = 0
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}
