package tui

import "github.com/charmbracelet/lipgloss"

// Theme holds the adaptive color palette used across the TUI.
type Theme struct {
	Primary    lipgloss.AdaptiveColor
	Secondary  lipgloss.AdaptiveColor
	Error      lipgloss.AdaptiveColor
	Success    lipgloss.AdaptiveColor
	Warning    lipgloss.AdaptiveColor
	Text       lipgloss.AdaptiveColor
	TextMuted  lipgloss.AdaptiveColor
	Border     lipgloss.AdaptiveColor
	Background lipgloss.AdaptiveColor
}

// NewDefaultTheme returns the default palette.
func NewDefaultTheme() Theme {
	return Theme{
		Primary:    lipgloss.AdaptiveColor{Dark: "#1C7CD6", Light: "#1862AB"},
		Secondary:  lipgloss.AdaptiveColor{Dark: "#329af0", Light: "#1862AB"},
		Error:      lipgloss.AdaptiveColor{Dark: "#f03e3e", Light: "#C92A2A"},
		Success:    lipgloss.AdaptiveColor{Dark: "#37b24d", Light: "#2B8A3E"},
		Warning:    lipgloss.AdaptiveColor{Dark: "#f59f00", Light: "#E67700"},
		Text:       lipgloss.AdaptiveColor{Dark: "#F2F4F8", Light: "#0E121B"},
		TextMuted:  lipgloss.AdaptiveColor{Dark: "#6C7689", Light: "#868E96"},
		Border:     lipgloss.AdaptiveColor{Dark: "#2B3750", Light: "#DEE2E6"},
		Background: lipgloss.AdaptiveColor{Dark: "#0E121B", Light: "#FFFFFF"},
	}
}
