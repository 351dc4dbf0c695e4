// Package watch implements the voxwire directive watch TUI: a live view of
// the dispatch trace stream and daemon health.
package watch

import "github.com/charmbracelet/lipgloss"

// Theme centralizes all styling for the watch TUI.
// Even with a single default theme, this keeps all colors in one place
// and makes future theme support trivial.
type Theme struct {
	// Lifecycle colors
	Completed lipgloss.Style
	Handling  lipgloss.Style
	Failed    lipgloss.Style
	Queued    lipgloss.Style
	Cancelled lipgloss.Style

	// UI elements
	Border    lipgloss.Style
	Title     lipgloss.Style
	Header    lipgloss.Style
	Dim       lipgloss.Style
	Highlight lipgloss.Style

	// Indicators
	TickerActive   lipgloss.Style
	TickerInactive lipgloss.Style
}

func NewDefaultTheme() Theme {
	purple := lipgloss.Color("#874BFD")

	return Theme{
		Completed: lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF00")),
		Handling:  lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFF00")),
		Failed:    lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000")),
		Queued:    lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")),
		Cancelled: lipgloss.NewStyle().Foreground(lipgloss.Color("#666666")),

		Border: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(purple),
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Padding(0, 1),
		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#61AFEF")),
		Dim:       lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")),
		Highlight: lipgloss.NewStyle().Foreground(lipgloss.Color("#E5C07B")),

		TickerActive:   lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF00")),
		TickerInactive: lipgloss.NewStyle().Foreground(lipgloss.Color("#444444")),
	}
}
