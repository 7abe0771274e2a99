package ui

import (
	"github.com/charmbracelet/lipgloss"
)

var palette = DefaultPalette()

// Header styles
var (
	HeaderStyle = lipgloss.NewStyle().
			Background(palette.Background).
			Foreground(palette.Primary).
			Bold(true).
			Padding(0, 2).
			Margin(0, 0, 1, 0)

	SubHeaderStyle = lipgloss.NewStyle().
			Foreground(palette.Secondary).
			Bold(true).
			Margin(0, 0, 1, 0)
)

// Layout styles
var (
	PanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(palette.TextMuted).
			Padding(0, 1)

	ActivePanelStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(palette.Primary).
				Padding(0, 1)
)

// Table styles
var (
	TableHeaderStyle = lipgloss.NewStyle().
				Foreground(palette.Secondary).
				Bold(true).
				Padding(0, 1)

	TableRowStyle = lipgloss.NewStyle().
			Foreground(palette.Text).
			Padding(0, 1)

	TableRowSelectedStyle = lipgloss.NewStyle().
				Foreground(palette.Background).
				Background(palette.Primary).
				Padding(0, 1)
)

// Status styles
var (
	SuccessStyle = lipgloss.NewStyle().
			Foreground(palette.Success).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(palette.Error).
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(palette.Warning).
			Bold(true)

	InfoStyle = lipgloss.NewStyle().
			Foreground(palette.Info)

	MutedStyle = lipgloss.NewStyle().
			Foreground(palette.TextMuted)
)

// Help bar style
var HelpStyle = lipgloss.NewStyle().
	Foreground(palette.TextMuted).
	Margin(1, 0, 0, 0).
	Italic(true)

// OutcomeStyle maps a submission outcome to its display style.
func OutcomeStyle(outcome string) lipgloss.Style {
	switch outcome {
	case "confirmed":
		return SuccessStyle
	case "rejected":
		return ErrorStyle
	case "timed_out":
		return WarningStyle
	default:
		return InfoStyle
	}
}

// AdaptiveWidth returns a percentage of the terminal width, degrading to
// nearly full width on narrow screens.
func AdaptiveWidth(width, percentage int) int {
	if width < 80 {
		return width - 4
	}
	return (width * percentage) / 100
}
