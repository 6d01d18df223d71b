package styles

import (
	"github.com/charmbracelet/lipgloss"
)

// --- Color Palette ---
var (
	ColorPrimary   = lipgloss.Color("#7D56F4") // Indigo/Purple
	ColorSecondary = lipgloss.Color("#04B575") // Green
	ColorError     = lipgloss.Color("#FF5F87") // Pink/Red
	ColorWarning   = lipgloss.Color("#FFAF00") // Gold
	ColorSubtle    = lipgloss.Color("#767676")
)

var (
	// Section headings of the report
	Heading = lipgloss.NewStyle().
		Foreground(ColorPrimary).
		Bold(true)

	Subtle = lipgloss.NewStyle().Foreground(ColorSubtle)
	Active = lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true)

	Error   = lipgloss.NewStyle().Foreground(ColorError)
	Warn    = lipgloss.NewStyle().Foreground(ColorWarning)
	Success = lipgloss.NewStyle().Foreground(ColorSecondary).Bold(true)

	// Distribution chart bars
	Bar = lipgloss.NewStyle().Foreground(ColorSecondary)

	// Live progress panel
	Panel = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorSubtle).
		Padding(0, 1)
)

// Section renders a "=== title ===" heading.
func Section(title string) string {
	return Heading.Render("=== " + title + " ===")
}

// Rate colours a success percentage.
func Rate(pct int) lipgloss.Style {
	switch {
	case pct >= 99:
		return Success
	case pct >= 90:
		return Warn
	default:
		return Error
	}
}
