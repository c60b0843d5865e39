package tui

import "github.com/charmbracelet/lipgloss"

// Palette follows the site: white banner text, red accents, muted grey
// chrome.
var (
	ColorRed   = lipgloss.Color("#E53935")
	ColorWhite = lipgloss.Color("#FFFFFF")
	ColorGray  = lipgloss.Color("#8A8A8A")
	ColorDark  = lipgloss.Color("#1E1E2E")
	ColorBlue  = lipgloss.Color("#5C9CF5")
	ColorGreen = lipgloss.Color("#4CAF50")
)

var (
	bannerStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorGray).
			Padding(1, 3)

	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(ColorWhite)
	accentStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorRed)

	subtitleStyle = lipgloss.NewStyle().Foreground(ColorGray).Italic(true)

	ctaButtonStyle = lipgloss.NewStyle().
			Foreground(ColorWhite).
			Background(ColorRed).
			Padding(0, 2)

	galleryButtonStyle = lipgloss.NewStyle().
				Foreground(ColorWhite).
				Border(lipgloss.NormalBorder(), false, false, true, false).
				BorderForeground(ColorWhite).
				Padding(0, 1)

	dotActiveStyle   = lipgloss.NewStyle().Foreground(ColorRed)
	dotInactiveStyle = lipgloss.NewStyle().Foreground(ColorGray)

	sectionStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(ColorGray).
			Padding(0, 1)

	chartTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorBlue)
	helpStyle       = lipgloss.NewStyle().Foreground(ColorGray)
	errorStyle      = lipgloss.NewStyle().Foreground(ColorRed)
	statusStyle     = lipgloss.NewStyle().Foreground(ColorGray)
	okStyle         = lipgloss.NewStyle().Foreground(ColorGreen)
)
