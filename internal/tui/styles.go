package tui

import "github.com/charmbracelet/lipgloss"

// Viewfinder palette: amber for the shutter, slate for chrome.
var (
	shutterColor  = lipgloss.Color("#F59E0B")
	frameColor    = lipgloss.Color("#64748B")
	dimColor      = lipgloss.Color("#94A3B8")
	paperColor    = lipgloss.Color("#F8FAFC")
	platformColor = lipgloss.Color("#38BDF8")

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(shutterColor).
			Padding(0, 1)

	footerStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#1E293B")).
			Foreground(paperColor).
			Padding(0, 1)

	codeBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(shutterColor).
			Padding(0, 1)

	cursorStyle = lipgloss.NewStyle().
			Background(shutterColor).
			Foreground(lipgloss.Color("#0F172A")).
			Bold(true).
			Padding(0, 2)

	hintStyle = lipgloss.NewStyle().
			Foreground(dimColor).
			Italic(true)

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(frameColor).
			Padding(0, 1)

	// Prompts and notices sit over the preview.
	noticeStyle = lipgloss.NewStyle().
			Border(lipgloss.ThickBorder()).
			BorderForeground(shutterColor).
			Padding(0, 2)

	fieldStyle   = lipgloss.NewStyle().Foreground(dimColor)
	readingStyle = lipgloss.NewStyle().Foreground(paperColor)

	savedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#22C55E"))
	cautionStyle = lipgloss.NewStyle().Foreground(shutterColor)
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#F43F5E"))
	badgeStyle   = lipgloss.NewStyle().Foreground(platformColor).Bold(true)
)
