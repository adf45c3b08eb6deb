package tui

import "github.com/charmbracelet/lipgloss"

var (
	colorMuted   = lipgloss.Color("#565f89")
	colorPrimary = lipgloss.Color("#7aa2f7")
	colorSuccess = lipgloss.Color("#9ece6a")
	colorWarning = lipgloss.Color("#e0af68")
	colorError   = lipgloss.Color("#f7768e")
	colorSelect  = lipgloss.Color("#33467c")
)

type styles struct {
	title    lipgloss.Style
	muted    lipgloss.Style
	selected lipgloss.Style
	pending  lipgloss.Style
	deleted  lipgloss.Style
	err      lipgloss.Style
	notice   lipgloss.Style
	status   map[string]lipgloss.Style
	priority map[string]lipgloss.Style
}

func newStyles() styles {
	return styles{
		title:    lipgloss.NewStyle().Bold(true).Foreground(colorPrimary),
		muted:    lipgloss.NewStyle().Foreground(colorMuted),
		selected: lipgloss.NewStyle().Background(colorSelect),
		pending:  lipgloss.NewStyle().Italic(true).Foreground(colorMuted),
		deleted:  lipgloss.NewStyle().Strikethrough(true).Foreground(colorMuted),
		err:      lipgloss.NewStyle().Foreground(colorError),
		notice:   lipgloss.NewStyle().Foreground(colorSuccess),
		status: map[string]lipgloss.Style{
			"todo":  lipgloss.NewStyle().Foreground(colorMuted),
			"doing": lipgloss.NewStyle().Foreground(colorWarning),
			"done":  lipgloss.NewStyle().Foreground(colorSuccess),
		},
		priority: map[string]lipgloss.Style{
			"low":    lipgloss.NewStyle().Foreground(colorMuted),
			"medium": lipgloss.NewStyle().Foreground(colorPrimary),
			"high":   lipgloss.NewStyle().Foreground(colorError).Bold(true),
		},
	}
}
