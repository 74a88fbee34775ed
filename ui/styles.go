package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/voicepal/voicepal/internal/playback"
)

var (
	statusBarNoteFg = lipgloss.AdaptiveColor{Light: "#656565", Dark: "#7D7D7D"}
	statusBarBg     = lipgloss.AdaptiveColor{Light: "#E6E6E6", Dark: "#242424"}

	logoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ECFD65")).
			Background(lipgloss.Color("#FF5F87")).
			Bold(true)

	statusBarNoteStyle = lipgloss.NewStyle().
				Foreground(statusBarNoteFg).
				Background(statusBarBg)

	statusBarMessageStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#1C1C1C")).
				Background(lipgloss.Color("#6124DF"))

	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	noticeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF8800"))
	currentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#B6FFE4"))
	headerStyle  = lipgloss.NewStyle().Bold(true)
	helpStyle    = lipgloss.NewStyle().Foreground(statusBarNoteFg)
)

func stateColor(s playback.State) lipgloss.Color {
	switch s {
	case playback.Speaking:
		return lipgloss.Color("#00FF00")
	case playback.Idle:
		return lipgloss.Color("#888888")
	default:
		return lipgloss.Color("#666666")
	}
}

func stateIcon(s playback.State) string {
	switch s {
	case playback.Speaking:
		return "▶"
	case playback.Idle:
		return "■"
	default:
		return "○"
	}
}
