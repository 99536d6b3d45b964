package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/msto63/dolmetscher/internal/interpreter"
)

// Colors
var (
	colorPrimary   = lipgloss.Color("#7C3AED")
	colorSecondary = lipgloss.Color("#10B981")
	colorAccent    = lipgloss.Color("#F59E0B")
	colorError     = lipgloss.Color("#EF4444")
	colorMuted     = lipgloss.Color("#6B7280")
	colorFg        = lipgloss.Color("#F9FAFB")
	colorBar       = lipgloss.Color("#374151")
)

// Styles
var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary)

	SubtitleStyle = lipgloss.NewStyle().
			Foreground(colorMuted).
			Italic(true)

	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorMuted).
			Padding(0, 1)

	ActiveBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorSecondary).
			Padding(0, 1)

	// Transcript
	SourceStyle = lipgloss.NewStyle().
			Foreground(colorFg)

	TranslationStyle = lipgloss.NewStyle().
				Foreground(colorSecondary).
				Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(colorAccent)

	ErrorMessageStyle = lipgloss.NewStyle().
				Foreground(colorError)

	StatusBarStyle = lipgloss.NewStyle().
			Background(colorBar).
			Foreground(colorFg).
			Padding(0, 1)

	HelpStyle = lipgloss.NewStyle().
			Foreground(colorMuted).
			MarginTop(1)
)

// StateStyle colors a pipeline state
func StateStyle(s interpreter.State) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)
	switch s {
	case interpreter.StateListening:
		return base.Foreground(colorSecondary)
	case interpreter.StateInitializing, interpreter.StateStopping:
		return base.Foreground(colorAccent)
	case interpreter.StateFailed:
		return base.Foreground(colorError)
	default:
		return base.Foreground(colorMuted)
	}
}

func RenderError(err string) string {
	return ErrorMessageStyle.Render("Error: " + err)
}

func RenderHelp(help string) string {
	return HelpStyle.Render(help)
}
