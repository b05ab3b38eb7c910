package ui

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Palette.
var (
	ColorText    = lipgloss.AdaptiveColor{Light: "#343b58", Dark: "#c0caf5"}
	ColorTextDim = lipgloss.AdaptiveColor{Light: "#6a6d7c", Dark: "#787fa0"}
	ColorBorder  = lipgloss.AdaptiveColor{Light: "#9699a3", Dark: "#414868"}
	ColorAccent  = lipgloss.AdaptiveColor{Light: "#34548a", Dark: "#7aa2f7"}
	ColorGreen   = lipgloss.AdaptiveColor{Light: "#485e30", Dark: "#9ece6a"}
	ColorYellow  = lipgloss.AdaptiveColor{Light: "#8f5e15", Dark: "#e0af68"}
	ColorRed     = lipgloss.AdaptiveColor{Light: "#8c4351", Dark: "#f7768e"}
	ColorCyan    = lipgloss.AdaptiveColor{Light: "#166775", Dark: "#7dcfff"}
)

var headerStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorAccent)

var footerStyle = lipgloss.NewStyle().
	Foreground(ColorTextDim)

var flashStyle = lipgloss.NewStyle().
	Foreground(ColorYellow)

var errorStyle = lipgloss.NewStyle().
	Foreground(ColorRed)

var titleStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorText).
	MarginBottom(1)

var menuItemStyle = lipgloss.NewStyle().
	Foreground(ColorText)

var menuSelectedStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorAccent)

var menuDimStyle = lipgloss.NewStyle().
	Foreground(ColorTextDim)

var dialogStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(ColorBorder).
	Padding(1, 2)

var logStyle = lipgloss.NewStyle().
	Border(lipgloss.NormalBorder()).
	BorderForeground(ColorBorder)

// stateStyle colours a domain state label in the header.
func stateStyle(label string) lipgloss.Style {
	s := lipgloss.NewStyle().Bold(true)
	switch label {
	case "RUNNING":
		return s.Foreground(ColorGreen)
	case "PAUSED", "SAVED":
		return s.Foreground(ColorYellow)
	case "NOT FOUND", "UNKNOWN":
		return s.Foreground(ColorRed)
	}
	return s.Foreground(ColorCyan)
}

// ColorProfile maps a color setting to a termenv profile. VMTUI_COLOR
// overrides setting. Anything unrecognised, including "auto", detects the
// profile from the environment.
func ColorProfile(setting string) termenv.Profile {
	if env := os.Getenv("VMTUI_COLOR"); env != "" {
		setting = env
	}
	switch strings.ToLower(setting) {
	case "truecolor", "true", "24bit":
		return termenv.TrueColor
	case "256", "ansi256":
		return termenv.ANSI256
	case "16", "ansi", "basic":
		return termenv.ANSI
	case "none", "off", "ascii":
		return termenv.Ascii
	}
	return termenv.EnvColorProfile()
}

// InitColorProfile applies ColorProfile(setting) to lipgloss.
func InitColorProfile(setting string) {
	lipgloss.SetColorProfile(ColorProfile(setting))
}
