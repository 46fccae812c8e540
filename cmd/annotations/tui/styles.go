package tui

import "github.com/charmbracelet/lipgloss"

// Palette. Adaptive colors keep light terminals readable.
var (
	accent  = lipgloss.AdaptiveColor{Light: "#5B21B6", Dark: "#A78BFA"}
	keyTint = lipgloss.AdaptiveColor{Light: "#047857", Dark: "#34D399"}
	fkTint  = lipgloss.AdaptiveColor{Light: "#B45309", Dark: "#FBBF24"}
	heading = lipgloss.AdaptiveColor{Light: "#1D4ED8", Dark: "#60A5FA"}
	dim     = lipgloss.AdaptiveColor{Light: "#9CA3AF", Dark: "#6B7280"}
	plain   = lipgloss.AdaptiveColor{Light: "#111827", Dark: "#E5E7EB"}
	frame   = lipgloss.AdaptiveColor{Light: "#D1D5DB", Dark: "#374151"}
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(accent).MarginBottom(1)
	sectionStyle = lipgloss.NewStyle().Bold(true).Foreground(heading).MarginTop(1)
	keyStyle     = lipgloss.NewStyle().Bold(true).Foreground(keyTint)
	edgeStyle    = lipgloss.NewStyle().Foreground(fkTint)
	mutedStyle   = lipgloss.NewStyle().Foreground(dim)
	helpStyle    = lipgloss.NewStyle().Foreground(dim).MarginTop(1)

	selectedItemStyle   = lipgloss.NewStyle().Bold(true).Foreground(accent).PaddingLeft(1).Border(lipgloss.NormalBorder(), false, false, false, true).BorderForeground(accent)
	unselectedItemStyle = lipgloss.NewStyle().Foreground(plain).PaddingLeft(2)

	boxStyle       = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(frame).Padding(0, 1)
	activeBoxStyle = boxStyle.BorderForeground(accent)
)

// FormatKey renders one entry of the help line, e.g. "tab switch pane".
func FormatKey(key, action string) string {
	return lipgloss.NewStyle().Foreground(accent).Render(key) + " " + mutedStyle.Render(action)
}
