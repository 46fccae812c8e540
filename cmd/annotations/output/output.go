// Package output renders CLI messages and tables with lipgloss.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	colorSuccess = lipgloss.Color("#10B981")
	colorWarning = lipgloss.Color("#F59E0B")
	colorError   = lipgloss.Color("#EF4444")
	colorInfo    = lipgloss.Color("#3B82F6")
	colorMuted   = lipgloss.Color("#6B7280")
	colorPrimary = lipgloss.Color("#7C3AED")
	colorCode    = lipgloss.Color("#A78BFA")

	successStyle = lipgloss.NewStyle().Foreground(colorSuccess).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(colorWarning).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(colorError).Bold(true)
	infoStyle    = lipgloss.NewStyle().Foreground(colorInfo)
	mutedStyle   = lipgloss.NewStyle().Foreground(colorMuted)
	primaryStyle = lipgloss.NewStyle().Foreground(colorPrimary).Bold(true)
	codeStyle    = lipgloss.NewStyle().Foreground(colorCode)
	headerStyle  = lipgloss.NewStyle().Foreground(colorPrimary).Bold(true).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
)

// Stdout and Stderr are where messages go; tests swap them.
var (
	Stdout io.Writer = os.Stdout
	Stderr io.Writer = os.Stderr
)

// Success prints a success message
func Success(format string, args ...any) {
	fmt.Fprintln(Stdout, successStyle.Render("✓ ")+fmt.Sprintf(format, args...))
}

// Warning prints a warning message
func Warning(format string, args ...any) {
	fmt.Fprintln(Stdout, warningStyle.Render("⚠ ")+fmt.Sprintf(format, args...))
}

// Error prints an error message to Stderr.
func Error(format string, args ...any) {
	fmt.Fprintln(Stderr, errorStyle.Render("✗ ")+fmt.Sprintf(format, args...))
}

// Info prints an info message
func Info(format string, args ...any) {
	fmt.Fprintln(Stdout, infoStyle.Render("ℹ ")+fmt.Sprintf(format, args...))
}

// Muted prints a muted message
func Muted(format string, args ...any) {
	fmt.Fprintln(Stdout, mutedStyle.Render(fmt.Sprintf(format, args...)))
}

// Section prints a section header
func Section(title string) {
	fmt.Fprintln(Stdout)
	fmt.Fprintln(Stdout, primaryStyle.Render(title))
	fmt.Fprintln(Stdout, mutedStyle.Render(strings.Repeat("═", lipgloss.Width(title))))
}

// SQL prints a script. Comment lines are muted.
func SQL(script string) {
	for _, line := range strings.Split(strings.TrimRight(script, "\n"), "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			fmt.Fprintln(Stdout, mutedStyle.Render(line))
			continue
		}
		fmt.Fprintln(Stdout, codeStyle.Render(line))
	}
}

// Table prints rows under headers with a rounded border.
func Table(headers []string, rows [][]string) {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(mutedStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	fmt.Fprintln(Stdout, t.Render())
}

// Mark returns a check for true and a muted dot for false.
func Mark(ok bool) string {
	if ok {
		return successStyle.Render("✓")
	}
	return mutedStyle.Render("·")
}
