package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	accent = lipgloss.Color("86")
	muted  = lipgloss.Color("240")

	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(accent)

	Panel = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(muted).
		Padding(0, 1)

	Label = lipgloss.NewStyle().
		Foreground(lipgloss.Color("245")).
		Width(14)

	Value = lipgloss.NewStyle().
		Foreground(lipgloss.Color("252"))

	Subtle = lipgloss.NewStyle().
		Foreground(muted)

	KeyHint = lipgloss.NewStyle().
		Foreground(muted).
		Italic(true)

	StatusOK = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00ff88"))

	StatusWarn = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#ffaa00"))

	StatusFail = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#ff4444"))

	graphStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("49"))
)

// KV renders one aligned "label value" line.
func KV(label, value string) string {
	return Label.Render(label) + Value.Render(value)
}

// Box renders a titled panel around lines.
func Box(title string, lines ...string) string {
	body := Title.Render(title) + "\n" + strings.Join(lines, "\n")
	return Panel.Render(body)
}

// Table renders rows under headers with a rounded border.
func Table(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(Subtle).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return Title.Padding(0, 1)
			}
			return Value.Padding(0, 1)
		}).
		Headers(headers...).
		Rows(rows...).
		Render()
}
