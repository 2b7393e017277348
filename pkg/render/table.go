// Package render holds the lipgloss styling for ragup's terminal
// output (status table, warnings).
package render

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Theme is the small palette used by ragup output.
type Theme struct {
	Title   lipgloss.Style
	Header  lipgloss.Style
	Up      lipgloss.Style
	Down    lipgloss.Style
	Warn    lipgloss.Style
	Muted   lipgloss.Style
	Default lipgloss.Style
}

func DefaultTheme() Theme {
	success := lipgloss.Color("#22C55E")
	errorC := lipgloss.Color("#EF4444")
	warning := lipgloss.Color("#EAB308")
	muted := lipgloss.Color("#6B7280")
	text := lipgloss.Color("#F9FAFB")

	return Theme{
		Title:   lipgloss.NewStyle().Bold(true).Foreground(text),
		Header:  lipgloss.NewStyle().Bold(true).Foreground(muted),
		Up:      lipgloss.NewStyle().Foreground(success),
		Down:    lipgloss.NewStyle().Foreground(errorC),
		Warn:    lipgloss.NewStyle().Foreground(warning),
		Muted:   lipgloss.NewStyle().Foreground(muted),
		Default: lipgloss.NewStyle(),
	}
}

type Column struct {
	Header string
	Width  int
}

type Row struct {
	Cells []string
	// Style applies to every cell in the row; nil means Default.
	Style *lipgloss.Style
}

// Table renders a fixed-width header + rows block.
func Table(theme Theme, cols []Column, rows []Row) string {
	var lines []string

	var headers []string
	for _, c := range cols {
		headers = append(headers, theme.Header.Width(c.Width).Render(truncate(c.Header, c.Width)))
	}
	lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, headers...))

	for _, row := range rows {
		style := theme.Default
		if row.Style != nil {
			style = *row.Style
		}
		var parts []string
		for j, cell := range row.Cells {
			width := 20
			if j < len(cols) && cols[j].Width > 0 {
				width = cols[j].Width
			}
			parts = append(parts, style.Width(width).Render(truncate(cell, width)))
		}
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, parts...))
	}

	return strings.Join(lines, "\n")
}

func truncate(s string, width int) string {
	if width <= 1 || len(s) <= width {
		return s
	}
	return s[:width-1] + "…"
}
