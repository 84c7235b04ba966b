package main

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	colorAccent = lipgloss.Color("#0f766e")
	colorMuted  = lipgloss.Color("#52606d")
	colorError  = lipgloss.Color("#b42318")

	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	metaStyle   = lipgloss.NewStyle().Foreground(colorMuted)
	headerStyle = lipgloss.NewStyle().Bold(true).PaddingRight(2)
	cellStyle   = lipgloss.NewStyle().PaddingRight(2)
	errorStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorError)
)

// maxCellWidth truncates long cells in previews.
const maxCellWidth = 32

// renderGrid lays out header and rows as left-aligned columns.
func renderGrid(header []string, rows [][]string) string {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) {
				widths[i] = max(widths[i], lipgloss.Width(truncate(cell)))
			}
		}
	}

	var b strings.Builder
	for i, h := range header {
		b.WriteString(headerStyle.Width(widths[i] + 2).Render(h))
	}
	b.WriteString("\n")
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) {
				b.WriteString(cellStyle.Width(widths[i] + 2).Render(truncate(cell)))
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

func truncate(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if r := []rune(s); len(r) > maxCellWidth {
		return string(r[:maxCellWidth-1]) + "…"
	}
	return s
}
