// Package textutil measures and fits text by terminal cells so that tables
// with names in any script stay aligned.
package textutil

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// Ellipsis marks truncated text.
const Ellipsis = "…"

// Width is the number of terminal cells s occupies. ANSI styling is ignored.
func Width(s string) int {
	return lipgloss.Width(s)
}

// Truncate shortens plain text to at most maxWidth cells, ending in Ellipsis
// when anything was cut.
func Truncate(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= maxWidth {
		return s
	}
	avail := maxWidth - runewidth.StringWidth(Ellipsis)
	if avail < 0 {
		return Ellipsis
	}
	var b strings.Builder
	used := 0
	for _, r := range s {
		w := runewidth.RuneWidth(r)
		if used+w > avail {
			break
		}
		b.WriteRune(r)
		used += w
	}
	return b.String() + Ellipsis
}

// PadRightVisual fits s into exactly width cells, left aligned.
func PadRightVisual(s string, width int) string {
	s = Truncate(s, width)
	return s + strings.Repeat(" ", max(width-runewidth.StringWidth(s), 0))
}

// PadLeftVisual fits s into exactly width cells, right aligned.
func PadLeftVisual(s string, width int) string {
	s = Truncate(s, width)
	return strings.Repeat(" ", max(width-runewidth.StringWidth(s), 0)) + s
}

// Column is one fixed-width table column.
type Column struct {
	Width int
	Right bool
}

// Row fits cells into cols, leaving one space between columns. Missing cells
// render blank; extra cells are dropped.
func Row(cols []Column, cells ...string) string {
	parts := make([]string, len(cols))
	for i, c := range cols {
		cell := ""
		if i < len(cells) {
			cell = cells[i]
		}
		inner := max(c.Width-1, 1)
		if c.Right {
			parts[i] = PadLeftVisual(cell, inner) + " "
		} else {
			parts[i] = PadRightVisual(cell, inner) + " "
		}
	}
	return strings.TrimRight(strings.Join(parts, ""), " ")
}
