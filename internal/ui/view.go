package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"teachdash/internal/auth"
)

// View is the unit of composition; implements Bubble Tea's Init/Update/View.
type View interface {
	Init() tea.Cmd
	Update(tea.Msg) (View, tea.Cmd)
	View() string
}

// Page is a navigable screen.
type Page interface {
	View
	// Page names the screen for the guard and the header.
	Page() auth.Page
	// CapturesInput reports whether a text field or open select owns the
	// keyboard, in which case leader keybinds are not applied.
	CapturesInput() bool
	// Refresh refetches everything the page shows.
	Refresh() tea.Cmd
}
