package ui

import "github.com/charmbracelet/lipgloss"

// ModalStyles are the styles used by modal views.
var ModalStyles = struct {
	BoxDefault   lipgloss.Style
	BoxWarning   lipgloss.Style
	Title        lipgloss.Style
	TitleWarning lipgloss.Style
	Label        lipgloss.Style
	Help         lipgloss.Style
	Details      lipgloss.Style
}{
	BoxDefault:   Styles.Box,
	BoxWarning:   Styles.BoxDanger,
	Title:        Styles.Title,
	TitleWarning: Styles.TitleWarning,
	Label:        lipgloss.NewStyle(),
	Help:         Styles.Hint,
	Details:      Styles.Details,
}
