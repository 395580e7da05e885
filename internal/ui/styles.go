package ui

import "github.com/charmbracelet/lipgloss"

// Theme colors used throughout the UI
const (
	ColorAccent    = "86"  // Cyan/green - for titles, highlights
	ColorHighlight = "205" // Magenta - for selected items, borders
	ColorDanger    = "196" // Red - for errors
	ColorMuted     = "241" // Gray - for dimmed text, hints
	ColorText      = "252" // Light gray - for normal text
	ColorDim       = "243" // Darker gray - for very dim text
	ColorWarning   = "208" // Orange - for warning details
	ColorSuccess   = "42"  // Green - for completed actions
)

// Styles contains shared style definitions used across pages and modals.
var Styles = struct {
	Title        lipgloss.Style // Bold accent color - for page titles
	TitleWarning lipgloss.Style // Bold danger color - for warning titles

	Box       lipgloss.Style // Standard box with rounded border
	BoxDanger lipgloss.Style // Warning/error box
	Banner    lipgloss.Style // Page-local error banner

	Selected lipgloss.Style // Highlighted/selected rows
	Muted    lipgloss.Style
	Normal   lipgloss.Style
	Hint     lipgloss.Style
	Status   lipgloss.Style // Status line (accent color)
	Success  lipgloss.Style
	Section  lipgloss.Style // Section headers (highlight color)
	Empty    lipgloss.Style // Empty state text (muted, italic)
	Label    lipgloss.Style // Form labels
	Focused  lipgloss.Style // Label of the focused form field
	Header   lipgloss.Style // Table header row
	Details  lipgloss.Style // Warning details (warning color)
}{
	Title: lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color(ColorAccent)),
	TitleWarning: lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color(ColorDanger)),
	Box: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(ColorHighlight)).
		Padding(1, 2).
		Margin(1),
	BoxDanger: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(ColorDanger)).
		Padding(1, 2).
		Margin(1),
	Banner: lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorDanger)).
		Bold(true),
	Selected: lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorHighlight)).
		Bold(true),
	Muted: lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorMuted)),
	Normal: lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorText)),
	Hint: lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorMuted)),
	Status: lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorAccent)),
	Success: lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorSuccess)),
	Section: lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorHighlight)).
		Bold(true),
	Empty: lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorMuted)).
		Italic(true),
	Label: lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorDim)),
	Focused: lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorAccent)).
		Bold(true),
	Header: lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorDim)).
		Underline(true),
	Details: lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorWarning)),
}
