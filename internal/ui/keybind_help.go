package ui

import (
	"maps"
	"slices"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
)

var leaderHelpBox = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(lipgloss.Color(ColorAccent)).
	Padding(0, 1).
	MarginTop(1)

// RenderKeybindHelp is the hint box shown while a leader sequence is being
// typed. It is empty when no sequence is pending or nothing can follow it.
func RenderKeybindHelp(h *KeyHandler, mode AppMode) string {
	if h == nil || !h.LeaderWaiting {
		return ""
	}
	seq := h.CurrentSeq()
	hints := h.Registry.LeaderHints(seq, mode)
	if len(hints) == 0 {
		return ""
	}

	bindings := make([]key.Binding, 0, len(hints)+1)
	for _, k := range slices.Sorted(maps.Keys(hints)) {
		bindings = append(bindings, key.NewBinding(key.WithKeys(k), key.WithHelp(k, hints[k])))
	}
	bindings = append(bindings, key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")))

	hm := help.New()
	hm.Styles.ShortKey = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorHighlight)).Bold(true)
	hm.Styles.ShortDesc = Styles.Muted
	hm.Styles.ShortSeparator = Styles.Muted
	return leaderHelpBox.Render(Styles.Muted.Render(seq) + " " + hm.ShortHelpView(bindings))
}
