package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"

	"teachdash/internal/progress"
)

// ProgressWindow shows per-row outcomes of a running bulk import with
// scrollback.
type ProgressWindow struct {
	Title    string
	events   []progress.Event
	viewport viewport.Model
}

const defaultProgressWidth = 70
const defaultProgressHeight = 8

// NewProgressWindow creates an empty progress window.
func NewProgressWindow(title string) *ProgressWindow {
	vp := viewport.New(defaultProgressWidth, defaultProgressHeight)
	vp.Style = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(ColorHighlight)).
		Padding(0, 1)
	return &ProgressWindow{Title: title, viewport: vp}
}

// Add appends an event and scrolls to it.
func (p *ProgressWindow) Add(ev progress.Event) {
	p.events = append(p.events, ev)
	p.refreshContent()
	p.viewport.GotoBottom()
}

// Events returns the events received so far.
func (p *ProgressWindow) Events() []progress.Event {
	return p.events
}

// Update scrolls on keys.
func (p *ProgressWindow) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	p.viewport, cmd = p.viewport.Update(msg)
	return cmd
}

func (p *ProgressWindow) refreshContent() {
	var b strings.Builder
	for i, ev := range p.events {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(statusStyle(ev.Status).Render(statusIcon(ev.Status)))
		b.WriteString(" ")
		b.WriteString(ev.Label())
	}
	p.viewport.SetContent(b.String())
}

// View renders the title, a percentage and the scrollback.
func (p *ProgressWindow) View() string {
	header := Styles.Title.Render(p.Title)
	if n := len(p.events); n > 0 {
		header += Styles.Muted.Render(fmt.Sprintf("  %d%%", p.events[n-1].Percent()))
	}
	return header + "\n" + p.viewport.View()
}

func statusIcon(s progress.Status) string {
	switch s {
	case progress.StatusDone:
		return "✓"
	case progress.StatusError:
		return "✗"
	case progress.StatusSkipped:
		return "–"
	default:
		return "…"
	}
}

func statusStyle(s progress.Status) lipgloss.Style {
	switch s {
	case progress.StatusDone:
		return Styles.Success
	case progress.StatusError:
		return Styles.Banner
	default:
		return Styles.Muted
	}
}
