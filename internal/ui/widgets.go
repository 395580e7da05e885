package ui

import (
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"teachdash/internal/api"
	"teachdash/internal/selectbox"
)

// contentTop is the number of lines the app header takes above a page.
const contentTop = 2

const (
	notAvailable = "N/A"
	noSummary    = "No summary available"
)

// teacherChosenMsg is emitted when a teacher picker commits.
type teacherChosenMsg struct {
	Field   string
	Teacher api.Teacher
}

func newTeacherPicker(field string) *selectbox.Model[api.Teacher] {
	sb := selectbox.New[api.Teacher](nil)
	sb.Placeholder = "Select a teacher…"
	sb.Width = 36
	sb.OnChange = func(_ string, t api.Teacher) tea.Cmd {
		return func() tea.Msg { return teacherChosenMsg{Field: field, Teacher: t} }
	}
	return sb
}

// selectedTeacherID is 0 when nothing is selected.
func selectedTeacherID(sb *selectbox.Model[api.Teacher]) int {
	if t, ok := sb.Selected(); ok {
		return t.ID
	}
	return 0
}

// fieldLabel renders a fixed-width form label, highlighted when focused.
func fieldLabel(name string, focused bool) string {
	text := fmt.Sprintf("%-10s", name+":")
	if focused {
		return Styles.Focused.Render(text)
	}
	return Styles.Label.Render(text)
}

// fieldLabelWidth is the visual width of fieldLabel output.
const fieldLabelWidth = 10

// placeWidget renders label and widget side by side and records the widget's
// origin so pointer events hit it. y is the line within the page.
func placeWidget(sb interface{ SetOrigin(x, y int) }, label string, widget string, y int) string {
	sb.SetOrigin(fieldLabelWidth, contentTop+y)
	return lipgloss.JoinHorizontal(lipgloss.Top, label, widget)
}

// renderBanner is the page-local error line; empty when there is no error.
func renderBanner(msg string) string {
	if msg == "" {
		return ""
	}
	return Styles.Banner.Render("✗ " + msg)
}

// errText is the user-facing text of err. Backend details are shown as-is.
func errText(err error) string {
	var apiErr *api.Error
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		return apiErr.Detail
	}
	return err.Error()
}

func naInt(v *int) string {
	if v == nil {
		return notAvailable
	}
	return fmt.Sprintf("%d", *v)
}

func naFloat(v *float64, format string) string {
	if v == nil {
		return notAvailable
	}
	return fmt.Sprintf(format, *v)
}

func naBool(v *bool) string {
	if v == nil {
		return notAvailable
	}
	if *v {
		return "Yes"
	}
	return "No"
}

func summaryOr(s *string) string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return noSummary
	}
	return *s
}

// periodField edits a (year, month) pair with the arrow keys.
type periodField struct {
	Period api.Period
}

// Update handles left/right (month) and +/- (year). Returns whether the
// period changed.
func (f *periodField) Update(msg tea.KeyMsg) bool {
	p := f.Period
	switch msg.String() {
	case "left", "h":
		p.Month--
		if p.Month < 1 {
			p.Month = 12
			p.Year--
		}
	case "right", "l":
		p.Month++
		if p.Month > 12 {
			p.Month = 1
			p.Year++
		}
	case "-", "pgdown":
		p.Year--
	case "+", "=", "pgup":
		p.Year++
	default:
		return false
	}
	if !p.Valid() {
		return false
	}
	f.Period = p
	return true
}

func (f *periodField) View(focused bool) string {
	s := "◂ " + f.Period.String() + " ▸"
	if focused {
		return Styles.Selected.Render(s)
	}
	return Styles.Normal.Render(s)
}

// formatDuration renders seconds as "3h 25m".
func formatDuration(seconds *int) string {
	if seconds == nil {
		return notAvailable
	}
	h := *seconds / 3600
	m := (*seconds % 3600) / 60
	if h == 0 {
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%dh %02dm", h, m)
}
