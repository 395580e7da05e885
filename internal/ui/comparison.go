package ui

import (
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"teachdash/internal/api"
	"teachdash/internal/auth"
	"teachdash/internal/selectbox"
	"teachdash/internal/ui/textutil"
)

const (
	fieldTeacherA = "teacher_a"
	fieldTeacherB = "teacher_b"
)

type reportsLoadedMsg struct {
	Side      string
	TeacherID int
	Reports   []api.MonthlyReport
	Err       error
}

// comparisonSide is one column of the comparison.
type comparisonSide struct {
	picker  *selectbox.Model[api.Teacher]
	want    int
	loading bool
	reports []api.MonthlyReport
}

// ComparisonView shows two teachers' monthly reports side by side.
type ComparisonView struct {
	env   *Env
	sides map[string]*comparisonSide
	focus *FocusManager
	err   string
}

var _ Page = (*ComparisonView)(nil)

// NewComparisonView creates the comparison page.
func NewComparisonView(env *Env) *ComparisonView {
	c := &ComparisonView{
		env: env,
		sides: map[string]*comparisonSide{
			fieldTeacherA: {picker: newTeacherPicker(fieldTeacherA)},
			fieldTeacherB: {picker: newTeacherPicker(fieldTeacherB)},
		},
		focus: NewFocusManager(fieldTeacherA, fieldTeacherB),
	}
	c.sides[fieldTeacherA].picker.Focus()
	return c
}

func (c *ComparisonView) Page() auth.Page { return auth.PageComparison }

func (c *ComparisonView) CapturesInput() bool {
	for _, s := range c.sides {
		if s.picker.IsOpen() {
			return true
		}
	}
	return false
}

// WantsKey lets the focused teacher select open on space.
func (c *ComparisonView) WantsKey(msg tea.KeyMsg) bool {
	return c.sides[c.focus.Current].picker.WantsKey(msg)
}

func (c *ComparisonView) Init() tea.Cmd { return loadTeachersCmd(c.env) }

func (c *ComparisonView) Refresh() tea.Cmd {
	return tea.Batch(loadTeachersCmd(c.env), c.fetch(fieldTeacherA), c.fetch(fieldTeacherB))
}

// Picker returns the select for side "teacher_a" or "teacher_b".
func (c *ComparisonView) Picker(side string) *selectbox.Model[api.Teacher] {
	return c.sides[side].picker
}

// Reports returns the reports loaded for a side.
func (c *ComparisonView) Reports(side string) []api.MonthlyReport {
	return c.sides[side].reports
}

// Err is the current banner text.
func (c *ComparisonView) Err() string { return c.err }

func (c *ComparisonView) fetch(side string) tea.Cmd {
	s := c.sides[side]
	id := selectedTeacherID(s.picker)
	if id == 0 {
		return nil
	}
	s.want = id
	s.loading = true
	env := c.env
	return func() tea.Msg {
		reports, err := env.Backend.TeacherReports(env.ctx(), id)
		return reportsLoadedMsg{Side: side, TeacherID: id, Reports: reports, Err: err}
	}
}

func (c *ComparisonView) Update(msg tea.Msg) (View, tea.Cmd) {
	switch msg := msg.(type) {
	case TeachersLoadedMsg:
		if msg.Err != nil {
			c.err = "Could not load teachers: " + errText(msg.Err)
			return c, nil
		}
		for _, s := range c.sides {
			s.picker.SetOptions(msg.Teachers)
		}
		return c, nil
	case TeachersChangedMsg:
		return c, loadTeachersCmd(c.env)
	case teacherChosenMsg:
		if _, ok := c.sides[msg.Field]; !ok {
			return c, nil
		}
		return c, c.fetch(msg.Field)
	case reportsLoadedMsg:
		s, ok := c.sides[msg.Side]
		if !ok {
			return c, nil
		}
		if msg.TeacherID != s.want {
			c.env.log().Debug("dropping stale reports reply",
				zap.String("side", msg.Side), zap.Int("teacher_id", msg.TeacherID))
			return c, nil
		}
		s.loading = false
		if msg.Err != nil {
			c.err = errText(msg.Err)
			s.reports = nil
			return c, nil
		}
		s.reports = msg.Reports
		return c, nil
	case tea.MouseMsg:
		var cmds []tea.Cmd
		opened := ""
		for _, field := range c.focus.Order {
			s := c.sides[field]
			wasOpen := s.picker.IsOpen()
			cmds = append(cmds, s.picker.Update(msg))
			if s.picker.IsOpen() && !wasOpen {
				opened = field
			}
		}
		if opened != "" {
			c.focus.SetFocus(opened)
			c.setFocus(opened)
		}
		return c, tea.Batch(cmds...)
	case tea.KeyMsg:
		c.err = ""
		return c, c.handleKey(msg)
	}
	return c, nil
}

func (c *ComparisonView) handleKey(msg tea.KeyMsg) tea.Cmd {
	for _, s := range c.sides {
		if s.picker.IsOpen() {
			return s.picker.Update(msg)
		}
	}
	switch msg.String() {
	case "tab":
		c.setFocus(c.focus.Next())
		return nil
	case "shift+tab":
		c.setFocus(c.focus.Prev())
		return nil
	}
	return c.sides[c.focus.Current].picker.Update(msg)
}

func (c *ComparisonView) setFocus(id string) {
	for field, s := range c.sides {
		if field == id {
			s.picker.Focus()
		} else {
			s.picker.Blur()
		}
	}
}

func (c *ComparisonView) View() string {
	a, b := c.sides[fieldTeacherA], c.sides[fieldTeacherB]

	var out strings.Builder
	lineA := placeWidget(a.picker, fieldLabel("Teacher A", c.focus.Is(fieldTeacherA)), a.picker.View(), 0)
	out.WriteString(lineA + "\n")
	lineB := placeWidget(b.picker, fieldLabel("Teacher B", c.focus.Is(fieldTeacherB)), b.picker.View(), lipgloss.Height(lineA))
	out.WriteString(lineB + "\n\n")

	idA, idB := selectedTeacherID(a.picker), selectedTeacherID(b.picker)
	switch {
	case idA == 0 || idB == 0:
		out.WriteString(Styles.Empty.Render("Select two teachers to compare their monthly reports.") + "\n")
	case a.loading || b.loading:
		out.WriteString(Styles.Muted.Render("Loading reports…") + "\n")
	default:
		nameA, nameB := a.picker.CurrentLabel(), b.picker.CurrentLabel()
		out.WriteString(renderComparison(nameA, nameB, compareRows(a.reports, b.reports)))
	}
	if banner := renderBanner(c.err); banner != "" {
		out.WriteString("\n" + banner + "\n")
	}
	return out.String()
}

// comparisonRow pairs the two teachers' reports for one month. Either side
// may be missing.
type comparisonRow struct {
	Period api.Period
	A, B   *api.MonthlyReport
}

// compareRows joins both report lists on (year, month), newest first.
func compareRows(a, b []api.MonthlyReport) []comparisonRow {
	byPeriod := make(map[api.Period]*comparisonRow)
	row := func(p api.Period) *comparisonRow {
		r, ok := byPeriod[p]
		if !ok {
			r = &comparisonRow{Period: p}
			byPeriod[p] = r
		}
		return r
	}
	for i := range a {
		row(a[i].Period()).A = &a[i]
	}
	for i := range b {
		row(b[i].Period()).B = &b[i]
	}
	rows := make([]comparisonRow, 0, len(byPeriod))
	for _, r := range byPeriod {
		rows = append(rows, *r)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[j].Period.Before(rows[i].Period) })
	return rows
}

var comparisonColumns = []textutil.Column{
	{Width: 9},
	{Width: 10},
	{Width: 16, Right: true},
	{Width: 16, Right: true},
}

func renderComparison(nameA, nameB string, rows []comparisonRow) string {
	if len(rows) == 0 {
		return "  " + Styles.Empty.Render("Neither teacher has monthly reports") + "\n"
	}
	var b strings.Builder
	b.WriteString("  " + Styles.Header.Render(textutil.Row(comparisonColumns,
		"Month", "Metric", nameA, nameB)) + "\n")
	for _, r := range rows {
		metrics := []struct {
			name string
			val  func(*api.MonthlyReport) string
		}{
			{"Views", func(m *api.MonthlyReport) string { return naInt(m.VideoViews) }},
			{"Quality", func(m *api.MonthlyReport) string { return naFloat(m.QualityScore, "%.1f") }},
			{"Students", func(m *api.MonthlyReport) string { return naFloat(m.StudentFeedbackScore, "%.1f") }},
			{"On time", func(m *api.MonthlyReport) string { return naBool(m.OperationsOnSchedule) }},
		}
		for i, metric := range metrics {
			month := ""
			if i == 0 {
				month = r.Period.String()
			}
			b.WriteString("  " + textutil.Row(comparisonColumns,
				month, metric.name, sideValue(r.A, metric.val), sideValue(r.B, metric.val)) + "\n")
		}
	}
	return b.String()
}

func sideValue(m *api.MonthlyReport, f func(*api.MonthlyReport) string) string {
	if m == nil {
		return notAvailable
	}
	return f(m)
}
