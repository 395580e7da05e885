package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"teachdash/internal/api"
	"teachdash/internal/auth"
	"teachdash/internal/selectbox"
)

const (
	fieldTeacher = "teacher"
	fieldPeriod  = "period"
	fieldTypes   = "types"
)

// dashboardKey identifies one dashboard request.
type dashboardKey struct {
	TeacherID int
	Period    api.Period
	Types     string
}

type dashboardLoadedMsg struct {
	Key  dashboardKey
	Data api.DashboardData
	Err  error
}

// DashboardView shows monthly stats and reports for one teacher and month.
type DashboardView struct {
	env        *Env
	picker     *selectbox.Model[api.Teacher]
	period     periodField
	types      map[api.ReportType]bool
	typeCursor int
	focus      *FocusManager
	spinner    spinner.Model
	loading    bool
	want       dashboardKey
	data       *api.DashboardData
	err        string
}

var _ Page = (*DashboardView)(nil)

// NewDashboardView creates the dashboard with every report type enabled and
// the current month selected.
func NewDashboardView(env *Env) *DashboardView {
	now := env.now()
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = Styles.Status

	d := &DashboardView{
		env:     env,
		picker:  newTeacherPicker(fieldTeacher),
		period:  periodField{Period: api.Period{Year: now.Year(), Month: int(now.Month())}},
		types:   make(map[api.ReportType]bool),
		focus:   NewFocusManager(fieldTeacher, fieldPeriod, fieldTypes),
		spinner: s,
	}
	for _, rt := range api.AllReportTypes {
		d.types[rt] = true
	}
	d.picker.Focus()
	return d
}

func (d *DashboardView) Page() auth.Page { return auth.PageDashboard }

func (d *DashboardView) CapturesInput() bool { return d.picker.IsOpen() }

// WantsKey lets the focused teacher select open on space.
func (d *DashboardView) WantsKey(msg tea.KeyMsg) bool {
	return d.focus.Is(fieldTeacher) && d.picker.WantsKey(msg)
}

func (d *DashboardView) Init() tea.Cmd { return loadTeachersCmd(d.env) }

func (d *DashboardView) Refresh() tea.Cmd {
	return tea.Batch(loadTeachersCmd(d.env), d.fetch())
}

// Picker exposes the teacher select.
func (d *DashboardView) Picker() *selectbox.Model[api.Teacher] { return d.picker }

// Data returns the last dashboard reply shown, or nil.
func (d *DashboardView) Data() *api.DashboardData { return d.data }

// Err is the current banner text.
func (d *DashboardView) Err() string { return d.err }

// Loading reports whether a request is outstanding.
func (d *DashboardView) Loading() bool { return d.loading }

// SelectedTypes lists enabled report types in display order.
func (d *DashboardView) SelectedTypes() []api.ReportType {
	var out []api.ReportType
	for _, rt := range api.AllReportTypes {
		if d.types[rt] {
			out = append(out, rt)
		}
	}
	return out
}

func (d *DashboardView) currentKey() dashboardKey {
	names := make([]string, 0, len(api.AllReportTypes))
	for _, rt := range d.SelectedTypes() {
		names = append(names, string(rt))
	}
	return dashboardKey{
		TeacherID: selectedTeacherID(d.picker),
		Period:    d.period.Period,
		Types:     strings.Join(names, ","),
	}
}

func (d *DashboardView) fetch() tea.Cmd {
	key := d.currentKey()
	if key.TeacherID == 0 {
		return nil
	}
	if key.Types == "" {
		d.err = "Select at least one report type"
		return nil
	}
	d.want = key
	d.loading = true
	env := d.env
	types := d.SelectedTypes()
	return tea.Batch(d.spinner.Tick, func() tea.Msg {
		data, err := env.Backend.DashboardData(env.ctx(), key.TeacherID, key.Period, types)
		return dashboardLoadedMsg{Key: key, Data: data, Err: err}
	})
}

func (d *DashboardView) Update(msg tea.Msg) (View, tea.Cmd) {
	switch msg := msg.(type) {
	case TeachersLoadedMsg:
		if msg.Err != nil {
			d.err = "Could not load teachers: " + errText(msg.Err)
			return d, nil
		}
		d.picker.SetOptions(msg.Teachers)
		return d, nil
	case TeachersChangedMsg:
		return d, loadTeachersCmd(d.env)
	case teacherChosenMsg:
		if msg.Field != fieldTeacher {
			return d, nil
		}
		return d, d.fetch()
	case dashboardLoadedMsg:
		if msg.Key != d.want {
			d.env.log().Debug("dropping stale dashboard reply",
				zap.Int("teacher_id", msg.Key.TeacherID),
				zap.String("period", msg.Key.Period.String()))
			return d, nil
		}
		d.loading = false
		if msg.Err != nil {
			d.err = errText(msg.Err)
			d.data = nil
			return d, nil
		}
		data := msg.Data
		d.data = &data
		return d, nil
	case spinner.TickMsg:
		if d.loading {
			var cmd tea.Cmd
			d.spinner, cmd = d.spinner.Update(msg)
			return d, cmd
		}
		return d, nil
	case tea.MouseMsg:
		wasOpen := d.picker.IsOpen()
		cmd := d.picker.Update(msg)
		if d.picker.IsOpen() && !wasOpen {
			d.focus.SetFocus(fieldTeacher)
		}
		return d, cmd
	case tea.KeyMsg:
		d.err = ""
		return d, d.handleKey(msg)
	}
	return d, nil
}

func (d *DashboardView) handleKey(msg tea.KeyMsg) tea.Cmd {
	if d.picker.IsOpen() {
		return d.picker.Update(msg)
	}
	switch msg.String() {
	case "tab":
		d.setFocus(d.focus.Next())
		return nil
	case "shift+tab":
		d.setFocus(d.focus.Prev())
		return nil
	case "1", "2", "3":
		d.toggleType(int(msg.String()[0] - '1'))
		return d.fetch()
	}

	switch d.focus.Current {
	case fieldTeacher:
		return d.picker.Update(msg)
	case fieldPeriod:
		if d.period.Update(msg) {
			return d.fetch()
		}
		if msg.String() == "enter" {
			return d.fetch()
		}
	case fieldTypes:
		switch msg.String() {
		case "left", "h":
			if d.typeCursor > 0 {
				d.typeCursor--
			}
		case "right", "l":
			if d.typeCursor < len(api.AllReportTypes)-1 {
				d.typeCursor++
			}
		case "enter", "x":
			d.toggleType(d.typeCursor)
			return d.fetch()
		}
	}
	return nil
}

func (d *DashboardView) toggleType(i int) {
	if i < 0 || i >= len(api.AllReportTypes) {
		return
	}
	rt := api.AllReportTypes[i]
	d.types[rt] = !d.types[rt]
}

func (d *DashboardView) setFocus(id string) {
	if id == fieldTeacher {
		d.picker.Focus()
	} else {
		d.picker.Blur()
	}
}

func (d *DashboardView) View() string {
	var b strings.Builder
	b.WriteString(placeWidget(d.picker, fieldLabel("Teacher", d.focus.Is(fieldTeacher)), d.picker.View(), 0) + "\n")
	b.WriteString(fieldLabel("Period", d.focus.Is(fieldPeriod)) + d.period.View(d.focus.Is(fieldPeriod)) + "\n")
	b.WriteString(fieldLabel("Reports", d.focus.Is(fieldTypes)) + d.renderTypes() + "\n\n")

	switch {
	case d.loading:
		b.WriteString(d.spinner.View() + " Loading…\n")
	case d.data != nil:
		b.WriteString(renderDashboard(*d.data, d.SelectedTypes()))
	case selectedTeacherID(d.picker) == 0:
		b.WriteString(Styles.Empty.Render("Select a teacher to see their reports.") + "\n")
	}
	if banner := renderBanner(d.err); banner != "" {
		b.WriteString("\n" + banner + "\n")
	}
	return b.String()
}

func (d *DashboardView) renderTypes() string {
	parts := make([]string, len(api.AllReportTypes))
	for i, rt := range api.AllReportTypes {
		box := "[ ]"
		if d.types[rt] {
			box = "[x]"
		}
		text := fmt.Sprintf("%s %d %s", box, i+1, rt.Title())
		if d.focus.Is(fieldTypes) && i == d.typeCursor {
			text = Styles.Selected.Render(text)
		}
		parts[i] = text
	}
	return strings.Join(parts, "  ")
}

// renderDashboard renders stats and each requested report section.
func renderDashboard(data api.DashboardData, types []api.ReportType) string {
	var b strings.Builder
	if data.TeacherName != "" {
		b.WriteString(Styles.Title.Render(data.TeacherName))
		if data.Year > 0 {
			b.WriteString(Styles.Muted.Render(fmt.Sprintf("  %04d-%02d", data.Year, data.Month)))
		}
		b.WriteString("\n")
	}

	b.WriteString(Styles.Section.Render("Monthly stats") + "\n")
	if data.MonthlyStats == nil {
		b.WriteString("  " + Styles.Empty.Render("No video statistics for this month") + "\n")
	} else {
		b.WriteString(kv("Video views", naInt(data.MonthlyStats.VideoViews)))
		b.WriteString(kv("Bandwidth", naFloat(data.MonthlyStats.BandwidthGB, "%.2f GB")))
	}

	for _, rt := range types {
		b.WriteString(Styles.Section.Render(rt.Title()) + "\n")
		switch rt {
		case api.ReportQuality, api.ReportStudent:
			reports := data.Quality
			if rt == api.ReportStudent {
				reports = data.Student
			}
			if len(reports) == 0 {
				b.WriteString("  " + Styles.Empty.Render("No report uploaded") + "\n")
			}
			for _, r := range reports {
				b.WriteString(kv("Score", naFloat(r.Score, "%.1f")))
				b.WriteString(kv("Summary", summaryOr(r.Summary)))
				b.WriteString(kv("Uploaded", r.UploadedAt.Display()))
			}
		case api.ReportOperations:
			if len(data.Operations) == 0 {
				b.WriteString("  " + Styles.Empty.Render("No report uploaded") + "\n")
			}
			for _, r := range data.Operations {
				b.WriteString(kv("On schedule", naBool(r.OnSchedule)))
				b.WriteString(kv("Attitude", summaryOr(r.AttitudeSummary)))
				b.WriteString(kv("Uploaded", r.UploadedAt.Display()))
			}
		}
	}
	return b.String()
}

func kv(label, value string) string {
	return "  " + lipgloss.NewStyle().Width(14).Render(Styles.Label.Render(label)) + Styles.Normal.Render(value) + "\n"
}
