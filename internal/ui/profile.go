package ui

import (
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"teachdash/internal/api"
	"teachdash/internal/auth"
	"teachdash/internal/selectbox"
	"teachdash/internal/ui/textutil"
)

const fieldProfileTeacher = "profile_teacher"

type profileLoadedMsg struct {
	TeacherID int
	Data      profileData
	Err       error
}

// ProfileView shows one teacher's record with report and upload history.
type ProfileView struct {
	env     *Env
	picker  *selectbox.Model[api.Teacher]
	spinner spinner.Model
	want    int
	loading bool
	data    *profileData
	err     string
}

var _ Page = (*ProfileView)(nil)

// NewProfileView creates the profile page.
func NewProfileView(env *Env) *ProfileView {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = Styles.Status
	p := &ProfileView{
		env:     env,
		picker:  newTeacherPicker(fieldProfileTeacher),
		spinner: s,
	}
	p.picker.Focus()
	return p
}

func (p *ProfileView) Page() auth.Page { return auth.PageProfile }

func (p *ProfileView) CapturesInput() bool { return p.picker.IsOpen() }

// WantsKey lets the teacher select open on space.
func (p *ProfileView) WantsKey(msg tea.KeyMsg) bool { return p.picker.WantsKey(msg) }

func (p *ProfileView) Init() tea.Cmd { return loadTeachersCmd(p.env) }

func (p *ProfileView) Refresh() tea.Cmd {
	return tea.Batch(loadTeachersCmd(p.env), p.fetch())
}

// Picker exposes the teacher select.
func (p *ProfileView) Picker() *selectbox.Model[api.Teacher] { return p.picker }

// Err is the current banner text.
func (p *ProfileView) Err() string { return p.err }

// Teacher returns the loaded teacher record.
func (p *ProfileView) Teacher() (api.Teacher, bool) {
	if p.data == nil {
		return api.Teacher{}, false
	}
	return p.data.Teacher, true
}

func (p *ProfileView) fetch() tea.Cmd {
	id := selectedTeacherID(p.picker)
	if id == 0 {
		return nil
	}
	p.want = id
	p.loading = true
	return tea.Batch(p.spinner.Tick, loadProfileCmd(p.env, id))
}

func (p *ProfileView) Update(msg tea.Msg) (View, tea.Cmd) {
	switch msg := msg.(type) {
	case TeachersLoadedMsg:
		if msg.Err != nil {
			p.err = "Could not load teachers: " + errText(msg.Err)
			return p, nil
		}
		p.picker.SetOptions(msg.Teachers)
		return p, nil
	case TeachersChangedMsg:
		return p, loadTeachersCmd(p.env)
	case teacherChosenMsg:
		if msg.Field != fieldProfileTeacher {
			return p, nil
		}
		return p, p.fetch()
	case profileLoadedMsg:
		if msg.TeacherID != p.want {
			p.env.log().Debug("dropping stale profile reply", zap.Int("teacher_id", msg.TeacherID))
			return p, nil
		}
		p.loading = false
		data := msg.Data
		p.data = &data
		if msg.Err != nil {
			p.err = errText(msg.Err)
		}
		return p, nil
	case spinner.TickMsg:
		if p.loading {
			var cmd tea.Cmd
			p.spinner, cmd = p.spinner.Update(msg)
			return p, cmd
		}
		return p, nil
	case tea.MouseMsg:
		return p, p.picker.Update(msg)
	case tea.KeyMsg:
		p.err = ""
		return p, p.picker.Update(msg)
	}
	return p, nil
}

func (p *ProfileView) View() string {
	var b strings.Builder
	b.WriteString(placeWidget(p.picker, fieldLabel("Teacher", true), p.picker.View(), 0) + "\n\n")
	switch {
	case p.loading:
		b.WriteString(p.spinner.View() + " Loading…\n")
	case p.data != nil:
		b.WriteString(renderProfile(*p.data))
	default:
		b.WriteString(Styles.Empty.Render("Select a teacher to see their profile.") + "\n")
	}
	if banner := renderBanner(p.err); banner != "" {
		b.WriteString("\n" + banner + "\n")
	}
	return b.String()
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return notAvailable
	}
	return s
}

var reportHistoryColumns = []textutil.Column{
	{Width: 9},
	{Width: 8, Right: true},
	{Width: 10, Right: true},
	{Width: 9, Right: true},
	{Width: 10, Right: true},
	{Width: 9},
}

func renderProfile(d profileData) string {
	var b strings.Builder
	t := d.Teacher
	if t.ID != 0 {
		b.WriteString(Styles.Title.Render(orNA(t.Name)) + "\n")
		b.WriteString(kv("Subject", orNA(t.Subject)))
		b.WriteString(kv("Grade", orNA(t.Grade)))
		lib := notAvailable
		if t.BunnyLibraryID != 0 {
			lib = strconv.Itoa(t.BunnyLibraryID)
		}
		b.WriteString(kv("Library", lib))
	}

	b.WriteString(Styles.Section.Render("Report history") + "\n")
	b.WriteString(renderReportHistory(d.Reports, d.Stats))

	b.WriteString(Styles.Section.Render("Upload history") + "\n")
	b.WriteString(renderHistory(d.History))
	return b.String()
}

// renderReportHistory lists monthly reports newest first, joining watch time
// from the video stats of the same month.
func renderReportHistory(reports []api.MonthlyReport, stats []api.MonthlyStats) string {
	if len(reports) == 0 {
		return "  " + Styles.Empty.Render("No monthly reports") + "\n"
	}
	watch := make(map[api.Period]*int, len(stats))
	for _, s := range stats {
		watch[api.Period{Year: s.Year, Month: s.Month}] = s.TotalWatchTimeSeconds
	}
	sorted := append([]api.MonthlyReport(nil), reports...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[j].Period().Before(sorted[i].Period()) })

	var b strings.Builder
	b.WriteString("  " + Styles.Header.Render(textutil.Row(reportHistoryColumns,
		"Month", "Views", "Watch", "Quality", "Students", "On time")) + "\n")
	for _, r := range sorted {
		b.WriteString("  " + textutil.Row(reportHistoryColumns,
			r.Period().String(),
			naInt(r.VideoViews),
			formatDuration(watch[r.Period()]),
			naFloat(r.QualityScore, "%.1f"),
			naFloat(r.StudentFeedbackScore, "%.1f"),
			naBool(r.OperationsOnSchedule)) + "\n")
	}
	return b.String()
}
