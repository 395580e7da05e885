package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"teachdash/internal/api"
	"teachdash/internal/auth"
	"teachdash/internal/selectbox"
	"teachdash/internal/ui/textutil"
)

const (
	fieldReportType = "report_type"
	fieldFile       = "file"
)

type uploadDoneMsg struct {
	TeacherID int
	Type      api.ReportType
	Result    api.UploadResult
	Err       error
}

type historyLoadedMsg struct {
	TeacherID int
	History   []api.UploadRecord
	Err       error
}

// UploadView submits report spreadsheets and lists past uploads.
type UploadView struct {
	env        *Env
	picker     *selectbox.Model[api.Teacher]
	reportType int // index into api.AllReportTypes
	period     periodField
	file       textinput.Model
	focus      *FocusManager
	uploading  bool
	history    []api.UploadRecord
	historyFor int
	status     string
	err        string
}

var _ Page = (*UploadView)(nil)

// NewUploadView creates the upload page.
func NewUploadView(env *Env) *UploadView {
	now := env.now()
	file := textinput.New()
	file.Placeholder = "path/to/report.xlsx"
	file.Width = 48

	v := &UploadView{
		env:    env,
		picker: newTeacherPicker(fieldTeacher),
		period: periodField{Period: api.Period{Year: now.Year(), Month: int(now.Month())}},
		file:   file,
		focus:  NewFocusManager(fieldTeacher, fieldReportType, fieldPeriod, fieldFile),
	}
	v.picker.Focus()
	return v
}

func (v *UploadView) Page() auth.Page { return auth.PageUpload }

func (v *UploadView) CapturesInput() bool {
	return v.picker.IsOpen() || v.focus.Is(fieldFile)
}

// WantsKey lets the focused teacher select open on space.
func (v *UploadView) WantsKey(msg tea.KeyMsg) bool {
	return v.focus.Is(fieldTeacher) && v.picker.WantsKey(msg)
}

func (v *UploadView) Init() tea.Cmd { return loadTeachersCmd(v.env) }

func (v *UploadView) Refresh() tea.Cmd {
	return tea.Batch(loadTeachersCmd(v.env), v.loadHistory())
}

// Picker exposes the teacher select.
func (v *UploadView) Picker() *selectbox.Model[api.Teacher] { return v.picker }

// History is the upload history shown for the selected teacher.
func (v *UploadView) History() []api.UploadRecord { return v.history }

// Status is the last success message.
func (v *UploadView) Status() string { return v.status }

// Err is the current banner text.
func (v *UploadView) Err() string { return v.err }

// ReportType is the selected report type.
func (v *UploadView) ReportType() api.ReportType { return api.AllReportTypes[v.reportType] }

// SetFile sets the file path field.
func (v *UploadView) SetFile(path string) { v.file.SetValue(path) }

func (v *UploadView) loadHistory() tea.Cmd {
	id := selectedTeacherID(v.picker)
	if id == 0 {
		return nil
	}
	env := v.env
	return func() tea.Msg {
		h, err := env.Backend.UploadHistory(env.ctx(), id)
		return historyLoadedMsg{TeacherID: id, History: h, Err: err}
	}
}

func (v *UploadView) submit() tea.Cmd {
	id := selectedTeacherID(v.picker)
	path := strings.TrimSpace(v.file.Value())
	switch {
	case id == 0:
		v.err = "Select a teacher first"
		return nil
	case path == "":
		v.err = "Enter the path of the report file"
		return nil
	case v.uploading:
		return nil
	}
	v.uploading = true
	v.status = ""
	rt := v.ReportType()
	p := v.period.Period
	env := v.env
	return func() tea.Msg {
		res, err := env.Backend.UploadReportFile(env.ctx(), rt, id, p, path)
		if err != nil {
			env.log().Warn("report upload failed",
				zap.String("type", string(rt)),
				zap.Int("teacher_id", id),
				zap.String("file", path),
				zap.Error(err))
		}
		return uploadDoneMsg{TeacherID: id, Type: rt, Result: res, Err: err}
	}
}

func (v *UploadView) Update(msg tea.Msg) (View, tea.Cmd) {
	switch msg := msg.(type) {
	case TeachersLoadedMsg:
		if msg.Err != nil {
			v.err = "Could not load teachers: " + errText(msg.Err)
			return v, nil
		}
		v.picker.SetOptions(msg.Teachers)
		return v, nil
	case TeachersChangedMsg:
		return v, loadTeachersCmd(v.env)
	case teacherChosenMsg:
		if msg.Field != fieldTeacher {
			return v, nil
		}
		v.history = nil
		v.historyFor = 0
		return v, v.loadHistory()
	case historyLoadedMsg:
		if msg.TeacherID != selectedTeacherID(v.picker) {
			return v, nil
		}
		if msg.Err != nil {
			v.err = "Could not load upload history: " + errText(msg.Err)
			return v, nil
		}
		v.history = msg.History
		v.historyFor = msg.TeacherID
		return v, nil
	case uploadDoneMsg:
		v.uploading = false
		if msg.Err != nil {
			v.err = errText(msg.Err)
			return v, nil
		}
		v.status = msg.Result.Message
		if v.status == "" {
			v.status = fmt.Sprintf("%s report uploaded", msg.Type.Title())
		}
		v.file.SetValue("")
		if msg.TeacherID == selectedTeacherID(v.picker) {
			return v, v.loadHistory()
		}
		return v, nil
	case tea.MouseMsg:
		wasOpen := v.picker.IsOpen()
		cmd := v.picker.Update(msg)
		if v.picker.IsOpen() && !wasOpen && !v.focus.Is(fieldTeacher) {
			v.focus.SetFocus(fieldTeacher)
			v.file.Blur()
		}
		return v, cmd
	case tea.KeyMsg:
		v.err = ""
		return v, v.handleKey(msg)
	}
	if v.focus.Is(fieldFile) {
		var cmd tea.Cmd
		v.file, cmd = v.file.Update(msg)
		return v, cmd
	}
	return v, nil
}

func (v *UploadView) handleKey(msg tea.KeyMsg) tea.Cmd {
	if v.picker.IsOpen() {
		return v.picker.Update(msg)
	}
	switch msg.String() {
	case "tab":
		return v.setFocus(v.focus.Next())
	case "shift+tab":
		return v.setFocus(v.focus.Prev())
	}

	switch v.focus.Current {
	case fieldTeacher:
		return v.picker.Update(msg)
	case fieldReportType:
		n := len(api.AllReportTypes)
		switch msg.String() {
		case "left", "h":
			v.reportType = (v.reportType + n - 1) % n
		case "right", "l":
			v.reportType = (v.reportType + 1) % n
		}
	case fieldPeriod:
		v.period.Update(msg)
	case fieldFile:
		if msg.String() == "enter" {
			return v.submit()
		}
		var cmd tea.Cmd
		v.file, cmd = v.file.Update(msg)
		return cmd
	}
	return nil
}

func (v *UploadView) setFocus(id string) tea.Cmd {
	if id == fieldTeacher {
		v.picker.Focus()
	} else {
		v.picker.Blur()
	}
	if id == fieldFile {
		return v.file.Focus()
	}
	v.file.Blur()
	return nil
}

func (v *UploadView) View() string {
	var b strings.Builder
	b.WriteString(placeWidget(v.picker, fieldLabel("Teacher", v.focus.Is(fieldTeacher)), v.picker.View(), 0) + "\n")

	types := make([]string, len(api.AllReportTypes))
	for i, rt := range api.AllReportTypes {
		if i == v.reportType {
			types[i] = Styles.Selected.Render("● " + rt.Title())
		} else {
			types[i] = Styles.Muted.Render("○ " + rt.Title())
		}
	}
	b.WriteString(fieldLabel("Type", v.focus.Is(fieldReportType)) + strings.Join(types, "  ") + "\n")
	b.WriteString(fieldLabel("Period", v.focus.Is(fieldPeriod)) + v.period.View(v.focus.Is(fieldPeriod)) + "\n")
	b.WriteString(fieldLabel("File", v.focus.Is(fieldFile)) + v.file.View() + "\n\n")

	switch {
	case v.uploading:
		b.WriteString(Styles.Muted.Render("Uploading…") + "\n")
	case v.status != "":
		b.WriteString(Styles.Success.Render("✓ "+v.status) + "\n")
	default:
		b.WriteString(Styles.Hint.Render("Enter on File: upload  Tab: next field") + "\n")
	}
	if banner := renderBanner(v.err); banner != "" {
		b.WriteString(banner + "\n")
	}

	if v.historyFor != 0 {
		b.WriteString("\n" + Styles.Section.Render("Upload history") + "\n")
		b.WriteString(renderHistory(v.history))
	}
	return b.String()
}

var historyColumns = []textutil.Column{{Width: 18}, {Width: 10}, {Width: 18}}

// renderHistory renders upload records as a table.
func renderHistory(history []api.UploadRecord) string {
	if len(history) == 0 {
		return "  " + Styles.Empty.Render("No uploads yet") + "\n"
	}
	var b strings.Builder
	b.WriteString("  " + Styles.Header.Render(textutil.Row(historyColumns, "Type", "Period", "Uploaded")) + "\n")
	for _, h := range history {
		b.WriteString("  " + textutil.Row(historyColumns,
			h.ReportType.Title(), api.Period{Year: h.Year, Month: h.Month}.String(), h.UploadedAt.Display()) + "\n")
	}
	return b.String()
}
