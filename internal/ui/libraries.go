package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"teachdash/internal/api"
	"teachdash/internal/auth"
	"teachdash/internal/bulkimport"
	"teachdash/internal/progress"
	"teachdash/internal/ui/textutil"
)

type librariesMode int

const (
	libBrowse librariesMode = iota
	libEditKey
	libImportPath
)

type librariesLoadedMsg struct {
	Configs []api.LibraryConfig
	// Views is the latest published month per library id.
	Views map[int]api.MonthlyViews
	Err   error
}

type libraryUpdatedMsg struct {
	LibraryID int
	Prev      api.LibraryConfig
	Got       api.LibraryConfig
	Err       error
}

type syncLibrariesMsg struct{}

type syncTeachersMsg struct{}

type syncLibrariesDoneMsg struct {
	Result api.SyncResult
	Err    error
}

type syncTeachersDoneMsg struct {
	Result api.UpsertTeachersResult
	Err    error
}

type statsFetchedMsg struct {
	Period  api.Period
	Fetch   api.BatchFetchResult
	Publish api.HistorySyncResult
	Err     error
}

type importProgressMsg struct {
	Event progress.Event
}

type importDoneMsg struct {
	Path   string
	Result bulkimport.Result
	Err    error
}

// importProgressBuffer bounds queued progress events; extra events are dropped.
const importProgressBuffer = 64

// LibrariesView lists library configurations of live Bunny libraries and
// edits them.
type LibrariesView struct {
	env     *Env
	configs []api.LibraryConfig
	views   map[int]api.MonthlyViews
	cursor  int
	mode    librariesMode
	input   textinput.Model
	// pending counts in-flight updates per library id.
	pending      map[int]int
	loading      bool
	syncing      bool
	fetching     bool
	importing    bool
	progressCh   chan progress.Event
	progressWin  *ProgressWindow
	importResult *bulkimport.Result
	note         string
	status       string
	err          string
}

var _ Page = (*LibrariesView)(nil)

// NewLibrariesView creates the library configuration page.
func NewLibrariesView(env *Env) *LibrariesView {
	in := textinput.New()
	in.Width = 48
	return &LibrariesView{
		env:     env,
		input:   in,
		pending: make(map[int]int),
	}
}

func (v *LibrariesView) Page() auth.Page { return auth.PageLibraries }

func (v *LibrariesView) CapturesInput() bool { return v.mode != libBrowse }

func (v *LibrariesView) Init() tea.Cmd { return v.load() }

func (v *LibrariesView) Refresh() tea.Cmd { return v.load() }

// Configs returns the configs currently shown.
func (v *LibrariesView) Configs() []api.LibraryConfig { return v.configs }

// Cursor is the selected row.
func (v *LibrariesView) Cursor() int { return v.cursor }

// Status is the last success message.
func (v *LibrariesView) Status() string { return v.status }

// Note is the warning shown above the table.
func (v *LibrariesView) Note() string { return v.note }

// Err is the current banner text.
func (v *LibrariesView) Err() string { return v.err }

// ImportResult is the outcome of the last bulk import.
func (v *LibrariesView) ImportResult() *bulkimport.Result { return v.importResult }

func (v *LibrariesView) load() tea.Cmd {
	v.loading = true
	env := v.env
	return func() tea.Msg {
		configs, err := env.Backend.LiveLibraryConfigs(env.ctx())
		if configs == nil {
			return librariesLoadedMsg{Err: err}
		}
		history, herr := env.Backend.LibrariesWithHistory(env.ctx(), true)
		if herr != nil {
			env.log().Warn("library stats unavailable", zap.Error(herr))
		}
		return librariesLoadedMsg{Configs: configs, Views: latestViews(history), Err: err}
	}
}

func latestViews(history []api.LibraryHistory) map[int]api.MonthlyViews {
	out := make(map[int]api.MonthlyViews, len(history))
	for _, h := range history {
		if m, ok := h.Latest(); ok {
			out[h.LibraryID] = m
		}
	}
	return out
}

// Views returns the latest published month of library id.
func (v *LibrariesView) Views(libraryID int) (api.MonthlyViews, bool) {
	m, ok := v.views[libraryID]
	return m, ok
}

func (v *LibrariesView) indexOf(libraryID int) int {
	for i, c := range v.configs {
		if c.LibraryID == libraryID {
			return i
		}
	}
	return -1
}

func (v *LibrariesView) busy() bool {
	for _, n := range v.pending {
		if n > 0 {
			return true
		}
	}
	return v.importing || v.syncing || v.fetching
}

// update applies u locally, then sends it. The local change is rolled back
// if the backend rejects it.
func (v *LibrariesView) update(libraryID int, u api.LibraryConfigUpdate) tea.Cmd {
	idx := v.indexOf(libraryID)
	if idx < 0 {
		return nil
	}
	prev := v.configs[idx]
	v.configs[idx] = u.Apply(prev)
	v.pending[libraryID]++
	env := v.env
	return func() tea.Msg {
		got, err := env.Backend.UpdateLibraryConfig(env.ctx(), libraryID, u)
		if err == nil {
			env.publishLibraryConfigs(libraryID)
		}
		return libraryUpdatedMsg{LibraryID: libraryID, Prev: prev, Got: got, Err: err}
	}
}

func (v *LibrariesView) Update(msg tea.Msg) (View, tea.Cmd) {
	switch msg := msg.(type) {
	case librariesLoadedMsg:
		v.loading = false
		v.note = ""
		if msg.Err != nil && msg.Configs == nil {
			v.err = "Could not load library configs: " + errText(msg.Err)
			return v, nil
		}
		if msg.Err != nil {
			v.note = "Live library list unavailable; showing all configs"
		}
		v.configs = msg.Configs
		v.views = msg.Views
		if v.cursor >= len(v.configs) {
			v.cursor = max(len(v.configs)-1, 0)
		}
		return v, nil
	case LibraryConfigsChangedMsg:
		if v.busy() {
			return v, nil
		}
		return v, v.load()
	case libraryUpdatedMsg:
		return v, v.handleUpdated(msg)
	case syncLibrariesMsg:
		return v, v.syncLibraries()
	case syncTeachersMsg:
		return v, v.syncTeachers()
	case syncLibrariesDoneMsg:
		v.syncing = false
		if msg.Err != nil {
			v.err = "Sync failed: " + errText(msg.Err)
			return v, nil
		}
		v.status = msg.Result.Message
		if v.status == "" {
			v.status = fmt.Sprintf("Sync complete: created %d, updated %d", msg.Result.Created, msg.Result.Updated)
		}
		return v, v.load()
	case syncTeachersDoneMsg:
		v.syncing = false
		if msg.Err != nil {
			v.err = "Teacher sync failed: " + errText(msg.Err)
			return v, nil
		}
		r := msg.Result
		v.status = fmt.Sprintf("Teachers synced: %d created, %d updated, %d unchanged", r.Created, r.Updated, r.Unchanged)
		if r.Failed > 0 {
			v.err = fmt.Sprintf("%d libraries could not be synced", r.Failed)
		}
		return v, nil
	case statsFetchedMsg:
		v.fetching = false
		return v, v.handleStatsFetched(msg)
	case importProgressMsg:
		if v.progressWin != nil {
			v.progressWin.Add(msg.Event)
		}
		return v, waitProgressCmd(v.progressCh)
	case importDoneMsg:
		v.importing = false
		if msg.Err != nil {
			v.err = "Import failed: " + errText(msg.Err)
			return v, nil
		}
		res := msg.Result
		v.importResult = &res
		return v, v.load()
	case tea.KeyMsg:
		v.err = ""
		return v, v.handleKey(msg)
	}
	if v.mode != libBrowse {
		var cmd tea.Cmd
		v.input, cmd = v.input.Update(msg)
		return v, cmd
	}
	return v, nil
}

func (v *LibrariesView) handleUpdated(msg libraryUpdatedMsg) tea.Cmd {
	if v.pending[msg.LibraryID] > 0 {
		v.pending[msg.LibraryID]--
	}
	idx := v.indexOf(msg.LibraryID)
	if msg.Err != nil {
		v.env.log().Warn("library config update failed",
			zap.Int("library_id", msg.LibraryID), zap.Error(msg.Err))
		v.err = fmt.Sprintf("Library %d: %s", msg.LibraryID, errText(msg.Err))
		// A newer edit of the same library is still in flight; it settles the row.
		if idx >= 0 && v.pending[msg.LibraryID] == 0 {
			v.configs[idx] = msg.Prev
		}
		return nil
	}
	if idx >= 0 {
		v.configs[idx] = msg.Got
	}
	v.status = fmt.Sprintf("Library %d updated", msg.LibraryID)
	return nil
}

func (v *LibrariesView) handleStatsFetched(msg statsFetchedMsg) tea.Cmd {
	if msg.Err != nil {
		v.err = "Stats fetch failed: " + errText(msg.Err)
		return nil
	}
	f := msg.Fetch
	v.status = fmt.Sprintf("Stats for %s: fetched %d of %d, published %d",
		msg.Period, f.Successful, f.TotalLibraries, msg.Publish.Synced+msg.Publish.AlreadySynced)
	var failed []string
	for _, r := range f.Results {
		if !r.Success {
			failed = append(failed, fmt.Sprintf("%d (%s)", r.LibraryID, r.Reason()))
		}
	}
	if len(failed) > 0 {
		v.err = "Could not fetch " + strings.Join(failed, ", ")
	}
	return v.load()
}

// fetchStats pulls this month's statistics of the active libraries shown and
// publishes the ones fetched.
func (v *LibrariesView) fetchStats() tea.Cmd {
	var ids []int
	for _, c := range v.configs {
		if c.IsActive {
			ids = append(ids, c.LibraryID)
		}
	}
	if len(ids) == 0 {
		v.err = "No active libraries to fetch"
		return nil
	}
	v.fetching = true
	v.status = ""
	now := v.env.now()
	p := api.Period{Year: now.Year(), Month: int(now.Month())}
	env := v.env
	return func() tea.Msg {
		req := api.StatsRequest{LibraryIDs: ids, Month: p.Month, Year: p.Year}
		fetched, err := env.Backend.BatchFetchStats(env.ctx(), req)
		if err != nil {
			return statsFetchedMsg{Period: p, Err: err}
		}
		msg := statsFetchedMsg{Period: p, Fetch: fetched}
		if req.LibraryIDs = fetched.FetchedIDs(); len(req.LibraryIDs) > 0 {
			msg.Publish, msg.Err = env.Backend.SyncHistoricalStats(env.ctx(), req)
		}
		return msg
	}
}

func (v *LibrariesView) handleKey(msg tea.KeyMsg) tea.Cmd {
	if v.mode != libBrowse {
		switch msg.String() {
		case "esc":
			v.mode = libBrowse
			v.input.Blur()
			v.input.SetValue("")
			return nil
		case "enter":
			return v.submitInput()
		}
		var cmd tea.Cmd
		v.input, cmd = v.input.Update(msg)
		return cmd
	}

	if v.progressWin != nil && !v.importing {
		if msg.String() == "esc" {
			v.progressWin = nil
			return nil
		}
	}

	switch msg.String() {
	case "up", "k":
		if v.cursor > 0 {
			v.cursor--
		}
	case "down", "j":
		if v.cursor < len(v.configs)-1 {
			v.cursor++
		}
	case "e":
		if len(v.configs) == 0 {
			return nil
		}
		v.mode = libEditKey
		v.input.Placeholder = "new Stream API key"
		v.input.EchoMode = textinput.EchoPassword
		v.input.SetValue("")
		return v.input.Focus()
	case "a":
		if len(v.configs) == 0 {
			return nil
		}
		c := v.configs[v.cursor]
		active := !c.IsActive
		return v.update(c.LibraryID, api.LibraryConfigUpdate{IsActive: &active})
	case "i":
		if v.importing {
			return nil
		}
		v.mode = libImportPath
		v.input.Placeholder = "path/to/keys.xlsx"
		v.input.EchoMode = textinput.EchoNormal
		v.input.SetValue("")
		return v.input.Focus()
	case "s":
		if v.syncing {
			return nil
		}
		return func() tea.Msg { return ShowModalMsg{View: NewSyncLibrariesConfirmModal()} }
	case "t":
		if v.syncing {
			return nil
		}
		return func() tea.Msg { return ShowModalMsg{View: NewSyncTeachersConfirmModal()} }
	case "f":
		if v.fetching {
			return nil
		}
		return v.fetchStats()
	default:
		if v.progressWin != nil {
			return v.progressWin.Update(msg)
		}
	}
	return nil
}

func (v *LibrariesView) submitInput() tea.Cmd {
	value := strings.TrimSpace(v.input.Value())
	mode := v.mode
	switch mode {
	case libEditKey:
		if value == "" {
			v.err = "API key cannot be empty"
			return nil
		}
	case libImportPath:
		if value == "" {
			v.err = "Enter the path of a .xlsx, .xls or .csv file"
			return nil
		}
	}
	v.mode = libBrowse
	v.input.Blur()
	v.input.SetValue("")

	if mode == libImportPath {
		return v.startImport(value)
	}
	if len(v.configs) == 0 {
		return nil
	}
	key := value
	return v.update(v.configs[v.cursor].LibraryID, api.LibraryConfigUpdate{StreamAPIKey: &key})
}

func (v *LibrariesView) syncLibraries() tea.Cmd {
	v.syncing = true
	v.status = ""
	env := v.env
	return func() tea.Msg {
		res, err := env.Backend.SyncLibraryConfigs(env.ctx())
		if err == nil {
			env.publishLibraryConfigs()
		}
		return syncLibrariesDoneMsg{Result: res, Err: err}
	}
}

func (v *LibrariesView) syncTeachers() tea.Cmd {
	v.syncing = true
	v.status = ""
	env := v.env
	return func() tea.Msg {
		res, err := env.Backend.UpsertTeachersFromBunny(env.ctx())
		if err == nil {
			env.publishTeachers(res.Created, res.Updated)
		}
		return syncTeachersDoneMsg{Result: res, Err: err}
	}
}

func (v *LibrariesView) startImport(path string) tea.Cmd {
	v.importing = true
	v.importResult = nil
	v.status = ""
	ch := make(chan progress.Event, importProgressBuffer)
	v.progressCh = ch
	v.progressWin = NewProgressWindow("Importing " + path)

	env := v.env
	importer := &bulkimport.Importer{
		Updater:     env.Backend,
		Concurrency: env.ImportConcurrency,
		Emitter:     &progress.ChanEmitter{Ch: ch},
		Logger:      env.log(),
	}
	run := func() tea.Msg {
		defer close(ch)
		res, err := importer.ImportFile(env.ctx(), path)
		if err == nil && res.Succeeded > 0 {
			env.publishLibraryConfigs(res.LibraryIDs()...)
		}
		return importDoneMsg{Path: path, Result: res, Err: err}
	}
	return tea.Batch(run, waitProgressCmd(ch))
}

// waitProgressCmd delivers the next import progress event; nil once the
// import has closed the channel.
func waitProgressCmd(ch <-chan progress.Event) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return importProgressMsg{Event: ev}
	}
}

var libraryColumns = []textutil.Column{
	{Width: 9, Right: true},
	{Width: 28},
	{Width: 16},
	{Width: 8},
	{Width: 10, Right: true},
	{Width: 18},
}

func (v *LibrariesView) View() string {
	var b strings.Builder
	if v.note != "" {
		b.WriteString(Styles.Details.Render("! "+v.note) + "\n")
	}
	switch {
	case v.loading && v.configs == nil:
		b.WriteString(Styles.Muted.Render("Loading library configs…") + "\n")
	case len(v.configs) == 0:
		b.WriteString(Styles.Empty.Render("No library configs. Press s to sync from Bunny.") + "\n")
	default:
		b.WriteString("  " + Styles.Header.Render(
			textutil.Row(libraryColumns, "Library", "Name", "API key", "Active", "Views", "Updated")) + "\n")
		for i, c := range v.configs {
			active := "no"
			if c.IsActive {
				active = "yes"
			}
			views := "N/A"
			if m, ok := v.views[c.LibraryID]; ok {
				views = fmt.Sprintf("%d", m.TotalViews)
			}
			row := textutil.Row(libraryColumns,
				fmt.Sprintf("%d", c.LibraryID), c.LibraryName, c.MaskedKey(), active, views, c.UpdatedAt.Display())
			if v.pending[c.LibraryID] > 0 {
				row += Styles.Muted.Render(" saving…")
			}
			if i == v.cursor {
				b.WriteString(Styles.Selected.Render("> "+row) + "\n")
			} else {
				b.WriteString("  " + Styles.Normal.Render(row) + "\n")
			}
		}
	}

	switch v.mode {
	case libEditKey:
		b.WriteString("\n" + fieldLabel("API key", true) + v.input.View() + "\n")
		b.WriteString(Styles.Hint.Render("Enter: save  Esc: cancel") + "\n")
	case libImportPath:
		b.WriteString("\n" + fieldLabel("Import", true) + v.input.View() + "\n")
		b.WriteString(Styles.Hint.Render("Columns: library_id, stream_api_key, is_active (optional)") + "\n")
	default:
		b.WriteString("\n" + Styles.Hint.Render("j/k: move  e: edit key  a: toggle active  f: fetch stats  i: import  s: sync configs  t: sync teachers") + "\n")
	}

	if v.syncing {
		b.WriteString(Styles.Muted.Render("Syncing…") + "\n")
	}
	if v.fetching {
		b.WriteString(Styles.Muted.Render("Fetching stats…") + "\n")
	}
	if v.status != "" {
		b.WriteString(Styles.Success.Render("✓ "+v.status) + "\n")
	}
	if v.progressWin != nil {
		b.WriteString("\n" + v.progressWin.View() + "\n")
	}
	if v.importResult != nil {
		b.WriteString(renderImportResult(*v.importResult))
	}
	if banner := renderBanner(v.err); banner != "" {
		b.WriteString("\n" + banner + "\n")
	}
	return b.String()
}

func renderImportResult(r bulkimport.Result) string {
	lines := strings.Split(r.Summary(), "\n")
	var b strings.Builder
	if r.Failed() == 0 {
		b.WriteString(Styles.Success.Render("✓ "+lines[0]) + "\n")
		return b.String()
	}
	b.WriteString(Styles.Details.Render("! "+lines[0]) + "\n")
	for _, l := range lines[1:] {
		b.WriteString("  " + Styles.Muted.Render(l) + "\n")
	}
	return b.String()
}
