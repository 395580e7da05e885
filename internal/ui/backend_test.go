package ui

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap/zaptest"

	"teachdash/internal/api"
	"teachdash/internal/events"
)

var errBackend = errors.New("backend unavailable")

// fakeBackend implements Backend with canned data. Func fields override the
// defaults per test.
type fakeBackend struct {
	mu sync.Mutex

	teachers []api.Teacher
	configs  []api.LibraryConfig

	loginFn     func(email, password string) (api.LoginResult, error)
	dashboardFn func(teacherID int, p api.Period, types []api.ReportType) (api.DashboardData, error)
	reportsFn   func(id int) ([]api.MonthlyReport, error)
	statsFn     func(id int) ([]api.MonthlyStats, error)
	historyFn   func(id int) ([]api.UploadRecord, error)
	uploadFn    func(rt api.ReportType, teacherID int, p api.Period, path string) (api.UploadResult, error)
	updateFn    func(call, libraryID int, u api.LibraryConfigUpdate) (api.LibraryConfig, error)
	syncFn      func() (api.SyncResult, error)
	upsertFn    func() (api.UpsertTeachersResult, error)
	historyLibs []api.LibraryHistory
	fetchFn     func(req api.StatsRequest) (api.BatchFetchResult, error)
	publishFn   func(req api.StatsRequest) (api.HistorySyncResult, error)

	updateCalls int
}

var _ Backend = (*fakeBackend)(nil)

func (f *fakeBackend) Login(_ context.Context, email, password string) (api.LoginResult, error) {
	if f.loginFn != nil {
		return f.loginFn(email, password)
	}
	return api.LoginResult{Success: true, UserID: 1, Email: email, AllowedPages: []string{"dashboard"}}, nil
}

func (f *fakeBackend) ListAllTeachers(context.Context, int) ([]api.Teacher, error) {
	return f.teachers, nil
}

func (f *fakeBackend) GetTeacher(_ context.Context, id int) (api.Teacher, error) {
	for _, t := range f.teachers {
		if t.ID == id {
			return t, nil
		}
	}
	return api.Teacher{}, &api.Error{StatusCode: 404, Detail: "Teacher not found"}
}

func (f *fakeBackend) TeacherReports(_ context.Context, id int) ([]api.MonthlyReport, error) {
	if f.reportsFn != nil {
		return f.reportsFn(id)
	}
	return nil, nil
}

func (f *fakeBackend) TeacherMonthlyStats(_ context.Context, id int) ([]api.MonthlyStats, error) {
	if f.statsFn != nil {
		return f.statsFn(id)
	}
	return nil, nil
}

func (f *fakeBackend) DashboardData(_ context.Context, teacherID int, p api.Period, types []api.ReportType) (api.DashboardData, error) {
	if f.dashboardFn != nil {
		return f.dashboardFn(teacherID, p, types)
	}
	return api.DashboardData{Month: p.Month, Year: p.Year}, nil
}

func (f *fakeBackend) UploadHistory(_ context.Context, teacherID int) ([]api.UploadRecord, error) {
	if f.historyFn != nil {
		return f.historyFn(teacherID)
	}
	return nil, nil
}

func (f *fakeBackend) UploadReportFile(_ context.Context, rt api.ReportType, teacherID int, p api.Period, path string) (api.UploadResult, error) {
	if f.uploadFn != nil {
		return f.uploadFn(rt, teacherID, p, path)
	}
	return api.UploadResult{Success: true, TeacherID: teacherID, Month: p.Month, Year: p.Year, ReportType: string(rt)}, nil
}

func (f *fakeBackend) LiveLibraryConfigs(context.Context) ([]api.LibraryConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]api.LibraryConfig(nil), f.configs...), nil
}

func (f *fakeBackend) UpdateLibraryConfig(_ context.Context, libraryID int, u api.LibraryConfigUpdate) (api.LibraryConfig, error) {
	f.mu.Lock()
	f.updateCalls++
	call := f.updateCalls
	f.mu.Unlock()
	if f.updateFn != nil {
		return f.updateFn(call, libraryID, u)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, c := range f.configs {
		if c.LibraryID == libraryID {
			f.configs[i] = u.Apply(c)
			return f.configs[i], nil
		}
	}
	return api.LibraryConfig{}, &api.Error{StatusCode: 404, Detail: "Library config not found"}
}

func (f *fakeBackend) SyncLibraryConfigs(context.Context) (api.SyncResult, error) {
	if f.syncFn != nil {
		return f.syncFn()
	}
	return api.SyncResult{Created: 1}, nil
}

func (f *fakeBackend) UpsertTeachersFromBunny(context.Context) (api.UpsertTeachersResult, error) {
	if f.upsertFn != nil {
		return f.upsertFn()
	}
	return api.UpsertTeachersResult{Success: true}, nil
}

func (f *fakeBackend) LibrariesWithHistory(context.Context, bool) ([]api.LibraryHistory, error) {
	return f.historyLibs, nil
}

func (f *fakeBackend) BatchFetchStats(_ context.Context, req api.StatsRequest) (api.BatchFetchResult, error) {
	if f.fetchFn != nil {
		return f.fetchFn(req)
	}
	return api.BatchFetchResult{Success: true, TotalLibraries: len(req.LibraryIDs)}, nil
}

func (f *fakeBackend) SyncHistoricalStats(_ context.Context, req api.StatsRequest) (api.HistorySyncResult, error) {
	if f.publishFn != nil {
		return f.publishFn(req)
	}
	return api.HistorySyncResult{Success: true, Synced: len(req.LibraryIDs)}, nil
}

func testTeachers() []api.Teacher {
	return []api.Teacher{
		{ID: 1, Name: "Ada Lovelace", Subject: "Math", BunnyLibraryID: 101},
		{ID: 2, Name: "Grace Hopper", BunnyLibraryID: 102},
	}
}

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }

func floatPtr(f float64) *float64 { return &f }

func boolPtr(b bool) *bool { return &b }

// testEnv returns an Env over backend with a fixed clock of March 2024.
func testEnv(t *testing.T, backend Backend) *Env {
	t.Helper()
	return &Env{
		Ctx:               context.Background(),
		Backend:           backend,
		Bus:               events.NewBus(),
		Logger:            zaptest.NewLogger(t),
		PageSize:          100,
		ImportConcurrency: 2,
		Now:               func() time.Time { return time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC) },
	}
}

// execCmd runs cmd synchronously, flattening batches. Only use it on
// commands that do not sleep (no blink or spinner ticks).
func execCmd(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, execCmd(c)...)
		}
		return out
	}
	if msg == nil {
		return nil
	}
	return []tea.Msg{msg}
}

// pump runs cmd, feeds every resulting message back into v and repeats
// until no commands remain.
func pump(t *testing.T, v View, cmd tea.Cmd) View {
	t.Helper()
	queue := execCmd(cmd)
	for i := 0; len(queue) > 0; i++ {
		if i > 1000 {
			t.Fatal("pump: too many messages")
		}
		msg := queue[0]
		queue = queue[1:]
		var next tea.Cmd
		v, next = v.Update(msg)
		queue = append(queue, execCmd(next)...)
	}
	return v
}
