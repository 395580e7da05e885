package ui

import (
	"context"
	"time"

	"go.uber.org/zap"

	"teachdash/internal/api"
	"teachdash/internal/events"
)

// Backend is the subset of *api.Client the pages use.
type Backend interface {
	Login(ctx context.Context, email, password string) (api.LoginResult, error)
	ListAllTeachers(ctx context.Context, pageSize int) ([]api.Teacher, error)
	GetTeacher(ctx context.Context, id int) (api.Teacher, error)
	TeacherReports(ctx context.Context, id int) ([]api.MonthlyReport, error)
	TeacherMonthlyStats(ctx context.Context, id int) ([]api.MonthlyStats, error)
	DashboardData(ctx context.Context, teacherID int, p api.Period, types []api.ReportType) (api.DashboardData, error)
	UploadHistory(ctx context.Context, teacherID int) ([]api.UploadRecord, error)
	UploadReportFile(ctx context.Context, rt api.ReportType, teacherID int, p api.Period, path string) (api.UploadResult, error)
	LiveLibraryConfigs(ctx context.Context) ([]api.LibraryConfig, error)
	UpdateLibraryConfig(ctx context.Context, libraryID int, u api.LibraryConfigUpdate) (api.LibraryConfig, error)
	SyncLibraryConfigs(ctx context.Context) (api.SyncResult, error)
	UpsertTeachersFromBunny(ctx context.Context) (api.UpsertTeachersResult, error)
	LibrariesWithHistory(ctx context.Context, syncedOnly bool) ([]api.LibraryHistory, error)
	BatchFetchStats(ctx context.Context, req api.StatsRequest) (api.BatchFetchResult, error)
	SyncHistoricalStats(ctx context.Context, req api.StatsRequest) (api.HistorySyncResult, error)
}

var _ Backend = (*api.Client)(nil)

// Env is what pages share: the backend, the event bus and settings.
type Env struct {
	Ctx               context.Context
	Backend           Backend
	Bus               *events.Bus
	Logger            *zap.Logger
	PageSize          int
	ImportConcurrency int
	Now               func() time.Time
}

func (e *Env) ctx() context.Context {
	if e.Ctx == nil {
		return context.Background()
	}
	return e.Ctx
}

func (e *Env) log() *zap.Logger {
	if e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}

func (e *Env) now() time.Time {
	if e.Now == nil {
		return time.Now()
	}
	return e.Now()
}

// publishLibraryConfigs announces changed library configs to other pages.
func (e *Env) publishLibraryConfigs(ids ...int) {
	if e.Bus == nil {
		return
	}
	e.Bus.LibraryConfigs.Publish(events.LibraryConfigsChanged{LibraryIDs: ids, At: e.now()})
}

// publishTeachers announces a changed teacher list to other pages.
func (e *Env) publishTeachers(created, updated int) {
	if e.Bus == nil {
		return
	}
	e.Bus.Teachers.Publish(events.TeachersChanged{Created: created, Updated: updated, At: e.now()})
}
