package ui

import (
	"fmt"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"teachdash/internal/api"
	"teachdash/internal/events"
)

// loadTeachersCmd fetches every teacher.
func loadTeachersCmd(env *Env) tea.Cmd {
	return func() tea.Msg {
		teachers, err := env.Backend.ListAllTeachers(env.ctx(), env.PageSize)
		if err != nil {
			env.log().Warn("load teachers", zap.Error(err))
		}
		return TeachersLoadedMsg{Teachers: teachers, Err: err}
	}
}

// waitLibraryConfigsCmd blocks until the next library-config event. It
// returns nil once the subscription is cancelled.
func waitLibraryConfigsCmd(ch <-chan events.LibraryConfigsChanged) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return LibraryConfigsChangedMsg{LibraryConfigsChanged: ev}
	}
}

// waitTeachersCmd blocks until the next teacher-list event.
func waitTeachersCmd(ch <-chan events.TeachersChanged) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return TeachersChangedMsg{TeachersChanged: ev}
	}
}

// profileData is everything the profile page shows for one teacher.
type profileData struct {
	Teacher api.Teacher
	Reports []api.MonthlyReport
	Stats   []api.MonthlyStats
	History []api.UploadRecord
}

// loadProfileCmd fetches the teacher record, report history, video stats and
// upload history in parallel. The first error wins; partial data is kept.
func loadProfileCmd(env *Env, teacherID int) tea.Cmd {
	return func() tea.Msg {
		var (
			wg   sync.WaitGroup
			mu   sync.Mutex
			data profileData
			errs []error
		)
		fail := func(what string, err error) {
			mu.Lock()
			errs = append(errs, fmt.Errorf("%s: %w", what, err))
			mu.Unlock()
		}
		ctx := env.ctx()
		wg.Add(4)
		go func() {
			defer wg.Done()
			t, err := env.Backend.GetTeacher(ctx, teacherID)
			if err != nil {
				fail("teacher", err)
				return
			}
			mu.Lock()
			data.Teacher = t
			mu.Unlock()
		}()
		go func() {
			defer wg.Done()
			r, err := env.Backend.TeacherReports(ctx, teacherID)
			if err != nil {
				fail("reports", err)
				return
			}
			mu.Lock()
			data.Reports = r
			mu.Unlock()
		}()
		go func() {
			defer wg.Done()
			s, err := env.Backend.TeacherMonthlyStats(ctx, teacherID)
			if err != nil {
				fail("video stats", err)
				return
			}
			mu.Lock()
			data.Stats = s
			mu.Unlock()
		}()
		go func() {
			defer wg.Done()
			h, err := env.Backend.UploadHistory(ctx, teacherID)
			if err != nil {
				fail("upload history", err)
				return
			}
			mu.Lock()
			data.History = h
			mu.Unlock()
		}()
		wg.Wait()

		msg := profileLoadedMsg{TeacherID: teacherID, Data: data}
		if len(errs) > 0 {
			msg.Err = errs[0]
		}
		return msg
	}
}
