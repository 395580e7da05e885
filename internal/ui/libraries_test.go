package ui

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teachdash/internal/api"
)

func testConfigs() []api.LibraryConfig {
	return []api.LibraryConfig{
		{ID: 1, LibraryID: 101, LibraryName: "Ada", StreamAPIKey: strPtr("key-aaaa-1111"), IsActive: true},
		{ID: 2, LibraryID: 102, LibraryName: "Grace", IsActive: true},
	}
}

func loadedLibrariesView(t *testing.T, fb *fakeBackend) *LibrariesView {
	t.Helper()
	fb.configs = testConfigs()
	v := NewLibrariesView(testEnv(t, fb))
	pump(t, v, v.Init())
	require.Len(t, v.Configs(), 2)
	return v
}

func TestLibrariesView_ToggleActiveIsOptimistic(t *testing.T) {
	fb := &fakeBackend{}
	v := loadedLibrariesView(t, fb)

	_, cmd := v.Update(keyMsg("a"))
	require.NotNil(t, cmd)
	assert.False(t, v.Configs()[0].IsActive, "local state flips before the reply")
	assert.Contains(t, v.View(), "saving…")

	pump(t, v, cmd)
	assert.False(t, v.Configs()[0].IsActive)
	assert.Equal(t, "Library 101 updated", v.Status())
	assert.NotContains(t, v.View(), "saving…")
}

func TestLibrariesView_RollbackOnError(t *testing.T) {
	fb := &fakeBackend{
		updateFn: func(int, int, api.LibraryConfigUpdate) (api.LibraryConfig, error) {
			return api.LibraryConfig{}, &api.Error{StatusCode: 400, Detail: "Invalid API key"}
		},
	}
	v := loadedLibrariesView(t, fb)
	v.Update(keyMsg("j"))

	v.Update(keyMsg("e"))
	require.True(t, v.CapturesInput())
	typeText(func(m tea.Msg) { v.Update(m) }, "bad-key-9999")
	_, cmd := v.Update(keyMsg("enter"))
	require.NotNil(t, cmd)
	assert.False(t, v.CapturesInput())
	assert.True(t, v.Configs()[1].HasKey(), "key applied locally while pending")

	pump(t, v, cmd)
	assert.False(t, v.Configs()[1].HasKey(), "rolled back after the error")
	assert.Equal(t, "Library 102: Invalid API key", v.Err())
}

func TestLibrariesView_RollbackWaitsForNewerEdit(t *testing.T) {
	fb := &fakeBackend{
		updateFn: func(call, libraryID int, u api.LibraryConfigUpdate) (api.LibraryConfig, error) {
			if call == 1 {
				return api.LibraryConfig{}, errBackend
			}
			return u.Apply(testConfigs()[0]), nil
		},
	}
	v := loadedLibrariesView(t, fb)

	_, first := v.Update(keyMsg("a"))
	_, second := v.Update(keyMsg("a"))
	assert.True(t, v.Configs()[0].IsActive, "two toggles cancel out locally")

	pump(t, v, first)
	assert.True(t, v.Configs()[0].IsActive, "no rollback while a newer edit is pending")
	assert.NotEmpty(t, v.Err())

	pump(t, v, second)
	assert.True(t, v.Configs()[0].IsActive)
}

func TestLibrariesView_EmptyKeyRejected(t *testing.T) {
	fb := &fakeBackend{}
	v := loadedLibrariesView(t, fb)

	v.Update(keyMsg("e"))
	_, cmd := v.Update(keyMsg("enter"))
	assert.Nil(t, cmd)
	assert.Equal(t, "API key cannot be empty", v.Err())
	assert.True(t, v.CapturesInput(), "still editing")

	v.Update(keyMsg("esc"))
	assert.False(t, v.CapturesInput())
	assert.Zero(t, fb.updateCalls)
}

func TestLibrariesView_UpdatePublishesEvent(t *testing.T) {
	fb := &fakeBackend{}
	fb.configs = testConfigs()
	env := testEnv(t, fb)
	ch, cancel := env.Bus.LibraryConfigs.Subscribe()
	defer cancel()

	v := NewLibrariesView(env)
	pump(t, v, v.Init())
	_, cmd := v.Update(keyMsg("a"))
	pump(t, v, cmd)

	select {
	case ev := <-ch:
		assert.Equal(t, []int{101}, ev.LibraryIDs)
	default:
		t.Fatal("expected a library configs event")
	}
}

func TestLibrariesView_ChangedEventDeferredWhileBusy(t *testing.T) {
	fb := &fakeBackend{}
	v := loadedLibrariesView(t, fb)

	_, pending := v.Update(keyMsg("a"))
	_, cmd := v.Update(LibraryConfigsChangedMsg{})
	assert.Nil(t, cmd, "no reload while an edit is in flight")

	pump(t, v, pending)
	_, cmd = v.Update(LibraryConfigsChangedMsg{})
	assert.NotNil(t, cmd)
}

func TestLibrariesView_FallbackNote(t *testing.T) {
	v := NewLibrariesView(testEnv(t, &fakeBackend{}))
	v.Update(librariesLoadedMsg{Configs: testConfigs(), Err: errBackend})
	assert.Len(t, v.Configs(), 2)
	assert.Contains(t, v.Note(), "showing all configs")

	v.Update(librariesLoadedMsg{Err: errBackend})
	assert.Contains(t, v.Err(), "Could not load library configs")
}

func TestLibrariesView_SyncShowsConfirm(t *testing.T) {
	fb := &fakeBackend{}
	v := loadedLibrariesView(t, fb)

	_, cmd := v.Update(keyMsg("s"))
	require.NotNil(t, cmd)
	show, ok := cmd().(ShowModalMsg)
	require.True(t, ok)
	modal, ok := show.View.(*ConfirmModal)
	require.True(t, ok)
	assert.Equal(t, "Sync from Bunny?", modal.Title)

	_, cmd = v.Update(syncLibrariesMsg{})
	pump(t, v, cmd)
	assert.Equal(t, "Sync complete: created 1, updated 0", v.Status())
}

func TestLibrariesView_SyncTeachersPublishes(t *testing.T) {
	fb := &fakeBackend{
		upsertFn: func() (api.UpsertTeachersResult, error) {
			return api.UpsertTeachersResult{Success: true, Created: 2, Updated: 1, Unchanged: 3, Failed: 1}, nil
		},
	}
	fb.configs = testConfigs()
	env := testEnv(t, fb)
	ch, cancel := env.Bus.Teachers.Subscribe()
	defer cancel()
	v := NewLibrariesView(env)

	_, cmd := v.Update(syncTeachersMsg{})
	pump(t, v, cmd)
	assert.Equal(t, "Teachers synced: 2 created, 1 updated, 3 unchanged", v.Status())
	assert.Equal(t, "1 libraries could not be synced", v.Err())

	select {
	case ev := <-ch:
		assert.Equal(t, 2, ev.Created)
		assert.Equal(t, 1, ev.Updated)
	default:
		t.Fatal("expected a teachers event")
	}
}

func TestLibrariesView_BulkImport(t *testing.T) {
	fb := &fakeBackend{}
	v := loadedLibrariesView(t, fb)

	path := filepath.Join(t.TempDir(), "keys.csv")
	csv := "library_id,stream_api_key,is_active\n101,new-key-1,true\n102,,false\n102,new-key-2,no\n"
	require.NoError(t, os.WriteFile(path, []byte(csv), 0o644))

	v.Update(keyMsg("i"))
	typeText(func(m tea.Msg) { v.Update(m) }, path)
	_, cmd := v.Update(keyMsg("enter"))
	require.NotNil(t, cmd)
	pump(t, v, cmd)

	res := v.ImportResult()
	require.NotNil(t, res)
	assert.Equal(t, 3, res.Total)
	assert.Equal(t, 2, res.Succeeded)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, 3, res.Failures[0].Line)
	assert.Equal(t, "missing API key", res.Failures[0].Reason)

	out := v.View()
	assert.Contains(t, out, "2 of 3 rows updated, 1 failed")
	assert.Contains(t, out, "line 3 (library 102): missing API key")

	// The reload after the import shows the new keys.
	assert.True(t, strings.HasSuffix(*v.Configs()[1].StreamAPIKey, "y-2"))
	assert.False(t, v.Configs()[1].IsActive)
}

func TestLibrariesView_ImportMissingFile(t *testing.T) {
	v := loadedLibrariesView(t, &fakeBackend{})
	_, cmd := v.Update(keyMsg("i"))
	_ = cmd
	typeText(func(m tea.Msg) { v.Update(m) }, filepath.Join(t.TempDir(), "nope.csv"))
	_, cmd = v.Update(keyMsg("enter"))
	pump(t, v, cmd)
	assert.Contains(t, v.Err(), "Import failed")
	assert.Nil(t, v.ImportResult())
}

func TestLibrariesView_FetchStatsPublishesFetchedLibraries(t *testing.T) {
	var published []api.StatsRequest
	fb := &fakeBackend{
		fetchFn: func(req api.StatsRequest) (api.BatchFetchResult, error) {
			assert.Equal(t, api.StatsRequest{LibraryIDs: []int{101, 102}, Month: 3, Year: 2024}, req)
			return api.BatchFetchResult{
				Success: true, TotalLibraries: 2, Successful: 1, Failed: 1,
				Results: []api.LibraryStatsStatus{
					{LibraryID: 101, Status: "success", Success: true},
					{LibraryID: 102, Status: "error", Error: "no API key"},
				},
			}, nil
		},
		publishFn: func(req api.StatsRequest) (api.HistorySyncResult, error) {
			published = append(published, req)
			return api.HistorySyncResult{Success: true, Synced: 1}, nil
		},
	}
	v := loadedLibrariesView(t, fb)
	_, ok := v.Views(101)
	assert.False(t, ok)

	fb.historyLibs = []api.LibraryHistory{{
		LibraryID: 101, HasStats: true,
		MonthlyData: []api.MonthlyViews{{Month: 3, Year: 2024, TotalViews: 250}},
	}}
	_, cmd := v.Update(keyMsg("f"))
	require.NotNil(t, cmd)
	assert.Contains(t, v.View(), "Fetching stats…")

	pump(t, v, cmd)
	assert.Equal(t, []api.StatsRequest{{LibraryIDs: []int{101}, Month: 3, Year: 2024}}, published)
	assert.Equal(t, "Stats for 2024-03: fetched 1 of 2, published 1", v.Status())
	assert.Equal(t, "Could not fetch 102 (no API key)", v.Err())
	m, ok := v.Views(101)
	require.True(t, ok)
	assert.Equal(t, 250, m.TotalViews)
	assert.Contains(t, v.View(), "250")
	assert.NotContains(t, v.View(), "Fetching stats…")
}

func TestLibrariesView_FetchStatsNeedsActiveLibrary(t *testing.T) {
	fb := &fakeBackend{
		fetchFn: func(api.StatsRequest) (api.BatchFetchResult, error) {
			t.Error("fetch must not run without active libraries")
			return api.BatchFetchResult{}, nil
		},
	}
	fb.configs = []api.LibraryConfig{{ID: 1, LibraryID: 101, LibraryName: "Ada"}}
	v := NewLibrariesView(testEnv(t, fb))
	pump(t, v, v.Init())

	_, cmd := v.Update(keyMsg("f"))
	assert.Nil(t, cmd)
	assert.Equal(t, "No active libraries to fetch", v.Err())
}

func TestLibrariesView_FetchStatsError(t *testing.T) {
	fb := &fakeBackend{
		fetchFn: func(api.StatsRequest) (api.BatchFetchResult, error) {
			return api.BatchFetchResult{}, &api.Error{StatusCode: 500, Detail: "Bunny unreachable"}
		},
	}
	v := loadedLibrariesView(t, fb)

	_, cmd := v.Update(keyMsg("f"))
	pump(t, v, cmd)
	assert.Equal(t, "Stats fetch failed: Bunny unreachable", v.Err())
	assert.Empty(t, v.Status())
}
