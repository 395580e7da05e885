package ui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teachdash/internal/auth"
	"teachdash/internal/events"
)

func allPagesSession() *auth.Session {
	return &auth.Session{
		UserID:       1,
		Email:        "ada@example.com",
		AllowedPages: []string{"dashboard", "upload", "library-config", "comparison", "profile"},
	}
}

func newTestApp(t *testing.T, sess *auth.Session) (*AppModel, tea.Model, *auth.Store) {
	t.Helper()
	fb := &fakeBackend{teachers: testTeachers(), configs: testConfigs()}
	store := auth.NewStoreAt(t.TempDir())
	app := NewAppModel(testEnv(t, fb), store, sess)
	t.Cleanup(app.Close)
	return app, app.AsTeaModel(), store
}

// send delivers msg and returns the resulting command.
func send(m tea.Model, msg tea.Msg) tea.Cmd {
	_, cmd := m.Update(msg)
	return cmd
}

func TestApp_SignedOutStartsAtLogin(t *testing.T) {
	app, _, _ := newTestApp(t, nil)
	assert.Equal(t, auth.PageLogin, app.Current().Page())
	assert.Equal(t, ModeSignedOut, app.Mode)
}

func TestApp_SignedInStartsAtDashboard(t *testing.T) {
	app, _, _ := newTestApp(t, allPagesSession())
	assert.Equal(t, auth.PageDashboard, app.Current().Page())
	assert.Equal(t, ModeSignedIn, app.Mode)
}

func TestApp_LoggedInSavesSession(t *testing.T) {
	app, m, store := newTestApp(t, nil)
	sess := *allPagesSession()

	cmd := send(m, LoggedInMsg{Session: sess})
	assert.NotNil(t, cmd, "dashboard init")
	assert.Equal(t, auth.PageDashboard, app.Current().Page())
	assert.Equal(t, ModeSignedIn, app.Mode)

	saved, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, sess.Email, saved.Email)
}

func TestApp_GuardRedirectsToFirstAllowed(t *testing.T) {
	app, m, _ := newTestApp(t, &auth.Session{Email: "x@example.com", AllowedPages: []string{"upload", "teacher-profile"}})
	assert.Equal(t, auth.PageUpload, app.Current().Page())

	send(m, NavigateMsg{Page: auth.PageLibraries})
	assert.Equal(t, auth.PageUpload, app.Current().Page())

	send(m, NavigateMsg{Page: auth.PageProfile})
	assert.Equal(t, auth.PageProfile, app.Current().Page())
}

func TestApp_NoAllowedPagesIsDenied(t *testing.T) {
	app, m, _ := newTestApp(t, &auth.Session{Email: "x@example.com"})
	require.Equal(t, auth.PageLogin, app.Current().Page())

	login, ok := app.Current().(*LoginView)
	require.True(t, ok)
	assert.Equal(t, deniedNotice, login.Notice)
	assert.Contains(t, m.View(), "no pages assigned")
}

func TestApp_LeaderNavigation(t *testing.T) {
	app, m, _ := newTestApp(t, allPagesSession())
	send(m, keyMsg("tab")) // off the teacher select

	assert.Nil(t, send(m, keyMsg(" ")))
	assert.True(t, app.KeyHandler.LeaderWaiting)
	assert.Contains(t, m.View(), "Libraries")

	cmd := send(m, keyMsg("l"))
	require.NotNil(t, cmd)
	nav, ok := cmd().(NavigateMsg)
	require.True(t, ok)
	assert.Equal(t, auth.PageLibraries, nav.Page)

	send(m, nav)
	assert.Equal(t, auth.PageLibraries, app.Current().Page())
	assert.False(t, app.KeyHandler.LeaderWaiting)
}

func TestApp_SpaceOpensFocusedSelect(t *testing.T) {
	app, m, _ := newTestApp(t, allPagesSession())
	send(m, TeachersLoadedMsg{Teachers: testTeachers()})
	dash := app.Current().(*DashboardView)
	require.True(t, dash.Picker().Focused())
	require.False(t, dash.Picker().IsOpen())

	send(m, keyMsg(" "))
	assert.True(t, dash.Picker().IsOpen())
	assert.False(t, app.KeyHandler.LeaderWaiting)

	send(m, keyMsg("esc"))
	require.False(t, dash.Picker().IsOpen())

	// ctrl+space still reaches the leader while the select has focus.
	assert.Nil(t, send(m, keyMsg("ctrl+@")))
	assert.True(t, app.KeyHandler.LeaderWaiting)
	cmd := send(m, keyMsg("c"))
	require.NotNil(t, cmd)
	assert.Equal(t, NavigateMsg{Page: auth.PageComparison}, cmd())
	assert.False(t, dash.Picker().IsOpen())
}

func TestApp_HoverMovesHighlight(t *testing.T) {
	app, m, _ := newTestApp(t, allPagesSession())
	send(m, TeachersLoadedMsg{Teachers: testTeachers()})
	dash := app.Current().(*DashboardView)
	send(m, keyMsg(" "))
	require.True(t, dash.Picker().IsOpen())
	m.View()

	// Rows start one line below the select's own line.
	send(m, tea.MouseMsg{X: fieldLabelWidth + 2, Y: contentTop + 2, Action: tea.MouseActionMotion, Button: tea.MouseButtonNone})
	assert.Equal(t, 1, dash.Picker().Highlight())
}

func TestApp_SpaceOpensSelectOnEveryPickerPage(t *testing.T) {
	for _, page := range []auth.Page{auth.PageUpload, auth.PageComparison, auth.PageProfile} {
		t.Run(string(page), func(t *testing.T) {
			app, m, _ := newTestApp(t, allPagesSession())
			send(m, NavigateMsg{Page: page})
			require.Equal(t, page, app.Current().Page())

			send(m, keyMsg(" "))
			assert.False(t, app.KeyHandler.LeaderWaiting)
			assert.True(t, app.Current().CapturesInput(), "select is open")
		})
	}
}

func TestApp_PagesAreKept(t *testing.T) {
	app, m, _ := newTestApp(t, allPagesSession())
	dash := app.Current()

	assert.NotNil(t, send(m, NavigateMsg{Page: auth.PageUpload}), "first visit inits the page")
	assert.Nil(t, send(m, NavigateMsg{Page: auth.PageDashboard}), "second visit reuses it")
	assert.Same(t, dash, app.Current())
}

func TestApp_QuitKeys(t *testing.T) {
	_, m, _ := newTestApp(t, allPagesSession())
	cmd := send(m, keyMsg("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())

	signedOut, login, _ := newTestApp(t, nil)
	send(login, keyMsg("q"))
	form, ok := signedOut.Current().(*LoginView)
	require.True(t, ok)
	assert.Equal(t, "q", form.email.Value(), "q is text on the login form")
	cmd = send(login, keyMsg("ctrl+c"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestApp_Logout(t *testing.T) {
	app, m, store := newTestApp(t, nil)
	send(m, LoggedInMsg{Session: *allPagesSession()})
	send(m, NavigateMsg{Page: auth.PageUpload})

	send(m, LogoutMsg{})
	assert.Equal(t, auth.PageLogin, app.Current().Page())
	assert.Equal(t, ModeSignedOut, app.Mode)
	assert.Nil(t, app.Session)

	saved, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, saved)

	send(m, NavigateMsg{Page: auth.PageUpload})
	assert.Equal(t, auth.PageLogin, app.Current().Page(), "guard applies after logout")
}

func TestApp_ConfirmModalFlow(t *testing.T) {
	app, m, _ := newTestApp(t, allPagesSession())
	send(m, NavigateMsg{Page: auth.PageLibraries})

	send(m, ShowModalMsg{View: NewSyncLibrariesConfirmModal()})
	require.Equal(t, 1, app.Overlays.Len())
	assert.Contains(t, m.View(), "Sync from Bunny?")

	assert.Nil(t, send(m, keyMsg(" ")), "keys go to the modal, not the leader")
	assert.False(t, app.KeyHandler.LeaderWaiting)

	cmd := send(m, keyMsg("y"))
	require.NotNil(t, cmd)
	confirmed, ok := cmd().(confirmedMsg)
	require.True(t, ok)

	cmd = send(m, confirmed)
	assert.Equal(t, 0, app.Overlays.Len())
	require.NotNil(t, cmd)
	assert.IsType(t, syncLibrariesMsg{}, cmd())
}

func TestApp_DismissModal(t *testing.T) {
	app, m, _ := newTestApp(t, allPagesSession())
	send(m, ShowModalMsg{View: NewSyncTeachersConfirmModal()})
	cmd := send(m, keyMsg("esc"))
	require.NotNil(t, cmd)
	send(m, cmd())
	assert.Equal(t, 0, app.Overlays.Len())
}

func TestApp_HeaderShowsPageAndUser(t *testing.T) {
	_, m, _ := newTestApp(t, allPagesSession())
	send(m, tea.WindowSizeMsg{Width: 100, Height: 30})
	header := strings.SplitN(m.View(), "\n", 2)[0]
	assert.Contains(t, header, "teachdash")
	assert.Contains(t, header, "Dashboard")
	assert.Contains(t, header, "ada@example.com")
}

func TestApp_EventsReachPagesAndRearm(t *testing.T) {
	app, m, _ := newTestApp(t, allPagesSession())
	send(m, NavigateMsg{Page: auth.PageLibraries})

	app.Env.Bus.LibraryConfigs.Publish(events.LibraryConfigsChanged{LibraryIDs: []int{101}, At: time.Now()})
	msg := waitLibraryConfigsCmd(app.libraryEvents)()
	changed, ok := msg.(LibraryConfigsChangedMsg)
	require.True(t, ok)
	assert.Equal(t, []int{101}, changed.LibraryIDs)

	cmd := send(m, changed)
	assert.NotNil(t, cmd, "libraries reload and the wait is re-armed")
}

func TestApp_CloseEndsSubscriptions(t *testing.T) {
	app, _, _ := newTestApp(t, allPagesSession())
	bus := app.Env.Bus
	require.Equal(t, 1, bus.LibraryConfigs.Subscribers())

	app.Close()
	assert.Equal(t, 0, bus.LibraryConfigs.Subscribers())
	assert.Equal(t, 0, bus.Teachers.Subscribers())
	assert.Nil(t, waitTeachersCmd(app.teacherEvents)(), "closed channel ends the wait")
	app.Close()
}
