package ui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"teachdash/internal/auth"
	"teachdash/internal/events"
)

// deniedNotice is shown on the login screen when a signed-in account may
// open no page.
const deniedNotice = "Your account has no pages assigned. Ask an administrator for access."

// AppModel is the root model. It owns the session, routes keys through the
// leader keybinds and the modal stack, and keeps one instance per visited page.
type AppModel struct {
	Env        *Env
	Store      *auth.Store
	Session    *auth.Session
	Mode       AppMode
	KeyHandler *KeyHandler
	Overlays   OverlayStack

	pages   map[auth.Page]Page
	current auth.Page
	width   int
	height  int

	libraryEvents <-chan events.LibraryConfigsChanged
	teacherEvents <-chan events.TeachersChanged
	unsubscribe   []func()
}

// Ensure AppModel can be used as tea.Model via adapter.
var _ tea.Model = (*appModelAdapter)(nil)

// appModelAdapter wraps AppModel to implement tea.Model.
type appModelAdapter struct {
	*AppModel
}

// NewAppModel creates the root model. session may be nil, in which case the
// login screen is shown first. store may be nil to keep sessions in memory.
func NewAppModel(env *Env, store *auth.Store, session *auth.Session) *AppModel {
	a := &AppModel{
		Env:        env,
		Store:      store,
		Session:    session,
		KeyHandler: NewKeyHandler(newKeybindRegistry()),
		pages:      make(map[auth.Page]Page),
	}
	if session != nil {
		a.Mode = ModeSignedIn
	}
	if env.Bus != nil {
		var cancelLib, cancelTeach func()
		a.libraryEvents, cancelLib = env.Bus.LibraryConfigs.Subscribe()
		a.teacherEvents, cancelTeach = env.Bus.Teachers.Subscribe()
		a.unsubscribe = append(a.unsubscribe, cancelLib, cancelTeach)
	}
	a.show(auth.PageDashboard)
	return a
}

func newKeybindRegistry() *KeybindRegistry {
	reg := NewKeybindRegistry()
	signedIn := []AppMode{ModeSignedIn}
	navigate := func(p auth.Page) tea.Cmd {
		return func() tea.Msg { return NavigateMsg{Page: p} }
	}
	reg.BindWithDesc("q", tea.Quit, "Quit")
	reg.BindWithDesc("ctrl+c", tea.Quit, "Quit")
	reg.BindWithDesc("SPC q", tea.Quit, "Quit")
	reg.BindWithDescForMode("SPC d", navigate(auth.PageDashboard), "Dashboard", signedIn)
	reg.BindWithDescForMode("SPC u", navigate(auth.PageUpload), "Upload", signedIn)
	reg.BindWithDescForMode("SPC l", navigate(auth.PageLibraries), "Libraries", signedIn)
	reg.BindWithDescForMode("SPC c", navigate(auth.PageComparison), "Compare", signedIn)
	reg.BindWithDescForMode("SPC p", navigate(auth.PageProfile), "Profile", signedIn)
	reg.BindWithDescForMode("SPC r", func() tea.Msg { return RefreshMsg{} }, "Refresh", signedIn)
	reg.BindWithDescForMode("SPC o", func() tea.Msg { return LogoutMsg{} }, "Log out", signedIn)
	return reg
}

// Current returns the page on screen.
func (a *AppModel) Current() Page { return a.pages[a.current] }

// Close cancels the event subscriptions. Call after the program exits.
func (a *AppModel) Close() {
	for _, cancel := range a.unsubscribe {
		cancel()
	}
	a.unsubscribe = nil
}

// AsTeaModel returns a tea.Model adapter for use with tea.NewProgram.
func (a *AppModel) AsTeaModel() tea.Model {
	return &appModelAdapter{AppModel: a}
}

func (a *AppModel) newPage(p auth.Page) Page {
	switch p {
	case auth.PageDashboard:
		return NewDashboardView(a.Env)
	case auth.PageUpload:
		return NewUploadView(a.Env)
	case auth.PageLibraries:
		return NewLibrariesView(a.Env)
	case auth.PageComparison:
		return NewComparisonView(a.Env)
	case auth.PageProfile:
		return NewProfileView(a.Env)
	default:
		return NewLoginView(a.Env)
	}
}

// show resolves want through the guard and makes the result current. It
// returns the new page's Init when the page was created.
func (a *AppModel) show(want auth.Page) tea.Cmd {
	decision := auth.Guard{Session: a.Session}.Resolve(want)
	if decision.Redirected {
		a.Env.log().Debug("navigation redirected",
			zap.String("want", string(want)),
			zap.String("page", string(decision.Page)),
			zap.Bool("denied", decision.Denied))
	}
	a.KeyHandler.Reset()
	a.current = decision.Page
	page, ok := a.pages[decision.Page]
	var cmd tea.Cmd
	if !ok {
		page = a.newPage(decision.Page)
		a.pages[decision.Page] = page
		cmd = page.Init()
	}
	if login, isLogin := page.(*LoginView); isLogin {
		login.Notice = ""
		if decision.Denied {
			login.Notice = deniedNotice
		}
	}
	return cmd
}

func (a *AppModel) signIn(sess auth.Session) tea.Cmd {
	a.Session = &sess
	a.Mode = ModeSignedIn
	if a.Store != nil {
		if err := a.Store.Save(sess); err != nil {
			a.Env.log().Warn("save session", zap.Error(err))
		}
	}
	a.Env.log().Info("signed in", zap.String("email", sess.Email), zap.Strings("pages", sess.AllowedPages))
	delete(a.pages, auth.PageLogin)
	return a.show(auth.PageDashboard)
}

func (a *AppModel) signOut() tea.Cmd {
	if a.Store != nil {
		if err := a.Store.Logout(); err != nil {
			a.Env.log().Warn("clear session", zap.Error(err))
		}
	}
	a.Session = nil
	a.Mode = ModeSignedOut
	a.Overlays.Clear()
	a.pages = make(map[auth.Page]Page)
	return a.show(auth.PageLogin)
}

// broadcast delivers msg to every live page.
func (a *AppModel) broadcast(msg tea.Msg) tea.Cmd {
	var cmds []tea.Cmd
	for id, p := range a.pages {
		v, cmd := p.Update(msg)
		if next, ok := v.(Page); ok {
			a.pages[id] = next
		}
		cmds = append(cmds, cmd)
	}
	return tea.Batch(cmds...)
}

func (a *AppModel) updateCurrent(msg tea.Msg) tea.Cmd {
	p := a.Current()
	if p == nil {
		return nil
	}
	v, cmd := p.Update(msg)
	if next, ok := v.(Page); ok {
		a.pages[a.current] = next
	}
	return cmd
}

// keyClaimer is a page whose focused control wants keys that are also
// leader keys, e.g. space on a closed select.
type keyClaimer interface {
	WantsKey(tea.KeyMsg) bool
}

func claimsKey(p Page, msg tea.KeyMsg) bool {
	kc, ok := p.(keyClaimer)
	return ok && kc.WantsKey(msg)
}

func (a *AppModel) handleKey(msg tea.KeyMsg) tea.Cmd {
	if msg.String() == "ctrl+c" {
		return tea.Quit
	}
	if a.Overlays.Len() > 0 {
		cmd, _ := a.Overlays.UpdateTop(msg)
		return cmd
	}
	if p := a.Current(); p != nil {
		if p.CapturesInput() || (!a.KeyHandler.LeaderWaiting && claimsKey(p, msg)) {
			return a.updateCurrent(msg)
		}
	}
	if consumed, cmd := a.KeyHandler.Handle(msg, a.Mode); consumed {
		return cmd
	}
	return a.updateCurrent(msg)
}

// Init implements tea.Model.
func (a *appModelAdapter) Init() tea.Cmd {
	cmds := []tea.Cmd{a.Current().Init()}
	if a.libraryEvents != nil {
		cmds = append(cmds, waitLibraryConfigsCmd(a.libraryEvents))
	}
	if a.teacherEvents != nil {
		cmds = append(cmds, waitTeachersCmd(a.teacherEvents))
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (a *appModelAdapter) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width, a.height = msg.Width, msg.Height
		return a, a.broadcast(msg)
	case NavigateMsg:
		return a, a.show(msg.Page)
	case RefreshMsg:
		if p := a.Current(); p != nil {
			return a, p.Refresh()
		}
		return a, nil
	case LoggedInMsg:
		return a, a.signIn(msg.Session)
	case LogoutMsg:
		return a, a.signOut()
	case ShowModalMsg:
		a.KeyHandler.Reset()
		a.Overlays.Push(msg.View)
		return a, msg.View.Init()
	case DismissModalMsg:
		a.Overlays.Pop()
		return a, nil
	case confirmedMsg:
		a.Overlays.Pop()
		then := msg.Then
		return a, func() tea.Msg { return then }
	case LibraryConfigsChangedMsg:
		return a, tea.Batch(a.broadcast(msg), waitLibraryConfigsCmd(a.libraryEvents))
	case TeachersChangedMsg:
		return a, tea.Batch(a.broadcast(msg), waitTeachersCmd(a.teacherEvents))
	case tea.KeyMsg:
		return a, a.handleKey(msg)
	case tea.MouseMsg:
		if a.Overlays.Len() > 0 {
			return a, nil
		}
		return a, a.updateCurrent(msg)
	}
	return a, a.broadcast(msg)
}

// View implements tea.Model.
func (a *appModelAdapter) View() string {
	var b strings.Builder
	b.WriteString(a.renderHeader())
	b.WriteString("\n\n")
	if top, ok := a.Overlays.Peek(); ok {
		modal := top.View()
		if a.width > 0 && a.height > contentTop {
			modal = lipgloss.Place(a.width, a.height-contentTop, lipgloss.Center, lipgloss.Center, modal)
		}
		b.WriteString(modal)
	} else if p := a.Current(); p != nil {
		b.WriteString(p.View())
	}
	if a.KeyHandler.LeaderWaiting {
		b.WriteString("\n" + RenderKeybindHelp(a.KeyHandler, a.Mode))
	}
	return b.String()
}

func (a *AppModel) renderHeader() string {
	left := Styles.Title.Render("teachdash") + Styles.Muted.Render(" · "+a.current.Title())
	if a.Session == nil {
		return left
	}
	right := Styles.Muted.Render(a.Session.Email)
	if a.width > 0 {
		gap := a.width - lipgloss.Width(left) - lipgloss.Width(right)
		if gap > 0 {
			return left + strings.Repeat(" ", gap) + right
		}
	}
	return left + "  " + right
}
