package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"teachdash/internal/api"
	"teachdash/internal/auth"
)

const (
	fieldEmail    = "email"
	fieldPassword = "password"
)

type loginResultMsg struct {
	Result api.LoginResult
	Err    error
}

// LoginView asks for email and password.
type LoginView struct {
	env      *Env
	email    textinput.Model
	password textinput.Model
	focus    *FocusManager
	pending  bool
	err      string
	// Notice is shown above the form, e.g. after a denied redirect.
	Notice string
}

var _ Page = (*LoginView)(nil)

// NewLoginView creates the sign-in page.
func NewLoginView(env *Env) *LoginView {
	email := textinput.New()
	email.Placeholder = "you@example.com"
	email.Width = 32
	email.Focus()

	password := textinput.New()
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'
	password.Width = 32

	return &LoginView{
		env:      env,
		email:    email,
		password: password,
		focus:    NewFocusManager(fieldEmail, fieldPassword),
	}
}

func (v *LoginView) Page() auth.Page { return auth.PageLogin }

// CapturesInput is always true: both fields are text inputs.
func (v *LoginView) CapturesInput() bool { return true }

func (v *LoginView) Refresh() tea.Cmd { return nil }

func (v *LoginView) Init() tea.Cmd { return textinput.Blink }

// Err is the current banner text.
func (v *LoginView) Err() string { return v.err }

func (v *LoginView) Update(msg tea.Msg) (View, tea.Cmd) {
	switch msg := msg.(type) {
	case loginResultMsg:
		v.pending = false
		if msg.Err != nil {
			if api.IsUnauthorized(msg.Err) {
				v.err = "Invalid email or password"
			} else {
				v.err = errText(msg.Err)
			}
			return v, nil
		}
		sess := auth.Session{
			UserID:       msg.Result.UserID,
			Email:        msg.Result.Email,
			AllowedPages: msg.Result.AllowedPages,
		}
		v.password.SetValue("")
		return v, func() tea.Msg { return LoggedInMsg{Session: sess} }
	case tea.KeyMsg:
		v.err = ""
		switch msg.String() {
		case "tab", "down":
			v.setFocus(v.focus.Next())
			return v, nil
		case "shift+tab", "up":
			v.setFocus(v.focus.Prev())
			return v, nil
		case "enter":
			if v.focus.Is(fieldEmail) {
				v.setFocus(v.focus.Next())
				return v, nil
			}
			return v, v.submit()
		}
	}

	var cmd tea.Cmd
	if v.focus.Is(fieldEmail) {
		v.email, cmd = v.email.Update(msg)
	} else {
		v.password, cmd = v.password.Update(msg)
	}
	return v, cmd
}

func (v *LoginView) setFocus(id string) {
	if id == fieldEmail {
		v.email.Focus()
		v.password.Blur()
	} else {
		v.password.Focus()
		v.email.Blur()
	}
}

func (v *LoginView) submit() tea.Cmd {
	email := strings.TrimSpace(v.email.Value())
	password := v.password.Value()
	if email == "" || password == "" {
		v.err = "Email and password are required"
		return nil
	}
	if v.pending {
		return nil
	}
	v.pending = true
	env := v.env
	return func() tea.Msg {
		res, err := env.Backend.Login(env.ctx(), email, password)
		if err != nil {
			env.log().Info("login failed", zap.String("email", email), zap.Error(err))
		}
		return loginResultMsg{Result: res, Err: err}
	}
}

func (v *LoginView) View() string {
	var b strings.Builder
	if v.Notice != "" {
		b.WriteString(Styles.Details.Render(v.Notice) + "\n\n")
	}
	b.WriteString(fieldLabel("Email", v.focus.Is(fieldEmail)) + v.email.View() + "\n")
	b.WriteString(fieldLabel("Password", v.focus.Is(fieldPassword)) + v.password.View() + "\n\n")
	if v.pending {
		b.WriteString(Styles.Muted.Render("Signing in…") + "\n")
	} else {
		b.WriteString(Styles.Hint.Render("Enter: sign in  Tab: next field  ctrl+c: quit") + "\n")
	}
	if banner := renderBanner(v.err); banner != "" {
		b.WriteString("\n" + banner + "\n")
	}
	return b.String()
}
