package ui

import (
	"teachdash/internal/api"
	"teachdash/internal/auth"
	"teachdash/internal/events"
)

// NavigateMsg asks the app to open a page (SPC d, SPC u, ...). The guard may
// redirect it.
type NavigateMsg struct {
	Page auth.Page
}

// RefreshMsg refetches the current page (SPC r).
type RefreshMsg struct{}

// LogoutMsg clears the session (SPC o).
type LogoutMsg struct{}

// LoggedInMsg is sent after a successful login.
type LoggedInMsg struct {
	Session auth.Session
}

// ShowModalMsg pushes a modal over the current page.
type ShowModalMsg struct {
	View View
}

// DismissModalMsg is sent when user cancels a modal (Esc).
type DismissModalMsg struct{}

// TeachersLoadedMsg carries the teacher list to every open page.
type TeachersLoadedMsg struct {
	Teachers []api.Teacher
	Err      error
}

// LibraryConfigsChangedMsg is delivered when any page changed library configs.
type LibraryConfigsChangedMsg struct {
	events.LibraryConfigsChanged
}

// TeachersChangedMsg is delivered when the teacher list changed.
type TeachersChangedMsg struct {
	events.TeachersChanged
}
