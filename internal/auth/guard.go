// Package auth decides which pages a signed-in user may open and keeps the
// session on disk between runs.
package auth

import (
	"slices"
	"strings"
)

// Page names one screen of the dashboard.
type Page string

const (
	PageLogin      Page = "login"
	PageDashboard  Page = "dashboard"
	PageUpload     Page = "upload"
	PageLibraries  Page = "libraries"
	PageComparison Page = "comparison"
	PageProfile    Page = "profile"
	// PageUsers grants account administration. It has no screen; the CLI
	// users commands check it.
	PageUsers Page = "users"
)

// Pages lists the guarded pages in navigation order.
var Pages = []Page{PageDashboard, PageUpload, PageLibraries, PageComparison, PageProfile}

// Grantable lists every page name an account can be given.
var Grantable = append(slices.Clone(Pages), PageUsers)

// ParsePage maps a backend page name to a Page. The backend also uses
// "data-upload" and "library-config" for two of them.
func ParsePage(s string) (Page, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "data-upload", "data_upload":
		return PageUpload, true
	case "library-config", "library_config", "library-configs":
		return PageLibraries, true
	case "teacher-comparison":
		return PageComparison, true
	case "teacher-profile":
		return PageProfile, true
	case "user-management", "admin-users":
		return PageUsers, true
	}
	p := Page(s)
	if slices.Contains(Grantable, p) {
		return p, true
	}
	return "", false
}

// Title is the page heading.
func (p Page) Title() string {
	switch p {
	case PageLogin:
		return "Sign in"
	case PageDashboard:
		return "Dashboard"
	case PageUpload:
		return "Upload reports"
	case PageLibraries:
		return "Library configs"
	case PageComparison:
		return "Teacher comparison"
	case PageProfile:
		return "Teacher profile"
	case PageUsers:
		return "Users"
	}
	return string(p)
}

// BackendName is the name the backend stores in allowed_pages.
func (p Page) BackendName() string {
	switch p {
	case PageUpload:
		return "data-upload"
	case PageLibraries:
		return "library-config"
	}
	return string(p)
}

// Session is a signed-in user.
type Session struct {
	UserID       int      `json:"user_id"`
	Email        string   `json:"email"`
	AllowedPages []string `json:"allowed_pages"`
}

// Allows reports whether the session may open p.
func (s *Session) Allows(p Page) bool {
	if s == nil {
		return false
	}
	for _, name := range s.AllowedPages {
		if got, ok := ParsePage(name); ok && got == p {
			return true
		}
	}
	return false
}

// FirstAllowed returns the first allowed page in navigation order.
func (s *Session) FirstAllowed() (Page, bool) {
	for _, p := range Pages {
		if s.Allows(p) {
			return p, true
		}
	}
	return "", false
}

// Guard gates page access for the current session.
type Guard struct {
	Session *Session
}

// Decision is the outcome of Resolve.
type Decision struct {
	Page       Page
	Redirected bool
	// Denied is set when a signed-in user may open no page at all.
	Denied bool
}

// Resolve returns where a request for want should land: want itself when
// allowed, else the first allowed page, else the login screen.
func (g Guard) Resolve(want Page) Decision {
	if g.Session == nil {
		return Decision{Page: PageLogin, Redirected: want != PageLogin}
	}
	if want != PageLogin && g.Session.Allows(want) {
		return Decision{Page: want}
	}
	if first, ok := g.Session.FirstAllowed(); ok {
		return Decision{Page: first, Redirected: true}
	}
	return Decision{Page: PageLogin, Redirected: true, Denied: true}
}
