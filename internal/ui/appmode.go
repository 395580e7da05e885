package ui

// AppMode is whether a user is signed in. Keybind hints are filtered by it.
type AppMode int

const (
	ModeSignedOut AppMode = iota
	ModeSignedIn
)

func (m AppMode) String() string {
	switch m {
	case ModeSignedOut:
		return "SignedOut"
	case ModeSignedIn:
		return "SignedIn"
	default:
		return "Unknown"
	}
}
