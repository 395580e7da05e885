package ui

// FocusManager tracks and rotates focus across the fields of a form.
type FocusManager struct {
	Current  string   // ID of the currently focused field
	Order    []string // Tab order for focus rotation
	OnChange func(from, to string)
}

// NewFocusManager focuses the first field of order.
func NewFocusManager(order ...string) *FocusManager {
	f := &FocusManager{Order: order}
	if len(order) > 0 {
		f.Current = order[0]
	}
	return f
}

// Is reports whether id has focus.
func (f *FocusManager) Is(id string) bool {
	return f.Current == id
}

// Next advances focus to the next field in order.
// Returns the new current focus ID.
func (f *FocusManager) Next() string {
	return f.step(1)
}

// Prev moves focus to the previous field in order.
func (f *FocusManager) Prev() string {
	return f.step(-1)
}

func (f *FocusManager) step(delta int) string {
	if len(f.Order) == 0 {
		return ""
	}
	idx := -1
	for i, id := range f.Order {
		if id == f.Current {
			idx = i
			break
		}
	}
	if idx < 0 && delta < 0 {
		idx = 0
	}
	n := len(f.Order)
	f.set(f.Order[((idx+delta)%n+n)%n])
	return f.Current
}

// SetFocus sets focus to the given field ID.
// Returns true if the ID exists in order.
func (f *FocusManager) SetFocus(id string) bool {
	for _, o := range f.Order {
		if o == id {
			f.set(id)
			return true
		}
	}
	return false
}

func (f *FocusManager) set(id string) {
	from := f.Current
	f.Current = id
	if f.OnChange != nil && from != id {
		f.OnChange(from, id)
	}
}
