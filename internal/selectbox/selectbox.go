// Package selectbox provides a searchable single-selection control for Bubble Tea.
//
// The control behaves like a native select: closed it shows the label of the
// current value, open it shows a query input over a filtered option list with
// keyboard and mouse navigation. Option sets are supplied by the parent and the
// widget keeps only open/closed state, the query and the highlighted row.
package selectbox

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// NoResults is rendered in place of rows when the query matches nothing.
const NoResults = "No results"

const (
	defaultWidth      = 32
	defaultMaxVisible = 8
)

// Labeler is implemented by options that carry their own display text.
type Labeler interface {
	Label() string
}

// Valuer is implemented by options that carry their own identifier.
type Valuer interface {
	Value() string
}

// Option is a plain (label, value) pair usable as T.
type Option struct {
	label string
	value string
}

// Opt builds an Option.
func Opt(label, value string) Option { return Option{label: label, value: value} }

func (o Option) Label() string { return o.label }
func (o Option) Value() string { return o.value }

// Rect is a region in absolute terminal cells.
type Rect struct {
	X, Y, W, H int
}

// Contains reports whether the cell (x, y) lies inside r.
func (r Rect) Contains(x, y int) bool {
	return x >= r.X && x < r.X+r.W && y >= r.Y && y < r.Y+r.H
}

// Model is the searchable select. The zero value is not usable; call New.
type Model[T any] struct {
	Value       string
	Placeholder string
	Disabled    bool
	Width       int
	MaxVisible  int

	// OnChange runs once per committed selection.
	OnChange func(value string, raw T) tea.Cmd
	// LabelOf and ValueOf derive display text and identifier from an option.
	LabelOf func(T) string
	ValueOf func(T) string

	options   []T
	filtered  []int
	input     textinput.Model
	open      bool
	focused   bool
	highlight int
	offset    int
	originX   int
	originY   int
}

// New creates a closed select over options.
func New[T any](options []T) *Model[T] {
	ti := textinput.New()
	ti.Prompt = "› "
	ti.Placeholder = "type to filter"
	m := &Model[T]{
		Placeholder: "Select…",
		Width:       defaultWidth,
		MaxVisible:  defaultMaxVisible,
		LabelOf:     DefaultLabel[T],
		ValueOf:     DefaultValue[T],
		input:       ti,
	}
	m.SetOptions(options)
	return m
}

// DefaultLabel reads Label() when available and falls back to fmt.Sprint.
func DefaultLabel[T any](item T) string {
	if l, ok := any(item).(Labeler); ok {
		return l.Label()
	}
	return fmt.Sprint(item)
}

// DefaultValue reads Value() when available and falls back to fmt.Sprint.
func DefaultValue[T any](item T) string {
	if v, ok := any(item).(Valuer); ok {
		return v.Value()
	}
	return fmt.Sprint(item)
}

// Filter returns indices of options whose label contains query, ignoring case.
// An empty query keeps every option in its original order.
func Filter[T any](options []T, query string, label func(T) string) []int {
	out := make([]int, 0, len(options))
	q := strings.ToLower(query)
	for i, o := range options {
		if q == "" || strings.Contains(strings.ToLower(label(o)), q) {
			out = append(out, i)
		}
	}
	return out
}

// SetOptions replaces the option list. The highlight resets to the first row.
func (m *Model[T]) SetOptions(options []T) {
	m.options = options
	m.refilter()
}

// Options returns the current option list.
func (m *Model[T]) Options() []T { return m.options }

// Filtered returns the options visible under the current query.
func (m *Model[T]) Filtered() []T {
	out := make([]T, len(m.filtered))
	for i, idx := range m.filtered {
		out[i] = m.options[idx]
	}
	return out
}

// Query returns the current filter text.
func (m *Model[T]) Query() string { return m.input.Value() }

// Highlight returns the highlighted index into Filtered().
func (m *Model[T]) Highlight() int { return m.highlight }

// IsOpen reports whether the option panel is showing.
func (m *Model[T]) IsOpen() bool { return m.open }

// Focused reports whether the control receives key input.
func (m *Model[T]) Focused() bool { return m.focused }

// Focus makes the control receive key input.
func (m *Model[T]) Focus() { m.focused = true }

// Blur stops key input and closes the panel.
func (m *Model[T]) Blur() {
	m.focused = false
	m.Close()
}

// SetOrigin records the absolute cell of the control's top-left corner. The
// parent calls this when laying out so pointer hit-testing works program-wide.
func (m *Model[T]) SetOrigin(x, y int) {
	m.originX, m.originY = x, y
}

// Bounds returns the region the control currently occupies.
func (m *Model[T]) Bounds() Rect {
	return Rect{X: m.originX, Y: m.originY, W: m.width(), H: m.lineCount()}
}

// Selected returns the first option whose value equals Value.
func (m *Model[T]) Selected() (T, bool) {
	var zero T
	if m.Value == "" {
		return zero, false
	}
	for _, o := range m.options {
		if m.ValueOf(o) == m.Value {
			return o, true
		}
	}
	return zero, false
}

// CurrentLabel is the text shown while closed.
func (m *Model[T]) CurrentLabel() string {
	if o, ok := m.Selected(); ok {
		return m.LabelOf(o)
	}
	return m.Placeholder
}

// Open shows the option panel unless the control is disabled.
func (m *Model[T]) Open() tea.Cmd {
	if m.Disabled {
		return nil
	}
	m.open = true
	m.focused = true
	m.input.Width = m.width() - 3
	m.highlight = 0
	m.offset = 0
	return m.input.Focus()
}

// Close hides the panel without committing. The query is kept.
func (m *Model[T]) Close() {
	m.open = false
	m.input.Blur()
}

// Update handles keys while focused and pointer events anywhere.
func (m *Model[T]) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case tea.MouseMsg:
		return m.handleMouse(msg)
	case tea.KeyMsg:
		if !m.focused {
			return nil
		}
		if !m.open {
			if isOpenKey(msg) {
				return m.Open()
			}
			return nil
		}
		return m.handleOpenKey(msg)
	}
	return nil
}

// WantsKey reports whether Update would act on msg: every key while open,
// and the opening keys while focused and closed. Parents use it to keep
// space away from their own shortcuts.
func (m *Model[T]) WantsKey(msg tea.KeyMsg) bool {
	if m.open {
		return true
	}
	return m.focused && !m.Disabled && isOpenKey(msg)
}

func isOpenKey(msg tea.KeyMsg) bool {
	switch msg.String() {
	case "down", "enter", " ":
		return true
	}
	return false
}

func (m *Model[T]) handleOpenKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "down":
		m.moveHighlight(1)
		return nil
	case "up":
		m.moveHighlight(-1)
		return nil
	case "enter":
		if len(m.filtered) == 0 {
			return nil
		}
		return m.commit(m.highlight)
	case "esc":
		m.Close()
		return nil
	}
	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.input.Value() != before {
		m.refilter()
	}
	return cmd
}

func (m *Model[T]) handleMouse(msg tea.MouseMsg) tea.Cmd {
	b := m.Bounds()
	inside := b.Contains(msg.X, msg.Y)
	switch msg.Action {
	case tea.MouseActionMotion:
		if m.open && inside {
			if row, ok := m.rowAt(msg.Y); ok {
				m.highlight = row
				m.ensureVisible()
			}
		}
		return nil
	case tea.MouseActionPress:
		if msg.Button != tea.MouseButtonLeft {
			return nil
		}
		if !inside {
			if m.open {
				m.Close()
			}
			return nil
		}
		if msg.Y == m.originY {
			if m.open {
				m.Close()
				return nil
			}
			return m.Open()
		}
		if row, ok := m.rowAt(msg.Y); ok && m.open {
			return m.commit(row)
		}
	}
	return nil
}

// rowAt maps an absolute y to an index into the filtered list.
func (m *Model[T]) rowAt(y int) (int, bool) {
	line := y - m.originY - 1
	if line < 0 || line >= m.visibleRows() || len(m.filtered) == 0 {
		return 0, false
	}
	idx := m.offset + line
	if idx >= len(m.filtered) {
		return 0, false
	}
	return idx, true
}

func (m *Model[T]) commit(row int) tea.Cmd {
	item := m.options[m.filtered[row]]
	value := m.ValueOf(item)
	m.Value = value
	m.Close()
	m.input.SetValue("")
	m.refilter()
	if m.OnChange == nil {
		return nil
	}
	return m.OnChange(value, item)
}

func (m *Model[T]) moveHighlight(delta int) {
	if len(m.filtered) == 0 {
		m.highlight = 0
		return
	}
	m.highlight = clamp(m.highlight+delta, 0, len(m.filtered)-1)
	m.ensureVisible()
}

// ensureVisible scrolls the window by the smallest amount that shows the
// highlighted row.
func (m *Model[T]) ensureVisible() {
	rows := m.maxVisible()
	if m.highlight < m.offset {
		m.offset = m.highlight
	} else if m.highlight >= m.offset+rows {
		m.offset = m.highlight - rows + 1
	}
}

func (m *Model[T]) refilter() {
	m.filtered = Filter(m.options, m.input.Value(), m.LabelOf)
	m.highlight = 0
	m.offset = 0
}

func (m *Model[T]) maxVisible() int {
	if m.MaxVisible <= 0 {
		return defaultMaxVisible
	}
	return m.MaxVisible
}

func (m *Model[T]) visibleRows() int {
	n := len(m.filtered) - m.offset
	if n > m.maxVisible() {
		n = m.maxVisible()
	}
	if n < 0 {
		return 0
	}
	return n
}

func (m *Model[T]) width() int {
	if m.Width <= 0 {
		return defaultWidth
	}
	return m.Width
}

func (m *Model[T]) lineCount() int {
	if !m.open {
		return 1
	}
	if len(m.filtered) == 0 {
		return 2
	}
	return 1 + m.visibleRows()
}

var (
	headerStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	focusedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	disabledStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	placeholderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	rowStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	highlightStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	emptyStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Italic(true)
)

// View renders the control. Line 0 is the header; rows follow when open.
func (m *Model[T]) View() string {
	w := m.width()
	if !m.open {
		label := m.CurrentLabel()
		style := headerStyle
		switch {
		case m.Disabled:
			style = disabledStyle
		case m.focused:
			style = focusedStyle
		case label == m.Placeholder:
			style = placeholderStyle
		}
		return style.Render(fit("▸ "+label, w))
	}

	lines := []string{m.input.View()}
	if len(m.filtered) == 0 {
		lines = append(lines, emptyStyle.Render(fit("  "+NoResults, w)))
		return strings.Join(lines, "\n")
	}
	for i := m.offset; i < m.offset+m.visibleRows(); i++ {
		label := m.LabelOf(m.options[m.filtered[i]])
		if i == m.highlight {
			lines = append(lines, highlightStyle.Render(fit("> "+label, w)))
		} else {
			lines = append(lines, rowStyle.Render(fit("  "+label, w)))
		}
	}
	return strings.Join(lines, "\n")
}

func fit(s string, w int) string {
	return runewidth.FillRight(runewidth.Truncate(s, w, "…"), w)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
