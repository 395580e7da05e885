package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ConfirmModal asks for a yes/no before a backend-changing action.
// Enter or y confirms; Esc or n cancels.
type ConfirmModal struct {
	Title       string
	Label       string
	Details     string // Optional consequences shown under the label
	OnConfirm   func() tea.Msg
	boxStyle    lipgloss.Style
	titleStyle  lipgloss.Style
	detailStyle lipgloss.Style
}

// Ensure ConfirmModal implements View.
var _ View = (*ConfirmModal)(nil)

// NewConfirmModal creates a confirmation modal.
func NewConfirmModal(title, label string, onConfirm func() tea.Msg) *ConfirmModal {
	return &ConfirmModal{
		Title:       title,
		Label:       label,
		OnConfirm:   onConfirm,
		boxStyle:    ModalStyles.BoxDefault,
		titleStyle:  ModalStyles.Title,
		detailStyle: ModalStyles.Details,
	}
}

// WithDetails adds details to the modal.
func (m *ConfirmModal) WithDetails(details string) *ConfirmModal {
	m.Details = details
	return m
}

// Warning switches the modal to the danger styling.
func (m *ConfirmModal) Warning() *ConfirmModal {
	m.boxStyle = ModalStyles.BoxWarning
	m.titleStyle = ModalStyles.TitleWarning
	return m
}

// NewSyncLibrariesConfirmModal confirms pulling library configs from Bunny.
func NewSyncLibrariesConfirmModal() *ConfirmModal {
	return NewConfirmModal(
		"Sync from Bunny?",
		"Create or rename library configs to match the live Bunny libraries.",
		func() tea.Msg { return syncLibrariesMsg{} },
	).WithDetails("Existing API keys are kept.")
}

// NewSyncTeachersConfirmModal confirms upserting teachers from Bunny.
func NewSyncTeachersConfirmModal() *ConfirmModal {
	return NewConfirmModal(
		"Sync teachers from Bunny?",
		"Create a teacher for every live library and update renamed ones.",
		func() tea.Msg { return syncTeachersMsg{} },
	).Warning()
}

// Init implements View.
func (m *ConfirmModal) Init() tea.Cmd {
	return nil
}

// Update implements View.
func (m *ConfirmModal) Update(msg tea.Msg) (View, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "esc", "n":
			return m, func() tea.Msg { return DismissModalMsg{} }
		case "enter", "y":
			confirm := m.OnConfirm
			return m, func() tea.Msg {
				if confirm == nil {
					return DismissModalMsg{}
				}
				return confirmedMsg{Then: confirm()}
			}
		}
	}
	return m, nil
}

// confirmedMsg closes the modal and then delivers Then to the page.
type confirmedMsg struct {
	Then tea.Msg
}

// View implements View.
func (m *ConfirmModal) View() string {
	content := m.titleStyle.Render(m.Title) + "\n\n"
	content += ModalStyles.Label.Render(m.Label)
	if m.Details != "" {
		content += "\n" + m.detailStyle.Render(m.Details)
	}
	content += "\n\n" + ModalStyles.Help.Render("y/Enter: confirm  Esc: cancel")
	return m.boxStyle.Render(content)
}
