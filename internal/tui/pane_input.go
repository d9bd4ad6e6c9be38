package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// PaneSubmittedMsg is sent when the user submits a new pane name.
type PaneSubmittedMsg struct {
	PaneID string
}

// PaneInputCancelledMsg is sent when the user abandons the input.
type PaneInputCancelledMsg struct{}

// PaneInput is a text input component for naming a new pane.
type PaneInput struct {
	input textinput.Model
	width int
}

// NewPaneInput creates a new PaneInput.
func NewPaneInput() *PaneInput {
	ti := textinput.New()
	ti.Placeholder = "New pane name, Enter to add, Esc to cancel"
	ti.CharLimit = 40
	ti.Width = 50

	return &PaneInput{
		input: ti,
		width: 80,
	}
}

// SetWidth sets the width of the input field.
func (f *PaneInput) SetWidth(width int) {
	f.width = width
	f.input.Width = width - 4 // Account for prompt and padding
}

// Update handles messages for the input field.
func (f *PaneInput) Update(msg tea.Msg) (*PaneInput, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "enter":
			id := normalizePaneID(f.input.Value())
			if id != "" {
				f.input.Reset()
				return f, func() tea.Msg {
					return PaneSubmittedMsg{PaneID: id}
				}
			}
		case "esc":
			f.input.Reset()
			return f, func() tea.Msg {
				return PaneInputCancelledMsg{}
			}
		}
	}

	var cmd tea.Cmd
	f.input, cmd = f.input.Update(msg)
	return f, cmd
}

// View renders the input field.
func (f *PaneInput) View() string {
	promptStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("39")).
		Bold(true)

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1).
		Width(f.width - 2)

	prompt := promptStyle.Render("+ ")
	return boxStyle.Render(prompt + f.input.View())
}

// Focus sets focus on the input field.
func (f *PaneInput) Focus() tea.Cmd {
	return f.input.Focus()
}

// Blur removes focus from the input field.
func (f *PaneInput) Blur() {
	f.input.Blur()
}

// normalizePaneID turns free-form input into a pane identifier:
// trimmed, lowercased, inner spaces collapsed to dashes.
func normalizePaneID(raw string) string {
	id := strings.ToLower(strings.TrimSpace(raw))
	return strings.Join(strings.Fields(id), "-")
}
