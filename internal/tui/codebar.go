package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fentz26/shelfcam/internal/device"
)

var (
	codeBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255")).
			Padding(0, 1)

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true)
)

// CodeBarModel is the input that stands in for the camera: each submitted
// line is one decoded code.
type CodeBarModel struct {
	input   textinput.Model
	focused bool
}

// NewCodeBarModel creates a new code bar
func NewCodeBarModel() *CodeBarModel {
	ti := textinput.New()
	ti.Placeholder = "Type a code, or symbology:code"
	ti.CharLimit = 512
	return &CodeBarModel{
		input: ti,
	}
}

// Focus focuses the code bar
func (m *CodeBarModel) Focus() {
	m.focused = true
	m.input.Focus()
}

// Blur unfocuses the code bar
func (m *CodeBarModel) Blur() {
	m.focused = false
	m.input.Blur()
}

// Value returns the current input
func (m *CodeBarModel) Value() string {
	return m.input.Value()
}

// SetValue replaces the input and moves the cursor to the end
func (m *CodeBarModel) SetValue(v string) {
	m.input.SetValue(v)
	m.input.CursorEnd()
}

// Submit returns the current input and clears it
func (m *CodeBarModel) Submit() string {
	val := m.input.Value()
	m.input.SetValue("")
	return val
}

// SetWidth sets the input width
func (m *CodeBarModel) SetWidth(w int) {
	m.input.Width = w
}

// Init implements tea.Model
func (m *CodeBarModel) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages
func (m *CodeBarModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the code bar
func (m *CodeBarModel) View() string {
	if m.focused {
		prompt := promptStyle.Render("⌁ ")
		return codeBarStyle.Render(prompt + m.input.View())
	}
	return codeBarStyle.Render("Scanner paused")
}

// ParseCode turns an input line into a scan event. A leading
// "symbology:" is honoured only for a known symbology, so URLs pass through
// whole; otherwise fallback is used.
func ParseCode(line string, fallback device.Symbology, known []device.Symbology) (device.ScanEvent, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return device.ScanEvent{}, false
	}
	if prefix, rest, ok := strings.Cut(line, ":"); ok {
		for _, s := range known {
			if strings.EqualFold(prefix, string(s)) {
				return device.ScanEvent{Symbology: s, Data: rest}, true
			}
		}
	}
	return device.ScanEvent{Symbology: fallback, Data: line}, true
}
