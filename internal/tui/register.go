package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fentz26/shelfcam/internal/catalog"
	"github.com/fentz26/shelfcam/internal/models"
)

var formLabels = []string{"Product name", "Price (e.g. 9.99)", "Your user", "Description"}

// RegisterModel is the product registration form.
type RegisterModel struct {
	catalog *catalog.Service
	inputs  []textinput.Model
	focus   int
	pending *models.PendingImage
	message string
}

// NewRegisterModel creates an empty form
func NewRegisterModel(svc *catalog.Service) *RegisterModel {
	inputs := make([]textinput.Model, len(formLabels))
	for i := range inputs {
		ti := textinput.New()
		ti.CharLimit = 256
		ti.Width = 50
		ti.Prompt = "› "
		inputs[i] = ti
	}
	inputs[3].CharLimit = 1024
	inputs[0].Focus()
	return &RegisterModel{catalog: svc, inputs: inputs}
}

// Init loads the pending image
func (m *RegisterModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.loadPending())
}

func (m *RegisterModel) loadPending() tea.Cmd {
	return func() tea.Msg {
		img, err := m.catalog.PendingImage()
		if err != nil {
			return errMsg{err}
		}
		return pendingLoadedMsg{img}
	}
}

// Input returns the form values
func (m *RegisterModel) Input() catalog.ProductInput {
	return catalog.ProductInput{
		Name:        m.inputs[0].Value(),
		Price:       m.inputs[1].Value(),
		User:        m.inputs[2].Value(),
		Description: m.inputs[3].Value(),
	}
}

func (m *RegisterModel) setFocus(i int) {
	m.inputs[m.focus].Blur()
	m.focus = (i + len(m.inputs)) % len(m.inputs)
	m.inputs[m.focus].Focus()
}

func (m *RegisterModel) clear() {
	for i := range m.inputs {
		m.inputs[i].SetValue("")
	}
	m.setFocus(0)
	m.pending = nil
}

func (m *RegisterModel) submit() tea.Cmd {
	in := m.Input()
	return func() tea.Msg {
		p, err := m.catalog.RegisterProduct(context.Background(), in)
		return registeredMsg{product: p, err: err}
	}
}

// Update handles messages
func (m *RegisterModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case pendingLoadedMsg:
		m.pending = msg.image
		return m, nil

	case registeredMsg:
		switch {
		case errors.Is(msg.err, catalog.ErrMissingFields), errors.Is(msg.err, catalog.ErrNoPendingImage):
			m.message = "Error: fill in every field and add a photo (" + msg.err.Error() + ")"
		case msg.err != nil:
			m.message = "Error: " + msg.err.Error()
		default:
			m.message = fmt.Sprintf("✓ Registered %s", msg.product.Name)
			m.clear()
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "tab", "down":
			m.setFocus(m.focus + 1)
			return m, nil
		case "shift+tab", "up":
			m.setFocus(m.focus - 1)
			return m, nil
		case "ctrl+s":
			return m, m.submit()
		case "enter":
			if m.focus == len(m.inputs)-1 {
				return m, m.submit()
			}
			m.setFocus(m.focus + 1)
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

// View renders the form
func (m *RegisterModel) View() string {
	var b strings.Builder

	b.WriteString("\n  " + lipgloss.NewStyle().Bold(true).Render("📦 Register product") + "\n\n")

	photo := fieldStyle.Render("No photo")
	if m.pending != nil {
		photo = readingStyle.Render(string(m.pending.Locator)) + " " + fieldStyle.Render("("+string(m.pending.Kind)+")")
	}
	b.WriteString(indent(cardStyle.Render(fieldStyle.Render("Product photo")+"\n"+photo)) + "\n\n")

	for i, in := range m.inputs {
		label := fieldStyle.Render(formLabels[i])
		if i == m.focus {
			label = lipgloss.NewStyle().Foreground(shutterColor).Bold(true).Render(formLabels[i])
		}
		b.WriteString("  " + label + "\n")
		b.WriteString("  " + in.View() + "\n")
	}

	if m.message != "" {
		style := savedStyle
		if strings.HasPrefix(m.message, "Error") {
			style = failStyle
		}
		b.WriteString("\n  " + style.Render(m.message) + "\n")
	}
	return b.String()
}

// Help is the status bar text.
func (m *RegisterModel) Help() string {
	return " Tab:next field | Ctrl+S:register | Esc:back"
}
