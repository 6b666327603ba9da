package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fentz26/shelfcam/internal/config"
)

var (
	listTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	kindPhoto   = lipgloss.NewStyle().Foreground(lipgloss.Color("2")) // Green
	kindVideo   = lipgloss.NewStyle().Foreground(lipgloss.Color("1")) // Red
	kindScan    = lipgloss.NewStyle().Foreground(lipgloss.Color("6")) // Cyan
	kindGallery = lipgloss.NewStyle().Foreground(lipgloss.Color("4")) // Blue
	kindForm    = lipgloss.NewStyle().Foreground(lipgloss.Color("3")) // Yellow
)

// Built-in menu entries that are not capture screens.
const (
	entryRegister = "register"
	entryCatalog  = "catalog"
)

// MenuItem implements list.Item for the main menu.
type MenuItem struct {
	Screen config.Screen
	// Builtin is set for the register and catalog entries.
	Builtin string
}

func (i MenuItem) FilterValue() string { return i.Title() }

func (i MenuItem) Title() string {
	if i.Screen.Title != "" {
		return i.Screen.Title
	}
	return i.Screen.Name
}

func (i MenuItem) Description() string {
	switch i.Builtin {
	case entryRegister:
		return kindForm.Render("● register a product")
	case entryCatalog:
		return kindForm.Render("● browse products")
	}
	desc := formatKind(i.Screen.Kind)
	if i.Screen.Advanced {
		desc += " • advanced controls"
	}
	if i.Screen.Scanner != "" {
		desc += fmt.Sprintf(" • %s", i.Screen.Scanner)
	}
	return desc
}

func formatKind(kind config.ScreenKind) string {
	switch kind {
	case config.ScreenPhoto:
		return kindPhoto.Render("● photo")
	case config.ScreenVideo:
		return kindVideo.Render("● video")
	case config.ScreenScan:
		return kindScan.Render("● scan")
	case config.ScreenGallery:
		return kindGallery.Render("● gallery")
	default:
		return string(kind)
	}
}

// MenuModel manages the main menu screen.
type MenuModel struct {
	list list.Model
}

// NewMenuModel builds the menu from the configured screens.
func NewMenuModel(screens []config.Screen) *MenuModel {
	items := []list.Item{
		MenuItem{Screen: config.Screen{Name: entryRegister, Title: "Register product"}, Builtin: entryRegister},
		MenuItem{Screen: config.Screen{Name: entryCatalog, Title: "Catalog"}, Builtin: entryCatalog},
	}
	for _, s := range screens {
		items = append(items, MenuItem{Screen: s})
	}

	delegate := list.NewDefaultDelegate()
	l := list.New(items, delegate, 80, 20)
	l.Title = "shelfcam"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)
	l.Styles.Title = listTitleStyle

	return &MenuModel{list: l}
}

// Init initializes the menu
func (m *MenuModel) Init() tea.Cmd {
	return nil
}

// SetSize sets the list dimensions
func (m *MenuModel) SetSize(w, h int) {
	m.list.SetSize(w, h)
}

// Selected returns the highlighted entry
func (m *MenuModel) Selected() *MenuItem {
	if item := m.list.SelectedItem(); item != nil {
		entry := item.(MenuItem)
		return &entry
	}
	return nil
}

// Update handles messages
func (m *MenuModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View renders the menu
func (m *MenuModel) View() string {
	return m.list.View()
}
