package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/fentz26/shelfcam/internal/catalog"
	"github.com/fentz26/shelfcam/internal/models"
)

// CatalogModel lists registered products, newest first.
type CatalogModel struct {
	catalog     *catalog.Service
	products    []models.Product
	selectedIdx int
	loading     bool
}

// NewCatalogModel creates the catalog screen
func NewCatalogModel(svc *catalog.Service) *CatalogModel {
	return &CatalogModel{catalog: svc}
}

// Init loads the products
func (m *CatalogModel) Init() tea.Cmd {
	return m.Refresh()
}

// Refresh reloads the products
func (m *CatalogModel) Refresh() tea.Cmd {
	m.loading = true
	return func() tea.Msg {
		products, err := m.catalog.ListProducts(0)
		if err != nil {
			return errMsg{err}
		}
		return productsLoadedMsg{products}
	}
}

// Update handles messages
func (m *CatalogModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case productsLoadedMsg:
		m.loading = false
		m.products = msg.products
		if m.selectedIdx >= len(m.products) {
			m.selectedIdx = max(0, len(m.products)-1)
		}
	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if m.selectedIdx > 0 {
				m.selectedIdx--
			}
		case "down", "j":
			if m.selectedIdx < len(m.products)-1 {
				m.selectedIdx++
			}
		case "r":
			return m, m.Refresh()
		}
	}
	return m, nil
}

// View renders the product list and the selected product
func (m *CatalogModel) View() string {
	if m.loading {
		return "\n  Loading products...\n"
	}
	if len(m.products) == 0 {
		return "\n  No products yet. Register one from the menu.\n"
	}

	var b strings.Builder
	b.WriteString("\n  " + lipgloss.NewStyle().Bold(true).Render("🛒 Catalog") + "\n\n")
	for i, p := range m.products {
		line := fmt.Sprintf("%-24s %10s  %s", truncate(p.Name, 24), p.Price, humanize.Time(p.CreatedAt))
		if i == m.selectedIdx {
			b.WriteString(cursorStyle.Render("▶ "+line) + "\n")
		} else {
			b.WriteString("    " + line + "\n")
		}
	}

	p := m.products[m.selectedIdx]
	detail := strings.Join([]string{
		field("Name", p.Name),
		field("Price", p.Price),
		field("User", p.User),
		field("Photo", string(p.ImageURI)),
		field("Description", p.Description),
	}, "\n")
	b.WriteString("\n" + indent(cardStyle.Render(detail)) + "\n")
	return b.String()
}

// Help is the status bar text.
func (m *CatalogModel) Help() string {
	return fmt.Sprintf(" Products: %d | ↑↓:nav | r:refresh | Esc:back", len(m.products))
}

func truncate(s string, n int) string {
	if len([]rune(s)) <= n {
		return s
	}
	return string([]rune(s)[:n-3]) + "..."
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
