package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/fentz26/shelfcam/internal/device"
)

// Suggestions completes the symbology prefix of the code bar.
type Suggestions struct {
	items       []SuggestionItem
	filtered    []SuggestionItem
	selectedIdx int
	visible     bool
}

// SuggestionItem represents a single autocomplete suggestion
type SuggestionItem struct {
	Text        string
	Description string
}

var symbologyDescriptions = map[device.Symbology]string{
	device.QR:      "QR code",
	device.EAN13:   "Product code (most common)",
	device.EAN8:    "Product code (short)",
	device.UPCA:    "Product code (US)",
	device.UPCE:    "Product code (US, short)",
	device.Code128: "Logistics",
	device.Code39:  "Industrial",
}

// NewSuggestions offers the given symbologies
func NewSuggestions(symbologies []device.Symbology) *Suggestions {
	items := make([]SuggestionItem, len(symbologies))
	for i, s := range symbologies {
		items[i] = SuggestionItem{Text: string(s), Description: symbologyDescriptions[s]}
	}
	return &Suggestions{items: items}
}

// Update updates suggestions based on current input. They show only while
// the input could still be a symbology prefix.
func (s *Suggestions) Update(input string) {
	if input == "" || strings.ContainsAny(input, ": ") || len(s.items) < 2 {
		s.visible = false
		s.filtered = nil
		return
	}
	s.visible = true
	s.filter(strings.ToLower(input))
}

func (s *Suggestions) filter(query string) {
	s.filtered = []SuggestionItem{}
	for _, item := range s.items {
		if strings.HasPrefix(strings.ToLower(item.Text), query) {
			s.filtered = append(s.filtered, item)
		}
	}
	s.selectedIdx = 0
}

// Next moves to the next suggestion
func (s *Suggestions) Next() {
	if len(s.filtered) == 0 {
		return
	}
	s.selectedIdx = (s.selectedIdx + 1) % len(s.filtered)
}

// Prev moves to the previous suggestion
func (s *Suggestions) Prev() {
	if len(s.filtered) == 0 {
		return
	}
	s.selectedIdx--
	if s.selectedIdx < 0 {
		s.selectedIdx = len(s.filtered) - 1
	}
}

// Selected returns the currently selected suggestion
func (s *Suggestions) Selected() *SuggestionItem {
	if !s.visible || len(s.filtered) == 0 || s.selectedIdx >= len(s.filtered) {
		return nil
	}
	return &s.filtered[s.selectedIdx]
}

// IsVisible returns whether suggestions are currently visible
func (s *Suggestions) IsVisible() bool {
	return s.visible && len(s.filtered) > 0
}

// Render renders the suggestions dropdown
func (s *Suggestions) Render(width int) string {
	if !s.IsVisible() {
		return ""
	}

	var b strings.Builder

	suggestionStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(frameColor).
		Padding(0, 1)
	if width > 4 {
		suggestionStyle = suggestionStyle.Width(width - 4)
	}

	itemStyle := lipgloss.NewStyle().Foreground(paperColor)
	descStyle := lipgloss.NewStyle().Foreground(dimColor).Italic(true)
	pickStyle := lipgloss.NewStyle().Background(shutterColor).Foreground(paperColor).Bold(true)

	b.WriteString(lipgloss.NewStyle().Bold(true).Foreground(shutterColor).Render("Symbologies"))
	b.WriteString("\n")

	maxVisible := 5
	for i, item := range s.filtered {
		if i >= maxVisible {
			more := len(s.filtered) - maxVisible
			b.WriteString(descStyle.Render(fmt.Sprintf("  ... and %d more", more)))
			break
		}

		var line string
		if i == s.selectedIdx {
			line = pickStyle.Render("▶ " + item.Text)
			if item.Description != "" {
				line += " " + pickStyle.Render(item.Description)
			}
		} else {
			line = itemStyle.Render("  " + item.Text)
			if item.Description != "" {
				line += " " + descStyle.Render(item.Description)
			}
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	return suggestionStyle.Render(b.String())
}
