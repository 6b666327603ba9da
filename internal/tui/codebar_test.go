package tui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/fentz26/shelfcam/internal/device"
)

var (
	_ tea.Model = (*CodeBarModel)(nil)
	_ tea.Model = (*ScannerModel)(nil)
	_ tea.Model = (*CaptureModel)(nil)
	_ tea.Model = (*RegisterModel)(nil)
	_ tea.Model = (*CatalogModel)(nil)
	_ tea.Model = (*MenuModel)(nil)
)

func TestCodeBarTyping(t *testing.T) {
	m := NewCodeBarModel()
	if m.Init() == nil {
		t.Error("Expected a cursor blink command")
	}
	m.Focus()
	for _, r := range "ean13:42" {
		m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	if got := m.Value(); got != "ean13:42" {
		t.Errorf("Value() = %q, want %q", got, "ean13:42")
	}
	if got := m.Submit(); got != "ean13:42" || m.Value() != "" {
		t.Errorf("Submit() = %q, value after = %q", got, m.Value())
	}
}

func TestParseCode(t *testing.T) {
	known := []device.Symbology{device.QR, device.EAN13}
	tests := []struct {
		line   string
		wantOK bool
		want   device.ScanEvent
	}{
		{"", false, device.ScanEvent{}},
		{"   ", false, device.ScanEvent{}},
		{"hello", true, device.ScanEvent{Symbology: device.QR, Data: "hello"}},
		{"ean13:1234567890128", true, device.ScanEvent{Symbology: device.EAN13, Data: "1234567890128"}},
		{"EAN13:1234567890128", true, device.ScanEvent{Symbology: device.EAN13, Data: "1234567890128"}},
		{"https://example.com", true, device.ScanEvent{Symbology: device.QR, Data: "https://example.com"}},
		{"qr:https://example.com", true, device.ScanEvent{Symbology: device.QR, Data: "https://example.com"}},
		{"code39:ABC", true, device.ScanEvent{Symbology: device.QR, Data: "code39:ABC"}},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, ok := ParseCode(tt.line, device.QR, known)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("ParseCode(%q) = %+v, %v; want %+v, %v", tt.line, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestCodeBarSubmitClears(t *testing.T) {
	bar := NewCodeBarModel()
	bar.Focus()
	bar.SetValue("ean13:1")
	if got := bar.Submit(); got != "ean13:1" {
		t.Errorf("Submit() = %q", got)
	}
	if bar.Value() != "" {
		t.Errorf("Expected empty input after submit, got %q", bar.Value())
	}
}
