package tui

import (
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fentz26/shelfcam/internal/config"
	"github.com/fentz26/shelfcam/internal/device"
	"github.com/fentz26/shelfcam/internal/scan"
	"github.com/fentz26/shelfcam/internal/screen"
)

// Feeder delivers decoded codes to a running scanner.
type Feeder interface {
	Feed(ev device.ScanEvent) error
}

// burstSize is how many copies of the last code ctrl+r fires at once, the
// way a camera reports one code on consecutive frames.
const burstSize = 20

// ScannerModel renders a scan session and feeds it typed codes.
type ScannerModel struct {
	screen      config.Screen
	debouncer   *scan.Debouncer
	feeder      Feeder
	symbologies []device.Symbology
	codeBar     *CodeBarModel
	suggestions *Suggestions
	spinner     spinner.Model
	snap        scan.Snapshot
	notice      *screen.Notice
	last        *device.ScanEvent
	message     string
	width       int
}

// NewScannerModel wraps a debouncer that the App has already started.
func NewScannerModel(s config.Screen, d *scan.Debouncer, feeder Feeder, symbologies []device.Symbology) *ScannerModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(shutterColor)

	bar := NewCodeBarModel()
	bar.Focus()
	return &ScannerModel{
		screen:      s,
		debouncer:   d,
		feeder:      feeder,
		symbologies: symbologies,
		codeBar:     bar,
		suggestions: NewSuggestions(symbologies),
		spinner:     sp,
		snap:        d.Snapshot(),
	}
}

// Init starts the spinner
func (m *ScannerModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// SetWidth sets the input width
func (m *ScannerModel) SetWidth(w int) {
	m.width = w
	m.codeBar.SetWidth(w - 8)
}

func (m *ScannerModel) fallback() device.Symbology {
	if len(m.symbologies) > 0 {
		return m.symbologies[0]
	}
	return device.QR
}

// Update handles messages
func (m *ScannerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case scanStateMsg:
		m.snap = msg.snap
		if msg.snap.State == scan.StateScanning {
			m.codeBar.Focus()
		} else {
			m.codeBar.Blur()
		}
		if msg.snap.State == scan.StateAwaitingChoice {
			m.notice = nil
		}
		return m, nil

	case noticeMsg:
		n := msg.notice
		m.notice = &n
		return m, nil

	case burstDoneMsg:
		m.message = fmt.Sprintf("Fired %d frames", msg.sent)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if m.snap.State == scan.StateAwaitingChoice {
			m.choose(msg.String())
			return m, nil
		}
		return m.handleInputKey(msg)
	}
	return m, nil
}

func (m *ScannerModel) choose(key string) {
	if m.snap.Prompt == nil {
		return
	}
	switch key {
	case "o":
		m.debouncer.ResolveChoice(scan.ChoiceOpen)
	case "s":
		m.debouncer.ResolveChoice(scan.ChoiceScanAgain)
	case "b":
		m.debouncer.ResolveChoice(scan.ChoiceBack)
	case "1", "2", "3":
		i := int(key[0] - '1')
		if i < len(m.snap.Prompt.Choices) {
			m.debouncer.ResolveChoice(m.snap.Prompt.Choices[i])
		}
	}
}

func (m *ScannerModel) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up":
		m.suggestions.Prev()
		return m, nil
	case "down":
		m.suggestions.Next()
		return m, nil
	case "tab":
		if selected := m.suggestions.Selected(); selected != nil {
			m.codeBar.SetValue(selected.Text + ":")
			m.suggestions.Update("")
		}
		return m, nil
	case "ctrl+r":
		if m.last == nil {
			m.message = "Nothing scanned yet"
			return m, nil
		}
		return m, burst(m.feeder, *m.last, burstSize)
	case "enter":
		ev, ok := ParseCode(m.codeBar.Submit(), m.fallback(), m.symbologies)
		m.suggestions.Update("")
		if !ok {
			return m, nil
		}
		m.last = &ev
		if err := m.feeder.Feed(ev); err != nil {
			m.message = "Error: " + err.Error()
		} else {
			m.message = ""
		}
		return m, nil
	}

	_, cmd := m.codeBar.Update(msg)
	m.suggestions.Update(m.codeBar.Value())
	return m, cmd
}

// burst feeds ev n times from n goroutines.
func burst(f Feeder, ev device.ScanEvent, n int) tea.Cmd {
	return func() tea.Msg {
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				f.Feed(ev)
			}()
		}
		wg.Wait()
		return burstDoneMsg{sent: n}
	}
}

// View renders the scanner screen
func (m *ScannerModel) View() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("\n  🔍 %s  %s\n", lipgloss.NewStyle().Bold(true).Render(m.screen.Title), formatScanState(m.snap.State)))
	names := make([]string, len(m.symbologies))
	for i, s := range m.symbologies {
		names[i] = string(s)
	}
	b.WriteString("  " + hintStyle.Render("Reading: "+strings.Join(names, ", ")) + "\n\n")

	switch m.snap.State {
	case scan.StateAwaitingPermission:
		b.WriteString(fmt.Sprintf("  %s Waiting for camera permission...\n", m.spinner.View()))
	case scan.StateScanning:
		b.WriteString(fmt.Sprintf("  %s Point the camera at a code\n", m.spinner.View()))
	case scan.StateAwaitingChoice:
		if m.snap.Prompt != nil {
			b.WriteString(indent(renderPrompt(*m.snap.Prompt)) + "\n")
		}
	}

	if m.notice != nil {
		b.WriteString("\n" + indent(renderNotice(*m.notice)) + "\n")
	}

	b.WriteString("\n" + codeBoxStyle.Render(m.codeBar.View()))
	if m.suggestions.IsVisible() {
		b.WriteString("\n" + m.suggestions.Render(m.width))
	}
	if m.message != "" {
		style := savedStyle
		if strings.HasPrefix(m.message, "Error") {
			style = failStyle
		}
		b.WriteString("\n" + style.Render(m.message))
	}
	return b.String()
}

// Help is the status bar text for the current state.
func (m *ScannerModel) Help() string {
	dropped := fmt.Sprintf(" Dropped: %d", m.debouncer.Dropped())
	if m.snap.State == scan.StateAwaitingChoice {
		return dropped + " | 1-3:choose | o:open | s:scan again | b:back"
	}
	return dropped + " | Enter:scan | Tab:symbology | Ctrl+R:burst | Esc:back"
}

func renderPrompt(p scan.Prompt) string {
	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Bold(true).Foreground(shutterColor).Render(p.Title) + "\n")
	b.WriteString(readingStyle.Render(p.Message) + "\n")
	b.WriteString(fieldStyle.Render(string(p.Payload.Symbology)) + "\n\n")
	for i, c := range p.Choices {
		b.WriteString(cursorStyle.Render(fmt.Sprintf("%d %s", i+1, c.Label())))
		b.WriteString(" ")
	}
	return noticeStyle.Render(b.String())
}

func formatScanState(st scan.State) string {
	switch st {
	case scan.StateAwaitingPermission:
		return cautionStyle.Render("○ PERMISSION")
	case scan.StateScanning:
		return savedStyle.Render("● SCANNING")
	case scan.StateLocked:
		return badgeStyle.Render("◉ LOCKED")
	case scan.StateAwaitingChoice:
		return badgeStyle.Render("◐ DECIDE")
	default:
		return lipgloss.NewStyle().Foreground(dimColor).Render("✗ CLOSED")
	}
}
