package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fentz26/shelfcam/internal/capture"
	"github.com/fentz26/shelfcam/internal/config"
	"github.com/fentz26/shelfcam/internal/device"
	"github.com/fentz26/shelfcam/internal/screen"
)

// CaptureModel renders a photo or video session.
type CaptureModel struct {
	screen  config.Screen
	session *capture.Session
	caps    device.Capabilities
	snap    capture.Snapshot
	notice  *screen.Notice
	spinner spinner.Model
	since   time.Time
	// accepted is set when the session closed from the preview, which only
	// happens once the sink took the artifact.
	accepted bool
}

// NewCaptureModel wraps a session that the App has already started.
func NewCaptureModel(s config.Screen, session *capture.Session, caps device.Capabilities) *CaptureModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(shutterColor)
	return &CaptureModel{
		screen:  s,
		session: session,
		caps:    caps,
		snap:    session.Snapshot(),
		spinner: sp,
	}
}

// Init starts the spinner
func (m *CaptureModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m *CaptureModel) video() bool {
	return m.screen.Kind == config.ScreenVideo
}

// zoomStep is a tenth of the supported range.
func (m *CaptureModel) zoomStep() float64 {
	return (m.caps.MaxZoom - m.caps.MinZoom) / 10
}

// Update handles messages
func (m *CaptureModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case captureStateMsg:
		if msg.snap.State == capture.StateCapturing && m.snap.State != capture.StateCapturing {
			m.since = time.Now()
		}
		if msg.snap.State == capture.StateCapturing {
			m.notice = nil
		}
		if msg.snap.State == capture.StateClosed && m.snap.State == capture.StatePreviewing {
			m.accepted = true
		}
		m.snap = msg.snap
		return m, nil

	case noticeMsg:
		n := msg.notice
		m.notice = &n
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		m.handleKey(msg.String())
	}
	return m, nil
}

func (m *CaptureModel) handleKey(key string) {
	switch key {
	case "enter", " ":
		switch m.snap.State {
		case capture.StateReady:
			m.session.RequestCapture()
		case capture.StateCapturing:
			if m.video() {
				m.session.StopRecording()
			}
		case capture.StatePreviewing:
			m.session.Accept()
		}
	case "a":
		m.session.Accept()
	case "r":
		m.session.Retry()
	case "f":
		m.session.FlipFacing()
	}

	if !m.screen.Advanced {
		return
	}
	switch key {
	case "l":
		m.session.CycleFlash()
	case "o":
		m.session.ToggleFocus()
	case "+", "=":
		m.session.SetZoom(m.snap.Options.Zoom + m.zoomStep())
	case "-":
		m.session.SetZoom(m.snap.Options.Zoom - m.zoomStep())
	}
}

// View renders the capture screen
func (m *CaptureModel) View() string {
	var b strings.Builder

	icon := "📷"
	if m.video() {
		icon = "🎥"
	}
	b.WriteString(fmt.Sprintf("\n  %s %s  %s\n\n", icon, lipgloss.NewStyle().Bold(true).Render(m.screen.Title), formatCaptureState(m.snap.State)))

	opts := m.snap.Options
	controls := []string{field("Facing", string(opts.Facing))}
	if m.screen.Advanced {
		controls = append(controls,
			field("Flash", string(opts.Flash)),
			field("Focus", string(opts.Focus)),
			field("Zoom", fmt.Sprintf("%.3f", opts.Zoom)),
		)
	}
	b.WriteString("  " + strings.Join(controls, "   ") + "\n\n")

	switch m.snap.State {
	case capture.StateAwaitingPermission:
		b.WriteString(fmt.Sprintf("  %s Waiting for camera permission...\n", m.spinner.View()))
	case capture.StateCapturing:
		if m.video() {
			elapsed := time.Since(m.since).Truncate(time.Second)
			b.WriteString(fmt.Sprintf("  %s %s %s\n", m.spinner.View(), failStyle.Render("● REC"), elapsed))
		} else {
			b.WriteString(fmt.Sprintf("  %s Capturing...\n", m.spinner.View()))
		}
	case capture.StatePreviewing:
		preview := cardStyle.Render(fieldStyle.Render("Preview") + "\n" + readingStyle.Render(string(m.snap.Pending)))
		b.WriteString(indent(preview) + "\n")
	}

	if m.notice != nil {
		b.WriteString("\n" + indent(renderNotice(*m.notice)) + "\n")
	}
	return b.String()
}

// Help is the status bar text for the current state.
func (m *CaptureModel) Help() string {
	var keys []string
	switch m.snap.State {
	case capture.StateReady:
		if m.video() {
			keys = append(keys, "Enter:record")
		} else {
			keys = append(keys, "Enter:capture")
		}
	case capture.StateCapturing:
		if m.video() {
			keys = append(keys, "Enter:stop")
		}
	case capture.StatePreviewing:
		keys = append(keys, "Enter/a:use", "r:retake")
	}
	keys = append(keys, "f:flip")
	if m.screen.Advanced {
		keys = append(keys, "l:flash", "o:focus", "+/-:zoom")
	}
	keys = append(keys, "Esc:back")
	return " " + strings.Join(keys, " | ")
}

func formatCaptureState(st capture.State) string {
	switch st {
	case capture.StateAwaitingPermission:
		return cautionStyle.Render("○ PERMISSION")
	case capture.StateReady:
		return savedStyle.Render("● READY")
	case capture.StateCapturing:
		return failStyle.Render("◉ CAPTURING")
	case capture.StatePreviewing:
		return badgeStyle.Render("◐ PREVIEW")
	default:
		return lipgloss.NewStyle().Foreground(dimColor).Render("✗ CLOSED")
	}
}

func field(label, value string) string {
	return fieldStyle.Render(label+": ") + readingStyle.Render(value)
}

func indent(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = "  " + l
	}
	return strings.Join(lines, "\n")
}

func renderNotice(n screen.Notice) string {
	title := cautionStyle.Bold(true).Render(n.Title)
	if n.Fatal() {
		title = failStyle.Bold(true).Render(n.Title)
	}
	return noticeStyle.Render(title + "\n" + n.Message)
}
