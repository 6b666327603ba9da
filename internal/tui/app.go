// Package tui provides the interactive terminal UI for shelfcam.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/fentz26/shelfcam/internal/capture"
	"github.com/fentz26/shelfcam/internal/catalog"
	"github.com/fentz26/shelfcam/internal/config"
	"github.com/fentz26/shelfcam/internal/device"
	"github.com/fentz26/shelfcam/internal/logging"
	"github.com/fentz26/shelfcam/internal/models"
	"github.com/fentz26/shelfcam/internal/permission"
	"github.com/fentz26/shelfcam/internal/scan"
	"github.com/fentz26/shelfcam/internal/screen"
)

// Device is the camera the screens share. Feed stands in for the optical
// reader.
type Device interface {
	device.Handle
	Feeder
}

// Deps are the services the TUI drives.
type Deps struct {
	Config    *config.Config
	Catalog   *catalog.Service
	Device    Device
	Gallery   capture.Picker
	Requester permission.Requester
	Linker    scan.Linker
	Recorder  screen.Recorder
}

// running is a screen session whose loop has not finished yet.
type running struct {
	exit   func()
	cancel context.CancelFunc
	done   <-chan struct{}
}

// App is the main TUI application model.
type App struct {
	deps   Deps
	ctx    context.Context
	cancel context.CancelFunc
	bridge *bridge

	mode     string // "menu", "waiting", "capture", "scan", "gallery", "register", "catalog"
	activeID string
	sessions map[string]*running
	// waiting is a camera screen held back until the previous session has
	// released the device.
	waiting *MenuItem

	menu     *MenuModel
	capture  *CaptureModel
	scanner  *ScannerModel
	register *RegisterModel
	products *CatalogModel
	spinner  spinner.Model

	width   int
	height  int
	message string
}

// New creates a new TUI application.
func New(deps Deps) *App {
	ctx, cancel := context.WithCancel(context.Background())
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(shutterColor)

	return &App{
		deps:     deps,
		ctx:      ctx,
		cancel:   cancel,
		bridge:   newBridge(),
		mode:     "menu",
		sessions: make(map[string]*running),
		menu:     NewMenuModel(deps.Config.Screens),
		spinner:  sp,
	}
}

// Run starts the TUI application. Every session is closed and its device
// released before Run returns.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen())
	_, err := p.Run()
	a.Shutdown()
	return err
}

// Shutdown cancels every running session and waits for it to finish.
func (a *App) Shutdown() {
	a.cancel()
	for id, s := range a.sessions {
		<-s.done
		delete(a.sessions, id)
	}
	a.bridge.close()
}

// Init implements tea.Model
func (a *App) Init() tea.Cmd {
	return tea.Batch(a.bridge.wait(), a.menu.Init())
}

// Update implements tea.Model
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case bridgedMsg:
		cmd := a.handleSession(msg.msg)
		return a, tea.Batch(cmd, a.bridge.wait())

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.menu.SetSize(msg.Width, msg.Height-6)
		if a.scanner != nil {
			a.scanner.SetWidth(msg.Width)
		}
		return a, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return a, tea.Quit
		case "esc":
			if a.mode != "menu" {
				a.closeScreen()
				return a, nil
			}
		case "q":
			if a.mode == "menu" {
				return a, tea.Quit
			}
		case "enter":
			if a.mode == "menu" {
				if item := a.menu.Selected(); item != nil {
					return a, a.open(*item)
				}
				return a, nil
			}
		}

	case galleryDoneMsg:
		if msg.id != a.activeID {
			return a, nil
		}
		a.activeID = ""
		a.mode = "menu"
		switch {
		case msg.err != nil:
			a.message = "Error: " + msg.err.Error()
		case msg.picked:
			a.message = "✓ Photo chosen from gallery"
		default:
			a.message = "Gallery closed without a choice"
		}
		return a, nil

	case errMsg:
		a.message = "Error: " + msg.err.Error()
		return a, nil
	}

	return a, a.updateActive(msg)
}

func (a *App) updateActive(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch a.mode {
	case "menu":
		_, cmd = a.menu.Update(msg)
	case "capture":
		_, cmd = a.capture.Update(msg)
	case "scan":
		_, cmd = a.scanner.Update(msg)
	case "register":
		_, cmd = a.register.Update(msg)
	case "catalog":
		_, cmd = a.products.Update(msg)
	case "gallery", "waiting":
		if tick, ok := msg.(spinner.TickMsg); ok {
			a.spinner, cmd = a.spinner.Update(tick)
		}
	}
	return cmd
}

// handleSession applies a message that a session loop posted.
func (a *App) handleSession(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case sessionDoneMsg:
		if s, ok := a.sessions[msg.id]; ok {
			s.cancel()
			delete(a.sessions, msg.id)
		}
		if msg.id == a.activeID && msg.err != nil && !errors.Is(msg.err, context.Canceled) {
			a.message = "Error: " + msg.err.Error()
		}
		if a.waiting != nil && len(a.sessions) == 0 {
			item := *a.waiting
			a.waiting = nil
			return a.open(item)
		}
		return nil

	case screenExitMsg:
		if msg.id != a.activeID {
			return nil
		}
		if a.mode == "capture" && a.capture.accepted {
			a.message = "✓ Saved as the product photo"
		}
		a.activeID = ""
		a.mode = "menu"
		return nil

	case captureStateMsg:
		if msg.id == a.activeID && a.mode == "capture" {
			_, cmd := a.capture.Update(msg)
			return cmd
		}

	case scanStateMsg:
		if msg.id == a.activeID && a.mode == "scan" {
			_, cmd := a.scanner.Update(msg)
			return cmd
		}

	case noticeMsg:
		if msg.id != a.activeID {
			return nil
		}
		if msg.notice.Fatal() {
			a.message = "Error: " + msg.notice.Message
		}
		return a.updateActive(msg)
	}
	return nil
}

// open starts the screen for a menu entry.
func (a *App) open(item MenuItem) tea.Cmd {
	a.message = ""
	switch item.Builtin {
	case entryRegister:
		a.register = NewRegisterModel(a.deps.Catalog)
		a.mode = "register"
		return a.register.Init()
	case entryCatalog:
		a.products = NewCatalogModel(a.deps.Catalog)
		a.mode = "catalog"
		return a.products.Init()
	}

	switch item.Screen.Kind {
	case config.ScreenPhoto, config.ScreenVideo, config.ScreenScan:
		if len(a.sessions) > 0 {
			// The device has one owner; wait for the last one to let go.
			a.waiting = &item
			a.mode = "waiting"
			return a.spinner.Tick
		}
	}

	switch item.Screen.Kind {
	case config.ScreenPhoto, config.ScreenVideo:
		return a.openCapture(item.Screen)
	case config.ScreenScan:
		return a.openScanner(item.Screen)
	case config.ScreenGallery:
		return a.openGallery(item.Screen)
	}
	return nil
}

func (a *App) navigator(id *string) screen.Navigator {
	return screen.NavigatorFunc(func() {
		a.bridge.push(screenExitMsg{id: *id})
	})
}

// track runs a session loop and reports its end through the bridge.
func (a *App) track(id string, exit func(), run func(ctx context.Context) error, done <-chan struct{}) {
	ctx, cancel := context.WithCancel(a.ctx)
	a.sessions[id] = &running{exit: exit, cancel: cancel, done: done}
	a.activeID = id
	go func() {
		err := run(ctx)
		a.bridge.push(sessionDoneMsg{id: id, err: err})
	}()
}

func (a *App) openCapture(s config.Screen) tea.Cmd {
	cfg := a.deps.Config
	kind := device.KindPhoto
	if s.Kind == config.ScreenVideo {
		kind = device.KindVideo
	}
	log := logging.For("capture", s.Name)

	var id string
	session := capture.New(capture.Config{
		Kind:         kind,
		MaxDuration:  cfg.Video.MaxDuration,
		Capabilities: cfg.Capabilities(),
		Options:      cfg.CaptureOptions(kind),
	}, capture.Deps{
		Gate:      permission.NewGate(a.deps.Requester, log),
		Device:    a.deps.Device,
		Sink:      a.deps.Catalog,
		Navigator: a.navigator(&id),
		Recorder:  a.deps.Recorder,
		Log:       log,
	})
	id = session.ID()
	session.OnStateChanged(func(snap capture.Snapshot) {
		a.bridge.push(captureStateMsg{id: id, snap: snap})
	})
	session.OnNotice(func(n screen.Notice) {
		a.bridge.push(noticeMsg{id: id, notice: n})
	})

	a.capture = NewCaptureModel(s, session, cfg.Capabilities())
	a.mode = "capture"
	a.track(id, session.Exit, session.Run, session.Done())
	return a.capture.Init()
}

func (a *App) openScanner(s config.Screen) tea.Cmd {
	scanCfg, err := a.deps.Config.ScanConfig(s.Scanner)
	if err != nil {
		a.message = "Error: " + err.Error()
		return nil
	}
	log := logging.For("scan", s.Name)

	var id string
	d := scan.New(scanCfg, scan.Deps{
		Gate:      permission.NewGate(a.deps.Requester, log),
		Device:    a.deps.Device,
		Linker:    a.deps.Linker,
		Navigator: a.navigator(&id),
		Recorder:  a.deps.Recorder,
		Log:       log,
	})
	id = d.ID()
	d.OnStateChanged(func(snap scan.Snapshot) {
		a.bridge.push(scanStateMsg{id: id, snap: snap})
	})
	d.OnNotice(func(n screen.Notice) {
		a.bridge.push(noticeMsg{id: id, notice: n})
	})

	a.scanner = NewScannerModel(s, d, a.deps.Device, scanCfg.Symbologies)
	a.scanner.SetWidth(a.width)
	a.mode = "scan"
	a.track(id, d.Exit, d.Run, d.Done())
	return a.scanner.Init()
}

func (a *App) openGallery(s config.Screen) tea.Cmd {
	id := uuid.New().String()
	log := logging.For("gallery", s.Name)
	gate := permission.NewGate(a.deps.Requester, log)
	// galleryDoneMsg returns to the menu.
	nav := screen.NavigatorFunc(func() {})
	picker := &pickRecorder{Picker: a.deps.Gallery}
	sink := a.deps.Catalog
	ctx := a.ctx

	a.activeID = id
	a.mode = "gallery"
	pick := func() tea.Msg {
		err := capture.PickFromGallery(ctx, gate, picker, sink, nav, log)
		return galleryDoneMsg{id: id, picked: picker.picked, err: err}
	}
	return tea.Batch(a.spinner.Tick, pick)
}

// pickRecorder notes whether the user chose an image.
type pickRecorder struct {
	capture.Picker
	picked bool
}

func (p *pickRecorder) PickImage(ctx context.Context) (models.Locator, bool, error) {
	loc, cancelled, err := p.Picker.PickImage(ctx)
	p.picked = err == nil && !cancelled && loc != ""
	return loc, cancelled, err
}

// closeScreen leaves the current screen without a result.
func (a *App) closeScreen() {
	if s, ok := a.sessions[a.activeID]; ok {
		s.exit()
	}
	a.waiting = nil
	a.activeID = ""
	a.mode = "menu"
}

// View implements tea.Model
func (a *App) View() string {
	var b strings.Builder

	cfg := a.deps.Config
	header := headerStyle.Render("📦 SHELFCAM")
	header += "  " + lipgloss.NewStyle().Foreground(platformColor).Render(fmt.Sprintf("[%s]", cfg.Platform))
	header += "  " + lipgloss.NewStyle().Foreground(dimColor).Render(fmt.Sprintf("%d screens", len(cfg.Screens)))
	b.WriteString(header + "\n")
	b.WriteString(strings.Repeat("─", max(a.width, 20)) + "\n")

	var help string
	switch a.mode {
	case "menu":
		b.WriteString(a.menu.View())
		help = " ↑↓:nav | Enter:open | q:quit"
	case "capture":
		b.WriteString(a.capture.View())
		help = a.capture.Help()
	case "scan":
		b.WriteString(a.scanner.View())
		help = a.scanner.Help()
	case "register":
		b.WriteString(a.register.View())
		help = a.register.Help()
	case "catalog":
		b.WriteString(a.products.View())
		help = a.products.Help()
	case "gallery":
		b.WriteString(fmt.Sprintf("\n  %s Opening gallery...\n", a.spinner.View()))
		help = " Esc:back"
	case "waiting":
		b.WriteString(fmt.Sprintf("\n  %s Releasing the camera...\n", a.spinner.View()))
		help = " Esc:back"
	}

	// Message bar
	if a.message != "" {
		msgStyle := savedStyle
		if strings.HasPrefix(a.message, "Error") {
			msgStyle = failStyle
		}
		b.WriteString("\n" + msgStyle.Render(a.message))
	}
	b.WriteString("\n")

	b.WriteString(footerStyle.Width(max(a.width, 20)).Render(help))
	return b.String()
}

type errMsg struct {
	err error
}

type captureStateMsg struct {
	id   string
	snap capture.Snapshot
}

type scanStateMsg struct {
	id   string
	snap scan.Snapshot
}

type noticeMsg struct {
	id     string
	notice screen.Notice
}

type screenExitMsg struct {
	id string
}

type sessionDoneMsg struct {
	id  string
	err error
}

type galleryDoneMsg struct {
	id     string
	picked bool
	err    error
}

type burstDoneMsg struct {
	sent int
}

type pendingLoadedMsg struct {
	image *models.PendingImage
}

type registeredMsg struct {
	product *models.Product
	err     error
}

type productsLoadedMsg struct {
	products []models.Product
}
