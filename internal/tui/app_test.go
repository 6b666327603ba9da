package tui

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/fentz26/shelfcam/internal/audit"
	"github.com/fentz26/shelfcam/internal/capture"
	"github.com/fentz26/shelfcam/internal/catalog"
	"github.com/fentz26/shelfcam/internal/config"
	"github.com/fentz26/shelfcam/internal/device/sim"
	"github.com/fentz26/shelfcam/internal/permission"
	"github.com/fentz26/shelfcam/internal/scan"
	"github.com/fentz26/shelfcam/internal/store"
)

type testApp struct {
	app        *App
	dev        *sim.Device
	catalog    *catalog.Service
	store      *store.Store
	galleryDir string

	mu     sync.Mutex
	opened []string
}

func newTestApp(t *testing.T, deny ...permission.Capability) *testApp {
	t.Helper()
	st, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	ta := &testApp{
		dev:        sim.New(t.TempDir(), nil),
		store:      st,
		galleryDir: t.TempDir(),
	}
	rec := audit.NewRecorder(st)
	ta.catalog = catalog.NewService(st, rec, nil)
	ta.app = New(Deps{
		Config:    config.DefaultConfig(),
		Catalog:   ta.catalog,
		Device:    ta.dev,
		Gallery:   sim.Gallery{Dir: ta.galleryDir},
		Requester: sim.Permissions{Deny: deny},
		Linker: scan.LinkerFunc(func(ctx context.Context, uri string) error {
			ta.mu.Lock()
			ta.opened = append(ta.opened, uri)
			ta.mu.Unlock()
			return nil
		}),
		Recorder: rec,
	})
	t.Cleanup(ta.app.Shutdown)
	return ta
}

// pump feeds bridged session messages to the App until cond holds.
func (ta *testApp) pump(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for !cond() {
		next := make(chan interface{}, 1)
		go func() {
			if msg, ok := ta.app.bridge.pop(); ok {
				next <- msg
			}
		}()
		select {
		case msg := <-next:
			ta.app.Update(bridgedMsg{msg})
		case <-deadline:
			t.Fatalf("Timeout in mode %s (message %q)", ta.app.mode, ta.app.message)
		}
	}
}

func (ta *testApp) open(t *testing.T, name string) tea.Cmd {
	t.Helper()
	s, ok := ta.app.deps.Config.Screen(name)
	if !ok {
		t.Fatalf("No screen %s", name)
	}
	return ta.app.open(MenuItem{Screen: s})
}

func key(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

// collect runs cmd and any batch it returns, skipping nil messages.
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var msgs []tea.Msg
		for _, c := range batch {
			msgs = append(msgs, collect(c)...)
		}
		return msgs
	}
	if msg == nil {
		return nil
	}
	return []tea.Msg{msg}
}

func TestPhotoCaptureAccept(t *testing.T) {
	ta := newTestApp(t)
	a := ta.app

	ta.open(t, "camera")
	if a.mode != "capture" {
		t.Fatalf("Expected capture mode, got %s", a.mode)
	}
	ta.pump(t, func() bool { return a.capture.snap.State == capture.StateReady })

	a.Update(key("enter"))
	ta.pump(t, func() bool { return a.capture.snap.State == capture.StatePreviewing })
	if a.capture.snap.Pending == "" {
		t.Fatal("Expected a pending locator in preview")
	}
	if !strings.Contains(a.View(), string(a.capture.snap.Pending)) {
		t.Error("Preview must show the pending locator")
	}

	a.Update(key("a"))
	ta.pump(t, func() bool { return a.mode == "menu" })
	if !strings.Contains(a.message, "Saved") {
		t.Errorf("Expected saved message, got %q", a.message)
	}

	pending, err := ta.catalog.PendingImage()
	if err != nil || pending == nil {
		t.Fatalf("Expected pending image, got %v, %v", pending, err)
	}

	ta.pump(t, func() bool { return len(a.sessions) == 0 })
	if ta.dev.Stops() != 1 {
		t.Errorf("Expected the camera released once, got %d", ta.dev.Stops())
	}
}

func TestBasicScreenHidesAdvancedControls(t *testing.T) {
	ta := newTestApp(t)
	a := ta.app

	ta.open(t, "camera")
	ta.pump(t, func() bool { return a.capture.snap.State == capture.StateReady })

	a.Update(key("l"))
	a.Update(key("enter"))
	ta.pump(t, func() bool { return a.capture.snap.State == capture.StatePreviewing })
	if ta.dev.Options().Flash != "off" {
		t.Errorf("Basic screen must not change flash, got %s", ta.dev.Options().Flash)
	}
	if strings.Contains(a.View(), "Flash") {
		t.Error("Basic screen must not show flash")
	}
}

func TestAdvancedScreenControls(t *testing.T) {
	ta := newTestApp(t)
	a := ta.app

	ta.open(t, "advanced")
	ta.pump(t, func() bool { return a.capture.snap.State == capture.StateReady })

	a.Update(key("l"))
	a.Update(key("+"))
	ta.pump(t, func() bool { return a.capture.snap.Options.Flash == "on" && a.capture.snap.Options.Zoom > 0 })

	a.Update(key("enter"))
	ta.pump(t, func() bool { return a.capture.snap.State == capture.StatePreviewing })
	if ta.dev.Options().Flash != "on" {
		t.Errorf("Expected flash on at capture, got %s", ta.dev.Options().Flash)
	}
	if !strings.Contains(a.View(), "Zoom") {
		t.Error("Advanced screen must show zoom")
	}
}

func TestCapturePermissionDenied(t *testing.T) {
	ta := newTestApp(t, permission.Camera)
	a := ta.app

	ta.open(t, "camera")
	ta.pump(t, func() bool { return a.mode == "menu" })
	if !strings.HasPrefix(a.message, "Error") {
		t.Errorf("Expected an error message, got %q", a.message)
	}
	if pending, _ := ta.catalog.PendingImage(); pending != nil {
		t.Errorf("Denied capture must not produce a pending image, got %+v", pending)
	}
}

func TestVideoNeedsMicrophone(t *testing.T) {
	ta := newTestApp(t, permission.Microphone)
	a := ta.app

	ta.open(t, "video")
	ta.pump(t, func() bool { return a.mode == "menu" })
	if !strings.HasPrefix(a.message, "Error") {
		t.Errorf("Expected an error message, got %q", a.message)
	}
}

func TestEscReleasesCamera(t *testing.T) {
	ta := newTestApp(t)
	a := ta.app

	ta.open(t, "camera")
	ta.pump(t, func() bool { return a.capture.snap.State == capture.StateReady })

	a.Update(key("esc"))
	if a.mode != "menu" {
		t.Fatalf("Expected menu after esc, got %s", a.mode)
	}
	ta.pump(t, func() bool { return len(a.sessions) == 0 })
	if ta.dev.Stops() != 1 {
		t.Errorf("Expected the camera released once, got %d", ta.dev.Stops())
	}
	if pending, _ := ta.catalog.PendingImage(); pending != nil {
		t.Errorf("Esc must not produce a pending image, got %+v", pending)
	}
}

// slowStopDevice takes a while to release, like a camera shutting down.
type slowStopDevice struct {
	*sim.Device
	delay time.Duration
}

func (d *slowStopDevice) Stop() error {
	time.Sleep(d.delay)
	return d.Device.Stop()
}

func TestReopenWaitsForRelease(t *testing.T) {
	ta := newTestApp(t)
	a := ta.app
	a.deps.Device = &slowStopDevice{Device: ta.dev, delay: 100 * time.Millisecond}

	ta.open(t, "qr")
	ta.pump(t, func() bool { return a.scanner.snap.State == scan.StateScanning })
	first := a.activeID

	a.Update(key("esc"))
	ta.open(t, "qr")
	if a.mode != "waiting" {
		t.Fatalf("Expected to wait for the camera, got mode %s", a.mode)
	}
	if !strings.Contains(a.View(), "Releasing the camera") {
		t.Errorf("Expected waiting view:\n%s", a.View())
	}

	ta.pump(t, func() bool {
		return a.mode == "scan" && a.activeID != first && a.scanner.snap.State == scan.StateScanning
	})
	if _, ok := a.sessions[first]; ok {
		t.Fatal("The first session must be finished before the second starts")
	}
	if !ta.dev.Scanning() {
		t.Fatal("The new scanner must own a live decoder")
	}
	if ta.dev.Stops() != 1 {
		t.Errorf("Expected one release so far, got %d", ta.dev.Stops())
	}

	a.scanner.codeBar.SetValue("hello")
	a.Update(key("enter"))
	ta.pump(t, func() bool { return a.scanner.snap.State == scan.StateAwaitingChoice })
	if a.scanner.snap.Payload.Text != "hello" {
		t.Errorf("Unexpected payload %+v", a.scanner.snap.Payload)
	}
}

func TestEscWhileWaitingCancelsReopen(t *testing.T) {
	ta := newTestApp(t)
	a := ta.app
	a.deps.Device = &slowStopDevice{Device: ta.dev, delay: 50 * time.Millisecond}

	ta.open(t, "camera")
	ta.pump(t, func() bool { return a.capture.snap.State == capture.StateReady })
	a.Update(key("esc"))
	ta.open(t, "camera")
	a.Update(key("esc"))

	ta.pump(t, func() bool { return len(a.sessions) == 0 })
	if a.mode != "menu" || a.waiting != nil {
		t.Errorf("Expected menu without a queued screen, got mode %s", a.mode)
	}
}

func TestScanOpenLink(t *testing.T) {
	ta := newTestApp(t)
	a := ta.app

	ta.open(t, "qr")
	if a.mode != "scan" {
		t.Fatalf("Expected scan mode, got %s", a.mode)
	}
	ta.pump(t, func() bool { return a.scanner.snap.State == scan.StateScanning })

	a.scanner.codeBar.SetValue("https://example.com/p/1")
	a.Update(key("enter"))
	ta.pump(t, func() bool { return a.scanner.snap.State == scan.StateAwaitingChoice })

	view := a.View()
	if !strings.Contains(view, "Link detected!") || !strings.Contains(view, "Open link") {
		t.Errorf("Expected link prompt in view:\n%s", view)
	}

	a.Update(key("1"))
	ta.pump(t, func() bool { return a.mode == "menu" })

	ta.mu.Lock()
	defer ta.mu.Unlock()
	if len(ta.opened) != 1 || ta.opened[0] != "https://example.com/p/1" {
		t.Errorf("Unexpected opened links %v", ta.opened)
	}
}

func TestScanBurstLocksOnce(t *testing.T) {
	ta := newTestApp(t)
	a := ta.app

	ta.open(t, "barcode")
	ta.pump(t, func() bool { return a.scanner.snap.State == scan.StateScanning })

	a.scanner.codeBar.SetValue("ean13:1234567890128")
	a.Update(key("enter"))
	ta.pump(t, func() bool { return a.scanner.snap.State == scan.StateAwaitingChoice })

	// The code is still in front of the camera.
	for _, msg := range collect(burst(ta.dev, *a.scanner.last, burstSize)) {
		a.Update(msg)
	}
	if got := a.scanner.debouncer.Dropped(); got != burstSize {
		t.Errorf("Expected %d dropped frames, got %d", burstSize, got)
	}
	if a.scanner.snap.Payload.Text != "1234567890128" {
		t.Errorf("Unexpected payload %+v", a.scanner.snap.Payload)
	}
	if strings.Contains(a.View(), "Open link") {
		t.Error("A product code must not offer to open a link")
	}

	a.Update(key("s"))
	ta.pump(t, func() bool { return a.scanner.snap.State == scan.StateScanning })

	a.Update(key("esc"))
	ta.pump(t, func() bool { return len(a.sessions) == 0 })
	if ta.dev.Scanning() {
		t.Error("Decoder must be released after esc")
	}
}

func TestGalleryPick(t *testing.T) {
	ta := newTestApp(t)
	a := ta.app

	// Empty gallery: the user backs out.
	for _, msg := range collect(ta.open(t, "gallery")) {
		a.Update(msg)
	}
	if a.mode != "menu" || !strings.Contains(a.message, "without a choice") {
		t.Errorf("Expected cancelled pick, got mode %s message %q", a.mode, a.message)
	}

	os.WriteFile(filepath.Join(ta.galleryDir, "shelf.jpg"), []byte("x"), 0o644)
	for _, msg := range collect(ta.open(t, "gallery")) {
		a.Update(msg)
	}
	if !strings.Contains(a.message, "gallery") {
		t.Errorf("Expected pick message, got %q", a.message)
	}
	pending, _ := ta.catalog.PendingImage()
	if pending == nil || !strings.HasSuffix(string(pending.Locator), "shelf.jpg") {
		t.Errorf("Expected gallery image pending, got %+v", pending)
	}
}

func TestRegisterFlow(t *testing.T) {
	ta := newTestApp(t)
	a := ta.app

	for _, msg := range collect(a.open(MenuItem{Builtin: entryRegister})) {
		a.Update(msg)
	}
	if a.mode != "register" {
		t.Fatalf("Expected register mode, got %s", a.mode)
	}

	// No photo yet.
	values := []string{"Soap", "9.99", "ana", "Lavender"}
	for i, v := range values {
		a.register.inputs[i].SetValue(v)
	}
	for _, msg := range collect(a.register.submit()) {
		a.Update(msg)
	}
	if !strings.HasPrefix(a.register.message, "Error") {
		t.Errorf("Expected error without photo, got %q", a.register.message)
	}

	ta.store.SetPendingImage("file:///tmp/a.jpg", "photo")
	for _, msg := range collect(a.register.submit()) {
		a.Update(msg)
	}
	if !strings.HasPrefix(a.register.message, "✓") {
		t.Errorf("Expected success, got %q", a.register.message)
	}
	if a.register.Input().Name != "" {
		t.Error("Form must be cleared after registration")
	}

	a.Update(key("esc"))
	for _, msg := range collect(a.open(MenuItem{Builtin: entryCatalog})) {
		a.Update(msg)
	}
	if len(a.products.products) != 1 {
		t.Fatalf("Expected 1 product in catalog, got %d", len(a.products.products))
	}
	if !strings.Contains(a.View(), "Soap") {
		t.Error("Catalog must list the product")
	}
}
