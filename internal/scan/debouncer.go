package scan

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/fentz26/shelfcam/internal/device"
	"github.com/fentz26/shelfcam/internal/logging"
	"github.com/fentz26/shelfcam/internal/permission"
	"github.com/fentz26/shelfcam/internal/screen"
)

// State is the state of a scan debouncer.
type State string

const (
	StateAwaitingPermission State = "awaiting_permission"
	StateScanning           State = "scanning"
	StateLocked             State = "locked"
	StateAwaitingChoice     State = "awaiting_choice"
	StateClosed             State = "closed"
)

// Config parameterizes a debouncer. The QR-only and multi-symbology
// scanners differ only in their Config.
type Config struct {
	Symbologies []device.Symbology
	Titles      Titles
}

// Deps are the collaborators a debouncer is bound to.
type Deps struct {
	Gate      *permission.Gate
	Device    device.Handle
	Linker    Linker
	Navigator screen.Navigator
	Recorder  screen.Recorder
	Log       logging.Logger
}

// Snapshot is what a scanner screen renders. Prompt is set only while
// awaiting a choice.
type Snapshot struct {
	State   State
	Payload *Payload
	Prompt  *Prompt
}

// Debouncer latches the first raw scan event into a decision prompt and
// drops every event until the user resolves it.
type Debouncer struct {
	id   string
	cfg  Config
	deps Deps
	log  logging.Logger

	events chan event
	done   chan struct{}
	wg     sync.WaitGroup

	// armed is true only while scanning; the first event to flip it wins.
	armed   atomic.Bool
	dropped atomic.Int64

	// Owned by the loop goroutine.
	state   State
	payload *Payload
	prompt  *Prompt
	opening bool

	mu       sync.Mutex
	snap     Snapshot
	onState  []func(Snapshot)
	onPrompt []func(Prompt)
	onNotice []func(screen.Notice)

	releaseOnce sync.Once
	releaseErr  error
}

// New creates a debouncer. Call Run to start it.
func New(cfg Config, deps Deps) *Debouncer {
	log := deps.Log
	if log == nil {
		log = logging.Nop
	}
	d := &Debouncer{
		id:     uuid.New().String(),
		cfg:    cfg,
		deps:   deps,
		log:    log,
		events: make(chan event, 16),
		done:   make(chan struct{}),
		state:  StateAwaitingPermission,
	}
	d.snap = Snapshot{State: d.state}
	return d
}

// ID returns the debouncer's session identifier.
func (d *Debouncer) ID() string { return d.id }

// OnStateChanged registers fn to be called on the loop after every
// transition. fn must not block.
func (d *Debouncer) OnStateChanged(fn func(Snapshot)) {
	d.mu.Lock()
	d.onState = append(d.onState, fn)
	d.mu.Unlock()
}

// OnPrompt registers fn to be called once per lock with the decision
// prompt. fn must not block.
func (d *Debouncer) OnPrompt(fn func(Prompt)) {
	d.mu.Lock()
	d.onPrompt = append(d.onPrompt, fn)
	d.mu.Unlock()
}

// OnNotice registers fn to be called with user-visible failures.
func (d *Debouncer) OnNotice(fn func(screen.Notice)) {
	d.mu.Lock()
	d.onNotice = append(d.onNotice, fn)
	d.mu.Unlock()
}

// Snapshot returns the last published state.
func (d *Debouncer) Snapshot() Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.snap
}

// Dropped returns how many raw events were discarded.
func (d *Debouncer) Dropped() int64 { return d.dropped.Load() }

// Done is closed once Run has returned and the device is released.
func (d *Debouncer) Done() <-chan struct{} { return d.done }

// ResolveChoice answers the open prompt. Choices the prompt does not offer
// are ignored.
func (d *Debouncer) ResolveChoice(c Choice) { d.send(choiceMade{choice: c}) }

// Exit closes the debouncer without any further action.
func (d *Debouncer) Exit() { d.send(exitRequested{}) }

// Release stops the decoder. Only the first call reaches the device.
func (d *Debouncer) Release() error {
	d.releaseOnce.Do(func() {
		if d.deps.Device == nil {
			return
		}
		d.releaseErr = d.deps.Device.Stop()
		if d.releaseErr != nil {
			d.log.Warnf("Releasing decoder: %v", d.releaseErr)
		}
	})
	return d.releaseErr
}

// HandleEvent is the decoder callback. It may be called from any goroutine
// at any rate; only the first event after arming is kept. An empty payload
// is a read like any other and locks as a generic code.
func (d *Debouncer) HandleEvent(ev device.ScanEvent) {
	if !d.wants(ev.Symbology) {
		d.dropped.Add(1)
		return
	}
	if !d.armed.CompareAndSwap(true, false) {
		d.dropped.Add(1)
		return
	}
	d.send(locked{event: ev})
}

func (d *Debouncer) wants(s device.Symbology) bool {
	if len(d.cfg.Symbologies) == 0 {
		return true
	}
	for _, want := range d.cfg.Symbologies {
		if want == s {
			return true
		}
	}
	return false
}

func (d *Debouncer) send(ev event) {
	select {
	case d.events <- ev:
	case <-d.done:
	}
}

func (d *Debouncer) spawn(ctx context.Context, op func(ctx context.Context) event) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ev := op(ctx)
		select {
		case d.events <- ev:
		case <-ctx.Done():
		}
	}()
}

// Run requests the camera, starts the decoder and handles events until the
// screen closes or ctx ends. The decoder is released on every return path.
func (d *Debouncer) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		d.armed.Store(false)
		cancel()
		d.Release()
		d.wg.Wait()
		close(d.done)
	}()

	d.log.Infof("Scanner started (%v)", d.cfg.Symbologies)
	d.publish()
	d.spawn(ctx, func(ctx context.Context) event {
		st, err := d.deps.Gate.Request(ctx, permission.Camera)
		return permissionResult{state: st, err: err}
	})

	for {
		select {
		case <-ctx.Done():
			d.close("context done")
			return nil
		case ev := <-d.events:
			if done, err := d.handle(ctx, ev); done {
				return err
			}
		}
	}
}

func (d *Debouncer) handle(ctx context.Context, ev event) (bool, error) {
	switch ev := ev.(type) {
	case permissionResult:
		return d.onPermission(ctx, ev)

	case locked:
		d.onLocked(ev.event)

	case choiceMade:
		return d.onChoice(ctx, ev.choice)

	case linkOpened:
		return d.onLinkOpened(ev.err)

	case exitRequested:
		d.close("screen exit")
		return true, nil
	}
	return false, nil
}

func (d *Debouncer) onPermission(ctx context.Context, ev permissionResult) (bool, error) {
	if d.state != StateAwaitingPermission {
		return false, nil
	}
	if ev.state != permission.Granted {
		err := ev.err
		if err == nil || !errors.Is(err, screen.ErrPermissionDenied) {
			err = screen.Wrap(screen.ErrPermissionDenied, "scan", err)
		}
		d.record("permission.request", permission.Camera, "denied", err.Error())
		d.notify(screen.Notice{
			Title:   "Permission required",
			Message: "We need permission to use your camera.",
			Err:     err,
		})
		d.leave("permission denied")
		return true, err
	}

	// The decoder stays on until Release; the latch decides what is kept.
	if err := d.deps.Device.StartScanning(ctx, d.cfg.Symbologies, d.HandleEvent); err != nil {
		err = screen.Wrap(screen.ErrCaptureFailed, "start scanner", err)
		d.notify(screen.Notice{
			Title:   "Scanner unavailable",
			Message: "The camera could not be started.",
			Err:     err,
		})
		d.leave("scanner failed")
		return true, err
	}
	d.record("permission.request", permission.Camera, "granted", "")
	d.arm()
	return false, nil
}

func (d *Debouncer) onLocked(ev device.ScanEvent) {
	if d.state != StateScanning {
		d.dropped.Add(1)
		return
	}
	p := Payload{Text: ev.Data, Kind: Classify(ev.Data), Symbology: ev.Symbology}
	d.log.Infof("Scanned %s: %s", ev.Symbology, ev.Data)
	d.payload = &p
	d.setState(StateLocked)

	prompt := BuildPrompt(p, d.cfg.Titles)
	d.prompt = &prompt
	d.record("scan.lock", p, string(p.Kind), p.Text)
	d.setState(StateAwaitingChoice)

	d.mu.Lock()
	listeners := append([]func(Prompt){}, d.onPrompt...)
	d.mu.Unlock()
	for _, fn := range listeners {
		fn(prompt)
	}
}

func (d *Debouncer) onChoice(ctx context.Context, c Choice) (bool, error) {
	if d.state != StateAwaitingChoice || d.opening {
		d.log.Debugf("Choice %s ignored in %s", c, d.state)
		return false, nil
	}
	if !d.prompt.Offers(c) {
		d.log.Debugf("Choice %s not offered", c)
		return false, nil
	}
	d.record("scan.choice", c, string(c), d.payload.Text)

	switch c {
	case ChoiceOpen:
		d.opening = true
		uri := d.payload.Text
		d.spawn(ctx, func(ctx context.Context) event {
			return linkOpened{err: d.deps.Linker.OpenLink(ctx, uri)}
		})
	case ChoiceScanAgain:
		d.arm()
	case ChoiceBack:
		d.leave("back")
		return true, nil
	}
	return false, nil
}

func (d *Debouncer) onLinkOpened(err error) (bool, error) {
	d.opening = false
	if d.state != StateAwaitingChoice {
		return false, nil
	}
	if err != nil {
		err = screen.Wrap(screen.ErrExternalActionFailed, "open link", err)
		d.record("scan.open", d.payload.Text, "failed", err.Error())
		d.arm()
		d.notify(screen.Notice{
			Title:   "Error",
			Message: "This link could not be opened.",
			Err:     err,
		})
		return false, nil
	}
	d.record("scan.open", d.payload.Text, "opened", "")
	d.leave("link opened")
	return true, nil
}

// arm discards the locked payload and accepts events again.
func (d *Debouncer) arm() {
	d.payload = nil
	d.prompt = nil
	// Armed before publishing, so whoever observes Scanning can scan.
	d.armed.Store(true)
	d.setState(StateScanning)
}

// leave closes the debouncer and exits the screen.
func (d *Debouncer) leave(reason string) {
	d.close(reason)
	d.deps.Navigator.ExitScreen()
}

func (d *Debouncer) close(reason string) {
	if d.state == StateClosed {
		return
	}
	d.armed.Store(false)
	d.log.Infof("Scanner closed: %s (%d events dropped)", reason, d.dropped.Load())
	d.payload = nil
	d.prompt = nil
	d.setState(StateClosed)
}

func (d *Debouncer) setState(st State) {
	if st != d.state {
		d.log.Debugf("%s -> %s", d.state, st)
	}
	d.state = st
	d.publish()
}

func (d *Debouncer) publish() {
	snap := Snapshot{State: d.state, Payload: d.payload, Prompt: d.prompt}
	d.mu.Lock()
	d.snap = snap
	listeners := append([]func(Snapshot){}, d.onState...)
	d.mu.Unlock()
	for _, fn := range listeners {
		fn(snap)
	}
}

func (d *Debouncer) notify(n screen.Notice) {
	d.log.Warnf("%s: %v", n.Title, n.Err)
	d.mu.Lock()
	listeners := append([]func(screen.Notice){}, d.onNotice...)
	d.mu.Unlock()
	for _, fn := range listeners {
		fn(n)
	}
}

func (d *Debouncer) record(action string, inputs interface{}, outcome, details string) {
	if d.deps.Recorder == nil {
		return
	}
	if _, err := d.deps.Recorder.Record(action, inputs, outcome, d.id, details); err != nil {
		d.log.Warnf("Recording %s: %v", action, err)
	}
}
