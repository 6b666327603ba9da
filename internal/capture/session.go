// Package capture drives a photo or video device through the
// permission → acquire → preview → accept-or-retry cycle.
package capture

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fentz26/shelfcam/internal/device"
	"github.com/fentz26/shelfcam/internal/logging"
	"github.com/fentz26/shelfcam/internal/models"
	"github.com/fentz26/shelfcam/internal/permission"
	"github.com/fentz26/shelfcam/internal/screen"
)

// State is the state of a capture session.
type State string

const (
	StateAwaitingPermission State = "awaiting_permission"
	StateReady              State = "ready"
	StateCapturing          State = "capturing"
	StatePreviewing         State = "previewing"
	StateClosed             State = "closed"
)

// Config parameterizes a session. One Session type serves the photo,
// advanced photo and video screens.
type Config struct {
	Kind         device.CaptureKind
	MaxDuration  time.Duration
	Capabilities device.Capabilities
	// Options is the initial device configuration. A zero value means
	// device.DefaultOptions(Kind).
	Options device.Options
}

// Deps are the collaborators a session is bound to.
type Deps struct {
	Gate      *permission.Gate
	Device    device.Handle
	Sink      screen.ResultSink
	Navigator screen.Navigator
	Recorder  screen.Recorder
	Log       logging.Logger
}

// Snapshot is what a screen renders.
type Snapshot struct {
	State   State
	Options device.Options
	Pending models.Locator
}

// Session is a single capture session. Commands may be called from any
// goroutine; they are handled in order on the session's own loop.
type Session struct {
	id   string
	cfg  Config
	deps Deps
	log  logging.Logger

	events chan event
	done   chan struct{}
	wg     sync.WaitGroup

	// Owned by the loop goroutine.
	state   State
	opts    device.Options
	pending models.Locator
	stopRec context.CancelCauseFunc
	stopped bool

	mu       sync.Mutex
	snap     Snapshot
	onState  []func(Snapshot)
	onNotice []func(screen.Notice)

	releaseOnce sync.Once
	releaseErr  error
}

// New creates a session. Call Run to start it.
func New(cfg Config, deps Deps) *Session {
	if cfg.Kind == "" {
		cfg.Kind = device.KindPhoto
	}
	opts := cfg.Options
	if opts == (device.Options{}) {
		opts = device.DefaultOptions(cfg.Kind)
	}
	opts.Kind = cfg.Kind
	opts.Zoom = cfg.Capabilities.ClampZoom(opts.Zoom)

	id := uuid.New().String()
	log := deps.Log
	if log == nil {
		log = logging.Nop
	}
	s := &Session{
		id:     id,
		cfg:    cfg,
		deps:   deps,
		log:    log,
		events: make(chan event, 16),
		done:   make(chan struct{}),
		state:  StateAwaitingPermission,
		opts:   opts,
	}
	s.snap = Snapshot{State: s.state, Options: s.opts}
	return s
}

// ID returns the session identifier used in logs and decision records.
func (s *Session) ID() string { return s.id }

// OnStateChanged registers fn to be called on the session loop after every
// state or option change. fn must not block.
func (s *Session) OnStateChanged(fn func(Snapshot)) {
	s.mu.Lock()
	s.onState = append(s.onState, fn)
	s.mu.Unlock()
}

// OnNotice registers fn to be called with user-visible failures.
func (s *Session) OnNotice(fn func(screen.Notice)) {
	s.mu.Lock()
	s.onNotice = append(s.onNotice, fn)
	s.mu.Unlock()
}

// Snapshot returns the last published state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

// Done is closed once Run has returned and the device is released.
func (s *Session) Done() <-chan struct{} { return s.done }

// RequestCapture starts an acquisition. Ignored unless Ready.
func (s *Session) RequestCapture() { s.send(captureRequested{}) }

// StopRecording ends a video recording early. The recording is handled like
// one that reached its maximum duration.
func (s *Session) StopRecording() { s.send(stopRequested{}) }

// Retry discards the pending artifact. Ignored unless Previewing.
func (s *Session) Retry() { s.send(retryRequested{}) }

// Accept forwards the pending artifact to the sink and closes the session.
// Ignored unless Previewing.
func (s *Session) Accept() { s.send(acceptRequested{}) }

// Exit closes the session without forwarding anything.
func (s *Session) Exit() { s.send(exitRequested{}) }

// Configure changes device options for the next acquisition. Ignored unless
// Ready or Capturing.
func (s *Session) Configure(p device.Partial) {
	s.send(configureRequested{change: func(device.Options) device.Partial { return p }})
}

// CycleFlash moves flash to the next mode.
func (s *Session) CycleFlash() {
	s.send(configureRequested{change: func(o device.Options) device.Partial {
		f := o.Flash.Next()
		return device.Partial{Flash: &f}
	}})
}

// ToggleFocus switches autofocus.
func (s *Session) ToggleFocus() {
	s.send(configureRequested{change: func(o device.Options) device.Partial {
		f := o.Focus.Toggle()
		return device.Partial{Focus: &f}
	}})
}

// FlipFacing switches between the front and back camera.
func (s *Session) FlipFacing() {
	s.send(configureRequested{change: func(o device.Options) device.Partial {
		f := o.Facing.Flip()
		return device.Partial{Facing: &f}
	}})
}

// SetZoom sets the zoom level, clamped to the device range.
func (s *Session) SetZoom(z float64) {
	s.Configure(device.Partial{Zoom: &z})
}

// Release stops the device handle. It is safe to call more than once; only
// the first call reaches the device.
func (s *Session) Release() error {
	s.releaseOnce.Do(func() {
		if s.deps.Device == nil {
			return
		}
		s.releaseErr = s.deps.Device.Stop()
		if s.releaseErr != nil {
			s.log.Warnf("Releasing device: %v", s.releaseErr)
		} else {
			s.log.Debugf("Device released")
		}
	})
	return s.releaseErr
}

func (s *Session) send(ev event) {
	select {
	case s.events <- ev:
	case <-s.done:
	}
}

// spawn runs a suspending operation off the loop and posts its completion
// back as an event.
func (s *Session) spawn(ctx context.Context, op func(ctx context.Context) event) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ev := op(ctx)
		select {
		case s.events <- ev:
		case <-ctx.Done():
		}
	}()
}

// Run requests permission, binds the device and handles commands until the
// session closes or ctx ends. The device is released on every return path.
// A permission denial is returned as an error wrapping
// screen.ErrPermissionDenied.
func (s *Session) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		s.Release()
		s.wg.Wait()
		close(s.done)
	}()

	s.log.Infof("Capture session started (%s)", s.cfg.Kind)
	s.publish()

	caps := []permission.Capability{permission.Camera}
	if s.cfg.Kind == device.KindVideo {
		caps = append(caps, permission.Microphone)
	}
	s.spawn(ctx, func(ctx context.Context) event {
		st, err := s.deps.Gate.RequestAll(ctx, caps...)
		return permissionResult{state: st, err: err}
	})

	for {
		select {
		case <-ctx.Done():
			s.close("context done")
			return nil
		case ev := <-s.events:
			if done, err := s.handle(ctx, ev); done {
				return err
			}
		}
	}
}

func (s *Session) handle(ctx context.Context, ev event) (bool, error) {
	switch ev := ev.(type) {
	case permissionResult:
		return s.onPermission(ctx, ev)

	case captureRequested:
		s.onCaptureRequested(ctx)

	case acquired:
		s.onAcquired(ev)

	case stopRequested:
		if s.state == StateCapturing && s.stopRec != nil {
			s.log.Debugf("Stopping recording")
			s.stopped = true
			s.stopRec(device.ErrRecordingStopped)
		}

	case retryRequested:
		if s.state != StatePreviewing {
			s.log.Debugf("Retry ignored in %s", s.state)
			return false, nil
		}
		s.record("capture.retry", s.pending, "discarded", "")
		s.pending = ""
		s.setState(StateReady)

	case acceptRequested:
		return s.onAccept(ctx)

	case configureRequested:
		if s.state != StateReady && s.state != StateCapturing {
			s.log.Debugf("Configure ignored in %s", s.state)
			return false, nil
		}
		s.opts = s.opts.Apply(ev.change(s.opts), s.cfg.Capabilities)
		s.publish()

	case exitRequested:
		s.close("screen exit")
		return true, nil
	}
	return false, nil
}

func (s *Session) onPermission(ctx context.Context, ev permissionResult) (bool, error) {
	if s.state != StateAwaitingPermission {
		return false, nil
	}
	if ev.state != permission.Granted {
		err := ev.err
		if err == nil || !errors.Is(err, screen.ErrPermissionDenied) {
			err = screen.Wrap(screen.ErrPermissionDenied, "capture", err)
		}
		s.record("permission.request", s.cfg.Kind, "denied", err.Error())
		s.notify(screen.Notice{
			Title:   "Permission required",
			Message: "We need permission to use your camera.",
			Err:     err,
		})
		s.abandon(ctx, "permission denied")
		return true, err
	}

	// Attach the device.
	if err := s.deps.Device.Configure(s.opts); err != nil {
		err = screen.Wrap(screen.ErrCaptureFailed, "attach device", err)
		s.record("device.attach", s.opts, "failed", err.Error())
		s.notify(screen.Notice{
			Title:   "Camera unavailable",
			Message: "The camera could not be started.",
			Err:     err,
		})
		s.abandon(ctx, "device attach failed")
		return true, err
	}
	s.record("permission.request", s.cfg.Kind, "granted", "")
	s.setState(StateReady)
	return false, nil
}

func (s *Session) onCaptureRequested(ctx context.Context) {
	if s.state != StateReady {
		// Re-entrant requests while capturing are dropped, not queued.
		s.log.Debugf("Capture request ignored in %s", s.state)
		return
	}
	if err := s.deps.Device.Configure(s.opts); err != nil {
		s.captureFailed(screen.Wrap(screen.ErrCaptureFailed, "configure device", err))
		return
	}

	s.setState(StateCapturing)
	s.stopped = false
	if s.cfg.Kind == device.KindVideo {
		recCtx, stop := context.WithCancelCause(ctx)
		s.stopRec = stop
		maxDuration := s.cfg.MaxDuration
		s.spawn(ctx, func(context.Context) event {
			loc, err := s.deps.Device.AcquireVideo(recCtx, maxDuration)
			return acquired{locator: loc, err: err}
		})
		return
	}
	s.spawn(ctx, func(ctx context.Context) event {
		loc, err := s.deps.Device.AcquirePhoto(ctx)
		return acquired{locator: loc, err: err}
	})
}

func (s *Session) onAcquired(ev acquired) {
	if s.state != StateCapturing {
		return
	}
	if s.stopRec != nil {
		s.stopRec(nil)
		s.stopRec = nil
	}

	err := ev.err
	if err != nil && s.stopped && errors.Is(err, context.Canceled) {
		// A recording stopped by the user is a normal completion.
		err = nil
	}
	if err != nil {
		s.captureFailed(screen.Wrap(screen.ErrCaptureFailed, "acquire "+string(s.cfg.Kind), err))
		return
	}
	if ev.locator == "" {
		s.log.Infof("Acquisition produced no data")
		s.setState(StateReady)
		return
	}
	s.pending = ev.locator
	s.setState(StatePreviewing)
}

func (s *Session) onAccept(ctx context.Context) (bool, error) {
	if s.state != StatePreviewing {
		s.log.Debugf("Accept ignored in %s", s.state)
		return false, nil
	}
	artifact := models.Artifact{
		Locator:   s.pending,
		Kind:      artifactKind(s.cfg.Kind),
		SessionID: s.id,
	}
	if err := s.deps.Sink.AcceptArtifact(ctx, artifact); err != nil {
		// The preview stays up so the user can try again.
		s.notify(screen.Notice{
			Title:   "Not saved",
			Message: "The capture could not be saved. Try again.",
			Err:     screen.Wrap(screen.ErrCaptureFailed, "accept artifact", err),
		})
		return false, nil
	}
	s.record("capture.accept", artifact, "accepted", string(artifact.Locator))
	s.pending = ""
	s.setState(StateClosed)
	s.deps.Navigator.ExitScreen()
	return true, nil
}

func (s *Session) captureFailed(err error) {
	s.record("capture.acquire", s.opts, "failed", err.Error())
	s.setState(StateReady)
	s.notify(screen.Notice{
		Title:   "Capture failed",
		Message: "Something went wrong. Try again.",
		Err:     err,
	})
}

// abandon closes the session and leaves the screen without a result.
func (s *Session) abandon(ctx context.Context, reason string) {
	s.deps.Sink.Abandon(ctx)
	s.close(reason)
	s.deps.Navigator.ExitScreen()
}

// close discards any pending artifact and moves to Closed. Releasing the
// device is left to Run.
func (s *Session) close(reason string) {
	if s.state == StateClosed {
		return
	}
	if s.stopRec != nil {
		s.stopRec(nil)
		s.stopRec = nil
	}
	s.log.Infof("Capture session closed: %s", reason)
	s.pending = ""
	s.setState(StateClosed)
}

func (s *Session) setState(st State) {
	if st != s.state {
		s.log.Debugf("%s -> %s", s.state, st)
	}
	s.state = st
	s.publish()
}

func (s *Session) publish() {
	snap := Snapshot{State: s.state, Options: s.opts, Pending: s.pending}
	s.mu.Lock()
	s.snap = snap
	listeners := append([]func(Snapshot){}, s.onState...)
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(snap)
	}
}

func (s *Session) notify(n screen.Notice) {
	s.log.Warnf("%s: %v", n.Title, n.Err)
	s.mu.Lock()
	listeners := append([]func(screen.Notice){}, s.onNotice...)
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(n)
	}
}

func (s *Session) record(action string, inputs interface{}, outcome, details string) {
	if s.deps.Recorder == nil {
		return
	}
	if _, err := s.deps.Recorder.Record(action, inputs, outcome, s.id, details); err != nil {
		s.log.Warnf("Recording %s: %v", action, err)
	}
}

func artifactKind(k device.CaptureKind) models.ArtifactKind {
	if k == device.KindVideo {
		return models.ArtifactVideo
	}
	return models.ArtifactPhoto
}
