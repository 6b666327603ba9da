package capture

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fentz26/shelfcam/internal/device"
	"github.com/fentz26/shelfcam/internal/models"
	"github.com/fentz26/shelfcam/internal/permission"
	"github.com/fentz26/shelfcam/internal/screen"
)

type photoResult struct {
	loc models.Locator
	err error
}

// fakeDevice is a scripted device handle.
type fakeDevice struct {
	mu           sync.Mutex
	photos       []photoResult
	photoGate    chan struct{}
	stopped      chan struct{} // when set, AcquirePhoto ignores ctx and returns only after Stop
	photoCalls   int
	videoCalls   int
	videoResult  models.Locator
	videoCause   error
	configured   []device.Options
	configureErr error
	stops        int
}

func (d *fakeDevice) Configure(opts device.Options) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.configured = append(d.configured, opts)
	return d.configureErr
}

func (d *fakeDevice) AcquirePhoto(ctx context.Context) (models.Locator, error) {
	d.mu.Lock()
	d.photoCalls++
	var res photoResult
	if len(d.photos) > 0 {
		res = d.photos[0]
		d.photos = d.photos[1:]
	}
	gate := d.photoGate
	stopped := d.stopped
	d.mu.Unlock()

	if stopped != nil {
		<-stopped
		return "", errors.New("acquisition aborted")
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return res.loc, res.err
}

func (d *fakeDevice) AcquireVideo(ctx context.Context, maxDuration time.Duration) (models.Locator, error) {
	d.mu.Lock()
	d.videoCalls++
	loc := d.videoResult
	d.mu.Unlock()

	select {
	case <-ctx.Done():
		d.mu.Lock()
		d.videoCause = context.Cause(ctx)
		d.mu.Unlock()
	case <-time.After(maxDuration):
	}
	return loc, nil
}

func (d *fakeDevice) StartScanning(ctx context.Context, symbologies []device.Symbology, onEvent func(device.ScanEvent)) error {
	return errors.New("not a scanner")
}

func (d *fakeDevice) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stops == 0 && d.stopped != nil {
		close(d.stopped)
	}
	d.stops++
	return nil
}

func (d *fakeDevice) recordingCause() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.videoCause
}

func (d *fakeDevice) counts() (photos, videos, stops int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.photoCalls, d.videoCalls, d.stops
}

type fakeSink struct {
	mu        sync.Mutex
	accepted  []models.Artifact
	abandons  int
	cleared   int
	acceptErr error
}

func (s *fakeSink) AcceptArtifact(ctx context.Context, a models.Artifact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.acceptErr != nil {
		return s.acceptErr
	}
	s.accepted = append(s.accepted, a)
	return nil
}

func (s *fakeSink) Abandon(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.abandons++
}

func (s *fakeSink) snapshot() ([]models.Artifact, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Artifact{}, s.accepted...), s.abandons
}

// clearingSink also implements screen.PendingClearer.
type clearingSink struct {
	fakeSink
}

func (s *clearingSink) ClearPending(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleared++
	return nil
}

type fakeNav struct {
	mu    sync.Mutex
	exits int
}

func (n *fakeNav) ExitScreen() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.exits++
}

func (n *fakeNav) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.exits
}

type fakeRecorder struct {
	mu      sync.Mutex
	actions []string
}

func (r *fakeRecorder) Record(action string, inputs interface{}, outcome, sessionID, details string) (*models.DecisionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions = append(r.actions, action+":"+outcome)
	return &models.DecisionRecord{Action: action, Outcome: outcome, SessionID: sessionID}, nil
}

func grantAll() permission.Requester {
	return permission.RequesterFunc(func(ctx context.Context, c permission.Capability) (permission.State, error) {
		return permission.Granted, nil
	})
}

func denyAll() permission.Requester {
	return permission.RequesterFunc(func(ctx context.Context, c permission.Capability) (permission.State, error) {
		return permission.Denied, nil
	})
}

type harness struct {
	s       *Session
	dev     *fakeDevice
	sink    *fakeSink
	nav     *fakeNav
	rec     *fakeRecorder
	states  chan Snapshot
	notices chan screen.Notice
	runErr  chan error
	cancel  context.CancelFunc
}

func startSession(t *testing.T, cfg Config, req permission.Requester, dev *fakeDevice) *harness {
	t.Helper()
	h := &harness{
		dev:     dev,
		sink:    &fakeSink{},
		nav:     &fakeNav{},
		rec:     &fakeRecorder{},
		states:  make(chan Snapshot, 256),
		notices: make(chan screen.Notice, 16),
		runErr:  make(chan error, 1),
	}
	if cfg.Capabilities == (device.Capabilities{}) {
		cfg.Capabilities = device.Capabilities{MinZoom: 0, MaxZoom: 1}
	}
	h.s = New(cfg, Deps{
		Gate:      permission.NewGate(req, nil),
		Device:    dev,
		Sink:      h.sink,
		Navigator: h.nav,
		Recorder:  h.rec,
	})
	h.s.OnStateChanged(func(snap Snapshot) { h.states <- snap })
	h.s.OnNotice(func(n screen.Notice) { h.notices <- n })

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() { h.runErr <- h.s.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-h.s.Done()
	})
	return h
}

// waitState consumes snapshots until one with state st arrives.
func (h *harness) waitState(t *testing.T, st State) Snapshot {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case snap := <-h.states:
			if snap.State == st {
				return snap
			}
		case <-timeout:
			t.Fatalf("Timeout waiting for state %s (last published %s)", st, h.s.Snapshot().State)
		}
	}
}

// next returns the very next snapshot.
func (h *harness) next(t *testing.T) Snapshot {
	t.Helper()
	select {
	case snap := <-h.states:
		return snap
	case <-time.After(2 * time.Second):
		t.Fatal("Timeout waiting for a snapshot")
	}
	return Snapshot{}
}

func (h *harness) waitNotice(t *testing.T) screen.Notice {
	t.Helper()
	select {
	case n := <-h.notices:
		return n
	case <-time.After(2 * time.Second):
		t.Fatal("Timeout waiting for a notice")
	}
	return screen.Notice{}
}

func (h *harness) waitRun(t *testing.T) error {
	t.Helper()
	select {
	case err := <-h.runErr:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("Timeout waiting for Run to return")
	}
	return nil
}
