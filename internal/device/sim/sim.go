// Package sim provides a file-backed simulated camera, scanner, gallery and
// permission prompt for running the screens on a desktop.
package sim

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/juju/clock"

	"github.com/fentz26/shelfcam/internal/device"
	"github.com/fentz26/shelfcam/internal/logging"
	"github.com/fentz26/shelfcam/internal/models"
	"github.com/fentz26/shelfcam/internal/permission"
)

// MinClip is the shortest recording that produces a file.
const MinClip = 200 * time.Millisecond

// ErrNotScanning is returned by Feed when no decoder is running.
var ErrNotScanning = errors.New("scanner not running")

// Device is a simulated capture device. Captures are JSON sidecar files
// describing the options they were taken with.
type Device struct {
	dir   string
	log   logging.Logger
	clock clock.Clock

	mu       sync.Mutex
	opts     device.Options
	failNext error
	onEvent  func(device.ScanEvent)
	symbols  []device.Symbology
	stops    int
}

var _ device.Handle = (*Device)(nil)

// New creates a device that writes captures into dir.
func New(dir string, log logging.Logger) *Device {
	return &Device{dir: dir, log: logging.OrNop(log), clock: clock.WallClock}
}

// SetClock replaces the clock that times recordings.
func (d *Device) SetClock(c clock.Clock) {
	d.clock = c
}

// FailNext makes the next acquisition or scanner start fail with err.
func (d *Device) FailNext(err error) {
	d.mu.Lock()
	d.failNext = err
	d.mu.Unlock()
}

func (d *Device) takeFailure() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	err := d.failNext
	d.failNext = nil
	return err
}

// Configure applies opts to the next acquisition.
func (d *Device) Configure(opts device.Options) error {
	d.mu.Lock()
	d.opts = opts
	d.mu.Unlock()
	return nil
}

// Options returns the last applied configuration.
func (d *Device) Options() device.Options {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.opts
}

// AcquirePhoto writes a photo file and returns its locator.
func (d *Device) AcquirePhoto(ctx context.Context) (models.Locator, error) {
	if err := d.takeFailure(); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return d.write("jpg", 0)
}

// AcquireVideo records until ctx ends or maxDuration elapses. A recording
// stopped before MinClip yields no locator.
func (d *Device) AcquireVideo(ctx context.Context, maxDuration time.Duration) (models.Locator, error) {
	if err := d.takeFailure(); err != nil {
		return "", err
	}
	start := d.clock.Now()
	timer := d.clock.NewTimer(maxDuration)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		if cause := context.Cause(ctx); !errors.Is(cause, device.ErrRecordingStopped) {
			d.log.Debugf("Recording discarded: %v", cause)
			return "", ctx.Err()
		}
	case <-timer.Chan():
	}
	elapsed := d.clock.Now().Sub(start)
	if elapsed < MinClip {
		d.log.Debugf("Recording stopped after %v, no clip", elapsed)
		return "", nil
	}
	return d.write("mp4", elapsed)
}

type captureMeta struct {
	Kind     device.CaptureKind `json:"kind"`
	Options  device.Options     `json:"options"`
	Duration string             `json:"duration,omitempty"`
	TakenAt  time.Time          `json:"taken_at"`
}

func (d *Device) write(ext string, duration time.Duration) (models.Locator, error) {
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return "", fmt.Errorf("create media dir: %w", err)
	}
	opts := d.Options()
	meta := captureMeta{Kind: opts.Kind, Options: opts, TakenAt: d.clock.Now().UTC()}
	if duration > 0 {
		meta.Duration = duration.Round(time.Millisecond).String()
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return "", err
	}

	path := filepath.Join(d.dir, uuid.New().String()+"."+ext)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write capture: %w", err)
	}
	d.log.Infof("Captured %s", path)
	return FileLocator(path), nil
}

// StartScanning installs onEvent as the decoder callback. Events arrive
// through Feed.
func (d *Device) StartScanning(ctx context.Context, symbologies []device.Symbology, onEvent func(device.ScanEvent)) error {
	if err := d.takeFailure(); err != nil {
		return err
	}
	d.mu.Lock()
	d.onEvent = onEvent
	d.symbols = symbologies
	d.mu.Unlock()
	return nil
}

// Feed delivers a decoded code to the running scanner.
func (d *Device) Feed(ev device.ScanEvent) error {
	d.mu.Lock()
	fn := d.onEvent
	d.mu.Unlock()
	if fn == nil {
		return ErrNotScanning
	}
	fn(ev)
	return nil
}

// Scanning reports whether a decoder is installed.
func (d *Device) Scanning() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.onEvent != nil
}

// Stop releases the camera and any decoder.
func (d *Device) Stop() error {
	d.mu.Lock()
	d.onEvent = nil
	d.symbols = nil
	d.stops++
	d.mu.Unlock()
	return nil
}

// Stops returns how many times the device was released.
func (d *Device) Stops() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stops
}

// FileLocator returns the file:// URI of path.
func FileLocator(path string) models.Locator {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}
	return models.Locator(u.String())
}

// Permissions answers capability requests from a fixed deny list.
type Permissions struct {
	Deny []permission.Capability
	// Delay simulates the time the user takes to answer.
	Delay time.Duration
	// Clock times Delay; nil means the wall clock.
	Clock clock.Clock
}

var _ permission.Requester = Permissions{}

// RequestCapability grants c unless it is denied.
func (p Permissions) RequestCapability(ctx context.Context, c permission.Capability) (permission.State, error) {
	if p.Delay > 0 {
		clk := p.Clock
		if clk == nil {
			clk = clock.WallClock
		}
		select {
		case <-clk.After(p.Delay):
		case <-ctx.Done():
			return permission.Unknown, ctx.Err()
		}
	}
	for _, d := range p.Deny {
		if d == c {
			return permission.Denied, nil
		}
	}
	return permission.Granted, nil
}

// Gallery picks the most recent image in a directory.
type Gallery struct {
	Dir string
}

var imageExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".heic": true}

// Images lists the gallery's images, newest first.
func (g Gallery) Images() ([]string, error) {
	entries, err := os.ReadDir(g.Dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read gallery: %w", err)
	}

	type image struct {
		path string
		mod  time.Time
	}
	var images []image
	for _, e := range entries {
		if e.IsDir() || !imageExts[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		images = append(images, image{filepath.Join(g.Dir, e.Name()), info.ModTime()})
	}
	sort.SliceStable(images, func(i, j int) bool { return images[i].mod.After(images[j].mod) })

	paths := make([]string, len(images))
	for i, img := range images {
		paths[i] = img.path
	}
	return paths, nil
}

// PickImage returns the newest image. An empty gallery counts as the user
// backing out.
func (g Gallery) PickImage(ctx context.Context) (models.Locator, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	images, err := g.Images()
	if err != nil {
		return "", false, err
	}
	if len(images) == 0 {
		return "", true, nil
	}
	return FileLocator(images[0]), false, nil
}
