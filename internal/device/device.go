// Package device defines the capture device handle the sessions drive, and
// the options it is configured with.
package device

import (
	"context"
	"errors"
	"time"

	"github.com/fentz26/shelfcam/internal/models"
)

// ErrRecordingStopped is the cancel cause that ends a recording normally.
var ErrRecordingStopped = errors.New("recording stopped")

// Facing selects the front or back camera.
type Facing string

const (
	FacingBack  Facing = "back"
	FacingFront Facing = "front"
)

// Flip returns the other camera.
func (f Facing) Flip() Facing {
	if f == FacingBack {
		return FacingFront
	}
	return FacingBack
}

// FlashMode is the flash setting of the camera.
type FlashMode string

const (
	FlashOff  FlashMode = "off"
	FlashOn   FlashMode = "on"
	FlashAuto FlashMode = "auto"
)

// Next cycles off → on → auto → off.
func (f FlashMode) Next() FlashMode {
	switch f {
	case FlashOff:
		return FlashOn
	case FlashOn:
		return FlashAuto
	default:
		return FlashOff
	}
}

// FocusMode is the autofocus setting of the camera.
type FocusMode string

const (
	FocusOn  FocusMode = "on"
	FocusOff FocusMode = "off"
)

// Toggle switches on ⇄ off.
func (f FocusMode) Toggle() FocusMode {
	if f == FocusOn {
		return FocusOff
	}
	return FocusOn
}

// CaptureKind is what an acquisition produces.
type CaptureKind string

const (
	KindPhoto CaptureKind = "photo"
	KindVideo CaptureKind = "video"
)

// Capabilities describes what the bound device supports. Zoom scale factors
// differ per device and platform.
type Capabilities struct {
	MinZoom float64
	MaxZoom float64
}

// ClampZoom limits z to the supported range.
func (c Capabilities) ClampZoom(z float64) float64 {
	if z < c.MinZoom {
		return c.MinZoom
	}
	if z > c.MaxZoom {
		return c.MaxZoom
	}
	return z
}

// Options is the full device configuration applied before an acquisition.
type Options struct {
	Facing  Facing
	Flash   FlashMode
	Focus   FocusMode
	Zoom    float64
	Kind    CaptureKind
	Quality float64
}

// DefaultOptions returns the configuration a camera screen opens with.
func DefaultOptions(kind CaptureKind) Options {
	return Options{
		Facing:  FacingBack,
		Flash:   FlashOff,
		Focus:   FocusOn,
		Kind:    kind,
		Quality: 0.5,
	}
}

// Partial holds the options a caller wants to change; nil fields are left
// alone.
type Partial struct {
	Facing *Facing
	Flash  *FlashMode
	Focus  *FocusMode
	Zoom   *float64
}

// Apply returns o with p's fields applied and zoom clamped to caps.
func (o Options) Apply(p Partial, caps Capabilities) Options {
	if p.Facing != nil {
		o.Facing = *p.Facing
	}
	if p.Flash != nil {
		o.Flash = *p.Flash
	}
	if p.Focus != nil {
		o.Focus = *p.Focus
	}
	if p.Zoom != nil {
		o.Zoom = caps.ClampZoom(*p.Zoom)
	}
	return o
}

// Symbology is a code type the optical reader can decode.
type Symbology string

const (
	QR      Symbology = "qr"
	EAN13   Symbology = "ean13"
	EAN8    Symbology = "ean8"
	UPCA    Symbology = "upc_a"
	UPCE    Symbology = "upc_e"
	Code128 Symbology = "code128"
	Code39  Symbology = "code39"
)

// ScanEvent is one raw decode reported by the optical reader.
type ScanEvent struct {
	Symbology Symbology
	Data      string
}

// Handle is the live binding to a capture or decoder device.
type Handle interface {
	// Configure applies options for the next acquisition.
	Configure(opts Options) error

	// AcquirePhoto takes a picture.
	AcquirePhoto(ctx context.Context) (models.Locator, error)

	// AcquireVideo records until maxDuration elapses or ctx is cancelled.
	// A recording cancelled with cause ErrRecordingStopped returns what was
	// recorded, or an empty locator if nothing was. Any other cancellation
	// discards the recording and returns ctx.Err().
	AcquireVideo(ctx context.Context, maxDuration time.Duration) (models.Locator, error)

	// StartScanning delivers decoded codes to onEvent until ctx ends or
	// Stop is called. onEvent may be called from any goroutine.
	StartScanning(ctx context.Context, symbologies []Symbology, onEvent func(ScanEvent)) error

	// Stop releases the device.
	Stop() error
}
