// Package config loads the shelfcam YAML configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"

	"github.com/fentz26/shelfcam/internal/device"
	"github.com/fentz26/shelfcam/internal/permission"
	"github.com/fentz26/shelfcam/internal/scan"
)

// ScreenKind selects which session a screen runs.
type ScreenKind string

const (
	ScreenPhoto   ScreenKind = "photo"
	ScreenVideo   ScreenKind = "video"
	ScreenScan    ScreenKind = "scan"
	ScreenGallery ScreenKind = "gallery"
)

// Config holds the shelfcam configuration.
type Config struct {
	// Platform selects the zoom range: android or ios.
	Platform string `yaml:"platform"`
	// Zoom maps a platform to its supported zoom range.
	Zoom  map[string]ZoomRange `yaml:"zoom"`
	Photo PhotoConfig          `yaml:"photo"`
	Video VideoConfig          `yaml:"video"`
	// Scanners are named symbology profiles referenced by scan screens.
	Scanners map[string]ScannerProfile `yaml:"scanners"`
	// Screens is the menu, in order.
	Screens []Screen    `yaml:"screens"`
	Store   StoreConfig `yaml:"store"`
	Log     LogConfig   `yaml:"log"`
	Sim     SimConfig   `yaml:"sim"`
}

// ZoomRange is the zoom scale a platform accepts.
type ZoomRange struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// PhotoConfig configures still capture.
type PhotoConfig struct {
	// Quality is the compression quality in (0, 1].
	Quality float64 `yaml:"quality"`
}

// VideoConfig configures recording.
type VideoConfig struct {
	MaxDuration time.Duration `yaml:"max_duration"`
}

// ScannerProfile is a set of symbologies and the prompt titles for them.
type ScannerProfile struct {
	Symbologies []device.Symbology `yaml:"symbologies"`
	Titles      scan.Titles        `yaml:"titles"`
}

// Screen is a menu entry.
type Screen struct {
	Name  string     `yaml:"name"`
	Title string     `yaml:"title"`
	Kind  ScreenKind `yaml:"kind"`
	// Advanced exposes flash, focus and zoom controls.
	Advanced bool `yaml:"advanced,omitempty"`
	// Scanner names the profile a scan screen uses.
	Scanner string `yaml:"scanner,omitempty"`
}

// StoreConfig locates the product database.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `yaml:"level"`
	// File receives logs while the TUI owns the terminal.
	File string `yaml:"file"`
}

// SimConfig configures the simulated device.
type SimConfig struct {
	// MediaDir receives captured photos and videos.
	MediaDir string `yaml:"media_dir"`
	// GalleryDir is the image library the gallery screen picks from.
	GalleryDir string `yaml:"gallery_dir"`
	// Deny lists capabilities the simulated user refuses.
	Deny []permission.Capability `yaml:"deny,omitempty"`
}

// Dir returns ~/.shelfcam, or .shelfcam if the home directory is unknown.
func Dir() string {
	home, err := homedir.Dir()
	if err != nil {
		return ".shelfcam"
	}
	return filepath.Join(home, ".shelfcam")
}

// DefaultPath returns ~/.shelfcam/config.yaml.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	dir := Dir()
	return &Config{
		Platform: "android",
		Zoom: map[string]ZoomRange{
			"android": {Min: 0, Max: 1},
			"ios":     {Min: 0, Max: 0.035},
		},
		Photo: PhotoConfig{Quality: 0.5},
		Video: VideoConfig{MaxDuration: 10 * time.Second},
		Scanners: map[string]ScannerProfile{
			"qr": {
				Symbologies: []device.Symbology{device.QR},
				Titles:      scan.Titles{Link: "Link detected!", Code: "QR code read!"},
			},
			"barcode": {
				Symbologies: []device.Symbology{
					device.QR, device.EAN13, device.EAN8, device.UPCA,
					device.UPCE, device.Code128, device.Code39,
				},
				Titles: scan.Titles{Link: "Link detected!", Code: "Code read!"},
			},
		},
		Screens: []Screen{
			{Name: "camera", Title: "Take photo", Kind: ScreenPhoto},
			{Name: "advanced", Title: "Advanced camera", Kind: ScreenPhoto, Advanced: true},
			{Name: "gallery", Title: "Gallery", Kind: ScreenGallery},
			{Name: "video", Title: "Record video", Kind: ScreenVideo},
			{Name: "qr", Title: "Read QR code", Kind: ScreenScan, Scanner: "qr"},
			{Name: "barcode", Title: "Barcode", Kind: ScreenScan, Scanner: "barcode"},
		},
		Store: StoreConfig{Path: filepath.Join(dir, "shelfcam.db")},
		Log:   LogConfig{Level: "info", File: filepath.Join(dir, "shelfcam.log")},
		Sim: SimConfig{
			MediaDir:   filepath.Join(dir, "media"),
			GalleryDir: filepath.Join(dir, "gallery"),
		},
	}
}

// LoadConfig loads configuration from a YAML file. A missing file yields
// the defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	if err := cfg.ExpandPaths(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves configuration to a YAML file, creating parent directories if needed.
func SaveConfig(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// ExpandPaths replaces a leading ~ in every configured path.
func (c *Config) ExpandPaths() error {
	for _, p := range []*string{&c.Store.Path, &c.Log.File, &c.Sim.MediaDir, &c.Sim.GalleryDir} {
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return fmt.Errorf("expanding %q: %w", *p, err)
		}
		*p = expanded
	}
	return nil
}

var knownSymbologies = map[device.Symbology]bool{
	device.QR: true, device.EAN13: true, device.EAN8: true, device.UPCA: true,
	device.UPCE: true, device.Code128: true, device.Code39: true,
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	z, ok := c.Zoom[c.Platform]
	if !ok {
		return fmt.Errorf("no zoom range for platform %q", c.Platform)
	}
	if z.Min > z.Max {
		return fmt.Errorf("zoom range for %s: min %v exceeds max %v", c.Platform, z.Min, z.Max)
	}
	if c.Photo.Quality <= 0 || c.Photo.Quality > 1 {
		return fmt.Errorf("photo.quality must be in (0, 1], got %v", c.Photo.Quality)
	}
	if c.Video.MaxDuration <= 0 {
		return fmt.Errorf("video.max_duration must be positive")
	}

	for name, p := range c.Scanners {
		if len(p.Symbologies) == 0 {
			return fmt.Errorf("scanner %q has no symbologies", name)
		}
		for _, s := range p.Symbologies {
			if !knownSymbologies[s] {
				return fmt.Errorf("scanner %q: unknown symbology %q", name, s)
			}
		}
	}

	seen := make(map[string]bool)
	for _, s := range c.Screens {
		if s.Name == "" {
			return fmt.Errorf("screen with empty name")
		}
		if seen[s.Name] {
			return fmt.Errorf("duplicate screen %q", s.Name)
		}
		seen[s.Name] = true

		switch s.Kind {
		case ScreenPhoto, ScreenVideo, ScreenGallery:
		case ScreenScan:
			if _, ok := c.Scanners[s.Scanner]; !ok {
				return fmt.Errorf("screen %q: unknown scanner %q", s.Name, s.Scanner)
			}
		default:
			return fmt.Errorf("screen %q: invalid kind %q, must be: photo, video, scan, or gallery", s.Name, s.Kind)
		}
	}

	for _, cap := range c.Sim.Deny {
		switch cap {
		case permission.Camera, permission.Microphone, permission.Gallery:
		default:
			return fmt.Errorf("sim.deny: unknown capability %q", cap)
		}
	}
	return nil
}

// Capabilities returns the device capabilities for the configured platform.
func (c *Config) Capabilities() device.Capabilities {
	z := c.Zoom[c.Platform]
	return device.Capabilities{MinZoom: z.Min, MaxZoom: z.Max}
}

// Screen returns the screen with the given name.
func (c *Config) Screen(name string) (Screen, bool) {
	for _, s := range c.Screens {
		if s.Name == name {
			return s, true
		}
	}
	return Screen{}, false
}

// ScanConfig returns the debouncer configuration for a scanner profile.
func (c *Config) ScanConfig(profile string) (scan.Config, error) {
	p, ok := c.Scanners[profile]
	if !ok {
		return scan.Config{}, fmt.Errorf("unknown scanner %q", profile)
	}
	return scan.Config{Symbologies: p.Symbologies, Titles: p.Titles}, nil
}

// CaptureOptions returns the initial device options for a capture screen.
func (c *Config) CaptureOptions(kind device.CaptureKind) device.Options {
	opts := device.DefaultOptions(kind)
	opts.Quality = c.Photo.Quality
	opts.Zoom = c.Capabilities().ClampZoom(0)
	return opts
}
