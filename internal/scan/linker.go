package scan

import (
	"context"
	"fmt"
	"net/url"

	"github.com/juju/webbrowser"
)

// Linker opens a URI outside the app.
type Linker interface {
	OpenLink(ctx context.Context, uri string) error
}

// LinkerFunc adapts a function to Linker.
type LinkerFunc func(ctx context.Context, uri string) error

// OpenLink calls f.
func (f LinkerFunc) OpenLink(ctx context.Context, uri string) error { return f(ctx, uri) }

// BrowserLinker opens links in the desktop web browser.
type BrowserLinker struct {
	open func(*url.URL) error
}

// NewBrowserLinker returns a linker backed by the system browser.
func NewBrowserLinker() *BrowserLinker {
	return &BrowserLinker{open: webbrowser.Open}
}

// OpenLink opens uri, which must be an http or https URL.
func (l *BrowserLinker) OpenLink(ctx context.Context, uri string) error {
	u, err := url.Parse(uri)
	if err != nil {
		return fmt.Errorf("parse link: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported link scheme %q", u.Scheme)
	}

	done := make(chan error, 1)
	go func() { done <- l.open(u) }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
