package scan

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"
)

func TestBrowserLinker(t *testing.T) {
	var opened []string
	l := &BrowserLinker{open: func(u *url.URL) error {
		opened = append(opened, u.String())
		return nil
	}}

	if err := l.OpenLink(context.Background(), "https://a.b/c"); err != nil {
		t.Fatalf("OpenLink failed: %v", err)
	}
	if len(opened) != 1 || opened[0] != "https://a.b/c" {
		t.Errorf("Unexpected opened links %v", opened)
	}

	if err := l.OpenLink(context.Background(), "javascript:alert(1)"); err == nil {
		t.Error("Expected non-http scheme to be rejected")
	}
	if err := l.OpenLink(context.Background(), "http://%zz"); err == nil {
		t.Error("Expected parse error")
	}
}

func TestBrowserLinkerError(t *testing.T) {
	noBrowser := errors.New("no browser")
	l := &BrowserLinker{open: func(*url.URL) error { return noBrowser }}
	if err := l.OpenLink(context.Background(), "http://x"); !errors.Is(err, noBrowser) {
		t.Errorf("Expected browser error, got %v", err)
	}
}

func TestBrowserLinkerContext(t *testing.T) {
	release := make(chan struct{})
	l := &BrowserLinker{open: func(*url.URL) error {
		<-release
		return nil
	}}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := l.OpenLink(ctx, "http://x")
	close(release)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline error, got %v", err)
	}
}
