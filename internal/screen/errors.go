package screen

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by sessions. Device and OS errors are wrapped into
// one of these before they reach a screen.
var (
	ErrPermissionDenied     = errors.New("permission denied")
	ErrCaptureFailed        = errors.New("capture failed")
	ErrExternalActionFailed = errors.New("external action failed")
)

// Wrap translates a low-level error into kind, keeping the cause for logs.
func Wrap(kind error, op string, cause error) error {
	if cause == nil {
		return fmt.Errorf("%s: %w", op, kind)
	}
	return fmt.Errorf("%s: %w: %v", op, kind, cause)
}

// IsTerminal reports whether err ends the session.
func IsTerminal(err error) bool {
	return errors.Is(err, ErrPermissionDenied)
}
