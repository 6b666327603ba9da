// Package scan turns the raw event stream of an optical reader into one
// locked decision per physical code.
package scan

import (
	"strings"

	"github.com/fentz26/shelfcam/internal/device"
)

// Kind is the classification of a decoded payload.
type Kind string

const (
	KindGenericCode Kind = "generic_code"
	KindURL         Kind = "url"
)

// Payload is a locked scan.
type Payload struct {
	Text      string
	Kind      Kind
	Symbology device.Symbology
}

// Classify returns KindURL iff text starts with "http://" or "https://"
// (exact, case-sensitive).
func Classify(text string) Kind {
	if strings.HasPrefix(text, "http://") || strings.HasPrefix(text, "https://") {
		return KindURL
	}
	return KindGenericCode
}
