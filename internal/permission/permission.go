// Package permission wraps runtime capability requests in a uniform
// grant/deny protocol.
package permission

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/fentz26/shelfcam/internal/logging"
	"github.com/fentz26/shelfcam/internal/screen"
)

// Capability is a guarded device feature.
type Capability string

const (
	Camera     Capability = "camera"
	Microphone Capability = "microphone"
	Gallery    Capability = "gallery"
)

// State is the outcome of a capability request.
type State string

const (
	Unknown State = "unknown"
	Granted State = "granted"
	Denied  State = "denied"
)

// Requester asks the OS for a capability, prompting the user if needed.
type Requester interface {
	RequestCapability(ctx context.Context, c Capability) (State, error)
}

// RequesterFunc adapts a function to Requester.
type RequesterFunc func(ctx context.Context, c Capability) (State, error)

// RequestCapability calls f.
func (f RequesterFunc) RequestCapability(ctx context.Context, c Capability) (State, error) {
	return f(ctx, c)
}

// Gate serializes capability requests for one screen. Concurrent requests
// for the same capability share a single OS prompt.
type Gate struct {
	requester Requester
	log       logging.Logger
	group     singleflight.Group

	mu     sync.Mutex
	states map[Capability]State
}

// NewGate creates a gate backed by r.
func NewGate(r Requester, log logging.Logger) *Gate {
	return &Gate{
		requester: r,
		log:       logging.OrNop(log),
		states:    make(map[Capability]State),
	}
}

// State returns the last known state of c without prompting.
func (g *Gate) State(c Capability) State {
	g.mu.Lock()
	defer g.mu.Unlock()
	if st, ok := g.states[c]; ok {
		return st
	}
	return Unknown
}

// Request asks for c. Anything other than an explicit grant is reported as
// Denied with an error wrapping screen.ErrPermissionDenied. If ctx ends
// first, Request returns Unknown and the context error; the prompt itself
// keeps running for the other waiters.
func (g *Gate) Request(ctx context.Context, c Capability) (State, error) {
	ch := g.group.DoChan(string(c), func() (interface{}, error) {
		// The OS prompt outlives any single waiter.
		st, err := g.requester.RequestCapability(context.WithoutCancel(ctx), c)
		if err != nil {
			g.log.Warnf("Capability %s request failed: %v", c, err)
			return Denied, screen.Wrap(screen.ErrPermissionDenied, string(c), err)
		}
		if st != Granted {
			return Denied, screen.Wrap(screen.ErrPermissionDenied, string(c), nil)
		}
		return Granted, nil
	})

	select {
	case <-ctx.Done():
		return Unknown, ctx.Err()
	case res := <-ch:
		st := res.Val.(State)
		g.mu.Lock()
		g.states[c] = st
		g.mu.Unlock()
		g.log.Debugf("Capability %s: %s (shared=%v)", c, st, res.Shared)
		return st, res.Err
	}
}

// RequestAll asks for each capability in order and stops at the first one
// that is not granted.
func (g *Gate) RequestAll(ctx context.Context, caps ...Capability) (State, error) {
	if len(caps) == 0 {
		return Unknown, errors.New("no capabilities requested")
	}
	for _, c := range caps {
		st, err := g.Request(ctx, c)
		if st != Granted {
			if err == nil {
				err = fmt.Errorf("%s: %w", c, screen.ErrPermissionDenied)
			}
			return st, err
		}
	}
	return Granted, nil
}
