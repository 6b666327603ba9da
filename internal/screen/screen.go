// Package screen defines the collaborators a capture or scan session hands
// its outcomes to: the result sink, the navigator and the decision recorder.
package screen

import (
	"context"

	"github.com/fentz26/shelfcam/internal/models"
)

// ResultSink receives the accepted artifact of a session, or the signal that
// the session was abandoned.
type ResultSink interface {
	AcceptArtifact(ctx context.Context, a models.Artifact) error
	Abandon(ctx context.Context)
}

// PendingClearer is implemented by sinks that can drop a previously
// accepted artifact.
type PendingClearer interface {
	ClearPending(ctx context.Context) error
}

// Navigator leaves the current screen.
type Navigator interface {
	ExitScreen()
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func()

// ExitScreen calls f.
func (f NavigatorFunc) ExitScreen() { f() }

// Recorder writes decision records for session actions.
type Recorder interface {
	Record(action string, inputs interface{}, outcome, sessionID, details string) (*models.DecisionRecord, error)
}

// Notice is a user-visible explanation of a failure.
type Notice struct {
	Title   string
	Message string
	Err     error
}

// Fatal reports whether the notice ends the session.
func (n Notice) Fatal() bool {
	return IsTerminal(n.Err)
}
