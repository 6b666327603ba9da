// Package models defines the core domain types for shelfcam.
package models

import "time"

// Locator is an opaque reference (URI) to captured media.
type Locator string

// ArtifactKind tells what kind of media a locator refers to.
type ArtifactKind string

const (
	ArtifactPhoto   ArtifactKind = "photo"
	ArtifactVideo   ArtifactKind = "video"
	ArtifactGallery ArtifactKind = "gallery"
)

// Artifact is the accepted output of a capture session.
type Artifact struct {
	Locator   Locator      `json:"locator"`
	Kind      ArtifactKind `json:"kind"`
	SessionID string       `json:"session_id"`
}

// Product is a catalog entry.
type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Price       string    `json:"price"`
	Description string    `json:"description"`
	User        string    `json:"user"`
	ImageURI    Locator   `json:"image_uri"`
	CreatedAt   time.Time `json:"created_at"`
}

// PendingImage is the single slot holding the media chosen for the next
// product registration.
type PendingImage struct {
	Locator   Locator      `json:"locator"`
	Kind      ArtifactKind `json:"kind"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// DecisionRecord is an audit entry for a session decision.
type DecisionRecord struct {
	ID         string    `json:"id"`
	Action     string    `json:"action"`
	InputsHash string    `json:"inputs_hash"`
	Outcome    string    `json:"outcome"`
	SessionID  string    `json:"session_id,omitempty"`
	Details    string    `json:"details,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}
