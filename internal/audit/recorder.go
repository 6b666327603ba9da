// Package audit writes decision records for session outcomes.
package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/fentz26/shelfcam/internal/models"
)

// Writer persists a decision record.
type Writer interface {
	WriteDecision(action, inputsHash, outcome, sessionID, details string) (*models.DecisionRecord, error)
}

// Recorder writes decision records for screen sessions.
type Recorder struct {
	w Writer
}

// NewRecorder creates a new decision recorder.
func NewRecorder(w Writer) *Recorder {
	return &Recorder{w: w}
}

// Record writes a decision record for a session outcome.
func (r *Recorder) Record(action string, inputs interface{}, outcome, sessionID, details string) (*models.DecisionRecord, error) {
	return r.w.WriteDecision(action, HashInputs(inputs), outcome, sessionID, details)
}

// HashInputs returns the SHA-256 of the JSON encoding of inputs.
func HashInputs(inputs interface{}) string {
	data, err := json.Marshal(inputs)
	if err != nil {
		return "hash_error"
	}
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
