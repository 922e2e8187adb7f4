package dispatch

import (
	"time"

	"github.com/ashalaginvimeo/AS-test/internal/catalog"
	"github.com/ashalaginvimeo/AS-test/internal/gateway"
)

// Phase is the lifecycle stage of the dispatcher's single request slot
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseLoading   Phase = "loading"
	PhaseSucceeded Phase = "succeeded"
	PhaseFailed    Phase = "failed"
)

// FailurePrefix starts every user-facing failure reason
const FailurePrefix = "Failed to generate content. "

// State is a snapshot of a dispatcher.
// Output is set only when Phase is PhaseSucceeded, Reason only when PhaseFailed.
type State struct {
	Phase      Phase          `json:"phase"`
	Tool       catalog.Tool   `json:"tool"`
	Generation uint64         `json:"generation"`
	RequestID  string         `json:"request_id,omitempty"`
	Input      catalog.Input  `json:"input,omitempty"`
	Output     catalog.Output `json:"output,omitempty"`
	Reason     string         `json:"error,omitempty"`
	Kind       gateway.Kind   `json:"error_kind,omitempty"`
	StartedAt  time.Time      `json:"started_at,omitempty"`
	FinishedAt time.Time      `json:"finished_at,omitempty"`
}

// Settled reports whether the state is terminal for its generation
func (s State) Settled() bool {
	return s.Phase != PhaseLoading
}

// Duration is the time the last request took, or zero while loading
func (s State) Duration() time.Duration {
	if s.StartedAt.IsZero() || s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}
