// Package analysis is the contract with the external long-running
// analysis backend (transcription, OCR). The backend is started
// synchronously and completes out-of-process; its completion arrives
// later as a correlated event on a separate channel.
package analysis

import (
	"context"
)

// Event outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// CompletionEvent is emitted by the backend when an analysis finishes.
// CorrelationHandle links it back to the suspended job. There is no
// ordering or at-most-once guarantee on delivery.
type CompletionEvent struct {
	CorrelationHandle string `json:"correlation_handle"`
	Outcome           string `json:"outcome"`
	OutputRef         string `json:"output_ref,omitempty"`
	Reason            string `json:"reason,omitempty"`
}

// Succeeded reports whether the event carries a successful outcome.
func (e CompletionEvent) Succeeded() bool {
	return e.Outcome == OutcomeSuccess
}

// Backend starts an analysis run for an uploaded artifact.
type Backend interface {
	// Start begins analysis of sourceRef and returns the backend's
	// correlation handle. jobID is passed as an idempotency key so a
	// re-invoked stage does not start a second analysis.
	Start(ctx context.Context, jobID, sourceRef string) (string, error)
}
