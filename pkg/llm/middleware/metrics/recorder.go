// Package metrics provides metrics recording for provider calls and debate outcomes.
package metrics

import (
	"time"
)

// Recorder defines the interface for recording metrics.
type Recorder interface {
	// ObserveRequest records a completed provider request.
	ObserveRequest(
		model, operation string,
		promptTokens, completionTokens int,
		success bool,
		errorType string,
		duration time.Duration,
	)

	// IncRetry counts a backoff retry for model.
	IncRetry(model, errorType string)

	// IncStreamFallback counts a mid-stream failure recovered with a full completion.
	IncStreamFallback(model string)

	// IncDebate counts a debate run ending in status.
	IncDebate(format, status string)

	// IncJudgment counts a judgment of kind ("single", "panel") with outcome.
	IncJudgment(kind, outcome string)
}

// NoopRecorder implements Recorder with no-op behavior for when metrics are disabled.
type NoopRecorder struct{}

// Nop returns a no-op metrics recorder that discards all metrics.
func Nop() Recorder {
	return &NoopRecorder{}
}

// ObserveRequest does nothing in the no-op recorder.
func (n *NoopRecorder) ObserveRequest(_, _ string, _, _ int, _ bool, _ string, _ time.Duration) {}

// IncRetry does nothing in the no-op recorder.
func (n *NoopRecorder) IncRetry(_, _ string) {}

// IncStreamFallback does nothing in the no-op recorder.
func (n *NoopRecorder) IncStreamFallback(_ string) {}

// IncDebate does nothing in the no-op recorder.
func (n *NoopRecorder) IncDebate(_, _ string) {}

// IncJudgment does nothing in the no-op recorder.
func (n *NoopRecorder) IncJudgment(_, _ string) {}
