// Package metrics defines observability hooks for the build pipeline.
package metrics

import "time"

// OutcomeLabel enumerates terminal task outcomes for counters.
type OutcomeLabel string

const (
	OutcomeSuccess OutcomeLabel = "success"
	OutcomeFailed  OutcomeLabel = "failed"
)

// Recorder defines observability hooks for task and stage metrics.
// Implementations may forward to Prometheus, OpenTelemetry, etc. All methods
// must be safe on the zero NoopRecorder (allowing optional injection).
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	ObserveTaskDuration(d time.Duration)
	IncTaskOutcome(outcome OutcomeLabel)
	IncCallbackAttempt()
	IncCallbackDelivery(delivered bool)
	SetQueueDepth(n int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration) {}
func (NoopRecorder) ObserveTaskDuration(time.Duration)          {}
func (NoopRecorder) IncTaskOutcome(OutcomeLabel)                {}
func (NoopRecorder) IncCallbackAttempt()                        {}
func (NoopRecorder) IncCallbackDelivery(bool)                   {}
func (NoopRecorder) SetQueueDepth(int)                          {}
