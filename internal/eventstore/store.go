// Package eventstore persists an append-only audit trail of task events.
// It is observability only: events are never read back to resume a task, so a
// crash mid-task still loses the task.
package eventstore

import (
	"context"
	"time"
)

// Event type names recorded by the pipeline.
const (
	TypeTaskReceived    = "task.received"
	TypeStageGenerating = "stage.generating"
	TypeStagePublishing = "stage.publishing"
	TypeStagePages      = "stage.activating_pages"
	TypeStageNotifying  = "stage.notifying"
	TypeTaskDone        = "task.done"
	TypeTaskFailed      = "task.failed"
)

// Store defines the interface for persisting and retrieving task events.
type Store interface {
	// Append adds a new event to the store.
	Append(ctx context.Context, taskID, eventType string, payload []byte, metadata map[string]string) error

	// GetByTaskID retrieves all events for a specific task run.
	GetByTaskID(ctx context.Context, taskID string) ([]Event, error)

	// GetRange retrieves events within a time range.
	GetRange(ctx context.Context, start, end time.Time) ([]Event, error)

	// Close closes the store and releases resources.
	Close() error
}

// NoopStore discards every event (default when the store is not configured).
type NoopStore struct{}

func (NoopStore) Append(context.Context, string, string, []byte, map[string]string) error {
	return nil
}
func (NoopStore) GetByTaskID(context.Context, string) ([]Event, error)    { return nil, nil }
func (NoopStore) GetRange(context.Context, time.Time, time.Time) ([]Event, error) { return nil, nil }
func (NoopStore) Close() error                                            { return nil }
