package pipeline

// State enumerates the orchestrator's stages. A task moves strictly forward:
// Received → Generating → Publishing → ActivatingPages → Notifying → Done,
// with Failed absorbing any failure in the first three working stages.
type State string

const (
	StateReceived        State = "received"
	StateGenerating      State = "generating"
	StatePublishing      State = "publishing"
	StateActivatingPages State = "activating_pages"
	StateNotifying       State = "notifying"
	StateDone            State = "done"
	StateFailed          State = "failed"
)

func (s State) String() string { return string(s) }
