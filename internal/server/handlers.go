package server

import (
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"git.home.luguber.info/inful/pagesmith/internal/eventstore"
	"git.home.luguber.info/inful/pagesmith/internal/logfields"
	"git.home.luguber.info/inful/pagesmith/internal/queue"
	"git.home.luguber.info/inful/pagesmith/internal/task"
)

// TaskHandlers implements the front-door endpoints. The secret check and
// payload-shape validation happen here, outside the pipeline.
type TaskHandlers struct {
	secret string
	queue  *queue.TaskQueue
	events eventstore.Store
}

// NewTaskHandlers constructs the handler set.
func NewTaskHandlers(secret string, q *queue.TaskQueue, events eventstore.Store) *TaskHandlers {
	if events == nil {
		events = eventstore.NoopStore{}
	}
	return &TaskHandlers{secret: secret, queue: q, events: events}
}

// HandleTask accepts one build request, validates the shared secret and the
// round, and queues the task. The response mirrors the original front door:
// 401 {"status":"invalid"}, 400 {"status":"invalid round"}, or
// 200 {"status":"queued","id":...,"nonce":...}.
func (h *TaskHandlers) HandleTask(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"status": "method not allowed"})
		return
	}

	var record task.InboundRecord
	if err := json.NewDecoder(r.Body).Decode(&record); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"status": "invalid payload"})
		return
	}

	if subtle.ConstantTimeCompare([]byte(h.secret), []byte(record.Secret)) != 1 {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"status": "invalid"})
		return
	}

	if record.Round != 1 && record.Round != 2 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"status": "invalid round"})
		return
	}

	t, err := record.ToBuildTask()
	if err != nil {
		slog.Warn("Rejecting task record", logfields.Task(record.Task), logfields.Error(err))
		writeJSON(w, http.StatusBadRequest, map[string]any{"status": "invalid payload"})
		return
	}

	job := queue.NewJob(t)
	if err := h.queue.Enqueue(job); err != nil {
		slog.Error("Failed to enqueue task", logfields.Task(t.Task), logfields.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "queue full"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "queued",
		"id":     job.ID,
		"nonce":  t.Nonce,
	})
}

// HandleHealth answers liveness probes.
func (h *TaskHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"queued": h.queue.Length(),
		"active": h.queue.ActiveCount(),
	})
}

// HandleTaskList serves recent completed task runs: GET /api/tasks.
func (h *TaskHandlers) HandleTaskList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"status": "method not allowed"})
		return
	}

	history := h.queue.History()
	jobs := make([]map[string]any, 0, len(history))
	for _, job := range history {
		jobs = append(jobs, map[string]any{
			"id":          job.ID,
			"status":      job.Status,
			"task":        job.Task.Task,
			"round":       job.Task.Round.Wire(),
			"created_at":  job.CreatedAt,
			"duration_ms": job.Duration.Milliseconds(),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"queued": h.queue.Length(),
		"active": h.queue.ActiveCount(),
		"jobs":   jobs,
	})
}

// HandleTaskEvents serves the audit trail for one task run:
// GET /api/tasks/{id}/events.
func (h *TaskHandlers) HandleTaskEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"status": "method not allowed"})
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/api/tasks/")
	jobID, ok := strings.CutSuffix(rest, "/events")
	if !ok || jobID == "" || strings.Contains(jobID, "/") {
		writeJSON(w, http.StatusNotFound, map[string]any{"status": "not found"})
		return
	}

	events, err := h.events.GetByTaskID(r.Context(), jobID)
	if err != nil {
		slog.Error("Event store read failed", logfields.JobID(jobID), logfields.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]any{"status": "error"})
		return
	}

	out := make([]map[string]any, 0, len(events))
	for _, e := range events {
		out = append(out, map[string]any{
			"type":      e.Type(),
			"timestamp": e.Timestamp(),
			"payload":   json.RawMessage(e.Payload()),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": jobID, "events": out})
}

// writeJSON writes a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Warn("Failed to write response", logfields.Error(err))
	}
}
