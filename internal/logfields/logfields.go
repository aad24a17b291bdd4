package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyTask       = "task"
	KeyRound      = "round"
	KeyJobID      = "job_id"
	KeyStage      = "stage"
	KeyRepo       = "repository"
	KeyAttempt    = "attempt"
	KeyDurationMS = "duration_ms"
	KeyOutcome    = "outcome"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func Task(name string) slog.Attr      { return slog.String(KeyTask, name) }
func Round(r int) slog.Attr           { return slog.Int(KeyRound, r) }
func JobID(id string) slog.Attr       { return slog.String(KeyJobID, id) }
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func Repository(r string) slog.Attr   { return slog.String(KeyRepo, r) }
func Attempt(n int) slog.Attr         { return slog.Int(KeyAttempt, n) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Outcome(o string) slog.Attr      { return slog.String(KeyOutcome, o) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
