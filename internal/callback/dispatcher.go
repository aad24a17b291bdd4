// Package callback delivers the task outcome to the caller's evaluation URL
// with bounded exponential-backoff retry. Delivery is best effort: the task's
// outcome is already final and cannot be undone, so exhausting the attempt
// budget is reported but never raised as an error.
package callback

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"git.home.luguber.info/inful/pagesmith/internal/logfields"
	"git.home.luguber.info/inful/pagesmith/internal/metrics"
	"git.home.luguber.info/inful/pagesmith/internal/task"
)

// Dispatcher posts callback payloads. Safe for concurrent use.
type Dispatcher struct {
	httpClient *http.Client
	policy     BackoffPolicy
	recorder   metrics.Recorder

	// sleep is swappable in tests.
	sleep func(context.Context, time.Duration)
}

// NewDispatcher creates a dispatcher with the given policy. A nil recorder
// falls back to the noop recorder.
func NewDispatcher(policy BackoffPolicy, recorder metrics.Recorder) *Dispatcher {
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	return &Dispatcher{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		policy:     policy,
		recorder:   recorder,
		sleep:      sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// Deliver posts the payload to the URL, retrying transport failures and
// non-2xx responses with exponential backoff up to the attempt budget.
// Returns whether a 2xx response was ever received.
func (d *Dispatcher) Deliver(ctx context.Context, url string, payload task.CallbackPayload) bool {
	body, err := json.Marshal(payload)
	if err != nil {
		// Payload is built from plain structs; this cannot happen in practice.
		slog.Error("Callback payload marshal failed", logfields.Task(payload.Task), logfields.Error(err))
		return false
	}

	for attempt := 1; attempt <= d.policy.MaxAttempts; attempt++ {
		if delay := d.policy.Delay(attempt); delay > 0 {
			d.sleep(ctx, delay)
		}
		if ctx.Err() != nil {
			slog.Warn("Callback delivery abandoned", logfields.Task(payload.Task), logfields.Error(ctx.Err()))
			d.recorder.IncCallbackDelivery(false)
			return false
		}

		d.recorder.IncCallbackAttempt()
		err := d.post(ctx, url, body)
		if err == nil {
			slog.Info("Callback delivered",
				logfields.Task(payload.Task),
				logfields.Attempt(attempt),
				slog.Bool("success_shape", payload.IsSuccess()))
			d.recorder.IncCallbackDelivery(true)
			return true
		}
		slog.Warn("Callback delivery attempt failed",
			logfields.Task(payload.Task),
			logfields.Attempt(attempt),
			slog.Int("max_attempts", d.policy.MaxAttempts),
			logfields.Error(err))
	}

	slog.Error("Callback delivery gave up", logfields.Task(payload.Task), slog.Int("attempts", d.policy.MaxAttempts))
	d.recorder.IncCallbackDelivery(false)
	return false
}

// post performs one delivery attempt. Any non-2xx status is an error so the
// retry loop treats it like a transport failure.
func (d *Dispatcher) post(ctx context.Context, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	// The response body is never consumed; drain so the connection is reused.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("callback endpoint answered %s", resp.Status)
	}
	return nil
}
