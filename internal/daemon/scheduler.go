package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/pagesmith/internal/metrics"
	"git.home.luguber.info/inful/pagesmith/internal/queue"
)

const statsInterval = time.Minute

// Scheduler wraps gocron for the daemon's periodic housekeeping. Its only job
// today is the queue stats report, which keeps the queue-depth gauge fresh
// even when no task traffic moves it.
type Scheduler struct {
	scheduler gocron.Scheduler
	queue     *queue.TaskQueue
	recorder  metrics.Recorder
}

// NewScheduler creates the scheduler and registers the stats job.
func NewScheduler(q *queue.TaskQueue, recorder metrics.Recorder) (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}

	sched := &Scheduler{scheduler: s, queue: q, recorder: recorder}
	_, err = s.NewJob(
		gocron.DurationJob(statsInterval),
		gocron.NewTask(sched.reportStats),
		gocron.WithName("queue-stats"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create stats job: %w", err)
	}
	return sched, nil
}

// Start begins the scheduler.
func (s *Scheduler) Start(ctx context.Context) {
	slog.Info("Starting scheduler")
	s.scheduler.Start()
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop() error {
	slog.Info("Stopping scheduler")
	return s.scheduler.Shutdown()
}

// reportStats logs queue occupancy and refreshes the depth gauge.
func (s *Scheduler) reportStats() {
	queued := s.queue.Length()
	active := s.queue.ActiveCount()
	s.recorder.SetQueueDepth(queued)
	slog.Info("Queue stats", slog.Int("queued", queued), slog.Int("active", active))
}
