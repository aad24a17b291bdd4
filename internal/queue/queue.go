// Package queue feeds accepted build tasks to pipeline workers. One worker
// drives one task to completion before taking the next; concurrency across
// tasks comes only from independent worker slots.
package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/pagesmith/internal/logfields"
	"git.home.luguber.info/inful/pagesmith/internal/metrics"
	"git.home.luguber.info/inful/pagesmith/internal/task"
)

// JobStatus represents the current status of a queued task job.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
)

// Job wraps one accepted build task for queueing.
type Job struct {
	ID          string         `json:"id"`
	Status      JobStatus      `json:"status"`
	CreatedAt   time.Time      `json:"created_at"`
	StartedAt   *time.Time     `json:"started_at,omitempty"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	Duration    time.Duration  `json:"duration,omitempty"`
	Task        task.BuildTask `json:"task"`
}

// NewJob wraps a task with a fresh job ID.
func NewJob(t task.BuildTask) *Job {
	return &Job{
		ID:        uuid.NewString(),
		Status:    JobStatusQueued,
		CreatedAt: time.Now(),
		Task:      t,
	}
}

// Runner executes one task to its terminal outcome. Implemented by the
// pipeline orchestrator.
type Runner interface {
	Run(ctx context.Context, jobID string, t *task.BuildTask)
}

// TaskQueue manages the queue of build task jobs.
type TaskQueue struct {
	jobs        chan *Job
	workers     int
	maxSize     int
	mu          sync.RWMutex
	active      map[string]*Job
	history     []*Job
	historySize int
	stopChan    chan struct{}
	group       WorkerGroup
	runner      Runner
	recorder    metrics.Recorder
}

// NewTaskQueue creates a new task queue with the specified size and worker count.
func NewTaskQueue(maxSize, workers int, runner Runner, recorder metrics.Recorder) *TaskQueue {
	if maxSize <= 0 {
		maxSize = 100
	}
	if workers <= 0 {
		workers = 2
	}
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	return &TaskQueue{
		jobs:        make(chan *Job, maxSize),
		workers:     workers,
		maxSize:     maxSize,
		active:      make(map[string]*Job),
		history:     make([]*Job, 0),
		historySize: 50, // Keep last 50 completed jobs
		stopChan:    make(chan struct{}),
		runner:      runner,
		recorder:    recorder,
	}
}

// Start begins processing jobs with the configured number of workers.
func (q *TaskQueue) Start(ctx context.Context) {
	slog.Info("Starting task queue", "workers", q.workers, "max_size", q.maxSize)
	for i := 0; i < q.workers; i++ {
		workerID := fmt.Sprintf("worker-%d", i)
		q.group.Go(func() { q.worker(ctx, workerID) })
	}
}

// Stop waits for in-flight tasks to finish, bounded by ctx. Tasks have no
// cancellation path once started, so the bound is the only protection against
// a hung collaborator.
func (q *TaskQueue) Stop(ctx context.Context) error {
	slog.Info("Stopping task queue")
	close(q.stopChan)
	err := q.group.StopAndWait(ctx)
	if err == nil {
		slog.Info("Task queue stopped")
	}
	return err
}

// Enqueue adds a new job to the queue.
func (q *TaskQueue) Enqueue(job *Job) error {
	if job == nil {
		return fmt.Errorf("job cannot be nil")
	}
	if job.ID == "" {
		return fmt.Errorf("job ID is required")
	}

	job.Status = JobStatusQueued
	select {
	case q.jobs <- job:
		q.recorder.SetQueueDepth(len(q.jobs))
		slog.Info("Task job enqueued",
			logfields.JobID(job.ID),
			logfields.Task(job.Task.Task),
			logfields.Round(job.Task.Round.Wire()))
		return nil
	default:
		return fmt.Errorf("task queue is full")
	}
}

// Length returns the current queue length.
func (q *TaskQueue) Length() int {
	return len(q.jobs)
}

// ActiveCount returns the number of jobs currently being processed.
func (q *TaskQueue) ActiveCount() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.active)
}

// History returns recent completed jobs as snapshots, so callers never hold
// a pointer a worker is still writing to.
func (q *TaskQueue) History() []Job {
	q.mu.RLock()
	defer q.mu.RUnlock()
	history := make([]Job, len(q.history))
	for i, job := range q.history {
		history[i] = *job
	}
	return history
}

// worker processes jobs from the queue.
func (q *TaskQueue) worker(ctx context.Context, workerID string) {
	slog.Debug("Task worker started", "worker_id", workerID)
	for {
		select {
		case <-ctx.Done():
			slog.Debug("Task worker stopped by context", "worker_id", workerID)
			return
		case <-q.stopChan:
			slog.Debug("Task worker stopped by stop signal", "worker_id", workerID)
			return
		case job := <-q.jobs:
			if job != nil {
				q.processJob(ctx, job, workerID)
			}
		}
	}
}

// processJob handles the execution of a single task job. The runner never
// returns an error; the job record only tracks timing.
func (q *TaskQueue) processJob(ctx context.Context, job *Job, workerID string) {
	startTime := time.Now()
	job.StartedAt = &startTime
	job.Status = JobStatusRunning

	q.mu.Lock()
	q.active[job.ID] = job
	q.mu.Unlock()
	q.recorder.SetQueueDepth(len(q.jobs))

	slog.Info("Task job started", logfields.JobID(job.ID), logfields.Task(job.Task.Task), "worker", workerID)

	q.runner.Run(ctx, job.ID, &job.Task)

	endTime := time.Now()
	job.CompletedAt = &endTime
	job.Duration = endTime.Sub(*job.StartedAt)
	job.Status = JobStatusCompleted

	q.mu.Lock()
	delete(q.active, job.ID)
	q.addToHistory(job)
	q.mu.Unlock()

	slog.Info("Task job finished",
		logfields.JobID(job.ID),
		logfields.Task(job.Task.Task),
		logfields.DurationMS(float64(job.Duration.Milliseconds())))
}

// addToHistory adds a completed job to the history, maintaining the size limit.
func (q *TaskQueue) addToHistory(job *Job) {
	q.history = append(q.history, job)
	if len(q.history) > q.historySize {
		copy(q.history, q.history[len(q.history)-q.historySize:])
		q.history = q.history[:q.historySize]
	}
}
