// Package pipeline drives one build task end-to-end through generation,
// publishing, pages activation, and the terminal callback.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/pagesmith/internal/artifact"
	"git.home.luguber.info/inful/pagesmith/internal/eventstore"
	"git.home.luguber.info/inful/pagesmith/internal/forge"
	"git.home.luguber.info/inful/pagesmith/internal/logfields"
	"git.home.luguber.info/inful/pagesmith/internal/metrics"
	"git.home.luguber.info/inful/pagesmith/internal/task"
)

// Generator produces the document pair for a task. A (nil, nil) return means
// the generator produced no usable output (soft failure).
type Generator interface {
	Generate(ctx context.Context, brief string, checks []string, attachments []task.Attachment) (*artifact.Artifact, error)
}

// PublishEngine is the Git hosting boundary the orchestrator publishes through.
type PublishEngine interface {
	CreateRepository(ctx context.Context, name, description string) (*forge.Repository, error)
	GetRepository(ctx context.Context, name string) (*forge.Repository, error)
	CommitFiles(ctx context.Context, repo string, files map[string]string, message, branch string) (string, error)
	FetchFiles(ctx context.Context, repo string, paths []string, branch string) ([]forge.RepoFile, error)
	UpdateFiles(ctx context.Context, repo string, updates []forge.FileUpdate, message, branch string) (string, error)
	EnablePages(ctx context.Context, repo string) (string, error)
}

// Dispatcher delivers the terminal callback; best effort.
type Dispatcher interface {
	Deliver(ctx context.Context, url string, payload task.CallbackPayload) bool
}

// Orchestrator runs the task state machine. One orchestrator serves all
// workers; it holds no per-task state.
type Orchestrator struct {
	generator  Generator
	engine     PublishEngine
	dispatcher Dispatcher
	recorder   metrics.Recorder
	events     eventstore.Store
}

// New creates an orchestrator. Nil recorder and event store fall back to noops.
func New(gen Generator, engine PublishEngine, dispatcher Dispatcher, recorder metrics.Recorder, events eventstore.Store) *Orchestrator {
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	if events == nil {
		events = eventstore.NoopStore{}
	}
	return &Orchestrator{
		generator:  gen,
		engine:     engine,
		dispatcher: dispatcher,
		recorder:   recorder,
		events:     events,
	}
}

// Run drives one task to its terminal callback outcome. It never returns an
// error: every failure inside the pipeline is logged and converted into
// exactly one failure-shaped callback attempt sequence.
func (o *Orchestrator) Run(ctx context.Context, jobID string, t *task.BuildTask) {
	started := time.Now()
	log := slog.With(logfields.JobID(jobID), logfields.Task(t.Task), logfields.Round(t.Round.Wire()))
	log.Info("Task received")
	o.emit(ctx, jobID, eventstore.TypeTaskReceived, map[string]any{"task": t.Task, "round": t.Round.Wire()})

	payload := o.execute(ctx, jobID, t, log)

	// Notifying: exactly one delivery sequence per task, whatever happened above.
	o.setStage(ctx, jobID, StateNotifying, log)
	delivered := o.dispatcher.Deliver(ctx, t.EvaluationURL, payload)

	outcome := metrics.OutcomeFailed
	eventType := eventstore.TypeTaskFailed
	if payload.IsSuccess() {
		outcome = metrics.OutcomeSuccess
		eventType = eventstore.TypeTaskDone
	}
	o.recorder.IncTaskOutcome(outcome)
	o.recorder.ObserveTaskDuration(time.Since(started))
	o.emit(ctx, jobID, eventType, map[string]any{
		"delivered":  delivered,
		"commit_sha": payload.CommitSHA,
		"pages_url":  payload.PagesURL,
	})
	log.Info("Task finished",
		logfields.Outcome(string(outcome)),
		slog.Bool("callback_delivered", delivered),
		logfields.DurationMS(float64(time.Since(started).Milliseconds())))
}

// execute walks the working stages and returns the callback payload to send.
// Every early return carries the failure shape.
func (o *Orchestrator) execute(ctx context.Context, jobID string, t *task.BuildTask, log *slog.Logger) task.CallbackPayload {
	failure := task.FailurePayload(t)

	if err := t.Validate(); err != nil {
		log.Error("Task rejected", logfields.Error(err))
		return failure
	}

	// Generating. The update round first augments the attachments with the
	// current repository content so the model edits in place.
	o.setStage(ctx, jobID, StateGenerating, log)
	genStart := time.Now()

	attachments := t.Attachments
	var priorFiles []forge.RepoFile
	if t.Round == task.RoundUpdate {
		var err error
		priorFiles, err = o.engine.FetchFiles(ctx, t.RepositoryName(), []string{"index.html", "README.md"}, forge.DefaultBranch)
		if err != nil {
			log.Error("Fetching current site content failed", logfields.Stage(StateGenerating.String()), logfields.Error(err))
			return failure
		}
		for _, f := range priorFiles {
			mime := "text/markdown"
			if f.Path == "index.html" {
				mime = "text/html"
			}
			attachments = append(attachments, task.NewTextAttachment(f.Path, mime, f.Content))
		}
	}

	art, err := o.generator.Generate(ctx, t.Brief, t.Checks, attachments)
	o.recorder.ObserveStageDuration(StateGenerating.String(), time.Since(genStart))
	if err != nil {
		log.Error("Generation failed", logfields.Stage(StateGenerating.String()), logfields.Error(err))
		return failure
	}
	if art == nil {
		log.Warn("Generator produced no usable artifact", logfields.Stage(StateGenerating.String()))
		return failure
	}
	info := artifact.Inspect(art)
	log.Info("Artifact generated", slog.String("title", info.Title))

	// Publishing.
	o.setStage(ctx, jobID, StatePublishing, log)
	pubStart := time.Now()
	repo, commitSHA, err := o.publish(ctx, t, art, info.Title)
	o.recorder.ObserveStageDuration(StatePublishing.String(), time.Since(pubStart))
	if err != nil {
		log.Error("Publishing failed", logfields.Stage(StatePublishing.String()), logfields.Repository(t.RepositoryName()), logfields.Error(err))
		return failure
	}
	log.Info("Published", logfields.Repository(repo.FullName), slog.String("commit_sha", commitSHA))

	// ActivatingPages. On the update round the site is already enabled and
	// this resolves to the idempotent lookup.
	o.setStage(ctx, jobID, StateActivatingPages, log)
	pagesStart := time.Now()
	pagesURL, err := o.engine.EnablePages(ctx, t.RepositoryName())
	o.recorder.ObserveStageDuration(StateActivatingPages.String(), time.Since(pagesStart))
	if err != nil {
		log.Error("Pages activation failed", logfields.Stage(StateActivatingPages.String()), logfields.Error(err))
		return failure
	}

	return task.SuccessPayload(t, task.PublishResult{
		RepositoryURL: repo.HTMLURL,
		CommitSHA:     commitSHA,
		PagesURL:      pagesURL,
	})
}

// publish runs the round-specific publish path and returns the repository and
// the commit SHA reported in the callback. The title becomes the repository
// description on the create round.
func (o *Orchestrator) publish(ctx context.Context, t *task.BuildTask, art *artifact.Artifact, title string) (*forge.Repository, string, error) {
	name := t.RepositoryName()

	switch t.Round {
	case task.RoundCreate:
		repo, err := o.engine.CreateRepository(ctx, name, title)
		if err != nil {
			return nil, "", err
		}
		sha, err := o.engine.CommitFiles(ctx, name, map[string]string{
			"index.html": art.Markup,
			"README.md":  art.Documentation,
			"LICENSE":    mitLicenseText,
		}, fmt.Sprintf("first commit for the task %s", t.Task), forge.DefaultBranch)
		if err != nil {
			return nil, "", err
		}
		return repo, sha, nil

	case task.RoundUpdate:
		// Re-read the hashes here rather than reusing the pre-generation
		// fetch: the update call requires the SHA the server holds now.
		prior, err := o.engine.FetchFiles(ctx, name, []string{"index.html", "README.md"}, forge.DefaultBranch)
		if err != nil {
			return nil, "", err
		}
		shaByPath := make(map[string]string, len(prior))
		for _, f := range prior {
			shaByPath[f.Path] = f.SHA
		}
		updates := []forge.FileUpdate{
			{Path: "index.html", Content: art.Markup, PriorSHA: shaByPath["index.html"]},
			{Path: "README.md", Content: art.Documentation, PriorSHA: shaByPath["README.md"]},
		}
		sha, err := o.engine.UpdateFiles(ctx, name, updates, "Updated project task", forge.DefaultBranch)
		if err != nil {
			return nil, "", err
		}
		repo, err := o.engine.GetRepository(ctx, name)
		if err != nil {
			return nil, "", err
		}
		return repo, sha, nil

	default:
		return nil, "", fmt.Errorf("unreachable round %d", t.Round)
	}
}

// setStage records a stage transition in the log and the event store.
func (o *Orchestrator) setStage(ctx context.Context, jobID string, s State, log *slog.Logger) {
	log.Debug("Stage transition", logfields.Stage(s.String()))
	var eventType string
	switch s {
	case StateGenerating:
		eventType = eventstore.TypeStageGenerating
	case StatePublishing:
		eventType = eventstore.TypeStagePublishing
	case StateActivatingPages:
		eventType = eventstore.TypeStagePages
	case StateNotifying:
		eventType = eventstore.TypeStageNotifying
	default:
		return
	}
	o.emit(ctx, jobID, eventType, nil)
}

// emit appends an event; storage failures are logged, never propagated.
func (o *Orchestrator) emit(ctx context.Context, jobID, eventType string, payload map[string]any) {
	body := []byte("{}")
	if payload != nil {
		if b, err := json.Marshal(payload); err == nil {
			body = b
		}
	}
	if err := o.events.Append(ctx, jobID, eventType, body, nil); err != nil {
		slog.Warn("Event store append failed", logfields.JobID(jobID), slog.String("event", eventType), logfields.Error(err))
	}
}
