// Package daemon wires the pipeline together and owns its lifecycle.
package daemon

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/pagesmith/internal/callback"
	"git.home.luguber.info/inful/pagesmith/internal/config"
	"git.home.luguber.info/inful/pagesmith/internal/eventstore"
	"git.home.luguber.info/inful/pagesmith/internal/forge"
	"git.home.luguber.info/inful/pagesmith/internal/generator"
	"git.home.luguber.info/inful/pagesmith/internal/logfields"
	"git.home.luguber.info/inful/pagesmith/internal/metrics"
	"git.home.luguber.info/inful/pagesmith/internal/pipeline"
	"git.home.luguber.info/inful/pagesmith/internal/queue"
	"git.home.luguber.info/inful/pagesmith/internal/server"
)

// Daemon runs the ingress server, the worker queue, and the periodic stats
// job as one process.
type Daemon struct {
	cfg       *config.Config
	queue     *queue.TaskQueue
	server    *server.Server
	scheduler *Scheduler
	nats      *queue.NATSIngress
	events    eventstore.Store
	registry  *prometheus.Registry

	serverErr chan error
}

// New builds the full collaborator graph from configuration. All clients are
// constructed here and injected; nothing reaches for globals.
func New(cfg *config.Config) (*Daemon, error) {
	var registry *prometheus.Registry
	var recorder metrics.Recorder = metrics.NoopRecorder{}
	if cfg.Metrics.Enabled {
		registry = prometheus.NewRegistry()
		recorder = metrics.NewPrometheusRecorder(registry)
	}

	var events eventstore.Store = eventstore.NoopStore{}
	if cfg.Events.Path != "" {
		store, err := eventstore.NewSQLiteStore(cfg.Events.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open event store: %w", err)
		}
		events = store
	}

	gen, err := generator.NewClient(generator.Options{
		APIKey:  cfg.Generator.APIKey,
		BaseURL: cfg.Generator.BaseURL,
		Model:   cfg.Generator.Model,
	})
	if err != nil {
		return nil, err
	}

	engine, err := forge.NewGitHubClient(forge.Options{
		Token:   cfg.GitHub.Token,
		Owner:   cfg.GitHub.Owner,
		APIURL:  cfg.GitHub.APIURL,
		BaseURL: cfg.GitHub.BaseURL,
	})
	if err != nil {
		return nil, err
	}

	dispatcher := callback.NewDispatcher(callback.NewBackoffPolicy(
		cfg.Callback.InitialDelay,
		cfg.Callback.MaxDelay,
		cfg.Callback.MaxAttempts,
	), recorder)

	orchestrator := pipeline.New(gen, engine, dispatcher, recorder, events)
	taskQueue := queue.NewTaskQueue(cfg.Queue.MaxSize, cfg.Queue.Workers, orchestrator, recorder)

	d := &Daemon{
		cfg:       cfg,
		queue:     taskQueue,
		server:    server.New(cfg, taskQueue, events, registry),
		events:    events,
		registry:  registry,
		serverErr: make(chan error, 1),
	}

	d.scheduler, err = NewScheduler(taskQueue, recorder)
	if err != nil {
		return nil, err
	}

	if cfg.NATS.Enabled {
		ingress, err := queue.NewNATSIngress(cfg.NATS.URL, cfg.NATS.Subject, taskQueue)
		if err != nil {
			return nil, err
		}
		d.nats = ingress
	}

	return d, nil
}

// Start brings up workers, scheduler, optional NATS ingress, and the HTTP
// server, then blocks until the server exits or ctx is cancelled.
func (d *Daemon) Start(ctx context.Context) error {
	d.queue.Start(ctx)
	d.scheduler.Start(ctx)
	if d.nats != nil {
		if err := d.nats.Start(); err != nil {
			return err
		}
	}

	go func() {
		d.serverErr <- d.server.Start()
	}()

	select {
	case err := <-d.serverErr:
		return err
	case <-ctx.Done():
		return nil
	}
}

// Stop shuts everything down in dependency order: ingress first so no new
// tasks arrive, then workers (bounded wait for in-flight tasks), then the
// stores.
func (d *Daemon) Stop(ctx context.Context) error {
	if err := d.server.Stop(ctx); err != nil {
		slog.Warn("Ingress server shutdown failed", logfields.Error(err))
	}
	if d.nats != nil {
		if err := d.nats.Close(); err != nil {
			slog.Warn("NATS ingress shutdown failed", logfields.Error(err))
		}
	}
	if err := d.scheduler.Stop(); err != nil {
		slog.Warn("Scheduler shutdown failed", logfields.Error(err))
	}
	if err := d.queue.Stop(ctx); err != nil {
		slog.Warn("Worker shutdown timed out; in-flight tasks are lost", logfields.Error(err))
	}
	if err := d.events.Close(); err != nil {
		slog.Warn("Event store close failed", logfields.Error(err))
	}
	return nil
}
