// Package server exposes the ingress HTTP API: task submission, health,
// metrics, and the task event audit read.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"git.home.luguber.info/inful/pagesmith/internal/config"
	"git.home.luguber.info/inful/pagesmith/internal/eventstore"
	"git.home.luguber.info/inful/pagesmith/internal/queue"
)

// Server is the ingress HTTP server.
type Server struct {
	httpServer *http.Server
	handlers   *TaskHandlers
}

// New creates the ingress server. The Prometheus registry is optional; when
// nil the /metrics endpoint is not registered.
func New(cfg *config.Config, q *queue.TaskQueue, events eventstore.Store, registry *prometheus.Registry) *Server {
	handlers := NewTaskHandlers(cfg.Server.Secret, q, events)

	mux := http.NewServeMux()
	mux.HandleFunc("/task", handlers.HandleTask)
	mux.HandleFunc("/healthz", handlers.HandleHealth)
	mux.HandleFunc("/api/tasks", handlers.HandleTaskList)
	mux.HandleFunc("/api/tasks/", handlers.HandleTaskEvents)
	if cfg.Metrics.Enabled && registry != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	return &Server{
		httpServer: &http.Server{
			Addr:         cfg.Server.Addr,
			Handler:      mux,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		handlers: handlers,
	}
}

// Start begins serving. Blocks until the server stops.
func (s *Server) Start() error {
	slog.Info("Ingress HTTP server starting", "addr", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop shuts the server down gracefully, bounded by ctx.
func (s *Server) Stop(ctx context.Context) error {
	slog.Info("Ingress HTTP server stopping")
	return s.httpServer.Shutdown(ctx)
}
