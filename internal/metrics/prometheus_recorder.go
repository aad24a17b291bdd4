package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once               sync.Once
	stageDuration      *prom.HistogramVec
	taskDuration       prom.Histogram
	taskOutcome        *prom.CounterVec
	callbackAttempts   prom.Counter
	callbackDeliveries *prom.CounterVec
	queueDepth         prom.Gauge
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.stageDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "pagesmith",
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual pipeline stages",
			Buckets:   prom.DefBuckets,
		}, []string{"stage"})
		pr.taskDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "pagesmith",
			Name:      "task_duration_seconds",
			Help:      "Total task duration from pickup to terminal callback",
			Buckets:   prom.DefBuckets,
		})
		pr.taskOutcome = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "pagesmith",
			Name:      "task_outcomes_total",
			Help:      "Task outcomes by terminal status",
		}, []string{"outcome"})
		pr.callbackAttempts = prom.NewCounter(prom.CounterOpts{
			Namespace: "pagesmith",
			Name:      "callback_attempts_total",
			Help:      "Individual callback delivery attempts",
		})
		pr.callbackDeliveries = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "pagesmith",
			Name:      "callback_deliveries_total",
			Help:      "Callback delivery sequences by final result",
		}, []string{"result"})
		pr.queueDepth = prom.NewGauge(prom.GaugeOpts{
			Namespace: "pagesmith",
			Name:      "queue_depth",
			Help:      "Tasks waiting in the worker queue",
		})
		reg.MustRegister(pr.stageDuration, pr.taskDuration, pr.taskOutcome, pr.callbackAttempts, pr.callbackDeliveries, pr.queueDepth)
	})
	return pr
}

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	if p == nil || p.stageDuration == nil {
		return
	}
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveTaskDuration(d time.Duration) {
	if p == nil || p.taskDuration == nil {
		return
	}
	p.taskDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncTaskOutcome(outcome OutcomeLabel) {
	if p == nil || p.taskOutcome == nil {
		return
	}
	p.taskOutcome.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) IncCallbackAttempt() {
	if p == nil || p.callbackAttempts == nil {
		return
	}
	p.callbackAttempts.Inc()
}

func (p *PrometheusRecorder) IncCallbackDelivery(delivered bool) {
	if p == nil || p.callbackDeliveries == nil {
		return
	}
	res := "abandoned"
	if delivered {
		res = "delivered"
	}
	p.callbackDeliveries.WithLabelValues(res).Inc()
}

func (p *PrometheusRecorder) SetQueueDepth(n int) {
	if p == nil || p.queueDepth == nil {
		return
	}
	p.queueDepth.Set(float64(n))
}
