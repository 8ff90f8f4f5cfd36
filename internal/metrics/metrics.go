// Package metrics exposes node evaluation and session metrics to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vk/framegraph/internal/node"
)

const namespace = "framegraph"

// Result label values.
const (
	ResultOK     = "ok"
	ResultFailed = "failed"
)

// Metrics holds every collector. Create one per process with New.
type Metrics struct {
	// Evaluations counts node computes by node type and result.
	Evaluations *prometheus.CounterVec
	// ComputeSeconds measures compute duration by node type.
	ComputeSeconds *prometheus.HistogramVec
	// Invalidations counts settled nodes turned stale, by node type.
	Invalidations *prometheus.CounterVec
	// CommandSeconds measures session command duration.
	CommandSeconds prometheus.Histogram
	// CommandErrors counts session commands that returned an error.
	CommandErrors prometheus.Counter

	gatherer prometheus.Gatherer
}

// New registers the collectors with reg. A nil reg gets a fresh registry
// that also carries the Go and process collectors.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	factory := promauto.With(reg)
	return &Metrics{
		Evaluations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "node",
			Name:      "evaluations_total",
			Help:      "Node computes by node type and result.",
		}, []string{"type", "result"}),
		ComputeSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "node",
			Name:      "compute_seconds",
			Help:      "Node compute duration in seconds.",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"type"}),
		Invalidations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "node",
			Name:      "invalidations_total",
			Help:      "Settled nodes invalidated, by node type.",
		}, []string{"type"}),
		CommandSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "command_seconds",
			Help:      "Session command duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}),
		CommandErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "command_errors_total",
			Help:      "Session commands that returned an error.",
		}),
		gatherer: reg,
	}
}

// Observe records one node event. It has the node.Listener signature.
func (m *Metrics) Observe(ev node.Event) {
	typeName := ev.Node.Type()
	switch ev.Kind {
	case node.ResultsChanged:
		m.Evaluations.WithLabelValues(typeName, ResultOK).Inc()
		m.ComputeSeconds.WithLabelValues(typeName).Observe(ev.Duration.Seconds())
	case node.ComputeFailed:
		m.Evaluations.WithLabelValues(typeName, ResultFailed).Inc()
		m.ComputeSeconds.WithLabelValues(typeName).Observe(ev.Duration.Seconds())
	case node.Invalidated:
		m.Invalidations.WithLabelValues(typeName).Inc()
	}
}

// ObserveCommand records one session command. It has the
// session.Observer signature.
func (m *Metrics) ObserveCommand(d time.Duration, err error) {
	m.CommandSeconds.Observe(d.Seconds())
	if err != nil {
		m.CommandErrors.Inc()
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
