// Package metrics exposes Prometheus instrumentation for the arbiter and its
// producers. Collectors live on an explicit registry owned by the daemon.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder holds every collector. A nil *Recorder is valid and records
// nothing.
type Recorder struct {
	registry *prometheus.Registry

	requests       *prometheus.CounterVec
	drops          *prometheus.CounterVec
	launchTimeouts prometheus.Counter
	launchFailures prometheus.Counter
	sessionActive  prometheus.Gauge
	queueDepth     prometheus.Gauge
	matchScore     prometheus.Histogram
}

// New builds a Recorder on a fresh registry, including Go runtime and
// process collectors.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	// No request or tag identifiers in labels.
	return &Recorder{
		registry: reg,
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gamearbiter_requests_total",
			Help: "Total number of arbitrated requests, by source and outcome.",
		}, []string{"source", "outcome"}),
		drops: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gamearbiter_requests_dropped_total",
			Help: "Total number of requests dropped before arbitration, by source and reason.",
		}, []string{"source", "reason"}),
		launchTimeouts: factory.NewCounter(prometheus.CounterOpts{
			Name: "gamearbiter_launch_timeouts_total",
			Help: "Total number of sessions cleared because the launcher did not acknowledge.",
		}),
		launchFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "gamearbiter_launch_failures_total",
			Help: "Total number of launches rejected by the launcher.",
		}),
		sessionActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "gamearbiter_session_active",
			Help: "1 while a request is being resolved, launched or awaiting a choice.",
		}),
		queueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "gamearbiter_queue_depth",
			Help: "Requests waiting in the inbound queue.",
		}),
		matchScore: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "gamearbiter_match_score",
			Help:    "Score of the best title match per title request.",
			Buckets: []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 95, 100},
		}),
	}
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// RequestDecided counts one arbitration outcome.
func (r *Recorder) RequestDecided(source, outcome string) {
	if r == nil {
		return
	}
	r.requests.WithLabelValues(source, outcome).Inc()
}

// RequestDropped counts a request discarded before arbitration.
func (r *Recorder) RequestDropped(source, reason string) {
	if r == nil {
		return
	}
	r.drops.WithLabelValues(source, reason).Inc()
}

// LaunchTimedOut counts a forcibly cleared session.
func (r *Recorder) LaunchTimedOut() {
	if r == nil {
		return
	}
	r.launchTimeouts.Inc()
}

// LaunchFailed counts a launcher error.
func (r *Recorder) LaunchFailed() {
	if r == nil {
		return
	}
	r.launchFailures.Inc()
}

// SessionActive sets the session gauge.
func (r *Recorder) SessionActive(active bool) {
	if r == nil {
		return
	}
	if active {
		r.sessionActive.Set(1)
	} else {
		r.sessionActive.Set(0)
	}
}

// QueueDepth records the inbound queue length.
func (r *Recorder) QueueDepth(n int) {
	if r == nil {
		return
	}
	r.queueDepth.Set(float64(n))
}

// ObserveScore records the best candidate score of a title lookup.
func (r *Recorder) ObserveScore(score int) {
	if r == nil {
		return
	}
	r.matchScore.Observe(float64(score))
}
