// Package metrics exposes daemon counters in Prometheus format.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "arcade"

// Metrics holds the daemon's collectors. Each daemon owns its own registry
// so tests can create several without duplicate registration panics.
type Metrics struct {
	registry *prometheus.Registry

	polls          *prometheus.CounterVec
	pollDuration   prometheus.Histogram
	phase          *prometheus.GaugeVec
	failures       prometheus.Gauge
	notifications  *prometheus.CounterVec
	refreshes      *prometheus.CounterVec
	activityEvents prometheus.Counter
	nudges         prometheus.Counter
	subscribers    prometheus.GaugeFunc
}

// Phases lists every label value of the phase gauge.
var Phases = []string{"setup", "loading", "active", "paused", "completed", "error"}

// New registers all collectors. subscribers reports the live stream count.
func New(subscribers func() int) *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "polls_total",
			Help:      "Session polls by outcome.",
		}, []string{"outcome"}),
		pollDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "poll_duration_seconds",
			Help:      "Time spent fetching the session, retries included.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}),
		phase: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "phase",
			Help:      "1 for the current session phase, 0 otherwise.",
		}, []string{"phase"}),
		failures: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "consecutive_failures",
			Help:      "Consecutive failed polls.",
		}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notifications emitted by kind.",
		}, []string{"kind"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refreshes_total",
			Help:      "Forced refresh requests by result.",
		}, []string{"result"}),
		activityEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "activity_events_total",
			Help:      "Editing activity events received.",
		}),
		nudges: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "idle_nudges_total",
			Help:      "Start reminders shown.",
		}),
	}
	if subscribers == nil {
		subscribers = func() int { return 0 }
	}
	m.subscribers = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "stream_subscribers",
		Help:      "Connected stream and websocket clients.",
	}, func() float64 { return float64(subscribers()) })

	reg.MustRegister(
		m.polls, m.pollDuration, m.phase, m.failures, m.notifications,
		m.refreshes, m.activityEvents, m.nudges, m.subscribers,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObservePoll records one completed poll.
func (m *Metrics) ObservePoll(outcome string, took time.Duration) {
	m.polls.WithLabelValues(outcome).Inc()
	m.pollDuration.Observe(took.Seconds())
}

// SetPhase marks phase as the current one.
func (m *Metrics) SetPhase(phase string) {
	for _, p := range Phases {
		v := 0.0
		if p == phase {
			v = 1
		}
		m.phase.WithLabelValues(p).Set(v)
	}
}

func (m *Metrics) SetFailures(n int) {
	m.failures.Set(float64(n))
}

func (m *Metrics) Notification(kind string) {
	m.notifications.WithLabelValues(kind).Inc()
}

// Refresh records a forced refresh; started is false when it was coalesced.
func (m *Metrics) Refresh(started bool) {
	result := "coalesced"
	if started {
		result = "started"
	}
	m.refreshes.WithLabelValues(result).Inc()
}

func (m *Metrics) Activity() {
	m.activityEvents.Inc()
}

func (m *Metrics) Nudge() {
	m.nudges.Inc()
}
