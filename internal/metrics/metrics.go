// Package metrics exposes the application's Prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"grateful/internal/entries"
)

const namespace = "grateful"

// Reminder delivery results.
const (
	ResultSent   = "sent"
	ResultFailed = "failed"
)

// Metrics owns a private registry so tests can create as many as they need.
type Metrics struct {
	registry *prometheus.Registry

	EntriesCreated prometheus.Counter
	EntriesDeleted prometheus.Counter
	Streak         prometheus.Gauge
	RemindersSent  *prometheus.CounterVec
	HTTPRequests   *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		EntriesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entries_created_total",
			Help:      "Gratitude entries written.",
		}),
		EntriesDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entries_deleted_total",
			Help:      "Gratitude entries removed from the store.",
		}),
		Streak: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "streak_days",
			Help:      "Current daily streak as of the last computed snapshot.",
		}),
		RemindersSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminders_sent_total",
			Help:      "Daily reminder deliveries by result.",
		}, []string{"result"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"path", "status"}),
	}

	m.registry.MustRegister(
		m.EntriesCreated,
		m.EntriesDeleted,
		m.Streak,
		m.RemindersSent,
		m.HTTPRequests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry holding every collector.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveEntries counts store changes published on the hub.
func (m *Metrics) ObserveEntries(ev entries.Event) {
	switch ev.Kind {
	case entries.EventCreated:
		m.EntriesCreated.Inc()
	case entries.EventDeleted:
		m.EntriesDeleted.Inc()
	}
}

func (m *Metrics) SetStreak(days int) {
	m.Streak.Set(float64(days))
}

func (m *Metrics) ReminderDelivered(err error) {
	result := ResultSent
	if err != nil {
		result = ResultFailed
	}
	m.RemindersSent.WithLabelValues(result).Inc()
}

func (m *Metrics) HTTPRequest(path string, status int) {
	m.HTTPRequests.WithLabelValues(path, strconv.Itoa(status)).Inc()
}
