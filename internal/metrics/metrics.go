// Package metrics exposes Prometheus instrumentation for the commit log.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gitlane"

// Metrics holds the collectors of one process. Each instance owns its
// registry, so tests can create as many as they like.
type Metrics struct {
	Registry *prometheus.Registry

	CommitsDrained   prometheus.Counter
	Reloads          *prometheus.CounterVec
	RedeliveryFaults prometheus.Counter
	WidthOverflows   prometheus.Counter
	GraphWidth       prometheus.Histogram
	LoadDuration     prometheus.Histogram
	LogEntries       prometheus.Gauge
	WatchEvents      prometheus.Counter
	Clients          prometheus.Gauge
}

// New registers every collector on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		CommitsDrained: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commits_drained_total",
			Help:      "Commits taken from the commit list.",
		}),
		Reloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reloads_total",
			Help:      "Log reloads by result.",
		}, []string{"result"}),
		RedeliveryFaults: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commit_redelivery_faults_total",
			Help:      "Commits the commit list produced twice.",
		}),
		WidthOverflows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "graph_width_overflows_total",
			Help:      "Loads stopped because the graph grew too wide.",
		}),
		GraphWidth: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "graph_width_columns",
			Help:      "Width of rendered graph rows.",
			Buckets:   []float64{1, 2, 4, 8, 16, 32, 64, 128},
		}),
		LoadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "load_duration_seconds",
			Help:      "Time spent draining the commit list.",
			Buckets:   prometheus.DefBuckets,
		}),
		LogEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "log_entries",
			Help:      "Entries in the current log.",
		}),
		WatchEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "watch_events_total",
			Help:      "Reference changes seen by the repository watcher.",
		}),
		Clients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "websocket_clients",
			Help:      "Connected websocket clients.",
		}),
	}

	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.CommitsDrained,
		m.Reloads,
		m.RedeliveryFaults,
		m.WidthOverflows,
		m.GraphWidth,
		m.LoadDuration,
		m.LogEntries,
		m.WatchEvents,
		m.Clients,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}
