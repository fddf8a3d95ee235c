// Package metrics exposes alacarte's Prometheus instrumentation
// (SPEC_FULL.md §C.2): queue depth, cache hit/miss, and per-phase render
// duration, using github.com/prometheus/client_golang. Each Metrics value
// owns its own Registry, and the bundle is handed to collaborators at
// construction time instead of being read back out of a global.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles every collector alacarte's server wiring registers.
// Collaborators that record metrics (the HTTP server, the renderer) hold
// a *Metrics and update the collectors they use.
type Metrics struct {
	registry *prometheus.Registry

	UserQueueDepth    prometheus.Gauge
	PrerenderQueue    prometheus.Gauge
	CacheHits         prometheus.Counter
	CacheMisses       prometheus.Counter
	RequestsTotal     *prometheus.CounterVec
	RenderDuration    *prometheus.HistogramVec
	RenderPhaseDur    *prometheus.HistogramVec
	StylesheetReloads prometheus.Counter
}

// New creates a Metrics bundle and registers every collector against a
// fresh registry (never the global DefaultRegisterer, so tests can build
// as many independent instances as they like).
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		UserQueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "alacarte",
			Subsystem: "reqmgr",
			Name:      "user_queue_depth",
			Help:      "Current number of requests waiting in the bounded user queue.",
		}),
		PrerenderQueue: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "alacarte",
			Subsystem: "reqmgr",
			Name:      "prerender_queue_depth",
			Help:      "Current number of jobs waiting in the unbounded prerender queue.",
		}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "alacarte",
			Subsystem: "tilecache",
			Name:      "hits_total",
			Help:      "Tile cache lookups served from memory or disk.",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "alacarte",
			Subsystem: "tilecache",
			Name:      "misses_total",
			Help:      "Tile cache lookups that required a render.",
		}),
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "alacarte",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP tile requests by status code.",
		}, []string{"status"}),
		RenderDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "alacarte",
			Subsystem: "renderer",
			Name:      "meta_render_seconds",
			Help:      "Wall time a tile request waits for its meta-tile job, queueing included.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"format"}),
		RenderPhaseDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "alacarte",
			Subsystem: "renderer",
			Name:      "phase_seconds",
			Help:      "Wall time spent in each render phase.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"phase"}),
		StylesheetReloads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "alacarte",
			Subsystem: "stylemgr",
			Name:      "reloads_total",
			Help:      "Stylesheets created or modified, as reported by the filesystem watch.",
		}),
	}

	reg.MustRegister(
		m.UserQueueDepth,
		m.PrerenderQueue,
		m.CacheHits,
		m.CacheMisses,
		m.RequestsTotal,
		m.RenderDuration,
		m.RenderPhaseDur,
		m.StylesheetReloads,
	)
	return m
}

// Handler returns the /metrics HTTP handler serving this bundle's
// registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
