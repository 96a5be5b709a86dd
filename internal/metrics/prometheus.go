package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	outcomeLabel = "outcome"
	resultLabel  = "result"
	statusLabel  = "status"
)

// Config names the metric family.
type Config struct {
	Namespace string
	Subsystem string
}

// DefaultConfig returns the namespace used in production dashboards.
func DefaultConfig() Config {
	return Config{
		Namespace: "ares",
		Subsystem: "marketdata",
	}
}

// Metrics is the Prometheus-backed Engine.
type Metrics struct {
	Registry *prometheus.Registry

	fetches        *prometheus.CounterVec
	fetchTimer     *prometheus.HistogramVec
	cacheLookups   *prometheus.CounterVec
	pollMarkets    *prometheus.CounterVec
	pollCycles     prometheus.Counter
	pollCycleTimer prometheus.Histogram
}

var _ Engine = (*Metrics)(nil)

// NewMetrics registers all instruments on a fresh registry.
func NewMetrics(cfg Config) *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{Registry: registry}

	m.fetches = newCounter(cfg, registry,
		"fetches_total",
		"Count of market data fetches by outcome.",
		[]string{outcomeLabel})

	m.fetchTimer = newHistogramVec(cfg, registry,
		"fetch_duration_seconds",
		"Seconds to fetch and decode one market snapshot.",
		[]string{outcomeLabel},
		[]float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30})

	m.cacheLookups = newCounter(cfg, registry,
		"cache_lookups_total",
		"Count of snapshot cache lookups by result.",
		[]string{resultLabel})

	m.pollMarkets = newCounter(cfg, registry,
		"poll_markets_total",
		"Count of markets polled by status.",
		[]string{statusLabel})

	m.pollCycles = newCounterWithoutLabels(cfg, registry,
		"poll_cycles_total",
		"Count of completed poll cycles.")

	m.pollCycleTimer = newHistogram(cfg, registry,
		"poll_cycle_duration_seconds",
		"Seconds to complete one poll cycle.",
		[]float64{0.5, 1, 5, 10, 30, 60, 120, 300})

	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

func (m *Metrics) RecordFetch(outcome FetchOutcome, duration time.Duration) {
	m.fetches.WithLabelValues(string(outcome)).Inc()
	m.fetchTimer.WithLabelValues(string(outcome)).Observe(duration.Seconds())
}

func (m *Metrics) RecordCacheLookup(result CacheResult) {
	m.cacheLookups.WithLabelValues(string(result)).Inc()
}

func (m *Metrics) RecordPollCycle(fetched, failed int, duration time.Duration) {
	m.pollMarkets.WithLabelValues("fetched").Add(float64(fetched))
	m.pollMarkets.WithLabelValues("failed").Add(float64(failed))
	m.pollCycles.Inc()
	m.pollCycleTimer.Observe(duration.Seconds())
}

func newCounter(cfg Config, registry *prometheus.Registry, name, help string, labels []string) *prometheus.CounterVec {
	opts := prometheus.CounterOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      name,
		Help:      help,
	}
	counter := prometheus.NewCounterVec(opts, labels)
	registry.MustRegister(counter)
	return counter
}

func newCounterWithoutLabels(cfg Config, registry *prometheus.Registry, name, help string) prometheus.Counter {
	opts := prometheus.CounterOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      name,
		Help:      help,
	}
	counter := prometheus.NewCounter(opts)
	registry.MustRegister(counter)
	return counter
}

func newHistogramVec(cfg Config, registry *prometheus.Registry, name, help string, labels []string, buckets []float64) *prometheus.HistogramVec {
	opts := prometheus.HistogramOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      name,
		Help:      help,
		Buckets:   buckets,
	}
	histogram := prometheus.NewHistogramVec(opts, labels)
	registry.MustRegister(histogram)
	return histogram
}

func newHistogram(cfg Config, registry *prometheus.Registry, name, help string, buckets []float64) prometheus.Histogram {
	opts := prometheus.HistogramOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      name,
		Help:      help,
		Buckets:   buckets,
	}
	histogram := prometheus.NewHistogram(opts)
	registry.MustRegister(histogram)
	return histogram
}
