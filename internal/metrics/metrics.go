// Package metrics holds the Prometheus collectors recorded by the parse
// coordinator. A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "atemporal"

// Result label values.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Cache level and outcome label values.
const (
	LevelMemory     = "memory"
	LevelPersistent = "persistent"

	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheStore = "store"
	CacheError = "error"
)

// Metrics groups the collectors for one registry.
type Metrics struct {
	// ParseTotal counts parse attempts.
	// Labels: strategy, result (ok, error)
	ParseTotal *prometheus.CounterVec

	// ParseDuration measures full parse attempts including cache lookups.
	// Labels: strategy
	ParseDuration *prometheus.HistogramVec

	// FastPathTotal counts attempts answered by a strategy fast path.
	// Labels: strategy
	FastPathTotal *prometheus.CounterVec

	// CacheTotal counts memo cache events.
	// Labels: level (memory, persistent), result (hit, miss, store, error)
	CacheTotal *prometheus.CounterVec
}

// New creates the collectors and registers them with reg. A nil reg
// leaves them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ParseTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "parse_total",
			Help:      "Parse attempts by selected strategy and result",
		}, []string{"strategy", "result"}),
		ParseDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "parse_duration_seconds",
			Help:      "Parse attempt latency by selected strategy",
			Buckets:   []float64{1e-6, 5e-6, 1e-5, 5e-5, 1e-4, 5e-4, 1e-3, 5e-3, 1e-2},
		}, []string{"strategy"}),
		FastPathTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fast_path_total",
			Help:      "Parse attempts answered by a fast path",
		}, []string{"strategy"}),
		CacheTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_total",
			Help:      "Memo cache events by level and result",
		}, []string{"level", "result"}),
	}
}

// ObserveParse records one finished attempt.
func (m *Metrics) ObserveParse(strategy string, ok bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	result := ResultOK
	if !ok {
		result = ResultError
	}
	m.ParseTotal.WithLabelValues(strategy, result).Inc()
	m.ParseDuration.WithLabelValues(strategy).Observe(elapsed.Seconds())
}

// ObserveFastPath records an attempt answered by a fast path.
func (m *Metrics) ObserveFastPath(strategy string) {
	if m == nil {
		return
	}
	m.FastPathTotal.WithLabelValues(strategy).Inc()
}

// ObserveCache records a cache event.
func (m *Metrics) ObserveCache(level, result string) {
	if m == nil {
		return
	}
	m.CacheTotal.WithLabelValues(level, result).Inc()
}
