// Package metrics exposes Prometheus instrumentation for registry lookups.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Lookup outcomes used as the "outcome" label.
const (
	OutcomeFresh       = "fresh"
	OutcomeCached      = "cached"
	OutcomeInvalid     = "invalid"
	OutcomeNotFound    = "not_found"
	OutcomeUnavailable = "unavailable"
)

// Metrics holds lookup counters and latencies. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	Lookups            *prometheus.CounterVec
	FetchLatency       prometheus.Histogram
	CacheWriteFailures prometheus.Counter
}

// New creates the lookup metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Lookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "abn_lookups_total",
			Help: "Total ABN lookups by outcome",
		}, []string{"outcome"}),

		FetchLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "abn_fetch_duration_seconds",
			Help:    "Duration of upstream registry page fetches",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),

		CacheWriteFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "abn_cache_write_failures_total",
			Help: "Total failed cache writes; lookups still succeed",
		}),
	}
}

// IncLookup records a terminal lookup outcome.
func (m *Metrics) IncLookup(outcome string) {
	if m != nil {
		m.Lookups.WithLabelValues(outcome).Inc()
	}
}

// ObserveFetch records one upstream fetch duration.
func (m *Metrics) ObserveFetch(d time.Duration) {
	if m != nil {
		m.FetchLatency.Observe(d.Seconds())
	}
}

// IncCacheWriteFailure counts a cache write that failed.
func (m *Metrics) IncCacheWriteFailure() {
	if m != nil {
		m.CacheWriteFailures.Inc()
	}
}
