package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder records service metrics in Prometheus. A nil *Recorder is a no-op.
type Recorder struct {
	signalsIngested *prometheus.CounterVec
	alignments      *prometheus.CounterVec
	cacheLookups    *prometheus.CounterVec
	errorsTotal     *prometheus.CounterVec
	latency         *prometheus.HistogramVec
}

// New creates a recorder registered with reg. Pass prometheus.DefaultRegisterer
// to expose the metrics on the default /metrics handler.
func New(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		signalsIngested: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ichimoku_signals_ingested_total",
				Help: "Total number of trading signals stored",
			},
			[]string{"timeframe", "source"},
		),
		alignments: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ichimoku_alignments_computed_total",
				Help: "Total number of alignment analyses computed",
			},
			[]string{"recommendation"},
		),
		cacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ichimoku_cache_lookups_total",
				Help: "Alignment cache lookups by result",
			},
			[]string{"result"},
		),
		errorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ichimoku_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ichimoku_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordSignalIngested records a stored signal.
func (r *Recorder) RecordSignalIngested(timeframe, source string) {
	if r == nil {
		return
	}
	r.signalsIngested.WithLabelValues(timeframe, source).Inc()
}

// RecordAlignment records a computed analysis by its recommendation.
func (r *Recorder) RecordAlignment(recommendation string) {
	if r == nil {
		return
	}
	r.alignments.WithLabelValues(recommendation).Inc()
}

// RecordCacheLookup records a cache hit or miss.
func (r *Recorder) RecordCacheLookup(hit bool) {
	if r == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cacheLookups.WithLabelValues(result).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	if r == nil {
		return
	}
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	if r == nil {
		return
	}
	r.latency.WithLabelValues(op).Observe(seconds)
}
