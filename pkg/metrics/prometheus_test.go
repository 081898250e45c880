package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.RecordSignalIngested("1d", "kafka")
	r.RecordSignalIngested("1d", "kafka")
	r.RecordAlignment("strong_buy")
	r.RecordCacheLookup(true)
	r.RecordCacheLookup(false)
	r.RecordCacheLookup(false)
	r.RecordError("db")
	r.RecordLatency("recompute", 0.2)

	assert.Equal(t, float64(2), testutil.ToFloat64(r.signalsIngested.WithLabelValues("1d", "kafka")))
	assert.Equal(t, float64(1), testutil.ToFloat64(r.alignments.WithLabelValues("strong_buy")))
	assert.Equal(t, float64(1), testutil.ToFloat64(r.cacheLookups.WithLabelValues("hit")))
	assert.Equal(t, float64(2), testutil.ToFloat64(r.cacheLookups.WithLabelValues("miss")))
	assert.Equal(t, float64(1), testutil.ToFloat64(r.errorsTotal.WithLabelValues("db")))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.Len(t, families, 5)
}

func TestNilRecorderIsNoop(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.RecordSignalIngested("1h", "api")
		r.RecordAlignment("neutral")
		r.RecordCacheLookup(true)
		r.RecordError("x")
		r.RecordLatency("x", 1)
	})
}
