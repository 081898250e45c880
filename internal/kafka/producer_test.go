package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trogers1052/ichimoku-signal-service/internal/models"
)

type mockWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *mockWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *mockWriter) Close() error {
	w.closed = true
	return nil
}

func TestProducer_PublishAlignmentUpdated(t *testing.T) {
	fixed := time.Date(2026, 7, 1, 8, 0, 0, 0, time.UTC)
	w := &mockWriter{}
	p := &Producer{writer: w, topic: "alignment", now: func() time.Time { return fixed }}

	warning := "Timeframe conflict: 1h is bearish while the dominant trend is bullish"
	analysis := &models.MultiTimeframeAnalysis{
		Symbol:          "BTCUSDT",
		ConflictWarning: &warning,
		OverallStrength: 72,
		Recommendation:  models.RecommendationStrongBuy,
	}
	require.NoError(t, p.PublishAlignmentUpdated(context.Background(), analysis))

	require.Len(t, w.msgs, 1)
	assert.Equal(t, "BTCUSDT", string(w.msgs[0].Key))

	var event models.AlignmentEvent
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &event))
	assert.Equal(t, models.EventAlignmentUpdated, event.EventType)
	assert.Equal(t, "BTCUSDT", event.Symbol)
	assert.True(t, fixed.Equal(event.Timestamp))
	require.NotNil(t, event.Analysis)
	assert.Equal(t, models.RecommendationStrongBuy, event.Analysis.Recommendation)
	require.NotNil(t, event.Analysis.ConflictWarning)
	assert.Equal(t, warning, *event.Analysis.ConflictWarning)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestProducer_WriteError(t *testing.T) {
	p := &Producer{writer: &mockWriter{err: errors.New("leader not available")}, now: time.Now}
	err := p.PublishAlignmentUpdated(context.Background(), &models.MultiTimeframeAnalysis{Symbol: "ETHUSDT"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to write message to kafka")
}
