package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trogers1052/ichimoku-signal-service/internal/models"
)

type ingestCall struct {
	signal    *models.TradingSignal
	symbol    string
	timeframe models.Timeframe
	candles   int
	source    string
}

type mockIngester struct {
	mu     sync.Mutex
	calls  []ingestCall
	err    error
	called chan struct{}
}

func (m *mockIngester) record(call ingestCall) (*models.MultiTimeframeAnalysis, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
	if m.called != nil {
		select {
		case m.called <- struct{}{}:
		default:
		}
	}
	if m.err != nil {
		return nil, m.err
	}
	symbol := call.symbol
	if call.signal != nil {
		symbol = call.signal.Symbol
	}
	return &models.MultiTimeframeAnalysis{Symbol: symbol, Recommendation: models.RecommendationBuy}, nil
}

func (m *mockIngester) Ingest(ctx context.Context, s *models.TradingSignal, source string) (*models.MultiTimeframeAnalysis, error) {
	return m.record(ingestCall{signal: s, source: source})
}

func (m *mockIngester) IngestCandles(ctx context.Context, symbol string, tf models.Timeframe, candles []models.Candle, source string) (*models.MultiTimeframeAnalysis, error) {
	return m.record(ingestCall{symbol: symbol, timeframe: tf, candles: len(candles), source: source})
}

func (m *mockIngester) Calls() []ingestCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ingestCall(nil), m.calls...)
}

type mockReader struct {
	cfg  kafka.ReaderConfig
	msgs chan kafka.Message

	mu         sync.Mutex
	closeCalls int
}

func newMockReader(topic string, buffer int) *mockReader {
	return &mockReader{
		cfg:  kafka.ReaderConfig{Topic: topic},
		msgs: make(chan kafka.Message, buffer),
	}
}

func (r *mockReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case msg := <-r.msgs:
		return msg, nil
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	}
}

func (r *mockReader) Close() error {
	r.mu.Lock()
	r.closeCalls++
	r.mu.Unlock()
	return nil
}

func (r *mockReader) Config() kafka.ReaderConfig {
	return r.cfg
}

func mustMessage(t *testing.T, event models.SignalEvent) kafka.Message {
	t.Helper()
	payload, err := json.Marshal(event)
	require.NoError(t, err)
	return kafka.Message{Key: []byte(event.Symbol), Value: payload}
}

func TestConsumer_processMessage(t *testing.T) {
	ctx := context.Background()

	t.Run("signal emitted", func(t *testing.T) {
		ing := &mockIngester{}
		consumer := &Consumer{ingester: ing}

		msg := mustMessage(t, models.SignalEvent{
			EventType: models.EventSignalEmitted,
			Symbol:    "BTCUSDT",
			Signal: &models.TradingSignal{
				Symbol:         "BTCUSDT",
				Timeframe:      models.Timeframe4H,
				CurrentPrice:   decimal.RequireFromString("64000.5"),
				Signal:         models.SignalLong,
				SignalStrength: 75,
			},
			Timestamp: time.Now(),
		})

		require.NoError(t, consumer.processMessage(ctx, msg))
		calls := ing.Calls()
		require.Len(t, calls, 1)
		require.NotNil(t, calls[0].signal)
		assert.Equal(t, models.Timeframe4H, calls[0].signal.Timeframe)
		assert.True(t, decimal.RequireFromString("64000.5").Equal(calls[0].signal.CurrentPrice))
		assert.Equal(t, "kafka", calls[0].source)
	})

	t.Run("candles closed", func(t *testing.T) {
		ing := &mockIngester{}
		consumer := &Consumer{ingester: ing}

		msg := mustMessage(t, models.SignalEvent{
			EventType: models.EventCandlesClosed,
			Symbol:    "ETHUSDT",
			Timeframe: models.Timeframe1D,
			Candles:   make([]models.Candle, 80),
		})

		require.NoError(t, consumer.processMessage(ctx, msg))
		calls := ing.Calls()
		require.Len(t, calls, 1)
		assert.Equal(t, "ETHUSDT", calls[0].symbol)
		assert.Equal(t, models.Timeframe1D, calls[0].timeframe)
		assert.Equal(t, 80, calls[0].candles)
	})

	t.Run("candles with bad timeframe", func(t *testing.T) {
		ing := &mockIngester{}
		consumer := &Consumer{ingester: ing}

		msg := mustMessage(t, models.SignalEvent{EventType: models.EventCandlesClosed, Symbol: "ETHUSDT", Timeframe: "2h"})
		assert.Error(t, consumer.processMessage(ctx, msg))
		assert.Empty(t, ing.Calls())
	})

	t.Run("signal event without signal", func(t *testing.T) {
		ing := &mockIngester{}
		consumer := &Consumer{ingester: ing}

		msg := mustMessage(t, models.SignalEvent{EventType: models.EventSignalEmitted, Symbol: "BTCUSDT"})
		assert.Error(t, consumer.processMessage(ctx, msg))
		assert.Empty(t, ing.Calls())
	})

	t.Run("ignores other event types", func(t *testing.T) {
		ing := &mockIngester{}
		consumer := &Consumer{ingester: ing}

		msg := mustMessage(t, models.SignalEvent{EventType: models.EventAlignmentUpdated, Symbol: "BTCUSDT"})
		require.NoError(t, consumer.processMessage(ctx, msg))
		assert.Empty(t, ing.Calls())
	})

	t.Run("malformed payload", func(t *testing.T) {
		consumer := &Consumer{ingester: &mockIngester{}}
		err := consumer.processMessage(ctx, kafka.Message{Value: []byte("{not json")})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to unmarshal")
	})

	t.Run("ingest error is returned", func(t *testing.T) {
		consumer := &Consumer{ingester: &mockIngester{err: errors.New("validation failed")}}
		msg := mustMessage(t, models.SignalEvent{
			EventType: models.EventSignalEmitted,
			Signal:    &models.TradingSignal{Symbol: "BTCUSDT"},
		})
		err := consumer.processMessage(ctx, msg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "validation failed")
	})
}

func TestConsumer_Start_consumesAndProcessesMessages(t *testing.T) {
	ing := &mockIngester{called: make(chan struct{}, 2)}
	reader := newMockReader("signals-topic", 2)
	consumer := &Consumer{reader: reader, ingester: ing}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- consumer.Start(ctx)
	}()

	reader.msgs <- kafka.Message{Value: []byte("garbage")}
	reader.msgs <- mustMessage(t, models.SignalEvent{
		EventType: models.EventSignalEmitted,
		Signal:    &models.TradingSignal{Symbol: "SOLUSDT", Timeframe: models.Timeframe1H, Signal: models.SignalShort},
	})

	select {
	case <-ing.called:
		// processed
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for signal to be processed")
	}

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for consumer to shut down")
	}

	calls := ing.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "SOLUSDT", calls[0].signal.Symbol)

	reader.mu.Lock()
	defer reader.mu.Unlock()
	assert.Equal(t, 1, reader.closeCalls)
}
