package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/trogers1052/ichimoku-signal-service/internal/models"
	"github.com/trogers1052/ichimoku-signal-service/pkg/logger"
)

const source = "kafka"

// Ingester stores signals and recomputes their symbol's alignment
type Ingester interface {
	Ingest(ctx context.Context, s *models.TradingSignal, source string) (*models.MultiTimeframeAnalysis, error)
	IngestCandles(ctx context.Context, symbol string, tf models.Timeframe, candles []models.Candle, source string) (*models.MultiTimeframeAnalysis, error)
}

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
	Config() kafka.ReaderConfig
}

// Consumer handles consuming signal events from Kafka
type Consumer struct {
	reader   messageReader
	ingester Ingester
}

// NewConsumer creates a new Kafka consumer for signal events
func NewConsumer(brokers []string, topic, groupID string, ingester Ingester) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       10e3, // 10KB
		MaxBytes:       10e6, // 10MB
		MaxWait:        1 * time.Second,
		StartOffset:    kafka.FirstOffset,
		CommitInterval: time.Second,
	})

	return &Consumer{
		reader:   reader,
		ingester: ingester,
	}
}

// Start begins consuming messages until ctx is cancelled
func (c *Consumer) Start(ctx context.Context) error {
	logger.Info("starting kafka consumer", zap.String("topic", c.reader.Config().Topic))

	for {
		select {
		case <-ctx.Done():
			logger.Info("kafka consumer shutting down")
			return c.reader.Close()
		default:
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return c.reader.Close()
				}
				logger.Error("error reading message", zap.Error(err))
				continue
			}

			if err := c.processMessage(ctx, msg); err != nil {
				// a bad message must not block the partition
				logger.Error("error processing message",
					zap.Int("partition", msg.Partition),
					zap.Int64("offset", msg.Offset),
					zap.Error(err),
				)
			}
		}
	}
}

// processMessage handles a single Kafka message
func (c *Consumer) processMessage(ctx context.Context, msg kafka.Message) error {
	logger.Debug("received message",
		zap.Int("partition", msg.Partition),
		zap.Int64("offset", msg.Offset),
		zap.String("key", string(msg.Key)),
	)

	var event models.SignalEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal signal event: %w", err)
	}

	var (
		analysis *models.MultiTimeframeAnalysis
		err      error
	)
	switch event.EventType {
	case models.EventSignalEmitted:
		if event.Signal == nil {
			return fmt.Errorf("%s event without signal", event.EventType)
		}
		analysis, err = c.ingester.Ingest(ctx, event.Signal, source)
	case models.EventCandlesClosed:
		tf, perr := models.ParseTimeframe(string(event.Timeframe))
		if perr != nil {
			return perr
		}
		analysis, err = c.ingester.IngestCandles(ctx, event.Symbol, tf, event.Candles, source)
	default:
		logger.Debug("ignoring event type", zap.String("event_type", event.EventType))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to ingest %s event: %w", event.EventType, err)
	}

	logger.Info("alignment updated",
		zap.String("symbol", analysis.Symbol),
		zap.String("recommendation", string(analysis.Recommendation)),
		zap.Int("alignment_score", analysis.Alignment.AlignmentScore),
	)
	return nil
}

// Close closes the Kafka consumer
func (c *Consumer) Close() error {
	return c.reader.Close()
}
