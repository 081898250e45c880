package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Signal direction constants
const (
	SignalLong    = "Long Signal"
	SignalShort   = "Short Signal"
	SignalNeutral = "Neutral"
)

// Cloud status constants
const (
	CloudAbove  = "above_cloud"
	CloudBelow  = "below_cloud"
	CloudInside = "in_cloud"
)

// Tenkan/Kijun cross constants
const (
	TKBullish = "bullish"
	TKBearish = "bearish"
	TKNeutral = "neutral"
)

// Chikou span constants
const (
	ChikouAbovePrice = "above_price"
	ChikouBelowPrice = "below_price"
	ChikouNeutral    = "neutral"
)

// Signal grade constants
const (
	GradeA = "A"
	GradeB = "B"
	GradeC = "C"
)

// TradingSignal is one Ichimoku scan result for a symbol on a timeframe
type TradingSignal struct {
	ID                    int             `json:"id,omitempty"`
	Symbol                string          `json:"symbol" validate:"required,max=20,symbol"`
	Timeframe             Timeframe       `json:"timeframe" validate:"required,oneof=1h 4h 1d"`
	CurrentPrice          decimal.Decimal `json:"current_price"`
	Signal                string          `json:"signal" validate:"required,oneof='Long Signal' 'Short Signal' Neutral"`
	CloudStatus           string          `json:"cloud_status" validate:"omitempty,oneof=above_cloud below_cloud in_cloud"`
	TKCross               string          `json:"tk_cross" validate:"omitempty,oneof=bullish bearish neutral"`
	ChikouSpanStatus      string          `json:"chikou_span_status" validate:"omitempty,oneof=above_price below_price neutral"`
	SignalGrade           string          `json:"signal_grade,omitempty" validate:"omitempty,oneof=A B C"`
	SignalStrength        int             `json:"signal_strength" validate:"gte=0,lte=100"`
	PriceChangePercent24h decimal.Decimal `json:"price_change_percent_24h"`
	Volume24h             decimal.Decimal `json:"volume_24h"`
	ScannedAt             time.Time       `json:"scanned_at"`
	CreatedAt             time.Time       `json:"created_at,omitempty"`
}

// SignalEvent is a Kafka message produced by the scanner
type SignalEvent struct {
	EventType string         `json:"event_type"`
	Signal    *TradingSignal `json:"signal,omitempty"`
	Symbol    string         `json:"symbol"`
	Timeframe Timeframe      `json:"timeframe,omitempty"`
	Candles   []Candle       `json:"candles,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Signal event type constants
const (
	EventSignalEmitted    = "SIGNAL_EMITTED"
	EventCandlesClosed    = "CANDLES_CLOSED"
	EventAlignmentUpdated = "ALIGNMENT_UPDATED"
)
