// Package ichimoku turns a window of candles into a graded Ichimoku trading signal.
package ichimoku

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/cinar/indicator"
	"github.com/shopspring/decimal"
	"github.com/trogers1052/ichimoku-signal-service/internal/models"
)

// Standard Ichimoku periods
const (
	SenkouBPeriod = 52
	Displacement  = 26

	// MinCandles is the smallest window that yields a displaced cloud for the last bar
	MinCandles = SenkouBPeriod + Displacement
)

// ErrInsufficientCandles is returned when the window is too short for the cloud
var ErrInsufficientCandles = errors.New("insufficient candles for ichimoku")

// Lines holds the Ichimoku values for the most recent bar
type Lines struct {
	Tenkan       float64
	Kijun        float64
	CloudTop     float64
	CloudBottom  float64
	SenkouA      float64
	SenkouB      float64
	Close        float64
	ClosePast    float64
	BullishCloud bool
}

// Calculate computes the Ichimoku lines for the last candle. The cloud under the
// last bar is the one projected Displacement bars earlier.
func Calculate(candles []models.Candle) (*Lines, error) {
	if len(candles) < MinCandles {
		return nil, fmt.Errorf("%w (need at least %d, got %d)", ErrInsufficientCandles, MinCandles, len(candles))
	}

	highs := make([]float64, len(candles))
	lows := make([]float64, len(candles))
	closes := make([]float64, len(candles))
	for i, c := range candles {
		highs[i], _ = c.High.Float64()
		lows[i], _ = c.Low.Float64()
		closes[i], _ = c.Close.Float64()
	}

	tenkan, kijun, spanA, spanB, _ := indicator.IchimokuCloud(highs, lows, closes)

	last := len(candles) - 1
	projected := last - Displacement

	a, b := spanA[projected], spanB[projected]
	lines := &Lines{
		Tenkan:       tenkan[last],
		Kijun:        kijun[last],
		CloudTop:     max(a, b),
		CloudBottom:  min(a, b),
		SenkouA:      spanA[last],
		SenkouB:      spanB[last],
		Close:        closes[last],
		ClosePast:    closes[projected],
		BullishCloud: spanA[last] > spanB[last],
	}
	return lines, nil
}

// CloudStatus places the close relative to the cloud
func (l *Lines) CloudStatus() string {
	switch {
	case l.Close > l.CloudTop:
		return models.CloudAbove
	case l.Close < l.CloudBottom:
		return models.CloudBelow
	default:
		return models.CloudInside
	}
}

// TKCross compares Tenkan-sen with Kijun-sen
func (l *Lines) TKCross() string {
	switch {
	case l.Tenkan > l.Kijun:
		return models.TKBullish
	case l.Tenkan < l.Kijun:
		return models.TKBearish
	default:
		return models.TKNeutral
	}
}

// ChikouStatus compares the lagging span with the price it is plotted against
func (l *Lines) ChikouStatus() string {
	switch {
	case l.Close > l.ClosePast:
		return models.ChikouAbovePrice
	case l.Close < l.ClosePast:
		return models.ChikouBelowPrice
	default:
		return models.ChikouNeutral
	}
}

// Score counts the four confirmations (cloud position, TK cross, chikou, cloud
// color). Long needs price above the cloud with a bullish TK cross, Short the
// mirror; both score 25 per agreeing confirmation. Anything else is Neutral at
// the larger side's count times 25, capped at 50.
func (l *Lines) Score() (string, int) {
	cloud := l.CloudStatus()
	tk := l.TKCross()
	chikou := l.ChikouStatus()

	bull, bear := 0, 0
	count := func(isBull, isBear bool) {
		if isBull {
			bull++
		}
		if isBear {
			bear++
		}
	}
	count(cloud == models.CloudAbove, cloud == models.CloudBelow)
	count(tk == models.TKBullish, tk == models.TKBearish)
	count(chikou == models.ChikouAbovePrice, chikou == models.ChikouBelowPrice)
	count(l.BullishCloud, l.SenkouA < l.SenkouB)

	switch {
	case cloud == models.CloudAbove && tk == models.TKBullish:
		return models.SignalLong, bull * 25
	case cloud == models.CloudBelow && tk == models.TKBearish:
		return models.SignalShort, bear * 25
	}
	return models.SignalNeutral, min(max(bull, bear)*25, 50)
}

// Evaluate scans a candle window and produces a trading signal for its last bar
func Evaluate(symbol string, tf models.Timeframe, candles []models.Candle) (*models.TradingSignal, error) {
	if !tf.Valid() {
		return nil, fmt.Errorf("unsupported timeframe: %q", tf)
	}

	sorted := make([]models.Candle, len(candles))
	copy(sorted, candles)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].OpenTime.Before(sorted[j].OpenTime)
	})

	lines, err := Calculate(sorted)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate %s %s: %w", symbol, tf, err)
	}

	signal, strength := lines.Score()

	last := sorted[len(sorted)-1]
	change, volume := dailyStats(sorted, tf)

	return &models.TradingSignal{
		Symbol:                symbol,
		Timeframe:             tf,
		CurrentPrice:          last.Close,
		Signal:                signal,
		CloudStatus:           lines.CloudStatus(),
		TKCross:               lines.TKCross(),
		ChikouSpanStatus:      lines.ChikouStatus(),
		SignalGrade:           Grade(strength),
		SignalStrength:        strength,
		PriceChangePercent24h: change,
		Volume24h:             volume,
		ScannedAt:             last.OpenTime.Add(time.Duration(tf.Hours()) * time.Hour),
	}, nil
}

// Grade buckets a signal strength into A, B or C
func Grade(strength int) string {
	switch {
	case strength >= 75:
		return models.GradeA
	case strength >= 50:
		return models.GradeB
	default:
		return models.GradeC
	}
}

// dailyStats returns the 24h price change percent and volume over the trailing window
func dailyStats(candles []models.Candle, tf models.Timeframe) (decimal.Decimal, decimal.Decimal) {
	bars := 24 / tf.Hours()
	last := len(candles) - 1

	volume := decimal.Zero
	for i := last; i > last-bars && i >= 0; i-- {
		volume = volume.Add(candles[i].Volume)
	}

	ref := candles[last].Open
	if last-bars >= 0 {
		ref = candles[last-bars].Close
	}
	if ref.IsZero() {
		return decimal.Zero, volume
	}

	change := candles[last].Close.Sub(ref).Div(ref).Mul(decimal.NewFromInt(100)).Round(2)
	return change, volume
}
