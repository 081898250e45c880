// Package alignment reconciles per-timeframe trading signals into one
// multi-timeframe recommendation. Every function here is pure and safe for
// concurrent use.
package alignment

import (
	"fmt"
	"math"
	"strings"

	"github.com/trogers1052/ichimoku-signal-service/internal/models"
)

// Recommendation thresholds on the alignment score
const (
	StrongThreshold = 80
	NormalThreshold = 50
)

// Analyze builds the multi-timeframe analysis for one symbol. A timeframe
// missing from the map is treated the same as a nil signal.
func Analyze(symbol string, signals map[models.Timeframe]*models.TradingSignal) models.MultiTimeframeAnalysis {
	timeframes := make(map[models.Timeframe]*models.TradingSignal, len(models.AllTimeframes))
	for _, tf := range models.AllTimeframes {
		timeframes[tf] = signals[tf]
	}

	al := Align(timeframes)

	return models.MultiTimeframeAnalysis{
		Symbol:          symbol,
		Timeframes:      timeframes,
		Alignment:       al,
		ConflictWarning: ConflictWarning(timeframes, al),
		OverallStrength: OverallStrength(timeframes),
		Recommendation:  Recommend(al),
	}
}

// Direction classifies a signal as bullish, bearish or neutral
func Direction(s *models.TradingSignal) models.Trend {
	switch s.Signal {
	case models.SignalLong:
		return models.TrendBullish
	case models.SignalShort:
		return models.TrendBearish
	default:
		return models.TrendNeutral
	}
}

// Align computes the dominant trend and splits the present timeframes into
// aligned and conflicting sets.
func Align(signals map[models.Timeframe]*models.TradingSignal) models.TimeframeAlignment {
	al := models.TimeframeAlignment{
		AlignedTimeframes:     []models.Timeframe{},
		ConflictingTimeframes: []models.Timeframe{},
		DominantTrend:         DominantTrend(signals),
	}

	var alignedWeight, totalWeight int
	for _, tf := range models.AllTimeframes {
		s := signals[tf]
		if s == nil {
			continue
		}
		totalWeight += tf.Priority()
		if Direction(s) == al.DominantTrend {
			al.AlignedTimeframes = append(al.AlignedTimeframes, tf)
			alignedWeight += tf.Priority()
		} else {
			al.ConflictingTimeframes = append(al.ConflictingTimeframes, tf)
		}
	}

	if totalWeight > 0 {
		al.AlignmentScore = int(math.Round(float64(alignedWeight) / float64(totalWeight) * 100))
	}
	al.IsAligned = totalWeight > 0 && len(al.ConflictingTimeframes) == 0
	return al
}

// DominantTrend returns the direction carrying the largest priority weight
// among present signals. A tie for the top weight resolves to neutral.
func DominantTrend(signals map[models.Timeframe]*models.TradingSignal) models.Trend {
	weights := map[models.Trend]int{}
	for _, tf := range models.AllTimeframes {
		if s := signals[tf]; s != nil {
			weights[Direction(s)] += tf.Priority()
		}
	}

	best := models.TrendNeutral
	bestWeight := 0
	tied := false
	for _, trend := range []models.Trend{models.TrendBullish, models.TrendBearish, models.TrendNeutral} {
		w := weights[trend]
		switch {
		case w > bestWeight:
			best, bestWeight, tied = trend, w, false
		case w == bestWeight && w > 0:
			tied = true
		}
	}
	if tied {
		return models.TrendNeutral
	}
	return best
}

// OverallStrength is the priority-weighted mean of the present signals' strength
func OverallStrength(signals map[models.Timeframe]*models.TradingSignal) int {
	var weighted, total int
	for _, tf := range models.AllTimeframes {
		s := signals[tf]
		if s == nil {
			continue
		}
		weighted += s.SignalStrength * tf.Priority()
		total += tf.Priority()
	}
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(weighted) / float64(total)))
}

// Recommend maps an alignment onto a trade recommendation
func Recommend(al models.TimeframeAlignment) models.Recommendation {
	switch al.DominantTrend {
	case models.TrendBullish:
		if al.AlignmentScore >= StrongThreshold {
			return models.RecommendationStrongBuy
		}
		if al.AlignmentScore >= NormalThreshold {
			return models.RecommendationBuy
		}
	case models.TrendBearish:
		if al.AlignmentScore >= StrongThreshold {
			return models.RecommendationStrongSell
		}
		if al.AlignmentScore >= NormalThreshold {
			return models.RecommendationSell
		}
	}

	if len(al.ConflictingTimeframes) > 0 && al.AlignmentScore < NormalThreshold {
		return models.RecommendationConflicted
	}
	return models.RecommendationNeutral
}

// ConflictWarning describes every conflicting timeframe against the dominant
// trend, or returns nil when nothing conflicts.
func ConflictWarning(signals map[models.Timeframe]*models.TradingSignal, al models.TimeframeAlignment) *string {
	if len(al.ConflictingTimeframes) == 0 {
		return nil
	}

	parts := make([]string, 0, len(al.ConflictingTimeframes))
	for _, tf := range al.ConflictingTimeframes {
		parts = append(parts, fmt.Sprintf("%s is %s", tf, Direction(signals[tf])))
	}

	msg := fmt.Sprintf("Timeframe conflict: %s while the dominant trend is %s",
		strings.Join(parts, ", "), al.DominantTrend)
	return &msg
}
