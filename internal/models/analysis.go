package models

import "time"

// Trend is the market direction of one or more timeframes
type Trend string

// Trend constants
const (
	TrendBullish Trend = "bullish"
	TrendBearish Trend = "bearish"
	TrendNeutral Trend = "neutral"
)

// Recommendation is the combined multi-timeframe verdict
type Recommendation string

// Recommendation constants
const (
	RecommendationStrongBuy  Recommendation = "strong_buy"
	RecommendationBuy        Recommendation = "buy"
	RecommendationNeutral    Recommendation = "neutral"
	RecommendationSell       Recommendation = "sell"
	RecommendationStrongSell Recommendation = "strong_sell"
	RecommendationConflicted Recommendation = "conflicted"
)

// TimeframeAlignment describes how the present timeframes agree with the dominant trend.
// AlignedTimeframes and ConflictingTimeframes together hold every timeframe with a signal.
type TimeframeAlignment struct {
	IsAligned             bool        `json:"is_aligned"`
	AlignedTimeframes     []Timeframe `json:"aligned_timeframes"`
	ConflictingTimeframes []Timeframe `json:"conflicting_timeframes"`
	DominantTrend         Trend       `json:"dominant_trend"`
	AlignmentScore        int         `json:"alignment_score"`
}

// MultiTimeframeAnalysis combines the per-timeframe signals of one symbol
type MultiTimeframeAnalysis struct {
	Symbol          string                       `json:"symbol"`
	Timeframes      map[Timeframe]*TradingSignal `json:"timeframes"`
	Alignment       TimeframeAlignment           `json:"alignment"`
	ConflictWarning *string                      `json:"conflict_warning"`
	OverallStrength int                          `json:"overall_strength"`
	Recommendation  Recommendation               `json:"recommendation"`
}

// AlignmentEvent is published whenever a symbol's analysis is recomputed
type AlignmentEvent struct {
	EventType string                  `json:"event_type"`
	Symbol    string                  `json:"symbol"`
	Analysis  *MultiTimeframeAnalysis `json:"analysis"`
	Timestamp time.Time               `json:"timestamp"`
}
