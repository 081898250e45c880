package models

import "fmt"

// Timeframe is a candle interval a signal was scanned on
type Timeframe string

// Supported timeframes
const (
	Timeframe1H Timeframe = "1h"
	Timeframe4H Timeframe = "4h"
	Timeframe1D Timeframe = "1d"
)

// AllTimeframes lists the supported timeframes, highest priority first
var AllTimeframes = []Timeframe{Timeframe1D, Timeframe4H, Timeframe1H}

// timeframePriority weights trend dominance: 1d=3, 4h=2, 1h=1
var timeframePriority = map[Timeframe]int{
	Timeframe1D: 3,
	Timeframe4H: 2,
	Timeframe1H: 1,
}

// Priority returns the timeframe's weight, 0 for unknown timeframes
func (tf Timeframe) Priority() int {
	return timeframePriority[tf]
}

// Valid reports whether tf is one of the supported timeframes
func (tf Timeframe) Valid() bool {
	_, ok := timeframePriority[tf]
	return ok
}

// Hours returns the candle length in hours
func (tf Timeframe) Hours() int {
	switch tf {
	case Timeframe1H:
		return 1
	case Timeframe4H:
		return 4
	case Timeframe1D:
		return 24
	}
	return 0
}

// ParseTimeframe converts a string into a Timeframe
func ParseTimeframe(s string) (Timeframe, error) {
	tf := Timeframe(s)
	if !tf.Valid() {
		return "", fmt.Errorf("unsupported timeframe: %q", s)
	}
	return tf, nil
}
