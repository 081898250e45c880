// Package signals filters, orders and exports lists of trading signals.
package signals

import (
	"sort"
	"strings"

	"github.com/trogers1052/ichimoku-signal-service/internal/models"
)

// Sort fields
const (
	SortBySymbol   = "symbol"
	SortByStrength = "strength"
	SortByPrice    = "price"
	SortByChange   = "change"
	SortByVolume   = "volume"
)

// Filter narrows a signal list. Zero values match everything.
type Filter struct {
	Signal      string
	Grade       string
	MinStrength int
	Timeframe   models.Timeframe
	Symbols     []string
}

// Matches reports whether s passes every criterion of the filter
func (f Filter) Matches(s *models.TradingSignal) bool {
	if f.Signal != "" && !strings.EqualFold(f.Signal, s.Signal) {
		return false
	}
	if f.Grade != "" && !strings.EqualFold(f.Grade, s.SignalGrade) {
		return false
	}
	if s.SignalStrength < f.MinStrength {
		return false
	}
	if f.Timeframe != "" && f.Timeframe != s.Timeframe {
		return false
	}
	if len(f.Symbols) > 0 {
		found := false
		for _, sym := range f.Symbols {
			if strings.EqualFold(sym, s.Symbol) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Apply returns the signals matching the filter, preserving order
func (f Filter) Apply(in []*models.TradingSignal) []*models.TradingSignal {
	out := make([]*models.TradingSignal, 0, len(in))
	for _, s := range in {
		if s != nil && f.Matches(s) {
			out = append(out, s)
		}
	}
	return out
}

// Sort orders signals in place by the given field. Unknown fields sort by symbol.
// Ties are broken by symbol then timeframe priority so output is stable.
func Sort(list []*models.TradingSignal, field string, desc bool) {
	compare := func(a, b *models.TradingSignal) int {
		switch field {
		case SortByStrength:
			return compareInt(a.SignalStrength, b.SignalStrength)
		case SortByPrice:
			return a.CurrentPrice.Cmp(b.CurrentPrice)
		case SortByChange:
			return a.PriceChangePercent24h.Cmp(b.PriceChangePercent24h)
		case SortByVolume:
			return a.Volume24h.Cmp(b.Volume24h)
		default:
			return strings.Compare(a.Symbol, b.Symbol)
		}
	}

	sort.SliceStable(list, func(i, j int) bool {
		c := compare(list[i], list[j])
		if desc {
			c = -c
		}
		if c != 0 {
			return c < 0
		}
		if c := strings.Compare(list[i].Symbol, list[j].Symbol); c != 0 {
			return c < 0
		}
		return list[i].Timeframe.Priority() > list[j].Timeframe.Priority()
	})
}

func compareInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
