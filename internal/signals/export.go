package signals

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/trogers1052/ichimoku-signal-service/internal/models"
)

// CSVHeader is the first row of every export
var CSVHeader = []string{
	"Symbol", "Timeframe", "Signal", "Grade", "Strength", "Price",
	"Change24h", "Volume24h", "CloudStatus", "TKCross", "ChikouSpan", "ScannedAt",
}

// WriteCSV writes the signals as CSV with a header row
func WriteCSV(w io.Writer, list []*models.TradingSignal) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	for _, s := range list {
		record := []string{
			csvText(s.Symbol),
			string(s.Timeframe),
			csvText(s.Signal),
			csvText(s.SignalGrade),
			strconv.Itoa(s.SignalStrength),
			s.CurrentPrice.String(),
			s.PriceChangePercent24h.StringFixed(2),
			s.Volume24h.String(),
			csvText(s.CloudStatus),
			csvText(s.TKCross),
			csvText(s.ChikouSpanStatus),
			s.ScannedAt.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write csv row for %s: %w", s.Symbol, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// csvText quotes text cells a spreadsheet would evaluate as a formula
func csvText(v string) string {
	if v != "" && strings.ContainsRune("=+-@\t\r", rune(v[0])) {
		return "'" + v
	}
	return v
}

// ExportFilename names an export file by its generation time
func ExportFilename(now time.Time) string {
	return fmt.Sprintf("ichimoku-signals-%s.csv", now.UTC().Format("2006-01-02-150405"))
}
