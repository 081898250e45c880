package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/trogers1052/ichimoku-signal-service/internal/models"
)

const signalColumns = `id, symbol, timeframe, current_price, signal, cloud_status, tk_cross,
	chikou_span_status, signal_grade, signal_strength, price_change_percent_24h,
	volume_24h, scanned_at, created_at`

const upsertSignalQuery = `
	INSERT INTO trading_signals (symbol, timeframe, current_price, signal, cloud_status, tk_cross,
		chikou_span_status, signal_grade, signal_strength, price_change_percent_24h, volume_24h, scanned_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	ON CONFLICT (symbol, timeframe, scanned_at) DO UPDATE SET
		current_price = EXCLUDED.current_price,
		signal = EXCLUDED.signal,
		cloud_status = EXCLUDED.cloud_status,
		tk_cross = EXCLUDED.tk_cross,
		chikou_span_status = EXCLUDED.chikou_span_status,
		signal_grade = EXCLUDED.signal_grade,
		signal_strength = EXCLUDED.signal_strength,
		price_change_percent_24h = EXCLUDED.price_change_percent_24h,
		volume_24h = EXCLUDED.volume_24h
	RETURNING id, created_at
`

func upsertSignalArgs(s *models.TradingSignal) []any {
	return []any{
		s.Symbol, string(s.Timeframe), s.CurrentPrice, s.Signal,
		nullString(s.CloudStatus), nullString(s.TKCross), nullString(s.ChikouSpanStatus), nullString(s.SignalGrade),
		s.SignalStrength, s.PriceChangePercent24h, s.Volume24h, s.ScannedAt,
	}
}

// UpsertSignal inserts a signal or replaces the one stored for the same scan
func (db *DB) UpsertSignal(ctx context.Context, s *models.TradingSignal) error {
	err := db.conn.QueryRowContext(ctx, upsertSignalQuery, upsertSignalArgs(s)...).Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert signal: %w", err)
	}
	return nil
}

// UpsertSignalBatch upserts multiple signals in one transaction
func (db *DB) UpsertSignalBatch(ctx context.Context, signals []*models.TradingSignal) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertSignalQuery)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, s := range signals {
		if err := stmt.QueryRowContext(ctx, upsertSignalArgs(s)...).Scan(&s.ID, &s.CreatedAt); err != nil {
			return fmt.Errorf("failed to upsert signal for %s %s: %w", s.Symbol, s.Timeframe, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetSignalByID retrieves a signal by ID
func (db *DB) GetSignalByID(ctx context.Context, id int) (*models.TradingSignal, error) {
	query := `SELECT ` + signalColumns + ` FROM trading_signals WHERE id = $1`

	s, err := scanSignal(db.conn.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("signal %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get signal: %w", err)
	}
	return s, nil
}

// GetLatestSignals returns the most recent signal per timeframe for a symbol.
// Timeframes with no stored signal are absent from the map.
func (db *DB) GetLatestSignals(ctx context.Context, symbol string) (map[models.Timeframe]*models.TradingSignal, error) {
	query := `
		SELECT DISTINCT ON (timeframe) ` + signalColumns + `
		FROM trading_signals
		WHERE symbol = $1
		ORDER BY timeframe, scanned_at DESC
	`
	list, err := scanSignals(db.conn.QueryContext(ctx, query, symbol))
	if err != nil {
		return nil, err
	}

	latest := make(map[models.Timeframe]*models.TradingSignal, len(list))
	for _, s := range list {
		latest[s.Timeframe] = s
	}
	return latest, nil
}

// GetLatestSignalsAll returns the most recent signal for every symbol and timeframe
func (db *DB) GetLatestSignalsAll(ctx context.Context) ([]*models.TradingSignal, error) {
	query := `
		SELECT DISTINCT ON (symbol, timeframe) ` + signalColumns + `
		FROM trading_signals
		ORDER BY symbol, timeframe, scanned_at DESC
	`
	return scanSignals(db.conn.QueryContext(ctx, query))
}

// GetSignalHistory returns up to limit signals for a symbol and timeframe, newest first
func (db *DB) GetSignalHistory(ctx context.Context, symbol string, tf models.Timeframe, limit int) ([]*models.TradingSignal, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT ` + signalColumns + `
		FROM trading_signals
		WHERE symbol = $1 AND timeframe = $2
		ORDER BY scanned_at DESC
		LIMIT $3
	`
	return scanSignals(db.conn.QueryContext(ctx, query, symbol, string(tf), limit))
}

// ListSymbols returns every symbol with at least one stored signal
func (db *DB) ListSymbols(ctx context.Context) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT DISTINCT symbol FROM trading_signals ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("failed to list symbols: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var symbol string
		if err := rows.Scan(&symbol); err != nil {
			return nil, fmt.Errorf("failed to scan symbol: %w", err)
		}
		symbols = append(symbols, symbol)
	}
	return symbols, rows.Err()
}

// DeleteSignalsOlderThan removes signals scanned before the cutoff
func (db *DB) DeleteSignalsOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM trading_signals WHERE scanned_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old signals: %w", err)
	}
	return result.RowsAffected()
}

func scanSignal(row rowScanner) (*models.TradingSignal, error) {
	var s models.TradingSignal
	var timeframe string
	var cloudStatus, tkCross, chikou, grade sql.NullString

	err := row.Scan(
		&s.ID, &s.Symbol, &timeframe, &s.CurrentPrice, &s.Signal, &cloudStatus, &tkCross,
		&chikou, &grade, &s.SignalStrength, &s.PriceChangePercent24h,
		&s.Volume24h, &s.ScannedAt, &s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	s.Timeframe = models.Timeframe(timeframe)
	s.CloudStatus = cloudStatus.String
	s.TKCross = tkCross.String
	s.ChikouSpanStatus = chikou.String
	s.SignalGrade = grade.String
	s.ScannedAt = s.ScannedAt.UTC()
	return &s, nil
}

func scanSignals(rows *sql.Rows, err error) ([]*models.TradingSignal, error) {
	if err != nil {
		return nil, fmt.Errorf("failed to query signals: %w", err)
	}
	defer rows.Close()

	var signals []*models.TradingSignal
	for rows.Next() {
		s, err := scanSignal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan signal: %w", err)
		}
		signals = append(signals, s)
	}
	return signals, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
