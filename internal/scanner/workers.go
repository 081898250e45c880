package scanner

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/trogers1052/ichimoku-signal-service/pkg/logger"
)

// Recomputer refreshes every known symbol on each run
type Recomputer struct {
	engine *Engine
}

// NewRecomputer creates the periodic recompute worker
func NewRecomputer(engine *Engine) *Recomputer {
	return &Recomputer{engine: engine}
}

// Name returns worker name for logging
func (r *Recomputer) Name() string {
	return "alignment-recompute"
}

// Run recomputes all symbols. A failing symbol does not stop the others.
func (r *Recomputer) Run(ctx context.Context) error {
	symbols, err := r.engine.store.ListSymbols(ctx)
	if err != nil {
		return fmt.Errorf("failed to list symbols: %w", err)
	}

	failed := 0
	for _, symbol := range symbols {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if _, err := r.engine.Refresh(ctx, symbol); err != nil {
			failed++
			logger.Error("recompute failed", zap.String("symbol", symbol), zap.Error(err))
		}
	}

	logger.Debug("recompute finished", zap.Int("symbols", len(symbols)), zap.Int("failed", failed))
	if failed > 0 {
		return fmt.Errorf("recompute failed for %d of %d symbols", failed, len(symbols))
	}
	return nil
}

// Retention deletes signals older than the retention window and forgets
// symbols left without any signal
type Retention struct {
	engine *Engine
	window time.Duration
	now    func() time.Time
}

// NewRetention creates the signal retention worker
func NewRetention(engine *Engine, window time.Duration) *Retention {
	return &Retention{engine: engine, window: window, now: time.Now}
}

// Name returns worker name for logging
func (r *Retention) Name() string {
	return "signal-retention"
}

// Run deletes expired signals
func (r *Retention) Run(ctx context.Context) error {
	store := r.engine.store
	before, err := store.ListSymbols(ctx)
	if err != nil {
		return fmt.Errorf("failed to list symbols: %w", err)
	}

	cutoff := r.now().Add(-r.window)
	deleted, err := store.DeleteSignalsOlderThan(ctx, cutoff)
	if err != nil {
		return err
	}
	if deleted == 0 {
		return nil
	}
	logger.Info("old signals deleted", zap.Int64("count", deleted), zap.Time("cutoff", cutoff))

	after, err := store.ListSymbols(ctx)
	if err != nil {
		return fmt.Errorf("failed to list symbols: %w", err)
	}
	remaining := make(map[string]bool, len(after))
	for _, symbol := range after {
		remaining[symbol] = true
	}

	var failed int
	for _, symbol := range before {
		if remaining[symbol] {
			continue
		}
		if err := r.engine.Forget(ctx, symbol); err != nil {
			failed++
			logger.Warn("failed to forget symbol", zap.String("symbol", symbol), zap.Error(err))
			continue
		}
		logger.Debug("symbol forgotten", zap.String("symbol", symbol))
	}
	if failed > 0 {
		return fmt.Errorf("failed to forget %d symbols", failed)
	}
	return nil
}
