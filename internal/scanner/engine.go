// Package scanner stores incoming Ichimoku signals and keeps each symbol's
// multi-timeframe alignment current in the cache and on the alignment topic.
package scanner

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/trogers1052/ichimoku-signal-service/internal/alignment"
	"github.com/trogers1052/ichimoku-signal-service/internal/ichimoku"
	"github.com/trogers1052/ichimoku-signal-service/internal/models"
	"github.com/trogers1052/ichimoku-signal-service/pkg/logger"
	"github.com/trogers1052/ichimoku-signal-service/pkg/metrics"
	"github.com/trogers1052/ichimoku-signal-service/pkg/validate"
)

// SignalStore defines the signal storage the engine needs
type SignalStore interface {
	UpsertSignal(ctx context.Context, s *models.TradingSignal) error
	UpsertSignalBatch(ctx context.Context, signals []*models.TradingSignal) error
	GetLatestSignals(ctx context.Context, symbol string) (map[models.Timeframe]*models.TradingSignal, error)
	ListSymbols(ctx context.Context) ([]string, error)
	DeleteSignalsOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// AnalysisCache holds the latest analysis per symbol
type AnalysisCache interface {
	GetAnalysis(ctx context.Context, symbol string) (*models.MultiTimeframeAnalysis, bool, error)
	SetAnalysis(ctx context.Context, analysis *models.MultiTimeframeAnalysis) error
	DeleteAnalysis(ctx context.Context, symbol string) error
}

// Publisher announces recomputed analyses
type Publisher interface {
	PublishAlignmentUpdated(ctx context.Context, analysis *models.MultiTimeframeAnalysis) error
}

// Engine ingests signals and recomputes alignment. Cache and publisher are optional.
type Engine struct {
	store     SignalStore
	cache     AnalysisCache
	publisher Publisher
	recorder  *metrics.Recorder

	// symbolLocks serialize recompute per symbol so the last cache write
	// always comes from the latest store read
	symbolLocks [lockStripes]sync.Mutex

	mu   sync.Mutex
	last map[string]models.Recommendation
}

const lockStripes = 64

// NewEngine creates a new engine
func NewEngine(store SignalStore, cache AnalysisCache, publisher Publisher, recorder *metrics.Recorder) *Engine {
	return &Engine{
		store:     store,
		cache:     cache,
		publisher: publisher,
		recorder:  recorder,
		last:      make(map[string]models.Recommendation),
	}
}

// Ingest validates and stores a signal, then recomputes and publishes its symbol's analysis
func (e *Engine) Ingest(ctx context.Context, s *models.TradingSignal, source string) (*models.MultiTimeframeAnalysis, error) {
	s.Symbol = strings.ToUpper(strings.TrimSpace(s.Symbol))
	if err := validate.Struct(ctx, s); err != nil {
		e.recorder.RecordError("validation")
		return nil, err
	}
	if s.ScannedAt.IsZero() {
		s.ScannedAt = time.Now().UTC()
	}

	if err := e.store.UpsertSignal(ctx, s); err != nil {
		e.recorder.RecordError("store")
		return nil, fmt.Errorf("failed to store signal: %w", err)
	}
	e.recorder.RecordSignalIngested(string(s.Timeframe), source)

	logger.Debug("signal stored",
		zap.String("symbol", s.Symbol),
		zap.String("timeframe", string(s.Timeframe)),
		zap.String("signal", s.Signal),
		zap.Int("strength", s.SignalStrength),
		zap.String("source", source),
	)

	return e.recompute(ctx, s.Symbol, true)
}

// IngestBatch validates every signal before storing any of them in one
// transaction. Each affected symbol is recomputed once, in first-seen order.
func (e *Engine) IngestBatch(ctx context.Context, batch []*models.TradingSignal, source string) ([]*models.MultiTimeframeAnalysis, error) {
	now := time.Now().UTC()
	var symbols []string
	seen := make(map[string]bool)
	for _, s := range batch {
		s.Symbol = strings.ToUpper(strings.TrimSpace(s.Symbol))
		if err := validate.Struct(ctx, s); err != nil {
			e.recorder.RecordError("validation")
			return nil, err
		}
		if s.ScannedAt.IsZero() {
			s.ScannedAt = now
		}
		if !seen[s.Symbol] {
			seen[s.Symbol] = true
			symbols = append(symbols, s.Symbol)
		}
	}
	if len(batch) == 0 {
		return []*models.MultiTimeframeAnalysis{}, nil
	}

	if err := e.store.UpsertSignalBatch(ctx, batch); err != nil {
		e.recorder.RecordError("store")
		return nil, fmt.Errorf("failed to store signals: %w", err)
	}
	for _, s := range batch {
		e.recorder.RecordSignalIngested(string(s.Timeframe), source)
	}
	logger.Debug("signal batch stored", zap.Int("signals", len(batch)), zap.Int("symbols", len(symbols)), zap.String("source", source))

	analyses := make([]*models.MultiTimeframeAnalysis, 0, len(symbols))
	for _, symbol := range symbols {
		analysis, err := e.recompute(ctx, symbol, true)
		if err != nil {
			return nil, err
		}
		analyses = append(analyses, analysis)
	}
	return analyses, nil
}

// IngestCandles evaluates a closed candle window and ingests the resulting signal
func (e *Engine) IngestCandles(ctx context.Context, symbol string, tf models.Timeframe, candles []models.Candle, source string) (*models.MultiTimeframeAnalysis, error) {
	s, err := ichimoku.Evaluate(strings.ToUpper(symbol), tf, candles)
	if err != nil {
		e.recorder.RecordError("evaluate")
		return nil, fmt.Errorf("failed to evaluate %s %s: %w", symbol, tf, err)
	}
	return e.Ingest(ctx, s, source)
}

// Refresh recomputes a symbol's analysis and publishes it only when the
// recommendation differs from the last one seen.
func (e *Engine) Refresh(ctx context.Context, symbol string) (*models.MultiTimeframeAnalysis, error) {
	return e.recompute(ctx, strings.ToUpper(symbol), false)
}

// Analysis returns a symbol's analysis from the cache, computing and caching
// it on a miss. Symbols without stored signals yield models.ErrNotFound.
func (e *Engine) Analysis(ctx context.Context, symbol string) (*models.MultiTimeframeAnalysis, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	if e.cache != nil {
		cached, ok, err := e.cache.GetAnalysis(ctx, symbol)
		if err != nil {
			logger.Warn("cache lookup failed", zap.String("symbol", symbol), zap.Error(err))
			e.recorder.RecordError("cache")
		}
		e.recorder.RecordCacheLookup(ok)
		if ok {
			return cached, nil
		}
	}

	latest, err := e.store.GetLatestSignals(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to load signals: %w", err)
	}
	if len(latest) == 0 {
		return nil, fmt.Errorf("signals for %s: %w", symbol, models.ErrNotFound)
	}

	analysis := e.analyze(symbol, latest)
	e.storeInCache(ctx, analysis)
	return analysis, nil
}

// Forget drops the cached analysis and change tracking of a symbol that no
// longer has stored signals
func (e *Engine) Forget(ctx context.Context, symbol string) error {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	lock := e.symbolLock(symbol)
	lock.Lock()
	defer lock.Unlock()

	e.mu.Lock()
	delete(e.last, symbol)
	e.mu.Unlock()

	if e.cache == nil {
		return nil
	}
	if err := e.cache.DeleteAnalysis(ctx, symbol); err != nil {
		e.recorder.RecordError("cache")
		return fmt.Errorf("failed to drop cached analysis for %s: %w", symbol, err)
	}
	return nil
}

func (e *Engine) symbolLock(symbol string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(symbol))
	return &e.symbolLocks[h.Sum32()%lockStripes]
}

func (e *Engine) recompute(ctx context.Context, symbol string, always bool) (*models.MultiTimeframeAnalysis, error) {
	lock := e.symbolLock(symbol)
	lock.Lock()
	defer lock.Unlock()

	start := time.Now()
	defer func() { e.recorder.RecordLatency("recompute", time.Since(start).Seconds()) }()

	latest, err := e.store.GetLatestSignals(ctx, symbol)
	if err != nil {
		e.recorder.RecordError("store")
		return nil, fmt.Errorf("failed to load signals: %w", err)
	}

	analysis := e.analyze(symbol, latest)
	e.storeInCache(ctx, analysis)

	e.mu.Lock()
	prev, seen := e.last[symbol]
	e.last[symbol] = analysis.Recommendation
	e.mu.Unlock()

	changed := !seen || prev != analysis.Recommendation
	if changed {
		logger.Info("recommendation changed",
			zap.String("symbol", symbol),
			zap.String("from", string(prev)),
			zap.String("to", string(analysis.Recommendation)),
			zap.Int("alignment_score", analysis.Alignment.AlignmentScore),
		)
	}

	if e.publisher != nil && (always || changed) {
		if err := e.publisher.PublishAlignmentUpdated(ctx, analysis); err != nil {
			// the analysis is already cached; the next recompute republishes
			e.recorder.RecordError("publish")
			logger.Warn("failed to publish alignment", zap.String("symbol", symbol), zap.Error(err))
		}
	}

	return analysis, nil
}

func (e *Engine) analyze(symbol string, latest map[models.Timeframe]*models.TradingSignal) *models.MultiTimeframeAnalysis {
	analysis := alignment.Analyze(symbol, latest)
	e.recorder.RecordAlignment(string(analysis.Recommendation))
	return &analysis
}

func (e *Engine) storeInCache(ctx context.Context, analysis *models.MultiTimeframeAnalysis) {
	if e.cache == nil {
		return
	}
	if err := e.cache.SetAnalysis(ctx, analysis); err != nil {
		e.recorder.RecordError("cache")
		logger.Warn("failed to cache analysis", zap.String("symbol", analysis.Symbol), zap.Error(err))
	}
}
