package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/trogers1052/ichimoku-signal-service/internal/alignment"
	"github.com/trogers1052/ichimoku-signal-service/internal/models"
	"github.com/trogers1052/ichimoku-signal-service/internal/signals"
	"github.com/trogers1052/ichimoku-signal-service/pkg/logger"
)

const (
	maxBatchSize        = 500
	defaultHistoryLimit = 100
	maxHistoryLimit     = 1000
)

type signalsResponse struct {
	Count   int                     `json:"count"`
	Signals []*models.TradingSignal `json:"signals"`
}

// GetSignals handles GET /signals
func (h *Handler) GetSignals(w http.ResponseWriter, r *http.Request) {
	query, err := parseSignalQuery(r.URL.Query())
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	list, err := h.listSignals(r.Context(), query)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, signalsResponse{Count: len(list), Signals: list})
}

// ExportSignals handles GET /signals/export
func (h *Handler) ExportSignals(w http.ResponseWriter, r *http.Request) {
	query, err := parseSignalQuery(r.URL.Query())
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	list, err := h.listSignals(r.Context(), query)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="`+signals.ExportFilename(h.now())+`"`)
	w.WriteHeader(http.StatusOK)
	if err := signals.WriteCSV(w, list); err != nil {
		logger.Error("failed to write csv export", zap.Error(err))
	}
}

// IngestSignal handles POST /signals
func (h *Handler) IngestSignal(w http.ResponseWriter, r *http.Request) {
	var s models.TradingSignal
	if err := json.NewDecoder(r.Body).Decode(&s); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	analysis, err := h.alignment.Ingest(r.Context(), &s, "api")
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"signal":   &s,
		"analysis": analysis,
	})
}

// IngestSignalBatch handles POST /signals/batch
func (h *Handler) IngestSignalBatch(w http.ResponseWriter, r *http.Request) {
	var batch []*models.TradingSignal
	if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(batch) > maxBatchSize {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("batch exceeds %d signals", maxBatchSize))
		return
	}
	for _, s := range batch {
		if s == nil {
			respondError(w, http.StatusBadRequest, "batch contains a null signal")
			return
		}
	}

	analyses, err := h.alignment.IngestBatch(r.Context(), batch, "api")
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"count":    len(batch),
		"analyses": analyses,
	})
}

// GetSignalHistory handles GET /signals/{symbol}/history?timeframe=&limit=
func (h *Handler) GetSignalHistory(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(mux.Vars(r)["symbol"])

	raw := r.URL.Query().Get("timeframe")
	if raw == "" {
		respondError(w, http.StatusBadRequest, "timeframe is required")
		return
	}
	tf, err := models.ParseTimeframe(raw)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit := defaultHistoryLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 1 || n > maxHistoryLimit {
			respondError(w, http.StatusBadRequest, fmt.Sprintf("limit must be an integer between 1 and %d", maxHistoryLimit))
			return
		}
		limit = n
	}

	history, err := h.signals.GetSignalHistory(r.Context(), symbol, tf, limit)
	if err != nil {
		respondServiceError(w, r, fmt.Errorf("failed to load signal history: %w", err))
		return
	}
	respondJSON(w, http.StatusOK, signalsResponse{Count: len(history), Signals: history})
}

// GetAlignment handles GET /alignment/{symbol}
func (h *Handler) GetAlignment(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]

	analysis, err := h.alignment.Analysis(r.Context(), symbol)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, analysis)
}

// ComputeAlignment handles POST /alignment. Nothing is stored.
func (h *Handler) ComputeAlignment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Symbol     string                           `json:"symbol"`
		Timeframes map[string]*models.TradingSignal `json:"timeframes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	in := make(map[models.Timeframe]*models.TradingSignal, len(req.Timeframes))
	for key, s := range req.Timeframes {
		if tf, err := models.ParseTimeframe(strings.ToLower(key)); err == nil {
			in[tf] = s
		}
	}

	analysis := alignment.Analyze(strings.ToUpper(req.Symbol), in)
	respondJSON(w, http.StatusOK, analysis)
}

type signalQuery struct {
	filter signals.Filter
	sort   string
	desc   bool
}

// listSignals loads the latest signals and applies the query's filter and order
func (h *Handler) listSignals(ctx context.Context, q signalQuery) ([]*models.TradingSignal, error) {
	all, err := h.signals.GetLatestSignalsAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load signals: %w", err)
	}

	list := q.filter.Apply(all)
	signals.Sort(list, q.sort, q.desc)
	return list, nil
}

// parseSignalQuery reads filter and sort parameters. Results default to strongest first.
func parseSignalQuery(v url.Values) (signalQuery, error) {
	q := signalQuery{sort: signals.SortByStrength, desc: true}

	if tf := v.Get("timeframe"); tf != "" {
		parsed, err := models.ParseTimeframe(tf)
		if err != nil {
			return q, err
		}
		q.filter.Timeframe = parsed
	}
	if ms := v.Get("min_strength"); ms != "" {
		n, err := strconv.Atoi(ms)
		if err != nil || n < 0 || n > 100 {
			return q, fmt.Errorf("min_strength must be an integer between 0 and 100")
		}
		q.filter.MinStrength = n
	}
	if symbols := v.Get("symbols"); symbols != "" {
		for _, s := range strings.Split(symbols, ",") {
			if s = strings.TrimSpace(s); s != "" {
				q.filter.Symbols = append(q.filter.Symbols, s)
			}
		}
	}
	q.filter.Signal = v.Get("signal")
	q.filter.Grade = v.Get("grade")

	switch field := v.Get("sort"); field {
	case "":
	case signals.SortBySymbol, signals.SortByStrength, signals.SortByPrice, signals.SortByChange, signals.SortByVolume:
		q.sort = field
	default:
		return q, fmt.Errorf("unsupported sort field: %q", field)
	}
	switch order := v.Get("order"); order {
	case "", "desc":
	case "asc":
		q.desc = false
	default:
		return q, fmt.Errorf("order must be asc or desc")
	}
	return q, nil
}
