package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/trogers1052/ichimoku-signal-service/internal/models"
	"github.com/trogers1052/ichimoku-signal-service/pkg/logger"
	"github.com/trogers1052/ichimoku-signal-service/pkg/validate"
)

// SignalReader lists stored signals
type SignalReader interface {
	GetLatestSignalsAll(ctx context.Context) ([]*models.TradingSignal, error)
	GetSignalHistory(ctx context.Context, symbol string, tf models.Timeframe, limit int) ([]*models.TradingSignal, error)
}

// AlignmentService ingests signals and serves per-symbol analyses
type AlignmentService interface {
	Ingest(ctx context.Context, s *models.TradingSignal, source string) (*models.MultiTimeframeAnalysis, error)
	IngestBatch(ctx context.Context, batch []*models.TradingSignal, source string) ([]*models.MultiTimeframeAnalysis, error)
	Analysis(ctx context.Context, symbol string) (*models.MultiTimeframeAnalysis, error)
}

// SubscriptionService resolves and changes wallet access
type SubscriptionService interface {
	Status(ctx context.Context, wallet string) (models.SubscriptionStatus, error)
	StartTrial(ctx context.Context, wallet string) (models.SubscriptionStatus, error)
	Activate(ctx context.Context, wallet, paymentRef string, days int) (models.SubscriptionStatus, error)
	GrantPermanentAccess(ctx context.Context, wallet, reason, grantedBy string) error
}

// Pinger reports whether a dependency is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	signals       SignalReader
	alignment     AlignmentService
	subscriptions SubscriptionService
	db            Pinger
	now           func() time.Time
}

// NewHandler creates a new Handler. db may be nil.
func NewHandler(signals SignalReader, alignment AlignmentService, subscriptions SubscriptionService, db Pinger) *Handler {
	return &Handler{
		signals:       signals,
		alignment:     alignment,
		subscriptions: subscriptions,
		db:            db,
		now:           time.Now,
	}
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "database": err.Error()})
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

type errorResponse struct {
	Error  string                `json:"error"`
	Fields []validate.FieldError `json:"fields,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Warn("failed to encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, errorResponse{Error: msg})
}

// respondServiceError maps validation and not-found errors to client errors
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *validate.Error
	switch {
	case errors.As(err, &verr):
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "validation failed", Fields: verr.Fields})
	case errors.Is(err, models.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	default:
		logger.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", RequestIDFromContext(r.Context())),
			zap.Error(err),
		)
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}
