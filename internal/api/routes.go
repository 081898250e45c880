package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/trogers1052/ichimoku-signal-service/pkg/metrics"
)

// RouteOptions configures optional routes and middleware
type RouteOptions struct {
	Metrics             http.Handler
	Recorder            *metrics.Recorder
	RequireSubscription bool
	// AdminToken protects activation and grants; empty disables them
	AdminToken string
}

// SetupRoutes configures all API routes
func SetupRoutes(handler *Handler, opts RouteOptions) *mux.Router {
	r := mux.NewRouter()
	r.Use(RequestID, AccessLog(opts.Recorder))

	// Health check
	r.HandleFunc("/health", handler.HealthCheck).Methods("GET")
	if opts.Metrics != nil {
		r.Handle("/metrics", opts.Metrics).Methods("GET")
	}

	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/signals", handler.IngestSignal).Methods("POST")
	api.HandleFunc("/signals/batch", handler.IngestSignalBatch).Methods("POST")
	api.HandleFunc("/alignment", handler.ComputeAlignment).Methods("POST")

	// Signal data, gated by subscription when enabled
	data := api.NewRoute().Subrouter()
	if opts.RequireSubscription {
		data.Use(handler.RequireAccess)
	}
	data.HandleFunc("/signals", handler.GetSignals).Methods("GET")
	data.HandleFunc("/signals/export", handler.ExportSignals).Methods("GET")
	data.HandleFunc("/signals/{symbol}/history", handler.GetSignalHistory).Methods("GET")
	data.HandleFunc("/alignment/{symbol}", handler.GetAlignment).Methods("GET")

	// Subscription routes
	api.HandleFunc("/subscriptions/{wallet}", handler.GetSubscription).Methods("GET")
	api.HandleFunc("/subscriptions/{wallet}/trial", handler.StartTrial).Methods("POST")

	// Payment verifier and operator routes
	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(RequireAdmin(opts.AdminToken))
	admin.HandleFunc("/subscriptions/{wallet}/activate", handler.ActivateSubscription).Methods("POST")
	admin.HandleFunc("/subscriptions/{wallet}/grant", handler.GrantAccess).Methods("POST")

	return r
}
