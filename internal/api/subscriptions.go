package api

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/trogers1052/ichimoku-signal-service/internal/subscription"
	"github.com/trogers1052/ichimoku-signal-service/pkg/validate"
)

// WalletHeader carries the caller's wallet address on gated routes
const WalletHeader = "X-Wallet-Address"

// AdminTokenHeader carries the shared secret of the payment verifier and operators
const AdminTokenHeader = "X-Admin-Token"

type activateRequest struct {
	PaymentReference string `json:"payment_reference" validate:"required,max=200"`
	Days             int    `json:"days" validate:"gte=0,lte=366"`
}

type grantRequest struct {
	Reason    string `json:"reason" validate:"max=500"`
	GrantedBy string `json:"granted_by" validate:"required,max=100"`
}

// GetSubscription handles GET /subscriptions/{wallet}
func (h *Handler) GetSubscription(w http.ResponseWriter, r *http.Request) {
	status, err := h.subscriptions.Status(r.Context(), mux.Vars(r)["wallet"])
	if err != nil {
		h.respondSubscriptionError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, status)
}

// StartTrial handles POST /subscriptions/{wallet}/trial
func (h *Handler) StartTrial(w http.ResponseWriter, r *http.Request) {
	status, err := h.subscriptions.StartTrial(r.Context(), mux.Vars(r)["wallet"])
	if err != nil {
		h.respondSubscriptionError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, status)
}

// ActivateSubscription handles POST /admin/subscriptions/{wallet}/activate.
// The payment must already be verified by the caller.
func (h *Handler) ActivateSubscription(w http.ResponseWriter, r *http.Request) {
	var req activateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(r.Context(), &req); err != nil {
		respondServiceError(w, r, err)
		return
	}

	status, err := h.subscriptions.Activate(r.Context(), mux.Vars(r)["wallet"], req.PaymentReference, req.Days)
	if err != nil {
		h.respondSubscriptionError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, status)
}

// GrantAccess handles POST /admin/subscriptions/{wallet}/grant
func (h *Handler) GrantAccess(w http.ResponseWriter, r *http.Request) {
	var req grantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(r.Context(), &req); err != nil {
		respondServiceError(w, r, err)
		return
	}

	wallet := mux.Vars(r)["wallet"]
	if err := h.subscriptions.GrantPermanentAccess(r.Context(), wallet, req.Reason, req.GrantedBy); err != nil {
		h.respondSubscriptionError(w, r, err)
		return
	}

	status, err := h.subscriptions.Status(r.Context(), wallet)
	if err != nil {
		h.respondSubscriptionError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, status)
}

func (h *Handler) respondSubscriptionError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, subscription.ErrInvalidWallet) {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondServiceError(w, r, err)
}

// RequireAccess rejects requests whose wallet has no trial or active subscription
func (h *Handler) RequireAccess(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wallet := r.Header.Get(WalletHeader)
		if wallet == "" {
			respondError(w, http.StatusUnauthorized, WalletHeader+" header is required")
			return
		}

		status, err := h.subscriptions.Status(r.Context(), wallet)
		if err != nil {
			h.respondSubscriptionError(w, r, err)
			return
		}
		if !status.HasAccess() {
			respondJSON(w, http.StatusPaymentRequired, map[string]interface{}{
				"error":        "subscription required",
				"subscription": status,
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin allows only requests carrying the configured admin token.
// With no token configured every request is refused.
func RequireAdmin(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(AdminTokenHeader)
			if got == "" {
				respondError(w, http.StatusUnauthorized, AdminTokenHeader+" header is required")
				return
			}
			if token == "" || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				respondError(w, http.StatusForbidden, "invalid admin token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
