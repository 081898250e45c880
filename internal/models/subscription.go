package models

import "time"

// Subscription status constants
const (
	SubscriptionTrial   = "trial"
	SubscriptionActive  = "active"
	SubscriptionExpired = "expired"
	SubscriptionNone    = "none"
)

// UserSubscription is the stored subscription record of a wallet
type UserSubscription struct {
	ID                 int        `json:"id"`
	WalletAddress      string     `json:"wallet_address"`
	Status             string     `json:"status"`
	TrialStartedAt     time.Time  `json:"trial_started_at"`
	TrialEndsAt        time.Time  `json:"trial_ends_at"`
	SubscriptionEndsAt *time.Time `json:"subscription_ends_at,omitempty"`
	PaymentReference   string     `json:"payment_reference,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// PermanentAccessGrant gives a wallet unlimited access regardless of payments
type PermanentAccessGrant struct {
	ID            int       `json:"id"`
	WalletAddress string    `json:"wallet_address"`
	Reason        string    `json:"reason,omitempty"`
	GrantedBy     string    `json:"granted_by,omitempty"`
	GrantedAt     time.Time `json:"granted_at"`
}

// SubscriptionStatus is the resolved access state of a wallet at a point in time
type SubscriptionStatus struct {
	WalletAddress      string     `json:"wallet_address"`
	Status             string     `json:"status"`
	TrialDaysRemaining int        `json:"trial_days_remaining"`
	ExpiresAt          *time.Time `json:"expires_at"`
	Permanent          bool       `json:"permanent"`
}

// HasAccess reports whether the status unlocks signal data
func (s SubscriptionStatus) HasAccess() bool {
	return s.Status == SubscriptionTrial || s.Status == SubscriptionActive
}
