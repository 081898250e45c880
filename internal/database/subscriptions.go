package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/trogers1052/ichimoku-signal-service/internal/models"
)

// CreateSubscription inserts a trial record. An existing record for the
// wallet is left as is and s is filled from it.
func (db *DB) CreateSubscription(ctx context.Context, s *models.UserSubscription) error {
	query := `
		INSERT INTO user_subscriptions (wallet_address, status, trial_started_at, trial_ends_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (wallet_address) DO NOTHING
		RETURNING id, created_at, updated_at
	`
	if s.Status == "" {
		s.Status = models.SubscriptionTrial
	}
	err := db.conn.QueryRowContext(ctx, query,
		s.WalletAddress, s.Status, s.TrialStartedAt, s.TrialEndsAt,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		existing, err := db.GetSubscription(ctx, s.WalletAddress)
		if err != nil {
			return err
		}
		*s = *existing
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to create subscription: %w", err)
	}
	return nil
}

// GetSubscription retrieves the subscription record of a wallet
func (db *DB) GetSubscription(ctx context.Context, wallet string) (*models.UserSubscription, error) {
	query := `
		SELECT id, wallet_address, status, trial_started_at, trial_ends_at,
			subscription_ends_at, payment_reference, created_at, updated_at
		FROM user_subscriptions
		WHERE wallet_address = $1
	`
	var s models.UserSubscription
	var subscriptionEndsAt sql.NullTime
	var paymentReference sql.NullString

	err := db.conn.QueryRowContext(ctx, query, wallet).Scan(
		&s.ID, &s.WalletAddress, &s.Status, &s.TrialStartedAt, &s.TrialEndsAt,
		&subscriptionEndsAt, &paymentReference, &s.CreatedAt, &s.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("subscription for %s: %w", wallet, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	if subscriptionEndsAt.Valid {
		t := subscriptionEndsAt.Time
		s.SubscriptionEndsAt = &t
	}
	s.PaymentReference = paymentReference.String
	return &s, nil
}

// ActivateSubscription records a verified payment and its paid-through time
func (db *DB) ActivateSubscription(ctx context.Context, wallet, paymentRef string, endsAt time.Time) error {
	query := `
		UPDATE user_subscriptions
		SET status = 'active', payment_reference = $1, subscription_ends_at = $2, updated_at = NOW()
		WHERE wallet_address = $3
	`
	result, err := db.conn.ExecContext(ctx, query, paymentRef, endsAt, wallet)
	if err != nil {
		return fmt.Errorf("failed to activate subscription: %w", err)
	}
	return requireAffected(result, "subscription for "+wallet)
}

// ExpireLapsedSubscriptions marks trial and paid records whose period ended
// before now as expired. It returns the number of rows changed.
func (db *DB) ExpireLapsedSubscriptions(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE user_subscriptions
		SET status = 'expired', updated_at = NOW()
		WHERE status <> 'expired'
		AND COALESCE(subscription_ends_at, trial_ends_at) <= $1
	`
	result, err := db.conn.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("failed to expire subscriptions: %w", err)
	}
	return result.RowsAffected()
}

// CreateAccessGrant stores a permanent access grant, replacing the reason of an existing one
func (db *DB) CreateAccessGrant(ctx context.Context, g *models.PermanentAccessGrant) error {
	query := `
		INSERT INTO permanent_access_grants (wallet_address, reason, granted_by)
		VALUES ($1, $2, $3)
		ON CONFLICT (wallet_address) DO UPDATE SET
			reason = EXCLUDED.reason,
			granted_by = EXCLUDED.granted_by
		RETURNING id, granted_at
	`
	err := db.conn.QueryRowContext(ctx, query,
		g.WalletAddress, nullString(g.Reason), nullString(g.GrantedBy),
	).Scan(&g.ID, &g.GrantedAt)
	if err != nil {
		return fmt.Errorf("failed to create access grant: %w", err)
	}
	return nil
}

// GetAccessGrant retrieves the permanent access grant of a wallet
func (db *DB) GetAccessGrant(ctx context.Context, wallet string) (*models.PermanentAccessGrant, error) {
	query := `
		SELECT id, wallet_address, reason, granted_by, granted_at
		FROM permanent_access_grants
		WHERE wallet_address = $1
	`
	var g models.PermanentAccessGrant
	var reason, grantedBy sql.NullString

	err := db.conn.QueryRowContext(ctx, query, wallet).Scan(
		&g.ID, &g.WalletAddress, &reason, &grantedBy, &g.GrantedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("access grant for %s: %w", wallet, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get access grant: %w", err)
	}

	g.Reason = reason.String
	g.GrantedBy = grantedBy.String
	return &g, nil
}

func requireAffected(result sql.Result, what string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, models.ErrNotFound)
	}
	return nil
}
