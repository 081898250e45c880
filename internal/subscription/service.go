// Package subscription resolves wallet trial and paid access.
package subscription

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/trogers1052/ichimoku-signal-service/internal/models"
	"github.com/trogers1052/ichimoku-signal-service/pkg/logger"
)

// ErrInvalidWallet is returned for an empty wallet address
var ErrInvalidWallet = errors.New("wallet address is required")

// Repository defines the storage the service needs
type Repository interface {
	GetSubscription(ctx context.Context, wallet string) (*models.UserSubscription, error)
	CreateSubscription(ctx context.Context, s *models.UserSubscription) error
	ActivateSubscription(ctx context.Context, wallet, paymentRef string, endsAt time.Time) error
	GetAccessGrant(ctx context.Context, wallet string) (*models.PermanentAccessGrant, error)
	CreateAccessGrant(ctx context.Context, g *models.PermanentAccessGrant) error
}

// Config controls trial and paid period lengths
type Config struct {
	TrialDays int
	PaidDays  int
}

// Service manages wallet subscriptions
type Service struct {
	repo   Repository
	config Config
	now    func() time.Time
}

// NewService creates a new subscription service
func NewService(repo Repository, config Config) *Service {
	if config.TrialDays <= 0 {
		config.TrialDays = 7
	}
	if config.PaidDays <= 0 {
		config.PaidDays = 30
	}
	return &Service{repo: repo, config: config, now: time.Now}
}

// NormalizeWallet lower-cases and trims a wallet address
func NormalizeWallet(wallet string) string {
	return strings.ToLower(strings.TrimSpace(wallet))
}

// Status resolves the current access status of a wallet
func (s *Service) Status(ctx context.Context, wallet string) (models.SubscriptionStatus, error) {
	wallet = NormalizeWallet(wallet)
	if wallet == "" {
		return models.SubscriptionStatus{}, ErrInvalidWallet
	}

	grant, err := s.repo.GetAccessGrant(ctx, wallet)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return models.SubscriptionStatus{}, fmt.Errorf("failed to get access grant: %w", err)
	}

	sub, err := s.repo.GetSubscription(ctx, wallet)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return models.SubscriptionStatus{}, fmt.Errorf("failed to get subscription: %w", err)
	}

	status := Resolve(sub, grant, s.now())
	status.WalletAddress = wallet
	return status, nil
}

// StartTrial creates the trial record on a wallet's first connection.
// Calling it again for a known wallet leaves the existing record untouched.
func (s *Service) StartTrial(ctx context.Context, wallet string) (models.SubscriptionStatus, error) {
	wallet = NormalizeWallet(wallet)
	if wallet == "" {
		return models.SubscriptionStatus{}, ErrInvalidWallet
	}

	_, err := s.repo.GetSubscription(ctx, wallet)
	switch {
	case err == nil:
		return s.Status(ctx, wallet)
	case !errors.Is(err, models.ErrNotFound):
		return models.SubscriptionStatus{}, fmt.Errorf("failed to get subscription: %w", err)
	}

	now := s.now()
	sub := &models.UserSubscription{
		WalletAddress:  wallet,
		Status:         models.SubscriptionTrial,
		TrialStartedAt: now,
		TrialEndsAt:    now.Add(time.Duration(s.config.TrialDays) * 24 * time.Hour),
	}
	if err := s.repo.CreateSubscription(ctx, sub); err != nil {
		return models.SubscriptionStatus{}, fmt.Errorf("failed to create trial: %w", err)
	}

	logger.Info("trial started",
		zap.String("wallet", wallet),
		zap.Time("ends_at", sub.TrialEndsAt),
	)
	return s.Status(ctx, wallet)
}

// Activate records a payment that was verified upstream. Paid time extends
// from the later of now and the current paid expiry.
func (s *Service) Activate(ctx context.Context, wallet, paymentRef string, days int) (models.SubscriptionStatus, error) {
	wallet = NormalizeWallet(wallet)
	if wallet == "" {
		return models.SubscriptionStatus{}, ErrInvalidWallet
	}
	if paymentRef == "" {
		return models.SubscriptionStatus{}, fmt.Errorf("payment reference is required")
	}
	if days <= 0 {
		days = s.config.PaidDays
	}

	if _, err := s.StartTrial(ctx, wallet); err != nil {
		return models.SubscriptionStatus{}, err
	}
	sub, err := s.repo.GetSubscription(ctx, wallet)
	if err != nil {
		return models.SubscriptionStatus{}, fmt.Errorf("failed to get subscription: %w", err)
	}

	from := s.now()
	if sub.SubscriptionEndsAt != nil && sub.SubscriptionEndsAt.After(from) {
		from = *sub.SubscriptionEndsAt
	}
	endsAt := from.Add(time.Duration(days) * 24 * time.Hour)

	if err := s.repo.ActivateSubscription(ctx, wallet, paymentRef, endsAt); err != nil {
		return models.SubscriptionStatus{}, fmt.Errorf("failed to activate subscription: %w", err)
	}

	logger.Info("subscription activated",
		zap.String("wallet", wallet),
		zap.String("payment_reference", paymentRef),
		zap.Time("ends_at", endsAt),
	)
	return s.Status(ctx, wallet)
}

// GrantPermanentAccess gives a wallet access that never expires
func (s *Service) GrantPermanentAccess(ctx context.Context, wallet, reason, grantedBy string) error {
	wallet = NormalizeWallet(wallet)
	if wallet == "" {
		return ErrInvalidWallet
	}

	g := &models.PermanentAccessGrant{
		WalletAddress: wallet,
		Reason:        reason,
		GrantedBy:     grantedBy,
	}
	if err := s.repo.CreateAccessGrant(ctx, g); err != nil {
		return fmt.Errorf("failed to grant permanent access: %w", err)
	}
	return nil
}
