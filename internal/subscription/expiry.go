package subscription

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/trogers1052/ichimoku-signal-service/pkg/logger"
)

// Expirer bulk-expires lapsed trial and paid records
type Expirer interface {
	ExpireLapsedSubscriptions(ctx context.Context, now time.Time) (int64, error)
}

// ExpirySweeper keeps stored statuses in step with the resolver.
// Access checks do not depend on it.
type ExpirySweeper struct {
	store Expirer
	now   func() time.Time
}

// NewExpirySweeper creates the subscription expiry worker
func NewExpirySweeper(store Expirer) *ExpirySweeper {
	return &ExpirySweeper{store: store, now: time.Now}
}

// Name returns worker name for logging
func (e *ExpirySweeper) Name() string {
	return "subscription-expiry"
}

// Run marks every lapsed subscription as expired
func (e *ExpirySweeper) Run(ctx context.Context) error {
	n, err := e.store.ExpireLapsedSubscriptions(ctx, e.now().UTC())
	if err != nil {
		return fmt.Errorf("failed to expire subscriptions: %w", err)
	}
	if n > 0 {
		logger.Info("subscriptions expired", zap.Int64("count", n))
	}
	return nil
}
