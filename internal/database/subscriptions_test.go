package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trogers1052/ichimoku-signal-service/internal/models"
)

func TestSubscriptionsRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	testDB := SetupTestDB(t)
	defer testDB.Cleanup(t)
	ctx := context.Background()
	start := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)

	newTrial := func(wallet string) *models.UserSubscription {
		return &models.UserSubscription{
			WalletAddress:  wallet,
			TrialStartedAt: start,
			TrialEndsAt:    start.Add(7 * 24 * time.Hour),
		}
	}

	t.Run("CreateSubscription creates trial", func(t *testing.T) {
		testDB.TruncateAll(t)

		s := newTrial("0xabc")
		require.NoError(t, testDB.CreateSubscription(ctx, s))
		assert.NotZero(t, s.ID)
		assert.Equal(t, models.SubscriptionTrial, s.Status)

		got, err := testDB.GetSubscription(ctx, "0xabc")
		require.NoError(t, err)
		assert.Equal(t, models.SubscriptionTrial, got.Status)
		assert.True(t, start.Add(7*24*time.Hour).Equal(got.TrialEndsAt))
		assert.Nil(t, got.SubscriptionEndsAt)
		assert.Empty(t, got.PaymentReference)
	})

	t.Run("CreateSubscription keeps existing record", func(t *testing.T) {
		testDB.TruncateAll(t)

		require.NoError(t, testDB.CreateSubscription(ctx, newTrial("0xabc")))

		again := newTrial("0xabc")
		again.TrialEndsAt = start.Add(30 * 24 * time.Hour)
		require.NoError(t, testDB.CreateSubscription(ctx, again))
		assert.True(t, start.Add(7*24*time.Hour).Equal(again.TrialEndsAt))
	})

	t.Run("GetSubscription returns ErrNotFound", func(t *testing.T) {
		testDB.TruncateAll(t)

		_, err := testDB.GetSubscription(ctx, "0xmissing")
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("ActivateSubscription stores payment", func(t *testing.T) {
		testDB.TruncateAll(t)

		require.NoError(t, testDB.CreateSubscription(ctx, newTrial("0xabc")))
		endsAt := start.Add(30 * 24 * time.Hour)
		require.NoError(t, testDB.ActivateSubscription(ctx, "0xabc", "tx-hash-1", endsAt))

		got, err := testDB.GetSubscription(ctx, "0xabc")
		require.NoError(t, err)
		assert.Equal(t, models.SubscriptionActive, got.Status)
		assert.Equal(t, "tx-hash-1", got.PaymentReference)
		require.NotNil(t, got.SubscriptionEndsAt)
		assert.True(t, endsAt.Equal(*got.SubscriptionEndsAt))
	})

	t.Run("ActivateSubscription unknown wallet", func(t *testing.T) {
		testDB.TruncateAll(t)

		err := testDB.ActivateSubscription(ctx, "0xnobody", "tx", start)
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("ExpireLapsedSubscriptions", func(t *testing.T) {
		testDB.TruncateAll(t)

		require.NoError(t, testDB.CreateSubscription(ctx, newTrial("0xlapsed")))
		require.NoError(t, testDB.CreateSubscription(ctx, newTrial("0xpaid")))
		require.NoError(t, testDB.ActivateSubscription(ctx, "0xpaid", "tx", start.Add(60*24*time.Hour)))

		n, err := testDB.ExpireLapsedSubscriptions(ctx, start.Add(10*24*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		lapsed, err := testDB.GetSubscription(ctx, "0xlapsed")
		require.NoError(t, err)
		assert.Equal(t, models.SubscriptionExpired, lapsed.Status)

		paid, err := testDB.GetSubscription(ctx, "0xpaid")
		require.NoError(t, err)
		assert.Equal(t, models.SubscriptionActive, paid.Status)
	})

	t.Run("access grants", func(t *testing.T) {
		testDB.TruncateAll(t)

		_, err := testDB.GetAccessGrant(ctx, "0xvip")
		assert.ErrorIs(t, err, models.ErrNotFound)

		g := &models.PermanentAccessGrant{WalletAddress: "0xvip", Reason: "beta tester", GrantedBy: "admin"}
		require.NoError(t, testDB.CreateAccessGrant(ctx, g))
		assert.NotZero(t, g.ID)

		got, err := testDB.GetAccessGrant(ctx, "0xvip")
		require.NoError(t, err)
		assert.Equal(t, "beta tester", got.Reason)
		assert.Equal(t, "admin", got.GrantedBy)

		g2 := &models.PermanentAccessGrant{WalletAddress: "0xvip", Reason: "partner"}
		require.NoError(t, testDB.CreateAccessGrant(ctx, g2))
		assert.Equal(t, g.ID, g2.ID)
	})
}
