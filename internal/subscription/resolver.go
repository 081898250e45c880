package subscription

import (
	"time"

	"github.com/trogers1052/ichimoku-signal-service/internal/models"
)

// Resolve derives a wallet's access status at now from its stored records.
// A permanent grant always wins, then a paid period, then the trial window.
func Resolve(sub *models.UserSubscription, grant *models.PermanentAccessGrant, now time.Time) models.SubscriptionStatus {
	status := models.SubscriptionStatus{Status: models.SubscriptionNone}

	if grant != nil {
		status.WalletAddress = grant.WalletAddress
		status.Status = models.SubscriptionActive
		status.Permanent = true
		return status
	}
	if sub == nil {
		return status
	}
	status.WalletAddress = sub.WalletAddress

	if sub.SubscriptionEndsAt != nil {
		ends := *sub.SubscriptionEndsAt
		status.ExpiresAt = &ends
		if now.Before(ends) {
			status.Status = models.SubscriptionActive
		} else {
			status.Status = models.SubscriptionExpired
		}
		return status
	}

	ends := sub.TrialEndsAt
	status.ExpiresAt = &ends
	if now.Before(ends) {
		status.Status = models.SubscriptionTrial
		status.TrialDaysRemaining = daysRemaining(now, ends)
		return status
	}

	status.Status = models.SubscriptionExpired
	return status
}

// daysRemaining rounds the time left up to whole days
func daysRemaining(now, ends time.Time) int {
	left := ends.Sub(now)
	if left <= 0 {
		return 0
	}
	days := int(left / (24 * time.Hour))
	if left%(24*time.Hour) != 0 {
		days++
	}
	return days
}
