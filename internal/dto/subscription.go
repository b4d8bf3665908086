package dto

import "time"

type SubscriptionStatusResponse struct {
	Tier            string     `json:"tier"`
	ExpiresAt       *time.Time `json:"expiresAt"`
	IsOnTrial       bool       `json:"isOnTrial"`
	TrialEndDate    *time.Time `json:"trialEndDate"`
	DaysLeftInTrial int        `json:"daysLeftInTrial"`
}

type StartTrialRequest struct {
	Tier string `json:"tier" binding:"required,paid_tier"`
}

type StartTrialResponse struct {
	Success      bool      `json:"success"`
	TrialEndDate time.Time `json:"trialEndDate"`
}

// BillingWebhookRequest is the opaque billing-provider event surface. Only
// the fields the tier mutation needs are bound; the rest of the payload is
// ignored.
type BillingWebhookRequest struct {
	Type      string     `json:"type" binding:"required"`
	UserID    uint       `json:"userId" binding:"required"`
	Tier      string     `json:"tier" binding:"omitempty,tier"`
	ExpiresAt *time.Time `json:"expiresAt"`
}
