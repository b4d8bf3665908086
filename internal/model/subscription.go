package model

import (
	"time"

	"gorm.io/gorm"
)

// Subscription is mutated only through the billing service boundary;
// everything else reads it.
type Subscription struct {
	gorm.Model
	UserID     uint       `gorm:"column:user_id;uniqueIndex;not null"`
	Tier       string     `gorm:"column:tier;default:FREE;not null"`
	ExpiresAt  *time.Time `gorm:"column:expires_at"`
	TrialStart *time.Time `gorm:"column:trial_start"`
	TrialEnd   *time.Time `gorm:"column:trial_end"`
	TrialUsed  bool       `gorm:"column:trial_used;default:false;not null"`
}
