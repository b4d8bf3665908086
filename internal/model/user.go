package model

import (
	"time"

	"gorm.io/gorm"
)

// User is the identity record. ActivePersonalityID carries persona selection
// only; session revocation is expressed exclusively through refresh-token
// deletion so the two states can never shadow each other.
type User struct {
	gorm.Model
	Email              string     `gorm:"column:email;unique;not null"`
	Password           string     `gorm:"column:password;not null"`
	Name               string     `gorm:"column:name"`
	Age                *int       `gorm:"column:age"`
	EmailConfirmed     bool       `gorm:"column:email_confirmed;default:false;not null"`
	ConfirmToken       *string    `gorm:"column:confirm_token;index:idx_users_confirm_token,where:confirm_token IS NOT NULL"`
	ConfirmTokenExpiry *time.Time `gorm:"column:confirm_token_expiry"`
	ResetToken         *string    `gorm:"column:reset_token;index:idx_users_reset_token,where:reset_token IS NOT NULL"`
	ResetTokenExpiry   *time.Time `gorm:"column:reset_token_expiry"`
	ActivePersonalityID *string   `gorm:"column:active_personality_id"`
}
