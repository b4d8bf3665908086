package model

import "time"

// RefreshToken stores only a SHA-256 lookup hash of the opaque token value.
// The unique index makes the rotate step a single conditional delete instead
// of a full-table compare scan. No expiry column: lifetime is until rotated
// or revoked.
type RefreshToken struct {
	ID        uint      `gorm:"primarykey"`
	UserID    uint      `gorm:"column:user_id;not null;index"`
	TokenHash string    `gorm:"column:token_hash;uniqueIndex;not null"`
	CreatedAt time.Time
}
