package model

import "time"

// Message is an append-only transcript entry for a persona.
type Message struct {
	ID            uint      `gorm:"primarykey"`
	PersonalityID string    `gorm:"column:personality_id;not null;index"`
	Sender        string    `gorm:"column:sender;not null"`
	Content       string    `gorm:"column:content;not null"`
	CreatedAt     time.Time `gorm:"column:created_at;index"`
}
