package database

import (
	"github.com/RoberAF/chatbot/internal/model"
	"gorm.io/gorm"
)

// AutoMigrate runs database migrations for all models
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.RefreshToken{},
		&model.Personality{},
		&model.Message{},
		&model.Subscription{},
	)
}
