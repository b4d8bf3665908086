package service

import (
	"context"
	"time"

	"github.com/RoberAF/chatbot/internal/model"
	"github.com/RoberAF/chatbot/internal/repository"
)

// Persistence surfaces consumed by the services. Defined here so services
// can be exercised against in-memory fakes; the repository package provides
// the gorm-backed implementations.

type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id uint) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByConfirmToken(ctx context.Context, token string) (*model.User, error)
	GetByResetToken(ctx context.Context, token string) (*model.User, error)
	ConfirmEmail(ctx context.Context, userID uint) error
	SetResetToken(ctx context.Context, userID uint, token string, expiry time.Time) error
	UpdatePassword(ctx context.Context, userID uint, passwordHash string) error
	SetActivePersonality(ctx context.Context, userID uint, personalityID string) error
	UpdateProfile(ctx context.Context, userID uint, fields map[string]any) (*model.User, error)
}

type RefreshTokenStore interface {
	Create(ctx context.Context, token *model.RefreshToken) error
	Consume(ctx context.Context, tokenHash string) (uint, error)
	DeleteAllForUser(ctx context.Context, userID uint) error
}

type PersonalityStore interface {
	Create(ctx context.Context, p *model.Personality) error
	GetByID(ctx context.Context, id string) (*model.Personality, error)
	ListByUser(ctx context.Context, userID uint) ([]model.Personality, error)
	CountByUser(ctx context.Context, userID uint) (int64, error)
}

type MessageStore interface {
	Append(ctx context.Context, m *model.Message) error
	ListByPersonality(ctx context.Context, personalityID string) ([]model.Message, error)
}

type SubscriptionStore interface {
	GetByUser(ctx context.Context, userID uint) (*model.Subscription, error)
	Upsert(ctx context.Context, sub *model.Subscription) error
}

var (
	_ UserStore         = (*repository.UserRepository)(nil)
	_ RefreshTokenStore = (*repository.RefreshTokenRepository)(nil)
	_ PersonalityStore  = (*repository.PersonalityRepository)(nil)
	_ MessageStore      = (*repository.MessageRepository)(nil)
	_ SubscriptionStore = (*repository.SubscriptionRepository)(nil)
)
