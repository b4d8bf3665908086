package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/RoberAF/chatbot/internal/model"
	ctxutil "github.com/RoberAF/chatbot/pkg/context"
)

type SubscriptionRepository struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

func (r *SubscriptionRepository) GetByUser(ctx context.Context, userID uint) (*model.Subscription, error) {
	ctx = ctxutil.WithOperation(ctx, "repository", "GetSubscription")

	var sub model.Subscription
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&sub).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

// Upsert creates or replaces the user's subscription row.
func (r *SubscriptionRepository) Upsert(ctx context.Context, sub *model.Subscription) error {
	ctx = ctxutil.WithOperation(ctx, "repository", "UpsertSubscription")

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"tier", "expires_at", "trial_start", "trial_end", "trial_used", "updated_at"}),
		}).
		Create(sub).Error
}
