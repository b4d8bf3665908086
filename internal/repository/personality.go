package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/RoberAF/chatbot/internal/model"
	ctxutil "github.com/RoberAF/chatbot/pkg/context"
	"github.com/RoberAF/chatbot/pkg/logger"
)

type PersonalityRepository struct {
	db *gorm.DB
}

func NewPersonalityRepository(db *gorm.DB) *PersonalityRepository {
	return &PersonalityRepository{db: db}
}

func (r *PersonalityRepository) Create(ctx context.Context, p *model.Personality) error {
	ctx = ctxutil.WithOperation(ctx, "repository", "CreatePersonality")

	if err := r.db.WithContext(ctx).Create(p).Error; err != nil {
		logger.ErrorWithContext(ctx, "Failed to create personality").
			Uint("user_id", p.UserID).
			Err(err).
			Log()
		return err
	}

	logger.DebugWithContext(ctx, "Personality created").
		Uint("user_id", p.UserID).
		String("personality_id", p.ID).
		Log()
	return nil
}

func (r *PersonalityRepository) GetByID(ctx context.Context, id string) (*model.Personality, error) {
	ctx = ctxutil.WithOperation(ctx, "repository", "GetPersonalityByID")

	var p model.Personality
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// ListByUser returns the user's personas ordered newest first.
func (r *PersonalityRepository) ListByUser(ctx context.Context, userID uint) ([]model.Personality, error) {
	ctx = ctxutil.WithOperation(ctx, "repository", "ListPersonalities")

	var personas []model.Personality
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&personas).Error
	if err != nil {
		return nil, err
	}
	return personas, nil
}

func (r *PersonalityRepository) CountByUser(ctx context.Context, userID uint) (int64, error) {
	ctx = ctxutil.WithOperation(ctx, "repository", "CountPersonalities")

	var count int64
	err := r.db.WithContext(ctx).Model(&model.Personality{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return count, err
}
