package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/RoberAF/chatbot/internal/model"
	ctxutil "github.com/RoberAF/chatbot/pkg/context"
	"github.com/RoberAF/chatbot/pkg/logger"
)

type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Append(ctx context.Context, m *model.Message) error {
	ctx = ctxutil.WithOperation(ctx, "repository", "AppendMessage")

	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		logger.ErrorWithContext(ctx, "Failed to append message").
			String("personality_id", m.PersonalityID).
			String("sender", m.Sender).
			Err(err).
			Log()
		return err
	}
	return nil
}

// ListByPersonality replays the full transcript in ascending creation order.
// The id tie-breaker keeps the replay stable when timestamps collide.
func (r *MessageRepository) ListByPersonality(ctx context.Context, personalityID string) ([]model.Message, error) {
	ctx = ctxutil.WithOperation(ctx, "repository", "ListMessages")

	var messages []model.Message
	err := r.db.WithContext(ctx).
		Where("personality_id = ?", personalityID).
		Order("created_at ASC, id ASC").
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}
