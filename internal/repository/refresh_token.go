package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/RoberAF/chatbot/internal/model"
	ctxutil "github.com/RoberAF/chatbot/pkg/context"
	"github.com/RoberAF/chatbot/pkg/logger"
)

type RefreshTokenRepository struct {
	db *gorm.DB
}

func NewRefreshTokenRepository(db *gorm.DB) *RefreshTokenRepository {
	return &RefreshTokenRepository{db: db}
}

func (r *RefreshTokenRepository) Create(ctx context.Context, token *model.RefreshToken) error {
	ctx = ctxutil.WithOperation(ctx, "repository", "CreateRefreshToken")

	if err := r.db.WithContext(ctx).Create(token).Error; err != nil {
		logger.ErrorWithContext(ctx, "Failed to store refresh token").
			Uint("user_id", token.UserID).
			Err(err).
			Log()
		return err
	}
	return nil
}

// Consume atomically deletes the token row matching the hash and returns the
// owning user id. The single conditional delete-returning-row closes the
// rotation race: of two concurrent refreshes presenting the same token,
// exactly one observes a deleted row.
func (r *RefreshTokenRepository) Consume(ctx context.Context, tokenHash string) (uint, error) {
	ctx = ctxutil.WithOperation(ctx, "repository", "ConsumeRefreshToken")

	var deleted []model.RefreshToken
	result := r.db.WithContext(ctx).
		Clauses(clause.Returning{}).
		Where("token_hash = ?", tokenHash).
		Delete(&deleted)
	if result.Error != nil {
		logger.ErrorWithContext(ctx, "Failed to consume refresh token").
			Err(result.Error).
			Log()
		return 0, result.Error
	}
	if result.RowsAffected == 0 || len(deleted) == 0 {
		return 0, gorm.ErrRecordNotFound
	}
	return deleted[0].UserID, nil
}

// DeleteAllForUser revokes every refresh token of the user (all devices).
func (r *RefreshTokenRepository) DeleteAllForUser(ctx context.Context, userID uint) error {
	ctx = ctxutil.WithOperation(ctx, "repository", "DeleteAllRefreshTokens")

	result := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&model.RefreshToken{})
	if result.Error != nil {
		logger.ErrorWithContext(ctx, "Failed to revoke refresh tokens").
			Uint("user_id", userID).
			Err(result.Error).
			Log()
		return result.Error
	}

	logger.DebugWithContext(ctx, "Refresh tokens revoked").
		Uint("user_id", userID).
		Int64("revoked_count", result.RowsAffected).
		Log()
	return nil
}
