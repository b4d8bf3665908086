package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/RoberAF/chatbot/internal/model"
	ctxutil "github.com/RoberAF/chatbot/pkg/context"
	"github.com/RoberAF/chatbot/pkg/logger"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	ctx = ctxutil.WithOperation(ctx, "repository", "CreateUser")

	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		logger.ErrorWithContext(ctx, "Failed to create user").
			String("email", user.Email).
			Err(err).
			Log()
		return err
	}

	logger.DebugWithContext(ctx, "User created").
		Uint("user_id", user.ID).
		Log()
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id uint) (*model.User, error) {
	ctx = ctxutil.WithOperation(ctx, "repository", "GetUserByID")

	var user model.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	ctx = ctxutil.WithOperation(ctx, "repository", "GetUserByEmail")

	var user model.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByConfirmToken matches only unexpired confirmation tokens.
func (r *UserRepository) GetByConfirmToken(ctx context.Context, token string) (*model.User, error) {
	ctx = ctxutil.WithOperation(ctx, "repository", "GetUserByConfirmToken")

	var user model.User
	err := r.db.WithContext(ctx).
		Where("confirm_token = ? AND confirm_token_expiry > ?", token, time.Now().UTC()).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByResetToken matches only unexpired reset tokens.
func (r *UserRepository) GetByResetToken(ctx context.Context, token string) (*model.User, error) {
	ctx = ctxutil.WithOperation(ctx, "repository", "GetUserByResetToken")

	var user model.User
	err := r.db.WithContext(ctx).
		Where("reset_token = ? AND reset_token_expiry > ?", token, time.Now().UTC()).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ConfirmEmail marks the user confirmed and clears the one-time token fields.
func (r *UserRepository) ConfirmEmail(ctx context.Context, userID uint) error {
	ctx = ctxutil.WithOperation(ctx, "repository", "ConfirmEmail")

	err := r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", userID).
		Updates(map[string]any{
			"email_confirmed":      true,
			"confirm_token":        nil,
			"confirm_token_expiry": nil,
		}).Error
	if err != nil {
		logger.ErrorWithContext(ctx, "Failed to confirm email").
			Uint("user_id", userID).
			Err(err).
			Log()
	}
	return err
}

func (r *UserRepository) SetResetToken(ctx context.Context, userID uint, token string, expiry time.Time) error {
	ctx = ctxutil.WithOperation(ctx, "repository", "SetResetToken")

	return r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", userID).
		Updates(map[string]any{
			"reset_token":        token,
			"reset_token_expiry": expiry,
		}).Error
}

// UpdatePassword stores a new password hash and clears any reset token in the
// same statement, making the reset token single-use.
func (r *UserRepository) UpdatePassword(ctx context.Context, userID uint, passwordHash string) error {
	ctx = ctxutil.WithOperation(ctx, "repository", "UpdatePassword")

	return r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", userID).
		Updates(map[string]any{
			"password":           passwordHash,
			"reset_token":        nil,
			"reset_token_expiry": nil,
		}).Error
}

func (r *UserRepository) SetActivePersonality(ctx context.Context, userID uint, personalityID string) error {
	ctx = ctxutil.WithOperation(ctx, "repository", "SetActivePersonality")

	err := r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", userID).
		Update("active_personality_id", personalityID).Error
	if err != nil {
		logger.ErrorWithContext(ctx, "Failed to set active personality").
			Uint("user_id", userID).
			String("personality_id", personalityID).
			Err(err).
			Log()
	}
	return err
}

func (r *UserRepository) UpdateProfile(ctx context.Context, userID uint, fields map[string]any) (*model.User, error) {
	ctx = ctxutil.WithOperation(ctx, "repository", "UpdateProfile")

	if len(fields) > 0 {
		if err := r.db.WithContext(ctx).Model(&model.User{}).
			Where("id = ?", userID).
			Updates(fields).Error; err != nil {
			return nil, err
		}
	}
	return r.GetByID(ctx, userID)
}
