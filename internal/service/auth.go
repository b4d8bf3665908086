package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/RoberAF/chatbot/config"
	"github.com/RoberAF/chatbot/internal/dto"
	apperrors "github.com/RoberAF/chatbot/internal/errors"
	"github.com/RoberAF/chatbot/internal/model"
	ctxutil "github.com/RoberAF/chatbot/pkg/context"
	"github.com/RoberAF/chatbot/pkg/identity"
	"github.com/RoberAF/chatbot/pkg/logger"
	"github.com/RoberAF/chatbot/pkg/mailer"
)

type AuthService struct {
	users    UserStore
	tokens   RefreshTokenStore
	jwt      *JWTService
	mail     mailer.Mailer
	verifier identity.Verifier
	personas *PersonalityService
	billing  *SubscriptionService

	confirmTokenTTL time.Duration
	resetTokenTTL   time.Duration
}

func NewAuthService(
	users UserStore,
	tokens RefreshTokenStore,
	jwtService *JWTService,
	mail mailer.Mailer,
	verifier identity.Verifier,
	personas *PersonalityService,
	billing *SubscriptionService,
	cfg *config.Config,
) *AuthService {
	return &AuthService{
		users:           users,
		tokens:          tokens,
		jwt:             jwtService,
		mail:            mail,
		verifier:        verifier,
		personas:        personas,
		billing:         billing,
		confirmTokenTTL: cfg.JWT.ConfirmTokenTTL,
		resetTokenTTL:   cfg.JWT.ResetTokenTTL,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates an unconfirmed account and sends the confirmation mail.
// Mail delivery failure does not roll the account back; the token stays
// valid and the mail can be re-requested.
func (s *AuthService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.UserResponse, error) {
	ctx = ctxutil.WithOperation(ctx, "service", "Register")
	email := normalizeEmail(req.Email)

	logger.InfoWithContext(ctx, "Registering user").
		String("email", email).
		Log()

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		logger.WarnWithContext(ctx, "Registration rejected, email already in use").
			String("email", email).
			Log()
		return nil, apperrors.ErrEmailExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	confirmToken := uuid.NewString()
	expiry := time.Now().Add(s.confirmTokenTTL)
	user := &model.User{
		Email:              email,
		Password:           string(hash),
		Name:               req.Name,
		Age:                req.Age,
		ConfirmToken:       &confirmToken,
		ConfirmTokenExpiry: &expiry,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	if s.billing != nil {
		if err := s.billing.EnsureDefault(ctx, user.ID); err != nil {
			logger.WarnWithContext(ctx, "Could not provision default subscription").
				Uint("user_id", user.ID).
				Err(err).
				Log()
		}
	}

	if err := s.mail.SendConfirmationEmail(ctx, email, confirmToken); err != nil {
		logger.WarnWithContext(ctx, "Confirmation email delivery failed").
			Uint("user_id", user.ID).
			Err(err).
			Log()
	}

	logger.InfoWithContext(ctx, "User registered").
		Uint("user_id", user.ID).
		Log()
	return userResponse(user), nil
}

// ConfirmEmail redeems a confirmation token and provisions the bootstrap
// persona.
func (s *AuthService) ConfirmEmail(ctx context.Context, token string) error {
	ctx = ctxutil.WithOperation(ctx, "service", "ConfirmEmail")

	user, err := s.users.GetByConfirmToken(ctx, token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrInvalidConfirmToken
		}
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}

	if err := s.users.ConfirmEmail(ctx, user.ID); err != nil {
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}

	if _, err := s.personas.EnsureActive(ctx, user.ID); err != nil {
		logger.WarnWithContext(ctx, "Persona bootstrap failed during confirmation").
			Uint("user_id", user.ID).
			Err(err).
			Log()
	}

	logger.InfoWithContext(ctx, "Email confirmed").
		Uint("user_id", user.ID).
		Log()
	return nil
}

// GetUserByEmail is used by the HTTP boundary to reject unconfirmed
// accounts before delegating to Login.
func (s *AuthService) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}
	return user, nil
}

// Login verifies credentials and issues a token pair. Unknown email and
// wrong password are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenPairResponse, error) {
	ctx = ctxutil.WithOperation(ctx, "service", "Login")
	email := normalizeEmail(req.Email)

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.WarnWithContext(ctx, "Login failed, unknown email").
				String("email", email).
				Log()
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		logger.WarnWithContext(ctx, "Login failed, wrong password").
			Uint("user_id", user.ID).
			Log()
		return nil, apperrors.ErrInvalidCredentials
	}

	if !user.EmailConfirmed {
		return nil, apperrors.ErrEmailNotConfirmed
	}

	pair, err := s.issueTokenPair(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	logger.InfoWithContext(ctx, "Login succeeded").
		Uint("user_id", user.ID).
		Log()
	return pair, nil
}

// FirebaseLogin exchanges an external identity token for a local token
// pair, creating an auto-confirmed account on first sight.
func (s *AuthService) FirebaseLogin(ctx context.Context, firebaseToken string) (*dto.TokenPairResponse, error) {
	ctx = ctxutil.WithOperation(ctx, "service", "FirebaseLogin")

	email, err := s.verifier.EmailFromToken(ctx, firebaseToken)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.WrapError(apperrors.ErrInternal, err)
		}

		// The provider already verified the address; provision a confirmed
		// account with an unusable random password.
		random := make([]byte, 16)
		if _, err := rand.Read(random); err != nil {
			return nil, apperrors.WrapError(apperrors.ErrInternal, err)
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(hex.EncodeToString(random)), bcrypt.DefaultCost)
		if err != nil {
			return nil, apperrors.WrapError(apperrors.ErrInternal, err)
		}

		user = &model.User{
			Email:          email,
			Password:       string(hash),
			EmailConfirmed: true,
		}
		if err := s.users.Create(ctx, user); err != nil {
			return nil, apperrors.WrapError(apperrors.ErrInternal, err)
		}
		if s.billing != nil {
			if err := s.billing.EnsureDefault(ctx, user.ID); err != nil {
				logger.WarnWithContext(ctx, "Could not provision default subscription").
					Uint("user_id", user.ID).
					Err(err).
					Log()
			}
		}
		logger.InfoWithContext(ctx, "User auto-provisioned from identity provider").
			Uint("user_id", user.ID).
			Log()
	}

	return s.issueTokenPair(ctx, user.ID)
}

// Refresh rotates a refresh token. The presented token is consumed
// atomically, so a replayed token fails even under concurrent use.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*dto.TokenPairResponse, error) {
	ctx = ctxutil.WithOperation(ctx, "service", "Refresh")

	userID, err := s.tokens.Consume(ctx, s.jwt.HashRefreshToken(refreshToken))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.WarnWithContext(ctx, "Refresh rejected, token unknown or already used").
				Log()
			return nil, apperrors.ErrInvalidRefreshToken
		}
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	pair, err := s.issueTokenPair(ctx, userID)
	if err != nil {
		return nil, err
	}

	logger.InfoWithContext(ctx, "Tokens rotated").
		Uint("user_id", userID).
		Log()
	return pair, nil
}

// Logout revokes every refresh token of the user. Persona selection is
// untouched; it is not session state.
func (s *AuthService) Logout(ctx context.Context, userID uint) error {
	ctx = ctxutil.WithOperation(ctx, "service", "Logout")

	if err := s.tokens.DeleteAllForUser(ctx, userID); err != nil {
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}

	logger.InfoWithContext(ctx, "Refresh tokens revoked").
		Uint("user_id", userID).
		Log()
	return nil
}

// ForgotPassword stores a reset token and mails it.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	ctx = ctxutil.WithOperation(ctx, "service", "ForgotPassword")
	email = normalizeEmail(email)

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrUserNotFound
		}
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}

	token := uuid.NewString()
	expiry := time.Now().Add(s.resetTokenTTL)
	if err := s.users.SetResetToken(ctx, user.ID, token, expiry); err != nil {
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}

	if err := s.mail.SendResetPasswordEmail(ctx, email, token); err != nil {
		logger.WarnWithContext(ctx, "Reset email delivery failed").
			Uint("user_id", user.ID).
			Err(err).
			Log()
	}

	logger.InfoWithContext(ctx, "Password reset requested").
		Uint("user_id", user.ID).
		Log()
	return nil
}

// ResetPassword redeems a reset token. The token is cleared in the same
// statement that stores the new hash, making it single-use.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	ctx = ctxutil.WithOperation(ctx, "service", "ResetPassword")

	user, err := s.users.GetByResetToken(ctx, token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrInvalidResetToken
		}
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}
	if err := s.users.UpdatePassword(ctx, user.ID, string(hash)); err != nil {
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}

	logger.InfoWithContext(ctx, "Password updated").
		Uint("user_id", user.ID).
		Log()
	return nil
}

// issueTokenPair is the shared issuance tail of every login-like flow. It
// repairs persona state first so a fresh session always has an active
// persona behind it.
func (s *AuthService) issueTokenPair(ctx context.Context, userID uint) (*dto.TokenPairResponse, error) {
	if _, err := s.personas.EnsureActive(ctx, userID); err != nil {
		return nil, err
	}

	accessToken, err := s.jwt.GenerateAccessToken(userID)
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	refreshToken, err := s.jwt.GenerateRefreshToken()
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}
	record := &model.RefreshToken{
		UserID:    userID,
		TokenHash: s.jwt.HashRefreshToken(refreshToken),
	}
	if err := s.tokens.Create(ctx, record); err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	return &dto.TokenPairResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

func userResponse(user *model.User) *dto.UserResponse {
	return &dto.UserResponse{
		ID:                  user.ID,
		Email:               user.Email,
		Name:                user.Name,
		Age:                 user.Age,
		EmailConfirmed:      user.EmailConfirmed,
		ActivePersonalityID: user.ActivePersonalityID,
		CreatedAt:           user.CreatedAt,
		UpdatedAt:           user.UpdatedAt,
	}
}
