package service

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/RoberAF/chatbot/config"
	apperrors "github.com/RoberAF/chatbot/internal/errors"
)

type JWTService struct {
	secretKey      string
	accessTokenTTL time.Duration
}

func NewJWTService(cfg *config.Config) *JWTService {
	return &JWTService{
		secretKey:      cfg.JWT.Secret,
		accessTokenTTL: cfg.JWT.AccessTokenTTL,
	}
}

// GenerateAccessToken creates a short-lived signed token whose subject is
// the user id.
func (s *JWTService) GenerateAccessToken(userID uint) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": strconv.FormatUint(uint64(userID), 10),
		"iat": now.Unix(),
		"exp": now.Add(s.accessTokenTTL).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.secretKey))
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return tokenString, nil
}

// GenerateRefreshToken creates an opaque random refresh token. Only its
// hash is persisted.
func (s *JWTService) GenerateRefreshToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate refresh token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}

// HashRefreshToken derives the stored lookup hash of a refresh token. The
// deterministic digest lets the store consume a presented token with a
// single indexed lookup.
func (s *JWTService) HashRefreshToken(refreshToken string) string {
	digest := sha256.Sum256([]byte(refreshToken))
	return hex.EncodeToString(digest[:])
}

// ValidateAccessToken verifies the signature and expiry of an access token
// and returns the user id it was issued to.
func (s *JWTService) ValidateAccessToken(tokenString string) (uint, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return []byte(s.secretKey), nil
	})
	if err != nil {
		return 0, apperrors.WrapError(apperrors.ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return 0, apperrors.WrapError(apperrors.ErrInvalidToken, errors.New("token claims are not valid"))
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return 0, apperrors.WrapError(apperrors.ErrInvalidToken, errors.New("token carries no subject"))
	}

	userID, err := strconv.ParseUint(sub, 10, 64)
	if err != nil {
		return 0, apperrors.WrapError(apperrors.ErrInvalidToken, fmt.Errorf("token subject is not a user id: %w", err))
	}

	return uint(userID), nil
}
