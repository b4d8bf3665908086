package service

import (
	"testing"
	"time"

	"github.com/RoberAF/chatbot/config"
)

func newTestJWTService(ttl time.Duration) *JWTService {
	cfg := &config.Config{}
	cfg.JWT.Secret = "test-secret"
	cfg.JWT.AccessTokenTTL = ttl
	return NewJWTService(cfg)
}

func TestAccessTokenRoundTrip(t *testing.T) {
	svc := newTestJWTService(15 * time.Minute)

	token, err := svc.GenerateAccessToken(42)
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}

	userID, err := svc.ValidateAccessToken(token)
	if err != nil {
		t.Fatalf("ValidateAccessToken() error = %v", err)
	}
	if userID != 42 {
		t.Errorf("subject = %d, want 42", userID)
	}
}

func TestExpiredAccessTokenIsRejected(t *testing.T) {
	svc := newTestJWTService(-time.Minute)

	token, err := svc.GenerateAccessToken(42)
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}
	if _, err := svc.ValidateAccessToken(token); err == nil {
		t.Error("ValidateAccessToken() accepted an expired token")
	}
}

func TestForeignSignatureIsRejected(t *testing.T) {
	issuer := newTestJWTService(15 * time.Minute)
	token, err := issuer.GenerateAccessToken(42)
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}

	other := &JWTService{secretKey: "different-secret", accessTokenTTL: 15 * time.Minute}
	if _, err := other.ValidateAccessToken(token); err == nil {
		t.Error("ValidateAccessToken() accepted a token signed with another key")
	}
}

func TestRefreshTokensAreUniqueAndHashDeterministically(t *testing.T) {
	svc := newTestJWTService(15 * time.Minute)

	first, err := svc.GenerateRefreshToken()
	if err != nil {
		t.Fatalf("GenerateRefreshToken() error = %v", err)
	}
	second, err := svc.GenerateRefreshToken()
	if err != nil {
		t.Fatalf("GenerateRefreshToken() error = %v", err)
	}
	if first == second {
		t.Error("two generated refresh tokens are identical")
	}

	if svc.HashRefreshToken(first) != svc.HashRefreshToken(first) {
		t.Error("hashing the same token twice gave different digests")
	}
	if svc.HashRefreshToken(first) == svc.HashRefreshToken(second) {
		t.Error("different tokens hashed to the same digest")
	}
	if svc.HashRefreshToken(first) == first {
		t.Error("hash equals the raw token")
	}
}
