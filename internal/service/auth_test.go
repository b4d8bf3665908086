package service

import (
	"context"
	"errors"
	"testing"

	"github.com/RoberAF/chatbot/internal/dto"
	apperrors "github.com/RoberAF/chatbot/internal/errors"
)

func register(t *testing.T, env *testEnv, email, password string) *dto.UserResponse {
	t.Helper()
	user, err := env.auth.Register(context.Background(), &dto.RegisterRequest{
		Email:    email,
		Password: password,
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	return user
}

func confirm(t *testing.T, env *testEnv, userID uint) {
	t.Helper()
	stored := env.users.users[userID]
	if stored.ConfirmToken == nil {
		t.Fatal("registered user has no confirmation token")
	}
	if err := env.auth.ConfirmEmail(context.Background(), *stored.ConfirmToken); err != nil {
		t.Fatalf("ConfirmEmail() error = %v", err)
	}
}

func assertCode(t *testing.T, err error, want string) {
	t.Helper()
	if err == nil {
		t.Fatalf("error = nil, want code %s", want)
	}
	var domainErr *apperrors.DomainError
	if !errors.As(err, &domainErr) || domainErr.Code != want {
		t.Fatalf("error = %v, want code %s", err, want)
	}
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	env := newTestEnv()
	register(t, env, "user@example.com", "password123")

	_, err := env.auth.Register(context.Background(), &dto.RegisterRequest{
		Email:    "User@Example.com",
		Password: "password123",
	})
	assertCode(t, err, apperrors.ErrEmailExists.Code)
}

func TestConfirmEmailProvisionsDefaultPersona(t *testing.T) {
	env := newTestEnv()
	user := register(t, env, "user@example.com", "password123")
	confirm(t, env, user.ID)

	stored := env.users.users[user.ID]
	if !stored.EmailConfirmed {
		t.Error("user is not confirmed after ConfirmEmail")
	}
	if stored.ConfirmToken != nil {
		t.Error("confirmation token survived redemption")
	}
	if stored.ActivePersonalityID == nil {
		t.Fatal("no active persona after confirmation")
	}

	persona, err := env.personas.GetByID(context.Background(), *stored.ActivePersonalityID)
	if err != nil {
		t.Fatalf("active persona not persisted: %v", err)
	}
	traits, err := persona.DecodeTraits()
	if err != nil {
		t.Fatalf("DecodeTraits() error = %v", err)
	}
	if traits.Name != "Asistente" {
		t.Errorf("default persona name = %q, want Asistente", traits.Name)
	}
}

func TestConfirmEmailRejectsUnknownToken(t *testing.T) {
	env := newTestEnv()
	err := env.auth.ConfirmEmail(context.Background(), "no-such-token")
	assertCode(t, err, apperrors.ErrInvalidConfirmToken.Code)
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	env := newTestEnv()
	user := register(t, env, "user@example.com", "password123")
	confirm(t, env, user.ID)

	_, unknownErr := env.auth.Login(context.Background(), &dto.LoginRequest{
		Email:    "nobody@example.com",
		Password: "password123",
	})
	_, wrongErr := env.auth.Login(context.Background(), &dto.LoginRequest{
		Email:    "user@example.com",
		Password: "wrong-password",
	})

	assertCode(t, unknownErr, apperrors.ErrInvalidCredentials.Code)
	assertCode(t, wrongErr, apperrors.ErrInvalidCredentials.Code)
	if unknownErr.Error() != wrongErr.Error() {
		t.Errorf("unknown-email error %q differs from wrong-password error %q", unknownErr, wrongErr)
	}
}

func TestLoginRejectsUnconfirmedEmail(t *testing.T) {
	env := newTestEnv()
	register(t, env, "user@example.com", "password123")

	_, err := env.auth.Login(context.Background(), &dto.LoginRequest{
		Email:    "user@example.com",
		Password: "password123",
	})
	assertCode(t, err, apperrors.ErrEmailNotConfirmed.Code)
}

func TestLoginIssuesValidTokenPair(t *testing.T) {
	env := newTestEnv()
	user := register(t, env, "user@example.com", "password123")
	confirm(t, env, user.ID)

	pair, err := env.auth.Login(context.Background(), &dto.LoginRequest{
		Email:    "user@example.com",
		Password: "password123",
	})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	gotID, err := env.jwt.ValidateAccessToken(pair.AccessToken)
	if err != nil {
		t.Fatalf("ValidateAccessToken() error = %v", err)
	}
	if gotID != user.ID {
		t.Errorf("access token subject = %d, want %d", gotID, user.ID)
	}
	if env.tokens.count(user.ID) != 1 {
		t.Errorf("stored refresh tokens = %d, want 1", env.tokens.count(user.ID))
	}
}

func TestRefreshRotatesAndRejectsReplay(t *testing.T) {
	env := newTestEnv()
	user := register(t, env, "user@example.com", "password123")
	confirm(t, env, user.ID)

	pair, err := env.auth.Login(context.Background(), &dto.LoginRequest{
		Email:    "user@example.com",
		Password: "password123",
	})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	rotated, err := env.auth.Refresh(context.Background(), pair.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if rotated.RefreshToken == pair.RefreshToken {
		t.Error("rotation returned the same refresh token")
	}

	// The consumed token must never work again.
	_, err = env.auth.Refresh(context.Background(), pair.RefreshToken)
	assertCode(t, err, apperrors.ErrInvalidRefreshToken.Code)

	// The rotated token still works.
	if _, err := env.auth.Refresh(context.Background(), rotated.RefreshToken); err != nil {
		t.Fatalf("Refresh(rotated) error = %v", err)
	}
}

func TestLogoutRevokesTokensButKeepsPersona(t *testing.T) {
	env := newTestEnv()
	user := register(t, env, "user@example.com", "password123")
	confirm(t, env, user.ID)

	pair, err := env.auth.Login(context.Background(), &dto.LoginRequest{
		Email:    "user@example.com",
		Password: "password123",
	})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	if err := env.auth.Logout(context.Background(), user.ID); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}

	if env.tokens.count(user.ID) != 0 {
		t.Errorf("stored refresh tokens after logout = %d, want 0", env.tokens.count(user.ID))
	}
	_, err = env.auth.Refresh(context.Background(), pair.RefreshToken)
	assertCode(t, err, apperrors.ErrInvalidRefreshToken.Code)

	if env.users.users[user.ID].ActivePersonalityID == nil {
		t.Error("logout cleared the persona selection")
	}
}

func TestForgotAndResetPassword(t *testing.T) {
	env := newTestEnv()
	user := register(t, env, "user@example.com", "old-password")
	confirm(t, env, user.ID)

	if err := env.auth.ForgotPassword(context.Background(), "user@example.com"); err != nil {
		t.Fatalf("ForgotPassword() error = %v", err)
	}

	stored := env.users.users[user.ID]
	if stored.ResetToken == nil {
		t.Fatal("no reset token stored")
	}
	resetToken := *stored.ResetToken

	if err := env.auth.ResetPassword(context.Background(), resetToken, "new-password"); err != nil {
		t.Fatalf("ResetPassword() error = %v", err)
	}

	// Old password stops working, new one works.
	_, err := env.auth.Login(context.Background(), &dto.LoginRequest{
		Email:    "user@example.com",
		Password: "old-password",
	})
	assertCode(t, err, apperrors.ErrInvalidCredentials.Code)
	if _, err := env.auth.Login(context.Background(), &dto.LoginRequest{
		Email:    "user@example.com",
		Password: "new-password",
	}); err != nil {
		t.Fatalf("Login(new password) error = %v", err)
	}

	// The reset token is single-use.
	err = env.auth.ResetPassword(context.Background(), resetToken, "another-password")
	assertCode(t, err, apperrors.ErrInvalidResetToken.Code)
}

func TestForgotPasswordUnknownEmail(t *testing.T) {
	env := newTestEnv()
	err := env.auth.ForgotPassword(context.Background(), "nobody@example.com")
	assertCode(t, err, apperrors.ErrUserNotFound.Code)
}

func TestFirebaseLoginAutoProvisionsConfirmedUser(t *testing.T) {
	env := newTestEnv()
	env.verifier.email = "social@example.com"

	pair, err := env.auth.FirebaseLogin(context.Background(), "provider-token")
	if err != nil {
		t.Fatalf("FirebaseLogin() error = %v", err)
	}

	user, err := env.users.GetByEmail(context.Background(), "social@example.com")
	if err != nil {
		t.Fatalf("auto-provisioned user not found: %v", err)
	}
	if !user.EmailConfirmed {
		t.Error("auto-provisioned user is not confirmed")
	}
	if user.ActivePersonalityID == nil {
		t.Error("auto-provisioned user has no active persona")
	}

	gotID, err := env.jwt.ValidateAccessToken(pair.AccessToken)
	if err != nil {
		t.Fatalf("ValidateAccessToken() error = %v", err)
	}
	if gotID != user.ID {
		t.Errorf("access token subject = %d, want %d", gotID, user.ID)
	}

	// A second login reuses the same account.
	if _, err := env.auth.FirebaseLogin(context.Background(), "provider-token"); err != nil {
		t.Fatalf("FirebaseLogin(second) error = %v", err)
	}
	if got := len(env.users.users); got != 1 {
		t.Errorf("user count after second login = %d, want 1", got)
	}
}

func TestFirebaseLoginRejectsBadToken(t *testing.T) {
	env := newTestEnv()
	env.verifier.err = apperrors.ErrInvalidIdentity

	_, err := env.auth.FirebaseLogin(context.Background(), "garbage")
	assertCode(t, err, apperrors.ErrInvalidIdentity.Code)
}
