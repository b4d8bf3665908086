package service

import (
	"context"
	"testing"

	"github.com/RoberAF/chatbot/internal/dto"
	apperrors "github.com/RoberAF/chatbot/internal/errors"
)

func TestGetProfileOmitsNothingButPassword(t *testing.T) {
	env := newTestEnv()
	userID := confirmedUser(t, env, "user@example.com")

	profile, err := env.userSvc.GetProfile(context.Background(), userID)
	if err != nil {
		t.Fatalf("GetProfile() error = %v", err)
	}
	if profile.Email != "user@example.com" {
		t.Errorf("email = %q", profile.Email)
	}
	if !profile.EmailConfirmed {
		t.Error("EmailConfirmed = false")
	}
	if profile.ActivePersonalityID == nil {
		t.Error("ActivePersonalityID missing from profile")
	}
}

func TestGetProfileUnknownUser(t *testing.T) {
	env := newTestEnv()
	_, err := env.userSvc.GetProfile(context.Background(), 999)
	assertCode(t, err, apperrors.ErrUserNotFound.Code)
}

func TestUpdateProfileAppliesOnlyProvidedFields(t *testing.T) {
	env := newTestEnv()
	userID := confirmedUser(t, env, "user@example.com")

	age := 30
	updated, err := env.userSvc.UpdateProfile(context.Background(), userID, &dto.UpdateProfileRequest{
		Name: "Rober",
		Age:  &age,
	})
	if err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}
	if updated.Name != "Rober" || updated.Age == nil || *updated.Age != 30 {
		t.Errorf("updated profile = %+v", updated)
	}

	// An empty request leaves everything untouched.
	unchanged, err := env.userSvc.UpdateProfile(context.Background(), userID, &dto.UpdateProfileRequest{})
	if err != nil {
		t.Fatalf("UpdateProfile(empty) error = %v", err)
	}
	if unchanged.Name != "Rober" || unchanged.Age == nil || *unchanged.Age != 30 {
		t.Errorf("profile changed by empty update: %+v", unchanged)
	}
}
