package service

import (
	"context"
	"errors"
	"math"
	"time"

	"gorm.io/gorm"

	"github.com/RoberAF/chatbot/internal/constants"
	"github.com/RoberAF/chatbot/internal/dto"
	apperrors "github.com/RoberAF/chatbot/internal/errors"
	"github.com/RoberAF/chatbot/internal/model"
	ctxutil "github.com/RoberAF/chatbot/pkg/context"
	"github.com/RoberAF/chatbot/pkg/logger"
)

const trialDays = 2

// SubscriptionService is the billing boundary. Everything else treats tier
// as read-only input; mutations arrive through trials and provider webhooks.
type SubscriptionService struct {
	subs SubscriptionStore
	now  func() time.Time
}

func NewSubscriptionService(subs SubscriptionStore) *SubscriptionService {
	return &SubscriptionService{
		subs: subs,
		now:  time.Now,
	}
}

// GetStatus reports the user's tier. Users without a subscription row are
// FREE. An elapsed unpaid trial reads as FREE regardless of the stored tier.
func (s *SubscriptionService) GetStatus(ctx context.Context, userID uint) (*dto.SubscriptionStatusResponse, error) {
	ctx = ctxutil.WithOperation(ctx, "service", "GetSubscriptionStatus")

	sub, err := s.subs.GetByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &dto.SubscriptionStatusResponse{Tier: constants.TierFree}, nil
		}
		logger.ErrorWithContext(ctx, "Failed to load subscription").
			Uint("user_id", userID).
			Err(err).
			Log()
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	now := s.now()
	onTrial := sub.TrialStart != nil && sub.TrialEnd != nil &&
		!now.Before(*sub.TrialStart) && !now.After(*sub.TrialEnd)

	daysLeft := 0
	if onTrial {
		daysLeft = int(math.Ceil(sub.TrialEnd.Sub(now).Hours() / 24))
	}

	// A trial that ran out without a paid period behind it drops to FREE.
	if sub.TrialEnd != nil && now.After(*sub.TrialEnd) && sub.ExpiresAt == nil {
		return &dto.SubscriptionStatusResponse{
			Tier:         constants.TierFree,
			TrialEndDate: sub.TrialEnd,
		}, nil
	}

	return &dto.SubscriptionStatusResponse{
		Tier:            sub.Tier,
		ExpiresAt:       sub.ExpiresAt,
		IsOnTrial:       onTrial,
		TrialEndDate:    sub.TrialEnd,
		DaysLeftInTrial: daysLeft,
	}, nil
}

// EnsureDefault provisions the FREE subscription row for a new account.
// Idempotent; an existing row of any tier is left alone.
func (s *SubscriptionService) EnsureDefault(ctx context.Context, userID uint) error {
	ctx = ctxutil.WithOperation(ctx, "service", "EnsureDefaultSubscription")

	_, err := s.subs.GetByUser(ctx, userID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}

	sub := &model.Subscription{UserID: userID, Tier: constants.TierFree}
	if err := s.subs.Upsert(ctx, sub); err != nil {
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}
	return nil
}

// StartTrial grants a short paid-tier trial once per user.
func (s *SubscriptionService) StartTrial(ctx context.Context, userID uint, tier string) (*dto.StartTrialResponse, error) {
	ctx = ctxutil.WithOperation(ctx, "service", "StartTrial")

	existing, err := s.subs.GetByUser(ctx, userID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}
	if existing != nil && existing.TrialUsed {
		return nil, apperrors.WrapError(apperrors.ErrInvalidInput,
			errors.New("trial already used"))
	}

	start := s.now()
	end := start.AddDate(0, 0, trialDays)
	sub := &model.Subscription{
		UserID:     userID,
		Tier:       tier,
		TrialStart: &start,
		TrialEnd:   &end,
		TrialUsed:  true,
	}
	if existing != nil {
		sub.ExpiresAt = existing.ExpiresAt
	}
	if err := s.subs.Upsert(ctx, sub); err != nil {
		logger.ErrorWithContext(ctx, "Failed to start trial").
			Uint("user_id", userID).
			String("tier", tier).
			Err(err).
			Log()
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	logger.InfoWithContext(ctx, "Trial started").
		Uint("user_id", userID).
		String("tier", tier).
		Log()
	return &dto.StartTrialResponse{Success: true, TrialEndDate: end}, nil
}

// HandleWebhook applies an opaque billing-provider event to the stored tier.
func (s *SubscriptionService) HandleWebhook(ctx context.Context, event *dto.BillingWebhookRequest) error {
	ctx = ctxutil.WithOperation(ctx, "service", "HandleBillingWebhook")

	logger.InfoWithContext(ctx, "Billing event received").
		String("event_type", event.Type).
		Uint("user_id", event.UserID).
		Log()

	switch event.Type {
	case "checkout.completed", "subscription.updated":
		tier := event.Tier
		if tier == "" {
			tier = constants.TierPro
		}
		expiresAt := event.ExpiresAt
		if expiresAt == nil {
			t := s.now().AddDate(0, 0, 30)
			expiresAt = &t
		}
		sub := &model.Subscription{
			UserID:    event.UserID,
			Tier:      tier,
			ExpiresAt: expiresAt,
		}
		// Preserve trial bookkeeping across tier changes.
		if existing, err := s.subs.GetByUser(ctx, event.UserID); err == nil {
			sub.TrialStart = existing.TrialStart
			sub.TrialEnd = existing.TrialEnd
			sub.TrialUsed = existing.TrialUsed
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.WrapError(apperrors.ErrInternal, err)
		}
		if err := s.subs.Upsert(ctx, sub); err != nil {
			return apperrors.WrapError(apperrors.ErrInternal, err)
		}
	default:
		logger.DebugWithContext(ctx, "Unhandled billing event").
			String("event_type", event.Type).
			Log()
	}
	return nil
}
