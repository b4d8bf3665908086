package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/RoberAF/chatbot/internal/constants"
	"github.com/RoberAF/chatbot/internal/dto"
	apperrors "github.com/RoberAF/chatbot/internal/errors"
	"github.com/RoberAF/chatbot/internal/model"
	ctxutil "github.com/RoberAF/chatbot/pkg/context"
	"github.com/RoberAF/chatbot/pkg/llm"
	"github.com/RoberAF/chatbot/pkg/logger"
)

// randomTraitsPrompt instructs the completion model to emit a trait bag as
// bare JSON.
const randomTraitsPrompt = `Eres un sistema que genera atributos únicos para un chatbot IA.
Devuélvelos en JSON con keys: name, age, tone, hobbies, quirks.
Responde únicamente con el objeto JSON, sin texto adicional.`

type PersonalityService struct {
	personas PersonalityStore
	users    UserStore
	billing  *SubscriptionService
	oracle   llm.Completer
}

func NewPersonalityService(personas PersonalityStore, users UserStore, billing *SubscriptionService, oracle llm.Completer) *PersonalityService {
	return &PersonalityService{
		personas: personas,
		users:    users,
		billing:  billing,
		oracle:   oracle,
	}
}

func quotaForTier(tier string) int {
	switch tier {
	case constants.TierProPlus:
		return constants.QuotaProPlus
	case constants.TierPro:
		return constants.QuotaPro
	default:
		return constants.QuotaFree
	}
}

// canCreateNew enforces the tier quota on user-initiated creation paths.
// The bootstrap default persona bypasses it.
func (s *PersonalityService) canCreateNew(ctx context.Context, userID uint) error {
	status, err := s.billing.GetStatus(ctx, userID)
	if err != nil {
		return err
	}
	count, err := s.personas.CountByUser(ctx, userID)
	if err != nil {
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}
	if count >= int64(quotaForTier(status.Tier)) {
		logger.WarnWithContext(ctx, "Persona quota reached").
			Uint("user_id", userID).
			String("tier", status.Tier).
			Int64("count", count).
			Log()
		return apperrors.ErrPersonaQuota
	}
	return nil
}

func (s *PersonalityService) create(ctx context.Context, userID uint, traits model.Traits) (*model.Personality, error) {
	encoded, err := model.EncodeTraits(traits)
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}
	p := &model.Personality{
		ID:     uuid.NewString(),
		UserID: userID,
		Traits: encoded,
	}
	if err := s.personas.Create(ctx, p); err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}
	return p, nil
}

// CreateDefault provisions the fixed bootstrap persona and makes it active.
// It never checks quota; every self-healing path funnels through it.
func (s *PersonalityService) CreateDefault(ctx context.Context, userID uint) (*model.Personality, error) {
	ctx = ctxutil.WithOperation(ctx, "service", "CreateDefaultPersonality")

	p, err := s.create(ctx, userID, model.DefaultTraits())
	if err != nil {
		return nil, err
	}
	if err := s.users.SetActivePersonality(ctx, userID, p.ID); err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	logger.InfoWithContext(ctx, "Default persona provisioned").
		Uint("user_id", userID).
		String("personality_id", p.ID).
		Log()
	return p, nil
}

// CreateRandom asks the completion model for a trait bag and persists it.
// One attempt only; unparseable output persists nothing.
func (s *PersonalityService) CreateRandom(ctx context.Context, userID uint) (*model.Personality, error) {
	ctx = ctxutil.WithOperation(ctx, "service", "CreateRandomPersonality")

	if err := s.canCreateNew(ctx, userID); err != nil {
		return nil, err
	}

	content, err := s.oracle.CompleteSystem(ctx, randomTraitsPrompt)
	if err != nil {
		return nil, err
	}

	var traits model.Traits
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &traits); err != nil {
		logger.WarnWithContext(ctx, "Generated traits were not valid JSON").
			Uint("user_id", userID).
			Err(err).
			Log()
		return nil, apperrors.WrapError(apperrors.ErrOracleBadOutput, err)
	}

	return s.create(ctx, userID, traits)
}

// CreateWithTraits persists a caller-supplied trait bag.
func (s *PersonalityService) CreateWithTraits(ctx context.Context, userID uint, traits model.Traits) (*model.Personality, error) {
	ctx = ctxutil.WithOperation(ctx, "service", "CreatePersonality")

	if err := s.canCreateNew(ctx, userID); err != nil {
		return nil, err
	}
	return s.create(ctx, userID, traits)
}

// List returns the user's personas newest first, flagging the active one.
func (s *PersonalityService) List(ctx context.Context, userID uint) ([]dto.PersonalityResponse, error) {
	ctx = ctxutil.WithOperation(ctx, "service", "ListPersonalities")

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	personas, err := s.personas.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	out := make([]dto.PersonalityResponse, 0, len(personas))
	for _, p := range personas {
		traits, err := p.DecodeTraits()
		if err != nil {
			logger.WarnWithContext(ctx, "Skipping persona with unreadable traits").
				String("personality_id", p.ID).
				Err(err).
				Log()
			continue
		}
		out = append(out, dto.PersonalityResponse{
			ID:        p.ID,
			UserID:    p.UserID,
			Traits:    traits,
			Active:    user.ActivePersonalityID != nil && *user.ActivePersonalityID == p.ID,
			CreatedAt: p.CreatedAt,
		})
	}
	return out, nil
}

// Select marks one of the user's personas as active. A persona that does
// not exist and a persona owned by someone else are indistinguishable to
// the caller.
func (s *PersonalityService) Select(ctx context.Context, userID uint, personalityID string) error {
	ctx = ctxutil.WithOperation(ctx, "service", "SelectPersonality")

	p, err := s.personas.GetByID(ctx, personalityID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrPersonaNotFound
		}
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}
	if p.UserID != userID {
		return apperrors.ErrPersonaNotFound
	}

	if err := s.users.SetActivePersonality(ctx, userID, personalityID); err != nil {
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}

	logger.InfoWithContext(ctx, "Persona selected").
		Uint("user_id", userID).
		String("personality_id", personalityID).
		Log()
	return nil
}

// EnsureActive returns the user's active persona, repairing the selection
// when it is missing or dangling. Called from every path that depends on an
// active persona existing.
func (s *PersonalityService) EnsureActive(ctx context.Context, userID uint) (*model.Personality, error) {
	ctx = ctxutil.WithOperation(ctx, "service", "EnsureActivePersonality")

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	if user.ActivePersonalityID != nil {
		p, err := s.personas.GetByID(ctx, *user.ActivePersonalityID)
		switch {
		case err == nil && p.UserID == userID:
			return p, nil
		case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
			return nil, apperrors.WrapError(apperrors.ErrInternal, err)
		}
		// Dangling or foreign reference, fall through and repair.
		logger.WarnWithContext(ctx, "Active persona reference is dangling").
			Uint("user_id", userID).
			String("personality_id", *user.ActivePersonalityID).
			Log()
	}

	personas, err := s.personas.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}
	if len(personas) > 0 {
		if err := s.users.SetActivePersonality(ctx, userID, personas[0].ID); err != nil {
			return nil, apperrors.WrapError(apperrors.ErrInternal, err)
		}
		logger.InfoWithContext(ctx, "Active persona restored from existing personas").
			Uint("user_id", userID).
			String("personality_id", personas[0].ID).
			Log()
		return &personas[0], nil
	}

	return s.CreateDefault(ctx, userID)
}
