package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/RoberAF/chatbot/internal/constants"
	"github.com/RoberAF/chatbot/internal/dto"
	apperrors "github.com/RoberAF/chatbot/internal/errors"
	"github.com/RoberAF/chatbot/internal/memory"
	"github.com/RoberAF/chatbot/internal/model"
	ctxutil "github.com/RoberAF/chatbot/pkg/context"
	"github.com/RoberAF/chatbot/pkg/llm"
	"github.com/RoberAF/chatbot/pkg/logger"
)

const proactiveInstruction = "Inicia la conversación con un saludo amistoso."

type ChatService struct {
	personas  *PersonalityService
	messages  MessageStore
	memory    memory.Store
	oracle    llm.Completer
	retrieveK int
	timeout   time.Duration
}

func NewChatService(
	personas *PersonalityService,
	messages MessageStore,
	mem memory.Store,
	oracle llm.Completer,
	retrieveK int,
	timeout time.Duration,
) *ChatService {
	if retrieveK <= 0 {
		retrieveK = 5
	}
	return &ChatService{
		personas:  personas,
		messages:  messages,
		memory:    mem,
		oracle:    oracle,
		retrieveK: retrieveK,
		timeout:   timeout,
	}
}

// buildSystemPrompt assembles the persona traits and the recent memory into
// the in-character instruction sent with every completion.
func (s *ChatService) buildSystemPrompt(ctx context.Context, userID uint, persona *model.Personality) (string, error) {
	traits, err := persona.DecodeTraits()
	if err != nil {
		return "", apperrors.WrapError(apperrors.ErrInternal, err)
	}
	traitsJSON, err := json.MarshalIndent(traits, "", "  ")
	if err != nil {
		return "", apperrors.WrapError(apperrors.ErrInternal, err)
	}

	mems, err := s.memory.Recent(ctx, userID, s.retrieveK)
	if err != nil {
		// Memory is an enhancement; a read failure degrades to an empty
		// context instead of failing the message.
		logger.WarnWithContext(ctx, "Memory read failed, continuing without context").
			Uint("user_id", userID).
			Err(err).
			Log()
		mems = nil
	}

	var memText strings.Builder
	for _, m := range mems {
		fmt.Fprintf(&memText, "- (%s): %s\n", m.Timestamp.UTC().Format(time.RFC3339), m.Text)
	}

	prompt := fmt.Sprintf(`Eres un chatbot IA con esta personalidad:
%s

Memoria reciente del usuario:
%s
Responde siempre en ese tono y mantén coherencia con la personalidad.`, traitsJSON, memText.String())

	return prompt, nil
}

// SendMessage runs the full exchange: persist the user message, remember
// it, complete against the persona prompt, persist and remember the reply.
// Each write lands as soon as it is produced; an oracle failure leaves the
// user message already recorded.
func (s *ChatService) SendMessage(ctx context.Context, userID uint, userMessage string) (*dto.ChatReplyResponse, error) {
	ctx = ctxutil.WithOperation(ctx, "service", "SendMessage")

	persona, err := s.personas.EnsureActive(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := s.messages.Append(ctx, &model.Message{
		PersonalityID: persona.ID,
		Sender:        constants.SenderUser,
		Content:       userMessage,
	}); err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	if err := s.memory.Add(ctx, userID, userMessage); err != nil {
		logger.WarnWithContext(ctx, "Failed to remember user message").
			Uint("user_id", userID).
			Err(err).
			Log()
	}

	systemPrompt, err := s.buildSystemPrompt(ctx, userID, persona)
	if err != nil {
		return nil, err
	}

	completionCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		completionCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	reply, err := s.oracle.Complete(completionCtx, systemPrompt, userMessage)
	if err != nil {
		return nil, err
	}
	reply = strings.TrimSpace(reply)

	if err := s.messages.Append(ctx, &model.Message{
		PersonalityID: persona.ID,
		Sender:        constants.SenderBot,
		Content:       reply,
	}); err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	if err := s.memory.Add(ctx, userID, reply); err != nil {
		logger.WarnWithContext(ctx, "Failed to remember reply").
			Uint("user_id", userID).
			Err(err).
			Log()
	}

	logger.InfoWithContext(ctx, "Message exchanged").
		Uint("user_id", userID).
		String("personality_id", persona.ID).
		Int("reply_length", len(reply)).
		Log()
	return &dto.ChatReplyResponse{Reply: reply}, nil
}

// SendProactive makes the persona open the conversation. The greeting is
// recorded to memory only; it enters the transcript once the user replies.
func (s *ChatService) SendProactive(ctx context.Context, userID uint) (*dto.ChatReplyResponse, error) {
	ctx = ctxutil.WithOperation(ctx, "service", "SendProactive")

	persona, err := s.personas.EnsureActive(ctx, userID)
	if err != nil {
		return nil, err
	}

	systemPrompt, err := s.buildSystemPrompt(ctx, userID, persona)
	if err != nil {
		return nil, err
	}

	completionCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		completionCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	reply, err := s.oracle.Complete(completionCtx, systemPrompt, proactiveInstruction)
	if err != nil {
		return nil, err
	}
	reply = strings.TrimSpace(reply)

	if err := s.memory.Add(ctx, userID, reply); err != nil {
		logger.WarnWithContext(ctx, "Failed to remember proactive greeting").
			Uint("user_id", userID).
			Err(err).
			Log()
	}

	return &dto.ChatReplyResponse{Reply: reply}, nil
}

// GetHistory replays a persona's transcript oldest first. Reading another
// user's transcript is forbidden rather than hidden.
func (s *ChatService) GetHistory(ctx context.Context, userID uint, personalityID string) ([]dto.MessageResponse, error) {
	ctx = ctxutil.WithOperation(ctx, "service", "GetHistory")

	persona, err := s.personas.personas.GetByID(ctx, personalityID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrPersonaNotFound
		}
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}
	if persona.UserID != userID {
		return nil, apperrors.ErrNotOwner
	}

	messages, err := s.messages.ListByPersonality(ctx, personalityID)
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	out := make([]dto.MessageResponse, 0, len(messages))
	for _, m := range messages {
		out = append(out, dto.MessageResponse{
			ID:            m.ID,
			PersonalityID: m.PersonalityID,
			Sender:        m.Sender,
			Content:       m.Content,
			CreatedAt:     m.CreatedAt,
		})
	}
	return out, nil
}
