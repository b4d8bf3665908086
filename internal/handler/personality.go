package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/RoberAF/chatbot/internal/constants"
	"github.com/RoberAF/chatbot/internal/dto"
	apperrors "github.com/RoberAF/chatbot/internal/errors"
	"github.com/RoberAF/chatbot/internal/middleware"
	"github.com/RoberAF/chatbot/internal/model"
	"github.com/RoberAF/chatbot/internal/service"
	ctxutil "github.com/RoberAF/chatbot/pkg/context"
	"github.com/RoberAF/chatbot/pkg/logger"
)

type PersonalityHandler struct {
	personaService *service.PersonalityService
}

func NewPersonalityHandler(personaService *service.PersonalityService) *PersonalityHandler {
	return &PersonalityHandler{personaService: personaService}
}

func (h *PersonalityHandler) List(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "ListPersonalities")

	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, constants.BuildErrorResponse(constants.MsgUnauthorized, nil))
		return
	}

	personas, err := h.personaService.List(ctx, userID)
	if err != nil {
		status := apperrors.ToHTTPStatus(err)
		logger.ErrorWithContext(ctx, "Failed to list personas").
			Uint("user_id", userID).
			Int("http_status", status).
			Err(err).
			Log()
		c.JSON(status, constants.BuildErrorResponse(apperrors.GetErrorMessage(err), nil))
		return
	}

	c.JSON(http.StatusOK, personas)
}

func (h *PersonalityHandler) Create(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "CreatePersonality")

	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, constants.BuildErrorResponse(constants.MsgUnauthorized, nil))
		return
	}

	var req dto.CreatePersonalityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, constants.BuildErrorResponse(constants.MsgBadRequest, err.Error()))
		return
	}

	persona, err := h.personaService.CreateWithTraits(ctx, userID, req.Traits.ToModel())
	if err != nil {
		status := apperrors.ToHTTPStatus(err)
		logger.WarnWithContext(ctx, "Persona creation failed").
			Uint("user_id", userID).
			Int("http_status", status).
			Err(err).
			Log()
		c.JSON(status, constants.BuildErrorResponse(apperrors.GetErrorMessage(err), nil))
		return
	}

	c.JSON(http.StatusCreated, personaResponse(persona))
}

func (h *PersonalityHandler) CreateRandom(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "CreateRandomPersonality")

	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, constants.BuildErrorResponse(constants.MsgUnauthorized, nil))
		return
	}

	persona, err := h.personaService.CreateRandom(ctx, userID)
	if err != nil {
		status := apperrors.ToHTTPStatus(err)
		logger.WarnWithContext(ctx, "Random persona creation failed").
			Uint("user_id", userID).
			Int("http_status", status).
			Err(err).
			Log()
		c.JSON(status, constants.BuildErrorResponse(apperrors.GetErrorMessage(err), nil))
		return
	}

	c.JSON(http.StatusCreated, personaResponse(persona))
}

func (h *PersonalityHandler) CreateDefault(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "CreateDefaultPersonality")

	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, constants.BuildErrorResponse(constants.MsgUnauthorized, nil))
		return
	}

	persona, err := h.personaService.CreateDefault(ctx, userID)
	if err != nil {
		status := apperrors.ToHTTPStatus(err)
		logger.ErrorWithContext(ctx, "Default persona creation failed").
			Uint("user_id", userID).
			Int("http_status", status).
			Err(err).
			Log()
		c.JSON(status, constants.BuildErrorResponse(apperrors.GetErrorMessage(err), nil))
		return
	}

	c.JSON(http.StatusCreated, personaResponse(persona))
}

func (h *PersonalityHandler) Select(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "SelectPersonality")

	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, constants.BuildErrorResponse(constants.MsgUnauthorized, nil))
		return
	}

	personalityID := c.Param("pid")
	if err := h.personaService.Select(ctx, userID, personalityID); err != nil {
		status := apperrors.ToHTTPStatus(err)
		logger.WarnWithContext(ctx, "Persona selection failed").
			Uint("user_id", userID).
			String("personality_id", personalityID).
			Int("http_status", status).
			Err(err).
			Log()
		c.JSON(status, constants.BuildErrorResponse(apperrors.GetErrorMessage(err), nil))
		return
	}

	c.JSON(http.StatusOK, dto.SelectPersonalityResponse{Success: true})
}

func personaResponse(p *model.Personality) dto.PersonalityResponse {
	traits, _ := p.DecodeTraits()
	return dto.PersonalityResponse{
		ID:        p.ID,
		UserID:    p.UserID,
		Traits:    traits,
		CreatedAt: p.CreatedAt,
	}
}
