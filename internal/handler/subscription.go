package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/RoberAF/chatbot/internal/constants"
	"github.com/RoberAF/chatbot/internal/dto"
	apperrors "github.com/RoberAF/chatbot/internal/errors"
	"github.com/RoberAF/chatbot/internal/middleware"
	"github.com/RoberAF/chatbot/internal/service"
	ctxutil "github.com/RoberAF/chatbot/pkg/context"
	"github.com/RoberAF/chatbot/pkg/logger"
)

type SubscriptionHandler struct {
	billing *service.SubscriptionService
}

func NewSubscriptionHandler(billing *service.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{billing: billing}
}

func (h *SubscriptionHandler) GetStatus(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "GetSubscriptionStatus")

	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, constants.BuildErrorResponse(constants.MsgUnauthorized, nil))
		return
	}

	status, err := h.billing.GetStatus(ctx, userID)
	if err != nil {
		httpStatus := apperrors.ToHTTPStatus(err)
		logger.ErrorWithContext(ctx, "Failed to read subscription status").
			Uint("user_id", userID).
			Int("http_status", httpStatus).
			Err(err).
			Log()
		c.JSON(httpStatus, constants.BuildErrorResponse(apperrors.GetErrorMessage(err), nil))
		return
	}

	c.JSON(http.StatusOK, status)
}

func (h *SubscriptionHandler) StartTrial(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "StartTrial")

	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, constants.BuildErrorResponse(constants.MsgUnauthorized, nil))
		return
	}

	var req dto.StartTrialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, constants.BuildErrorResponse(constants.MsgBadRequest, err.Error()))
		return
	}

	resp, err := h.billing.StartTrial(ctx, userID, req.Tier)
	if err != nil {
		status := apperrors.ToHTTPStatus(err)
		logger.WarnWithContext(ctx, "Trial start failed").
			Uint("user_id", userID).
			Int("http_status", status).
			Err(err).
			Log()
		c.JSON(status, constants.BuildErrorResponse(apperrors.GetErrorMessage(err), nil))
		return
	}

	c.JSON(http.StatusOK, resp)
}

// HandleWebhook ingests billing-provider events. It is mounted outside the
// authenticated group; the provider authenticates by shared knowledge of
// the endpoint in this deployment.
func (h *SubscriptionHandler) HandleWebhook(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "BillingWebhook")

	var req dto.BillingWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, constants.BuildErrorResponse(constants.MsgBadRequest, err.Error()))
		return
	}

	if err := h.billing.HandleWebhook(ctx, &req); err != nil {
		status := apperrors.ToHTTPStatus(err)
		logger.ErrorWithContext(ctx, "Billing event processing failed").
			String("event_type", req.Type).
			Int("http_status", status).
			Err(err).
			Log()
		c.JSON(status, constants.BuildErrorResponse(apperrors.GetErrorMessage(err), nil))
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
