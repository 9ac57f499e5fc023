package payment

import (
	"errors"
	"net/http"

	"agentsouk/internal/api"
	"agentsouk/internal/apperr"
	"agentsouk/internal/auth"
	"agentsouk/internal/logger"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

type topUpRequest struct {
	PackageID string `json:"package_id" binding:"required"`
}

// StartTopUp godoc
// @Summary      Start a wallet top-up
// @Description  Creates a hosted checkout session for a wallet package and returns the URL to redirect the user to.
// @Tags         wallet
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body payment.topUpRequest true "Package selection"
// @Success      200 {object} payment.TopUpIntent
// @Failure      400 {object} api.ErrorResponse
// @Failure      404 {object} api.ErrorResponse
// @Failure      502 {object} api.ErrorResponse
// @Router       /wallet/topup [post]
func (h *Handler) StartTopUp(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "User not authenticated"})
		return
	}

	var req topUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.RespondBindError(c, err)
		return
	}

	intent, err := h.service.StartTopUp(c.Request.Context(), userID, req.PackageID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, intent)
}

// Verify godoc
// @Summary      Verify a checkout session
// @Description  Called after the checkout redirect. Confirms payment with the processor and credits the wallet once per session.
// @Tags         wallet
// @Produce      json
// @Security     BearerAuth
// @Param        session_id query string true "Checkout session ID"
// @Success      200 {object} payment.ConfirmResult
// @Failure      400 {object} api.ErrorResponse
// @Failure      502 {object} api.ErrorResponse
// @Router       /wallet/topup/verify [get]
func (h *Handler) Verify(c *gin.Context) {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "session_id is required"})
		return
	}

	result, err := h.service.Confirm(c.Request.Context(), sessionID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

type webhookEvent struct {
	Type string `json:"type"`
	Data struct {
		SessionID string `json:"session_id"`
	} `json:"data"`
}

// Webhook godoc
// @Summary      Payment processor webhook
// @Description  Receives checkout completion events from the processor. Confirmation shares the idempotent credit path with verify, so duplicate deliveries are harmless.
// @Tags         wallet
// @Accept       json
// @Produce      json
// @Param        event body payment.webhookEvent true "Processor event"
// @Success      200 {object} api.MessageResponse
// @Failure      400 {object} api.ErrorResponse
// @Router       /payments/webhook [post]
func (h *Handler) Webhook(c *gin.Context) {
	var event webhookEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid event payload"})
		return
	}

	if event.Type != "checkout.session.completed" || event.Data.SessionID == "" {
		c.JSON(http.StatusOK, api.MessageResponse{Message: "ignored"})
		return
	}

	if _, err := h.service.Confirm(c.Request.Context(), event.Data.SessionID); err != nil {
		logger.Error("webhook confirmation failed", "session_id", event.Data.SessionID, "error", err)
		// The processor retries on non-2xx; surface the failure.
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, api.MessageResponse{Message: "processed"})
}

func respondError(c *gin.Context, err error) {
	if errors.Is(err, ErrUnknownPackage) {
		c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "Package not found"})
		return
	}

	kind := apperr.KindOf(err)
	c.JSON(apperr.HTTPStatus(kind), api.ErrorResponse{
		Error: apperr.UserMessage(kind),
		Kind:  string(kind),
	})
}
