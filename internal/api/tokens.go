package api

import (
	"net/http"

	"fact-check-api/internal/middleware"
	"fact-check-api/internal/response"
	"fact-check-api/internal/services"
	"fact-check-api/pkg/logging"

	"github.com/gin-gonic/gin"
)

// TokensHandler handles token balance endpoints.
type TokensHandler struct {
	tokens *services.TokenService
}

// NewTokensHandler constructs a TokensHandler.
func NewTokensHandler(tokens *services.TokenService) *TokensHandler {
	return &TokensHandler{tokens: tokens}
}

// BalanceResponse reports available quota for a device.
type BalanceResponse struct {
	DeviceID           string `json:"device_id"`
	PaidTokens         int    `json:"paid_tokens"`
	FreeTrialRemaining int    `json:"free_trial_remaining"`
	TotalAvailable     int    `json:"total_available"`
}

// Balance returns the paid and trial balance for a device.
// GET /api/v1/tokens/balance
func (h *TokensHandler) Balance(c *gin.Context) {
	deviceID := middleware.GetDeviceID(c)

	paidTokens, err := h.tokens.GetBalance(c.Request.Context(), deviceID)
	if err != nil {
		logging.Errorf("Balance lookup failed - device: %s, error: %v", deviceID, err)
		response.Error(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	hasTrial, trialRemaining, err := h.tokens.GetFreeTrialStatus(c.Request.Context(), deviceID)
	if err != nil {
		logging.Errorf("Trial status lookup failed - device: %s, error: %v", deviceID, err)
		response.Error(c, http.StatusInternalServerError, "Internal server error")
		return
	}
	if !hasTrial {
		trialRemaining = 0
	}

	c.JSON(http.StatusOK, BalanceResponse{
		DeviceID:           deviceID,
		PaidTokens:         paidTokens,
		FreeTrialRemaining: trialRemaining,
		TotalAvailable:     paidTokens + trialRemaining,
	})
}
