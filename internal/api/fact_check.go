package api

import (
	"net/http"

	"fact-check-api/internal/metrics"
	"fact-check-api/internal/middleware"
	"fact-check-api/internal/response"
	"fact-check-api/internal/services"
	"fact-check-api/pkg/logging"

	"github.com/gin-gonic/gin"
)

// FactCheckHandler handles claim analysis endpoints.
type FactCheckHandler struct {
	tokens   *services.TokenService
	llm      *services.LLMService
	toolName string
}

// NewFactCheckHandler constructs a FactCheckHandler.
func NewFactCheckHandler(tokens *services.TokenService, llm *services.LLMService, toolName string) *FactCheckHandler {
	return &FactCheckHandler{tokens: tokens, llm: llm, toolName: toolName}
}

// ClaimRequest is the check request body.
type ClaimRequest struct {
	Claim    string `json:"claim" binding:"required,min=10,max=5000"`
	Language string `json:"language"`
}

// Check analyzes a claim for factual accuracy.
// POST /api/v1/check
//
// Quota is consumed before the analysis call and is not refunded when the
// call fails: the analysis attempt is the billable event.
func (h *FactCheckHandler) Check(c *gin.Context) {
	var req ClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err)
		return
	}
	if req.Language == "" {
		req.Language = "en"
	}

	deviceID := middleware.GetDeviceID(c)

	allowed, source, err := h.tokens.CheckAndConsume(c.Request.Context(), deviceID)
	if err != nil {
		logging.Errorf("Quota check failed - device: %s, error: %v", deviceID, err)
		response.Error(c, http.StatusInternalServerError, "Internal server error")
		return
	}
	if !allowed {
		metrics.FactCheckRequests.WithLabelValues(h.toolName, "payment_required").Inc()
		response.ErrorWithCode(c, http.StatusPaymentRequired, source, "payment_required")
		return
	}

	result, err := h.llm.AnalyzeClaim(c.Request.Context(), req.Claim, req.Language)
	if err != nil {
		logging.Errorf("Claim analysis failed - device: %s, error: %v", deviceID, err)
		metrics.FactCheckRequests.WithLabelValues(h.toolName, "error").Inc()
		response.Error(c, http.StatusInternalServerError, "Analysis failed")
		return
	}

	// The gateway passes the score through untouched; range validation is
	// this boundary's contract.
	if result.CredibilityScore < 0 || result.CredibilityScore > 100 {
		logging.Errorf("Credibility score out of range - device: %s, score: %v", deviceID, result.CredibilityScore)
		metrics.FactCheckRequests.WithLabelValues(h.toolName, "error").Inc()
		response.Error(c, http.StatusInternalServerError, "Analysis failed")
		return
	}

	metrics.FactCheckRequests.WithLabelValues(h.toolName, "success").Inc()
	metrics.TokensConsumed.WithLabelValues(h.toolName).Inc()
	if source == services.SourceFreeTrial {
		metrics.FreeTrialUsed.WithLabelValues(h.toolName).Inc()
	}

	c.JSON(http.StatusOK, result)
}

// TrialStatusResponse reports free trial availability.
type TrialStatusResponse struct {
	HasFreeTrial    bool `json:"has_free_trial"`
	RemainingChecks int  `json:"remaining_checks"`
}

// TrialStatus reports whether the device still has free checks.
// GET /api/v1/trial-status
func (h *FactCheckHandler) TrialStatus(c *gin.Context) {
	deviceID := middleware.GetDeviceID(c)

	hasTrial, remaining, err := h.tokens.GetFreeTrialStatus(c.Request.Context(), deviceID)
	if err != nil {
		logging.Errorf("Trial status lookup failed - device: %s, error: %v", deviceID, err)
		response.Error(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	c.JSON(http.StatusOK, TrialStatusResponse{
		HasFreeTrial:    hasTrial,
		RemainingChecks: remaining,
	})
}
