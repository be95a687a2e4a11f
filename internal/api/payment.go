package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"fact-check-api/internal/metrics"
	"fact-check-api/internal/models"
	"fact-check-api/internal/response"
	"fact-check-api/internal/services"
	"fact-check-api/pkg/logging"

	"github.com/gin-gonic/gin"
)

// PaymentHandler handles checkout and webhook endpoints.
type PaymentHandler struct {
	payments *services.PaymentService
	toolName string
}

// NewPaymentHandler constructs a PaymentHandler.
func NewPaymentHandler(payments *services.PaymentService, toolName string) *PaymentHandler {
	return &PaymentHandler{payments: payments, toolName: toolName}
}

// CheckoutRequest is the checkout creation request body.
type CheckoutRequest struct {
	ProductID  string `json:"product_id" binding:"required"`
	DeviceID   string `json:"device_id" binding:"required"`
	SuccessURL string `json:"success_url" binding:"required"`
	CancelURL  string `json:"cancel_url" binding:"required"`
}

// CreateCheckout creates a Creem checkout session.
// POST /api/v1/checkout/create
func (h *PaymentHandler) CreateCheckout(c *gin.Context) {
	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err)
		return
	}

	checkoutURL, err := h.payments.CreateCheckout(c.Request.Context(), req.ProductID, req.DeviceID, req.SuccessURL, req.CancelURL)
	if err != nil {
		if errors.Is(err, services.ErrUnknownProduct) {
			response.Error(c, http.StatusBadRequest, "Unknown product: "+req.ProductID)
			return
		}
		var confErr *services.ConfigurationError
		if errors.As(err, &confErr) {
			logging.Errorf("Checkout configuration error: %v", err)
			response.Error(c, http.StatusInternalServerError, "Payment not configured")
			return
		}
		logging.Errorf("Checkout creation failed: %v", err)
		response.Error(c, http.StatusInternalServerError, "Failed to create checkout")
		return
	}

	c.JSON(http.StatusOK, gin.H{"checkout_url": checkoutURL})
}

// Webhook receives Creem payment webhooks.
// POST /api/v1/webhook/creem
//
// Anything the handler chooses not to act on is still acknowledged with
// 2xx; a non-success response would make the provider redeliver forever.
func (h *PaymentHandler) Webhook(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		response.Error(c, http.StatusBadRequest, "Failed to read request body")
		return
	}

	signature := c.GetHeader("creem-signature")
	if signature != "" && !h.payments.VerifySignature(body, signature) {
		logging.Warnf("Webhook signature verification failed")
		response.Error(c, http.StatusUnauthorized, "Invalid signature")
		return
	}

	var event services.WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		logging.Warnf("Webhook payload did not parse, acknowledging anyway: %v", err)
		metrics.WebhookSkipped.WithLabelValues(h.toolName, "bad_payload").Inc()
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}

	if err := h.payments.HandleWebhook(c.Request.Context(), &event); err != nil {
		// Storage failure: let the provider retry this delivery.
		logging.Errorf("Webhook processing failed - transaction: %s, error: %v", event.Object.ID, err)
		response.Error(c, http.StatusInternalServerError, "Webhook processing failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Products returns the static product catalog.
// GET /api/v1/products
func (h *PaymentHandler) Products(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"products": models.ProductList()})
}
