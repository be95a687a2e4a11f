package services

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"fact-check-api/internal/config"
	"fact-check-api/internal/database"
	"fact-check-api/internal/metrics"
	"fact-check-api/internal/models"
	"fact-check-api/pkg/logging"
)

const defaultCreemAPIURL = "https://api.creem.io"

// PaymentService creates Creem checkout sessions and reconciles payment
// webhooks into token grants.
type PaymentService struct {
	apiKey        string
	productIDs    string
	webhookSecret string
	toolName      string
	baseURL       string
	tokens        *TokenService
	transactions  database.TransactionRepo
	httpClient    *http.Client
}

// NewPaymentService creates a new payment service instance.
func NewPaymentService(cfg *config.Config, tokens *TokenService, transactions database.TransactionRepo) *PaymentService {
	return &PaymentService{
		apiKey:        cfg.CreemAPIKey,
		productIDs:    cfg.CreemProductIDs,
		webhookSecret: cfg.CreemWebhookSecret,
		toolName:      cfg.ToolName,
		baseURL:       defaultCreemAPIURL,
		tokens:        tokens,
		transactions:  transactions,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type checkoutRequest struct {
	ProductID  string            `json:"product_id"`
	SuccessURL string            `json:"success_url"`
	RequestID  string            `json:"request_id"`
	Metadata   map[string]string `json:"metadata"`
}

type checkoutResponse struct {
	CheckoutURL string `json:"checkout_url"`
}

// CreateCheckout creates a Creem checkout session and returns its URL.
// The device id and public product id travel in the session metadata and
// come back on the completion webhook for reconciliation.
func (s *PaymentService) CreateCheckout(ctx context.Context, productID, deviceID, successURL, cancelURL string) (string, error) {
	if s.apiKey == "" {
		return "", &ConfigurationError{Setting: "CREEM_API_KEY"}
	}

	var productIDs map[string]string
	if err := json.Unmarshal([]byte(s.productIDs), &productIDs); err != nil {
		return "", &ConfigurationError{Setting: "CREEM_PRODUCT_IDS"}
	}

	creemProductID, ok := productIDs[productID]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownProduct, productID)
	}

	reqBody := checkoutRequest{
		ProductID:  creemProductID,
		SuccessURL: successURL,
		RequestID:  fmt.Sprintf("%s_%s", deviceID, productID),
		Metadata: map[string]string{
			"device_id":   deviceID,
			"product_sku": productID,
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal checkout request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v1/checkouts", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("x-api-key", s.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to call Creem API: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read Creem response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", &UpstreamError{Service: "Creem", StatusCode: resp.StatusCode, Body: string(body)}
	}

	var checkout checkoutResponse
	if err := json.Unmarshal(body, &checkout); err != nil {
		return "", &MalformedResponseError{Reason: "invalid checkout response"}
	}

	return checkout.CheckoutURL, nil
}

// VerifySignature checks the hex HMAC-SHA256 of the raw webhook body.
// Without a configured secret every signature is accepted; that relaxation
// exists for development environments only.
func (s *PaymentService) VerifySignature(rawBody []byte, signature string) bool {
	if s.webhookSecret == "" {
		return true
	}
	mac := hmac.New(sha256.New, []byte(s.webhookSecret))
	mac.Write(rawBody)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// WebhookEvent is the Creem webhook envelope.
type WebhookEvent struct {
	Type   string        `json:"type"`
	Object WebhookObject `json:"object"`
}

// WebhookObject carries the checkout session of a completed payment.
type WebhookObject struct {
	ID       string            `json:"id"`
	Amount   int               `json:"amount"`
	Metadata map[string]string `json:"metadata"`
}

// HandleWebhook applies a payment webhook. Only "checkout.completed"
// events grant tokens; everything else is acknowledged untouched so the
// provider does not retry. Redelivery of a transaction id already applied
// is a successful no-op. The returned error is reserved for storage
// failures, where a provider retry is wanted.
func (s *PaymentService) HandleWebhook(ctx context.Context, event *WebhookEvent) error {
	if event.Type != "checkout.completed" {
		return nil
	}

	deviceID := event.Object.Metadata["device_id"]
	productSKU := event.Object.Metadata["product_sku"]
	transactionID := event.Object.ID

	if deviceID == "" || productSKU == "" || transactionID == "" {
		logging.Warnf("Webhook missing required fields - transaction: %q, device: %q, sku: %q",
			transactionID, deviceID, productSKU)
		metrics.WebhookSkipped.WithLabelValues(s.toolName, "missing_fields").Inc()
		return nil
	}

	product, ok := models.Products[productSKU]
	if !ok {
		logging.Warnf("Webhook for unknown product %q - transaction: %s", productSKU, transactionID)
		metrics.WebhookSkipped.WithLabelValues(s.toolName, "unknown_product").Inc()
		return nil
	}

	granted, err := s.tokens.AddTokens(ctx, deviceID, product.Tokens, productSKU, transactionID)
	if err != nil {
		return fmt.Errorf("failed to credit tokens: %w", err)
	}

	// The audit row is attempted on every delivery, not only the one that
	// created the grant: a retry after a transient audit failure arrives
	// with the grant already in place and must still complete the record.
	txn := &models.PaymentTransaction{
		TransactionID: transactionID,
		DeviceID:      deviceID,
		ProductID:     productSKU,
		AmountCents:   event.Object.Amount,
		Status:        "completed",
	}
	if _, err := s.transactions.InsertIfAbsent(ctx, txn); err != nil {
		return fmt.Errorf("failed to record transaction: %w", err)
	}

	if !granted {
		logging.Infof("Webhook redelivery ignored - transaction: %s", transactionID)
		metrics.WebhookSkipped.WithLabelValues(s.toolName, "duplicate").Inc()
		return nil
	}

	metrics.PaymentSuccess.WithLabelValues(s.toolName, productSKU).Inc()
	metrics.PaymentRevenueCents.WithLabelValues(s.toolName).Add(float64(event.Object.Amount))

	logging.Infof("Payment credited - transaction: %s, device: %s, tokens: %d",
		transactionID, deviceID, product.Tokens)
	return nil
}
