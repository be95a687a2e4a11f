package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"fact-check-api/internal/config"
	"fact-check-api/internal/database"
	"fact-check-api/internal/models"
)

func newTestPaymentService(t *testing.T, cfg *config.Config) (*PaymentService, *TokenService) {
	t.Helper()
	repos := database.NewRepos(openTestDB(t))
	tokens := NewTokenService(repos)
	return NewPaymentService(cfg, tokens, repos.Transactions), tokens
}

func signBody(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	svc, _ := newTestPaymentService(t, &config.Config{CreemWebhookSecret: "whsec"})

	body := []byte(`{"type":"checkout.completed"}`)
	if !svc.VerifySignature(body, signBody("whsec", body)) {
		t.Fatal("expected valid signature to be accepted")
	}

	// single byte mutation of the body
	mutated := append([]byte{}, body...)
	mutated[0] = '['
	if svc.VerifySignature(mutated, signBody("whsec", body)) {
		t.Fatal("expected mutated body to be rejected")
	}

	// single byte mutation of the signature
	sig := []byte(signBody("whsec", body))
	if sig[0] == 'a' {
		sig[0] = 'b'
	} else {
		sig[0] = 'a'
	}
	if svc.VerifySignature(body, string(sig)) {
		t.Fatal("expected mutated signature to be rejected")
	}
}

func TestVerifySignatureNoSecretConfigured(t *testing.T) {
	svc, _ := newTestPaymentService(t, &config.Config{})

	if !svc.VerifySignature([]byte("anything"), "bogus-signature") {
		t.Fatal("expected any signature to pass without a configured secret")
	}
}

func TestHandleWebhookGrantsTokens(t *testing.T) {
	svc, tokens := newTestPaymentService(t, &config.Config{ToolName: "fact-checker"})
	ctx := context.Background()

	event := &WebhookEvent{
		Type: "checkout.completed",
		Object: WebhookObject{
			ID:     "tx1",
			Amount: 799,
			Metadata: map[string]string{
				"device_id":   "d1",
				"product_sku": "basic",
			},
		},
	}

	if err := svc.HandleWebhook(ctx, event); err != nil {
		t.Fatalf("handle: %v", err)
	}

	balance, err := tokens.GetBalance(ctx, "d1")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 3 {
		t.Fatalf("expected 3 tokens for basic sku, got %d", balance)
	}

	txn, err := svc.transactions.FindByTransactionID(ctx, "tx1")
	if err != nil {
		t.Fatalf("find transaction: %v", err)
	}
	if txn == nil || txn.AmountCents != 799 || txn.Status != "completed" {
		t.Fatalf("unexpected audit row: %+v", txn)
	}
}

func TestHandleWebhookIdempotent(t *testing.T) {
	svc, tokens := newTestPaymentService(t, &config.Config{ToolName: "fact-checker"})
	ctx := context.Background()

	event := &WebhookEvent{
		Type: "checkout.completed",
		Object: WebhookObject{
			ID:     "tx1",
			Amount: 799,
			Metadata: map[string]string{
				"device_id":   "d1",
				"product_sku": "basic",
			},
		},
	}

	for i := 0; i < 3; i++ {
		if err := svc.HandleWebhook(ctx, event); err != nil {
			t.Fatalf("delivery %d: %v", i, err)
		}
	}

	balance, err := tokens.GetBalance(ctx, "d1")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 3 {
		t.Fatalf("expected redeliveries to credit once, got balance %d", balance)
	}
}

// flakyTransactionRepo fails the first insert attempts, then delegates.
type flakyTransactionRepo struct {
	database.TransactionRepo
	failures int
}

func (r *flakyTransactionRepo) InsertIfAbsent(ctx context.Context, txn *models.PaymentTransaction) (bool, error) {
	if r.failures > 0 {
		r.failures--
		return false, errors.New("connection reset")
	}
	return r.TransactionRepo.InsertIfAbsent(ctx, txn)
}

func TestHandleWebhookRetryCompletesAuditRow(t *testing.T) {
	repos := database.NewRepos(openTestDB(t))
	tokens := NewTokenService(repos)
	flaky := &flakyTransactionRepo{TransactionRepo: repos.Transactions, failures: 1}
	svc := NewPaymentService(&config.Config{ToolName: "fact-checker"}, tokens, flaky)
	ctx := context.Background()

	event := &WebhookEvent{
		Type: "checkout.completed",
		Object: WebhookObject{
			ID:     "tx1",
			Amount: 799,
			Metadata: map[string]string{
				"device_id":   "d1",
				"product_sku": "basic",
			},
		},
	}

	// first delivery: grant is created, audit write fails transiently
	if err := svc.HandleWebhook(ctx, event); err == nil {
		t.Fatal("expected first delivery to fail on the audit write")
	}

	// the provider redelivers; the grant already exists but the audit row
	// must still be completed
	if err := svc.HandleWebhook(ctx, event); err != nil {
		t.Fatalf("retried delivery: %v", err)
	}

	txn, err := repos.Transactions.FindByTransactionID(ctx, "tx1")
	if err != nil {
		t.Fatalf("find transaction: %v", err)
	}
	if txn == nil {
		t.Fatal("expected audit row after retried delivery")
	}

	balance, err := tokens.GetBalance(ctx, "d1")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 3 {
		t.Fatalf("expected the retry to credit once, got balance %d", balance)
	}
}

func TestHandleWebhookIgnoresForeignEvents(t *testing.T) {
	svc, tokens := newTestPaymentService(t, &config.Config{ToolName: "fact-checker"})
	ctx := context.Background()

	events := []*WebhookEvent{
		{Type: "checkout.expired", Object: WebhookObject{ID: "tx1"}},
		{Type: "checkout.completed", Object: WebhookObject{ID: "tx2", Metadata: map[string]string{"device_id": "d1"}}},
		{Type: "checkout.completed", Object: WebhookObject{ID: "tx3", Metadata: map[string]string{"device_id": "d1", "product_sku": "gold"}}},
	}

	for _, event := range events {
		if err := svc.HandleWebhook(ctx, event); err != nil {
			t.Fatalf("event %s: %v", event.Type, err)
		}
	}

	balance, err := tokens.GetBalance(ctx, "d1")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 0 {
		t.Fatalf("expected no grants from foreign events, got %d", balance)
	}
}

func TestCreateCheckout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/checkouts" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if key := r.Header.Get("x-api-key"); key != "creem-key" {
			t.Errorf("unexpected api key %q", key)
		}
		var req map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req["product_id"] != "prod_123" {
			t.Errorf("expected mapped product id prod_123, got %v", req["product_id"])
		}
		meta, _ := req["metadata"].(map[string]interface{})
		if meta["device_id"] != "d1" || meta["product_sku"] != "basic" {
			t.Errorf("unexpected metadata %v", meta)
		}
		json.NewEncoder(w).Encode(map[string]string{"checkout_url": "https://pay.example/session"})
	}))
	defer server.Close()

	svc, _ := newTestPaymentService(t, &config.Config{
		CreemAPIKey:     "creem-key",
		CreemProductIDs: `{"basic":"prod_123"}`,
	})
	svc.baseURL = server.URL

	url, err := svc.CreateCheckout(context.Background(), "basic", "d1", "https://app.example/ok", "https://app.example/cancel")
	if err != nil {
		t.Fatalf("create checkout: %v", err)
	}
	if url != "https://pay.example/session" {
		t.Fatalf("unexpected checkout url %q", url)
	}
}

func TestCreateCheckoutNotConfigured(t *testing.T) {
	svc, _ := newTestPaymentService(t, &config.Config{})

	_, err := svc.CreateCheckout(context.Background(), "basic", "d1", "https://app.example/ok", "https://app.example/cancel")
	var confErr *ConfigurationError
	if !errors.As(err, &confErr) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
}

func TestCreateCheckoutUnknownProduct(t *testing.T) {
	svc, _ := newTestPaymentService(t, &config.Config{
		CreemAPIKey:     "creem-key",
		CreemProductIDs: `{"basic":"prod_123"}`,
	})

	_, err := svc.CreateCheckout(context.Background(), "gold", "d1", "https://app.example/ok", "https://app.example/cancel")
	if !errors.Is(err, ErrUnknownProduct) {
		t.Fatalf("expected ErrUnknownProduct, got %v", err)
	}
}

func TestCreateCheckoutUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	svc, _ := newTestPaymentService(t, &config.Config{
		CreemAPIKey:     "creem-key",
		CreemProductIDs: `{"basic":"prod_123"}`,
	})
	svc.baseURL = server.URL

	_, err := svc.CreateCheckout(context.Background(), "basic", "d1", "https://app.example/ok", "https://app.example/cancel")
	var upstream *UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
}
