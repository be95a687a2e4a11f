package services

import (
	"context"
	"testing"
	"time"

	"fact-check-api/internal/database"
	"fact-check-api/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestCheckAndConsumeFreeTrialThenExhausted(t *testing.T) {
	svc := NewTokenService(database.NewRepos(openTestDB(t)))
	ctx := context.Background()

	allowed, source, err := svc.CheckAndConsume(ctx, "d1")
	if err != nil {
		t.Fatalf("first consume: %v", err)
	}
	if !allowed || source != SourceFreeTrial {
		t.Fatalf("expected first check to consume free trial, got allowed=%v source=%q", allowed, source)
	}

	allowed, source, err = svc.CheckAndConsume(ctx, "d1")
	if err != nil {
		t.Fatalf("second consume: %v", err)
	}
	if allowed {
		t.Fatal("expected second check to be denied")
	}
	if source != ErrQuotaExhausted.Error() {
		t.Fatalf("expected exhaustion message, got %q", source)
	}
}

func TestCheckAndConsumePaidTokensFirst(t *testing.T) {
	db := openTestDB(t)
	svc := NewTokenService(database.NewRepos(db))
	ctx := context.Background()

	const n = 3
	if _, err := svc.AddTokens(ctx, "d1", n, "basic", "tx1"); err != nil {
		t.Fatalf("add tokens: %v", err)
	}

	for i := 0; i < n; i++ {
		allowed, source, err := svc.CheckAndConsume(ctx, "d1")
		if err != nil {
			t.Fatalf("consume %d: %v", i, err)
		}
		if !allowed || source != SourcePaidToken {
			t.Fatalf("consume %d: expected paid_token, got allowed=%v source=%q", i, allowed, source)
		}
	}

	// paid tokens exhausted, the untouched free trial takes over
	allowed, source, err := svc.CheckAndConsume(ctx, "d1")
	if err != nil {
		t.Fatalf("trial consume: %v", err)
	}
	if !allowed || source != SourceFreeTrial {
		t.Fatalf("expected fall through to free trial, got allowed=%v source=%q", allowed, source)
	}

	allowed, _, err = svc.CheckAndConsume(ctx, "d1")
	if err != nil {
		t.Fatalf("final consume: %v", err)
	}
	if allowed {
		t.Fatal("expected denial after trial and tokens are gone")
	}
}

func TestCheckAndConsumeFIFO(t *testing.T) {
	db := openTestDB(t)
	svc := NewTokenService(database.NewRepos(db))
	ctx := context.Background()

	older := &models.TokenGrant{DeviceID: "d1", Total: 2, Remaining: 2, ProductSKU: "basic", TransactionID: "tx-old", CreatedAt: time.Now().Add(-time.Hour)}
	newer := &models.TokenGrant{DeviceID: "d1", Total: 3, Remaining: 3, ProductSKU: "standard", TransactionID: "tx-new"}
	if err := db.Create(older).Error; err != nil {
		t.Fatalf("create older: %v", err)
	}
	if err := db.Create(newer).Error; err != nil {
		t.Fatalf("create newer: %v", err)
	}

	for i := 0; i < 2; i++ {
		if _, _, err := svc.CheckAndConsume(ctx, "d1"); err != nil {
			t.Fatalf("consume %d: %v", i, err)
		}
	}

	var oldGrant, newGrant models.TokenGrant
	if err := db.Where("transaction_id = ?", "tx-old").First(&oldGrant).Error; err != nil {
		t.Fatalf("reload older: %v", err)
	}
	if err := db.Where("transaction_id = ?", "tx-new").First(&newGrant).Error; err != nil {
		t.Fatalf("reload newer: %v", err)
	}

	if oldGrant.Remaining != 0 {
		t.Fatalf("expected older grant drained first, remaining=%d", oldGrant.Remaining)
	}
	if newGrant.Remaining != 3 {
		t.Fatalf("expected newer grant untouched, remaining=%d", newGrant.Remaining)
	}
}

func TestGetBalanceRoundTrip(t *testing.T) {
	svc := NewTokenService(database.NewRepos(openTestDB(t)))
	ctx := context.Background()

	if _, err := svc.AddTokens(ctx, "d1", 3, "basic", "tx1"); err != nil {
		t.Fatalf("add tx1: %v", err)
	}
	if _, err := svc.AddTokens(ctx, "d1", 10, "standard", "tx2"); err != nil {
		t.Fatalf("add tx2: %v", err)
	}

	balance, err := svc.GetBalance(ctx, "d1")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 13 {
		t.Fatalf("expected balance 13, got %d", balance)
	}

	const consumed = 4
	for i := 0; i < consumed; i++ {
		allowed, _, err := svc.CheckAndConsume(ctx, "d1")
		if err != nil {
			t.Fatalf("consume %d: %v", i, err)
		}
		if !allowed {
			t.Fatalf("consume %d unexpectedly denied", i)
		}
	}

	balance, err = svc.GetBalance(ctx, "d1")
	if err != nil {
		t.Fatalf("balance after consumption: %v", err)
	}
	if balance != 13-consumed {
		t.Fatalf("expected balance %d, got %d", 13-consumed, balance)
	}
}

func TestGetFreeTrialStatusDoesNotConsume(t *testing.T) {
	svc := NewTokenService(database.NewRepos(openTestDB(t)))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		hasTrial, remaining, err := svc.GetFreeTrialStatus(ctx, "d1")
		if err != nil {
			t.Fatalf("status %d: %v", i, err)
		}
		if !hasTrial || remaining != FreeTrialLimit {
			t.Fatalf("status %d: expected untouched trial, got has=%v remaining=%d", i, hasTrial, remaining)
		}
	}

	if _, _, err := svc.CheckAndConsume(ctx, "d1"); err != nil {
		t.Fatalf("consume: %v", err)
	}

	hasTrial, remaining, err := svc.GetFreeTrialStatus(ctx, "d1")
	if err != nil {
		t.Fatalf("status after consume: %v", err)
	}
	if hasTrial || remaining != 0 {
		t.Fatalf("expected exhausted trial, got has=%v remaining=%d", hasTrial, remaining)
	}
}

func TestAddTokensDuplicateTransaction(t *testing.T) {
	svc := NewTokenService(database.NewRepos(openTestDB(t)))
	ctx := context.Background()

	granted, err := svc.AddTokens(ctx, "d1", 3, "basic", "tx1")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if !granted {
		t.Fatal("expected first grant to be created")
	}

	granted, err = svc.AddTokens(ctx, "d1", 3, "basic", "tx1")
	if err != nil {
		t.Fatalf("duplicate add: %v", err)
	}
	if granted {
		t.Fatal("expected duplicate transaction to be a no-op")
	}

	balance, err := svc.GetBalance(ctx, "d1")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 3 {
		t.Fatalf("expected balance to reflect the grant once, got %d", balance)
	}
}

func TestDevicesAreIndependent(t *testing.T) {
	svc := NewTokenService(database.NewRepos(openTestDB(t)))
	ctx := context.Background()

	if allowed, _, err := svc.CheckAndConsume(ctx, "d1"); err != nil || !allowed {
		t.Fatalf("d1 consume: allowed=%v err=%v", allowed, err)
	}

	allowed, source, err := svc.CheckAndConsume(ctx, "d2")
	if err != nil {
		t.Fatalf("d2 consume: %v", err)
	}
	if !allowed || source != SourceFreeTrial {
		t.Fatalf("expected d2 to keep its own trial, got allowed=%v source=%q", allowed, source)
	}
}
