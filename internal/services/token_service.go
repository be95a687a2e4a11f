package services

import (
	"context"

	"fact-check-api/internal/database"
	"fact-check-api/internal/models"
)

// FreeTrialLimit is the number of no-cost checks granted per device.
const FreeTrialLimit = 1

// Consumption sources reported by CheckAndConsume.
const (
	SourcePaidToken = "paid_token"
	SourceFreeTrial = "free_trial"
)

// TokenService is the quota manager. It is the only component that debits
// the ledger; paid tokens are always consumed before the free trial.
type TokenService struct {
	repos *database.Repos
}

// NewTokenService creates a new token service instance.
func NewTokenService(repos *database.Repos) *TokenService {
	return &TokenService{repos: repos}
}

// CheckAndConsume debits one unit of quota for the device. It reports
// whether the request may proceed and which source was consumed.
//
// Consumption order: oldest paid grant with a positive balance first, then
// the free trial. All mutations are guarded atomic updates, so two
// concurrent requests from the same device cannot both win the last unit.
func (s *TokenService) CheckAndConsume(ctx context.Context, deviceID string) (bool, string, error) {
	for {
		grant, err := s.repos.TokenGrants.OldestWithBalance(ctx, deviceID)
		if err != nil {
			return false, "", err
		}
		if grant == nil {
			break
		}
		debited, err := s.repos.TokenGrants.Debit(ctx, grant.ID)
		if err != nil {
			return false, "", err
		}
		if debited {
			return true, SourcePaidToken, nil
		}
		// A concurrent request drained this grant between the read and the
		// debit; re-check for another grant before falling back to trial.
	}

	created, err := s.repos.TrialUsage.InsertIfAbsent(ctx, deviceID)
	if err != nil {
		return false, "", err
	}
	if created {
		return true, SourceFreeTrial, nil
	}

	bumped, err := s.repos.TrialUsage.IncrementBelow(ctx, deviceID, FreeTrialLimit)
	if err != nil {
		return false, "", err
	}
	if bumped {
		return true, SourceFreeTrial, nil
	}

	return false, ErrQuotaExhausted.Error(), nil
}

// GetFreeTrialStatus reports whether the device still has free checks.
// Read-only; it never consumes.
func (s *TokenService) GetFreeTrialStatus(ctx context.Context, deviceID string) (bool, int, error) {
	usage, err := s.repos.TrialUsage.FindByDevice(ctx, deviceID)
	if err != nil {
		return false, 0, err
	}
	if usage == nil {
		return true, FreeTrialLimit, nil
	}
	remaining := FreeTrialLimit - usage.UsageCount
	if remaining < 0 {
		remaining = 0
	}
	return remaining > 0, remaining, nil
}

// GetBalance returns the total paid tokens remaining for a device.
func (s *TokenService) GetBalance(ctx context.Context, deviceID string) (int, error) {
	return s.repos.TokenGrants.SumRemaining(ctx, deviceID)
}

// AddTokens credits a grant after payment, keyed by the provider
// transaction id. A duplicate transaction id is a no-op and reports false.
func (s *TokenService) AddTokens(ctx context.Context, deviceID string, amount int, productSKU, transactionID string) (bool, error) {
	grant := &models.TokenGrant{
		DeviceID:      deviceID,
		Total:         amount,
		Remaining:     amount,
		ProductSKU:    productSKU,
		TransactionID: transactionID,
	}
	return s.repos.TokenGrants.InsertIfAbsent(ctx, grant)
}
