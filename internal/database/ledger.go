package database

import (
	"context"
	"errors"

	"fact-check-api/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TrialUsageRepo exposes the free trial queries used by the quota manager.
type TrialUsageRepo interface {
	FindByDevice(ctx context.Context, deviceID string) (*models.DeviceUsage, error)
	// InsertIfAbsent creates the row with usage_count=1 and reports whether
	// it was actually created. The insert itself is the first consumption.
	InsertIfAbsent(ctx context.Context, deviceID string) (bool, error)
	// IncrementBelow bumps usage_count by one only while it is below limit,
	// reporting whether a row was updated.
	IncrementBelow(ctx context.Context, deviceID string, limit int) (bool, error)
}

// TokenGrantRepo exposes the paid token queries used by the quota manager
// and the payment reconciler.
type TokenGrantRepo interface {
	// OldestWithBalance returns the grant to consume next: the oldest grant
	// for the device with remaining > 0, or nil when none exists.
	OldestWithBalance(ctx context.Context, deviceID string) (*models.TokenGrant, error)
	// Debit decrements remaining by one, guarded by remaining > 0, and
	// reports whether the decrement happened.
	Debit(ctx context.Context, grantID uint) (bool, error)
	// InsertIfAbsent creates a grant unless one already exists for its
	// transaction id, reporting whether a row was created.
	InsertIfAbsent(ctx context.Context, grant *models.TokenGrant) (bool, error)
	SumRemaining(ctx context.Context, deviceID string) (int, error)
}

// TransactionRepo exposes the payment audit log.
type TransactionRepo interface {
	// InsertIfAbsent appends an audit row unless its transaction id was
	// already recorded, reporting whether a row was created.
	InsertIfAbsent(ctx context.Context, txn *models.PaymentTransaction) (bool, error)
	FindByTransactionID(ctx context.Context, transactionID string) (*models.PaymentTransaction, error)
}

// Repos bundles the ledger repositories over one database handle.
type Repos struct {
	TrialUsage   TrialUsageRepo
	TokenGrants  TokenGrantRepo
	Transactions TransactionRepo
}

// NewRepos builds GORM-backed repositories.
func NewRepos(db *gorm.DB) *Repos {
	return &Repos{
		TrialUsage:   &gormTrialUsageRepo{db: db},
		TokenGrants:  &gormTokenGrantRepo{db: db},
		Transactions: &gormTransactionRepo{db: db},
	}
}

type gormTrialUsageRepo struct {
	db *gorm.DB
}

func (r *gormTrialUsageRepo) FindByDevice(ctx context.Context, deviceID string) (*models.DeviceUsage, error) {
	var usage models.DeviceUsage
	err := r.db.WithContext(ctx).Where("device_id = ?", deviceID).First(&usage).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &usage, nil
}

func (r *gormTrialUsageRepo) InsertIfAbsent(ctx context.Context, deviceID string) (bool, error) {
	usage := models.DeviceUsage{DeviceID: deviceID, UsageCount: 1}
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "device_id"}},
		DoNothing: true,
	}).Create(&usage)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *gormTrialUsageRepo) IncrementBelow(ctx context.Context, deviceID string, limit int) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.DeviceUsage{}).
		Where("device_id = ? AND usage_count < ?", deviceID, limit).
		UpdateColumn("usage_count", gorm.Expr("usage_count + 1"))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

type gormTokenGrantRepo struct {
	db *gorm.DB
}

func (r *gormTokenGrantRepo) OldestWithBalance(ctx context.Context, deviceID string) (*models.TokenGrant, error) {
	var grant models.TokenGrant
	err := r.db.WithContext(ctx).
		Where("device_id = ? AND remaining > 0", deviceID).
		Order("created_at ASC, id ASC").
		First(&grant).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &grant, nil
}

// Debit is a guarded atomic update; the remaining > 0 condition keeps two
// concurrent consumers from driving the balance below zero.
func (r *gormTokenGrantRepo) Debit(ctx context.Context, grantID uint) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.TokenGrant{}).
		Where("id = ? AND remaining > 0", grantID).
		UpdateColumn("remaining", gorm.Expr("remaining - 1"))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *gormTokenGrantRepo) InsertIfAbsent(ctx context.Context, grant *models.TokenGrant) (bool, error) {
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "transaction_id"}},
		DoNothing: true,
	}).Create(grant)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *gormTokenGrantRepo) SumRemaining(ctx context.Context, deviceID string) (int, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.TokenGrant{}).
		Where("device_id = ? AND remaining > 0", deviceID).
		Select("COALESCE(SUM(remaining), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return int(total), nil
}

type gormTransactionRepo struct {
	db *gorm.DB
}

func (r *gormTransactionRepo) InsertIfAbsent(ctx context.Context, txn *models.PaymentTransaction) (bool, error) {
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "transaction_id"}},
		DoNothing: true,
	}).Create(txn)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *gormTransactionRepo) FindByTransactionID(ctx context.Context, transactionID string) (*models.PaymentTransaction, error) {
	var txn models.PaymentTransaction
	err := r.db.WithContext(ctx).Where("transaction_id = ?", transactionID).First(&txn).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &txn, nil
}
