package models

import (
	"time"
)

// DeviceUsage tracks free trial consumption per device.
// One row per device, created lazily on the first quota check.
type DeviceUsage struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	DeviceID   string    `json:"device_id" gorm:"size:255;uniqueIndex;not null"`
	UsageCount int       `json:"usage_count" gorm:"not null;default:0"`
	CreatedAt  time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt  time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName overrides the default table name.
func (DeviceUsage) TableName() string {
	return "device_usage"
}

// TokenGrant is one purchased batch of checks. Multiple grants per device
// may coexist; consumption drains the oldest grant first. TransactionID is
// the webhook idempotency key: a given payment produces at most one grant.
type TokenGrant struct {
	ID            uint      `json:"id" gorm:"primaryKey"`
	DeviceID      string    `json:"device_id" gorm:"size:255;index;not null"`
	Total         int       `json:"total" gorm:"not null"`
	Remaining     int       `json:"remaining" gorm:"not null"`
	ProductSKU    string    `json:"product_sku" gorm:"size:100;not null;column:product_sku"`
	TransactionID string    `json:"transaction_id" gorm:"size:255;uniqueIndex;not null"`
	CreatedAt     time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// TableName overrides the default table name.
func (TokenGrant) TableName() string {
	return "token_grants"
}

// PaymentTransaction is the append-only audit record for processed
// payment webhooks, keyed by the provider transaction id.
type PaymentTransaction struct {
	ID            uint      `json:"id" gorm:"primaryKey"`
	TransactionID string    `json:"transaction_id" gorm:"size:255;uniqueIndex;not null"`
	DeviceID      string    `json:"device_id" gorm:"size:255;not null"`
	ProductID     string    `json:"product_id" gorm:"size:255;not null"`
	AmountCents   int       `json:"amount_cents" gorm:"not null"`
	Currency      string    `json:"currency" gorm:"size:10;default:'USD'"`
	Status        string    `json:"status" gorm:"size:50;not null"`
	CreatedAt     time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// TableName 指定表名
func (PaymentTransaction) TableName() string {
	return "payment_transactions"
}
