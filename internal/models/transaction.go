package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// TransactionStatus is the three-state payment lifecycle. PENDING is the only
// non-terminal state.
type TransactionStatus string

const (
	TransactionStatusPending TransactionStatus = "PENDING"
	TransactionStatusSuccess TransactionStatus = "SUCCESS"
	TransactionStatusFailed  TransactionStatus = "FAILED"
)

// IsTerminal reports whether the status can no longer change.
func (s TransactionStatus) IsTerminal() bool {
	return s == TransactionStatusSuccess || s == TransactionStatusFailed
}

// DefaultCurrency is used when a payment request does not name one.
const DefaultCurrency = "INR"

// Transaction records one payment attempt for an order.
// The partial unique index keeps at most one PENDING row per order.
type Transaction struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	OrderID              string            `gorm:"type:varchar(36);not null;index:idx_transactions_one_pending_per_order,unique,where:status = 'PENDING'" json:"order_id"`
	UserID               *uint             `gorm:"index" json:"user_id,omitempty"`
	Provider             PaymentGateway    `gorm:"type:varchar(32);not null" json:"provider"`
	GatewayTransactionID string            `gorm:"type:varchar(128);not null;uniqueIndex" json:"gateway_transaction_id"`
	VPA                  string            `gorm:"type:varchar(50);not null" json:"vpa"`
	Amount               decimal.Decimal   `gorm:"type:decimal(15,2);not null" json:"amount"`
	Currency             string            `gorm:"type:char(3);not null;default:'INR'" json:"currency"`
	Status               TransactionStatus `gorm:"type:varchar(16);not null;index" json:"status"`
	FailureReason        *string           `gorm:"type:varchar(255)" json:"failure_reason,omitempty"`
	QRCode               string            `gorm:"type:text" json:"qr_code"`
	DeepLink             string            `gorm:"type:text" json:"deep_link"`
	ExpiresAt            time.Time         `gorm:"index" json:"expires_at"`
	WebhookData          datatypes.JSON    `json:"webhook_data,omitempty"`
}

// IsExpired reports whether a still-pending transaction has outlived its payment window.
func (t Transaction) IsExpired(now time.Time) bool {
	return t.Status == TransactionStatusPending && !t.ExpiresAt.IsZero() && now.After(t.ExpiresAt)
}
