package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Refund records a refund requested from the gateway for a successful transaction.
type Refund struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	TransactionID   string          `gorm:"type:varchar(36);not null;index" json:"transaction_id"`
	Provider        PaymentGateway  `gorm:"type:varchar(32);not null" json:"provider"`
	GatewayRefundID string          `gorm:"type:varchar(128);index" json:"gateway_refund_id"`
	Amount          decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount"`
	Currency        string          `gorm:"type:char(3);not null" json:"currency"`
	Reason          *string         `gorm:"type:varchar(255)" json:"reason,omitempty"`
	Status          string          `gorm:"type:varchar(32)" json:"status"` // provider vocabulary, e.g. "processed", "pending"
	ResponseData    datatypes.JSON  `json:"response_data,omitempty"`

	Transaction Transaction `gorm:"foreignKey:TransactionID" json:"-"`
}
