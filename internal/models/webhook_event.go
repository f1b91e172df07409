package models

import (
	"time"

	"gorm.io/datatypes"
)

// WebhookEvent is the audit trail of every inbound gateway notification,
// including rejected ones.
type WebhookEvent struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	Provider             PaymentGateway `gorm:"type:varchar(32);not null;index" json:"provider"`
	GatewayTransactionID string         `gorm:"type:varchar(128);index" json:"gateway_transaction_id"`
	SignatureValid       bool           `json:"signature_valid"`
	Processed            bool           `json:"processed"`
	Error                *string        `gorm:"type:varchar(255)" json:"error,omitempty"`
	Payload              datatypes.JSON `json:"payload"`
}
