package models

import (
	"time"

	"gorm.io/gorm"
)

// PaymentGateway names a gateway provider.
type PaymentGateway string

const (
	PaymentGatewayMock     PaymentGateway = "mock"
	PaymentGatewayRazorpay PaymentGateway = "razorpay"
	PaymentGatewayMidtrans PaymentGateway = "midtrans"
)

// GatewaySetting holds admin-managed provider configuration. Credential
// columns hold AES-256-GCM ciphertext; only one row is active at a time.
type GatewaySetting struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	Provider PaymentGateway `gorm:"type:varchar(32);uniqueIndex;not null" json:"provider"`

	APIKey        string `gorm:"type:text" json:"-"`
	APISecret     string `gorm:"type:text" json:"-"`
	MerchantID    string `gorm:"type:text" json:"-"`
	WebhookSecret string `gorm:"type:text" json:"-"`

	PayeeVPA  string `gorm:"type:varchar(50)" json:"payee_vpa"`
	PayeeName string `gorm:"type:varchar(100)" json:"payee_name"`

	IsActive       bool `gorm:"not null;index" json:"is_active"`
	IsTestMode     bool `gorm:"not null" json:"is_test_mode"`
	TimeoutSeconds int  `gorm:"not null" json:"timeout_seconds"`
	MaxRetries     int  `gorm:"not null" json:"max_retries"`
}
