package handlers

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type InitiatePaymentRequest struct {
	OrderID  string          `json:"orderId" validate:"required,max=36"`
	UserID   *uint           `json:"userId"`
	VPA      string          `json:"vpa" validate:"required,max=50"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency" validate:"omitempty,len=3,alpha"`
}

type InitiatePaymentResponse struct {
	TransactionID string    `json:"transactionId"`
	PaymentID     string    `json:"paymentId"`
	QRCode        string    `json:"qrCode"`
	DeepLink      string    `json:"deepLink"`
	ExpiresAt     time.Time `json:"expiresAt"`
	CheckoutURL   string    `json:"checkoutUrl,omitempty"`
}

type PaymentStatusResponse struct {
	TransactionID string          `json:"transactionId"`
	OrderID       string          `json:"orderId"`
	Status        string          `json:"status"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	VPA           string          `json:"vpa"`
	FailureReason *string         `json:"failureReason,omitempty"`
	ExpiresAt     time.Time       `json:"expiresAt"`
	GatewayData   json.RawMessage `json:"gatewayData,omitempty"`
}

type WebhookResponse struct {
	Processed bool `json:"processed"`
}

type RefundRequest struct {
	Amount *decimal.Decimal `json:"amount"`
	Reason string           `json:"reason" validate:"max=255"`
}

type RefundResponse struct {
	RefundID string          `json:"refundId"`
	Status   string          `json:"status"`
	Amount   decimal.Decimal `json:"amount"`
}

type NotificationPreferenceRequest struct {
	Channel            string `json:"channel" validate:"required,oneof=email whatsapp none"`
	WhatsappTargetType string `json:"whatsappTargetType" validate:"omitempty,oneof=personal group"`
	WhatsappGroupID    string `json:"whatsappGroupId" validate:"required_if=WhatsappTargetType group,max=100"`
}

type NotificationPreferenceResponse struct {
	UserID             uint   `json:"userId"`
	Channel            string `json:"channel"`
	WhatsappTargetType string `json:"whatsappTargetType"`
	WhatsappGroupID    string `json:"whatsappGroupId,omitempty"`
}
