// Package gateway hides payment providers behind a single Adapter contract.
package gateway

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"storefront_pay/internal/models"
)

// Adapter is the contract every payment provider implements. Implementations
// are safe for concurrent use once constructed.
type Adapter interface {
	Name() models.PaymentGateway
	InitiatePayment(ctx context.Context, req PaymentRequest) (*PaymentIntent, error)
	CheckPaymentStatus(ctx context.Context, paymentID string) (*StatusReport, error)
	ValidateWebhook(payload []byte, signature string) bool
	InitiateRefund(ctx context.Context, req RefundRequest) (*RefundReport, error)
}

type PaymentRequest struct {
	Amount   decimal.Decimal
	Currency string
	VPA      string
	OrderID  string
	// Reference is the local transaction id, sent to the provider as receipt.
	Reference string
	// ExpiresIn is the payment window the caller will enforce.
	ExpiresIn time.Duration
}

type PaymentIntent struct {
	PaymentID string
	QRCode    string
	DeepLink  string
	// ExpiresAt is zero when the provider does not impose a deadline.
	ExpiresAt time.Time
	Raw       json.RawMessage
}

type StatusReport struct {
	RawStatus string
	Raw       json.RawMessage
}

type RefundRequest struct {
	PaymentID string
	Amount    decimal.Decimal
	Currency  string
	Reason    string
}

type RefundReport struct {
	RefundID string
	Status   string
	Raw      json.RawMessage
}

// Config carries decrypted credentials and call limits for one provider.
type Config struct {
	Provider      models.PaymentGateway
	APIKey        string
	APISecret     string
	MerchantID    string
	WebhookSecret string
	PayeeVPA      string
	PayeeName     string
	BaseURL       string
	TestMode      bool
	Timeout       time.Duration
	MaxRetries    int
}

func (c Config) timeout() time.Duration {
	if c.Timeout <= 0 {
		return 30 * time.Second
	}
	return c.Timeout
}

// New builds the adapter named by cfg.Provider.
func New(cfg Config) (Adapter, error) {
	switch cfg.Provider {
	case models.PaymentGatewayMock:
		return NewMockAdapter(cfg, 0), nil
	case models.PaymentGatewayRazorpay:
		return NewRazorpayAdapter(cfg)
	case models.PaymentGatewayMidtrans:
		return NewMidtransAdapter(cfg)
	default:
		return nil, &Error{Provider: cfg.Provider, Op: "new", Err: ErrUnknownProvider}
	}
}

func marshalRaw(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return data
}
