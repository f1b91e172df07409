package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"storefront_pay/internal/models"
)

// WebhookFields is what the payment core needs out of a provider notification.
type WebhookFields struct {
	PaymentID string
	RawStatus string
	OrderID   string
	Amount    decimal.Decimal
}

type mockWebhook struct {
	PaymentID string          `json:"payment_id"`
	Status    string          `json:"status"`
	OrderID   string          `json:"order_id"`
	Amount    decimal.Decimal `json:"amount"`
}

type razorpayWebhook struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID      string            `json:"id"`
				OrderID string            `json:"order_id"`
				Status  string            `json:"status"`
				Amount  int64             `json:"amount"`
				Notes   map[string]string `json:"notes"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

type midtransWebhook struct {
	OrderID           string `json:"order_id"`
	TransactionStatus string `json:"transaction_status"`
	FraudStatus       string `json:"fraud_status"`
	StatusCode        string `json:"status_code"`
	GrossAmount       string `json:"gross_amount"`
	SignatureKey      string `json:"signature_key"`
}

// ExtractWebhook pulls the correlation id and status out of a raw payload
// according to the provider's notification format.
func ExtractWebhook(provider models.PaymentGateway, payload []byte) (*WebhookFields, error) {
	switch provider {
	case models.PaymentGatewayMock:
		var body mockWebhook
		if err := json.Unmarshal(payload, &body); err != nil {
			return nil, fmt.Errorf("decode mock webhook: %w", err)
		}
		return finishFields(&WebhookFields{
			PaymentID: body.PaymentID,
			RawStatus: body.Status,
			OrderID:   body.OrderID,
			Amount:    body.Amount,
		})

	case models.PaymentGatewayRazorpay:
		var body razorpayWebhook
		if err := json.Unmarshal(payload, &body); err != nil {
			return nil, fmt.Errorf("decode razorpay webhook: %w", err)
		}
		entity := body.Payload.Payment.Entity
		orderRef, _ := lo.Coalesce(entity.Notes["order_id"], entity.Notes["receipt"])
		return finishFields(&WebhookFields{
			PaymentID: entity.OrderID,
			RawStatus: entity.Status,
			OrderID:   orderRef,
			Amount:    decimal.New(entity.Amount, -2),
		})

	case models.PaymentGatewayMidtrans:
		var body midtransWebhook
		if err := json.Unmarshal(payload, &body); err != nil {
			return nil, fmt.Errorf("decode midtrans webhook: %w", err)
		}
		amount, err := decimal.NewFromString(lo.Ternary(body.GrossAmount == "", "0", body.GrossAmount))
		if err != nil {
			return nil, fmt.Errorf("decode midtrans gross_amount: %w", err)
		}
		return finishFields(&WebhookFields{
			PaymentID: body.OrderID,
			RawStatus: midtransRawStatus(body.TransactionStatus, body.FraudStatus),
			OrderID:   body.OrderID,
			Amount:    amount,
		})
	}
	return nil, ErrUnknownProvider
}

func finishFields(f *WebhookFields) (*WebhookFields, error) {
	if f.PaymentID == "" {
		return nil, fmt.Errorf("webhook has no payment id")
	}
	if f.RawStatus == "" {
		return nil, fmt.Errorf("webhook has no status")
	}
	return f, nil
}

func midtransRawStatus(transactionStatus, fraudStatus string) string {
	if transactionStatus == "capture" && fraudStatus == "challenge" {
		return "capture/challenge"
	}
	return transactionStatus
}

// SignPayload returns the hex HMAC-SHA256 of payload under secret, the
// signature format used by the mock and Razorpay webhooks.
func SignPayload(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func verifyHMAC(payload []byte, signature, secret string) bool {
	if secret == "" || signature == "" {
		return false
	}
	expected := SignPayload(payload, secret)
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(strings.TrimSpace(signature))))
}

// MidtransSignature computes SHA512(order_id+status_code+gross_amount+server_key).
func MidtransSignature(orderID, statusCode, grossAmount, serverKey string) string {
	sum := sha512.Sum512([]byte(orderID + statusCode + grossAmount + serverKey))
	return hex.EncodeToString(sum[:])
}
