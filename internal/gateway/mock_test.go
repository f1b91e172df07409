package gateway

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"storefront_pay/internal/models"
)

func TestMockAdapterInitiatePayment(t *testing.T) {
	m := NewMockAdapter(Config{PayeeVPA: "shop@okbank", PayeeName: "Shop", WebhookSecret: "whsec"}, 0)

	intent, err := m.InitiatePayment(context.Background(), PaymentRequest{
		Amount:    decimal.NewFromInt(500),
		Currency:  "INR",
		VPA:       "user@bank",
		OrderID:   "O1",
		Reference: "tx-1",
	})
	if err != nil {
		t.Fatalf("InitiatePayment returned error: %v", err)
	}
	if !strings.HasPrefix(intent.PaymentID, "mock_pay_") {
		t.Errorf("PaymentID = %q; want mock_pay_ prefix", intent.PaymentID)
	}
	want := "upi://pay?pa=shop%40okbank&pn=Shop&tr=tx-1&am=500.00&cu=INR"
	if intent.DeepLink != want {
		t.Errorf("DeepLink = %q; want %q", intent.DeepLink, want)
	}

	other, _ := m.InitiatePayment(context.Background(), PaymentRequest{Amount: decimal.NewFromInt(1), Currency: "INR"})
	if other.PaymentID == intent.PaymentID {
		t.Errorf("payment ids are not unique")
	}
}

func TestMockAdapterValidateWebhook(t *testing.T) {
	m := NewMockAdapter(Config{WebhookSecret: "whsec"}, 0)
	payload := []byte(`{"payment_id":"mock_pay_1","status":"success"}`)
	sig := SignPayload(payload, "whsec")

	tests := []struct {
		name      string
		payload   []byte
		signature string
		expected  bool
	}{
		{name: "valid signature", payload: payload, signature: sig, expected: true},
		{name: "uppercase hex accepted", payload: payload, signature: strings.ToUpper(sig), expected: true},
		{name: "tampered payload", payload: []byte(`{"payment_id":"mock_pay_1","status":"failed"}`), signature: sig, expected: false},
		{name: "wrong secret", payload: payload, signature: SignPayload(payload, "other"), expected: false},
		{name: "missing signature", payload: payload, signature: "", expected: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := m.ValidateWebhook(tt.payload, tt.signature); got != tt.expected {
				t.Errorf("ValidateWebhook = %v; want %v", got, tt.expected)
			}
		})
	}
}

func TestMockAdapterWithoutSecretRejectsEverything(t *testing.T) {
	m := NewMockAdapter(Config{}, 0)
	payload := []byte(`{}`)
	if m.ValidateWebhook(payload, SignPayload(payload, "")) {
		t.Errorf("webhook accepted without a configured secret")
	}
}

func TestMockAdapterTerminalStatusSticks(t *testing.T) {
	m := NewMockAdapter(Config{}, 0)
	m.Seed(42)
	intent, err := m.InitiatePayment(context.Background(), PaymentRequest{Amount: decimal.NewFromInt(10), Currency: "INR"})
	if err != nil {
		t.Fatalf("InitiatePayment returned error: %v", err)
	}

	var terminal string
	for i := 0; i < 200; i++ {
		report, err := m.CheckPaymentStatus(context.Background(), intent.PaymentID)
		if err != nil {
			t.Fatalf("CheckPaymentStatus returned error: %v", err)
		}
		status := NormalizeStatus(models.PaymentGatewayMock, report.RawStatus)
		if terminal != "" && report.RawStatus != terminal {
			t.Fatalf("status changed from %q to %q", terminal, report.RawStatus)
		}
		if status.IsTerminal() {
			terminal = report.RawStatus
		}
	}
	if terminal == "" {
		t.Errorf("no terminal status after 200 checks")
	}
}

func TestMockAdapterHonoursContext(t *testing.T) {
	m := NewMockAdapter(Config{}, time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := m.InitiatePayment(ctx, PaymentRequest{Amount: decimal.NewFromInt(1)})
	if err == nil {
		t.Fatal("expected a timeout error")
	}
	if _, ok := err.(*Error); !ok {
		t.Errorf("error type = %T; want *gateway.Error", err)
	}
}

func TestMockAdapterRefund(t *testing.T) {
	m := NewMockAdapter(Config{}, 0)
	a, err := m.InitiateRefund(context.Background(), RefundRequest{PaymentID: "mock_pay_1", Amount: decimal.NewFromInt(200)})
	if err != nil {
		t.Fatalf("InitiateRefund returned error: %v", err)
	}
	b, _ := m.InitiateRefund(context.Background(), RefundRequest{PaymentID: "mock_pay_1", Amount: decimal.NewFromInt(200)})
	if !strings.HasPrefix(a.RefundID, "mock_rfnd_") || a.RefundID == b.RefundID {
		t.Errorf("refund ids %q, %q; want distinct mock_rfnd_ ids", a.RefundID, b.RefundID)
	}
}
