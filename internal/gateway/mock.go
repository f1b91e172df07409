package gateway

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"storefront_pay/internal/models"
)

// MockAdapter simulates a UPI provider for development and tests. Statuses
// are drawn at random on each check until a terminal one sticks.
type MockAdapter struct {
	cfg     Config
	latency time.Duration

	mu       sync.Mutex
	rng      *rand.Rand
	payments map[string]string
}

func NewMockAdapter(cfg Config, latency time.Duration) *MockAdapter {
	cfg.Provider = models.PaymentGatewayMock
	if cfg.PayeeVPA == "" {
		cfg.PayeeVPA = "merchant@mockbank"
	}
	if cfg.PayeeName == "" {
		cfg.PayeeName = "Mock Merchant"
	}
	return &MockAdapter{
		cfg:      cfg,
		latency:  latency,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		payments: make(map[string]string),
	}
}

// Seed makes the status sequence deterministic.
func (m *MockAdapter) Seed(seed int64) {
	m.mu.Lock()
	m.rng = rand.New(rand.NewSource(seed))
	m.mu.Unlock()
}

func (m *MockAdapter) Name() models.PaymentGateway {
	return models.PaymentGatewayMock
}

func (m *MockAdapter) wait(ctx context.Context) error {
	if m.latency <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(m.latency):
		return nil
	}
}

func mockID(prefix string) string {
	return prefix + strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}

func (m *MockAdapter) InitiatePayment(ctx context.Context, req PaymentRequest) (*PaymentIntent, error) {
	ctx, cancel := context.WithTimeout(ctx, m.cfg.timeout())
	defer cancel()
	if err := m.wait(ctx); err != nil {
		return nil, wrapErr(m.Name(), "initiate_payment", err)
	}

	paymentID := mockID("mock_pay_")
	link := upiLink(m.cfg.PayeeVPA, m.cfg.PayeeName, req.Reference, req.Amount, req.Currency)

	m.mu.Lock()
	m.payments[paymentID] = "pending"
	m.mu.Unlock()

	return &PaymentIntent{
		PaymentID: paymentID,
		QRCode:    link,
		DeepLink:  link,
		Raw: marshalRaw(map[string]interface{}{
			"payment_id":  paymentID,
			"merchant_id": m.cfg.MerchantID,
			"order_id":    req.OrderID,
			"amount":      req.Amount.StringFixed(2),
			"status":      "pending",
		}),
	}, nil
}

func (m *MockAdapter) CheckPaymentStatus(ctx context.Context, paymentID string) (*StatusReport, error) {
	ctx, cancel := context.WithTimeout(ctx, m.cfg.timeout())
	defer cancel()
	if err := m.wait(ctx); err != nil {
		return nil, wrapErr(m.Name(), "check_status", err)
	}

	m.mu.Lock()
	status, known := m.payments[paymentID]
	if !known || status == "pending" {
		status = m.drawStatus()
		if known {
			m.payments[paymentID] = status
		}
	}
	m.mu.Unlock()

	return &StatusReport{
		RawStatus: status,
		Raw:       marshalRaw(map[string]string{"payment_id": paymentID, "status": status}),
	}, nil
}

// drawStatus must be called with mu held.
func (m *MockAdapter) drawStatus() string {
	switch n := m.rng.Intn(10); {
	case n < 6:
		return "pending"
	case n < 9:
		return "success"
	default:
		return "failed"
	}
}

func (m *MockAdapter) ValidateWebhook(payload []byte, signature string) bool {
	return verifyHMAC(payload, signature, m.cfg.WebhookSecret)
}

func (m *MockAdapter) InitiateRefund(ctx context.Context, req RefundRequest) (*RefundReport, error) {
	ctx, cancel := context.WithTimeout(ctx, m.cfg.timeout())
	defer cancel()
	if err := m.wait(ctx); err != nil {
		return nil, wrapErr(m.Name(), "initiate_refund", err)
	}

	refundID := mockID("mock_rfnd_")
	return &RefundReport{
		RefundID: refundID,
		Status:   "processed",
		Raw: marshalRaw(map[string]string{
			"refund_id":  refundID,
			"payment_id": req.PaymentID,
			"amount":     req.Amount.StringFixed(2),
			"status":     "processed",
		}),
	}, nil
}
