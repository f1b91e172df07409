package gateway

import (
	"context"
	"fmt"

	"github.com/razorpay/razorpay-go"
	"github.com/shopspring/decimal"

	"storefront_pay/internal/models"
)

// razorpayAPI is the slice of the Razorpay SDK the adapter uses.
type razorpayAPI interface {
	CreateOrder(data map[string]interface{}) (map[string]interface{}, error)
	OrderPayments(orderID string) (map[string]interface{}, error)
	RefundPayment(paymentID string, amount int, data map[string]interface{}) (map[string]interface{}, error)
}

type razorpaySDK struct {
	client *razorpay.Client
}

func (s razorpaySDK) CreateOrder(data map[string]interface{}) (map[string]interface{}, error) {
	return s.client.Order.Create(data, nil)
}

func (s razorpaySDK) OrderPayments(orderID string) (map[string]interface{}, error) {
	return s.client.Order.Payments(orderID, nil, nil)
}

func (s razorpaySDK) RefundPayment(paymentID string, amount int, data map[string]interface{}) (map[string]interface{}, error) {
	return s.client.Payment.Refund(paymentID, amount, data, nil)
}

// RazorpayAdapter collects UPI payments against a Razorpay order. The
// order id is the payment id the rest of the system correlates on.
type RazorpayAdapter struct {
	cfg Config
	api razorpayAPI
}

func NewRazorpayAdapter(cfg Config) (*RazorpayAdapter, error) {
	if cfg.APIKey == "" || cfg.APISecret == "" || cfg.WebhookSecret == "" {
		return nil, &Error{Provider: models.PaymentGatewayRazorpay, Op: "new", Err: ErrMissingCredentials}
	}
	if cfg.PayeeVPA == "" {
		return nil, &Error{Provider: models.PaymentGatewayRazorpay, Op: "new", Err: fmt.Errorf("payee vpa is required")}
	}
	return newRazorpayAdapter(cfg, razorpaySDK{client: razorpay.NewClient(cfg.APIKey, cfg.APISecret)}), nil
}

func newRazorpayAdapter(cfg Config, api razorpayAPI) *RazorpayAdapter {
	cfg.Provider = models.PaymentGatewayRazorpay
	return &RazorpayAdapter{cfg: cfg, api: api}
}

func (r *RazorpayAdapter) Name() models.PaymentGateway {
	return models.PaymentGatewayRazorpay
}

func toPaise(amount decimal.Decimal) int {
	return int(amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart())
}

func (r *RazorpayAdapter) InitiatePayment(ctx context.Context, req PaymentRequest) (*PaymentIntent, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.timeout())
	defer cancel()

	data := map[string]interface{}{
		"amount":          toPaise(req.Amount),
		"currency":        req.Currency,
		"receipt":         req.Reference,
		"payment_capture": 1,
		"notes": map[string]interface{}{
			"order_id": req.OrderID,
			"vpa":      req.VPA,
		},
	}
	order, err := callWithContext(ctx, func() (map[string]interface{}, error) {
		return r.api.CreateOrder(data)
	})
	if err != nil {
		return nil, wrapErr(r.Name(), "initiate_payment", err)
	}

	orderID, _ := order["id"].(string)
	if orderID == "" {
		return nil, wrapErr(r.Name(), "initiate_payment", fmt.Errorf("order response has no id"))
	}

	link := upiLink(r.cfg.PayeeVPA, r.cfg.PayeeName, orderID, req.Amount, req.Currency)
	return &PaymentIntent{
		PaymentID: orderID,
		QRCode:    link,
		DeepLink:  link,
		Raw:       marshalRaw(order),
	}, nil
}

// orderPayment summarises the payments attempted against an order: a
// captured payment wins, otherwise the most recent attempt.
func orderPayment(resp map[string]interface{}) (id, status string) {
	items, _ := resp["items"].([]interface{})
	for _, item := range items {
		p, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		pid, _ := p["id"].(string)
		pstatus, _ := p["status"].(string)
		if pstatus == "captured" || pstatus == "refunded" {
			return pid, pstatus
		}
		if id == "" {
			id, status = pid, pstatus
		}
	}
	return id, status
}

func (r *RazorpayAdapter) CheckPaymentStatus(ctx context.Context, paymentID string) (*StatusReport, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.timeout())
	defer cancel()

	resp, err := retryRead(ctx, r.cfg.MaxRetries, func(ctx context.Context) (map[string]interface{}, error) {
		return callWithContext(ctx, func() (map[string]interface{}, error) {
			return r.api.OrderPayments(paymentID)
		})
	})
	if err != nil {
		return nil, wrapErr(r.Name(), "check_status", err)
	}

	_, status := orderPayment(resp)
	if status == "" {
		status = "created"
	}
	return &StatusReport{RawStatus: status, Raw: marshalRaw(resp)}, nil
}

func (r *RazorpayAdapter) ValidateWebhook(payload []byte, signature string) bool {
	return verifyHMAC(payload, signature, r.cfg.WebhookSecret)
}

func (r *RazorpayAdapter) InitiateRefund(ctx context.Context, req RefundRequest) (*RefundReport, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.timeout())
	defer cancel()

	payments, err := callWithContext(ctx, func() (map[string]interface{}, error) {
		return r.api.OrderPayments(req.PaymentID)
	})
	if err != nil {
		return nil, wrapErr(r.Name(), "initiate_refund", err)
	}
	payID, status := orderPayment(payments)
	if payID == "" || (status != "captured" && status != "refunded") {
		return nil, wrapErr(r.Name(), "initiate_refund", ErrNoPayment)
	}

	data := map[string]interface{}{
		"notes": map[string]interface{}{"reason": req.Reason},
	}
	refund, err := callWithContext(ctx, func() (map[string]interface{}, error) {
		return r.api.RefundPayment(payID, toPaise(req.Amount), data)
	})
	if err != nil {
		return nil, wrapErr(r.Name(), "initiate_refund", err)
	}

	refundID, _ := refund["id"].(string)
	refundStatus, _ := refund["status"].(string)
	return &RefundReport{RefundID: refundID, Status: refundStatus, Raw: marshalRaw(refund)}, nil
}
