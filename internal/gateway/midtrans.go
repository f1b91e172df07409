package gateway

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"time"

	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/coreapi"

	"storefront_pay/internal/models"
)

type midtransAPI interface {
	ChargeTransaction(req *coreapi.ChargeReq) (*coreapi.ChargeResponse, *midtrans.Error)
	CheckTransaction(orderID string) (*coreapi.TransactionStatusResponse, *midtrans.Error)
	RefundTransaction(orderID string, req *coreapi.RefundReq) (*coreapi.RefundResponse, *midtrans.Error)
}

// MidtransAdapter charges through Midtrans Core API as a QRIS payment.
// APISecret holds the server key, APIKey the client key.
type MidtransAdapter struct {
	cfg Config
	api midtransAPI
}

func NewMidtransAdapter(cfg Config) (*MidtransAdapter, error) {
	if cfg.APISecret == "" {
		return nil, &Error{Provider: models.PaymentGatewayMidtrans, Op: "new", Err: ErrMissingCredentials}
	}

	env := midtrans.Production
	if cfg.TestMode {
		env = midtrans.Sandbox
	}

	var c coreapi.Client
	c.New(cfg.APISecret, env)
	return newMidtransAdapter(cfg, &c), nil
}

func newMidtransAdapter(cfg Config, api midtransAPI) *MidtransAdapter {
	cfg.Provider = models.PaymentGatewayMidtrans
	return &MidtransAdapter{cfg: cfg, api: api}
}

func (m *MidtransAdapter) Name() models.PaymentGateway {
	return models.PaymentGatewayMidtrans
}

// sdkErr avoids returning a typed nil *midtrans.Error as a non-nil error.
func sdkErr(err *midtrans.Error) error {
	if err == nil {
		return nil
	}
	return err
}

func (m *MidtransAdapter) InitiatePayment(ctx context.Context, req PaymentRequest) (*PaymentIntent, error) {
	ctx, cancel := context.WithTimeout(ctx, m.cfg.timeout())
	defer cancel()

	charge := &coreapi.ChargeReq{
		PaymentType: coreapi.PaymentTypeQris,
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  req.Reference,
			GrossAmt: req.Amount.Round(0).IntPart(),
		},
	}

	var expiresAt time.Time
	if req.ExpiresIn > 0 {
		minutes := int(req.ExpiresIn / time.Minute)
		if minutes < 1 {
			minutes = 1
		}
		now := time.Now()
		charge.CustomExpiry = &coreapi.CustomExpiry{
			OrderTime:      now.Format("2006-01-02 15:04:05 -0700"),
			ExpiryDuration: minutes,
			Unit:           "minute",
		}
		expiresAt = now.Add(time.Duration(minutes) * time.Minute)
	}

	resp, err := callWithContext(ctx, func() (*coreapi.ChargeResponse, error) {
		r, merr := m.api.ChargeTransaction(charge)
		return r, sdkErr(merr)
	})
	if err != nil {
		return nil, wrapErr(m.Name(), "initiate_payment", err)
	}

	deepLink := resp.QRString
	for _, action := range resp.Actions {
		if action.Name == "deeplink-redirect" || (deepLink == "" && action.Name == "generate-qr-code") {
			deepLink = action.URL
		}
	}

	return &PaymentIntent{
		// Midtrans notifications and status checks are keyed by order_id.
		PaymentID: req.Reference,
		QRCode:    resp.QRString,
		DeepLink:  deepLink,
		ExpiresAt: expiresAt,
		Raw:       marshalRaw(resp),
	}, nil
}

func (m *MidtransAdapter) CheckPaymentStatus(ctx context.Context, paymentID string) (*StatusReport, error) {
	ctx, cancel := context.WithTimeout(ctx, m.cfg.timeout())
	defer cancel()

	resp, err := retryRead(ctx, m.cfg.MaxRetries, func(ctx context.Context) (*coreapi.TransactionStatusResponse, error) {
		return callWithContext(ctx, func() (*coreapi.TransactionStatusResponse, error) {
			r, merr := m.api.CheckTransaction(paymentID)
			return r, sdkErr(merr)
		})
	})
	if err != nil {
		return nil, wrapErr(m.Name(), "check_status", err)
	}

	return &StatusReport{
		RawStatus: midtransRawStatus(resp.TransactionStatus, resp.FraudStatus),
		Raw:       marshalRaw(resp),
	}, nil
}

// ValidateWebhook checks the signature_key carried in the notification body.
// A header signature, when given, must match it as well.
func (m *MidtransAdapter) ValidateWebhook(payload []byte, signature string) bool {
	var body midtransWebhook
	if err := json.Unmarshal(payload, &body); err != nil {
		return false
	}
	provided := body.SignatureKey
	if provided == "" {
		provided = signature
	}
	if provided == "" {
		return false
	}
	if signature != "" && subtle.ConstantTimeCompare([]byte(signature), []byte(provided)) != 1 {
		return false
	}
	expected := MidtransSignature(body.OrderID, body.StatusCode, body.GrossAmount, m.cfg.APISecret)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(provided)) == 1
}

func (m *MidtransAdapter) InitiateRefund(ctx context.Context, req RefundRequest) (*RefundReport, error) {
	ctx, cancel := context.WithTimeout(ctx, m.cfg.timeout())
	defer cancel()

	refundKey := fmt.Sprintf("%s-refund-%d", req.PaymentID, time.Now().UnixNano())
	refundReq := &coreapi.RefundReq{
		RefundKey: refundKey,
		Amount:    req.Amount.Round(0).IntPart(),
		Reason:    req.Reason,
	}

	resp, err := callWithContext(ctx, func() (*coreapi.RefundResponse, error) {
		r, merr := m.api.RefundTransaction(req.PaymentID, refundReq)
		return r, sdkErr(merr)
	})
	if err != nil {
		return nil, wrapErr(m.Name(), "initiate_refund", err)
	}

	status := "pending"
	if resp.StatusCode == "200" {
		status = "processed"
	}
	return &RefundReport{RefundID: refundKey, Status: status, Raw: marshalRaw(resp)}, nil
}
