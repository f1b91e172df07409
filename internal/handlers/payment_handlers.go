package handlers

import (
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"storefront_pay/internal/apperr"
	"storefront_pay/internal/models"
	"storefront_pay/internal/payments"
)

const maxWebhookBytes = 1 << 20

// webhookSignatureHeaders are checked in order; providers send only one.
var webhookSignatureHeaders = []string{
	"X-Razorpay-Signature",
	"X-Mock-Signature",
	"X-Webhook-Signature",
}

type PaymentHandler struct {
	svc    *payments.Service
	log    *zap.Logger
	appURL string
}

func NewPaymentHandler(svc *payments.Service, log *zap.Logger, appURL string) *PaymentHandler {
	return &PaymentHandler{svc: svc, log: log, appURL: strings.TrimRight(appURL, "/")}
}

// InitiatePayment handles POST /api/payments/initiate
func (h *PaymentHandler) InitiatePayment(c echo.Context) error {
	var req InitiatePaymentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	res, err := h.svc.InitiatePayment(c.Request().Context(), payments.InitiateInput{
		OrderID:  req.OrderID,
		UserID:   req.UserID,
		VPA:      req.VPA,
		Amount:   req.Amount,
		Currency: req.Currency,
	})
	if err != nil {
		return err
	}

	resp := InitiatePaymentResponse{
		TransactionID: res.TransactionID,
		PaymentID:     res.PaymentID,
		QRCode:        res.QRCode,
		DeepLink:      res.DeepLink,
		ExpiresAt:     res.ExpiresAt,
	}
	if h.appURL != "" {
		resp.CheckoutURL = h.appURL + "/p/" + res.TransactionID
	}
	return c.JSON(http.StatusCreated, resp)
}

// CheckStatus handles GET /api/payments/:id/status
func (h *PaymentHandler) CheckStatus(c echo.Context) error {
	tx, err := h.svc.CheckPaymentStatus(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, statusResponse(*tx))
}

func statusResponse(tx models.Transaction) PaymentStatusResponse {
	resp := PaymentStatusResponse{
		TransactionID: tx.ID,
		OrderID:       tx.OrderID,
		Status:        string(tx.Status),
		Amount:        tx.Amount,
		Currency:      tx.Currency,
		VPA:           tx.VPA,
		FailureReason: tx.FailureReason,
		ExpiresAt:     tx.ExpiresAt,
	}
	if len(tx.WebhookData) > 0 {
		resp.GatewayData = []byte(tx.WebhookData)
	}
	return resp
}

// Webhook handles POST /api/payments/webhook/:provider
func (h *PaymentHandler) Webhook(c echo.Context) error {
	provider := models.PaymentGateway(strings.ToLower(c.Param("provider")))

	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBytes))
	if err != nil {
		return apperr.ValidationErr("Unreadable webhook body", nil)
	}

	var signature string
	for _, header := range webhookSignatureHeaders {
		if signature = c.Request().Header.Get(header); signature != "" {
			break
		}
	}

	res, err := h.svc.HandleWebhook(c.Request().Context(), provider, body, signature)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, WebhookResponse{Processed: res.Processed})
}

// Refund handles POST /api/payments/:id/refund
func (h *PaymentHandler) Refund(c echo.Context) error {
	var req RefundRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	res, err := h.svc.InitiateRefund(c.Request().Context(), payments.RefundInput{
		TransactionID: c.Param("id"),
		Amount:        req.Amount,
		Reason:        req.Reason,
	})
	if err != nil {
		return err
	}

	h.log.Info("refund initiated",
		zap.String("transaction_id", c.Param("id")),
		zap.String("refund_id", res.RefundID),
		zap.String("amount", res.Amount.StringFixed(2)),
		zap.Any("operator", c.Get("userUID")),
	)
	return c.JSON(http.StatusOK, RefundResponse{RefundID: res.RefundID, Status: res.Status, Amount: res.Amount})
}
