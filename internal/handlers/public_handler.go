package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"storefront_pay/internal/apperr"
	"storefront_pay/internal/models"
	"storefront_pay/internal/payments"
	"storefront_pay/web/templates/pages"
)

type PublicHandler struct {
	svc *payments.Service
	log *zap.Logger
}

func NewPublicHandler(svc *payments.Service, log *zap.Logger) *PublicHandler {
	return &PublicHandler{svc: svc, log: log}
}

// ShowCheckout renders the public checkout page for a transaction
func (h *PublicHandler) ShowCheckout(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	tx, err := h.svc.CheckPaymentStatus(ctx, id)
	if apperr.KindOf(err) == apperr.Gateway {
		// Show the stored state while the gateway is unreachable.
		h.log.Warn("status check failed, rendering stored state", zap.String("transaction_id", id), zap.Error(err))
		tx, err = h.svc.Transaction(ctx, id)
	}
	if err != nil {
		return err
	}

	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(http.StatusOK)
	return pages.CheckoutPage(checkoutProps(*tx)).Render(ctx, c.Response())
}

func checkoutProps(tx models.Transaction) pages.CheckoutPageProps {
	props := pages.CheckoutPageProps{
		Title:         "Complete your payment",
		TransactionID: tx.ID,
		OrderID:       tx.OrderID,
		Amount:        tx.Amount.StringFixed(2),
		Currency:      tx.Currency,
		Status:        string(tx.Status),
		QRCode:        tx.QRCode,
		DeepLink:      tx.DeepLink,
		ExpiresAt:     tx.ExpiresAt,
		StatusURL:     "/api/payments/" + tx.ID + "/status",
	}
	if tx.FailureReason != nil {
		props.FailureReason = *tx.FailureReason
	}
	return props
}
