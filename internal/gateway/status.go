package gateway

import (
	"strings"

	"storefront_pay/internal/models"
)

var statusTables = map[models.PaymentGateway]map[string]models.TransactionStatus{
	models.PaymentGatewayMock: {
		"pending": models.TransactionStatusPending,
		"success": models.TransactionStatusSuccess,
		"failed":  models.TransactionStatusFailed,
	},
	models.PaymentGatewayRazorpay: {
		"created":    models.TransactionStatusPending,
		"authorized": models.TransactionStatusPending,
		"attempted":  models.TransactionStatusPending,
		"captured":   models.TransactionStatusSuccess,
		"paid":       models.TransactionStatusSuccess,
		"refunded":   models.TransactionStatusSuccess,
		"failed":     models.TransactionStatusFailed,
	},
	models.PaymentGatewayMidtrans: {
		"pending":    models.TransactionStatusPending,
		"authorize":  models.TransactionStatusPending,
		"settlement": models.TransactionStatusSuccess,
		"capture":    models.TransactionStatusSuccess,
		"deny":       models.TransactionStatusFailed,
		"cancel":     models.TransactionStatusFailed,
		"expire":     models.TransactionStatusFailed,
		"failure":    models.TransactionStatusFailed,
	},
}

// NormalizeStatus maps a provider status string onto the local lifecycle.
// Anything unrecognised stays PENDING so it is polled again.
func NormalizeStatus(provider models.PaymentGateway, raw string) models.TransactionStatus {
	raw = strings.ToLower(strings.TrimSpace(raw))

	// Midtrans reports "capture/challenge" for card payments held for review.
	if provider == models.PaymentGatewayMidtrans && raw == "capture/challenge" {
		return models.TransactionStatusPending
	}

	if status, ok := statusTables[provider][raw]; ok {
		return status
	}
	return models.TransactionStatusPending
}
