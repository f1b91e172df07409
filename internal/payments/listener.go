package payments

import (
	"context"

	"go.uber.org/zap"

	"storefront_pay/internal/models"
)

// Listener is told about committed payment events. Errors are logged by the
// service and never undo the state change.
type Listener interface {
	PaymentSucceeded(ctx context.Context, tx models.Transaction) error
	PaymentFailed(ctx context.Context, tx models.Transaction) error
	RefundInitiated(ctx context.Context, tx models.Transaction, refund models.Refund) error
}

func (s *Service) notify(ctx context.Context, event string, fn func(Listener) error) {
	for _, l := range s.listeners {
		if err := fn(l); err != nil {
			s.logger.Error("payment listener failed",
				zap.String("event", event),
				zap.Error(err),
			)
		}
	}
}

func (s *Service) notifyTransition(ctx context.Context, tx models.Transaction) {
	switch tx.Status {
	case models.TransactionStatusSuccess:
		s.notify(ctx, "payment.succeeded", func(l Listener) error { return l.PaymentSucceeded(ctx, tx) })
	case models.TransactionStatusFailed:
		s.notify(ctx, "payment.failed", func(l Listener) error { return l.PaymentFailed(ctx, tx) })
	}
}
