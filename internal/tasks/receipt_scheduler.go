package tasks

import (
	"context"
	"time"

	"gorm.io/gorm"

	"storefront_pay/internal/models"
)

// ReceiptScheduler queues receipt notifications for the worker when a payment
// succeeds or a refund is initiated. Failed payments get no receipt.
type ReceiptScheduler struct {
	db  *gorm.DB
	def *SendReceiptTaskDef
	now func() time.Time
}

func NewReceiptScheduler(db *gorm.DB) *ReceiptScheduler {
	return &ReceiptScheduler{db: db, def: &SendReceiptTaskDef{}, now: time.Now}
}

func (s *ReceiptScheduler) schedule(ctx context.Context, args SendReceiptArgs) error {
	task, err := s.def.CreateTask(args, s.now())
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Create(task).Error
}

func (s *ReceiptScheduler) PaymentSucceeded(ctx context.Context, tx models.Transaction) error {
	return s.schedule(ctx, SendReceiptArgs{TransactionID: tx.ID, Event: ReceiptEventPaid})
}

func (s *ReceiptScheduler) PaymentFailed(ctx context.Context, tx models.Transaction) error {
	return nil
}

func (s *ReceiptScheduler) RefundInitiated(ctx context.Context, tx models.Transaction, refund models.Refund) error {
	return s.schedule(ctx, SendReceiptArgs{
		TransactionID: tx.ID,
		Event:         ReceiptEventRefunded,
		RefundID:      refund.GatewayRefundID,
		RefundAmount:  refund.Amount.StringFixed(2),
	})
}
