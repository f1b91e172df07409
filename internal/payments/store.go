package payments

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"storefront_pay/internal/models"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

// Store is the persistence the payment service needs. Status changes go
// through TransitionStatus, which only ever moves a PENDING row.
type Store interface {
	OrderByID(ctx context.Context, id string) (*models.Order, error)
	MarkOrderPaid(ctx context.Context, orderID string, at time.Time) error

	PendingByOrder(ctx context.Context, orderID string) (*models.Transaction, error)
	SuccessByOrder(ctx context.Context, orderID string) (*models.Transaction, error)
	CreateTransaction(ctx context.Context, tx *models.Transaction) error
	TransactionByID(ctx context.Context, id string) (*models.Transaction, error)
	TransactionByGatewayID(ctx context.Context, gatewayID string) (*models.Transaction, error)
	// TransitionStatus reports whether the row was still PENDING and got updated.
	TransitionStatus(ctx context.Context, id string, to models.TransactionStatus, failureReason *string, raw []byte) (bool, error)
	RecordGatewayData(ctx context.Context, id string, raw []byte) error
	ListPending(ctx context.Context, expiredBefore *time.Time, limit int) ([]models.Transaction, error)

	CreateRefund(ctx context.Context, refund *models.Refund) error
	RefundedAmount(ctx context.Context, transactionID string) (decimal.Decimal, error)

	RecordWebhookEvent(ctx context.Context, event *models.WebhookEvent) error
}

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "duplicate key value")
}

func (s *GormStore) OrderByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&order).Error; err != nil {
		return nil, notFound(err)
	}
	return &order, nil
}

// MarkOrderPaid completes the order once; later calls leave paid_at alone.
func (s *GormStore) MarkOrderPaid(ctx context.Context, orderID string, at time.Time) error {
	return s.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status <> ?", orderID, models.OrderStatusCompleted).
		Updates(map[string]interface{}{
			"status":  models.OrderStatusCompleted,
			"paid_at": at,
		}).Error
}

// PendingByOrder returns nil when the order has no PENDING attempt.
func (s *GormStore) PendingByOrder(ctx context.Context, orderID string) (*models.Transaction, error) {
	return s.latestByOrder(ctx, orderID, models.TransactionStatusPending)
}

// SuccessByOrder returns nil when no attempt for the order has succeeded.
func (s *GormStore) SuccessByOrder(ctx context.Context, orderID string) (*models.Transaction, error) {
	return s.latestByOrder(ctx, orderID, models.TransactionStatusSuccess)
}

func (s *GormStore) latestByOrder(ctx context.Context, orderID string, status models.TransactionStatus) (*models.Transaction, error) {
	var tx models.Transaction
	err := s.db.WithContext(ctx).
		Where("order_id = ? AND status = ?", orderID, status).
		Order("created_at desc").
		First(&tx).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

func (s *GormStore) CreateTransaction(ctx context.Context, tx *models.Transaction) error {
	if err := s.db.WithContext(ctx).Create(tx).Error; err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

func (s *GormStore) TransactionByID(ctx context.Context, id string) (*models.Transaction, error) {
	var tx models.Transaction
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&tx).Error; err != nil {
		return nil, notFound(err)
	}
	return &tx, nil
}

func (s *GormStore) TransactionByGatewayID(ctx context.Context, gatewayID string) (*models.Transaction, error) {
	var tx models.Transaction
	if err := s.db.WithContext(ctx).Where("gateway_transaction_id = ?", gatewayID).First(&tx).Error; err != nil {
		return nil, notFound(err)
	}
	return &tx, nil
}

func (s *GormStore) TransitionStatus(ctx context.Context, id string, to models.TransactionStatus, failureReason *string, raw []byte) (bool, error) {
	updates := map[string]interface{}{
		"status":         to,
		"failure_reason": failureReason,
	}
	if len(raw) > 0 {
		updates["webhook_data"] = datatypes.JSON(raw)
	}

	res := s.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("id = ? AND status = ?", id, models.TransactionStatusPending).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// RecordGatewayData keeps the latest provider payload on a row that is
// still PENDING. Terminal rows are left untouched.
func (s *GormStore) RecordGatewayData(ctx context.Context, id string, raw []byte) error {
	if len(raw) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("id = ? AND status = ?", id, models.TransactionStatusPending).
		Update("webhook_data", datatypes.JSON(raw)).Error
}

func (s *GormStore) ListPending(ctx context.Context, expiredBefore *time.Time, limit int) ([]models.Transaction, error) {
	q := s.db.WithContext(ctx).Where("status = ?", models.TransactionStatusPending)
	if expiredBefore != nil {
		q = q.Where("expires_at < ?", *expiredBefore)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}

	var txs []models.Transaction
	if err := q.Order("created_at asc").Find(&txs).Error; err != nil {
		return nil, err
	}
	return txs, nil
}

func (s *GormStore) CreateRefund(ctx context.Context, refund *models.Refund) error {
	return s.db.WithContext(ctx).Omit("Transaction").Create(refund).Error
}

func (s *GormStore) RefundedAmount(ctx context.Context, transactionID string) (decimal.Decimal, error) {
	var refunds []models.Refund
	if err := s.db.WithContext(ctx).Where("transaction_id = ?", transactionID).Find(&refunds).Error; err != nil {
		return decimal.Zero, err
	}
	return lo.Reduce(refunds, func(total decimal.Decimal, r models.Refund, _ int) decimal.Decimal {
		return total.Add(r.Amount)
	}, decimal.Zero), nil
}

func (s *GormStore) RecordWebhookEvent(ctx context.Context, event *models.WebhookEvent) error {
	return s.db.WithContext(ctx).Create(event).Error
}
