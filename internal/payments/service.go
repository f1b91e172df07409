// Package payments orchestrates the UPI payment lifecycle over a gateway
// adapter and the transaction store.
package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"storefront_pay/internal/apperr"
	"storefront_pay/internal/gateway"
	"storefront_pay/internal/models"
)

const (
	DefaultPaymentWindow = 15 * time.Minute
	FailureReasonExpired = "expired"

	lockTTL     = 30 * time.Second
	lockTimeout = 5 * time.Second
)

type Config struct {
	Window    time.Duration
	Locker    Locker
	Listeners []Listener
	Logger    *zap.Logger
	Now       func() time.Time
}

type Service struct {
	store     Store
	adapter   gateway.Adapter
	locker    Locker
	listeners []Listener
	logger    *zap.Logger
	now       func() time.Time
	window    time.Duration
}

func NewService(store Store, adapter gateway.Adapter, cfg Config) *Service {
	s := &Service{
		store:     store,
		adapter:   adapter,
		locker:    cfg.Locker,
		listeners: cfg.Listeners,
		logger:    cfg.Logger,
		now:       cfg.Now,
		window:    cfg.Window,
	}
	if s.locker == nil {
		s.locker = NewLocalLocker()
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.window <= 0 {
		s.window = DefaultPaymentWindow
	}
	return s
}

// AddListener registers l for events committed after this call.
func (s *Service) AddListener(l Listener) {
	s.listeners = append(s.listeners, l)
}

// Gateway names the provider this service talks to.
func (s *Service) Gateway() models.PaymentGateway {
	return s.adapter.Name()
}

type InitiateInput struct {
	OrderID  string
	UserID   *uint
	VPA      string
	Amount   decimal.Decimal
	Currency string
}

type InitiateResult struct {
	TransactionID string
	PaymentID     string
	QRCode        string
	DeepLink      string
	ExpiresAt     time.Time
}

func validateInitiate(in InitiateInput) map[string]string {
	fields := map[string]string{}
	if strings.TrimSpace(in.OrderID) == "" {
		fields["orderId"] = "is required"
	}
	if !ValidateVPA(in.VPA) {
		fields["vpa"] = "must look like name@bank and be 3 to 50 characters"
	}
	if !in.Amount.IsPositive() {
		fields["amount"] = "must be greater than zero"
	}
	if len(in.Currency) != 3 {
		fields["currency"] = "must be a 3 letter ISO code"
	}
	return fields
}

func (s *Service) lock(ctx context.Context, key string) (func(), error) {
	lockCtx, cancel := context.WithTimeout(ctx, lockTimeout)
	defer cancel()

	release, err := s.locker.Lock(lockCtx, key, lockTTL)
	if errors.Is(err, ErrLockBusy) {
		return nil, apperr.ConflictErr("Another request for this payment is in progress")
	}
	if err != nil {
		return nil, apperr.Wrap(fmt.Errorf("acquire %s: %w", key, err))
	}
	return release, nil
}

// InitiatePayment starts a new payment attempt for an order. At most one
// attempt per order can be PENDING at any time.
func (s *Service) InitiatePayment(ctx context.Context, in InitiateInput) (*InitiateResult, error) {
	in.VPA = strings.TrimSpace(in.VPA)
	in.Currency = strings.ToUpper(strings.TrimSpace(in.Currency))
	if in.Currency == "" {
		in.Currency = models.DefaultCurrency
	}
	if fields := validateInitiate(in); len(fields) > 0 {
		return nil, apperr.ValidationErr("Invalid payment request", fields)
	}

	release, err := s.lock(ctx, "payments:order:"+in.OrderID)
	if err != nil {
		return nil, err
	}
	defer release()

	order, err := s.store.OrderByID(ctx, in.OrderID)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFoundErr("Order not found")
	}
	if err != nil {
		return nil, apperr.Wrap(err)
	}
	switch order.Status {
	case models.OrderStatusCompleted:
		return nil, apperr.StateErr("Order has already been paid")
	case models.OrderStatusCancelled:
		return nil, apperr.StateErr("Order has been cancelled")
	}
	if order.TotalAmount.IsPositive() && !order.TotalAmount.Equal(in.Amount) {
		return nil, apperr.ValidationErr("Amount does not match the order total", map[string]string{
			"amount": "must equal " + order.TotalAmount.StringFixed(2),
		})
	}

	paid, err := s.store.SuccessByOrder(ctx, in.OrderID)
	if err != nil {
		return nil, apperr.Wrap(err)
	}
	if paid != nil {
		s.completeOrder(ctx, paid)
		return nil, apperr.StateErr("Order has already been paid")
	}

	pending, err := s.store.PendingByOrder(ctx, in.OrderID)
	if err != nil {
		return nil, apperr.Wrap(err)
	}
	if pending != nil && pending.IsExpired(s.now()) {
		if pending, err = s.resolveExpired(ctx, pending); err != nil {
			return nil, err
		}
	}
	if pending != nil {
		switch pending.Status {
		case models.TransactionStatusPending:
			e := apperr.ConflictErr("A payment is already in progress for this order")
			e.Fields = map[string]string{"transactionId": pending.ID}
			return nil, e
		case models.TransactionStatusSuccess:
			return nil, apperr.StateErr("Order has already been paid")
		}
	}

	txID := uuid.NewString()
	intent, err := s.adapter.InitiatePayment(ctx, gateway.PaymentRequest{
		Amount:    in.Amount,
		Currency:  in.Currency,
		VPA:       in.VPA,
		OrderID:   in.OrderID,
		Reference: txID,
		ExpiresIn: s.window,
	})
	if err != nil {
		s.logger.Error("gateway failed to initiate payment",
			zap.String("order_id", in.OrderID),
			zap.String("provider", string(s.adapter.Name())),
			zap.Error(err),
		)
		return nil, apperr.GatewayErr("The payment gateway could not start this payment", err)
	}

	now := s.now()
	expiresAt := now.Add(s.window)
	if !intent.ExpiresAt.IsZero() && intent.ExpiresAt.Before(expiresAt) {
		expiresAt = intent.ExpiresAt
	}

	userID := in.UserID
	if userID == nil {
		userID = order.UserID
	}

	tx := &models.Transaction{
		ID:                   txID,
		OrderID:              in.OrderID,
		UserID:               userID,
		Provider:             s.adapter.Name(),
		GatewayTransactionID: intent.PaymentID,
		VPA:                  in.VPA,
		Amount:               in.Amount,
		Currency:             in.Currency,
		Status:               models.TransactionStatusPending,
		QRCode:               intent.QRCode,
		DeepLink:             intent.DeepLink,
		ExpiresAt:            expiresAt,
		WebhookData:          datatypes.JSON(intent.Raw),
	}
	if err := s.store.CreateTransaction(ctx, tx); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return nil, apperr.ConflictErr("A payment is already in progress for this order")
		}
		return nil, apperr.Wrap(fmt.Errorf("create transaction for order %s: %w", in.OrderID, err))
	}

	s.logger.Info("payment initiated",
		zap.String("transaction_id", tx.ID),
		zap.String("order_id", tx.OrderID),
		zap.String("gateway_transaction_id", tx.GatewayTransactionID),
		zap.Time("expires_at", expiresAt),
	)

	return &InitiateResult{
		TransactionID: tx.ID,
		PaymentID:     tx.GatewayTransactionID,
		QRCode:        tx.QRCode,
		DeepLink:      tx.DeepLink,
		ExpiresAt:     expiresAt,
	}, nil
}

// Transaction reads a transaction without contacting the gateway.
func (s *Service) Transaction(ctx context.Context, id string) (*models.Transaction, error) {
	tx, err := s.store.TransactionByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFoundErr("Transaction not found")
	}
	if err != nil {
		return nil, apperr.Wrap(err)
	}
	return tx, nil
}

// CheckPaymentStatus reconciles a pending transaction with the gateway.
// Terminal transactions are returned as stored.
func (s *Service) CheckPaymentStatus(ctx context.Context, id string) (*models.Transaction, error) {
	tx, err := s.Transaction(ctx, id)
	if err != nil {
		return nil, err
	}
	if tx.Status.IsTerminal() {
		if tx.Status == models.TransactionStatusSuccess {
			s.completeOrder(ctx, tx)
		}
		return tx, nil
	}

	if tx.Provider != s.adapter.Name() {
		if tx.IsExpired(s.now()) {
			return s.resolveExpired(ctx, tx)
		}
		return tx, nil
	}

	report, err := s.adapter.CheckPaymentStatus(ctx, tx.GatewayTransactionID)
	if err != nil {
		if tx.IsExpired(s.now()) {
			return s.expire(ctx, tx, nil)
		}
		return nil, apperr.GatewayErr("Could not fetch the payment status from the gateway", err)
	}

	status := gateway.NormalizeStatus(tx.Provider, report.RawStatus)
	if status == models.TransactionStatusPending {
		if tx.IsExpired(s.now()) {
			return s.expire(ctx, tx, report.Raw)
		}
		return tx, nil
	}
	return s.transition(ctx, tx, status, nil, report.Raw)
}

// resolveExpired gives the gateway one chance to report a final status for a
// transaction past its window before failing it as expired.
func (s *Service) resolveExpired(ctx context.Context, tx *models.Transaction) (*models.Transaction, error) {
	if tx.Provider == s.adapter.Name() {
		report, err := s.adapter.CheckPaymentStatus(ctx, tx.GatewayTransactionID)
		if err != nil {
			s.logger.Warn("status check for expired transaction failed",
				zap.String("transaction_id", tx.ID),
				zap.Error(err),
			)
		} else if status := gateway.NormalizeStatus(tx.Provider, report.RawStatus); status.IsTerminal() {
			return s.transition(ctx, tx, status, nil, report.Raw)
		}
	}
	return s.expire(ctx, tx, nil)
}

func (s *Service) expire(ctx context.Context, tx *models.Transaction, raw json.RawMessage) (*models.Transaction, error) {
	reason := FailureReasonExpired
	return s.transition(ctx, tx, models.TransactionStatusFailed, &reason, raw)
}

// transition applies PENDING -> to. When another request won the race the
// row is re-read and returned unchanged.
func (s *Service) transition(ctx context.Context, tx *models.Transaction, to models.TransactionStatus, reason *string, raw []byte) (*models.Transaction, error) {
	applied, err := s.store.TransitionStatus(ctx, tx.ID, to, reason, raw)
	if err != nil {
		return nil, apperr.Wrap(fmt.Errorf("transition transaction %s to %s: %w", tx.ID, to, err))
	}

	fresh, err := s.store.TransactionByID(ctx, tx.ID)
	if err != nil {
		return nil, apperr.Wrap(fmt.Errorf("reload transaction %s: %w", tx.ID, err))
	}
	if !applied {
		return fresh, nil
	}

	s.logger.Info("transaction status changed",
		zap.String("transaction_id", fresh.ID),
		zap.String("order_id", fresh.OrderID),
		zap.String("status", string(fresh.Status)),
	)

	if fresh.Status == models.TransactionStatusSuccess {
		s.completeOrder(ctx, fresh)
	}
	s.notifyTransition(ctx, *fresh)
	return fresh, nil
}

// completeOrder marks the order of a successful transaction as paid. It is
// repeated on every later sight of the SUCCESS row, so a failed write here is
// repaired by the next webhook delivery, status check or initiation.
func (s *Service) completeOrder(ctx context.Context, tx *models.Transaction) {
	if err := s.store.MarkOrderPaid(ctx, tx.OrderID, s.now()); err != nil {
		s.logger.Error("failed to mark order paid",
			zap.String("order_id", tx.OrderID),
			zap.String("transaction_id", tx.ID),
			zap.Error(err),
		)
	}
}

type WebhookResult struct {
	Processed     bool
	TransactionID string
	Status        models.TransactionStatus
}

// HandleWebhook applies a provider notification. Replayed deliveries are
// accepted and change nothing.
func (s *Service) HandleWebhook(ctx context.Context, provider models.PaymentGateway, payload []byte, signature string) (*WebhookResult, error) {
	event := &models.WebhookEvent{Provider: provider}
	if json.Valid(payload) {
		event.Payload = datatypes.JSON(payload)
	}
	defer func() {
		if err := s.store.RecordWebhookEvent(ctx, event); err != nil {
			s.logger.Error("failed to record webhook event", zap.String("provider", string(provider)), zap.Error(err))
		}
	}()
	reject := func(err *apperr.Error) (*WebhookResult, error) {
		msg := err.Message
		event.Error = &msg
		return nil, err
	}

	if provider != s.adapter.Name() {
		return reject(apperr.NotFoundErr(fmt.Sprintf("No active payment gateway named %q", provider)))
	}

	if !s.adapter.ValidateWebhook(payload, signature) {
		s.logger.Warn("rejected webhook with invalid signature",
			zap.String("provider", string(provider)),
			zap.Int("payload_bytes", len(payload)),
		)
		return reject(apperr.SignatureErr("Invalid webhook signature"))
	}
	event.SignatureValid = true

	fields, err := gateway.ExtractWebhook(provider, payload)
	if err != nil {
		return reject(apperr.ValidationErr("Malformed webhook payload", nil))
	}
	event.GatewayTransactionID = fields.PaymentID

	tx, err := s.store.TransactionByGatewayID(ctx, fields.PaymentID)
	if errors.Is(err, ErrNotFound) {
		return reject(apperr.NotFoundErr("Transaction not found"))
	}
	if err != nil {
		return reject(apperr.Wrap(err))
	}

	status := gateway.NormalizeStatus(provider, fields.RawStatus)
	if !fields.Amount.IsZero() && !fields.Amount.Equal(tx.Amount) {
		s.logger.Warn("webhook amount differs from transaction",
			zap.String("transaction_id", tx.ID),
			zap.String("expected", tx.Amount.StringFixed(2)),
			zap.String("received", fields.Amount.StringFixed(2)),
		)
	}

	if tx.Status.IsTerminal() {
		if status != tx.Status {
			s.logger.Warn("webhook disagrees with final transaction status",
				zap.String("transaction_id", tx.ID),
				zap.String("stored", string(tx.Status)),
				zap.String("reported", string(status)),
			)
		}
		if tx.Status == models.TransactionStatusSuccess {
			s.completeOrder(ctx, tx)
		}
		event.Processed = true
		return &WebhookResult{Processed: true, TransactionID: tx.ID, Status: tx.Status}, nil
	}

	if status == models.TransactionStatusPending {
		if err := s.store.RecordGatewayData(ctx, tx.ID, event.Payload); err != nil {
			return reject(apperr.Wrap(err))
		}
		event.Processed = true
		return &WebhookResult{Processed: true, TransactionID: tx.ID, Status: tx.Status}, nil
	}

	fresh, err := s.transition(ctx, tx, status, nil, event.Payload)
	if err != nil {
		ae, _ := apperr.As(err)
		return reject(ae)
	}
	event.Processed = true
	return &WebhookResult{Processed: true, TransactionID: fresh.ID, Status: fresh.Status}, nil
}

type RefundInput struct {
	TransactionID string
	// Amount defaults to everything not yet refunded.
	Amount *decimal.Decimal
	Reason string
}

type RefundResult struct {
	RefundID string
	Status   string
	Amount   decimal.Decimal
}

// InitiateRefund refunds all or part of a successful payment. The
// transaction keeps its SUCCESS status; refunds are tracked separately.
func (s *Service) InitiateRefund(ctx context.Context, in RefundInput) (*RefundResult, error) {
	release, err := s.lock(ctx, "payments:refund:"+in.TransactionID)
	if err != nil {
		return nil, err
	}
	defer release()

	tx, err := s.Transaction(ctx, in.TransactionID)
	if err != nil {
		return nil, err
	}
	if tx.Status != models.TransactionStatusSuccess {
		return nil, apperr.StateErr(fmt.Sprintf("Only successful payments can be refunded, this one is %s", tx.Status))
	}
	if tx.Provider != s.adapter.Name() {
		return nil, apperr.StateErr(fmt.Sprintf("Payment was taken through %s, which is not the active gateway", tx.Provider))
	}

	refunded, err := s.store.RefundedAmount(ctx, tx.ID)
	if err != nil {
		return nil, apperr.Wrap(err)
	}
	remaining := tx.Amount.Sub(refunded)
	if !remaining.IsPositive() {
		return nil, apperr.StateErr("Payment has already been fully refunded")
	}

	amount := remaining
	if in.Amount != nil {
		amount = *in.Amount
	}
	if !amount.IsPositive() {
		return nil, apperr.ValidationErr("Invalid refund amount", map[string]string{"amount": "must be greater than zero"})
	}
	if amount.GreaterThan(remaining) {
		return nil, apperr.ValidationErr("Refund exceeds the refundable amount", map[string]string{
			"amount": "must be at most " + remaining.StringFixed(2),
		})
	}

	report, err := s.adapter.InitiateRefund(ctx, gateway.RefundRequest{
		PaymentID: tx.GatewayTransactionID,
		Amount:    amount,
		Currency:  tx.Currency,
		Reason:    in.Reason,
	})
	if err != nil {
		s.logger.Error("gateway failed to initiate refund",
			zap.String("transaction_id", tx.ID),
			zap.Error(err),
		)
		return nil, apperr.GatewayErr("The payment gateway could not start this refund", err)
	}

	refund := models.Refund{
		ID:              uuid.NewString(),
		TransactionID:   tx.ID,
		Provider:        tx.Provider,
		GatewayRefundID: report.RefundID,
		Amount:          amount,
		Currency:        tx.Currency,
		Status:          report.Status,
		ResponseData:    datatypes.JSON(report.Raw),
	}
	if in.Reason != "" {
		refund.Reason = &in.Reason
	}
	if err := s.store.CreateRefund(ctx, &refund); err != nil {
		// The gateway already accepted the refund; surface it anyway.
		s.logger.Error("failed to record refund",
			zap.String("transaction_id", tx.ID),
			zap.String("gateway_refund_id", report.RefundID),
			zap.Error(err),
		)
	}

	s.logger.Info("refund initiated",
		zap.String("transaction_id", tx.ID),
		zap.String("gateway_refund_id", report.RefundID),
		zap.String("amount", amount.StringFixed(2)),
	)
	s.notify(ctx, "payment.refund_initiated", func(l Listener) error { return l.RefundInitiated(ctx, *tx, refund) })

	return &RefundResult{RefundID: report.RefundID, Status: report.Status, Amount: amount}, nil
}

// ExpireStale fails pending transactions whose window closed, after one last
// gateway check each. It returns how many were resolved.
func (s *Service) ExpireStale(ctx context.Context, limit int) (int, error) {
	now := s.now()
	txs, err := s.store.ListPending(ctx, &now, limit)
	if err != nil {
		return 0, apperr.Wrap(err)
	}

	resolved := 0
	for i := range txs {
		fresh, err := s.resolveExpired(ctx, &txs[i])
		if err != nil {
			s.logger.Error("failed to expire transaction", zap.String("transaction_id", txs[i].ID), zap.Error(err))
			continue
		}
		if fresh.Status.IsTerminal() {
			resolved++
		}
	}
	return resolved, nil
}

// ReconcilePending polls the gateway for pending transactions. It returns
// how many reached a final status.
func (s *Service) ReconcilePending(ctx context.Context, limit int) (int, error) {
	txs, err := s.store.ListPending(ctx, nil, limit)
	if err != nil {
		return 0, apperr.Wrap(err)
	}

	resolved := 0
	for _, tx := range txs {
		if err := ctx.Err(); err != nil {
			return resolved, err
		}
		fresh, err := s.CheckPaymentStatus(ctx, tx.ID)
		if err != nil {
			s.logger.Warn("reconcile check failed", zap.String("transaction_id", tx.ID), zap.Error(err))
			continue
		}
		if fresh.Status.IsTerminal() {
			resolved++
		}
	}
	return resolved, nil
}
