package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"storefront_pay/internal/models"
)

const (
	ReceiptEventPaid     = "paid"
	ReceiptEventRefunded = "refunded"

	receiptRetryDelay = 5 * time.Minute
)

// Mailer sends a plain-text email.
type Mailer interface {
	SendEmail(to []string, subject, body string) error
}

// Messenger sends a WhatsApp text message.
type Messenger interface {
	SendMessage(ctx context.Context, chatID, text string) error
}

// SendReceiptArgs defines the arguments for a receipt task
type SendReceiptArgs struct {
	TransactionID string `json:"transaction_id"`
	Event         string `json:"event"`
	RefundID      string `json:"refund_id,omitempty"`
	RefundAmount  string `json:"refund_amount,omitempty"`
	AttemptCount  int    `json:"attempt_count"`
}

// SendReceiptTaskDef delivers a payment or refund receipt to the order's
// customer through their preferred channel.
type SendReceiptTaskDef struct {
	db       *gorm.DB
	mailer   Mailer
	whatsapp Messenger
	log      *zap.Logger
	appURL   string
	now      func() time.Time
}

func (t *SendReceiptTaskDef) TaskID() string {
	return "send_payment_receipt"
}

// CreateTask builds a ScheduledTask record for this task
func (t *SendReceiptTaskDef) CreateTask(args SendReceiptArgs, due time.Time) (*models.ScheduledTask, error) {
	return BuildScheduledTask(t.TaskID(), args, due, nil, models.ScheduledTaskTypeOneTime, 3)
}

type receiptContext struct {
	tx    models.Transaction
	order models.Order
	user  models.User
	args  SendReceiptArgs
}

func (t *SendReceiptTaskDef) HandleExecution(ctx context.Context, task models.ScheduledTask) (map[string]interface{}, error) {
	args, err := decodeArgs[SendReceiptArgs](task)
	if err != nil {
		return nil, err
	}
	if args.TransactionID == "" {
		return nil, errors.New("transaction_id is missing")
	}

	rc := receiptContext{args: args}
	if err := t.db.WithContext(ctx).First(&rc.tx, "id = ?", args.TransactionID).Error; err != nil {
		return nil, fmt.Errorf("load transaction: %w", err)
	}
	if err := t.db.WithContext(ctx).Preload("User.NotifPreference").First(&rc.order, "id = ?", rc.tx.OrderID).Error; err != nil {
		return nil, fmt.Errorf("load order: %w", err)
	}

	if rc.order.User == nil {
		t.log.Info("Skipping receipt: order has no user", zap.String("order_id", rc.order.ID))
		return map[string]interface{}{"status": "skipped", "reason": "no_user"}, nil
	}
	rc.user = *rc.order.User

	pref := models.UserNotifPreference{Channel: models.NotificationChannelEmail}
	if rc.user.NotifPreference != nil {
		pref = *rc.user.NotifPreference
	}

	var sendErr error
	switch pref.Channel {
	case models.NotificationChannelEmail:
		sendErr = t.sendEmail(rc)
	case models.NotificationChannelWhatsapp:
		sendErr = t.sendWhatsapp(ctx, rc, pref)
	default:
		t.log.Info("Receipt disabled for user",
			zap.Uint("user_id", rc.user.ID),
			zap.String("channel", string(pref.Channel)),
		)
		return map[string]interface{}{"status": "skipped", "channel": string(pref.Channel)}, nil
	}

	result := map[string]interface{}{
		"channel":        string(pref.Channel),
		"transaction_id": rc.tx.ID,
		"event":          args.Event,
	}
	if sendErr == nil {
		result["status"] = "sent"
		return result, nil
	}

	result["status"] = "failed"
	result["error"] = sendErr.Error()

	if args.AttemptCount+1 < task.MaxAttempt {
		next := args
		next.AttemptCount++
		t.log.Warn("Receipt delivery failed, rescheduling",
			zap.String("transaction_id", rc.tx.ID),
			zap.Int("attempt", next.AttemptCount+1),
			zap.Error(sendErr),
		)
		retry, err := BuildScheduledTask(t.TaskID(), next, t.now().Add(receiptRetryDelay), nil, models.ScheduledTaskTypeOneTime, task.MaxAttempt)
		if err != nil {
			return result, fmt.Errorf("failed to build retry task: %w", err)
		}
		if err := t.db.WithContext(ctx).Create(retry).Error; err != nil {
			return result, fmt.Errorf("failed to create retry task: %w", err)
		}
		result["retry_task_id"] = retry.ID
		return result, nil
	}

	return result, Permanent(fmt.Errorf("max attempts reached, receipt for %s not delivered: %w", rc.tx.ID, sendErr))
}

func (t *SendReceiptTaskDef) sendEmail(rc receiptContext) error {
	if t.mailer == nil {
		return errors.New("email is not configured")
	}
	if rc.user.Email == "" {
		return errors.New("user has no email")
	}
	return t.mailer.SendEmail([]string{rc.user.Email}, receiptSubject(rc), receiptBody(rc, t.appURL))
}

func (t *SendReceiptTaskDef) sendWhatsapp(ctx context.Context, rc receiptContext, pref models.UserNotifPreference) error {
	if t.whatsapp == nil {
		return errors.New("whatsapp is not configured")
	}

	chatID, err := pref.WhatsappChatID(rc.user.Phone)
	if err != nil {
		return err
	}

	return t.whatsapp.SendMessage(ctx, chatID, receiptBody(rc, t.appURL))
}

func receiptSubject(rc receiptContext) string {
	if rc.args.Event == ReceiptEventRefunded {
		return fmt.Sprintf("Refund initiated for order %s", rc.order.ID)
	}
	return fmt.Sprintf("Payment received for order %s", rc.order.ID)
}

func receiptBody(rc receiptContext, appURL string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", lo.Ternary(rc.user.Name != "", rc.user.Name, "there"))
	if rc.args.Event == ReceiptEventRefunded {
		fmt.Fprintf(&b, "A refund of %s %s for order %s has been initiated.\n", rc.tx.Currency, rc.args.RefundAmount, rc.order.ID)
		if rc.args.RefundID != "" {
			fmt.Fprintf(&b, "Refund reference: %s\n", rc.args.RefundID)
		}
	} else {
		fmt.Fprintf(&b, "We received your UPI payment of %s %s for order %s.\n", rc.tx.Currency, rc.tx.Amount.StringFixed(2), rc.order.ID)
		fmt.Fprintf(&b, "Payment reference: %s\n", rc.tx.GatewayTransactionID)
	}
	if appURL != "" {
		fmt.Fprintf(&b, "\nDetails: %s/p/%s\n", strings.TrimRight(appURL, "/"), rc.tx.ID)
	}
	return b.String()
}
