package tasks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"storefront_pay/internal/models"
)

func TestSweepTasks(t *testing.T) {
	sweeper := &stubSweeper{n: 2}
	expire := &ExpirePendingTaskDef{sweeper: sweeper, log: zap.NewNop()}
	reconcile := &ReconcilePendingTaskDef{sweeper: sweeper, log: zap.NewNop()}

	task := models.ScheduledTask{Arguments: map[string]interface{}{"limit": float64(25)}}
	result, err := expire.HandleExecution(context.Background(), task)
	if err != nil {
		t.Fatalf("expire: %v", err)
	}
	if result["resolved"] != 2 || sweeper.expireLimit != 25 {
		t.Errorf("expire result = %v, limit = %d", result, sweeper.expireLimit)
	}

	result, err = reconcile.HandleExecution(context.Background(), models.ScheduledTask{})
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if result["updated"] != 2 || sweeper.reconcileLimit != defaultSweepLimit {
		t.Errorf("reconcile result = %v, limit = %d", result, sweeper.reconcileLimit)
	}

	sweeper.err = errBoom
	if _, err := expire.HandleExecution(context.Background(), task); !errors.Is(err, errBoom) {
		t.Errorf("expire error = %v, want %v", err, errBoom)
	}
}

func TestEnsureMaintenanceTasks(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := EnsureMaintenanceTasks(ctx, db, 50, testNow); err != nil {
			t.Fatalf("EnsureMaintenanceTasks: %v", err)
		}
	}

	for _, name := range []string{"expire_pending_transactions", "reconcile_pending_transactions"} {
		if n := countTasks(t, db, name); n != 1 {
			t.Errorf("%s tasks = %d, want 1", name, n)
		}
	}

	var task models.ScheduledTask
	if err := db.Where("task_name = ?", "reconcile_pending_transactions").First(&task).Error; err != nil {
		t.Fatalf("load: %v", err)
	}
	if task.TaskType != models.ScheduledTaskTypeRecurring || task.RecurringInterval == nil || *task.RecurringInterval != "FREQ=MINUTELY;INTERVAL=5" {
		t.Errorf("unexpected task: %+v", task)
	}
	if got := sweepLimit(task); got != 50 {
		t.Errorf("limit = %d, want 50", got)
	}
}

func TestReceiptScheduler(t *testing.T) {
	db := newTestDB(t)
	s := NewReceiptScheduler(db)
	s.now = func() time.Time { return testNow }
	ctx := context.Background()
	tx := models.Transaction{ID: "tx-9"}

	if err := s.PaymentFailed(ctx, tx); err != nil {
		t.Fatalf("PaymentFailed: %v", err)
	}
	if n := countTasks(t, db, "send_payment_receipt"); n != 0 {
		t.Fatalf("failed payment scheduled %d receipts", n)
	}

	if err := s.PaymentSucceeded(ctx, tx); err != nil {
		t.Fatalf("PaymentSucceeded: %v", err)
	}
	refund := models.Refund{GatewayRefundID: "rf_1", Amount: decimal.RequireFromString("120.5")}
	if err := s.RefundInitiated(ctx, tx, refund); err != nil {
		t.Fatalf("RefundInitiated: %v", err)
	}

	var queued []models.ScheduledTask
	if err := db.Where("task_name = ?", "send_payment_receipt").Order("id").Find(&queued).Error; err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(queued) != 2 {
		t.Fatalf("queued = %d, want 2", len(queued))
	}
	if queued[0].Arguments["event"] != ReceiptEventPaid || queued[0].Arguments["transaction_id"] != "tx-9" {
		t.Errorf("paid receipt args = %v", queued[0].Arguments)
	}
	if queued[1].Arguments["event"] != ReceiptEventRefunded || queued[1].Arguments["refund_amount"] != "120.50" || queued[1].Arguments["refund_id"] != "rf_1" {
		t.Errorf("refund receipt args = %v", queued[1].Arguments)
	}
	if queued[0].Status != models.ScheduledTaskStatusActive || queued[0].MaxAttempt != 3 {
		t.Errorf("unexpected task: %+v", queued[0])
	}
}
