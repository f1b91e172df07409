package tasks

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"storefront_pay/internal/models"
)

const defaultSweepLimit = 100

// Sweeper is the part of the payment service the maintenance tasks drive.
type Sweeper interface {
	ExpireStale(ctx context.Context, limit int) (int, error)
	ReconcilePending(ctx context.Context, limit int) (int, error)
}

type sweepArgs struct {
	Limit int `json:"limit"`
}

func sweepLimit(task models.ScheduledTask) int {
	args, err := decodeArgs[sweepArgs](task)
	if err != nil || args.Limit <= 0 {
		return defaultSweepLimit
	}
	return args.Limit
}

// ExpirePendingTaskDef fails pending transactions whose payment window has
// closed, after one last check with the gateway.
type ExpirePendingTaskDef struct {
	sweeper Sweeper
	log     *zap.Logger
}

func (t *ExpirePendingTaskDef) TaskID() string {
	return "expire_pending_transactions"
}

// Schedule runs every minute.
func (t *ExpirePendingTaskDef) Schedule() string {
	return "FREQ=MINUTELY;INTERVAL=1"
}

func (t *ExpirePendingTaskDef) HandleExecution(ctx context.Context, task models.ScheduledTask) (map[string]interface{}, error) {
	limit := sweepLimit(task)
	n, err := t.sweeper.ExpireStale(ctx, limit)
	if err != nil {
		return map[string]interface{}{"resolved": n}, err
	}
	if n > 0 {
		t.log.Info("Expired pending transactions", zap.Int("resolved", n))
	}
	return map[string]interface{}{"resolved": n, "limit": limit}, nil
}

// ReconcilePendingTaskDef polls the gateway for pending transactions that
// have not expired yet, covering webhooks that never arrived.
type ReconcilePendingTaskDef struct {
	sweeper Sweeper
	log     *zap.Logger
}

func (t *ReconcilePendingTaskDef) TaskID() string {
	return "reconcile_pending_transactions"
}

func (t *ReconcilePendingTaskDef) Schedule() string {
	return "FREQ=MINUTELY;INTERVAL=5"
}

func (t *ReconcilePendingTaskDef) HandleExecution(ctx context.Context, task models.ScheduledTask) (map[string]interface{}, error) {
	limit := sweepLimit(task)
	n, err := t.sweeper.ReconcilePending(ctx, limit)
	if err != nil {
		return map[string]interface{}{"updated": n}, err
	}
	if n > 0 {
		t.log.Info("Reconciled pending transactions", zap.Int("updated", n))
	}
	return map[string]interface{}{"updated": n, "limit": limit}, nil
}

// EnsureRecurring creates an active recurring task unless one with the same
// name already exists. It reports whether a row was created.
func EnsureRecurring(ctx context.Context, db *gorm.DB, name, rule string, args interface{}, start time.Time) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Model(&models.ScheduledTask{}).
		Where("task_name = ? AND status = ? AND task_type = ?", name, models.ScheduledTaskStatusActive, models.ScheduledTaskTypeRecurring).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}

	task, err := BuildScheduledTask(name, args, start, &rule, models.ScheduledTaskTypeRecurring, 1)
	if err != nil {
		return false, err
	}
	if err := db.WithContext(ctx).Create(task).Error; err != nil {
		return false, err
	}
	return true, nil
}
