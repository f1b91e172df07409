package tasks

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Deps are the collaborators task handlers need.
type Deps struct {
	DB       *gorm.DB
	Payments Sweeper
	Mailer   Mailer
	WhatsApp Messenger
	Logger   *zap.Logger
	AppURL   string
}

// DefineTasks registers all available tasks
func DefineTasks(r *Registry, deps Deps) {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	logInfo := &LogInfoTaskDef{log: log}
	r.Register(logInfo.TaskID(), logInfo.HandleExecution)

	receipt := &SendReceiptTaskDef{
		db:       deps.DB,
		mailer:   deps.Mailer,
		whatsapp: deps.WhatsApp,
		log:      log,
		appURL:   deps.AppURL,
		now:      time.Now,
	}
	r.Register(receipt.TaskID(), receipt.HandleExecution)

	if deps.Payments != nil {
		expire := &ExpirePendingTaskDef{sweeper: deps.Payments, log: log}
		r.Register(expire.TaskID(), expire.HandleExecution)

		reconcile := &ReconcilePendingTaskDef{sweeper: deps.Payments, log: log}
		r.Register(reconcile.TaskID(), reconcile.HandleExecution)
	}
}

// EnsureMaintenanceTasks seeds the recurring expiry and reconciliation sweeps.
func EnsureMaintenanceTasks(ctx context.Context, db *gorm.DB, limit int, start time.Time) error {
	args := sweepArgs{Limit: limit}
	for _, def := range []interface {
		TaskID() string
		Schedule() string
	}{&ExpirePendingTaskDef{}, &ReconcilePendingTaskDef{}} {
		if _, err := EnsureRecurring(ctx, db, def.TaskID(), def.Schedule(), args, start); err != nil {
			return err
		}
	}
	return nil
}
