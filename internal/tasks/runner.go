package tasks

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"storefront_pay/internal/models"
)

const (
	historyStatusSuccess         = "success"
	historyStatusFailure         = "failure"
	historyStatusHandlerNotFound = "handler_not_found"
)

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks a handler error that must not be retried in place.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

func isPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// Runner executes due scheduled tasks and records every attempt.
type Runner struct {
	db       *gorm.DB
	registry *Registry
	log      *zap.Logger
	now      func() time.Time
}

func NewRunner(db *gorm.DB, registry *Registry, log *zap.Logger) *Runner {
	return &Runner{db: db, registry: registry, log: log, now: time.Now}
}

// Run processes due tasks immediately and then on every tick until ctx is
// cancelled.
func (r *Runner) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	r.processLogged(ctx)
	for {
		select {
		case <-ticker.C:
			r.processLogged(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (r *Runner) processLogged(ctx context.Context) {
	if _, err := r.ProcessDue(ctx); err != nil {
		r.log.Error("Error fetching pending tasks", zap.Error(err))
	}
}

// ProcessDue runs every active task whose due time has passed and returns how
// many were picked up.
func (r *Runner) ProcessDue(ctx context.Context) (int, error) {
	var pendingTasks []models.ScheduledTask
	err := r.db.WithContext(ctx).
		Where("status = ? AND due <= ?", models.ScheduledTaskStatusActive, r.now()).
		Order("due ASC").
		Find(&pendingTasks).Error
	if err != nil {
		return 0, err
	}

	if len(pendingTasks) == 0 {
		r.log.Debug("No pending tasks found")
		return 0, nil
	}
	r.log.Info("Found pending tasks", zap.Int("count", len(pendingTasks)))

	processed := 0
	for _, task := range pendingTasks {
		if ctx.Err() != nil {
			return processed, nil
		}
		r.execute(ctx, task)
		processed++
	}
	return processed, nil
}

func (r *Runner) execute(ctx context.Context, task models.ScheduledTask) {
	log := r.log.With(zap.String("task", task.TaskName), zap.Uint("task_id", task.ID))

	if task.Arguments == nil {
		task.Arguments = make(map[string]interface{})
	}

	handler, found := r.registry.Get(task.TaskName)
	if !found {
		log.Warn("Task handler not found, marking as failure")
		now := r.now()
		r.recordHistory(ctx, log, models.ScheduledTaskHistory{
			ScheduledTaskID: task.ID,
			TaskName:        task.TaskName,
			RunAt:           now,
			Status:          historyStatusHandlerNotFound,
			AttemptNumber:   1,
			Arguments:       task.Arguments,
			Result:          map[string]interface{}{"error": "Handler not found"},
		})
		r.updateTask(ctx, log, task, map[string]interface{}{
			"status":   models.ScheduledTaskStatusFailure,
			"last_run": &now,
		})
		return
	}

	maxAttempt := task.MaxAttempt
	if maxAttempt < 1 {
		maxAttempt = 1
	}

	var (
		startTime time.Time
		runErr    error
	)
	for attempt := 1; attempt <= maxAttempt; attempt++ {
		startTime = r.now()
		began := time.Now()
		result, err := handler(ctx, task)
		runtimeMs := int(time.Since(began).Milliseconds())

		status := historyStatusSuccess
		resultData := result
		if err != nil {
			status = historyStatusFailure
			if resultData == nil {
				resultData = map[string]interface{}{}
			}
			resultData["error"] = err.Error()
			log.Warn("Task failed", zap.Int("attempt", attempt), zap.Error(err))
		} else {
			log.Info("Task completed", zap.Int("attempt", attempt), zap.Int("runtime_ms", runtimeMs))
		}

		r.recordHistory(ctx, log, models.ScheduledTaskHistory{
			ScheduledTaskID: task.ID,
			TaskName:        task.TaskName,
			RunAt:           startTime,
			RuntimeMs:       runtimeMs,
			Status:          status,
			AttemptNumber:   attempt,
			Arguments:       task.Arguments,
			Result:          resultData,
		})

		runErr = err
		if err == nil || isPermanent(err) || ctx.Err() != nil {
			break
		}
	}

	updates := map[string]interface{}{"last_run": &startTime}
	switch {
	case task.TaskType == models.ScheduledTaskTypeRecurring:
		// Recurring tasks keep their schedule even when a run fails.
		nextDue := task.NextDue(r.now())
		if nextDue.After(task.Due) {
			updates["due"] = nextDue
		} else {
			updates["status"] = models.ScheduledTaskStatusDone
		}
	case runErr != nil:
		updates["status"] = models.ScheduledTaskStatusFailure
	default:
		updates["status"] = models.ScheduledTaskStatusDone
	}
	r.updateTask(ctx, log, task, updates)
}

func (r *Runner) recordHistory(ctx context.Context, log *zap.Logger, history models.ScheduledTaskHistory) {
	if err := r.db.WithContext(ctx).Create(&history).Error; err != nil {
		log.Error("Failed to record task history", zap.Error(err))
	}
}

func (r *Runner) updateTask(ctx context.Context, log *zap.Logger, task models.ScheduledTask, updates map[string]interface{}) {
	if err := r.db.WithContext(ctx).Model(&models.ScheduledTask{}).Where("id = ?", task.ID).Updates(updates).Error; err != nil {
		log.Error("Failed to update task", zap.Error(err))
	}
}
