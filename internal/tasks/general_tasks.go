package tasks

import (
	"context"

	"go.uber.org/zap"

	"storefront_pay/internal/models"
)

// LogInfoTaskDef writes a message to the worker log. Useful to check that
// the worker is picking tasks up.
type LogInfoTaskDef struct {
	log *zap.Logger
}

func (t *LogInfoTaskDef) TaskID() string {
	return "log_info"
}

func (t *LogInfoTaskDef) HandleExecution(ctx context.Context, task models.ScheduledTask) (map[string]interface{}, error) {
	message, ok := task.Arguments["message"].(string)
	if !ok {
		message = "No message provided"
	}
	t.log.Info("log_info task", zap.String("message", message), zap.Uint("task_id", task.ID))

	return map[string]interface{}{
		"status":  "success",
		"message": message,
	}, nil
}
