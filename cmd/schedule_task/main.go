package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"storefront_pay/internal/bootstrap"
	"storefront_pay/internal/models"
	"storefront_pay/internal/tasks"
)

func parseDue(raw string) (time.Time, error) {
	if raw == "" || raw == "now" {
		return time.Now(), nil
	}
	due, err := time.Parse(time.RFC3339, raw)
	if err == nil {
		return due, nil
	}
	return time.ParseInLocation("2006-01-02 15:04", raw, time.Local)
}

func main() {
	taskName := flag.String("task_name", "", "Name of the task (mandatory)")
	argsStr := flag.String("arguments", "{}", "JSON arguments for the task")
	dueStr := flag.String("due", "now", "Due date (RFC3339, '2006-01-02 15:04' local time, or 'now')")
	taskType := flag.String("tasktype", string(models.ScheduledTaskTypeOneTime), "Task type: onetime or recurring")
	recurring := flag.String("recurring", "", "RRULE for recurring tasks, e.g. FREQ=MINUTELY;INTERVAL=5")
	maxAttempt := flag.Int("max_attempt", 3, "Max attempts")
	flag.Parse()

	// Names come from a registry built without collaborators; handlers are never run here.
	registry := tasks.NewRegistry()
	tasks.DefineTasks(registry, tasks.Deps{Payments: noopSweeper{}})

	if *taskName == "" {
		fmt.Println("Usage: schedule_task -task_name <name> [-arguments <json>] [-due <time>] [options]")
		fmt.Printf("Known tasks: %v\n", registry.Names())
		flag.PrintDefaults()
		os.Exit(1)
	}
	if _, ok := registry.Get(*taskName); !ok {
		fmt.Printf("Unknown task %q. Known tasks: %v\n", *taskName, registry.Names())
		os.Exit(1)
	}

	var args map[string]interface{}
	if err := json.Unmarshal([]byte(*argsStr), &args); err != nil {
		fmt.Printf("Invalid JSON arguments: %v\n", err)
		os.Exit(1)
	}
	due, err := parseDue(*dueStr)
	if err != nil {
		fmt.Printf("Invalid due date: %v\n", err)
		os.Exit(1)
	}

	var rule *string
	tt := models.ScheduledTaskType(*taskType)
	switch tt {
	case models.ScheduledTaskTypeOneTime:
	case models.ScheduledTaskTypeRecurring:
		if *recurring == "" {
			fmt.Println("Recurring tasks need -recurring")
			os.Exit(1)
		}
		rule = recurring
	default:
		fmt.Printf("Unknown task type %q\n", *taskType)
		os.Exit(1)
	}

	cfg, logger := bootstrap.Load()
	defer logger.Sync()

	db, err := bootstrap.OpenDatabase(cfg, logger, false)
	if err != nil {
		logger.Fatal("Failed to connect DB", zap.Error(err))
	}

	task, err := tasks.BuildScheduledTask(*taskName, args, due, rule, tt, *maxAttempt)
	if err != nil {
		logger.Fatal("Failed to build task", zap.Error(err))
	}
	if err := db.Create(task).Error; err != nil {
		logger.Fatal("Failed to create task", zap.Error(err))
	}

	fmt.Printf("Successfully created task ID: %d\n", task.ID)
	fmt.Printf("Task: %s\nDue: %s\nType: %s\n", task.TaskName, task.Due, task.TaskType)
}
