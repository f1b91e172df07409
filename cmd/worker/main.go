package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"storefront_pay/internal/bootstrap"
	"storefront_pay/internal/services"
	"storefront_pay/internal/tasks"
)

func main() {
	cfg, logger := bootstrap.Load()
	defer logger.Sync()

	// Create context that cancels on interrupt
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := bootstrap.OpenDatabase(cfg, logger, false)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}

	svc, cleanup, err := bootstrap.Payments(ctx, cfg, db, logger)
	if err != nil {
		logger.Fatal("Failed to build payment service", zap.Error(err))
	}
	defer cleanup()

	deps := tasks.Deps{
		DB:       db,
		Payments: svc,
		WhatsApp: services.NewWahaService(),
		Logger:   logger,
		AppURL:   cfg.AppURL,
	}
	if email := services.NewEmailService(); email.Configured() {
		deps.Mailer = email
	} else {
		logger.Warn("SMTP is not configured, email receipts will fail")
	}

	registry := tasks.NewRegistry()
	tasks.DefineTasks(registry, deps)

	if err := tasks.EnsureMaintenanceTasks(ctx, db, cfg.SweepBatchSize, time.Now()); err != nil {
		logger.Fatal("Failed to schedule maintenance tasks", zap.Error(err))
	}

	logger.Info("Worker started",
		zap.Duration("interval", cfg.WorkerInterval),
		zap.Strings("tasks", registry.Names()),
	)
	tasks.NewRunner(db, registry, logger).Run(ctx, cfg.WorkerInterval)
	logger.Info("Worker stopped")
}
