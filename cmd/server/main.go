package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"storefront_pay/internal/bootstrap"
	"storefront_pay/internal/handlers"
	"storefront_pay/internal/middleware"
	"storefront_pay/internal/services"
)

func main() {
	cfg, logger := bootstrap.Load()
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize Database
	db, err := bootstrap.OpenDatabase(cfg, logger, true)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}

	svc, cleanup, err := bootstrap.Payments(ctx, cfg, db, logger)
	if err != nil {
		logger.Fatal("Failed to build payment service", zap.Error(err))
	}
	defer cleanup()

	// Initialize Firebase
	var verifier middleware.TokenVerifier
	authClient, err := services.InitFirebase(ctx, cfg.FirebaseCredentialsPath)
	if err != nil {
		logger.Warn("Firebase initialization failed, admin endpoints are disabled", zap.Error(err))
	} else {
		verifier = authClient
	}

	e := echo.New()
	e.HideBanner = true
	e.Validator = handlers.NewRequestValidator()
	e.HTTPErrorHandler = middleware.NewErrorHandler(logger)

	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(logger))
	e.Use(echomw.Recover())

	handlers.Routes{
		Payments:     handlers.NewPaymentHandler(svc, logger, cfg.AppURL),
		Public:       handlers.NewPublicHandler(svc, logger),
		Preferences:  handlers.NewUserPreferenceHandler(db),
		Health:       handlers.NewHealthHandler(db, svc.Gateway()),
		RequireAdmin: middleware.RequireAdmin(verifier),
	}.Register(e)

	go func() {
		logger.Info("Server starting", zap.String("port", cfg.Port))
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server stopped", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", zap.Error(err))
	}
}
