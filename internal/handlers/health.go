package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"storefront_pay/internal/models"
)

type HealthHandler struct {
	db      *gorm.DB
	gateway models.PaymentGateway
}

func NewHealthHandler(db *gorm.DB, gateway models.PaymentGateway) *HealthHandler {
	return &HealthHandler{db: db, gateway: gateway}
}

// Healthz handles GET /healthz
func (h *HealthHandler) Healthz(c echo.Context) error {
	body := map[string]interface{}{
		"status":  "ok",
		"gateway": h.gateway,
	}

	sqlDB, err := h.db.DB()
	if err == nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		body["status"] = "degraded"
		body["database"] = err.Error()
		return c.JSON(http.StatusServiceUnavailable, body)
	}
	return c.JSON(http.StatusOK, body)
}
