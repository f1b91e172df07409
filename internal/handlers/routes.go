package handlers

import (
	"github.com/labstack/echo/v4"
)

type Routes struct {
	Payments    *PaymentHandler
	Public      *PublicHandler
	Preferences *UserPreferenceHandler
	Health      *HealthHandler
	// RequireAdmin guards operator endpoints.
	RequireAdmin echo.MiddlewareFunc
}

// Register mounts every route on e.
func (r Routes) Register(e *echo.Echo) {
	e.GET("/healthz", r.Health.Healthz)
	e.GET("/p/:id", r.Public.ShowCheckout)

	api := e.Group("/api")
	api.POST("/payments/initiate", r.Payments.InitiatePayment)
	api.GET("/payments/:id/status", r.Payments.CheckStatus)
	api.POST("/payments/webhook/:provider", r.Payments.Webhook)

	api.POST("/payments/:id/refund", r.Payments.Refund, r.RequireAdmin)
	api.GET("/users/:id/notification-preference", r.Preferences.GetUserPreference, r.RequireAdmin)
	api.PUT("/users/:id/notification-preference", r.Preferences.UpdateUserPreference, r.RequireAdmin)
}
