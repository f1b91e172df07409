package middleware

import (
	"context"
	"net/http"
	"strings"

	"firebase.google.com/go/v4/auth"
	"github.com/labstack/echo/v4"

	"storefront_pay/internal/apperr"
)

// TokenVerifier is satisfied by *auth.Client.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// RequireAdmin returns a middleware that accepts Firebase ID tokens carrying
// the `admin` custom claim.
func RequireAdmin(verifier TokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if verifier == nil {
				return echo.NewHTTPError(http.StatusServiceUnavailable, "Authentication is not configured")
			}

			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return apperr.UnauthenticatedErr("Missing authorization header")
			}
			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader || tokenString == "" {
				return apperr.UnauthenticatedErr("Invalid authorization format")
			}

			token, err := verifier.VerifyIDToken(c.Request().Context(), tokenString)
			if err != nil {
				return apperr.UnauthenticatedErr("Invalid token")
			}
			if admin, _ := token.Claims["admin"].(bool); !admin {
				return apperr.ForbiddenErr("Admin access required")
			}

			c.Set("userUID", token.UID)
			if email, ok := token.Claims["email"].(string); ok {
				c.Set("userEmail", email)
			}

			return next(c)
		}
	}
}
