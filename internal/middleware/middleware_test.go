package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"firebase.google.com/go/v4/auth"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"storefront_pay/internal/apperr"
)

type fakeVerifier struct {
	tokens map[string]*auth.Token
}

func (f *fakeVerifier) VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error) {
	if tok, ok := f.tokens[idToken]; ok {
		return tok, nil
	}
	return nil, errors.New("token rejected")
}

func newTestEcho() *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = NewErrorHandler(zap.NewNop())
	return e
}

func TestRequireAdmin(t *testing.T) {
	verifier := &fakeVerifier{tokens: map[string]*auth.Token{
		"admin-token": {UID: "u1", Claims: map[string]interface{}{"admin": true, "email": "ops@example.com"}},
		"user-token":  {UID: "u2", Claims: map[string]interface{}{"email": "shopper@example.com"}},
	}}

	tests := []struct {
		name     string
		verifier TokenVerifier
		header   string
		wantCode int
		wantKind apperr.Kind
	}{
		{"admin", verifier, "Bearer admin-token", http.StatusOK, ""},
		{"not admin", verifier, "Bearer user-token", http.StatusForbidden, apperr.Forbidden},
		{"missing header", verifier, "", http.StatusUnauthorized, apperr.Unauthenticated},
		{"wrong scheme", verifier, "Basic abc", http.StatusUnauthorized, apperr.Unauthenticated},
		{"invalid token", verifier, "Bearer forged", http.StatusUnauthorized, apperr.Unauthenticated},
		{"no verifier", nil, "Bearer admin-token", http.StatusServiceUnavailable, apperr.Internal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEcho()
			e.POST("/admin", func(c echo.Context) error {
				if c.Get("userUID") != "u1" || c.Get("userEmail") != "ops@example.com" {
					t.Errorf("user not set on context")
				}
				return c.NoContent(http.StatusOK)
			}, RequireAdmin(tt.verifier))

			req := httptest.NewRequest(http.MethodPost, "/admin", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Errorf("code = %d, want %d (%s)", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantKind == "" {
				return
			}
			var body ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Kind != tt.wantKind {
				t.Errorf("kind = %q, want %q", body.Kind, tt.wantKind)
			}
		})
	}
}

func TestErrorHandler(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		err        error
		wantCode   int
		wantKind   apperr.Kind
		wantError  string
		wantFields bool
	}{
		{"validation", "/api/x", apperr.ValidationErr("Invalid payment request", map[string]string{"vpa": "bad"}), http.StatusBadRequest, apperr.Validation, "Invalid payment request", true},
		{"conflict", "/api/x", apperr.ConflictErr("A payment is already pending"), http.StatusConflict, apperr.Conflict, "A payment is already pending", false},
		{"gateway", "/api/x", apperr.GatewayErr("Payment gateway unavailable", errors.New("dial tcp")), http.StatusBadGateway, apperr.Gateway, "Payment gateway unavailable", false},
		{"signature", "/api/x", apperr.SignatureErr("Invalid webhook signature"), http.StatusUnauthorized, apperr.Signature, "Invalid webhook signature", false},
		{"missing token", "/api/x", echo.NewHTTPError(http.StatusUnauthorized, "Invalid token"), http.StatusUnauthorized, apperr.Unauthenticated, "Invalid token", false},
		{"not admin", "/api/x", echo.NewHTTPError(http.StatusForbidden, "Admin access required"), http.StatusForbidden, apperr.Forbidden, "Admin access required", false},
		{"foreign error hides details", "/api/x", errors.New("pq: connection refused"), http.StatusInternalServerError, apperr.Internal, "Something went wrong. Please try again later.", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEcho()
			e.GET(tt.path, func(c echo.Context) error { return tt.err })

			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if rec.Code != tt.wantCode {
				t.Fatalf("code = %d, want %d", rec.Code, tt.wantCode)
			}
			var body ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Success || body.Kind != tt.wantKind || body.Error != tt.wantError {
				t.Errorf("body = %+v", body)
			}
			if (body.Fields != nil) != tt.wantFields {
				t.Errorf("fields = %v", body.Fields)
			}
		})
	}
}

func TestErrorHandlerRendersCheckoutErrors(t *testing.T) {
	e := newTestEcho()
	e.GET("/p/:id", func(c echo.Context) error { return apperr.NotFoundErr("Transaction not found") })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/p/missing", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("code = %d, want 404", rec.Code)
	}
	if !strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), echo.MIMETextHTML) {
		t.Errorf("content type = %q", rec.Header().Get(echo.HeaderContentType))
	}
	if !strings.Contains(rec.Body.String(), "Payment Not Found") {
		t.Errorf("body = %s", rec.Body.String())
	}
}
