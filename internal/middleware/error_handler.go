package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"storefront_pay/internal/apperr"
	"storefront_pay/web/templates/pages"
)

type ErrorResponse struct {
	Success bool              `json:"success"`
	Error   string            `json:"error"`
	Kind    apperr.Kind       `json:"kind"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func kindForStatus(code int) apperr.Kind {
	switch code {
	case http.StatusBadRequest:
		return apperr.Validation
	case http.StatusUnauthorized:
		return apperr.Unauthenticated
	case http.StatusForbidden:
		return apperr.Forbidden
	case http.StatusNotFound, http.StatusMethodNotAllowed:
		return apperr.NotFound
	case http.StatusConflict:
		return apperr.Conflict
	case http.StatusUnprocessableEntity:
		return apperr.State
	case http.StatusBadGateway:
		return apperr.Gateway
	default:
		return apperr.Internal
	}
}

// NewErrorHandler maps application and echo errors onto the JSON error
// envelope. Public checkout pages get an HTML error page instead.
func NewErrorHandler(log *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		resp := ErrorResponse{Success: false}
		code := http.StatusInternalServerError

		var he *echo.HTTPError
		if ae, ok := apperr.As(err); ok {
			code = apperr.HTTPStatus(ae)
			resp.Kind = ae.Kind
			resp.Error = apperr.PublicMessage(ae)
			resp.Fields = ae.Fields
		} else if errors.As(err, &he) {
			code = he.Code
			resp.Kind = kindForStatus(code)
			resp.Error = http.StatusText(code)
			if msg, ok := he.Message.(string); ok && msg != "" {
				resp.Error = msg
			}
		} else {
			resp.Kind = apperr.Internal
			resp.Error = apperr.PublicMessage(err)
		}

		fields := []zap.Field{
			zap.Int("status", code),
			zap.String("kind", string(resp.Kind)),
			zap.String("path", c.Request().URL.Path),
			zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			zap.Error(err),
		}
		if code >= http.StatusInternalServerError {
			log.Error("request failed", fields...)
		} else {
			log.Debug("request rejected", fields...)
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(code)
		} else if strings.HasPrefix(c.Request().URL.Path, "/p/") {
			err = renderErrorPage(c, code, resp.Error)
		} else {
			err = c.JSON(code, resp)
		}
		if err != nil {
			log.Error("failed to write error response", zap.Error(err))
		}
	}
}

func renderErrorPage(c echo.Context, code int, message string) error {
	title := http.StatusText(code)
	if code == http.StatusNotFound {
		title = "Payment Not Found"
		message = "We couldn't find this payment. Check the link and try again."
	}
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(code)
	return pages.PublicErrorPage(pages.ErrorPageProps{
		Title:        title,
		ErrorTitle:   title,
		ErrorMessage: message,
	}).Render(c.Request().Context(), c.Response())
}
