package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/invoice-api/internal/apperr"
)

type errorBody struct {
	Message string              `json:"message"`
	Code    string              `json:"code,omitempty"`
	Errors  []apperr.FieldError `json:"errors,omitempty"`
	Stack   string              `json:"stack,omitempty"`
}

// ErrorHandler renders every error returned by handlers and middleware.
//
// Operational errors (*apperr.Error of any kind but Internal) keep their
// message.  Everything else is logged and answered with a generic 500.  In
// development the body also carries the full error chain.
func ErrorHandler(log *zap.Logger, development bool) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		status, body := renderError(err)
		if status >= http.StatusInternalServerError {
			log.Error("Unhandled error",
				zap.Error(err),
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)
		}
		if development {
			body.Stack = err.Error()
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(status)
		} else {
			werr = c.JSON(status, body)
		}
		if werr != nil {
			log.Warn("write error response", zap.Error(werr))
		}
	}
}

func renderError(err error) (int, errorBody) {
	var ae *apperr.Error
	if errors.As(err, &ae) && ae.Operational() {
		return ae.Kind.Status(), errorBody{Message: ae.Message, Code: ae.Kind.Code(), Errors: ae.Fields}
	}
	var he *echo.HTTPError
	if errors.As(err, &he) && he.Code < http.StatusInternalServerError {
		msg := http.StatusText(he.Code)
		if s, ok := he.Message.(string); ok && s != "" {
			msg = s
		} else if he.Message != nil {
			msg = fmt.Sprint(he.Message)
		}
		return he.Code, errorBody{Message: msg, Code: statusCode(he.Code)}
	}
	return http.StatusInternalServerError, errorBody{Message: "Internal server error", Code: apperr.Internal.Code()}
}

// statusCode turns 405 into METHOD_NOT_ALLOWED and so on.
func statusCode(status int) string {
	return strings.ToUpper(strings.ReplaceAll(http.StatusText(status), " ", "_"))
}
