package httpserver

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/transport"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

var errorCodes = map[int]string{
	http.StatusBadRequest:            "VALIDATION_ERROR",
	http.StatusUnauthorized:          "UNAUTHORIZED",
	http.StatusForbidden:             "FORBIDDEN",
	http.StatusNotFound:              "NOT_FOUND",
	http.StatusMethodNotAllowed:      "METHOD_NOT_ALLOWED",
	http.StatusConflict:              "CONFLICT",
	http.StatusPreconditionFailed:    "PRECONDITION_FAILED",
	http.StatusRequestEntityTooLarge: "PAYLOAD_TOO_LARGE",
	http.StatusTooManyRequests:       "TOO_MANY_REQUESTS",
	http.StatusServiceUnavailable:    "UNAVAILABLE",
}

func errorCode(status int) string {
	if code, ok := errorCodes[status]; ok {
		return code
	}
	if status >= 500 {
		return "INTERNAL"
	}
	return "ERROR"
}

// statusOf maps the service taxonomy onto HTTP status codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// fail logs a service error at the level its status deserves and turns it
// into an HTTP error. Internal errors never leak their text.
func fail(l *slog.Logger, event string, err error) error {
	status := statusOf(err)
	if status >= 500 {
		l.Error(event, "status", status, "error", err)
		return &echo.HTTPError{Code: status, Message: "internal server error", Internal: err}
	}
	l.Warn(event, "status", status, "reason", err.Error())
	return &echo.HTTPError{Code: status, Message: publicMessage(err), Internal: err}
}

func publicMessage(err error) string {
	var fe *service.FieldError
	if errors.As(err, &fe) {
		return "invalid request"
	}
	return err.Error()
}

// badRequest wraps a bind or validation failure so the error handler can
// list the offending fields.
func badRequest(l *slog.Logger, event string, err error) error {
	l.Warn(event, "status", 400, "reason", "invalid body", "error", err)
	return &echo.HTTPError{Code: http.StatusBadRequest, Message: "invalid request", Internal: err}
}

func details(err error) []transport.FieldDetail {
	if err == nil {
		return nil
	}
	var fe *service.FieldError
	if errors.As(err, &fe) {
		return []transport.FieldDetail{{Field: fe.Field, Message: fe.Message}}
	}
	return transport.Details(err)
}

// ErrorHandler renders every error as {"error", "message", "details"}.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	message := "internal server error"
	var internal error

	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		if msg, ok := he.Message.(string); ok {
			message = msg
		} else if he.Message != nil {
			message = http.StatusText(status)
		}
		internal = he.Internal
	} else {
		status = statusOf(err)
		if status < 500 {
			message = publicMessage(err)
		}
		internal = err
	}

	body := transport.ErrorBody{
		Error:   errorCode(status),
		Message: message,
		Details: details(internal),
	}

	var werr error
	if c.Request().Method == http.MethodHead {
		werr = c.NoContent(status)
	} else {
		werr = c.JSON(status, body)
	}
	if werr != nil {
		logging.FromContext(c.Request().Context()).Error("error_response_failed", "error", werr)
	}
}
