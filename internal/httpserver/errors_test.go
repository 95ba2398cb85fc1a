package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/transport"
)

func render(t *testing.T, err error) (int, transport.ErrorBody) {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	ErrorHandler(err, c)

	var body transport.ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestErrorHandler(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		code    string
		message string
		details int
	}{
		{name: "raw internal", err: errors.New("pq: connection refused"), status: 500, code: "INTERNAL", message: "internal server error"},
		{name: "raw not found", err: service.ErrCartNotFound, status: 404, code: "NOT_FOUND", message: "cart not found"},
		{name: "echo error", err: echo.NewHTTPError(http.StatusForbidden, "not enough rights"), status: 403, code: "FORBIDDEN", message: "not enough rights"},
		{
			name:    "field error",
			err:     &echo.HTTPError{Code: 400, Message: "invalid request", Internal: fmt.Errorf("wrap: %w", &service.FieldError{Field: "quantity", Message: "must be greater than 0"})},
			status:  400,
			code:    "VALIDATION_ERROR",
			message: "invalid request",
			details: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := render(t, tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, body.Error)
			assert.Equal(t, tt.message, body.Message)
			assert.Len(t, body.Details, tt.details)
		})
	}
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, http.StatusConflict, statusOf(service.ErrCartVersion))
	assert.Equal(t, http.StatusBadRequest, statusOf(service.ErrEmptyCart))
	assert.Equal(t, http.StatusUnauthorized, statusOf(service.ErrInvalidCredential))
	assert.Equal(t, http.StatusInternalServerError, statusOf(errors.New("boom")))
}
