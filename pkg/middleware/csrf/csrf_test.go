package csrf

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer() *echo.Echo {
	e := echo.New()
	e.Use(Middleware(Config{SkipPrefixes: []string{"/api/sessions/"}}))
	ok := func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }
	e.GET("/api/products", ok)
	e.POST("/api/products", ok)
	e.POST("/api/sessions/login", ok)
	return e
}

func fetchToken(t *testing.T, e *echo.Echo) string {
	t.Helper()
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/products", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)
	token := rec.Header().Get("X-CSRF-Token")
	require.NotEmpty(t, token)
	return token
}

func TestCSRF(t *testing.T) {
	e := newServer()
	token := fetchToken(t, e)

	tests := []struct {
		name   string
		origin string
		header string
		want   int
	}{
		{name: "matching token", origin: "http://example.com", header: token, want: http.StatusNoContent},
		{name: "missing token", origin: "http://example.com", want: http.StatusForbidden},
		{name: "wrong token", origin: "http://example.com", header: "nope", want: http.StatusForbidden},
		{name: "foreign origin", origin: "http://evil.test", header: token, want: http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/products", nil)
			req.AddCookie(&http.Cookie{Name: "XSRF-TOKEN", Value: token})
			req.Header.Set("Origin", tt.origin)
			if tt.header != "" {
				req.Header.Set("X-CSRF-Token", tt.header)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestCSRF_SkipPrefixes(t *testing.T) {
	e := newServer()
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/sessions/login", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
