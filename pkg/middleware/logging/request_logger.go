package loggingmw

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/Skotchmaster/storefront/pkg/logging"
)

type Config struct {
	Logger *slog.Logger
	// Skipper bypasses the access line; the request logger is still
	// attached to the context.
	Skipper middleware.Skipper
}

// SkipProbes keeps health checks and scrapes out of the access log.
func SkipProbes(c echo.Context) bool {
	p := c.Request().URL.Path
	return strings.HasPrefix(p, "/health/") || p == "/metrics"
}

func RequestLogger(base *slog.Logger) echo.MiddlewareFunc {
	return RequestLoggerWithConfig(Config{Logger: base})
}

// RequestLoggerWithConfig scopes a logger to the request and writes one
// access line after the handler has run. Errors are rendered here so the
// line carries the final status.
func RequestLoggerWithConfig(cfg Config) echo.MiddlewareFunc {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Skipper == nil {
		cfg.Skipper = middleware.DefaultSkipper
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			rid := req.Header.Get(echo.HeaderXRequestID)
			if rid == "" {
				rid = c.Response().Header().Get(echo.HeaderXRequestID)
			}

			l := cfg.Logger
			if rid != "" {
				l = l.With("request_id", rid)
				c.Response().Header().Set(echo.HeaderXRequestID, rid)
			}
			c.SetRequest(req.WithContext(logging.IntoContext(req.Context(), l)))

			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			if cfg.Skipper(c) {
				return nil
			}

			res := c.Response()
			attrs := []any{
				"method", req.Method,
				"path", c.Path(),
				"uri", req.URL.RequestURI(),
				"remote_ip", c.RealIP(),
				"status", res.Status,
				"duration_ms", time.Since(start).Milliseconds(),
				"bytes", res.Size,
			}
			if uid, ok := c.Get("user_id").(string); ok && uid != "" {
				attrs = append(attrs, "user_id", uid)
			}
			if err != nil {
				attrs = append(attrs, "error", cause(err))
			}

			switch {
			case res.Status >= 500:
				l.Error("http_request", attrs...)
			case res.Status >= 400:
				l.Warn("http_request", attrs...)
			default:
				l.Info("http_request", attrs...)
			}
			return nil
		}
	}
}

// cause prefers the wrapped internal error over the client-facing message.
func cause(err error) string {
	var he *echo.HTTPError
	if errors.As(err, &he) && he.Internal != nil {
		return he.Internal.Error()
	}
	return err.Error()
}
