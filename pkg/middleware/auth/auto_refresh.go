package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/pkg/logging"
	"github.com/Skotchmaster/storefront/pkg/tokens"
)

// Context keys set for authenticated requests.
const (
	KeyUserID = "user_id"
	KeyRole   = "role"
	KeyEmail  = "email"
)

// Refresher rotates a refresh token into a new pair.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (*tokens.Pair, error)
}

type RefresherFunc func(ctx context.Context, refreshToken string) (*tokens.Pair, error)

func (f RefresherFunc) Refresh(ctx context.Context, refreshToken string) (*tokens.Pair, error) {
	return f(ctx, refreshToken)
}

type AutoRefreshMiddleware struct {
	JWTSecret     []byte
	Refresher     Refresher
	SecureCookies bool
	// LoginPath, when set, is where browsers asking for HTML are sent
	// instead of getting a 401.
	LoginPath string
}

func NewAutoRefreshMiddleware(secret []byte, refresher Refresher) *AutoRefreshMiddleware {
	return &AutoRefreshMiddleware{
		JWTSecret: secret,
		Refresher: refresher,
	}
}

type ValidatorFunc func(claims *tokens.AccessClaims) error

func (m *AutoRefreshMiddleware) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return m.requireAuthWithValidator(next, nil)
}

// RequireRole admits authenticated callers whose role passes allowed.
func (m *AutoRefreshMiddleware) RequireRole(allowed func(role string) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return m.requireAuthWithValidator(next, func(claims *tokens.AccessClaims) error {
			if !allowed(claims.Role) {
				return echo.NewHTTPError(http.StatusForbidden, "not enough rights")
			}
			return nil
		})
	}
}

func (m *AutoRefreshMiddleware) requireAuthWithValidator(next echo.HandlerFunc, validator ValidatorFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		// An outer auth layer already admitted the caller and may have
		// rotated the refresh token; the request cookies are stale now.
		if uid, ok := c.Get(KeyUserID).(string); ok && uid != "" {
			if validator != nil {
				role, _ := c.Get(KeyRole).(string)
				email, _ := c.Get(KeyEmail).(string)
				claims := &tokens.AccessClaims{Role: role, Email: email}
				claims.Subject = uid
				if err := validator(claims); err != nil {
					return err
				}
			}
			return next(c)
		}

		ctx := c.Request().Context()
		l := logging.FromContext(ctx).With("middleware", "auth")

		accessCookie, err := c.Cookie(tokens.AccessCookie)
		if err != nil || accessCookie.Value == "" {
			return m.unauthorized(c, "missing access token")
		}

		claims, err := tokens.AccessClaimsFromToken(accessCookie.Value, m.JWTSecret)
		if err == nil && claims != nil {
			if validator != nil {
				if validationErr := validator(claims); validationErr != nil {
					return validationErr
				}
			}
			setUserContext(c, claims)
			return next(c)
		}

		if !errors.Is(err, jwt.ErrTokenExpired) {
			m.clearAuthCookies(c)
			l.Warn("auth_failed", "status", 401, "reason", "invalid access token", "error", err)
			return m.unauthorized(c, "invalid access token")
		}

		refreshCookie, rErr := c.Cookie(tokens.RefreshCookie)
		if rErr != nil || refreshCookie.Value == "" || m.Refresher == nil {
			m.clearAuthCookies(c)
			return m.unauthorized(c, "refresh token missing")
		}

		pair, refErr := m.Refresher.Refresh(ctx, refreshCookie.Value)
		if refErr != nil {
			m.clearAuthCookies(c)
			l.Warn("auth_failed", "status", 401, "reason", "refresh failed", "error", refErr)
			return m.unauthorized(c, "refresh failed")
		}
		for _, ck := range tokens.PairCookies(pair, m.SecureCookies) {
			c.SetCookie(ck)
		}

		newClaims, pErr := tokens.AccessClaimsFromToken(pair.AccessToken, m.JWTSecret)
		if pErr != nil || newClaims == nil {
			m.clearAuthCookies(c)
			return m.unauthorized(c, "new access token invalid")
		}
		if validator != nil {
			if validationErr := validator(newClaims); validationErr != nil {
				return validationErr
			}
		}

		l.Info("access_token_refreshed", "user_id", newClaims.Subject)
		setUserContext(c, newClaims)
		return next(c)
	}
}

func (m *AutoRefreshMiddleware) unauthorized(c echo.Context, msg string) error {
	if m.LoginPath != "" && strings.Contains(c.Request().Header.Get(echo.HeaderAccept), echo.MIMETextHTML) {
		return c.Redirect(http.StatusFound, m.LoginPath)
	}
	return echo.NewHTTPError(http.StatusUnauthorized, msg)
}

func (m *AutoRefreshMiddleware) clearAuthCookies(c echo.Context) {
	c.SetCookie(tokens.DeleteCookie(tokens.AccessCookie, "/", m.SecureCookies))
	c.SetCookie(tokens.DeleteCookie(tokens.RefreshCookie, "/", m.SecureCookies))
}

func setUserContext(c echo.Context, claims *tokens.AccessClaims) {
	c.Set(KeyUserID, claims.Subject)
	c.Set(KeyRole, claims.Role)
	c.Set(KeyEmail, claims.Email)
}
