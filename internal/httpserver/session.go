package httpserver

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/oauth"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/transport"
	"github.com/Skotchmaster/storefront/pkg/logging"
	"github.com/Skotchmaster/storefront/pkg/tokens"
)

const stateTTL = 10 * time.Minute

type SessionHTTP struct {
	Auth          *service.AuthService
	Users         *service.UserService
	GitHub        *oauth.GitHub
	SecureCookies bool
}

func (h *SessionHTTP) setSession(c echo.Context, res *service.LoginResult) error {
	for _, ck := range tokens.PairCookies(res.Pair, h.SecureCookies) {
		c.SetCookie(ck)
	}
	return c.JSON(http.StatusOK, transport.SessionResponse{
		User:      transport.NewCurrentUser(res.User),
		AccessExp: res.Pair.AccessExp,
	})
}

func (h *SessionHTTP) clearSession(c echo.Context) {
	c.SetCookie(tokens.DeleteCookie(tokens.AccessCookie, "/", h.SecureCookies))
	c.SetCookie(tokens.DeleteCookie(tokens.RefreshCookie, "/", h.SecureCookies))
}

func (h *SessionHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "session.register")

	var req transport.RegisterRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "register_error", err)
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(l, "register_error", err)
	}

	user, err := h.Auth.Register(ctx, service.RegisterInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Age:       req.Age,
		Password:  req.Password,
	})
	if err != nil {
		return fail(l, "register_error", err)
	}

	l.Info("register_success", "user_id", user.ID.String())
	return c.JSON(http.StatusCreated, transport.NewCurrentUser(user))
}

func (h *SessionHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "session.login")

	var req transport.LoginRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "login_error", err)
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(l, "login_error", err)
	}

	res, err := h.Auth.Login(ctx, req.Email, req.Password)
	if err != nil {
		return fail(l, "login_failed", err)
	}

	l.Info("login_successful", "user_id", res.User.ID.String())
	return h.setSession(c, res)
}

func (h *SessionHTTP) Refresh(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "session.refresh")

	ck, err := c.Cookie(tokens.RefreshCookie)
	if err != nil || ck.Value == "" {
		l.Warn("refresh_failed", "status", 401, "reason", "refresh token missing")
		return echo.NewHTTPError(http.StatusUnauthorized, "refresh token missing")
	}

	res, err := h.Auth.Refresh(ctx, ck.Value)
	if err != nil {
		h.clearSession(c)
		return fail(l, "refresh_failed", err)
	}
	return h.setSession(c, res)
}

func (h *SessionHTTP) Current(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "session.current")

	p, err := principal(c)
	if err != nil {
		return err
	}
	user, err := h.Users.GetUser(ctx, p.UserID)
	if err != nil {
		return fail(l, "current_session_error", err)
	}
	return c.JSON(http.StatusOK, transport.NewCurrentUser(user))
}

// Logout works with an expired access token: the refresh cookie alone
// identifies the session to revoke.
func (h *SessionHTTP) Logout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "session.logout")

	var (
		refresh string
		userID  uuid.UUID
	)
	if ck, err := c.Cookie(tokens.RefreshCookie); err == nil {
		refresh = ck.Value
		if claims, err := tokens.RefreshClaimsFromToken(refresh, h.Auth.Issuer.RefreshSecret); err == nil {
			userID, _ = uuid.Parse(claims.Subject)
		}
	}

	err := h.Auth.Logout(ctx, userID, refresh)
	h.clearSession(c)
	if err != nil {
		l.Error("logout_failed", "status", 500, "reason", "cannot revoke refresh token", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot log out")
	}

	l.Info("successful_logout")
	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}

func (h *SessionHTTP) ForgotPassword(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.forgot_password")

	var req transport.ForgotPasswordRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "forgot_password_error", err)
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(l, "forgot_password_error", err)
	}
	if err := h.Auth.ForgotPassword(ctx, req.Email); err != nil {
		return fail(l, "forgot_password_error", err)
	}
	return c.JSON(http.StatusAccepted, echo.Map{"message": "if the address is registered, a reset link was sent"})
}

func (h *SessionHTTP) ResetPassword(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.reset_password")

	var req transport.ResetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "reset_password_error", err)
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(l, "reset_password_error", err)
	}
	if err := h.Auth.ResetPassword(ctx, req.Token, req.Password, req.ConfirmPassword); err != nil {
		return fail(l, "reset_password_error", err)
	}

	l.Info("reset_password_success")
	return c.JSON(http.StatusOK, echo.Map{"message": "password updated"})
}

func (h *SessionHTTP) GitHubLogin(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "session.github_login")
	if h.GitHub == nil {
		return echo.NewHTTPError(http.StatusNotFound, "github login is not configured")
	}

	state, err := oauth.NewState()
	if err != nil {
		l.Error("github_login_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot start login")
	}
	c.SetCookie(tokens.CreateCookie(oauth.StateCookie, state, "/api/sessions", time.Now().Add(stateTTL), h.SecureCookies))
	return c.Redirect(http.StatusFound, h.GitHub.AuthCodeURL(state))
}

func (h *SessionHTTP) GitHubCallback(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "session.github_callback")
	if h.GitHub == nil {
		return echo.NewHTTPError(http.StatusNotFound, "github login is not configured")
	}

	ck, err := c.Cookie(oauth.StateCookie)
	if err != nil || ck.Value == "" || ck.Value != c.QueryParam("state") {
		l.Warn("github_callback_failed", "status", 401, "reason", oauth.ErrStateMismatch.Error())
		return echo.NewHTTPError(http.StatusUnauthorized, oauth.ErrStateMismatch.Error())
	}
	c.SetCookie(tokens.DeleteCookie(oauth.StateCookie, "/api/sessions", h.SecureCookies))

	profile, err := h.GitHub.Exchange(ctx, c.QueryParam("code"))
	if err != nil {
		l.Warn("github_callback_failed", "status", 401, "reason", "exchange failed", "error", err)
		return echo.NewHTTPError(http.StatusUnauthorized, "github login failed")
	}

	res, err := h.Auth.LoginExternal(ctx, profile.Login, profile.DisplayName())
	if err != nil {
		return fail(l, "github_callback_failed", err)
	}

	l.Info("github_login_successful", "user_id", res.User.ID.String())
	return h.setSession(c, res)
}
