package httpserver

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/access"
	"github.com/Skotchmaster/storefront/internal/service"
	authmw "github.com/Skotchmaster/storefront/pkg/middleware/auth"
)

var errNoPrincipal = echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")

// principal reads the caller set by the auth middleware.
func principal(c echo.Context) (service.Principal, error) {
	s, _ := c.Get(authmw.KeyUserID).(string)
	id, err := uuid.Parse(s)
	if err != nil {
		return service.Principal{}, errNoPrincipal
	}
	roleStr, _ := c.Get(authmw.KeyRole).(string)
	role, err := access.ParseRole(roleStr)
	if err != nil {
		return service.Principal{}, errNoPrincipal
	}
	email, _ := c.Get(authmw.KeyEmail).(string)
	return service.Principal{UserID: id, Email: email, Role: role}, nil
}

func uuidParam(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, name+" is not a uuid")
	}
	return id, nil
}

// ifMatch parses an If-Match cart version. Absent means unpinned.
func ifMatch(c echo.Context) (*int64, error) {
	raw := strings.TrimSpace(c.Request().Header.Get("If-Match"))
	if raw == "" || raw == "*" {
		return nil, nil
	}
	raw = strings.TrimPrefix(raw, "W/")
	raw = strings.Trim(raw, `"`)
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, errors.New("If-Match must be a cart version")
	}
	return &v, nil
}

func etag(version int64) string {
	return `"` + strconv.FormatInt(version, 10) + `"`
}

// roleGuard adapts an access policy to the auth middleware.
func roleGuard(a access.Action) func(string) bool {
	return func(role string) bool {
		r, err := access.ParseRole(role)
		return err == nil && access.Allowed(r, a)
	}
}
