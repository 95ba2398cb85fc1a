package httpserver

import (
	"io"
	"mime/multipart"
	"net/http"
	"sort"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/access"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/transport"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

type UserHTTP struct {
	Svc *service.UserService
}

func (h *UserHTTP) ListUsers(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "user.list")

	p, err := principal(c)
	if err != nil {
		return err
	}
	users, err := h.Svc.ListUsers(ctx, p)
	if err != nil {
		return fail(l, "list_users_error", err)
	}
	out := make([]transport.CurrentUser, 0, len(users))
	for i := range users {
		out = append(out, transport.NewCurrentUser(&users[i]))
	}
	return c.JSON(http.StatusOK, out)
}

// PurgeInactive deletes accounts idle past the inactivity window.
func (h *UserHTTP) PurgeInactive(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "user.purge")

	p, err := principal(c)
	if err != nil {
		return err
	}
	deleted, err := h.Svc.PurgeInactiveAs(ctx, p)
	if err != nil {
		return fail(l, "purge_users_error", err)
	}

	l.Info("purge_users_success", "count", len(deleted))
	return c.JSON(http.StatusOK, transport.PurgeResponse{Deleted: deleted, Count: len(deleted)})
}

func (h *UserHTTP) SetRole(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "user.set_role")

	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := uuidParam(c, "uid")
	if err != nil {
		return err
	}
	var req transport.RoleRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "set_role_error", err)
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(l, "set_role_error", err)
	}
	role, err := access.ParseRole(req.Role)
	if err != nil {
		return badRequest(l, "set_role_error", err)
	}

	user, err := h.Svc.SetRole(ctx, p, id, role)
	if err != nil {
		return fail(l, "set_role_error", err)
	}

	l.Info("set_role_success", "user_id", id.String(), "role", role.String())
	return c.JSON(http.StatusOK, transport.NewCurrentUser(user))
}

func (h *UserHTTP) TogglePremium(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "user.toggle_premium")

	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := uuidParam(c, "uid")
	if err != nil {
		return err
	}
	user, err := h.Svc.TogglePremium(ctx, p, id)
	if err != nil {
		return fail(l, "toggle_premium_error", err)
	}

	l.Info("toggle_premium_success", "user_id", id.String(), "role", user.Role.String())
	return c.JSON(http.StatusOK, transport.NewCurrentUser(user))
}

func (h *UserHTTP) DeleteUser(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "user.delete")

	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := uuidParam(c, "uid")
	if err != nil {
		return err
	}
	if _, err := h.Svc.DeleteUser(ctx, p, id); err != nil {
		return fail(l, "delete_user_error", err)
	}

	l.Info("delete_user_success", "user_id", id.String())
	return c.NoContent(http.StatusNoContent)
}

// UploadDocuments accepts one file per document field of a multipart form.
func (h *UserHTTP) UploadDocuments(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "user.upload_documents")

	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := uuidParam(c, "uid")
	if err != nil {
		return err
	}
	form, err := c.MultipartForm()
	if err != nil {
		return badRequest(l, "upload_documents_error", err)
	}

	kinds := make([]string, 0, len(form.File))
	for kind := range form.File {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)

	uploads := make([]service.Upload, 0, len(kinds))
	for _, kind := range kinds {
		for _, fh := range form.File[kind] {
			uploads = append(uploads, service.Upload{
				Kind:     kind,
				Filename: fh.Filename,
				Open:     opener(fh),
			})
		}
	}

	user, err := h.Svc.UploadDocuments(ctx, p, id, uploads)
	if err != nil {
		return fail(l, "upload_documents_error", err)
	}

	l.Info("upload_documents_success", "user_id", id.String(), "count", len(uploads))
	return c.JSON(http.StatusCreated, user.Documents)
}

func opener(fh *multipart.FileHeader) func() (io.ReadCloser, error) {
	return func() (io.ReadCloser, error) { return fh.Open() }
}
