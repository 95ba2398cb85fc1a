package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/transport"
	"github.com/Skotchmaster/storefront/internal/util"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

type ChatHTTP struct {
	Svc *service.ChatService
}

func (h *ChatHTTP) PostMessage(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "chat.post")

	p, err := principal(c)
	if err != nil {
		return err
	}
	var req transport.ChatRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "post_message_error", err)
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(l, "post_message_error", err)
	}

	msg, err := h.Svc.PostMessage(ctx, p, req.Message)
	if err != nil {
		return fail(l, "post_message_error", err)
	}
	return c.JSON(http.StatusCreated, msg)
}

func (h *ChatHTTP) ListMessages(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "chat.list")

	msgs, err := h.Svc.ListMessages(ctx, util.ParseIntDefault(c.QueryParam("limit"), 0))
	if err != nil {
		return fail(l, "list_messages_error", err)
	}
	return c.JSON(http.StatusOK, msgs)
}
