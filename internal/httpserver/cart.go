package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/transport"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

type CartHTTP struct {
	Svc *service.CartService
}

func writeCart(c echo.Context, status int, cart *models.Cart) error {
	c.Response().Header().Set("ETag", etag(cart.Version))
	return c.JSON(status, cart)
}

func (h *CartHTTP) ListCarts(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.list")

	p, err := principal(c)
	if err != nil {
		return err
	}
	carts, err := h.Svc.ListCarts(ctx, p)
	if err != nil {
		return fail(l, "list_carts_error", err)
	}
	return c.JSON(http.StatusOK, carts)
}

// EnsureCart returns the caller's cart, creating it the first time.
func (h *CartHTTP) EnsureCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.ensure")

	p, err := principal(c)
	if err != nil {
		return err
	}
	cart, err := h.Svc.EnsureCart(ctx, p)
	if err != nil {
		return fail(l, "ensure_cart_error", err)
	}
	return writeCart(c, http.StatusOK, cart)
}

func (h *CartHTTP) GetCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.get")

	p, err := principal(c)
	if err != nil {
		return err
	}
	cartID, err := uuidParam(c, "cid")
	if err != nil {
		return err
	}
	cart, err := h.Svc.GetCart(ctx, p, cartID)
	if err != nil {
		return fail(l, "get_cart_error", err)
	}
	return writeCart(c, http.StatusOK, cart)
}

// SetLine sets {productId, quantity} on the cart; zero removes the line.
func (h *CartHTTP) SetLine(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.set_line")

	p, err := principal(c)
	if err != nil {
		return err
	}
	cartID, err := uuidParam(c, "cid")
	if err != nil {
		return err
	}
	version, err := ifMatch(c)
	if err != nil {
		return badRequest(l, "set_line_error", err)
	}
	var req transport.CartLineRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "set_line_error", err)
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(l, "set_line_error", err)
	}

	cart, err := h.Svc.SetQuantity(ctx, p, cartID, req.ProductID, *req.Quantity, version)
	if err != nil {
		return fail(l, "set_line_error", err)
	}
	return writeCart(c, http.StatusOK, cart)
}

func (h *CartHTTP) AddProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.add_product")

	p, err := principal(c)
	if err != nil {
		return err
	}
	cartID, err := uuidParam(c, "cid")
	if err != nil {
		return err
	}
	productID, err := uuidParam(c, "pid")
	if err != nil {
		return err
	}
	version, err := ifMatch(c)
	if err != nil {
		return badRequest(l, "add_to_cart_error", err)
	}
	req := transport.AddToCartRequest{Quantity: 1}
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return badRequest(l, "add_to_cart_error", err)
		}
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(l, "add_to_cart_error", err)
	}

	cart, err := h.Svc.AddProduct(ctx, p, cartID, productID, req.Quantity, version)
	if err != nil {
		return fail(l, "add_to_cart_error", err)
	}

	l.Info("item_added_to_cart", "cart_id", cartID.String(), "product_id", productID.String())
	return writeCart(c, http.StatusCreated, cart)
}

func (h *CartHTTP) SetQuantity(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.set_quantity")

	p, err := principal(c)
	if err != nil {
		return err
	}
	cartID, err := uuidParam(c, "cid")
	if err != nil {
		return err
	}
	productID, err := uuidParam(c, "pid")
	if err != nil {
		return err
	}
	version, err := ifMatch(c)
	if err != nil {
		return badRequest(l, "set_quantity_error", err)
	}
	var req transport.SetQuantityRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "set_quantity_error", err)
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(l, "set_quantity_error", err)
	}

	cart, err := h.Svc.SetQuantity(ctx, p, cartID, productID, *req.Quantity, version)
	if err != nil {
		return fail(l, "set_quantity_error", err)
	}
	return writeCart(c, http.StatusOK, cart)
}

func (h *CartHTTP) RemoveProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.remove_product")

	p, err := principal(c)
	if err != nil {
		return err
	}
	cartID, err := uuidParam(c, "cid")
	if err != nil {
		return err
	}
	productID, err := uuidParam(c, "pid")
	if err != nil {
		return err
	}
	version, err := ifMatch(c)
	if err != nil {
		return badRequest(l, "remove_from_cart_error", err)
	}

	cart, err := h.Svc.RemoveProduct(ctx, p, cartID, productID, version)
	if err != nil {
		return fail(l, "remove_from_cart_error", err)
	}
	return writeCart(c, http.StatusOK, cart)
}

func (h *CartHTTP) ClearCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.clear")

	p, err := principal(c)
	if err != nil {
		return err
	}
	cartID, err := uuidParam(c, "cid")
	if err != nil {
		return err
	}
	version, err := ifMatch(c)
	if err != nil {
		return badRequest(l, "clear_cart_error", err)
	}

	cart, err := h.Svc.ClearCart(ctx, p, cartID, version)
	if err != nil {
		return fail(l, "clear_cart_error", err)
	}

	l.Info("cart_cleared", "cart_id", cartID.String())
	return writeCart(c, http.StatusOK, cart)
}

func (h *CartHTTP) DeleteCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.delete")

	p, err := principal(c)
	if err != nil {
		return err
	}
	cartID, err := uuidParam(c, "cid")
	if err != nil {
		return err
	}
	if err := h.Svc.DeleteCart(ctx, p, cartID); err != nil {
		return fail(l, "delete_cart_error", err)
	}

	l.Info("cart_deleted", "cart_id", cartID.String())
	return c.NoContent(http.StatusNoContent)
}

func (h *CartHTTP) Purchase(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.purchase")

	p, err := principal(c)
	if err != nil {
		return err
	}
	cartID, err := uuidParam(c, "cid")
	if err != nil {
		return err
	}

	res, err := h.Svc.Purchase(ctx, p, cartID)
	if err != nil {
		return fail(l, "purchase_error", err)
	}
	msg := "purchase completed"
	switch {
	case len(res.Ticket.Lines) == 0:
		msg = "no products could be purchased"
	case len(res.NotPurchased) > 0:
		msg = "purchase completed partially"
	}
	return c.JSON(http.StatusOK, transport.CheckoutResponse{
		Message:      msg,
		Ticket:       res.Ticket,
		NotPurchased: res.NotPurchased,
	})
}

func (h *CartHTTP) ListTickets(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "ticket.list")

	p, err := principal(c)
	if err != nil {
		return err
	}
	tickets, err := h.Svc.ListTickets(ctx, p)
	if err != nil {
		return fail(l, "list_tickets_error", err)
	}
	return c.JSON(http.StatusOK, tickets)
}
