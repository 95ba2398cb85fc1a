package httpserver

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/Skotchmaster/storefront/internal/access"
	"github.com/Skotchmaster/storefront/internal/metrics"
	"github.com/Skotchmaster/storefront/internal/transport"
	authmw "github.com/Skotchmaster/storefront/pkg/middleware/auth"
	"github.com/Skotchmaster/storefront/pkg/middleware/csrf"
	loggingmw "github.com/Skotchmaster/storefront/pkg/middleware/logging"
)

const uploadLimit = "10M"

// Pinger reports whether a backing store is reachable.
type Pinger func(ctx context.Context) error

type Deps struct {
	Logger *slog.Logger

	Sessions *SessionHTTP
	Products *ProductHTTP
	Carts    *CartHTTP
	Users    *UserHTTP
	Chat     *ChatHTTP

	JWTSecret     []byte
	Refresher     authmw.Refresher
	SecureCookies bool
	// LoginPath is where unauthenticated browsers are redirected.
	LoginPath string
	// CSRF is nil when the check is disabled.
	CSRF *csrf.Config

	Metrics *metrics.ServerMetrics
	Ready   Pinger
}

// New builds the echo instance with the middleware chain and every route.
func New(d *Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = transport.NewValidator()
	e.HTTPErrorHandler = ErrorHandler

	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 15 * time.Second
	e.Server.ReadHeaderTimeout = 3 * time.Second

	e.Use(middleware.RequestID())
	e.Use(loggingmw.RequestLoggerWithConfig(loggingmw.Config{Logger: d.Logger, Skipper: loggingmw.SkipProbes}))
	e.Use(middleware.Recover())
	if d.Metrics != nil {
		e.Use(d.Metrics.Middleware())
	}

	Register(e, d)
	return e
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		if d.Ready == nil {
			return c.NoContent(http.StatusOK)
		}
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := d.Ready(ctx); err != nil {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "db_error"})
		}
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	})
	if d.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(d.Metrics.Handler()))
	}

	authMW := authmw.NewAutoRefreshMiddleware(d.JWTSecret, d.Refresher)
	authMW.SecureCookies = d.SecureCookies
	authMW.LoginPath = d.LoginPath
	requireAuth := authMW.RequireAuth
	can := func(a access.Action) echo.MiddlewareFunc { return authMW.RequireRole(roleGuard(a)) }

	api := e.Group("/api")
	if d.CSRF != nil {
		api.Use(csrf.Middleware(*d.CSRF))
	}

	sessions := api.Group("/sessions")
	sessions.POST("/register", d.Sessions.Register)
	sessions.POST("/login", d.Sessions.Login)
	sessions.POST("/refresh", d.Sessions.Refresh)
	sessions.POST("/logout", d.Sessions.Logout)
	sessions.GET("/current", d.Sessions.Current, requireAuth)
	sessions.GET("/login/github", d.Sessions.GitHubLogin)
	sessions.GET("/login/github/callback", d.Sessions.GitHubCallback)

	authGroup := api.Group("/auth")
	authGroup.POST("/forgot-password", d.Sessions.ForgotPassword)
	authGroup.POST("/reset-password", d.Sessions.ResetPassword)

	products := api.Group("/products")
	products.GET("", d.Products.GetProducts)
	products.GET("/search", d.Products.SearchProducts)
	products.GET("/mockingproducts", d.Products.MockProducts)
	products.GET("/:id", d.Products.GetProduct)
	products.POST("", d.Products.CreateProduct, can(access.ActionCreateProduct))
	products.PUT("/:id", d.Products.UpdateProduct, can(access.ActionUpdateProduct))
	products.DELETE("/:id", d.Products.DeleteProduct, can(access.ActionDeleteProduct))

	carts := api.Group("/carts", requireAuth)
	carts.GET("", d.Carts.ListCarts, can(access.ActionViewCarts))
	carts.POST("", d.Carts.EnsureCart, can(access.ActionManageOwnCart))
	carts.GET("/:cid", d.Carts.GetCart)
	carts.PUT("/:cid", d.Carts.SetLine)
	carts.DELETE("/:cid", d.Carts.DeleteCart)
	carts.DELETE("/:cid/products", d.Carts.ClearCart)
	carts.POST("/:cid/product/:pid", d.Carts.AddProduct)
	carts.PUT("/:cid/product/:pid", d.Carts.SetQuantity)
	carts.DELETE("/:cid/product/:pid", d.Carts.RemoveProduct)
	carts.POST("/:cid/purchase", d.Carts.Purchase, can(access.ActionPurchase))

	api.GET("/tickets", d.Carts.ListTickets, requireAuth)

	users := api.Group("/users", requireAuth)
	users.GET("", d.Users.ListUsers, can(access.ActionManageUsers))
	users.DELETE("", d.Users.PurgeInactive, can(access.ActionManageUsers))
	users.PUT("/premium/:uid", d.Users.TogglePremium)
	users.PUT("/:uid/role", d.Users.SetRole, can(access.ActionManageUsers))
	users.DELETE("/:uid", d.Users.DeleteUser, can(access.ActionManageUsers))
	users.POST("/:uid/documents", d.Users.UploadDocuments, middleware.BodyLimit(uploadLimit))

	chat := api.Group("/chat/messages", requireAuth)
	chat.GET("", d.Chat.ListMessages)
	chat.POST("", d.Chat.PostMessage, can(access.ActionChat))
}
