package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/invoice-api/internal/handler"
	"github.com/iliyamo/invoice-api/internal/metrics"
	"github.com/iliyamo/invoice-api/internal/middleware"
	"github.com/iliyamo/invoice-api/internal/model"
)

// APIPrefix is where the versioned API is mounted.
const APIPrefix = "/api/v1"

// RegisterRoutes registers the unauthenticated infrastructure endpoints:
// liveness checks and the Prometheus scrape endpoint.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
	e.GET("/api/health", handler.APIHealth)
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))
}

// RegisterAuth registers the auth endpoints.  register, login and refresh
// sit behind the rate limiter.  logout needs neither a session nor a limiter
// slot; /me requires a session.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, session, limiter echo.MiddlewareFunc) {
	g := e.Group(APIPrefix + "/auth")
	g.POST("/register", a.Register, limiter)
	g.POST("/login", a.Login, limiter)
	g.POST("/refresh", a.Refresh, limiter)
	// Logout works without a valid access token so an expired session can
	// still be cleared.
	g.POST("/logout", a.Logout)
	g.GET("/me", a.Me, session)
}

// RegisterPayments registers the pay endpoint.  Any signed-in user may ask;
// the service allows the invoice owner or an admin.
func RegisterPayments(e *echo.Echo, p *handler.PaymentHandler, session echo.MiddlewareFunc) {
	g := e.Group(APIPrefix+"/invoices", session)
	g.POST("/:invoiceId/pay", p.Pay)
}

// RegisterUsers registers the admin-only user listing.
func RegisterUsers(e *echo.Echo, u *handler.UserHandler, session echo.MiddlewareFunc) {
	g := e.Group(APIPrefix+"/users", session, middleware.RequireRole(model.RoleAdmin))
	g.GET("", u.List)
}

// RegisterWebhooks registers processor callbacks.  They authenticate by
// signature, not by session.
func RegisterWebhooks(e *echo.Echo, w *handler.WebhookHandler) {
	e.POST(APIPrefix+"/webhooks/stripe", w.Stripe)
}
