package router // package router defines how HTTP routes are registered for the API

import (
    "github.com/labstack/echo/v4"

    "github.com/karimdhz/atelier-portal/internal/handler"
    "github.com/karimdhz/atelier-portal/internal/middleware"
    "github.com/karimdhz/atelier-portal/internal/realtime"
    "github.com/karimdhz/atelier-portal/internal/repository"
)

// RegisterRoutes registers routes that carry no authentication at all.
// Currently this is only the health check used by load balancers.
func RegisterRoutes(e *echo.Echo) {
    e.GET("/healthz", handler.Health)
}

// RegisterAuth mounts the /auth endpoints.  The public group additionally
// runs the expired-token sweep so a stale Authorization header left by a
// client does not interfere with anonymous access; protected routes run the
// full identity chain instead and report TOKEN_EXPIRED themselves.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, secret string, store repository.UserStore) {
    authed := middleware.Authenticate(secret, store)

    g := e.Group("/auth")
    g.Use(middleware.StripExpiredToken(secret))
    g.POST("/register", a.Register)
    g.POST("/login", a.Login)
    g.POST("/reset-password", a.RequestPasswordReset)
    g.POST("/verify-and-reset-password", a.VerifyAndResetPassword)
    g.POST("/verify-email", a.VerifyEmail)

    e.GET("/auth/profile", a.Profile, authed)
    e.GET("/auth/", a.List, authed, middleware.RequireRole("admin"))
}

// RegisterUsers mounts the account administration endpoints.  Provisioning
// is public (admin-provisioned accounts start approved); everything else
// establishes identity first, and the approval machine is admin only.
func RegisterUsers(e *echo.Echo, u *handler.UserHandler, secret string, store repository.UserStore) {
    authed := middleware.Authenticate(secret, store)
    admin := middleware.RequireRole("admin")

    g := e.Group("/users")
    g.POST("/", u.Create)
    g.GET("/pending", u.Pending, authed, admin)
    g.PATCH("/:id/approve", u.Approve, authed, admin)
    g.PATCH("/:id/reject", u.Reject, authed, admin)
    g.GET("/", u.List, authed, admin)
    g.GET("/:id", u.Get, authed, admin)
    g.PUT("/:id", u.Update, authed)
    g.DELETE("/:id", u.Delete, authed)
}

// RegisterRealtime mounts the websocket endpoint.  The hub performs its own
// token verification during the handshake, so no HTTP middleware runs here.
func RegisterRealtime(e *echo.Echo, hub *realtime.Hub, secret string) {
    e.GET("/ws", hub.Handler(secret))
}
