package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/threatpulse/securesoc/internal/config"
	"github.com/threatpulse/securesoc/internal/handler"
	"github.com/threatpulse/securesoc/internal/middleware"
	"github.com/threatpulse/securesoc/internal/permission"
	"github.com/threatpulse/securesoc/internal/repository"
)

// Handlers bundles every handler the router wires up.
type Handlers struct {
	Auth    *handler.AuthHandler
	MFA     *handler.MFAHandler
	Profile *handler.ProfileHandler
	Users   *handler.UsersHandler
	Audit   *handler.AuditHandler
}

// Register wires all application routes onto the Echo instance.
//
// Three tiers: unauthenticated auth endpoints (rate limited), bearer-protected
// endpoints available to any signed-in account, and capability-gated admin
// endpoints. Capability checks go through the permission table; no route
// names a role directly.
func Register(e *echo.Echo, cfg config.Config, h Handlers,
	sessions *repository.SessionRepo, accounts *repository.AccountRepo, rdb *redis.Client) {

	e.GET("/healthz", handler.Health)

	// Unauthenticated sign-in surface. Rate limited per IP to slow down
	// credential stuffing; everything else here carries no session yet.
	authGroup := e.Group("/v1/auth")
	authGroup.Use(middleware.RateLimit(config.LoadRateLimitConfig(), rdb))
	authGroup.POST("/signup", h.Auth.SignUp)
	authGroup.POST("/signin", h.Auth.SignIn)
	authGroup.POST("/mfa", h.Auth.VerifyMFA)

	// Everything below requires a live session.
	protected := e.Group("/v1")
	protected.Use(middleware.BearerAuth(cfg.JWTSecret, sessions, accounts))

	protected.POST("/auth/signout", h.Auth.SignOut)

	protected.GET("/me", h.Profile.Me)
	protected.PATCH("/me", h.Profile.UpdateMe)
	protected.GET("/me/permissions", h.Profile.Permissions)

	protected.POST("/mfa/enroll", h.MFA.BeginEnroll)
	protected.POST("/mfa/enroll/activate", h.MFA.ActivateEnroll)
	protected.DELETE("/mfa", h.MFA.Disable)

	users := protected.Group("/users")
	users.Use(middleware.RequirePermission(func(p permission.Set) bool { return p.CanManageUsers }))
	users.GET("", h.Users.List)
	users.PATCH("/:id", h.Users.Update)
	users.DELETE("/:id", h.Users.Delete)

	protected.GET("/audit", h.Audit.List,
		middleware.RequirePermission(func(p permission.Set) bool { return p.CanViewAuditLog }))
	protected.DELETE("/audit", h.Audit.Purge,
		middleware.RequirePermission(func(p permission.Set) bool { return p.CanDeleteAuditLog }))
}
