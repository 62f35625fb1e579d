package middleware // middleware provides shared request processing for handlers

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/threatpulse/securesoc/internal/repository"
	"github.com/threatpulse/securesoc/internal/utils"
)

// Context keys populated by BearerAuth for downstream handlers.
const (
	CtxAccountID = "account_id"
	CtxRole      = "role"
)

// BearerAuth returns an Echo middleware that validates a Bearer session token
// and injects the account ID and role into the request context. Verification
// is two-step: the token signature and expiry are checked statelessly, then
// the sessions table is consulted so revoked sessions die immediately. The
// role is re-read from the accounts table on every request rather than taken
// from any client-side cache, so server-side role changes apply at once.
func BearerAuth(secret string, sessions *repository.SessionRepo, accounts *repository.AccountRepo) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			raw := strings.TrimPrefix(auth, "Bearer ")

			accountID, err := utils.VerifySessionToken(secret, raw)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}

			ctx := c.Request().Context()
			sessionAccount, err := sessions.Validate(ctx, utils.HashToken(raw))
			if err != nil || sessionAccount != accountID {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}

			acc, err := accounts.GetByID(ctx, accountID)
			if err != nil || !acc.IsActive {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}

			c.Set(CtxAccountID, acc.ID)
			c.Set(CtxRole, acc.Role)
			return next(c)
		}
	}
}

// AccountID returns the authenticated account ID stored by BearerAuth, or ""
// when the request is unauthenticated.
func AccountID(c echo.Context) string {
	if s, ok := c.Get(CtxAccountID).(string); ok {
		return s
	}
	return ""
}

// Role returns the authenticated account's role stored by BearerAuth.
func Role(c echo.Context) string {
	if s, ok := c.Get(CtxRole).(string); ok {
		return s
	}
	return ""
}
