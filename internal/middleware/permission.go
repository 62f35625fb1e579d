package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/threatpulse/securesoc/internal/permission"
)

// RequirePermission returns a middleware that enforces a single capability
// from the permission table. The capability is selected with a function so
// the table stays the only place roles are interpreted; no handler branches
// on role names. Permissions are resolved fresh from the role placed in the
// context by BearerAuth on this request, never from a cached set. A missing
// or unknown role resolves to the all-false set and is denied.
func RequirePermission(capability func(permission.Set) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			perms := permission.Resolve(Role(c))
			if !capability(perms) {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			return next(c)
		}
	}
}
