package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// RequireAdmin returns a middleware that enforces that the
// authenticated account carries the is_admin claim. It assumes JWTAuth
// ran earlier and stored the claim under "is_admin"; requests without
// it are aborted with 403 Forbidden. JWT booleans survive JSON
// round-tripping as bool, but the claim is also accepted as a numeric
// 1 because older tokens of the storefront encoded it that way.
func RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !IsAdmin(c) {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "admin privileges required"})
			}
			return next(c)
		}
	}
}

// IsAdmin reports whether the current request carries a valid admin
// claim. Exported because the balance-grant handler allows either
// self-service or admin access and needs the same check outside the
// gate.
func IsAdmin(c echo.Context) bool {
	switch v := c.Get("is_admin").(type) {
	case bool:
		return v
	case float64:
		return v == 1
	}
	return false
}
