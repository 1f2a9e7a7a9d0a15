package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/invoice-api/internal/apperr"
	"github.com/iliyamo/invoice-api/internal/model"
)

// RequireRole lets the request through only when the identity set by
// SessionAuth has one of roles.  It must run after SessionAuth; without an
// identity the request is answered with 401, with the wrong role with 403.
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
	allowed := make(map[model.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, ok := IdentityFrom(c)
			if !ok {
				return apperr.Unauthenticated("Authentication required")
			}
			if !allowed[id.Role] {
				return apperr.Forbidden("Access denied")
			}
			return next(c)
		}
	}
}
