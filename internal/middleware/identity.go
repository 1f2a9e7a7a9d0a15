package middleware

import (
	"context"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/invoice-api/internal/model"
)

// Identity is the authenticated caller, loaded from the live user record.
type Identity struct {
	UserID      uint64     `json:"id"`
	Email       string     `json:"email"`
	DisplayName string     `json:"name"`
	Role        model.Role `json:"role"`
}

const identityKey = "identity"

type identityCtxKey struct{}

// SetIdentity attaches id to the echo context and to the request context,
// so code that only sees a context.Context can read it too.
func SetIdentity(c echo.Context, id Identity) {
	c.Set(identityKey, id)
	req := c.Request()
	c.SetRequest(req.WithContext(context.WithValue(req.Context(), identityCtxKey{}, id)))
}

// IdentityFrom returns the identity set by SessionAuth.
func IdentityFrom(c echo.Context) (Identity, bool) {
	id, ok := c.Get(identityKey).(Identity)
	return id, ok
}

// IdentityFromContext is IdentityFrom for a plain context.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityCtxKey{}).(Identity)
	return id, ok
}

// userID returns the caller's id as a string, or "anon" when the request
// is not authenticated.
func userID(c echo.Context) string {
	if id, ok := IdentityFrom(c); ok {
		return strconv.FormatUint(id.UserID, 10)
	}
	return "anon"
}
