package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/invoice-api/internal/apperr"
	"github.com/iliyamo/invoice-api/internal/model"
	"github.com/iliyamo/invoice-api/internal/repository"
	"github.com/iliyamo/invoice-api/internal/service"
)

// AccessTokenCookie carries the access token for browser clients.
const AccessTokenCookie = "accessToken"

// AccessVerifier checks an access token.  service.TokenService implements it.
type AccessVerifier interface {
	VerifyAccess(raw string) (service.AccessClaims, error)
}

// UserLookup loads the user behind a verified token.
type UserLookup interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// SessionAuth authenticates the request.  The access token is read from the
// accessToken cookie first and from an Authorization: Bearer header
// otherwise.  On success the caller's Identity is attached to the context.
//
// An expired token answers 401 AUTHENTICATION_EXPIRED so clients know to
// refresh; every other failure answers 401 AUTHENTICATION_REQUIRED.
func SessionAuth(tokens AccessVerifier, users UserLookup) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := accessToken(c.Request())
			if raw == "" {
				return apperr.Unauthenticated("Authentication required")
			}

			claims, err := tokens.VerifyAccess(raw)
			if errors.Is(err, service.ErrTokenExpired) {
				return apperr.Expired("Access token expired")
			}
			if err != nil {
				return apperr.Unauthenticated("Invalid access token")
			}

			u, err := users.GetByID(c.Request().Context(), claims.UserID)
			if errors.Is(err, repository.ErrNotFound) {
				return apperr.Unauthenticated("User no longer exists")
			}
			if err != nil {
				return apperr.Wrap(apperr.Internal, "load session user", err)
			}

			SetIdentity(c, Identity{
				UserID:      u.ID,
				Email:       u.Email,
				DisplayName: u.DisplayName,
				Role:        u.Role,
			})
			return next(c)
		}
	}
}

func accessToken(r *http.Request) string {
	if ck, err := r.Cookie(AccessTokenCookie); err == nil && ck.Value != "" {
		return ck.Value
	}
	auth := r.Header.Get(echo.HeaderAuthorization)
	if len(auth) > 7 && strings.EqualFold(auth[:7], "Bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}
