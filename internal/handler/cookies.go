package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/invoice-api/internal/middleware"
)

// RefreshTokenCookie carries the refresh token for browser clients.
const RefreshTokenCookie = "refreshToken"

// CookieConfig decides the attributes of the session cookies.  Production
// gets Secure and SameSite=Strict; elsewhere Lax so a local frontend on
// plain http keeps working.
type CookieConfig struct {
	Production bool
}

func (cc CookieConfig) setTokens(c echo.Context, access string, accessMaxAge time.Duration, refresh string, refreshMaxAge time.Duration) {
	c.SetCookie(cc.cookie(middleware.AccessTokenCookie, access, accessMaxAge))
	c.SetCookie(cc.cookie(RefreshTokenCookie, refresh, refreshMaxAge))
}

func (cc CookieConfig) clearTokens(c echo.Context) {
	for _, name := range []string{middleware.AccessTokenCookie, RefreshTokenCookie} {
		ck := cc.cookie(name, "", 0)
		ck.MaxAge = -1
		ck.Expires = time.Unix(0, 0)
		c.SetCookie(ck)
	}
}

func (cc CookieConfig) cookie(name, value string, maxAge time.Duration) *http.Cookie {
	sameSite := http.SameSiteLaxMode
	if cc.Production {
		sameSite = http.SameSiteStrictMode
	}
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(maxAge / time.Second),
		HttpOnly: true,
		Secure:   cc.Production,
		SameSite: sameSite,
	}
}
