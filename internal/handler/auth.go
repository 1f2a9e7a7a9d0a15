package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/invoice-api/internal/apperr"
	"github.com/iliyamo/invoice-api/internal/middleware"
	"github.com/iliyamo/invoice-api/internal/model"
	"github.com/iliyamo/invoice-api/internal/service"
)

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Auth    *service.AuthService
	Cookies CookieConfig
}

func NewAuthHandler(auth *service.AuthService, cookies CookieConfig) *AuthHandler {
	return &AuthHandler{Auth: auth, Cookies: cookies}
}

// ----- DTOs -----

type registerReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Name     string `json:"name" validate:"required,max=100"`
}
type loginReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}
type refreshReq struct {
	RefreshToken string `json:"refreshToken"`
}

type userResp struct {
	ID    uint64     `json:"id"`
	Email string     `json:"email"`
	Name  string     `json:"name"`
	Role  model.Role `json:"role"`
}
type authResp struct {
	User        userResp `json:"user"`
	AccessToken string   `json:"accessToken"`
	ExpiresIn   int64    `json:"expiresIn"`
}
type tokenResp struct {
	AccessToken string `json:"accessToken"`
	ExpiresIn   int64  `json:"expiresIn"`
}

// Register: create user and return tokens immediately.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	u, pair, err := h.Auth.Register(c.Request().Context(), service.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
	})
	if err != nil {
		return err
	}
	h.setCookies(c, pair)
	return c.JSON(http.StatusCreated, authResp{User: toUserResp(u), AccessToken: pair.AccessToken, ExpiresIn: pair.ExpiresIn})
}

// Login: verify credentials and issue a new pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	u, pair, err := h.Auth.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	h.setCookies(c, pair)
	return c.JSON(http.StatusOK, authResp{User: toUserResp(u), AccessToken: pair.AccessToken, ExpiresIn: pair.ExpiresIn})
}

// Refresh: rotate the refresh token.  The cookie wins over the body.
func (h *AuthHandler) Refresh(c echo.Context) error {
	raw := h.refreshToken(c)
	if raw == "" {
		return apperr.Unauthenticated("Refresh token required")
	}
	pair, err := h.Auth.Refresh(c.Request().Context(), raw)
	if err != nil {
		return err
	}
	h.setCookies(c, pair)
	return c.JSON(http.StatusOK, tokenResp{AccessToken: pair.AccessToken, ExpiresIn: pair.ExpiresIn})
}

// Logout: revoke the refresh token if any and clear cookies.  Always 200.
func (h *AuthHandler) Logout(c echo.Context) error {
	if err := h.Auth.Logout(c.Request().Context(), h.refreshToken(c)); err != nil {
		return err
	}
	h.Cookies.clearTokens(c)
	return c.JSON(http.StatusOK, echo.Map{"message": "Logged out successfully"})
}

// Me returns the authenticated identity.
func (h *AuthHandler) Me(c echo.Context) error {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		return apperr.Unauthenticated("Not authenticated")
	}
	return c.JSON(http.StatusOK, id)
}

func (h *AuthHandler) refreshToken(c echo.Context) string {
	if ck, err := c.Cookie(RefreshTokenCookie); err == nil && ck.Value != "" {
		return ck.Value
	}
	var req refreshReq
	_ = c.Bind(&req)
	return req.RefreshToken
}

func (h *AuthHandler) setCookies(c echo.Context, pair service.TokenPair) {
	h.Cookies.setTokens(c,
		pair.AccessToken, time.Duration(pair.ExpiresIn)*time.Second,
		pair.RefreshToken, h.Auth.RefreshTTL())
}

func toUserResp(u model.User) userResp {
	return userResp{ID: u.ID, Email: u.Email, Name: u.DisplayName, Role: u.Role}
}
