package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/invoice-api/internal/service"
)

// UserHandler serves the admin user listing.
type UserHandler struct {
	Users *service.UserService
}

func NewUserHandler(users *service.UserService) *UserHandler {
	return &UserHandler{Users: users}
}

type listedUser struct {
	userResp
	CreatedAt time.Time `json:"createdAt"`
}

type userListResp struct {
	Data []listedUser     `json:"data"`
	Meta service.PageMeta `json:"meta"`
}

// List handles GET /users?page=&limit=.  Unparseable values fall back to
// the defaults.
func (h *UserHandler) List(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	res, err := h.Users.List(c.Request().Context(), page, limit)
	if err != nil {
		return err
	}
	out := userListResp{Data: make([]listedUser, 0, len(res.Users)), Meta: res.Meta}
	for _, u := range res.Users {
		out.Data = append(out.Data, listedUser{userResp: toUserResp(u), CreatedAt: u.CreatedAt})
	}
	return c.JSON(http.StatusOK, out)
}
