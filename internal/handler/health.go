package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Health is the plain-text liveness check used by load balancers.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// APIHealth answers GET /api/health with a JSON status.
func APIHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}
