package students

import (
	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/studentrecords/internal/plugins/auth"
)

// RegisterRoutes mounts the roster behind the auth guard.
func RegisterRoutes(e *echo.Echo, h *Handler, authSvc auth.AuthService) {
	e.GET("/", h.Index, auth.RequireAuth(authSvc))
}
