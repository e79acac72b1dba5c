package todos

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes sets up all todo routes on the given API group. Every route
// requires an authenticated principal.
func RegisterRoutes(api *echo.Group, h *Handler, authed echo.MiddlewareFunc) {
	g := api.Group("/todos", authed)

	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.PATCH("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
}
