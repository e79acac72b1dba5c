package todos

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/taskbin/taskbin/internal/apperror"
	"github.com/taskbin/taskbin/internal/plugins/auth"
)

// Handler handles HTTP requests for todos. Handlers are thin: bind, call
// the service, render.
type Handler struct {
	service TodoService
}

// NewHandler creates a new todo handler with the given service.
func NewHandler(service TodoService) *Handler {
	return &Handler{service: service}
}

// Create adds a todo (POST /todos).
func (h *Handler) Create(c echo.Context) error {
	var req CreateTodoRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	todo, err := h.service.Create(c.Request().Context(), auth.GetUserID(c), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, todo)
}

// List returns the user's todos (GET /todos?priority=high).
func (h *Handler) List(c echo.Context) error {
	filter := ListFilter{Priority: c.QueryParam("priority")}

	todos, err := h.service.List(c.Request().Context(), auth.GetUserID(c), filter)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, todos)
}

// Get returns one todo (GET /todos/:id).
func (h *Handler) Get(c echo.Context) error {
	todo, err := h.service.Get(c.Request().Context(), c.Param("id"), auth.GetUserID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, todo)
}

// Update applies a partial update (PATCH /todos/:id).
func (h *Handler) Update(c echo.Context) error {
	var req UpdateTodoRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	todo, err := h.service.Update(c.Request().Context(), c.Param("id"), auth.GetUserID(c), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, todo)
}

// Delete removes a todo (DELETE /todos/:id).
func (h *Handler) Delete(c echo.Context) error {
	if err := h.service.Delete(c.Request().Context(), c.Param("id"), auth.GetUserID(c)); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
