// Package todos implements owner-scoped task management. Every query is
// filtered by the owner's user ID, and a todo belonging to someone else is
// reported as not found rather than forbidden, so the API never confirms
// that a guessed ID exists.
package todos

import (
	"time"
)

// Priority levels for a todo. High-priority items sort before normal ones.
const (
	PriorityHigh   = "high"
	PriorityNormal = "normal"
)

// Todo represents a single task owned by a user.
type Todo struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Priority    string    `json:"priority"`
	Completed   bool      `json:"completed"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// --- Request DTOs (bound from HTTP requests) ---

// CreateTodoRequest holds the data submitted to POST /todos.
type CreateTodoRequest struct {
	Title       string `json:"title" validate:"required,min=1,max=255"`
	Description string `json:"description" validate:"max=2000"`
	Priority    string `json:"priority" validate:"omitempty,oneof=high normal"`
}

// UpdateTodoRequest holds the partial update for PATCH /todos/:id.
// Nil fields are left unchanged.
type UpdateTodoRequest struct {
	Title       *string `json:"title" validate:"omitempty,min=1,max=255"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
	Priority    *string `json:"priority" validate:"omitempty,oneof=high normal"`
	Completed   *bool   `json:"completed"`
}

// ListFilter narrows GET /todos results.
type ListFilter struct {
	// Priority filters to one level when set to "high" or "normal".
	Priority string
}
