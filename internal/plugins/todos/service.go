package todos

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/taskbin/taskbin/internal/apperror"
	"github.com/taskbin/taskbin/internal/sanitize"
)

// TodoService defines the business logic contract for todos. Every method
// takes the acting user's ID; the service never trusts an ID from the
// request body for ownership.
type TodoService interface {
	Create(ctx context.Context, userID string, req CreateTodoRequest) (*Todo, error)
	Get(ctx context.Context, id, userID string) (*Todo, error)
	List(ctx context.Context, userID string, filter ListFilter) ([]Todo, error)
	Update(ctx context.Context, id, userID string, req UpdateTodoRequest) (*Todo, error)
	Delete(ctx context.Context, id, userID string) error
}

// todoService implements TodoService.
type todoService struct {
	repo TodoRepository

	// now is injectable for tests.
	now func() time.Time
}

// NewTodoService creates a new todo service.
func NewTodoService(repo TodoRepository) TodoService {
	return &todoService{
		repo: repo,
		now:  time.Now,
	}
}

// Create stores a new todo for the user. The free-text description is
// sanitized before it is persisted.
func (s *todoService) Create(ctx context.Context, userID string, req CreateTodoRequest) (*Todo, error) {
	priority := req.Priority
	if priority == "" {
		priority = PriorityNormal
	}

	now := s.now().UTC()
	todo := &Todo{
		ID:          uuid.NewString(),
		UserID:      userID,
		Title:       strings.TrimSpace(req.Title),
		Description: sanitize.Text(req.Description),
		Priority:    priority,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, todo); err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("creating todo: %w", err))
	}
	return todo, nil
}

// Get returns one todo owned by the user.
func (s *todoService) Get(ctx context.Context, id, userID string) (*Todo, error) {
	todo, err := s.repo.FindByID(ctx, id, userID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, err
		}
		return nil, apperror.NewInternal(fmt.Errorf("finding todo: %w", err))
	}
	return todo, nil
}

// List returns the user's todos, optionally filtered by priority.
func (s *todoService) List(ctx context.Context, userID string, filter ListFilter) ([]Todo, error) {
	if filter.Priority != "" && filter.Priority != PriorityHigh && filter.Priority != PriorityNormal {
		return nil, apperror.NewBadRequest("priority must be 'high' or 'normal'")
	}

	todos, err := s.repo.ListByUser(ctx, userID, filter)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("listing todos: %w", err))
	}
	if todos == nil {
		todos = []Todo{}
	}
	return todos, nil
}

// Update applies a partial update to one todo owned by the user.
func (s *todoService) Update(ctx context.Context, id, userID string, req UpdateTodoRequest) (*Todo, error) {
	todo, err := s.repo.FindByID(ctx, id, userID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, err
		}
		return nil, apperror.NewInternal(fmt.Errorf("finding todo: %w", err))
	}

	if req.Title != nil {
		todo.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		todo.Description = sanitize.Text(*req.Description)
	}
	if req.Priority != nil {
		todo.Priority = *req.Priority
	}
	if req.Completed != nil {
		todo.Completed = *req.Completed
	}
	todo.UpdatedAt = s.now().UTC()

	if err := s.repo.Update(ctx, todo); err != nil {
		if apperror.IsNotFound(err) {
			return nil, err
		}
		return nil, apperror.NewInternal(fmt.Errorf("updating todo: %w", err))
	}
	return todo, nil
}

// Delete removes one todo owned by the user.
func (s *todoService) Delete(ctx context.Context, id, userID string) error {
	err := s.repo.Delete(ctx, id, userID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return err
		}
		return apperror.NewInternal(fmt.Errorf("deleting todo: %w", err))
	}
	return nil
}
