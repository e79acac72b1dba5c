package todos

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/taskbin/taskbin/internal/apperror"
)

// TodoRepository defines the data access contract for todos. Every method
// that targets a single row filters by todo id AND user id; a miss on
// either is the same apperror.NotFound.
type TodoRepository interface {
	Create(ctx context.Context, t *Todo) error
	FindByID(ctx context.Context, id, userID string) (*Todo, error)
	ListByUser(ctx context.Context, userID string, filter ListFilter) ([]Todo, error)
	Update(ctx context.Context, t *Todo) error
	Delete(ctx context.Context, id, userID string) error
}

// todoRepository implements TodoRepository with MariaDB queries.
type todoRepository struct {
	db *sql.DB
}

// NewTodoRepository creates a new todo repository.
func NewTodoRepository(db *sql.DB) TodoRepository {
	return &todoRepository{db: db}
}

// Create inserts a new todo row.
func (r *todoRepository) Create(ctx context.Context, t *Todo) error {
	query := `INSERT INTO todos (id, user_id, title, description, priority, completed, created_at, updated_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		t.ID, t.UserID, t.Title, t.Description, t.Priority, t.Completed,
		t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting todo: %w", err)
	}
	return nil
}

// FindByID retrieves one todo owned by the given user.
// Returns apperror.NotFound when the todo is absent or owned by someone else.
func (r *todoRepository) FindByID(ctx context.Context, id, userID string) (*Todo, error) {
	query := `SELECT id, user_id, title, description, priority, completed, created_at, updated_at
	          FROM todos WHERE id = ? AND user_id = ?`

	t := &Todo{}
	err := r.db.QueryRowContext(ctx, query, id, userID).Scan(
		&t.ID, &t.UserID, &t.Title, &t.Description, &t.Priority, &t.Completed,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("todo not found")
	}
	if err != nil {
		return nil, fmt.Errorf("querying todo by id: %w", err)
	}
	return t, nil
}

// ListByUser returns the user's todos, high priority first, newest first
// within each level.
func (r *todoRepository) ListByUser(ctx context.Context, userID string, filter ListFilter) ([]Todo, error) {
	query := `SELECT id, user_id, title, description, priority, completed, created_at, updated_at
	          FROM todos WHERE user_id = ?`
	args := []interface{}{userID}

	if filter.Priority != "" {
		query += ` AND priority = ?`
		args = append(args, filter.Priority)
	}

	query += ` ORDER BY FIELD(priority, 'high', 'normal'), created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing todos: %w", err)
	}
	defer rows.Close()

	var todos []Todo
	for rows.Next() {
		var t Todo
		if err := rows.Scan(
			&t.ID, &t.UserID, &t.Title, &t.Description, &t.Priority, &t.Completed,
			&t.CreatedAt, &t.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning todo row: %w", err)
		}
		todos = append(todos, t)
	}
	return todos, rows.Err()
}

// Update writes a todo's editable fields, scoped to its owner.
func (r *todoRepository) Update(ctx context.Context, t *Todo) error {
	query := `UPDATE todos SET title = ?, description = ?, priority = ?, completed = ?, updated_at = ?
	          WHERE id = ? AND user_id = ?`

	result, err := r.db.ExecContext(ctx, query,
		t.Title, t.Description, t.Priority, t.Completed, t.UpdatedAt,
		t.ID, t.UserID,
	)
	if err != nil {
		return fmt.Errorf("updating todo: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return apperror.NewNotFound("todo not found")
	}
	return nil
}

// Delete removes one todo owned by the given user.
func (r *todoRepository) Delete(ctx context.Context, id, userID string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM todos WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("deleting todo: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return apperror.NewNotFound("todo not found")
	}
	return nil
}
