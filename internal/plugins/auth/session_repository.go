package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/taskbin/taskbin/internal/apperror"
)

// SessionRepository defines the data access contract for refresh sessions.
// Every mutation that targets a single session filters by session id AND
// user id, so a caller can never touch another account's session.
type SessionRepository interface {
	Create(ctx context.Context, s *Session) error
	FindByTokenDigest(ctx context.Context, digest string) (*Session, error)
	ListByUser(ctx context.Context, userID string) ([]Session, error)
	Rotate(ctx context.Context, sessionID, userID, oldDigest, newDigest string, expiresAt time.Time) error
	Revoke(ctx context.Context, sessionID, userID string) error
	RevokeAll(ctx context.Context, userID string) error
	RevokeAllExcept(ctx context.Context, userID, keepSessionID string) error
	SweepExpired(ctx context.Context) (int64, error)
}

// sessionRepository implements SessionRepository with MariaDB queries.
type sessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a new session repository.
func NewSessionRepository(db *sql.DB) SessionRepository {
	return &sessionRepository{db: db}
}

// Create inserts a new session row.
func (r *sessionRepository) Create(ctx context.Context, s *Session) error {
	query := `INSERT INTO sessions
		(id, user_id, refresh_token_hash, ip_address, user_agent, created_at, last_activity, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		s.ID, s.UserID, s.RefreshTokenHash,
		s.IPAddress, s.UserAgent,
		s.CreatedAt, s.LastActivity, s.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}
	return nil
}

// FindByTokenDigest retrieves the session holding the given refresh token
// digest. Returns apperror.NotFound when no session matches, which callers
// treat as reuse of a rotated-out or revoked token.
func (r *sessionRepository) FindByTokenDigest(ctx context.Context, digest string) (*Session, error) {
	query := `SELECT id, user_id, refresh_token_hash, ip_address, user_agent,
	                 created_at, last_activity, expires_at
	          FROM sessions WHERE refresh_token_hash = ?`

	s := &Session{}
	err := r.db.QueryRowContext(ctx, query, digest).Scan(
		&s.ID, &s.UserID, &s.RefreshTokenHash,
		&s.IPAddress, &s.UserAgent,
		&s.CreatedAt, &s.LastActivity, &s.ExpiresAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("session not found")
	}
	if err != nil {
		return nil, fmt.Errorf("querying session by token digest: %w", err)
	}
	return s, nil
}

// ListByUser returns all live sessions for a user, newest activity first.
func (r *sessionRepository) ListByUser(ctx context.Context, userID string) ([]Session, error) {
	query := `SELECT id, user_id, refresh_token_hash, ip_address, user_agent,
	                 created_at, last_activity, expires_at
	          FROM sessions WHERE user_id = ?
	          ORDER BY last_activity DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var s Session
		if err := rows.Scan(
			&s.ID, &s.UserID, &s.RefreshTokenHash,
			&s.IPAddress, &s.UserAgent,
			&s.CreatedAt, &s.LastActivity, &s.ExpiresAt,
		); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sessions: %w", err)
	}
	return sessions, nil
}

// Rotate swaps the session's token digest in a single compare-and-swap
// UPDATE. The old digest sits in the WHERE clause, so of two concurrent
// refreshes presenting the same token only one can win; the loser sees
// apperror.NotFound and is treated as a reuse attempt.
func (r *sessionRepository) Rotate(ctx context.Context, sessionID, userID, oldDigest, newDigest string, expiresAt time.Time) error {
	query := `UPDATE sessions
	          SET refresh_token_hash = ?, last_activity = NOW(), expires_at = ?
	          WHERE id = ? AND user_id = ? AND refresh_token_hash = ?`

	result, err := r.db.ExecContext(ctx, query, newDigest, expiresAt, sessionID, userID, oldDigest)
	if err != nil {
		return fmt.Errorf("rotating session: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return apperror.NewNotFound("session not found")
	}
	return nil
}

// Revoke deletes one session owned by the given user.
func (r *sessionRepository) Revoke(ctx context.Context, sessionID, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE id = ? AND user_id = ?`, sessionID, userID)
	if err != nil {
		return fmt.Errorf("revoking session: %w", err)
	}
	return nil
}

// RevokeAll deletes every session for a user. Used after password resets and
// account deletion.
func (r *sessionRepository) RevokeAll(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("revoking all sessions: %w", err)
	}
	return nil
}

// RevokeAllExcept deletes every session for a user except one. Used on
// password change so the session performing the change stays alive.
func (r *sessionRepository) RevokeAllExcept(ctx context.Context, userID, keepSessionID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE user_id = ? AND id != ?`, userID, keepSessionID)
	if err != nil {
		return fmt.Errorf("revoking other sessions: %w", err)
	}
	return nil
}

// SweepExpired deletes sessions whose expiry has passed. Idempotent; safe to
// run alongside live traffic since it only ever touches expired rows.
func (r *sessionRepository) SweepExpired(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE expires_at < NOW()`)
	if err != nil {
		return 0, fmt.Errorf("sweeping expired sessions: %w", err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}
