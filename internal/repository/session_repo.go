// Package repository provides data access for the session ledger.
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sockbridge/server/internal/model"
)

// SessionRepository provides data access for session records.
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create inserts a new session record.
func (r *SessionRepository) Create(ctx context.Context, session *model.Session) error {
	query := `
		INSERT INTO sessions (id, transport, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		session.ID,
		session.Transport,
		session.Status,
		session.CreatedAt,
		session.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create session record: %w", err)
	}

	return nil
}

// GetByID retrieves a session record by its ID.
func (r *SessionRepository) GetByID(ctx context.Context, id string) (*model.Session, error) {
	query := `
		SELECT id, transport, status, close_reason, created_at, updated_at, closed_at
		FROM sessions
		WHERE id = ?
	`

	session := &model.Session{}
	var closeReason sql.NullString
	var closedAt sql.NullTime

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&session.ID,
		&session.Transport,
		&session.Status,
		&closeReason,
		&session.CreatedAt,
		&session.UpdatedAt,
		&closedAt,
	)
	if err == sql.ErrNoRows {
		return nil, model.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session record: %w", err)
	}

	if closeReason.Valid {
		session.CloseReason = model.CloseReason(closeReason.String)
	}
	if closedAt.Valid {
		t := closedAt.Time
		session.ClosedAt = &t
	}

	return session, nil
}

// List retrieves all session records, newest first.
func (r *SessionRepository) List(ctx context.Context) ([]*model.Session, error) {
	query := `
		SELECT id, transport, status, close_reason, created_at, updated_at, closed_at
		FROM sessions
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list session records: %w", err)
	}
	defer rows.Close()

	var sessions []*model.Session
	for rows.Next() {
		session := &model.Session{}
		var closeReason sql.NullString
		var closedAt sql.NullTime

		if err := rows.Scan(
			&session.ID,
			&session.Transport,
			&session.Status,
			&closeReason,
			&session.CreatedAt,
			&session.UpdatedAt,
			&closedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan session record: %w", err)
		}

		if closeReason.Valid {
			session.CloseReason = model.CloseReason(closeReason.String)
		}
		if closedAt.Valid {
			t := closedAt.Time
			session.ClosedAt = &t
		}

		sessions = append(sessions, session)
	}

	return sessions, rows.Err()
}

// MarkClosed records a session's termination and its reason.
func (r *SessionRepository) MarkClosed(ctx context.Context, id string, reason model.CloseReason) error {
	query := `
		UPDATE sessions
		SET status = ?, close_reason = ?, updated_at = ?, closed_at = ?
		WHERE id = ?
	`

	now := time.Now()
	result, err := r.db.ExecContext(ctx, query, model.SessionStatusClosed, reason, now, now, id)
	if err != nil {
		return fmt.Errorf("failed to close session record: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if affected == 0 {
		return model.ErrSessionNotFound
	}

	return nil
}

// CountOpen returns the number of open session records.
func (r *SessionRepository) CountOpen(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sessions WHERE status = ?`, model.SessionStatusOpen,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count open sessions: %w", err)
	}
	return count, nil
}
