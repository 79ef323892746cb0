package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"audix/internal/models"
)

type SessionRepository struct {
	db *DB
}

func NewSessionRepository(db *DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(sid, flatID string, expiresAt time.Time) error {
	_, err := r.db.Exec(
		`INSERT INTO user_sessions (sid, flat_id, expires_at) VALUES (?, ?, ?)`,
		sid, flatID, expiresAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("creating session: %w", err)
	}
	return nil
}

// FindValid returns the session for sid if it exists and has not expired.
func (r *SessionRepository) FindValid(sid string) (*models.Session, error) {
	var s models.Session
	err := r.db.QueryRow(
		`SELECT sid, flat_id, expires_at FROM user_sessions WHERE sid = ? AND expires_at > ?`,
		sid, time.Now().UTC(),
	).Scan(&s.SID, &s.FlatID, &s.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying session: %w", err)
	}
	return &s, nil
}

func (r *SessionRepository) Delete(sid string) error {
	_, err := r.db.Exec(`DELETE FROM user_sessions WHERE sid = ?`, sid)
	if err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

func (r *SessionRepository) DeleteExpired() (int64, error) {
	result, err := r.db.Exec(`DELETE FROM user_sessions WHERE expires_at < ?`, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("deleting expired sessions: %w", err)
	}
	return result.RowsAffected()
}
