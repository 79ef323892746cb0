package db

import (
	"database/sql"
	"fmt"
	"time"

	"audix/internal/models"
)

type SetupCodeRepository struct {
	db *DB
}

func NewSetupCodeRepository(db *DB) *SetupCodeRepository {
	return &SetupCodeRepository{db: db}
}

// RecentByFlatID returns the most recent setup codes for flatID, newest
// first, capped at limit. SetupPinWithCode scans these for one that is
// unused and unexpired.
func (r *SetupCodeRepository) RecentByFlatID(flatID string, limit int) ([]*models.SetupCode, error) {
	rows, err := r.db.Query(
		`SELECT id, flat_id, code_hash, expires_at, used_at, created_at
		 FROM setup_codes WHERE flat_id = ? ORDER BY created_at DESC LIMIT ?`,
		flatID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying setup codes: %w", err)
	}
	defer rows.Close()

	var codes []*models.SetupCode
	for rows.Next() {
		var c models.SetupCode
		var usedAt sql.NullTime
		if err := rows.Scan(&c.ID, &c.FlatID, &c.CodeHash, &c.ExpiresAt, &usedAt, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning setup code: %w", err)
		}
		c.UsedAt = nullTimeToPtr(usedAt)
		codes = append(codes, &c)
	}
	return codes, rows.Err()
}

// Create inserts a setup code row. Issuing setup codes is normally an admin
// tool's job (out of scope per the identity store's external-collaborator
// boundary); this exists so tests and fixtures can seed one directly.
func (r *SetupCodeRepository) Create(flatID, codeHash string, expiresAt time.Time) (*models.SetupCode, error) {
	now := time.Now().UTC()
	result, err := r.db.Exec(
		`INSERT INTO setup_codes (flat_id, code_hash, expires_at, created_at) VALUES (?, ?, ?, ?)`,
		flatID, codeHash, expiresAt.UTC(), now,
	)
	if err != nil {
		return nil, fmt.Errorf("creating setup code: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading setup code id: %w", err)
	}
	return &models.SetupCode{ID: id, FlatID: flatID, CodeHash: codeHash, ExpiresAt: expiresAt, CreatedAt: now}, nil
}

func (r *SetupCodeRepository) DeleteExpired() (int64, error) {
	result, err := r.db.Exec(`DELETE FROM setup_codes WHERE expires_at < ? AND used_at IS NOT NULL`, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("deleting expired setup codes: %w", err)
	}
	return result.RowsAffected()
}
