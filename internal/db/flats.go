package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"audix/internal/models"
)

type FlatRepository struct {
	db *DB
}

func NewFlatRepository(db *DB) *FlatRepository {
	return &FlatRepository{db: db}
}

func (r *FlatRepository) FindByID(flatID string) (*models.Flat, error) {
	var f models.Flat
	var status string
	var banUntil, lastLoginAt sql.NullTime

	err := r.db.QueryRow(
		`SELECT flat_id, status, pin_hash, password_hash, strike_count, ban_until,
		        requires_admin_revoke, created_at, updated_at, last_login_at
		 FROM flats WHERE flat_id = ?`,
		flatID,
	).Scan(
		&f.FlatID, &status, &f.PinHash, &f.PasswordHash, &f.StrikeCount, &banUntil,
		&f.RequiresAdminRevoke, &f.CreatedAt, &f.UpdatedAt, &lastLoginAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying flat: %w", err)
	}

	f.Status = models.FlatStatus(status)
	f.BanUntil = nullTimeToPtr(banUntil)
	f.LastLoginAt = nullTimeToPtr(lastLoginAt)
	return &f, nil
}

// SetCredentialsConsumingCode writes the already-hashed pin (and password,
// if supplied) to the flat row in the same transaction that marks setupCodeID
// used, satisfying the invariant that pin_hash may only change alongside a
// code being consumed. Returns ErrNotFound if the code was already used or
// does not belong to flatID (checked by the caller before the transaction,
// but re-checked here under the transaction for correctness).
func (r *FlatRepository) SetCredentialsConsumingCode(flatID string, setupCodeID int64, pinHash string, passwordHash *string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()

	result, err := tx.Exec(
		`UPDATE setup_codes SET used_at = ? WHERE id = ? AND flat_id = ? AND used_at IS NULL`,
		now, setupCodeID, flatID,
	)
	if err != nil {
		return fmt.Errorf("marking setup code used: %w", err)
	}
	if err := checkRowsAffected(result); err != nil {
		return err
	}

	result, err = tx.Exec(
		`UPDATE flats SET pin_hash = ?, password_hash = ?, updated_at = ? WHERE flat_id = ?`,
		pinHash, passwordHash, now, flatID,
	)
	if err != nil {
		return fmt.Errorf("updating flat credentials: %w", err)
	}
	if err := checkRowsAffected(result); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *FlatRepository) UpdateLastLogin(flatID string) error {
	now := time.Now().UTC()
	result, err := r.db.Exec(`UPDATE flats SET last_login_at = ?, updated_at = ? WHERE flat_id = ?`, now, now, flatID)
	if err != nil {
		return fmt.Errorf("updating last login: %w", err)
	}
	return checkRowsAffected(result)
}
