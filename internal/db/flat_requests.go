package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"audix/internal/models"
)

type FlatRequestRepository struct {
	db *DB
}

func NewFlatRequestRepository(db *DB) *FlatRequestRepository {
	return &FlatRequestRepository{db: db}
}

// FindPendingByFlatID returns the PENDING request for this flat, if any.
func (r *FlatRequestRepository) FindPendingByFlatID(flatID string) (*models.FlatRequest, error) {
	return r.findOne(
		`SELECT id, flat_id, name, note, status, created_at, updated_at
		 FROM flat_requests WHERE flat_id = ? AND status = 'PENDING'
		 ORDER BY created_at DESC LIMIT 1`,
		flatID,
	)
}

// FindLatestByFlatID returns the most recent request for this flat
// regardless of status, matching GetSetupStatus's "most recent row" rule.
func (r *FlatRequestRepository) FindLatestByFlatID(flatID string) (*models.FlatRequest, error) {
	return r.findOne(
		`SELECT id, flat_id, name, note, status, created_at, updated_at
		 FROM flat_requests WHERE flat_id = ?
		 ORDER BY created_at DESC LIMIT 1`,
		flatID,
	)
}

func (r *FlatRequestRepository) Create(flatID, name string) (*models.FlatRequest, error) {
	now := time.Now().UTC()
	result, err := r.db.Exec(
		`INSERT INTO flat_requests (flat_id, name, note, status, created_at, updated_at)
		 VALUES (?, ?, '', 'PENDING', ?, ?)`,
		flatID, name, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("creating flat request: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading flat request id: %w", err)
	}

	return &models.FlatRequest{
		ID:        id,
		FlatID:    flatID,
		Name:      name,
		Status:    models.RequestPending,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (r *FlatRequestRepository) findOne(query string, args ...any) (*models.FlatRequest, error) {
	var req models.FlatRequest
	var status string

	err := r.db.QueryRow(query, args...).Scan(
		&req.ID, &req.FlatID, &req.Name, &req.Note, &status, &req.CreatedAt, &req.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying flat request: %w", err)
	}

	req.Status = models.RequestStatus(status)
	return &req, nil
}
