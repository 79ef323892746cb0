package identity

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"audix/internal/constants"
	"audix/internal/db"
	"audix/internal/hashpool"
)

func newTestService(t *testing.T) (*Service, *db.DB) {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "audix.db"))
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	pool := hashpool.New(2)
	t.Cleanup(pool.Close)

	svc := NewService(
		db.NewFlatRequestRepository(database),
		db.NewFlatRepository(database),
		db.NewSetupCodeRepository(database),
		pool,
	)
	return svc, database
}

func seedActiveFlat(t *testing.T, database *db.DB, flatID string) {
	t.Helper()
	now := time.Now().UTC()
	if _, err := database.Exec(
		`INSERT INTO flats (flat_id, status, strike_count, requires_admin_revoke, created_at, updated_at)
		 VALUES (?, 'ACTIVE', 0, 0, ?, ?)`,
		flatID, now, now,
	); err != nil {
		t.Fatalf("seeding flat: %v", err)
	}
}

func TestCreateAccessRequestReuse(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.CreateAccessRequest(ctx, " a1 ", "Ava")
	if err != nil {
		t.Fatalf("first request: %v", err)
	}
	if first.Reused {
		t.Fatalf("first request should not be reused")
	}

	second, err := svc.CreateAccessRequest(ctx, "A1", "Ava")
	if err != nil {
		t.Fatalf("second request: %v", err)
	}
	if !second.Reused || second.ID != first.ID {
		t.Fatalf("second request should reuse id %d, got reused=%v id=%d", first.ID, second.Reused, second.ID)
	}
}

func TestSetupPinWithCodeSingleUse(t *testing.T) {
	svc, database := newTestService(t)
	ctx := context.Background()

	seedActiveFlat(t, database, "A1")

	codeHash, err := hashpool.New(1).Hash(ctx, "1234")
	if err != nil {
		t.Fatalf("hashing code: %v", err)
	}
	if _, err := db.NewSetupCodeRepository(database).Create("A1", codeHash, time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("seeding setup code: %v", err)
	}

	if err := svc.SetupPinWithCode(ctx, "a1", "1234", "5678", nil); err != nil {
		t.Fatalf("SetupPinWithCode: %v", err)
	}

	err = svc.SetupPinWithCode(ctx, "a1", "1234", "5678", nil)
	if CodeOf(err) != constants.ErrCodeInvalidCode {
		t.Fatalf("expected INVALID_CODE on reuse, got %v", err)
	}

	err = svc.SetupPinWithCode(ctx, "a1", "0000", "5678", nil)
	if CodeOf(err) != constants.ErrCodeNoValidCode {
		t.Fatalf("expected NO_VALID_CODE for a code never issued, got %v", err)
	}
}

func TestLoginFlatOrdering(t *testing.T) {
	svc, database := newTestService(t)
	ctx := context.Background()

	if CodeOf(mustErr(svc.LoginFlat(ctx, "GHOST", "1234", nil))) != constants.ErrCodeFlatNotFound {
		t.Fatalf("expected FLAT_NOT_FOUND for unknown flat")
	}

	seedActiveFlat(t, database, "A1")
	if CodeOf(mustErr(svc.LoginFlat(ctx, "A1", "1234", nil))) != constants.ErrCodePinNotSet {
		t.Fatalf("expected PIN_NOT_SET before setup")
	}

	codeHash, _ := hashpool.New(1).Hash(ctx, "1234")
	db.NewSetupCodeRepository(database).Create("A1", codeHash, time.Now().Add(time.Hour))
	if err := svc.SetupPinWithCode(ctx, "A1", "1234", "5678", nil); err != nil {
		t.Fatalf("SetupPinWithCode: %v", err)
	}

	if CodeOf(mustErr(svc.LoginFlat(ctx, "A1", "9999", nil))) != constants.ErrCodeInvalidCredentials {
		t.Fatalf("expected INVALID_CREDENTIALS for wrong pin")
	}

	flatID, err := svc.LoginFlat(ctx, "A1", "5678", nil)
	if err != nil {
		t.Fatalf("expected successful login, got %v", err)
	}
	if flatID != "A1" {
		t.Fatalf("expected flat id A1, got %s", flatID)
	}
}

func mustErr(_ string, err error) error { return err }
