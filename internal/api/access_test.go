package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"audix/internal/db"
	"audix/internal/hashpool"
	"audix/internal/identity"
)

func newTestDB(t *testing.T) *db.DB {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "audix.db"))
	if err != nil {
		t.Fatalf("db.Open() error = %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

func newTestIdentityService(t *testing.T, database *db.DB) *identity.Service {
	t.Helper()
	pool := hashpool.New(2)
	t.Cleanup(pool.Close)
	return identity.NewService(
		db.NewFlatRequestRepository(database),
		db.NewFlatRepository(database),
		db.NewSetupCodeRepository(database),
		pool,
	)
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

func TestRequestAccessLifecycle(t *testing.T) {
	database := newTestDB(t)
	handler := NewAccessHandler(newTestIdentityService(t, database))

	body := `{"flat_id":"a1","name":"Ava"}`
	req := httptest.NewRequest(http.MethodPost, "/api/request-access", strings.NewReader(body))
	rr := httptest.NewRecorder()
	handler.RequestAccess(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body=%q", rr.Code, rr.Body.String())
	}
	var first map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &first); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if first["reused"] != false {
		t.Fatalf("expected reused=false on first call, got %v", first)
	}

	req2 := httptest.NewRequest(http.MethodPost, "/api/request-access", strings.NewReader(body))
	rr2 := httptest.NewRecorder()
	handler.RequestAccess(rr2, req2)

	var second map[string]any
	if err := json.Unmarshal(rr2.Body.Bytes(), &second); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if second["reused"] != true || second["id"] != first["id"] {
		t.Fatalf("expected reuse of id %v, got %v", first["id"], second)
	}
}

func TestSetupPinSingleUseCode(t *testing.T) {
	database := newTestDB(t)
	identitySvc := newTestIdentityService(t, database)
	handler := NewAccessHandler(identitySvc)

	seedActiveFlat(t, database, "A1")
	pool := hashpool.New(1)
	defer pool.Close()
	codeHash, err := pool.Hash(context.Background(), "1234")
	if err != nil {
		t.Fatalf("hashing code: %v", err)
	}
	if _, err := db.NewSetupCodeRepository(database).Create("A1", codeHash, time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("seeding setup code: %v", err)
	}

	body := `{"flat_id":"a1","code":"1234","pin4":"5678"}`
	req := httptest.NewRequest(http.MethodPost, "/api/setup-pin", strings.NewReader(body))
	rr := httptest.NewRecorder()
	handler.SetupPin(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body=%q", rr.Code, rr.Body.String())
	}

	req2 := httptest.NewRequest(http.MethodPost, "/api/setup-pin", strings.NewReader(body))
	rr2 := httptest.NewRecorder()
	handler.SetupPin(rr2, req2)
	if rr2.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400, body=%q", rr2.Code, rr2.Body.String())
	}
	var resp map[string]any
	json.Unmarshal(rr2.Body.Bytes(), &resp)
	if resp["error"] != "INVALID_CODE" {
		t.Fatalf("error = %v, want INVALID_CODE", resp["error"])
	}
}

func TestSetupStatusReportsPinSet(t *testing.T) {
	database := newTestDB(t)
	identitySvc := newTestIdentityService(t, database)
	handler := NewAccessHandler(identitySvc)

	seedActiveFlat(t, database, "A1")

	req := httptest.NewRequest(http.MethodGet, "/api/setup-status?flat_id=a1", nil)
	rr := httptest.NewRecorder()
	handler.SetupStatus(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body=%q", rr.Code, rr.Body.String())
	}
	var resp map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	flat, ok := resp["flat"].(map[string]any)
	if !ok {
		t.Fatalf("expected flat object, got %v", resp["flat"])
	}
	if flat["pinSet"] != false {
		t.Fatalf("expected pinSet=false before setup, got %v", flat["pinSet"])
	}
}
