package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"audix/internal/db"
	"audix/internal/hashpool"
	"audix/internal/session"
)

func newTestSessionService(t *testing.T, database *db.DB) *session.Service {
	t.Helper()
	return session.New(db.NewSessionRepository(database), false)
}

func seedFlatWithPin(t *testing.T, database *db.DB, flatID, pin4 string) {
	t.Helper()
	seedActiveFlat(t, database, flatID)
	pool := hashpool.New(1)
	defer pool.Close()
	pinHash, err := pool.Hash(context.Background(), pin4)
	if err != nil {
		t.Fatalf("hashing pin: %v", err)
	}
	if _, err := database.Exec(`UPDATE flats SET pin_hash = ? WHERE flat_id = ?`, pinHash, flatID); err != nil {
		t.Fatalf("seeding pin: %v", err)
	}
}

func TestLoginRejectsWrongPin(t *testing.T) {
	database := newTestDB(t)
	seedFlatWithPin(t, database, "A1", "5678")
	handler := NewLoginHandler(newTestIdentityService(t, database), newTestSessionService(t, database))

	req := httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(`{"flat_id":"A1","pin4":"9999"}`))
	rr := httptest.NewRecorder()
	handler.Login(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401, body=%q", rr.Code, rr.Body.String())
	}
	var resp map[string]any
	json.Unmarshal(rr.Body.Bytes(), &resp)
	if resp["error"] != "INVALID_CREDENTIALS" {
		t.Fatalf("error = %v, want INVALID_CREDENTIALS", resp["error"])
	}
}

func TestLoginSucceedsAndSetsCookie(t *testing.T) {
	database := newTestDB(t)
	seedFlatWithPin(t, database, "A1", "5678")
	handler := NewLoginHandler(newTestIdentityService(t, database), newTestSessionService(t, database))

	req := httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(`{"flat_id":"A1","pin4":"5678"}`))
	rr := httptest.NewRecorder()
	handler.Login(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body=%q", rr.Code, rr.Body.String())
	}
	cookies := rr.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != session.CookieName {
		t.Fatalf("expected %s cookie, got %v", session.CookieName, cookies)
	}
}

func TestLoginPinNotSetBeforeSetup(t *testing.T) {
	database := newTestDB(t)
	seedActiveFlat(t, database, "A1")
	handler := NewLoginHandler(newTestIdentityService(t, database), newTestSessionService(t, database))

	req := httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(`{"flat_id":"A1","pin4":"5678"}`))
	rr := httptest.NewRecorder()
	handler.Login(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rr.Code)
	}
	var resp map[string]any
	json.Unmarshal(rr.Body.Bytes(), &resp)
	if resp["error"] != "PIN_NOT_SET" {
		t.Fatalf("error = %v, want PIN_NOT_SET", resp["error"])
	}
}

func TestLogoutClearsCookie(t *testing.T) {
	database := newTestDB(t)
	handler := NewLoginHandler(newTestIdentityService(t, database), newTestSessionService(t, database))

	req := httptest.NewRequest(http.MethodPost, "/api/logout", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: "whatever"})
	rr := httptest.NewRecorder()
	handler.Logout(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body=%q", rr.Code, rr.Body.String())
	}
	cookies := rr.Result().Cookies()
	if len(cookies) != 1 || cookies[0].MaxAge >= 0 {
		t.Fatalf("expected cleared cookie, got %v", cookies)
	}
}
