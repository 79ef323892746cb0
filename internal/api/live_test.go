package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"audix/internal/registry"
)

func TestLiveListsBroadcastingStations(t *testing.T) {
	reg := registry.New()
	handle := registry.NextHandle()
	reg.Connect(handle, "203.0.113.5")
	reg.Identify(handle, "A1")
	if _, ok := reg.BroadcastStart(handle); !ok {
		t.Fatalf("expected broadcast:start to succeed")
	}

	handler := NewLiveHandler(reg)
	req := httptest.NewRequest(http.MethodGet, "/api/live", nil)
	rr := httptest.NewRecorder()
	handler.Live(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body=%q", rr.Code, rr.Body.String())
	}
	var resp struct {
		OK       bool                    `json:"ok"`
		Stations []registry.PublicStation `json:"stations"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(resp.Stations) != 1 || resp.Stations[0].ID != "A1" {
		t.Fatalf("expected station A1, got %+v", resp.Stations)
	}
}

func TestInternalSnapshotIncludesIPs(t *testing.T) {
	reg := registry.New()
	handle := registry.NextHandle()
	reg.Connect(handle, "203.0.113.5")
	reg.Identify(handle, "A1")
	reg.BroadcastStart(handle)

	handler := NewLiveHandler(reg)
	req := httptest.NewRequest(http.MethodGet, "/api/internal/live-snapshot", nil)
	rr := httptest.NewRecorder()
	handler.InternalSnapshot(rr, req)

	var snap registry.Snapshot
	if err := json.Unmarshal(rr.Body.Bytes(), &snap); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(snap.Stations) != 1 || snap.Stations[0].IP != "203.0.113.5" {
		t.Fatalf("expected station with IP, got %+v", snap.Stations)
	}
}
