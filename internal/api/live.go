package api

import (
	"net/http"

	"audix/internal/constants"
	"audix/internal/registry"
)

type LiveHandler struct {
	registry *registry.Registry
}

func NewLiveHandler(reg *registry.Registry) *LiveHandler {
	return &LiveHandler{registry: reg}
}

// Live returns the public station list for the authenticated flat's
// "who's broadcasting right now" view. No IPs, no per-listener detail.
func (h *LiveHandler) Live(w http.ResponseWriter, r *http.Request) {
	flatID := FlatIDFromContext(r)
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":       true,
		"flat_id":  flatID,
		"stations": h.registry.PublicList(),
	})
}

type reportBody struct {
	StationID string `json:"stationId" validate:"required"`
}

// Report is a stub: it accepts an abuse report against a station and
// acknowledges it. Nothing downstream consumes it yet.
func (h *LiveHandler) Report(w http.ResponseWriter, r *http.Request) {
	var body reportBody
	if err := decodeAndValidate(r.Body, &body); err != nil {
		writeError(w, http.StatusBadRequest, constants.ErrCodeMissingFields)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// InternalSnapshot is the live-token-gated administrative view of the full
// presence registry, IPs and listener detail included.
func (h *LiveHandler) InternalSnapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.registry.InternalSnapshot())
}
