package api

import (
	"net/http"

	"audix/internal/constants"
	"audix/internal/identity"
)

type AccessHandler struct {
	identity *identity.Service
}

func NewAccessHandler(identitySvc *identity.Service) *AccessHandler {
	return &AccessHandler{identity: identitySvc}
}

type requestAccessBody struct {
	FlatID string `json:"flat_id" validate:"required"`
	Name   string `json:"name" validate:"required"`
}

func (h *AccessHandler) RequestAccess(w http.ResponseWriter, r *http.Request) {
	var body requestAccessBody
	if err := decodeAndValidate(r.Body, &body); err != nil {
		writeError(w, http.StatusBadRequest, constants.ErrCodeMissingFields)
		return
	}

	result, err := h.identity.CreateAccessRequest(r.Context(), body.FlatID, body.Name)
	if err != nil {
		h.writeIdentityError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":     true,
		"id":     result.ID,
		"status": result.Status,
		"reused": result.Reused,
	})
}

func (h *AccessHandler) SetupStatus(w http.ResponseWriter, r *http.Request) {
	flatID := r.URL.Query().Get("flat_id")

	status, err := h.identity.GetSetupStatus(r.Context(), flatID)
	if err != nil {
		h.writeIdentityError(w, err)
		return
	}

	resp := map[string]any{
		"ok":      true,
		"flat_id": flatID,
		"request": status.Request,
		"flat":    nil,
	}
	if status.Flat != nil {
		resp["flat"] = map[string]any{
			"status":              status.Flat.Status,
			"pinSet":              status.Flat.PinSet,
			"banned":              status.Flat.Banned,
			"requiresAdminRevoke": status.Flat.RequiresAdminRevoke,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

type setupPinBody struct {
	FlatID   string  `json:"flat_id" validate:"required"`
	Code     string  `json:"code" validate:"required"`
	Pin4     string  `json:"pin4" validate:"required"`
	Password *string `json:"password"`
}

func (h *AccessHandler) SetupPin(w http.ResponseWriter, r *http.Request) {
	var body setupPinBody
	if err := decodeAndValidate(r.Body, &body); err != nil {
		writeError(w, http.StatusBadRequest, constants.ErrCodeMissingFields)
		return
	}

	if err := h.identity.SetupPinWithCode(r.Context(), body.FlatID, body.Code, body.Pin4, body.Password); err != nil {
		h.writeIdentityError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// writeIdentityError maps a *identity.CodedError to its HTTP status; any
// other error is an unexpected database failure and surfaces as a generic
// 500 per the error-handling policy.
func (h *AccessHandler) writeIdentityError(w http.ResponseWriter, err error) {
	code := identity.CodeOf(err)
	if code == "" {
		internalError(w)
		return
	}
	writeError(w, http.StatusBadRequest, code)
}
