package api

import (
	"net/http"

	"audix/internal/constants"
	"audix/internal/identity"
	"audix/internal/session"
)

type LoginHandler struct {
	identity *identity.Service
	sessions *session.Service
}

func NewLoginHandler(identitySvc *identity.Service, sessions *session.Service) *LoginHandler {
	return &LoginHandler{identity: identitySvc, sessions: sessions}
}

type loginBody struct {
	FlatID   string  `json:"flat_id" validate:"required"`
	Pin4     string  `json:"pin4" validate:"required"`
	Password *string `json:"password"`
	Remember bool    `json:"remember"`
}

func (h *LoginHandler) Login(w http.ResponseWriter, r *http.Request) {
	var body loginBody
	if err := decodeAndValidate(r.Body, &body); err != nil {
		writeError(w, http.StatusBadRequest, constants.ErrCodeMissingFields)
		return
	}

	flatID, err := h.identity.LoginFlat(r.Context(), body.FlatID, body.Pin4, body.Password)
	if err != nil {
		code := identity.CodeOf(err)
		if code == "" {
			internalError(w)
			return
		}
		resp := map[string]any{"ok": false, "error": code}
		if banUntil := identity.BanUntilOf(err); banUntil != nil {
			resp["ban_until"] = banUntil
		}
		writeJSON(w, http.StatusUnauthorized, resp)
		return
	}

	if err := h.sessions.Create(w, flatID, body.Remember); err != nil {
		internalError(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "flat_id": flatID})
}

// Logout accepts any request — authenticated or not — and unconditionally
// destroys whatever session cookie is present.
func (h *LoginHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Destroy(w, r)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
