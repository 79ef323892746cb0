package api

import (
	"net/http"

	"audix/internal/presence"
	"audix/internal/signaling"
)

type WebSocketHandler struct {
	presence   *presence.Hub
	signaling  *signaling.Hub
	ipResolver *ClientIPResolver
}

func NewWebSocketHandler(presenceHub *presence.Hub, signalingHub *signaling.Hub, ipResolver *ClientIPResolver) *WebSocketHandler {
	return &WebSocketHandler{presence: presenceHub, signaling: signalingHub, ipResolver: ipResolver}
}

// Presence upgrades to the presence channel. RequireSession has already
// validated the caller and attached flat_id to the request context; it is
// threaded through so the connection can only ever identify as that flat_id.
func (h *WebSocketHandler) Presence(w http.ResponseWriter, r *http.Request) {
	h.presence.Serve(w, r, h.ipResolver.Resolve(r), FlatIDFromContext(r))
}

// Signal upgrades to the signaling channel, bound to the session's flat_id
// the same way Presence is.
func (h *WebSocketHandler) Signal(w http.ResponseWriter, r *http.Request) {
	h.signaling.Serve(w, r, h.ipResolver.Resolve(r), FlatIDFromContext(r))
}
