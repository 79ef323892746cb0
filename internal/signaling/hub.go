// Package signaling implements the signaling WebSocket channel: a blind
// relay, keyed by connection ids and flat ids, that pairs listeners with the
// broadcaster of the station they target and forwards WebRTC offer/answer/
// ICE frames between them.
package signaling

import (
	"net/http"

	"github.com/gorilla/websocket"

	"audix/internal/registry"
)

// Hub owns the signal-plane registry. It consults the presence-plane
// station registry (presenceRegistry) to decide whether a listen:join
// target is actually live before checking the signal-side broadcaster
// index.
type Hub struct {
	signals  *signalRegistry
	presence *registry.Registry
	upgrader websocket.Upgrader
}

func NewHub(presenceRegistry *registry.Registry) *Hub {
	return &Hub{
		signals:  newSignalRegistry(),
		presence: presenceRegistry,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Serve upgrades r to a WebSocket and runs the connection until it closes.
// sessionFlatID is the already-validated session's flat_id; every identify
// frame on this connection is checked against it.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, ip, sessionFlatID string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	id, err := newConnID()
	if err != nil {
		conn.Close()
		return
	}

	c := &signalClient{
		id:            id,
		ip:            ip,
		role:          RoleUnknown,
		sessionFlatID: sessionFlatID,
		send:          make(chan []byte, sendBufferSize),
	}
	h.signals.add(c)

	wc := &wsClient{hub: h, conn: conn, self: c}

	wc.reply(helloFrame{Type: "hello", ID: id})

	go wc.writePump()
	go wc.readPump()
}
