// Package presence implements the presence WebSocket channel: per-client
// role/listen/broadcast control frames that drive the station registry.
package presence

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"audix/internal/registry"
)

// Hub owns the shared station registry and upgrades incoming connections
// into presence clients.
type Hub struct {
	Registry *registry.Registry
	upgrader websocket.Upgrader
}

func NewHub() *Hub {
	return &Hub{
		Registry: registry.New(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Serve upgrades r to a WebSocket and runs the connection's read/write
// pumps until it closes. sessionFlatID and ip come from the
// already-validated session and bound every subsequent identify frame.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, ip, sessionFlatID string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	client := newClient(h, conn, ip, sessionFlatID)
	h.Registry.Connect(client.handle, ip)

	go client.writePump()
	go client.readPump()
}

const heartbeatInterval = 15 * time.Second
