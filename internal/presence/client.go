package presence

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"audix/internal/flatid"
	"audix/internal/registry"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 8192
	sendBufferSize = 16
)

// client is one accepted presence connection.
type client struct {
	hub           *Hub
	conn          *websocket.Conn
	handle        registry.Handle
	ip            string
	sessionFlatID string

	send      chan []byte
	aliveFlag atomic.Bool
	closeOnce sync.Once
}

func newClient(hub *Hub, conn *websocket.Conn, ip, sessionFlatID string) *client {
	c := &client{
		hub:           hub,
		conn:          conn,
		handle:        registry.NextHandle(),
		ip:            ip,
		sessionFlatID: flatid.Canonicalize(sessionFlatID),
		send:          make(chan []byte, sendBufferSize),
	}
	c.aliveFlag.Store(true)
	return c
}

func (c *client) readPump() {
	defer c.close()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetPongHandler(func(string) error {
		c.aliveFlag.Store(true)
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		f, ok := parseFrame(raw)
		if !ok {
			continue
		}
		c.handleFrame(f)
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(heartbeatInterval)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			if !c.aliveFlag.CompareAndSwap(true, false) {
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *client) handleFrame(f *frame) {
	switch f.Type {
	case "identify":
		// Only the session's own flat_id may ever be identified on this
		// connection — a session for A can't pose as B's presence client.
		if flatid.Canonicalize(f.FlatID) != c.sessionFlatID {
			return
		}
		c.hub.Registry.Identify(c.handle, c.sessionFlatID)

	case "broadcast:start":
		if c.hub.Registry.FlatID(c.handle) == "" {
			return
		}
		if reason, ok := c.hub.Registry.BroadcastStart(c.handle); !ok {
			c.reply(deniedFrame{Type: "broadcast:denied", Reason: reason})
		}

	case "broadcast:stop":
		if c.hub.Registry.FlatID(c.handle) == "" {
			return
		}
		c.hub.Registry.BroadcastStop(c.handle)

	case "broadcast:status":
		if c.hub.Registry.FlatID(c.handle) == "" {
			return
		}
		c.hub.Registry.UpdateAudio(c.handle, registry.Audio{
			MicOn:    toBool(f.MicOn),
			SysOn:    toBool(f.SysOn),
			PTT:      toBool(f.PTT),
			Speaking: toBool(f.Speaking),
			MicLevel: toMicLevel(f.MicLevel),
		})

	case "listen:start":
		if c.hub.Registry.FlatID(c.handle) == "" {
			return
		}
		c.hub.Registry.ListenStart(c.handle, flatid.Canonicalize(f.TargetFlat))

	case "listen:stop":
		if c.hub.Registry.FlatID(c.handle) == "" {
			return
		}
		c.hub.Registry.ListenStop(c.handle)
	}
}

func (c *client) reply(v interface{}) {
	select {
	case c.send <- mustJSON(v):
	default:
	}
}

// close tears down the connection and releases all registry membership.
// Safe to call more than once (idempotent cleanup per the error-handling
// policy).
func (c *client) close() {
	c.closeOnce.Do(func() {
		c.hub.Registry.Disconnect(c.handle)
		c.conn.Close()
	})
}
