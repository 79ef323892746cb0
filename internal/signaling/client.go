package signaling

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"audix/internal/constants"
	"audix/internal/flatid"
)

const (
	writeWait         = 10 * time.Second
	maxMessageSize    = 8192
	sendBufferSize    = 16
	heartbeatInterval = 15 * time.Second

	connIDBytes = 8 // hex-encodes to 16 chars
)

func newConnID() (string, error) {
	b := make([]byte, connIDBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// wsClient is the WebSocket-connection half of a signalClient: the pumps,
// heartbeat, and frame router. signalClient itself is the plain state record
// shared with the registry so disconnect cleanup doesn't need the socket.
type wsClient struct {
	hub  *Hub
	conn *websocket.Conn
	self *signalClient

	aliveFlag atomic.Bool
	closeOnce sync.Once
}

func (c *wsClient) readPump() {
	defer c.close()

	c.aliveFlag.Store(true)
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
		if c.handleFrame(f) {
			return // connection closed by handler (duplicate broadcaster, code 1008)
		}
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(heartbeatInterval)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case msg, ok := <-c.self.send:
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

// handleFrame routes one parsed frame. It returns true if the connection
// was closed as a side effect (duplicate-broadcaster identify).
func (c *wsClient) handleFrame(f *frame) bool {
	switch f.Type {
	case "identify":
		return c.handleIdentify(f)

	case "listen:join":
		c.handleListenJoin(f)

	case "listen:leave":
		c.handleListenLeave()

	case "webrtc:offer":
		c.forwardToListener(f.ListenerID, offerFrame{Type: "webrtc:offer", From: c.self.id, SDP: f.SDP})

	case "webrtc:answer":
		c.forwardToBroadcaster(f.BroadcasterFlat, answerFrame{Type: "webrtc:answer", ListenerID: c.self.id, SDP: f.SDP})

	case "webrtc:ice":
		if f.ListenerID != "" {
			c.forwardToListener(f.ListenerID, iceToListenerFrame{Type: "webrtc:ice", From: c.self.id, Candidate: f.Candidate})
		} else if f.BroadcasterFlat != "" {
			c.forwardToBroadcaster(f.BroadcasterFlat, iceToBroadcasterFrame{Type: "webrtc:ice", ListenerID: c.self.id, Candidate: f.Candidate})
		}
	}
	return false
}

func (c *wsClient) handleIdentify(f *frame) bool {
	flatID := flatid.Canonicalize(f.FlatID)
	if flatID != flatid.Canonicalize(c.self.sessionFlatID) {
		// Only the session's own flat_id may be identified on this
		// connection — a session for A can't pose as B on the signal plane.
		return false
	}
	role := Role(f.Role)
	if role != RoleBroadcaster {
		role = RoleListener
	}

	if role == RoleListener {
		c.self.flatID = flatID
		c.self.role = RoleListener
		return false
	}

	if !c.hub.signals.registerBroadcaster(flatID, c.self) {
		c.reply(deniedFrame{Type: "broadcast:denied", Reason: constants.ErrCodeAlreadyBroadcasting})
		c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, ""),
			time.Now().Add(writeWait))
		return true
	}
	return false
}

func (c *wsClient) handleListenJoin(f *frame) {
	targetFlat := flatid.Canonicalize(f.TargetFlat)

	if !c.hub.presence.Exists(targetFlat) {
		c.reply(errorFrame{Type: "listen:error", Error: constants.ErrCodeStationOffline})
		return
	}

	broadcaster, ok := c.hub.signals.broadcasterFor(targetFlat)
	if !ok {
		c.reply(errorFrame{Type: "listen:error", Error: constants.ErrCodeBroadcasterSignalNotReady})
		return
	}

	c.hub.signals.setListenTarget(c.self, targetFlat)
	c.replyTo(broadcaster, listenerJoinFrame{Type: "listener:join", ListenerID: c.self.id})
	c.reply(listenOKFrame{Type: "listen:ok", TargetFlat: targetFlat})
}

func (c *wsClient) handleListenLeave() {
	if c.self.listeningTo == "" {
		return
	}
	broadcaster, ok := c.hub.signals.broadcasterFor(c.self.listeningTo)
	c.hub.signals.clearListenTarget(c.self)
	if !ok {
		return
	}
	c.replyTo(broadcaster, listenerLeaveFrame{Type: "listener:leave", ListenerID: c.self.id})
}

func (c *wsClient) forwardToListener(listenerID string, v interface{}) {
	if listenerID == "" {
		return
	}
	listener, ok := c.hub.signals.byID(listenerID)
	if !ok {
		return
	}
	c.replyTo(listener, v)
}

func (c *wsClient) forwardToBroadcaster(broadcasterFlat string, v interface{}) {
	if broadcasterFlat == "" {
		return
	}
	broadcaster, ok := c.hub.signals.broadcasterFor(flatid.Canonicalize(broadcasterFlat))
	if !ok {
		return
	}
	c.replyTo(broadcaster, v)
}

func (c *wsClient) reply(v interface{}) {
	c.replyTo(c.self, v)
}

// replyTo is a best-effort, non-blocking send: a full buffer drops the
// frame silently, matching the signaling channel's best-effort relay
// contract.
func (c *wsClient) replyTo(target *signalClient, v interface{}) {
	select {
	case target.send <- mustJSON(v):
	default:
	}
}

// close releases this connection from the signal registry. Safe to call
// more than once.
func (c *wsClient) close() {
	c.closeOnce.Do(func() {
		c.hub.signals.remove(c.self)
		c.conn.Close()
	})
}
