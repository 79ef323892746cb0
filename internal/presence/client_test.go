package presence

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// newTestHub wires a Hub behind an httptest server whose handler reads the
// session flat_id from a query parameter, standing in for RequireSession's
// context attachment in the real router.
func newTestHub(t *testing.T) (*Hub, string) {
	t.Helper()
	hub := NewHub()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.Serve(w, r, "127.0.0.1", r.URL.Query().Get("session_flat_id"))
	}))
	t.Cleanup(server.Close)
	return hub, "ws" + strings.TrimPrefix(server.URL, "http")
}

// dialAs connects with the given session flat_id attached, matching what
// RequireSession would resolve for the connection.
func dialAs(t *testing.T, url, sessionFlatID string) *websocket.Conn {
	t.Helper()
	dialURL := url
	if sessionFlatID != "" {
		dialURL += "?session_flat_id=" + sessionFlatID
	}
	conn, _, err := websocket.DefaultDialer.Dial(dialURL, nil)
	if err != nil {
		t.Fatalf("dialing: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, msg string) {
	t.Helper()
	if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
		t.Fatalf("writing frame: %v", err)
	}
}

func TestBroadcastStartAppearsInPublicList(t *testing.T) {
	hub, url := newTestHub(t)
	conn := dialAs(t, url, "a1")

	send(t, conn, `{"type":"identify","flat_id":"a1"}`)
	send(t, conn, `{"type":"broadcast:start"}`)

	waitFor(t, func() bool { return len(hub.Registry.PublicList()) == 1 })
}

func TestIdentifyMismatchedWithSessionIsIgnored(t *testing.T) {
	hub, url := newTestHub(t)
	conn := dialAs(t, url, "a1")

	send(t, conn, `{"type":"identify","flat_id":"b2"}`)
	send(t, conn, `{"type":"broadcast:start"}`)

	time.Sleep(50 * time.Millisecond)
	if len(hub.Registry.PublicList()) != 0 {
		t.Fatalf("expected identify as b2 to be rejected for a session bound to a1")
	}
}

func TestDuplicateBroadcastIsDenied(t *testing.T) {
	hub, url := newTestHub(t)
	first := dialAs(t, url, "a1")
	send(t, first, `{"type":"identify","flat_id":"a1"}`)
	send(t, first, `{"type":"broadcast:start"}`)
	waitFor(t, func() bool { return hub.Registry.Exists("A1") })

	second := dialAs(t, url, "a1")
	send(t, second, `{"type":"identify","flat_id":"a1"}`)
	send(t, second, `{"type":"broadcast:start"}`)

	second.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := second.ReadMessage()
	if err != nil {
		t.Fatalf("reading denial: %v", err)
	}
	if !strings.Contains(string(raw), "ALREADY_BROADCASTING") {
		t.Fatalf("expected denial frame, got %s", raw)
	}
}

func TestBroadcasterDisconnectCleansUpListeners(t *testing.T) {
	hub, url := newTestHub(t)
	broadcaster := dialAs(t, url, "a1")
	send(t, broadcaster, `{"type":"identify","flat_id":"a1"}`)
	send(t, broadcaster, `{"type":"broadcast:start"}`)
	waitFor(t, func() bool { return hub.Registry.Exists("A1") })

	listener := dialAs(t, url, "b2")
	send(t, listener, `{"type":"identify","flat_id":"b2"}`)
	send(t, listener, `{"type":"listen:start","targetFlat":"a1"}`)
	waitFor(t, func() bool { return len(hub.Registry.PublicList()) == 1 && hub.Registry.PublicList()[0].Listeners == 1 })

	broadcaster.Close()

	waitFor(t, func() bool { return !hub.Registry.Exists("A1") })
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met before deadline")
}
