package signaling

import "sync"

// Role is a signal client's declared role on the signaling channel.
type Role string

const (
	RoleUnknown     Role = "unknown"
	RoleBroadcaster Role = "broadcaster"
	RoleListener    Role = "listener"
)

// signalClient is the in-memory SignalClient record.
type signalClient struct {
	id            string
	flatID        string
	ip            string
	role          Role
	listeningTo   string
	sessionFlatID string

	send chan []byte
}

// signalRegistry holds the signal-plane clients map and the
// SignalBroadcasterIndex, guarded by its own mutex — distinct from the
// presence-plane registry's mutex per the two-mutex concurrency strategy.
type signalRegistry struct {
	mu           sync.RWMutex
	clients      map[string]*signalClient
	broadcasters map[string]*signalClient // flat_id -> registered broadcaster
}

func newSignalRegistry() *signalRegistry {
	return &signalRegistry{
		clients:      make(map[string]*signalClient),
		broadcasters: make(map[string]*signalClient),
	}
}

func (r *signalRegistry) add(c *signalClient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[c.id] = c
}

func (r *signalRegistry) byID(id string) (*signalClient, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[id]
	return c, ok
}

func (r *signalRegistry) broadcasterFor(flatID string) (*signalClient, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.broadcasters[flatID]
	return c, ok
}

// registerBroadcaster registers c as the broadcaster for flatID if no other
// connection currently holds that slot. Returns false if the slot is taken.
func (r *signalRegistry) registerBroadcaster(flatID string, c *signalClient) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.broadcasters[flatID]; taken {
		return false
	}
	r.broadcasters[flatID] = c
	c.role = RoleBroadcaster
	c.flatID = flatID
	return true
}

func (r *signalRegistry) setListenTarget(c *signalClient, flatID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c.role = RoleListener
	c.listeningTo = flatID
}

func (r *signalRegistry) clearListenTarget(c *signalClient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c.listeningTo = ""
}

// remove deletes c from the clients map and, if c is still the registered
// broadcaster for its flat_id, from the broadcaster index too. Idempotent.
func (r *signalRegistry) remove(c *signalClient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.broadcasters[c.flatID]; ok && existing == c {
		delete(r.broadcasters, c.flatID)
	}
	delete(r.clients, c.id)
}
