// Package registry implements the process-wide station registry and the
// presence-plane client set it is derived from. All mutations are driven by
// the presence channel and must be atomic with respect to each other and to
// connection-close cleanup (spec's single-mutex strategy).
package registry

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Role is a presence client's role in the station model.
type Role string

const (
	RoleIdle        Role = "idle"
	RoleBroadcaster Role = "broadcaster"
	RoleListener    Role = "listener"
)

// Handle is a stable opaque reference to a presence connection — an index
// into the registry's client set rather than a raw pointer, so stations and
// clients can reference each other without a reference cycle between
// packages.
type Handle uint64

var handleCounter uint64

// NextHandle returns a fresh, process-unique handle. Called once per
// accepted presence connection.
func NextHandle() Handle {
	return Handle(atomic.AddUint64(&handleCounter, 1))
}

// Client is the in-memory PresenceClient record.
type Client struct {
	Handle      Handle
	FlatID      string
	IP          string
	Role        Role
	ListeningTo string // flat_id, empty when not listening
	ConnectedAt time.Time
}

// Audio mirrors the telemetry carried on broadcast:status frames.
type Audio struct {
	MicOn    bool
	SysOn    bool
	PTT      bool
	Speaking bool
	MicLevel float64
}

// Station is the live session owned by a broadcasting flat.
type Station struct {
	FlatID    string
	IP        string
	StartedAt time.Time
	Listeners map[Handle]struct{}
	Audio     Audio
}

// Registry is the single process-wide presence-plane store: the client set
// and the station map it derives. One mutex covers both, since spec
// invariants span them (e.g. role=listener iff present in a station's
// listener set).
type Registry struct {
	mu        sync.RWMutex
	clients   map[Handle]*Client
	stations  map[string]*Station
	startedAt time.Time
}

func New() *Registry {
	return &Registry{
		clients:   make(map[Handle]*Client),
		stations:  make(map[string]*Station),
		startedAt: time.Now(),
	}
}

// Connect creates a PresenceClient for a freshly accepted connection.
func (r *Registry) Connect(handle Handle, ip string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[handle] = &Client{
		Handle:      handle,
		IP:          ip,
		Role:        RoleIdle,
		ConnectedAt: time.Now(),
	}
}

// Identify binds the client's flat_id. Required before any station
// operation; callers must drop operations for clients with no flat_id.
func (r *Registry) Identify(handle Handle, flatID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.clients[handle]; ok {
		c.FlatID = flatID
	}
}

// FlatID returns the identified flat_id for handle, or "" if not yet
// identified (or the connection is gone).
func (r *Registry) FlatID(handle Handle) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if c, ok := r.clients[handle]; ok {
		return c.FlatID
	}
	return ""
}

const (
	denyAlreadyBroadcasting = "ALREADY_BROADCASTING"
)

// BroadcastStart attempts to start a station for handle's flat_id. Returns
// ("", true) on success, or (denyReason, false) if a station already exists.
func (r *Registry) BroadcastStart(handle Handle) (denyReason string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, exists := r.clients[handle]
	if !exists || c.FlatID == "" {
		return "", false
	}

	if _, taken := r.stations[c.FlatID]; taken {
		return denyAlreadyBroadcasting, false
	}

	if c.Role == RoleListener {
		r.removeFromListenersLocked(c)
	}

	c.Role = RoleBroadcaster
	c.ListeningTo = ""
	r.stations[c.FlatID] = &Station{
		FlatID:    c.FlatID,
		IP:        c.IP,
		StartedAt: time.Now(),
		Listeners: make(map[Handle]struct{}),
	}
	return "", true
}

// BroadcastStop tears down handle's station, if any, resetting every
// listener of that station to idle.
func (r *Registry) BroadcastStop(handle Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, exists := r.clients[handle]
	if !exists || c.FlatID == "" {
		return
	}
	r.teardownStationLocked(c.FlatID)
	c.Role = RoleIdle
}

// teardownStationLocked deletes the station for flatID (if present) and
// resets every one of its listeners to idle. Caller holds the lock.
func (r *Registry) teardownStationLocked(flatID string) {
	station, ok := r.stations[flatID]
	if !ok {
		return
	}
	for listenerHandle := range station.Listeners {
		if lc, ok := r.clients[listenerHandle]; ok {
			lc.Role = RoleIdle
			lc.ListeningTo = ""
		}
	}
	delete(r.stations, flatID)
}

// UpdateAudio applies telemetry to handle's station, if it owns one.
func (r *Registry) UpdateAudio(handle Handle, audio Audio) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, exists := r.clients[handle]
	if !exists || c.FlatID == "" {
		return
	}
	if station, ok := r.stations[c.FlatID]; ok {
		station.Audio = audio
	}
}

// ListenStart moves handle onto the listener set of targetFlatID's station.
// No-op if the target station doesn't exist or handle is a broadcaster.
func (r *Registry) ListenStart(handle Handle, targetFlatID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, exists := r.clients[handle]
	if !exists || c.Role == RoleBroadcaster {
		return
	}
	target, ok := r.stations[targetFlatID]
	if !ok {
		return
	}

	if c.Role == RoleListener && c.ListeningTo != targetFlatID {
		r.removeFromListenersLocked(c)
	}

	c.Role = RoleListener
	c.ListeningTo = targetFlatID
	target.Listeners[handle] = struct{}{}
}

// ListenStop removes handle from whatever station it is listening to.
func (r *Registry) ListenStop(handle Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, exists := r.clients[handle]
	if !exists {
		return
	}
	r.removeFromListenersLocked(c)
	c.Role = RoleIdle
	c.ListeningTo = ""
}

// removeFromListenersLocked removes c from its current station's listener
// set, if any. Caller holds the lock.
func (r *Registry) removeFromListenersLocked(c *Client) {
	if c.ListeningTo == "" {
		return
	}
	if station, ok := r.stations[c.ListeningTo]; ok {
		delete(station.Listeners, c.Handle)
	}
}

// Disconnect releases all registry membership for handle: if listening,
// leaves the listener set; if broadcasting, tears down the station exactly
// like BroadcastStop. Idempotent — safe to call on an already-removed
// handle.
func (r *Registry) Disconnect(handle Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, exists := r.clients[handle]
	if !exists {
		return
	}

	r.removeFromListenersLocked(c)
	if c.Role == RoleBroadcaster && c.FlatID != "" {
		r.teardownStationLocked(c.FlatID)
	}
	delete(r.clients, handle)
}

// Exists reports whether a station is currently registered for flatID.
func (r *Registry) Exists(flatID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.stations[flatID]
	return ok
}

// PublicStation is the IP-free, per-listener-detail-free view of a station.
type PublicStation struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Live      bool      `json:"live"`
	Listeners int       `json:"listeners"`
	StartedAt time.Time `json:"startedAt"`
}

// PublicList returns every live station sorted by flat_id ascending.
func (r *Registry) PublicList() []PublicStation {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]PublicStation, 0, len(r.stations))
	for flatID, station := range r.stations {
		out = append(out, PublicStation{
			ID:        flatID,
			Name:      flatID,
			Live:      true,
			Listeners: len(station.Listeners),
			StartedAt: station.StartedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// SnapshotListener is one entry of a station's internal listener array.
type SnapshotListener struct {
	FlatID      string    `json:"flat_id"`
	IP          string    `json:"ip"`
	ConnectedAt time.Time `json:"connectedAt"`
}

// SnapshotStation is the token-gated, IP-and-listener-detail-bearing view.
type SnapshotStation struct {
	FlatID    string             `json:"flat_id"`
	IP        string             `json:"ip"`
	StartedAt time.Time          `json:"startedAt"`
	Audio     Audio              `json:"audio"`
	Listeners []SnapshotListener `json:"listeners"`
}

// SnapshotClient is one entry of the internal snapshot's flat presence-client
// list.
type SnapshotClient struct {
	FlatID      string `json:"flat_id"`
	IP          string `json:"ip"`
	Role        Role   `json:"role"`
	ListeningTo string `json:"listening_to,omitempty"`
}

// Snapshot is the full token-gated administrative view.
type Snapshot struct {
	TotalStations int               `json:"totalStations"`
	TotalClients  int               `json:"totalClients"`
	UptimeSeconds float64           `json:"uptimeSeconds"`
	Stations      []SnapshotStation `json:"stations"`
	Clients       []SnapshotClient  `json:"clients"`
}

// InternalSnapshot returns the full administrative view of presence state.
func (r *Registry) InternalSnapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stations := make([]SnapshotStation, 0, len(r.stations))
	for flatID, station := range r.stations {
		listeners := make([]SnapshotListener, 0, len(station.Listeners))
		for h := range station.Listeners {
			if lc, ok := r.clients[h]; ok {
				listeners = append(listeners, SnapshotListener{
					FlatID:      lc.FlatID,
					IP:          lc.IP,
					ConnectedAt: lc.ConnectedAt,
				})
			}
		}
		sort.Slice(listeners, func(i, j int) bool { return listeners[i].FlatID < listeners[j].FlatID })
		stations = append(stations, SnapshotStation{
			FlatID:    flatID,
			IP:        station.IP,
			StartedAt: station.StartedAt,
			Audio:     station.Audio,
			Listeners: listeners,
		})
	}
	sort.Slice(stations, func(i, j int) bool { return stations[i].FlatID < stations[j].FlatID })

	clients := make([]SnapshotClient, 0, len(r.clients))
	for _, c := range r.clients {
		clients = append(clients, SnapshotClient{
			FlatID:      c.FlatID,
			IP:          c.IP,
			Role:        c.Role,
			ListeningTo: c.ListeningTo,
		})
	}
	sort.Slice(clients, func(i, j int) bool { return clients[i].FlatID < clients[j].FlatID })

	return Snapshot{
		TotalStations: len(stations),
		TotalClients:  len(clients),
		UptimeSeconds: time.Since(r.startedAt).Seconds(),
		Stations:      stations,
		Clients:       clients,
	}
}

// ClientRole reports the role and listen target of handle. Only the tests
// call it.
func (r *Registry) ClientRole(handle Handle) (role Role, listeningTo string, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, exists := r.clients[handle]
	if !exists {
		return "", "", false
	}
	return c.Role, c.ListeningTo, true
}
