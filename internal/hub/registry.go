package hub

import (
	"sync"

	"github.com/halvard-k/roomrelay/internal/ids"
)

// Registry owns the one hub per actively-served room, created lazily on
// first connect and evicted once its last subscriber leaves.
//
// Adapted from the teacher's terminal.SessionManager map-of-maps
// bookkeeping, collapsed to a single level: this registry owns hubs, not
// per-user session sets.
type Registry struct {
	mu      sync.Mutex
	hubs    map[ids.RoomID]*Hub
	backlog int
}

// NewRegistry returns an empty registry whose hubs are created with the
// given per-subscriber backlog depth.
func NewRegistry(backlog int) *Registry {
	return &Registry{hubs: make(map[ids.RoomID]*Hub), backlog: backlog}
}

// GetOrCreate returns the hub for id, creating it if this is the first
// caller for the room. No I/O happens under the registry lock.
func (r *Registry) GetOrCreate(id ids.RoomID) *Hub {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.hubs[id]
	if !ok {
		h = New(r.backlog)
		r.hubs[id] = h
	}

	return h
}

// Release drops the registry's reference to h if it has no remaining
// subscribers. Called after a session unsubscribes from h; safe to call
// even if another session subscribed to the same hub in the meantime.
func (r *Registry) Release(id ids.RoomID, h *Hub) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if h.Count() > 0 {
		return
	}

	if r.hubs[id] == h {
		delete(r.hubs, id)
	}
}

// Len reports the number of rooms with a live hub. Test-only convenience.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.hubs)
}

// Entry is one room's current subscriber count as observed under the
// registry guard.
type Entry struct {
	RoomID ids.RoomID
	Size   int
}

// Snapshot returns the subscriber count of every currently-registered
// hub, taken under the registry's guard. It never creates or removes
// registry entries — a room with no active session simply does not
// appear.
func (r *Registry) Snapshot() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries := make([]Entry, 0, len(r.hubs))
	for id, h := range r.hubs {
		entries = append(entries, Entry{RoomID: id, Size: h.Count()})
	}

	return entries
}
