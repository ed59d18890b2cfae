package realtime

import "sync"

// Registry tracks which users hold live connections. A user key exists iff it
// maps to at least one connection; the last unregister deletes the key.
type Registry struct {
	mu    sync.RWMutex
	conns map[string][]*Conn
}

// NewRegistry creates an empty session registry.
func NewRegistry() *Registry {
	return &Registry{conns: make(map[string][]*Conn)}
}

// Register adds a connection under userID, creating the entry if absent.
func (r *Registry) Register(userID string, c *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[userID] = append(r.conns[userID], c)
}

// Unregister removes exactly the given connection from userID's set. It is a
// no-op if the user or connection is already gone; connections are pruned
// concurrently during failed broadcasts. Returns true when this removed the
// user's last connection.
func (r *Registry) Unregister(userID string, c *Conn) (last bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conns, ok := r.conns[userID]
	if !ok {
		return false
	}
	for i, have := range conns {
		if have == c {
			conns = append(conns[:i], conns[i+1:]...)
			break
		}
	}
	if len(conns) == 0 {
		delete(r.conns, userID)
		return true
	}
	r.conns[userID] = conns
	return false
}

// IsOnline reports whether the user has at least one live connection.
func (r *Registry) IsOnline(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns[userID]) > 0
}

// ConnectionsFor returns a snapshot of the user's current connections.
func (r *Registry) ConnectionsFor(userID string) []*Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := r.conns[userID]
	out := make([]*Conn, len(conns))
	copy(out, conns)
	return out
}

// OnlineUserIDs returns a snapshot of all users with live connections.
func (r *Registry) OnlineUserIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.conns))
	for id := range r.conns {
		ids = append(ids, id)
	}
	return ids
}
