package realtime

import "sync"

// Membership tracks which rooms each connected user is currently subscribed
// to. It is connection-scoped, not persisted: the set represents "currently
// viewing", distinct from durable room participation, and is wiped when the
// user's last connection closes. Clients re-join rooms after reconnecting.
type Membership struct {
	mu    sync.RWMutex
	rooms map[string]map[string]struct{} // userID -> set of roomIDs
}

// NewMembership creates an empty room membership tracker.
func NewMembership() *Membership {
	return &Membership{rooms: make(map[string]map[string]struct{})}
}

// Join adds roomID to the user's membership set.
func (m *Membership) Join(userID, roomID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	set, ok := m.rooms[userID]
	if !ok {
		set = make(map[string]struct{})
		m.rooms[userID] = set
	}
	set[roomID] = struct{}{}
}

// Leave removes roomID from the user's set, deleting the entry when empty.
func (m *Membership) Leave(userID, roomID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	set, ok := m.rooms[userID]
	if !ok {
		return
	}
	delete(set, roomID)
	if len(set) == 0 {
		delete(m.rooms, userID)
	}
}

// Purge removes the user's entire membership set. Called when the registry
// drops a user's last connection so a reconnect starts clean.
func (m *Membership) Purge(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rooms, userID)
}

// MembersOf returns a snapshot of users currently subscribed to roomID.
func (m *Membership) MembersOf(roomID string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	members := make([]string, 0)
	for userID, set := range m.rooms {
		if _, ok := set[roomID]; ok {
			members = append(members, userID)
		}
	}
	return members
}

// Rooms returns a snapshot of the rooms the user is subscribed to.
func (m *Membership) Rooms(userID string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]string, 0, len(m.rooms[userID]))
	for roomID := range m.rooms[userID] {
		out = append(out, roomID)
	}
	return out
}
