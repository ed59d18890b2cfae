package realtime

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
)

// Hub owns the session registry and room membership tracker and fans domain
// events out to the right subset of live connections. Delivery is
// fire-and-forget: callers never learn about per-recipient failures, and a
// dead connection is pruned as a side effect of the failed send.
type Hub struct {
	registry    *Registry
	membership  *Membership
	sendTimeout time.Duration
	log         *zerolog.Logger
}

// NewHub constructs a hub. sendTimeout bounds a single write to one connection.
func NewHub(sendTimeout time.Duration, logger *zerolog.Logger) *Hub {
	if sendTimeout <= 0 {
		sendTimeout = 10 * time.Second
	}
	return &Hub{
		registry:    NewRegistry(),
		membership:  NewMembership(),
		sendTimeout: sendTimeout,
		log:         logger,
	}
}

// OnConnectionOpened registers a new live connection for the user.
func (h *Hub) OnConnectionOpened(userID string, c *Conn) {
	h.registry.Register(userID, c)
	h.log.Debug().Str("user_id", userID).Str("conn_id", c.ID()).Msg("connection registered")
}

// OnConnectionClosed removes the connection; dropping the user's last
// connection purges their room membership so a reconnect starts clean.
func (h *Hub) OnConnectionClosed(userID string, c *Conn) {
	if last := h.registry.Unregister(userID, c); last {
		h.membership.Purge(userID)
		h.log.Debug().Str("user_id", userID).Msg("last connection closed, membership purged")
	}
}

// OnRoomJoined subscribes a connected user to a room. Joins from users with no
// live connection are ignored; membership only exists alongside a connection.
func (h *Hub) OnRoomJoined(userID, roomID string) {
	if !h.registry.IsOnline(userID) {
		h.log.Debug().Str("user_id", userID).Str("room_id", roomID).Msg("join ignored for offline user")
		return
	}
	h.membership.Join(userID, roomID)
}

// OnRoomLeft unsubscribes the user from a room.
func (h *Hub) OnRoomLeft(userID, roomID string) {
	h.membership.Leave(userID, roomID)
}

// IsOnline reports whether the user has at least one live connection.
func (h *Hub) IsOnline(userID string) bool {
	return h.registry.IsOnline(userID)
}

// Registry exposes the session registry for read-side collaborators.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// Membership exposes the room membership tracker for read-side collaborators.
func (h *Hub) Membership() *Membership {
	return h.membership
}

// SendToUser delivers an event to every live connection of one user. Does
// nothing if the user is offline.
func (h *Hub) SendToUser(ctx context.Context, userID string, ev Event) {
	payload, ok := h.marshal(ev)
	if !ok {
		return
	}
	h.deliver(ctx, []string{userID}, payload)
}

// BroadcastAll delivers an event to every live connection of every user.
func (h *Hub) BroadcastAll(ctx context.Context, ev Event) {
	payload, ok := h.marshal(ev)
	if !ok {
		return
	}
	h.deliver(ctx, h.registry.OnlineUserIDs(), payload)
}

// BroadcastToRoom delivers an event to every live connection of every user
// subscribed to the room. The audience is the membership snapshot taken at
// call time; concurrent joins and leaves do not affect an in-flight delivery.
func (h *Hub) BroadcastToRoom(ctx context.Context, roomID string, ev Event) {
	members := h.membership.MembersOf(roomID)
	if len(members) == 0 {
		return
	}
	payload, ok := h.marshal(ev)
	if !ok {
		return
	}
	h.deliver(ctx, members, payload)
}

// deliver pushes one serialized frame to every connection of every target
// user. Connection snapshots are taken under lock; the sends themselves run
// outside it so a stalled client cannot block registry mutations. A failed
// send prunes that connection and delivery continues with the rest.
func (h *Hub) deliver(ctx context.Context, userIDs []string, payload []byte) {
	for _, userID := range userIDs {
		for _, conn := range h.registry.ConnectionsFor(userID) {
			sendCtx, cancel := context.WithTimeout(ctx, h.sendTimeout)
			err := conn.Send(sendCtx, payload)
			cancel()
			if err != nil {
				h.log.Debug().Err(err).Str("user_id", userID).Str("conn_id", conn.ID()).Msg("send failed, pruning connection")
				h.OnConnectionClosed(userID, conn)
			}
		}
	}
}

func (h *Hub) marshal(ev Event) ([]byte, bool) {
	payload, err := json.Marshal(ev)
	if err != nil {
		h.log.Error().Err(err).Str("event_type", string(ev.Type)).Msg("event marshal failed, broadcast skipped")
		return nil, false
	}
	return payload, true
}
