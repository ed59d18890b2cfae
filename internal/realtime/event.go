package realtime

import (
	"time"

	"github.com/mkravets/roomcast-server/internal/store"
)

// Kind is the wire-level event type tag.
type Kind string

const (
	KindNewMessage  Kind = "NEW_MESSAGE"
	KindRoomCreated Kind = "ROOM_CREATED"
	KindRoomUpdated Kind = "ROOM_UPDATED"
	KindRoomDeleted Kind = "ROOM_DELETED"
	KindUserJoined  Kind = "USER_JOINED"
	KindUserUpdate  Kind = "USER_UPDATE"
	KindUserLeft    Kind = "USER_LEFT"
)

// Event is the envelope pushed over WebSocket and returned from polls.
// Payload field names are lowerCamelCase; the REST API uses snake_case.
// Clients depend on both shapes as they are.
type Event struct {
	Type    Kind `json:"type"`
	Payload any  `json:"payload"`
}

// MessagePayload is the NEW_MESSAGE payload.
type MessagePayload struct {
	ID           string `json:"id"`
	RoomID       string `json:"roomId"`
	SenderID     string `json:"senderId"`
	SenderName   string `json:"senderName"`
	SenderAvatar string `json:"senderAvatar"`
	Content      string `json:"content"`
	Type         string `json:"type"`
	Timestamp    string `json:"timestamp"`
}

// RoomPayload is the ROOM_CREATED / ROOM_UPDATED payload.
type RoomPayload struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	IsPrivate   bool    `json:"isPrivate"`
	CreatedBy   string  `json:"createdBy"`
	Description *string `json:"description"`
}

// RoomDeletedPayload is the ROOM_DELETED payload.
type RoomDeletedPayload struct {
	RoomID string `json:"roomId"`
}

// UserPayload is the USER_JOINED / USER_UPDATE payload.
type UserPayload struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Email     string   `json:"email"`
	Avatar    string   `json:"avatar"`
	IsOnline  bool     `json:"isOnline"`
	Bio       *string  `json:"bio"`
	Favorites []string `json:"favorites"`
	Blocked   []string `json:"blocked"`
}

// UserLeftPayload is the USER_LEFT payload.
type UserLeftPayload struct {
	UserID string `json:"userId"`
}

// NewMessageEvent builds a NEW_MESSAGE event from a persisted message.
func NewMessageEvent(m *store.Message) Event {
	return Event{Type: KindNewMessage, Payload: MessagePayload{
		ID:           m.ID,
		RoomID:       m.RoomID,
		SenderID:     m.SenderID,
		SenderName:   m.SenderName,
		SenderAvatar: m.SenderAvatar,
		Content:      m.Content,
		Type:         string(m.Type),
		Timestamp:    formatTimestamp(m.Timestamp),
	}}
}

// RoomCreatedEvent builds a ROOM_CREATED event.
func RoomCreatedEvent(r *store.Room) Event {
	return Event{Type: KindRoomCreated, Payload: roomPayload(r)}
}

// RoomUpdatedEvent builds a ROOM_UPDATED event.
func RoomUpdatedEvent(r *store.Room) Event {
	return Event{Type: KindRoomUpdated, Payload: roomPayload(r)}
}

// RoomDeletedEvent builds a ROOM_DELETED event.
func RoomDeletedEvent(roomID string) Event {
	return Event{Type: KindRoomDeleted, Payload: RoomDeletedPayload{RoomID: roomID}}
}

// UserJoinedEvent builds a USER_JOINED event for a freshly registered user.
func UserJoinedEvent(u *store.User) Event {
	return Event{Type: KindUserJoined, Payload: userPayload(u, nil, nil)}
}

// UserUpdateEvent builds a USER_UPDATE event carrying the user's current
// relationship sets.
func UserUpdateEvent(u *store.User, favorites, blocked []string) Event {
	return Event{Type: KindUserUpdate, Payload: userPayload(u, favorites, blocked)}
}

// UserLeftEvent builds a USER_LEFT event.
func UserLeftEvent(userID string) Event {
	return Event{Type: KindUserLeft, Payload: UserLeftPayload{UserID: userID}}
}

func roomPayload(r *store.Room) RoomPayload {
	return RoomPayload{
		ID:          r.ID,
		Name:        r.Name,
		IsPrivate:   r.IsPrivate,
		CreatedBy:   r.CreatedBy,
		Description: r.Description,
	}
}

func userPayload(u *store.User, favorites, blocked []string) UserPayload {
	if favorites == nil {
		favorites = make([]string, 0)
	}
	if blocked == nil {
		blocked = make([]string, 0)
	}
	return UserPayload{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Avatar:    u.Avatar,
		IsOnline:  u.IsOnline,
		Bio:       u.Bio,
		Favorites: favorites,
		Blocked:   blocked,
	}
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
