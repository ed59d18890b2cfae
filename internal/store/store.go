package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// User represents a registered user.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Avatar       string
	IsOnline     bool
	Bio          *string
	CreatedAt    time.Time
	UpdatedAt    *time.Time
}

// Room represents a chat room. Private rooms carry a password hash.
type Room struct {
	ID           string
	Name         string
	IsPrivate    bool
	PasswordHash *string
	CreatedBy    string
	Description  *string
	CreatedAt    time.Time
	UpdatedAt    *time.Time
}

// MessageType distinguishes text messages from image messages.
type MessageType string

const (
	MessageTypeText  MessageType = "text"
	MessageTypeImage MessageType = "image"
)

// Message represents a persisted chat message. Sender name and avatar are
// denormalized so history reads do not join the users table.
type Message struct {
	ID           string
	RoomID       string
	SenderID     string
	SenderName   string
	SenderAvatar string
	Content      string
	Type         MessageType
	Timestamp    time.Time
}

// RelationshipType defines the kinds of user-to-user relationships.
type RelationshipType string

const (
	RelationshipFavorite RelationshipType = "favorite"
	RelationshipBlocked  RelationshipType = "blocked"
)

// Relationship represents a directed user-to-user relationship.
type Relationship struct {
	ID        string
	UserID    string
	TargetID  string
	Type      RelationshipType
	CreatedAt time.Time
}

// UserStore handles user persistence.
type UserStore interface {
	// CreateUser creates a new user. ID and CreatedAt are assigned by the store.
	CreateUser(ctx context.Context, name, email, passwordHash, avatar string) (*User, error)

	// GetUserByID retrieves a user by ID.
	GetUserByID(ctx context.Context, id string) (*User, error)

	// GetUserByEmail retrieves a user by email.
	GetUserByEmail(ctx context.Context, email string) (*User, error)

	// ListUsers lists all users.
	ListUsers(ctx context.Context) ([]*User, error)

	// ListOnlineUsers lists users currently marked online.
	ListOnlineUsers(ctx context.Context) ([]*User, error)

	// UpdateUser persists changes to name, avatar, bio, and password hash.
	UpdateUser(ctx context.Context, u *User) error

	// SetOnline updates a user's online flag.
	SetOnline(ctx context.Context, id string, online bool) error
}

// RoomStore handles room persistence.
type RoomStore interface {
	// CreateRoom creates a new room. ID and CreatedAt are assigned by the store.
	CreateRoom(ctx context.Context, name string, isPrivate bool, passwordHash *string, createdBy string, description *string) (*Room, error)

	// GetRoom retrieves a room by ID.
	GetRoom(ctx context.Context, id string) (*Room, error)

	// ListRooms lists all rooms.
	ListRooms(ctx context.Context) ([]*Room, error)

	// RoomExists reports whether a room with the given ID exists.
	RoomExists(ctx context.Context, id string) (bool, error)

	// UpdateRoom persists changes to name, description, and password hash.
	UpdateRoom(ctx context.Context, r *Room) error

	// DeleteRoom removes a room and its messages.
	DeleteRoom(ctx context.Context, id string) error
}

// MessageStore handles message persistence.
type MessageStore interface {
	// SaveMessage persists a message. ID and Timestamp are assigned by the store.
	SaveMessage(ctx context.Context, m *Message) error

	// GetMessage retrieves a message by ID.
	GetMessage(ctx context.Context, id string) (*Message, error)

	// ListRoomMessages returns a room's messages in ascending timestamp order,
	// excluding messages from the given sender IDs.
	ListRoomMessages(ctx context.Context, roomID string, excludeSenders []string) ([]*Message, error)

	// MessagesSince returns messages with timestamp strictly greater than after,
	// ascending, capped at limit.
	MessagesSince(ctx context.Context, after time.Time, limit int) ([]*Message, error)

	// SearchMessages finds text messages containing query, newest first, capped
	// at limit, excluding messages from the given sender IDs.
	SearchMessages(ctx context.Context, query string, excludeSenders []string, limit int) ([]*Message, error)
}

// RelationshipStore handles user relationship persistence.
type RelationshipStore interface {
	// SetRelationship records a relationship of the given type, replacing the
	// opposite type for the same pair if present.
	SetRelationship(ctx context.Context, userID, targetID string, typ RelationshipType) error

	// DeleteRelationship removes a relationship. Returns whether a record was removed.
	DeleteRelationship(ctx context.Context, userID, targetID string, typ RelationshipType) (bool, error)

	// ListRelationships lists all relationships originating from a user.
	ListRelationships(ctx context.Context, userID string) ([]*Relationship, error)

	// ListBlockedIDs lists IDs of users blocked by the given user.
	ListBlockedIDs(ctx context.Context, userID string) ([]string, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore
	RoomStore
	MessageStore
	RelationshipStore

	// Close closes the underlying database connection.
	Close() error
}

// RelationshipSets splits a user's relationships into favorite and blocked ID lists.
// Both slices are non-nil so they serialize as [] rather than null.
func RelationshipSets(rels []*Relationship) (favorites, blocked []string) {
	favorites = make([]string, 0)
	blocked = make([]string, 0)
	for _, rel := range rels {
		switch rel.Type {
		case RelationshipFavorite:
			favorites = append(favorites, rel.TargetID)
		case RelationshipBlocked:
			blocked = append(blocked, rel.TargetID)
		}
	}
	return favorites, blocked
}
