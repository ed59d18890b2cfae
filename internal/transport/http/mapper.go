package http

import (
	"time"

	"github.com/mkravets/roomcast-server/internal/store"
)

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// UserResponse represents a user in API responses.
type UserResponse struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Email     string   `json:"email"`
	Avatar    string   `json:"avatar"`
	IsOnline  bool     `json:"is_online"`
	Bio       *string  `json:"bio"`
	Favorites []string `json:"favorites"`
	Blocked   []string `json:"blocked"`
}

// RoomResponse represents a room in API responses.
type RoomResponse struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	IsPrivate   bool    `json:"is_private"`
	CreatedBy   string  `json:"created_by"`
	Description *string `json:"description"`
}

// MessageResponse represents a message in API responses.
type MessageResponse struct {
	ID           string `json:"id"`
	RoomID       string `json:"room_id"`
	SenderID     string `json:"sender_id"`
	SenderName   string `json:"sender_name"`
	SenderAvatar string `json:"sender_avatar"`
	Content      string `json:"content"`
	Type         string `json:"type"`
	Timestamp    string `json:"timestamp"`
}

// MessageSearchResponse is a message search hit with its room name resolved.
type MessageSearchResponse struct {
	MessageResponse
	RoomName string `json:"room_name"`
}

func toUserResponse(u *store.User, favorites, blocked []string) UserResponse {
	if favorites == nil {
		favorites = make([]string, 0)
	}
	if blocked == nil {
		blocked = make([]string, 0)
	}
	return UserResponse{
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

func toRoomResponse(r *store.Room) RoomResponse {
	return RoomResponse{
		ID:          r.ID,
		Name:        r.Name,
		IsPrivate:   r.IsPrivate,
		CreatedBy:   r.CreatedBy,
		Description: r.Description,
	}
}

func toMessageResponse(m *store.Message) MessageResponse {
	return MessageResponse{
		ID:           m.ID,
		RoomID:       m.RoomID,
		SenderID:     m.SenderID,
		SenderName:   m.SenderName,
		SenderAvatar: m.SenderAvatar,
		Content:      m.Content,
		Type:         string(m.Type),
		Timestamp:    m.Timestamp.UTC().Format(time.RFC3339Nano),
	}
}
