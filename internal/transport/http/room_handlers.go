package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/mkravets/roomcast-server/internal/auth"
	"github.com/mkravets/roomcast-server/internal/realtime"
	"github.com/mkravets/roomcast-server/internal/store"
)

// RoomHandlers provides HTTP handlers for room endpoints.
type RoomHandlers struct {
	store store.Store
	hub   *realtime.Hub
	log   *zerolog.Logger
}

// NewRoomHandlers creates a new room handlers instance.
func NewRoomHandlers(st store.Store, hub *realtime.Hub, logger *zerolog.Logger) *RoomHandlers {
	return &RoomHandlers{
		store: st,
		hub:   hub,
		log:   logger,
	}
}

// CreateRoomRequest represents the room creation request body.
type CreateRoomRequest struct {
	Name        string  `json:"name" binding:"required"`
	IsPrivate   bool    `json:"is_private"`
	Password    *string `json:"password"`
	Description *string `json:"description"`
}

// UpdateRoomRequest represents the room update request body.
type UpdateRoomRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Password    *string `json:"password"`
}

// JoinRoomRequest carries the optional password for private rooms.
type JoinRoomRequest struct {
	Password *string `json:"password"`
}

// ListRooms returns all rooms.
// GET /api/rooms
func (h *RoomHandlers) ListRooms(c *gin.Context) {
	rooms, err := h.store.ListRooms(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list rooms")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]RoomResponse, 0, len(rooms))
	for _, r := range rooms {
		response = append(response, toRoomResponse(r))
	}
	c.JSON(http.StatusOK, response)
}

// CreateRoom creates a room and announces it to everyone online.
// POST /api/rooms
func (h *RoomHandlers) CreateRoom(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	var req CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid create room request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "room name is required"})
		return
	}

	var passwordHash *string
	if req.IsPrivate {
		if req.Password == nil || strings.TrimSpace(*req.Password) == "" {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "private rooms require a password"})
			return
		}
		hash, err := auth.HashPassword(*req.Password)
		if err != nil {
			h.log.Error().Err(err).Msg("failed to hash room password")
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
			return
		}
		passwordHash = &hash
	}

	room, err := h.store.CreateRoom(c.Request.Context(), req.Name, req.IsPrivate, passwordHash, userID, req.Description)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to create room")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	// Announce after the row is committed; delivery failures never undo it.
	h.hub.BroadcastAll(c.Request.Context(), realtime.RoomCreatedEvent(room))

	c.JSON(http.StatusCreated, toRoomResponse(room))
}

// JoinRoom verifies access and subscribes the caller's live connections to the
// room's message stream.
// POST /api/rooms/:id/join
func (h *RoomHandlers) JoinRoom(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}
	roomID := c.Param("id")

	room, err := h.store.GetRoom(c.Request.Context(), roomID)
	if err != nil {
		h.writeRoomError(c, err, roomID)
		return
	}

	if room.IsPrivate && room.CreatedBy != userID {
		var req JoinRoomRequest
		// Body is optional; absence means no password was supplied.
		_ = c.ShouldBindJSON(&req)
		if req.Password == nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Password is required for private rooms"})
			return
		}
		if room.PasswordHash == nil ||
			auth.ComparePassword(*room.PasswordHash, *req.Password) != nil {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Incorrect password"})
			return
		}
	}

	h.hub.OnRoomJoined(userID, roomID)

	c.JSON(http.StatusOK, gin.H{"message": "Joined room successfully", "room": toRoomResponse(room)})
}

// LeaveRoom unsubscribes the caller's live connections from a room.
// POST /api/rooms/:id/leave
func (h *RoomHandlers) LeaveRoom(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}
	roomID := c.Param("id")

	exists, err := h.store.RoomExists(c.Request.Context(), roomID)
	if err != nil {
		h.log.Error().Err(err).Str("room_id", roomID).Msg("failed to check room")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	if !exists {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "room not found"})
		return
	}

	h.hub.OnRoomLeft(userID, roomID)

	c.JSON(http.StatusOK, gin.H{"message": "Left room successfully"})
}

// UpdateRoom lets the creator change a room's name, description, or password.
// PUT /api/rooms/:id
func (h *RoomHandlers) UpdateRoom(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}
	roomID := c.Param("id")

	room, err := h.store.GetRoom(c.Request.Context(), roomID)
	if err != nil {
		h.writeRoomError(c, err, roomID)
		return
	}
	if room.CreatedBy != userID {
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "only the creator can update this room"})
		return
	}

	var req UpdateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid update room request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if req.Name != nil && strings.TrimSpace(*req.Name) != "" {
		room.Name = *req.Name
	}
	if req.Description != nil {
		room.Description = req.Description
	}
	if req.Password != nil && room.IsPrivate {
		hash, err := auth.HashPassword(*req.Password)
		if err != nil {
			h.log.Error().Err(err).Msg("failed to hash room password")
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
			return
		}
		room.PasswordHash = &hash
	}

	if err := h.store.UpdateRoom(c.Request.Context(), room); err != nil {
		h.log.Error().Err(err).Str("room_id", roomID).Msg("failed to update room")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.hub.BroadcastAll(c.Request.Context(), realtime.RoomUpdatedEvent(room))

	c.JSON(http.StatusOK, toRoomResponse(room))
}

// DeleteRoom lets the creator remove a room and its messages.
// DELETE /api/rooms/:id
func (h *RoomHandlers) DeleteRoom(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}
	roomID := c.Param("id")

	room, err := h.store.GetRoom(c.Request.Context(), roomID)
	if err != nil {
		h.writeRoomError(c, err, roomID)
		return
	}
	if room.CreatedBy != userID {
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "only the creator can delete this room"})
		return
	}

	if err := h.store.DeleteRoom(c.Request.Context(), roomID); err != nil {
		h.log.Error().Err(err).Str("room_id", roomID).Msg("failed to delete room")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.hub.BroadcastAll(c.Request.Context(), realtime.RoomDeletedEvent(roomID))

	c.JSON(http.StatusOK, gin.H{"message": "Room deleted successfully"})
}

func (h *RoomHandlers) writeRoomError(c *gin.Context, err error, roomID string) {
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "room not found"})
		return
	}
	h.log.Error().Err(err).Str("room_id", roomID).Msg("failed to load room")
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
}
