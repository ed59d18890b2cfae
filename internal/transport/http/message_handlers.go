package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/mkravets/roomcast-server/internal/realtime"
	"github.com/mkravets/roomcast-server/internal/store"
)

const searchResultLimit = 50

// MessageHandlers provides HTTP handlers for message endpoints.
type MessageHandlers struct {
	store store.Store
	hub   *realtime.Hub
	log   *zerolog.Logger
}

// NewMessageHandlers creates a new message handlers instance.
func NewMessageHandlers(st store.Store, hub *realtime.Hub, logger *zerolog.Logger) *MessageHandlers {
	return &MessageHandlers{
		store: st,
		hub:   hub,
		log:   logger,
	}
}

// SendMessageRequest represents the send message request body.
type SendMessageRequest struct {
	RoomID  string `json:"room_id" binding:"required"`
	Content string `json:"content" binding:"required"`
	Type    string `json:"type"`
}

// SendMessage persists a message and fans it out to the room's live members.
// POST /api/messages
func (h *MessageHandlers) SendMessage(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid send message request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	msgType := store.MessageType(req.Type)
	if msgType == "" {
		msgType = store.MessageTypeText
	}
	if msgType != store.MessageTypeText && msgType != store.MessageTypeImage {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid message type"})
		return
	}

	exists, err := h.store.RoomExists(c.Request.Context(), req.RoomID)
	if err != nil {
		h.log.Error().Err(err).Str("room_id", req.RoomID).Msg("failed to check room")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	if !exists {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "room not found"})
		return
	}

	sender, err := h.store.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("failed to load sender")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	msg := &store.Message{
		RoomID:       req.RoomID,
		SenderID:     sender.ID,
		SenderName:   sender.Name,
		SenderAvatar: sender.Avatar,
		Content:      req.Content,
		Type:         msgType,
	}
	if err := h.store.SaveMessage(c.Request.Context(), msg); err != nil {
		h.log.Error().Err(err).Str("room_id", req.RoomID).Msg("failed to save message")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	// Fan out strictly after the commit, and only to the room's live members.
	h.hub.BroadcastToRoom(c.Request.Context(), req.RoomID, realtime.NewMessageEvent(msg))

	c.JSON(http.StatusCreated, toMessageResponse(msg))
}

// RoomMessages returns a room's history in ascending order, with messages from
// senders the caller has blocked filtered out.
// GET /api/messages/rooms/:id
func (h *MessageHandlers) RoomMessages(c *gin.Context) {
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

	blocked, err := h.store.ListBlockedIDs(c.Request.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("failed to list blocked ids")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	messages, err := h.store.ListRoomMessages(c.Request.Context(), roomID, blocked)
	if err != nil {
		h.log.Error().Err(err).Str("room_id", roomID).Msg("failed to list messages")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]MessageResponse, 0, len(messages))
	for _, m := range messages {
		response = append(response, toMessageResponse(m))
	}
	c.JSON(http.StatusOK, response)
}

// SearchMessages finds text messages matching a query, newest first, with each
// hit's room name resolved.
// GET /api/messages/search?q=
func (h *MessageHandlers) SearchMessages(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "search query is required"})
		return
	}

	blocked, err := h.store.ListBlockedIDs(c.Request.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("failed to list blocked ids")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	messages, err := h.store.SearchMessages(c.Request.Context(), query, blocked, searchResultLimit)
	if err != nil {
		h.log.Error().Err(err).Str("query", query).Msg("message search failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	roomNames := make(map[string]string)
	response := make([]MessageSearchResponse, 0, len(messages))
	for _, m := range messages {
		name, cached := roomNames[m.RoomID]
		if !cached {
			room, err := h.store.GetRoom(c.Request.Context(), m.RoomID)
			if err != nil {
				name = "Unknown"
			} else {
				name = room.Name
			}
			roomNames[m.RoomID] = name
		}
		response = append(response, MessageSearchResponse{
			MessageResponse: toMessageResponse(m),
			RoomName:        name,
		})
	}
	c.JSON(http.StatusOK, response)
}
