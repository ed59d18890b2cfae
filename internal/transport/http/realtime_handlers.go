package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/mkravets/roomcast-server/internal/realtime"
)

// RealtimeHandlers provides the polling fallback endpoints.
type RealtimeHandlers struct {
	poller *realtime.Poller
	log    *zerolog.Logger
}

// NewRealtimeHandlers creates a new realtime handlers instance.
func NewRealtimeHandlers(poller *realtime.Poller, logger *zerolog.Logger) *RealtimeHandlers {
	return &RealtimeHandlers{
		poller: poller,
		log:    logger,
	}
}

// Poll returns the events a client missed since its last poll.
// GET /api/realtime/poll?lastMessageId=&lastTimestamp=
func (h *RealtimeHandlers) Poll(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	result, err := h.poller.Poll(c.Request.Context(), userID,
		c.Query("lastMessageId"), c.Query("lastTimestamp"))
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("poll failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, result)
}

// Status advertises the available realtime transports.
// GET /api/realtime/status
func (h *RealtimeHandlers) Status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"websocket_available":   true,
		"longpolling_available": true,
		"recommended":           "websocket",
	})
}
