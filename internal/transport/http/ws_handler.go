package http

import (
	"context"
	"encoding/json"
	stdhttp "net/http"

	"github.com/coder/websocket"
	"github.com/rs/zerolog"

	"github.com/mkravets/roomcast-server/internal/auth"
	"github.com/mkravets/roomcast-server/internal/realtime"
)

// WSHandler upgrades HTTP connections and attaches them to the hub.
type WSHandler struct {
	authService *auth.Service
	hub         *realtime.Hub
	log         *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(authService *auth.Service, hub *realtime.Hub, logger *zerolog.Logger) *WSHandler {
	return &WSHandler{
		authService: authService,
		hub:         hub,
		log:         logger,
	}
}

// wsSink adapts a websocket connection to the hub's delivery interface.
type wsSink struct {
	conn *websocket.Conn
}

func (s *wsSink) Send(ctx context.Context, data []byte) error {
	return s.conn.Write(ctx, websocket.MessageText, data)
}

// controlFrame is the only inbound shape clients are expected to send.
type controlFrame struct {
	Type string `json:"type"`
}

var pongFrame = []byte(`{"type":"pong"}`)

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	token := r.URL.Query().Get("token")
	if token == "" {
		conn.Close(websocket.StatusPolicyViolation, "Authentication required")
		return
	}
	claims, err := h.authService.ValidateToken(token)
	if err != nil {
		h.log.Debug().Err(err).Msg("ws token rejected")
		conn.Close(websocket.StatusPolicyViolation, "Invalid token")
		return
	}
	userID := claims.Subject

	client := realtime.NewConn(&wsSink{conn: conn})
	h.hub.OnConnectionOpened(userID, client)
	defer h.hub.OnConnectionClosed(userID, client)

	h.log.Info().Str("user_id", userID).Str("conn_id", client.ID()).Msg("ws connected")

	err = h.readLoop(r.Context(), conn, client)

	status := websocket.CloseStatus(err)
	if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
		err = nil
	}
	if err != nil {
		h.log.Debug().Err(err).Str("user_id", userID).Msg("ws connection closed with error")
	}
	h.log.Info().Str("user_id", userID).Str("conn_id", client.ID()).Msg("ws disconnected")

	conn.Close(websocket.StatusNormalClosure, "closing")
}

// readLoop answers ping frames and discards everything else. Server events
// reach the socket through the hub, not through this loop.
func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, client *realtime.Conn) error {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}

		var frame controlFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			continue
		}
		if frame.Type == "ping" {
			if err := client.Send(ctx, pongFrame); err != nil {
				return err
			}
		}
	}
}
