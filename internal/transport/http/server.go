package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/mkravets/roomcast-server/internal/auth"
	"github.com/mkravets/roomcast-server/internal/config"
	"github.com/mkravets/roomcast-server/internal/realtime"
	"github.com/mkravets/roomcast-server/internal/service/relationships"
	"github.com/mkravets/roomcast-server/internal/store"
)

// NewServer builds the HTTP server with all REST and WebSocket routes.
func NewServer(
	hub *realtime.Hub,
	poller *realtime.Poller,
	authService *auth.Service,
	rels *relationships.Service,
	st store.Store,
	cfg *config.Config,
	logger *zerolog.Logger,
) *stdhttp.Server {
	router := NewRouter(hub, poller, authService, rels, st, cfg, logger)

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

// NewRouter builds the gin engine. Split out from NewServer so tests can mount
// it on httptest servers.
func NewRouter(
	hub *realtime.Hub,
	poller *realtime.Poller,
	authService *auth.Service,
	rels *relationships.Service,
	st store.Store,
	cfg *config.Config,
	logger *zerolog.Logger,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))

	authHandlers := NewAuthHandlers(authService, rels, hub, logger)
	userHandlers := NewUserHandlers(st, rels, hub, logger)
	roomHandlers := NewRoomHandlers(st, hub, logger)
	messageHandlers := NewMessageHandlers(st, hub, logger)
	uploadHandlers := NewUploadHandlers(st, cfg.UploadDir, cfg.MaxUploadBytes, logger)
	realtimeHandlers := NewRealtimeHandlers(poller, logger)
	wsHandler := NewWSHandler(authService, hub, logger)

	router.GET("/health", func(c *gin.Context) {
		c.String(stdhttp.StatusOK, "ok")
	})

	router.GET("/ws", gin.WrapH(wsHandler))

	router.Static("/api/uploads", cfg.UploadDir)

	api := router.Group("/api")
	{
		api.POST("/auth/register", authHandlers.Register)
		api.POST("/auth/login", authHandlers.Login)

		authed := api.Group("")
		authed.Use(AuthMiddleware(authService, logger))
		{
			authed.POST("/auth/logout", authHandlers.Logout)
			authed.GET("/auth/me", authHandlers.Me)

			authed.GET("/users", userHandlers.ListUsers)
			authed.PUT("/users/:id/profile", userHandlers.UpdateProfile)
			authed.POST("/users/:id/favorites/:target", userHandlers.ToggleFavorite)
			authed.POST("/users/:id/block/:target", userHandlers.BlockUser)
			authed.POST("/users/:id/unblock/:target", userHandlers.UnblockUser)

			authed.GET("/rooms", roomHandlers.ListRooms)
			authed.POST("/rooms", roomHandlers.CreateRoom)
			authed.POST("/rooms/:id/join", roomHandlers.JoinRoom)
			authed.POST("/rooms/:id/leave", roomHandlers.LeaveRoom)
			authed.PUT("/rooms/:id", roomHandlers.UpdateRoom)
			authed.DELETE("/rooms/:id", roomHandlers.DeleteRoom)

			authed.POST("/messages", messageHandlers.SendMessage)
			authed.GET("/messages/rooms/:id", messageHandlers.RoomMessages)
			authed.GET("/messages/search", messageHandlers.SearchMessages)

			authed.POST("/upload/avatar", uploadHandlers.UploadAvatar)
			authed.POST("/upload/message-image", uploadHandlers.UploadMessageImage)

			authed.GET("/realtime/poll", realtimeHandlers.Poll)
			authed.GET("/realtime/status", realtimeHandlers.Status)
		}
	}

	return router
}
