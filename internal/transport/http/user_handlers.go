package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/mkravets/roomcast-server/internal/auth"
	"github.com/mkravets/roomcast-server/internal/realtime"
	"github.com/mkravets/roomcast-server/internal/service/relationships"
	"github.com/mkravets/roomcast-server/internal/store"
)

// UserHandlers provides HTTP handlers for user endpoints.
type UserHandlers struct {
	store store.Store
	rels  *relationships.Service
	hub   *realtime.Hub
	log   *zerolog.Logger
}

// NewUserHandlers creates a new user handlers instance.
func NewUserHandlers(st store.Store, rels *relationships.Service, hub *realtime.Hub, logger *zerolog.Logger) *UserHandlers {
	return &UserHandlers{
		store: st,
		rels:  rels,
		hub:   hub,
		log:   logger,
	}
}

// UpdateProfileRequest represents the profile update request body.
type UpdateProfileRequest struct {
	Name     *string `json:"name"`
	Avatar   *string `json:"avatar"`
	Password *string `json:"password"`
	Bio      *string `json:"bio"`
}

// ListUsers returns all users, hiding the ones the caller has blocked.
// GET /api/users
func (h *UserHandlers) ListUsers(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	blockedIDs, err := h.store.ListBlockedIDs(c.Request.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("failed to list blocked ids")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	blocked := make(map[string]struct{}, len(blockedIDs))
	for _, id := range blockedIDs {
		blocked[id] = struct{}{}
	}

	users, err := h.store.ListUsers(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list users")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]UserResponse, 0, len(users))
	for _, u := range users {
		if _, isBlocked := blocked[u.ID]; isBlocked {
			continue
		}
		favorites, blockedByUser, err := h.rels.Sets(c.Request.Context(), u.ID)
		if err != nil {
			h.log.Error().Err(err).Str("user_id", u.ID).Msg("failed to load relationships")
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
			return
		}
		response = append(response, toUserResponse(u, favorites, blockedByUser))
	}

	c.JSON(http.StatusOK, response)
}

// UpdateProfile updates the caller's own profile.
// PUT /api/users/:id/profile
func (h *UserHandlers) UpdateProfile(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}
	if c.Param("id") != userID {
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "you can only update your own profile"})
		return
	}

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid profile update request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	user, err := h.store.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("failed to load user")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.Avatar != nil {
		if msg := validateAvatarURL(*req.Avatar); msg != "" {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
			return
		}
		user.Avatar = *req.Avatar
	}
	if req.Bio != nil {
		user.Bio = req.Bio
	}
	if req.Password != nil && strings.TrimSpace(*req.Password) != "" {
		hash, err := auth.HashPassword(*req.Password)
		if err != nil {
			h.log.Error().Err(err).Msg("failed to hash password")
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
			return
		}
		user.PasswordHash = hash
	}

	if err := h.store.UpdateUser(c.Request.Context(), user); err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("failed to update profile")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	favorites, blocked := h.emitUserUpdate(c.Request.Context(), user)

	c.JSON(http.StatusOK, toUserResponse(user, favorites, blocked))
}

// ToggleFavorite flips the favorite flag for a target user.
// POST /api/users/:id/favorites/:target
func (h *UserHandlers) ToggleFavorite(c *gin.Context) {
	userID, ok := h.requireSelf(c)
	if !ok {
		return
	}

	isFavorite, err := h.rels.ToggleFavorite(c.Request.Context(), userID, c.Param("target"))
	if err != nil {
		h.writeRelationshipError(c, err, userID)
		return
	}

	h.broadcastCallerUpdate(c, userID)

	msg := "Removed from favorites"
	if isFavorite {
		msg = "Added to favorites"
	}
	c.JSON(http.StatusOK, gin.H{"message": msg, "is_favorite": isFavorite})
}

// BlockUser blocks a target user.
// POST /api/users/:id/block/:target
func (h *UserHandlers) BlockUser(c *gin.Context) {
	userID, ok := h.requireSelf(c)
	if !ok {
		return
	}

	if err := h.rels.Block(c.Request.Context(), userID, c.Param("target")); err != nil {
		h.writeRelationshipError(c, err, userID)
		return
	}

	h.broadcastCallerUpdate(c, userID)

	c.JSON(http.StatusOK, gin.H{"message": "User blocked successfully", "is_blocked": true})
}

// UnblockUser removes a block on a target user.
// POST /api/users/:id/unblock/:target
func (h *UserHandlers) UnblockUser(c *gin.Context) {
	userID, ok := h.requireSelf(c)
	if !ok {
		return
	}

	if err := h.rels.Unblock(c.Request.Context(), userID, c.Param("target")); err != nil {
		if errors.Is(err, relationships.ErrNotBlocked) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "user is not blocked"})
			return
		}
		h.writeRelationshipError(c, err, userID)
		return
	}

	h.broadcastCallerUpdate(c, userID)

	c.JSON(http.StatusOK, gin.H{"message": "User unblocked successfully", "is_blocked": false})
}

// requireSelf ensures the :id path segment matches the authenticated user.
func (h *UserHandlers) requireSelf(c *gin.Context) (string, bool) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return "", false
	}
	if c.Param("id") != userID {
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "you can only manage your own relationships"})
		return "", false
	}
	return userID, true
}

func (h *UserHandlers) writeRelationshipError(c *gin.Context, err error, userID string) {
	switch {
	case errors.Is(err, relationships.ErrSelfTarget):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "you cannot target yourself"})
	case errors.Is(err, relationships.ErrUserNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "target user not found"})
	default:
		h.log.Error().Err(err).Str("user_id", userID).Msg("relationship operation failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}

// broadcastCallerUpdate pushes a USER_UPDATE for the caller after a
// relationship change. The mutation is already committed; a failure here is
// logged and the response is unaffected.
func (h *UserHandlers) broadcastCallerUpdate(c *gin.Context, userID string) {
	user, err := h.store.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		h.log.Warn().Err(err).Str("user_id", userID).Msg("skipping user update broadcast")
		return
	}
	h.emitUserUpdate(c.Request.Context(), user)
}

// emitUserUpdate resolves the user's relationship sets and broadcasts a
// USER_UPDATE. Returns the sets for reuse in the HTTP response; on a resolve
// failure the broadcast is skipped and empty sets are returned.
func (h *UserHandlers) emitUserUpdate(ctx context.Context, user *store.User) (favorites, blocked []string) {
	favorites, blocked, err := h.rels.Sets(ctx, user.ID)
	if err != nil {
		h.log.Warn().Err(err).Str("user_id", user.ID).Msg("skipping user update broadcast")
		return make([]string, 0), make([]string, 0)
	}
	h.hub.BroadcastAll(ctx, realtime.UserUpdateEvent(user, favorites, blocked))
	return favorites, blocked
}

// validateAvatarURL enforces that avatars reference uploaded files or external
// URLs, never inline base64 blobs.
func validateAvatarURL(avatar string) string {
	if strings.HasPrefix(avatar, "data:image") {
		return "base64 images are not allowed; upload the avatar as a file"
	}
	if !strings.HasPrefix(avatar, "/api/uploads/") &&
		!strings.HasPrefix(avatar, "http://") &&
		!strings.HasPrefix(avatar, "https://") {
		return "invalid avatar URL format"
	}
	return ""
}
