package http

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/mkravets/roomcast-server/internal/store"
	"github.com/mkravets/roomcast-server/internal/utils"
)

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// UploadHandlers provides HTTP handlers for file uploads.
type UploadHandlers struct {
	store     store.Store
	uploadDir string
	maxBytes  int64
	log       *zerolog.Logger
}

// NewUploadHandlers creates a new upload handlers instance.
func NewUploadHandlers(st store.Store, uploadDir string, maxBytes int64, logger *zerolog.Logger) *UploadHandlers {
	return &UploadHandlers{
		store:     st,
		uploadDir: uploadDir,
		maxBytes:  maxBytes,
		log:       logger,
	}
}

// UploadAvatar stores an avatar image and points the caller's profile at it.
// POST /api/upload/avatar
func (h *UploadHandlers) UploadAvatar(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	url, ok := h.saveImage(c, "avatars")
	if !ok {
		return
	}

	user, err := h.store.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("failed to load user")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	user.Avatar = url
	if err := h.store.UpdateUser(c.Request.Context(), user); err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("failed to update avatar")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": url, "message": "Avatar uploaded successfully"})
}

// UploadMessageImage stores an image for use as an image message.
// POST /api/upload/message-image
func (h *UploadHandlers) UploadMessageImage(c *gin.Context) {
	if _, ok := currentUserID(c); !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	url, ok := h.saveImage(c, "messages")
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": url, "message": "Image uploaded successfully"})
}

// saveImage validates and writes the uploaded file, returning its public URL.
// On failure it writes the error response and returns ok=false.
func (h *UploadHandlers) saveImage(c *gin.Context, subdir string) (string, bool) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "file is required"})
		return "", false
	}

	contentType := fileHeader.Header.Get("Content-Type")
	ext, allowed := imageExtensions[contentType]
	if !allowed {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "only jpeg, png, webp, and gif images are allowed"})
		return "", false
	}
	if fileHeader.Size > h.maxBytes {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: fmt.Sprintf("file exceeds the %d byte limit", h.maxBytes),
		})
		return "", false
	}

	dir := filepath.Join(h.uploadDir, subdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		h.log.Error().Err(err).Str("dir", dir).Msg("failed to create upload directory")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return "", false
	}

	name := utils.NewID() + ext
	dst := filepath.Join(dir, name)

	src, err := fileHeader.Open()
	if err != nil {
		h.log.Error().Err(err).Msg("failed to open uploaded file")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return "", false
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		h.log.Error().Err(err).Str("path", dst).Msg("failed to create file")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return "", false
	}
	defer out.Close()

	if _, err := io.Copy(out, io.LimitReader(src, h.maxBytes)); err != nil {
		h.log.Error().Err(err).Str("path", dst).Msg("failed to write file")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return "", false
	}

	return "/api/uploads/" + subdir + "/" + name, true
}
