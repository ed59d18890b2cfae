package utils

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// NewID returns a new identifier for users, rooms, messages, and uploads.
func NewID() string {
	id, err := uuid.NewRandom()
	if err != nil {
		// Fallback to timestamp if the random source is unavailable.
		return strconv.FormatInt(time.Now().UnixNano(), 10)
	}
	return id.String()
}
