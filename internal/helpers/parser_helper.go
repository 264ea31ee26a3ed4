package helpers

import (
	"fmt"
	"strconv"

	"github.com/farellandr/payrecon/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func StringToInt(s string) (int, error) {
	return strconv.Atoi(s)
}

// QueryInt reads an integer query parameter, returning def when it is absent or malformed.
func QueryInt(c *gin.Context, key string, def int) int {
	raw := c.Query(key)
	if raw == "" {
		return def
	}
	n, err := StringToInt(raw)
	if err != nil {
		return def
	}
	return n
}

func ParseUUIDParam(c *gin.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s: %w", name, err)
	}
	return id, nil
}

// RequesterFromContext returns the identity the auth middleware stored on c.
func RequesterFromContext(c *gin.Context) (uuid.UUID, models.Role, bool) {
	userID, exists := c.Get("user_id")
	if !exists {
		return uuid.Nil, "", false
	}
	userUUID, ok := userID.(uuid.UUID)
	if !ok {
		return uuid.Nil, "", false
	}
	role, _ := c.Get("role")
	r, _ := role.(models.Role)
	return userUUID, r, true
}
