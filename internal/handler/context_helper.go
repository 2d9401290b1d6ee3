package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/trainops/staffing-api/internal/middleware"
	"github.com/trainops/staffing-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// enforcedLead returns the caller's id for the lead guard, or nil when the
// caller is an admin and may act on any activity.
func enforcedLead(claims *models.JWTClaims) *int64 {
	if claims == nil {
		return nil
	}
	if claims.IsAdmin() {
		return nil
	}
	id := claims.InstructorID
	return &id
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
