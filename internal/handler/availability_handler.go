package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/trainops/staffing-api/internal/service"
	appErrors "github.com/trainops/staffing-api/pkg/errors"
	"github.com/trainops/staffing-api/pkg/response"
)

// AvailabilityHandler exposes the instructor-facing availability endpoints.
type AvailabilityHandler struct {
	service *service.AvailabilityService
}

// NewAvailabilityHandler creates a new handler.
func NewAvailabilityHandler(svc *service.AvailabilityService) *AvailabilityHandler {
	return &AvailabilityHandler{service: svc}
}

// Submit records the caller's availability for an instance.
func (h *AvailabilityHandler) Submit(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	instanceID, ok := pathID(c, "instanceId")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid instance id"))
		return
	}

	if err := h.service.Submit(c.Request.Context(), instanceID, claims.InstructorID); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"submitted": true})
}

// Cancel withdraws the caller's availability for an instance.
func (h *AvailabilityHandler) Cancel(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	instanceID, ok := pathID(c, "instanceId")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid instance id"))
		return
	}

	if err := h.service.Cancel(c.Request.Context(), instanceID, claims.InstructorID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Status reports whether the caller is locked by an active assignment.
func (h *AvailabilityHandler) Status(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	instanceID, ok := pathID(c, "instanceId")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid instance id"))
		return
	}

	assigned, err := h.service.IsAssigned(c.Request.Context(), instanceID, claims.InstructorID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"is_assigned": assigned})
}
