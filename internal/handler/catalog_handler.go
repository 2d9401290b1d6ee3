package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/trainops/staffing-api/internal/service"
	appErrors "github.com/trainops/staffing-api/pkg/errors"
	"github.com/trainops/staffing-api/pkg/response"
)

// CatalogHandler exposes reference data: courses, activity types, instructors
// and course certifications.
type CatalogHandler struct {
	service *service.CatalogService
}

// NewCatalogHandler creates a new handler.
func NewCatalogHandler(svc *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{service: svc}
}

// Courses lists courses, optionally filtered by activity type.
func (h *CatalogHandler) Courses(c *gin.Context) {
	var activityTypeID int64
	if raw := c.Query("activity_type_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid activity type id"))
			return
		}
		activityTypeID = id
	}

	courses, err := h.service.ListCourses(c.Request.Context(), activityTypeID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses)
}

// Instructors lists all registered instructors.
func (h *CatalogHandler) Instructors(c *gin.Context) {
	instructors, err := h.service.ListInstructors(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, instructors)
}

// Certified lists the instructors certified for a course.
func (h *CatalogHandler) Certified(c *gin.Context) {
	courseID, ok := pathID(c, "courseId")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid course id"))
		return
	}

	instructors, err := h.service.ListCertified(c.Request.Context(), courseID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, instructors)
}

// ReplaceCertifications rewrites the certified-instructor set of a course.
func (h *CatalogHandler) ReplaceCertifications(c *gin.Context) {
	courseID, ok := pathID(c, "courseId")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid course id"))
		return
	}

	var payload struct {
		InstructorIDs []int64 `json:"instructor_ids"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid certification payload"))
		return
	}

	if err := h.service.ReplaceCertifications(c.Request.Context(), courseID, payload.InstructorIDs); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"updated": true})
}

// ActivityTypes lists all activity types.
func (h *CatalogHandler) ActivityTypes(c *gin.Context) {
	types, err := h.service.ListActivityTypes(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, types)
}

// CreateActivityType adds a new activity type.
func (h *CatalogHandler) CreateActivityType(c *gin.Context) {
	var input service.ActivityTypeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid activity type payload"))
		return
	}

	id, err := h.service.CreateActivityType(c.Request.Context(), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, gin.H{"id": id})
}

// RenameActivityType updates an activity type's name.
func (h *CatalogHandler) RenameActivityType(c *gin.Context) {
	id, ok := pathID(c, "typeId")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid activity type id"))
		return
	}

	var input service.ActivityTypeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid activity type payload"))
		return
	}

	if err := h.service.RenameActivityType(c.Request.Context(), id, input); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"updated": true})
}

// DeleteActivityType removes an unused activity type.
func (h *CatalogHandler) DeleteActivityType(c *gin.Context) {
	id, ok := pathID(c, "typeId")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid activity type id"))
		return
	}

	if err := h.service.DeleteActivityType(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
