package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/trainops/staffing-api/internal/models"
	"github.com/trainops/staffing-api/internal/service"
	appErrors "github.com/trainops/staffing-api/pkg/errors"
	"github.com/trainops/staffing-api/pkg/response"
)

// ActivityHandler exposes the admin activity management endpoints.
type ActivityHandler struct {
	service *service.ActivityService
}

// NewActivityHandler creates a new handler.
func NewActivityHandler(svc *service.ActivityService) *ActivityHandler {
	return &ActivityHandler{service: svc}
}

// Create stores a new activity with its instances.
func (h *ActivityHandler) Create(c *gin.Context) {
	var input service.ActivityInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid activity payload"))
		return
	}

	id, err := h.service.Create(c.Request.Context(), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, gin.H{"id": id})
}

// Get returns one activity with its instances.
func (h *ActivityHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "activityId")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid activity id"))
		return
	}

	detail, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail)
}

// Update rewrites the activity header and its full instance set.
func (h *ActivityHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "activityId")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid activity id"))
		return
	}

	var input service.ActivityInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid activity payload"))
		return
	}

	if err := h.service.Update(c.Request.Context(), id, input); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"updated": true})
}

// UpdateHeader rewrites the activity header, leaving instances untouched.
func (h *ActivityHandler) UpdateHeader(c *gin.Context) {
	id, ok := pathID(c, "activityId")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid activity id"))
		return
	}

	var input service.ActivityHeaderInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid activity payload"))
		return
	}

	if err := h.service.UpdateHeader(c.Request.Context(), id, input); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"updated": true})
}

// Cancel soft deletes the activity, keeping history.
func (h *ActivityHandler) Cancel(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	id, ok := pathID(c, "activityId")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid activity id"))
		return
	}

	var payload struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&payload)

	if err := h.service.SoftDelete(c.Request.Context(), id, payload.Reason, claims.InstructorID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Delete removes the activity and everything under it.
func (h *ActivityHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	id, ok := pathID(c, "activityId")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid activity id"))
		return
	}

	if err := h.service.Delete(c.Request.Context(), id, claims.InstructorID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// CreateInstance adds one instance to an activity.
func (h *ActivityHandler) CreateInstance(c *gin.Context) {
	activityID, ok := pathID(c, "activityId")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid activity id"))
		return
	}

	var input service.InstanceInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid instance payload"))
		return
	}

	id, err := h.service.CreateInstance(c.Request.Context(), activityID, input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, gin.H{"id": id})
}

// UpdateInstance rewrites one instance.
func (h *ActivityHandler) UpdateInstance(c *gin.Context) {
	instanceID, ok := pathID(c, "instanceId")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid instance id"))
		return
	}

	var input service.InstanceInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid instance payload"))
		return
	}

	if err := h.service.UpdateInstance(c.Request.Context(), instanceID, input); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"updated": true})
}

// CancelInstance soft deletes one instance.
func (h *ActivityHandler) CancelInstance(c *gin.Context) {
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

	var payload struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&payload)

	if err := h.service.SoftDeleteInstance(c.Request.Context(), instanceID, payload.Reason, claims.InstructorID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// DeleteInstance removes one instance with its availability and assignments.
func (h *ActivityHandler) DeleteInstance(c *gin.Context) {
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

	if err := h.service.DeleteInstance(c.Request.Context(), instanceID, claims.InstructorID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Search lists activities matching query filters.
func (h *ActivityHandler) Search(c *gin.Context) {
	filter := models.ActivitySearchFilter{
		Query: strings.TrimSpace(c.Query("q")),
	}
	if raw := c.Query("activity_type_id"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			filter.ActivityTypeID = id
		}
	}
	if raw := c.Query("course_id"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			filter.CourseID = id
		}
	}
	if from, ok := parseTimeQuery(c.Query("from")); ok {
		filter.From = &from
	}
	if to, ok := parseTimeQuery(c.Query("to")); ok {
		filter.To = &to
	}

	results, err := h.service.Search(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, results)
}

// Calendar lists instances overlapping a time window.
func (h *ActivityHandler) Calendar(c *gin.Context) {
	from, okFrom := parseTimeQuery(c.Query("from"))
	to, okTo := parseTimeQuery(c.Query("to"))
	if !okFrom || !okTo {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "from and to are required (RFC 3339 or YYYY-MM-DD)"))
		return
	}

	items, err := h.service.Calendar(c.Request.Context(), from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items)
}

func parseTimeQuery(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, true
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, true
	}
	return time.Time{}, false
}
