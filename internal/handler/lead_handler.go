package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/trainops/staffing-api/internal/service"
	appErrors "github.com/trainops/staffing-api/pkg/errors"
	"github.com/trainops/staffing-api/pkg/response"
)

// LeadHandler exposes the lead instructor's staffing workspace: eligibility,
// availability overview, fairness ranking, approvals, reminders and roster
// export. Admins may use every endpoint on any activity.
type LeadHandler struct {
	activities   *service.ActivityService
	eligibility  *service.EligibilityService
	availability *service.AvailabilityService
	fairness     *service.FairnessService
	approval     *service.ApprovalService
	reminders    *service.ReminderService
	roster       *service.RosterService
}

// NewLeadHandler creates a new handler.
func NewLeadHandler(
	activities *service.ActivityService,
	eligibility *service.EligibilityService,
	availability *service.AvailabilityService,
	fairness *service.FairnessService,
	approval *service.ApprovalService,
	reminders *service.ReminderService,
	roster *service.RosterService,
) *LeadHandler {
	return &LeadHandler{
		activities:   activities,
		eligibility:  eligibility,
		availability: availability,
		fairness:     fairness,
		approval:     approval,
		reminders:    reminders,
		roster:       roster,
	}
}

// Activity returns the activity detail for the lead workspace.
func (h *LeadHandler) Activity(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	activityID, ok := pathID(c, "activityId")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid activity id"))
		return
	}

	var err error
	var detail interface{}
	if claims.IsAdmin() {
		detail, err = h.activities.Get(c.Request.Context(), activityID)
	} else {
		detail, err = h.activities.GetForLead(c.Request.Context(), activityID, claims.InstructorID)
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail)
}

// Eligible lists the instructors certified for the activity's course.
func (h *LeadHandler) Eligible(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	activityID, ok := pathID(c, "activityId")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid activity id"))
		return
	}

	instructors, err := h.eligibility.ListEligible(c.Request.Context(), activityID, enforcedLead(claims))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, instructors)
}

// Availability lists availability submissions for an instance.
func (h *LeadHandler) Availability(c *gin.Context) {
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

	rows, err := h.availability.ListForInstance(c.Request.Context(), instanceID, enforcedLead(claims))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows)
}

// Fairness returns the fairness ranking for an instance.
func (h *LeadHandler) Fairness(c *gin.Context) {
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

	rows, err := h.fairness.Rank(c.Request.Context(), instanceID, enforcedLead(claims))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows)
}

// Approve commits the staffing roster for an instance.
func (h *LeadHandler) Approve(c *gin.Context) {
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

	var req service.ApproveAssignmentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid approval payload"))
		return
	}

	if err := h.approval.Approve(c.Request.Context(), instanceID, req, claims.InstructorID, claims.IsAdmin()); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"approved": len(req.InstructorIDs)})
}

// Remind queues availability reminder emails for an instance.
func (h *LeadHandler) Remind(c *gin.Context) {
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

	var req service.SendRemindersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid reminder payload"))
		return
	}

	result, err := h.reminders.Send(c.Request.Context(), instanceID, req, claims.InstructorID, enforcedLead(claims))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// Roster streams the instance roster as CSV or PDF.
func (h *LeadHandler) Roster(c *gin.Context) {
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

	format := c.DefaultQuery("format", service.RosterFormatCSV)
	exported, err := h.roster.Export(c.Request.Context(), instanceID, format, enforcedLead(claims))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+exported.FileName+`"`)
	c.Data(http.StatusOK, exported.ContentType, exported.Body)
}
