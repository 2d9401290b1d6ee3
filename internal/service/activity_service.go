package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/trainops/staffing-api/internal/models"
	appErrors "github.com/trainops/staffing-api/pkg/errors"
)

type activityStore interface {
	FindByID(ctx context.Context, id int64) (*models.Activity, error)
	GetDetail(ctx context.Context, id int64) (*models.ActivityDetail, error)
	Create(ctx context.Context, activity *models.Activity, instances []models.ActivityInstance) (int64, error)
	UpdateHeader(ctx context.Context, activity *models.Activity) error
	ReplaceInstances(ctx context.Context, activity *models.Activity, instances []models.ActivityInstance) error
	SoftDelete(ctx context.Context, id int64, reason string) error
	DeleteCascade(ctx context.Context, id int64) error
	Search(ctx context.Context, filter models.ActivitySearchFilter) ([]models.ActivitySearchResult, error)
	Calendar(ctx context.Context, from, to time.Time) ([]models.CalendarItem, error)
}

type instanceStore interface {
	GetStaffing(ctx context.Context, instanceID int64) (*models.InstanceStaffing, error)
	Create(ctx context.Context, inst *models.ActivityInstance) (int64, error)
	Update(ctx context.Context, inst *models.ActivityInstance) error
	SoftDelete(ctx context.Context, id int64, reason string) error
	DeleteCascade(ctx context.Context, id int64) error
}

// InstanceInput is one instance in a create or update payload.
type InstanceInput struct {
	StartAt             time.Time `json:"start_at" validate:"required"`
	EndAt               time.Time `json:"end_at" validate:"required"`
	RoomsCount          int       `json:"rooms_count" validate:"min=0"`
	RequiredInstructors int       `json:"required_instructors" validate:"min=0"`
}

// ActivityInput is the create and full-update payload for an activity.
type ActivityInput struct {
	Name             string          `json:"name" validate:"required,max=200"`
	ActivityTypeID   int64           `json:"activity_type_id" validate:"required,gt=0"`
	CourseID         int64           `json:"course_id" validate:"required,gt=0"`
	LeadInstructorID int64           `json:"lead_instructor_id" validate:"required,gt=0"`
	DeadlineAt       *time.Time      `json:"deadline_at"`
	Instances        []InstanceInput `json:"instances" validate:"required,min=1,dive"`
}

// ActivityHeaderInput is the header-only update payload. Instances are left
// untouched.
type ActivityHeaderInput struct {
	Name             string     `json:"name" validate:"required,max=200"`
	ActivityTypeID   int64      `json:"activity_type_id" validate:"required,gt=0"`
	CourseID         int64      `json:"course_id" validate:"required,gt=0"`
	LeadInstructorID int64      `json:"lead_instructor_id" validate:"required,gt=0"`
	DeadlineAt       *time.Time `json:"deadline_at"`
}

// ActivityService manages activities and their instances.
type ActivityService struct {
	activities activityStore
	instances  instanceStore
	audit      auditRecorder
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewActivityService creates a service instance.
func NewActivityService(activities activityStore, instances instanceStore, audit auditRecorder, validate *validator.Validate, logger *zap.Logger) *ActivityService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActivityService{
		activities: activities,
		instances:  instances,
		audit:      audit,
		validator:  validate,
		logger:     logger,
	}
}

// Create stores a new activity with its instances in one transaction and
// returns the new activity id.
func (s *ActivityService) Create(ctx context.Context, input ActivityInput) (int64, error) {
	if err := s.validateInput(input); err != nil {
		return 0, err
	}

	activity := &models.Activity{
		Name:             input.Name,
		ActivityTypeID:   input.ActivityTypeID,
		CourseID:         input.CourseID,
		LeadInstructorID: input.LeadInstructorID,
		DeadlineAt:       input.DeadlineAt,
	}
	id, err := s.activities.Create(ctx, activity, toInstanceModels(input.Instances))
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create activity")
	}
	s.logger.Sugar().Infow("activity created", "activity_id", id, "name", input.Name)
	return id, nil
}

// Get returns the activity header with its instances.
func (s *ActivityService) Get(ctx context.Context, id int64) (*models.ActivityDetail, error) {
	detail, err := s.activities.GetDetail(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "activity not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load activity")
	}
	return detail, nil
}

// GetForLead returns the activity detail for its lead instructor. A lead
// mismatch reads as not found.
func (s *ActivityService) GetForLead(ctx context.Context, id, leadID int64) (*models.ActivityDetail, error) {
	detail, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if detail.LeadInstructorID != leadID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "activity not found")
	}
	return detail, nil
}

// Update replaces the activity header and its full instance set. Instances
// absent from the payload are removed together with their availability and
// assignments.
func (s *ActivityService) Update(ctx context.Context, id int64, input ActivityInput) error {
	if err := s.validateInput(input); err != nil {
		return err
	}
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}

	activity := &models.Activity{
		ID:               id,
		Name:             input.Name,
		ActivityTypeID:   input.ActivityTypeID,
		CourseID:         input.CourseID,
		LeadInstructorID: input.LeadInstructorID,
		DeadlineAt:       input.DeadlineAt,
	}
	if err := s.activities.ReplaceInstances(ctx, activity, toInstanceModels(input.Instances)); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update activity")
	}
	s.logger.Sugar().Infow("activity updated", "activity_id", id)
	return nil
}

// UpdateHeader rewrites the activity header only, leaving the instance set
// untouched.
func (s *ActivityService) UpdateHeader(ctx context.Context, id int64, input ActivityHeaderInput) error {
	if err := s.validator.Struct(input); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid activity payload")
	}
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}

	activity := &models.Activity{
		ID:               id,
		Name:             input.Name,
		ActivityTypeID:   input.ActivityTypeID,
		CourseID:         input.CourseID,
		LeadInstructorID: input.LeadInstructorID,
		DeadlineAt:       input.DeadlineAt,
	}
	if err := s.activities.UpdateHeader(ctx, activity); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update activity")
	}
	s.logger.Sugar().Infow("activity header updated", "activity_id", id)
	return nil
}

// SoftDelete cancels the activity and all its instances, keeping history.
func (s *ActivityService) SoftDelete(ctx context.Context, id int64, reason string, actorID int64) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.activities.SoftDelete(ctx, id, reason); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel activity")
	}
	s.recordAudit(ctx, actorID, models.AuditActionSoftDelete, models.AuditEntityActivity, id, reason)
	return nil
}

// Delete removes the activity and everything under it: instances,
// availability and assignments.
func (s *ActivityService) Delete(ctx context.Context, id int64, actorID int64) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.activities.DeleteCascade(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete activity")
	}
	s.recordAudit(ctx, actorID, models.AuditActionHardDelete, models.AuditEntityActivity, id, "")
	return nil
}

// CreateInstance adds one instance to an existing activity.
func (s *ActivityService) CreateInstance(ctx context.Context, activityID int64, input InstanceInput) (int64, error) {
	if err := s.validateInstance(input); err != nil {
		return 0, err
	}
	if _, err := s.Get(ctx, activityID); err != nil {
		return 0, err
	}

	inst := toInstanceModel(input)
	inst.ActivityID = activityID
	id, err := s.instances.Create(ctx, &inst)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create instance")
	}
	return id, nil
}

// UpdateInstance rewrites the schedule and staffing requirement of one
// instance.
func (s *ActivityService) UpdateInstance(ctx context.Context, instanceID int64, input InstanceInput) error {
	if err := s.validateInstance(input); err != nil {
		return err
	}
	staffing, err := s.instances.GetStaffing(ctx, instanceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "instance not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load instance")
	}

	inst := toInstanceModel(input)
	inst.ID = instanceID
	inst.ActivityID = staffing.ActivityID
	if err := s.instances.Update(ctx, &inst); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update instance")
	}
	return nil
}

// SoftDeleteInstance cancels one instance, keeping history.
func (s *ActivityService) SoftDeleteInstance(ctx context.Context, instanceID int64, reason string, actorID int64) error {
	if err := s.requireInstance(ctx, instanceID); err != nil {
		return err
	}
	if err := s.instances.SoftDelete(ctx, instanceID, reason); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel instance")
	}
	s.recordAudit(ctx, actorID, models.AuditActionSoftDelete, models.AuditEntityInstance, instanceID, reason)
	return nil
}

// DeleteInstance removes one instance with its availability and assignments.
func (s *ActivityService) DeleteInstance(ctx context.Context, instanceID int64, actorID int64) error {
	if err := s.requireInstance(ctx, instanceID); err != nil {
		return err
	}
	if err := s.instances.DeleteCascade(ctx, instanceID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete instance")
	}
	s.recordAudit(ctx, actorID, models.AuditActionHardDelete, models.AuditEntityInstance, instanceID, "")
	return nil
}

// Search returns activities matching the filter.
func (s *ActivityService) Search(ctx context.Context, filter models.ActivitySearchFilter) ([]models.ActivitySearchResult, error) {
	results, err := s.activities.Search(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to search activities")
	}
	return results, nil
}

// Calendar returns all instances overlapping the window.
func (s *ActivityService) Calendar(ctx context.Context, from, to time.Time) ([]models.CalendarItem, error) {
	if !to.After(from) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "calendar window end must be after start")
	}
	items, err := s.activities.Calendar(ctx, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load calendar")
	}
	return items, nil
}

func (s *ActivityService) requireInstance(ctx context.Context, instanceID int64) error {
	if _, err := s.instances.GetStaffing(ctx, instanceID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "instance not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load instance")
	}
	return nil
}

func (s *ActivityService) recordAudit(ctx context.Context, actorID int64, action, entity string, entityID int64, reason string) {
	if s.audit == nil {
		return
	}
	var details interface{}
	if reason != "" {
		details = map[string]string{"reason": reason}
	}
	s.audit.Record(ctx, &actorID, action, entity, fmt.Sprintf("%d", entityID), details)
}

func (s *ActivityService) validateInput(input ActivityInput) error {
	if err := s.validator.Struct(input); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid activity payload")
	}
	for i, inst := range input.Instances {
		if !inst.EndAt.After(inst.StartAt) {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("instance %d: end must be after start", i+1))
		}
	}
	return nil
}

func (s *ActivityService) validateInstance(input InstanceInput) error {
	if err := s.validator.Struct(input); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid instance payload")
	}
	if !input.EndAt.After(input.StartAt) {
		return appErrors.Clone(appErrors.ErrValidation, "instance end must be after start")
	}
	return nil
}

func toInstanceModel(in InstanceInput) models.ActivityInstance {
	return models.ActivityInstance{
		StartAt:             in.StartAt,
		EndAt:               in.EndAt,
		RoomsCount:          in.RoomsCount,
		RequiredInstructors: in.RequiredInstructors,
	}
}

func toInstanceModels(in []InstanceInput) []models.ActivityInstance {
	out := make([]models.ActivityInstance, 0, len(in))
	for _, i := range in {
		out = append(out, toInstanceModel(i))
	}
	return out
}
