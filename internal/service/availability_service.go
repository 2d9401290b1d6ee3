package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/trainops/staffing-api/internal/models"
	appErrors "github.com/trainops/staffing-api/pkg/errors"
)

type availabilityStore interface {
	UpsertSubmitted(ctx context.Context, instanceID, instructorID int64) error
	Delete(ctx context.Context, instanceID, instructorID int64) error
	ListForInstance(ctx context.Context, instanceID int64) ([]models.InstanceAvailabilityRow, error)
}

type assignmentChecker interface {
	IsAssigned(ctx context.Context, instanceID, instructorID int64) (bool, error)
}

// AvailabilityService records instructor availability for activity instances.
// An instructor with an active assignment on an instance cannot change their
// availability for it until the assignment is cancelled.
type AvailabilityService struct {
	staffing    staffingReader
	store       availabilityStore
	assignments assignmentChecker
	logger      *zap.Logger
}

// NewAvailabilityService creates a service instance.
func NewAvailabilityService(staffing staffingReader, store availabilityStore, assignments assignmentChecker, logger *zap.Logger) *AvailabilityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AvailabilityService{
		staffing:    staffing,
		store:       store,
		assignments: assignments,
		logger:      logger,
	}
}

// Submit marks the instructor as available for the instance. Re-submitting
// refreshes the submission time and keeps an already approved row approved.
func (s *AvailabilityService) Submit(ctx context.Context, instanceID, instructorID int64) error {
	if err := s.guardUnlocked(ctx, instanceID, instructorID); err != nil {
		return err
	}
	if err := s.store.UpsertSubmitted(ctx, instanceID, instructorID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to submit availability")
	}
	s.logger.Sugar().Infow("availability submitted", "instance_id", instanceID, "instructor_id", instructorID)
	return nil
}

// Cancel withdraws the instructor's availability for the instance. Cancelling
// an availability that was never submitted is a no-op.
func (s *AvailabilityService) Cancel(ctx context.Context, instanceID, instructorID int64) error {
	if err := s.guardUnlocked(ctx, instanceID, instructorID); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, instanceID, instructorID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel availability")
	}
	s.logger.Sugar().Infow("availability cancelled", "instance_id", instanceID, "instructor_id", instructorID)
	return nil
}

// IsAssigned reports whether the instructor holds an active assignment on the
// instance. Handlers use it to render the locked state.
func (s *AvailabilityService) IsAssigned(ctx context.Context, instanceID, instructorID int64) (bool, error) {
	assigned, err := s.assignments.IsAssigned(ctx, instanceID, instructorID)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check assignment")
	}
	return assigned, nil
}

// ListForInstance returns all availability rows for an instance, flagging the
// instructors that already hold an active assignment. Non-admin callers must
// be the lead instructor of the parent activity.
func (s *AvailabilityService) ListForInstance(ctx context.Context, instanceID int64, enforcedLeadID *int64) ([]models.InstanceAvailabilityRow, error) {
	staffing, err := s.staffing.GetStaffing(ctx, instanceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "instance not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load instance")
	}
	if enforcedLeadID != nil {
		if staffing.LeadInstructorID == nil || *staffing.LeadInstructorID != *enforcedLeadID {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "instance not found")
		}
	}

	rows, err := s.store.ListForInstance(ctx, instanceID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list availability")
	}
	return rows, nil
}

func (s *AvailabilityService) guardUnlocked(ctx context.Context, instanceID, instructorID int64) error {
	if _, err := s.staffing.GetStaffing(ctx, instanceID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "instance not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load instance")
	}
	assigned, err := s.assignments.IsAssigned(ctx, instanceID, instructorID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check assignment")
	}
	if assigned {
		return appErrors.Clone(appErrors.ErrLocked, "availability is locked while an assignment is active")
	}
	return nil
}
