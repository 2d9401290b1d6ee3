package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/trainops/staffing-api/internal/models"
	appErrors "github.com/trainops/staffing-api/pkg/errors"
)

type activityReader interface {
	FindByID(ctx context.Context, id int64) (*models.Activity, error)
}

type certifiedLister interface {
	ListCertifiedForCourse(ctx context.Context, courseID int64) ([]models.Instructor, error)
}

// EligibilityService resolves which instructors can be staffed on an
// activity: those certified for the activity's course.
type EligibilityService struct {
	activities  activityReader
	instructors certifiedLister
	logger      *zap.Logger
}

// NewEligibilityService creates a service instance.
func NewEligibilityService(activities activityReader, instructors certifiedLister, logger *zap.Logger) *EligibilityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EligibilityService{
		activities:  activities,
		instructors: instructors,
		logger:      logger,
	}
}

// ListEligible returns the instructors certified for the activity's course,
// ordered by name. Non-admin callers must be the activity's lead instructor;
// a mismatch reads as not found so activity existence is not leaked.
func (s *EligibilityService) ListEligible(ctx context.Context, activityID int64, enforcedLeadID *int64) ([]models.Instructor, error) {
	activity, err := s.activities.FindByID(ctx, activityID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "activity not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load activity")
	}
	if enforcedLeadID != nil && activity.LeadInstructorID != *enforcedLeadID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "activity not found")
	}

	eligible, err := s.instructors.ListCertifiedForCourse(ctx, activity.CourseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list eligible instructors")
	}
	return eligible, nil
}
