package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/trainops/staffing-api/internal/models"
	appErrors "github.com/trainops/staffing-api/pkg/errors"
)

type courseStore interface {
	List(ctx context.Context) ([]models.Course, error)
	ListByActivityType(ctx context.Context, activityTypeID int64) ([]models.Course, error)
	FindByID(ctx context.Context, id int64) (*models.Course, error)
	ListTypes(ctx context.Context) ([]models.ActivityType, error)
	CreateType(ctx context.Context, name string) (int64, error)
	UpdateType(ctx context.Context, id int64, name string) error
	TypeHasCourses(ctx context.Context, id int64) (bool, error)
	DeleteType(ctx context.Context, id int64) error
}

type instructorStore interface {
	List(ctx context.Context) ([]models.Instructor, error)
	FindByEmail(ctx context.Context, email string) (*models.Instructor, error)
	ListCertifiedForCourse(ctx context.Context, courseID int64) ([]models.Instructor, error)
	ReplaceCertifications(ctx context.Context, courseID int64, instructorIDs []int64) error
}

// ActivityTypeInput is the create and rename payload for an activity type.
type ActivityTypeInput struct {
	Name string `json:"name" validate:"required,max=100"`
}

// CatalogService serves the reference data behind staffing: courses, activity
// types, instructors and course certifications.
type CatalogService struct {
	courses     courseStore
	instructors instructorStore
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewCatalogService creates a service instance.
func NewCatalogService(courses courseStore, instructors instructorStore, validate *validator.Validate, logger *zap.Logger) *CatalogService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{
		courses:     courses,
		instructors: instructors,
		validator:   validate,
		logger:      logger,
	}
}

// ListCourses returns all courses, optionally filtered by activity type.
func (s *CatalogService) ListCourses(ctx context.Context, activityTypeID int64) ([]models.Course, error) {
	var (
		courses []models.Course
		err     error
	)
	if activityTypeID > 0 {
		courses, err = s.courses.ListByActivityType(ctx, activityTypeID)
	} else {
		courses, err = s.courses.List(ctx)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	return courses, nil
}

// ListInstructors returns all registered instructors.
func (s *CatalogService) ListInstructors(ctx context.Context) ([]models.Instructor, error) {
	instructors, err := s.instructors.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list instructors")
	}
	return instructors, nil
}

// ListCertified returns the instructors certified for a course.
func (s *CatalogService) ListCertified(ctx context.Context, courseID int64) ([]models.Instructor, error) {
	if _, err := s.courses.FindByID(ctx, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	instructors, err := s.instructors.ListCertifiedForCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list certified instructors")
	}
	return instructors, nil
}

// ReplaceCertifications rewrites the full certified-instructor set of a
// course.
func (s *CatalogService) ReplaceCertifications(ctx context.Context, courseID int64, instructorIDs []int64) error {
	if _, err := s.courses.FindByID(ctx, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if err := s.instructors.ReplaceCertifications(ctx, courseID, dedupeIDs(instructorIDs)); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update certifications")
	}
	s.logger.Sugar().Infow("certifications replaced", "course_id", courseID, "count", len(instructorIDs))
	return nil
}

// MeByEmail returns the instructor profile for an email address.
func (s *CatalogService) MeByEmail(ctx context.Context, email string) (*models.Instructor, error) {
	instructor, err := s.instructors.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "instructor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load instructor")
	}
	return instructor, nil
}

// ListActivityTypes returns all activity types.
func (s *CatalogService) ListActivityTypes(ctx context.Context) ([]models.ActivityType, error) {
	types, err := s.courses.ListTypes(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list activity types")
	}
	return types, nil
}

// CreateActivityType adds a new activity type.
func (s *CatalogService) CreateActivityType(ctx context.Context, input ActivityTypeInput) (int64, error) {
	if err := s.validator.Struct(input); err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid activity type payload")
	}
	id, err := s.courses.CreateType(ctx, strings.TrimSpace(input.Name))
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create activity type")
	}
	return id, nil
}

// RenameActivityType updates an activity type's name.
func (s *CatalogService) RenameActivityType(ctx context.Context, id int64, input ActivityTypeInput) error {
	if err := s.validator.Struct(input); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid activity type payload")
	}
	if err := s.courses.UpdateType(ctx, id, strings.TrimSpace(input.Name)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "activity type not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to rename activity type")
	}
	return nil
}

// DeleteActivityType removes an activity type. Types still referenced by
// courses cannot be deleted.
func (s *CatalogService) DeleteActivityType(ctx context.Context, id int64) error {
	inUse, err := s.courses.TypeHasCourses(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check activity type usage")
	}
	if inUse {
		return appErrors.Clone(appErrors.ErrConflict, "activity type has courses and cannot be deleted")
	}
	if err := s.courses.DeleteType(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "activity type not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete activity type")
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
