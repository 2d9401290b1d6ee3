package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/trainops/staffing-api/internal/models"
	appErrors "github.com/trainops/staffing-api/pkg/errors"
)

type staffingReader interface {
	GetStaffing(ctx context.Context, instanceID int64) (*models.InstanceStaffing, error)
}

type approvalStore interface {
	ApproveBatch(ctx context.Context, batch models.ApproveBatch) error
}

type fairnessInvalidator interface {
	Invalidate(ctx context.Context, instanceID int64)
}

type auditRecorder interface {
	Record(ctx context.Context, actorID *int64, action, entity, entityID string, details interface{})
}

// ApproveAssignmentsRequest is the approval payload submitted by a lead or
// an admin. The instructor list is the full desired roster for the instance.
type ApproveAssignmentsRequest struct {
	InstructorIDs []int64 `json:"instructor_ids" validate:"required,min=1,dive,gt=0"`
	Note          *string `json:"note"`
}

// ApprovalService commits lead-approved staffing decisions. All writes of one
// call land in a single database transaction; the staffing ceiling is
// re-checked inside that transaction under a row lock, so concurrent
// approvals of the same instance cannot jointly overshoot the requirement.
type ApprovalService struct {
	staffing  staffingReader
	store     approvalStore
	fairness  fairnessInvalidator
	audit     auditRecorder
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewApprovalService creates a service instance.
func NewApprovalService(
	staffing staffingReader,
	store approvalStore,
	fairness fairnessInvalidator,
	audit auditRecorder,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
) *ApprovalService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ApprovalService{
		staffing:  staffing,
		store:     store,
		fairness:  fairness,
		audit:     audit,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
	}
}

// Approve validates and commits the roster for an instance. Non-admin actors
// must be the lead instructor of the parent activity.
func (s *ApprovalService) Approve(ctx context.Context, instanceID int64, req ApproveAssignmentsRequest, actorID int64, isAdmin bool) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid approval payload")
	}

	ids := dedupeIDs(req.InstructorIDs)

	staffing, err := s.staffing.GetStaffing(ctx, instanceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "instance not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load instance")
	}

	if !isAdmin {
		if staffing.LeadInstructorID == nil || *staffing.LeadInstructorID != actorID {
			return appErrors.Clone(appErrors.ErrForbidden, "not lead of this activity")
		}
	}

	batch := models.ApproveBatch{
		InstanceID:    instanceID,
		InstructorIDs: ids,
		ActorID:       actorID,
		Note:          req.Note,
	}
	if err := s.store.ApproveBatch(ctx, batch); err != nil {
		var capErr *models.CapacityError
		switch {
		case errors.As(err, &capErr):
			return appErrors.Clone(appErrors.ErrValidation,
				fmt.Sprintf("too many instructors: %d already assigned, %d requested, required is %d",
					capErr.ExistingActive, capErr.Requested, capErr.Required))
		case errors.Is(err, sql.ErrNoRows):
			return appErrors.Clone(appErrors.ErrNotFound, "instance not found")
		default:
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "approval failed and was rolled back")
		}
	}

	s.metrics.IncApprovals()
	if s.fairness != nil {
		s.fairness.Invalidate(ctx, instanceID)
	}
	if s.audit != nil {
		s.audit.Record(ctx, &actorID, models.AuditActionApprove, models.AuditEntityInstance,
			fmt.Sprintf("%d", instanceID), map[string]interface{}{
				"instructor_ids": ids,
				"note":           req.Note,
			})
	}

	s.logger.Sugar().Infow("assignments approved",
		"instance_id", instanceID, "actor_id", actorID, "count", len(ids))
	return nil
}

// dedupeIDs drops repeated ids while preserving first-seen order.
func dedupeIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
