package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trainops/staffing-api/internal/models"
	appErrors "github.com/trainops/staffing-api/pkg/errors"
)

type stubStaffingReader struct {
	staffing *models.InstanceStaffing
	err      error
}

func (s *stubStaffingReader) GetStaffing(_ context.Context, _ int64) (*models.InstanceStaffing, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.staffing, nil
}

type stubApprovalStore struct {
	err     error
	batches []models.ApproveBatch
}

func (s *stubApprovalStore) ApproveBatch(_ context.Context, batch models.ApproveBatch) error {
	if s.err != nil {
		return s.err
	}
	s.batches = append(s.batches, batch)
	return nil
}

type stubInvalidator struct {
	invalidated []int64
}

func (s *stubInvalidator) Invalidate(_ context.Context, instanceID int64) {
	s.invalidated = append(s.invalidated, instanceID)
}

type stubAudit struct {
	actions []string
}

func (s *stubAudit) Record(_ context.Context, _ *int64, action, _, _ string, _ interface{}) {
	s.actions = append(s.actions, action)
}

func leadPtr(id int64) *int64 { return &id }

func staffingFixture() *models.InstanceStaffing {
	return &models.InstanceStaffing{
		InstanceID:          10,
		ActivityID:          1,
		CourseID:            3,
		LeadInstructorID:    leadPtr(7),
		RequiredInstructors: 2,
		StartAt:             time.Date(2025, 6, 12, 9, 0, 0, 0, time.UTC),
	}
}

func TestApproveCommitsBatchAndInvalidatesFairness(t *testing.T) {
	store := &stubApprovalStore{}
	inv := &stubInvalidator{}
	audit := &stubAudit{}
	svc := NewApprovalService(&stubStaffingReader{staffing: staffingFixture()}, store, inv, audit, nil, nil, nil)

	err := svc.Approve(context.Background(), 10, ApproveAssignmentsRequest{
		InstructorIDs: []int64{4, 5},
	}, 7, false)

	require.NoError(t, err)
	require.Len(t, store.batches, 1)
	assert.Equal(t, []int64{4, 5}, store.batches[0].InstructorIDs)
	assert.Equal(t, int64(7), store.batches[0].ActorID)
	assert.Equal(t, []int64{10}, inv.invalidated)
	assert.Contains(t, audit.actions, models.AuditActionApprove)
}

func TestApproveDeduplicatesInstructorIDs(t *testing.T) {
	store := &stubApprovalStore{}
	svc := NewApprovalService(&stubStaffingReader{staffing: staffingFixture()}, store, nil, nil, nil, nil, nil)

	err := svc.Approve(context.Background(), 10, ApproveAssignmentsRequest{
		InstructorIDs: []int64{5, 4, 5, 4},
	}, 7, false)

	require.NoError(t, err)
	require.Len(t, store.batches, 1)
	assert.Equal(t, []int64{5, 4}, store.batches[0].InstructorIDs)
}

func TestApproveRejectsEmptyList(t *testing.T) {
	svc := NewApprovalService(&stubStaffingReader{staffing: staffingFixture()}, &stubApprovalStore{}, nil, nil, nil, nil, nil)

	err := svc.Approve(context.Background(), 10, ApproveAssignmentsRequest{}, 7, false)

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestApproveUnknownInstance(t *testing.T) {
	svc := NewApprovalService(&stubStaffingReader{err: sql.ErrNoRows}, &stubApprovalStore{}, nil, nil, nil, nil, nil)

	err := svc.Approve(context.Background(), 99, ApproveAssignmentsRequest{
		InstructorIDs: []int64{4},
	}, 7, false)

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestApproveForbiddenForNonLead(t *testing.T) {
	store := &stubApprovalStore{}
	svc := NewApprovalService(&stubStaffingReader{staffing: staffingFixture()}, store, nil, nil, nil, nil, nil)

	err := svc.Approve(context.Background(), 10, ApproveAssignmentsRequest{
		InstructorIDs: []int64{4},
	}, 8, false)

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Empty(t, store.batches)
}

func TestApproveAdminBypassesLeadGuard(t *testing.T) {
	store := &stubApprovalStore{}
	svc := NewApprovalService(&stubStaffingReader{staffing: staffingFixture()}, store, nil, nil, nil, nil, nil)

	err := svc.Approve(context.Background(), 10, ApproveAssignmentsRequest{
		InstructorIDs: []int64{4},
	}, 999, true)

	require.NoError(t, err)
	require.Len(t, store.batches, 1)
}

func TestApproveCumulativeCapacityExceeded(t *testing.T) {
	// One slot left but two requested: the transaction reports the full
	// picture and nothing is committed.
	store := &stubApprovalStore{err: &models.CapacityError{
		Required:       2,
		ExistingActive: 1,
		Requested:      2,
	}}
	inv := &stubInvalidator{}
	svc := NewApprovalService(&stubStaffingReader{staffing: staffingFixture()}, store, inv, nil, nil, nil, nil)

	err := svc.Approve(context.Background(), 10, ApproveAssignmentsRequest{
		InstructorIDs: []int64{4, 5},
	}, 7, false)

	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "required is 2")
	assert.Empty(t, inv.invalidated)
}

func TestApproveStoreFailureIsInternal(t *testing.T) {
	store := &stubApprovalStore{err: errors.New("deadlock detected")}
	svc := NewApprovalService(&stubStaffingReader{staffing: staffingFixture()}, store, nil, nil, nil, nil, nil)

	err := svc.Approve(context.Background(), 10, ApproveAssignmentsRequest{
		InstructorIDs: []int64{4},
	}, 7, false)

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}
