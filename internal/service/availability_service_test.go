package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trainops/staffing-api/internal/models"
	appErrors "github.com/trainops/staffing-api/pkg/errors"
)

type stubAvailabilityStore struct {
	submitted [][2]int64
	deleted   [][2]int64
	rows      []models.InstanceAvailabilityRow
}

func (s *stubAvailabilityStore) UpsertSubmitted(_ context.Context, instanceID, instructorID int64) error {
	s.submitted = append(s.submitted, [2]int64{instanceID, instructorID})
	return nil
}

func (s *stubAvailabilityStore) Delete(_ context.Context, instanceID, instructorID int64) error {
	s.deleted = append(s.deleted, [2]int64{instanceID, instructorID})
	return nil
}

func (s *stubAvailabilityStore) ListForInstance(_ context.Context, _ int64) ([]models.InstanceAvailabilityRow, error) {
	return s.rows, nil
}

type stubAssignmentChecker struct {
	assigned map[int64]bool
}

func (s *stubAssignmentChecker) IsAssigned(_ context.Context, _ int64, instructorID int64) (bool, error) {
	return s.assigned[instructorID], nil
}

func TestSubmitAvailability(t *testing.T) {
	store := &stubAvailabilityStore{}
	svc := NewAvailabilityService(&stubStaffingReader{staffing: staffingFixture()}, store, &stubAssignmentChecker{}, nil)

	err := svc.Submit(context.Background(), 10, 4)

	require.NoError(t, err)
	assert.Equal(t, [][2]int64{{10, 4}}, store.submitted)
}

func TestSubmitLockedWhileAssigned(t *testing.T) {
	store := &stubAvailabilityStore{}
	checker := &stubAssignmentChecker{assigned: map[int64]bool{4: true}}
	svc := NewAvailabilityService(&stubStaffingReader{staffing: staffingFixture()}, store, checker, nil)

	err := svc.Submit(context.Background(), 10, 4)

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrLocked.Code, appErrors.FromError(err).Code)
	assert.Empty(t, store.submitted)
}

func TestCancelLockedWhileAssigned(t *testing.T) {
	store := &stubAvailabilityStore{}
	checker := &stubAssignmentChecker{assigned: map[int64]bool{4: true}}
	svc := NewAvailabilityService(&stubStaffingReader{staffing: staffingFixture()}, store, checker, nil)

	err := svc.Cancel(context.Background(), 10, 4)

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrLocked.Code, appErrors.FromError(err).Code)
	assert.Empty(t, store.deleted)
}

func TestCancelAvailability(t *testing.T) {
	store := &stubAvailabilityStore{}
	svc := NewAvailabilityService(&stubStaffingReader{staffing: staffingFixture()}, store, &stubAssignmentChecker{}, nil)

	err := svc.Cancel(context.Background(), 10, 4)

	require.NoError(t, err)
	assert.Equal(t, [][2]int64{{10, 4}}, store.deleted)
}

func TestSubmitUnknownInstance(t *testing.T) {
	svc := NewAvailabilityService(&stubStaffingReader{err: sql.ErrNoRows}, &stubAvailabilityStore{}, &stubAssignmentChecker{}, nil)

	err := svc.Submit(context.Background(), 99, 4)

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestListForInstanceEnforcesLeadGuard(t *testing.T) {
	store := &stubAvailabilityStore{rows: []models.InstanceAvailabilityRow{{InstructorID: 4, FullName: "Dana"}}}
	svc := NewAvailabilityService(&stubStaffingReader{staffing: staffingFixture()}, store, &stubAssignmentChecker{}, nil)

	_, err := svc.ListForInstance(context.Background(), 10, leadPtr(8))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	rows, err := svc.ListForInstance(context.Background(), 10, leadPtr(7))
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	rows, err = svc.ListForInstance(context.Background(), 10, nil)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
