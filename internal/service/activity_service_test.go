package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trainops/staffing-api/internal/models"
	appErrors "github.com/trainops/staffing-api/pkg/errors"
)

type stubActivityStore struct {
	detail   *models.ActivityDetail
	created  []*models.Activity
	headers  []*models.Activity
	replaced []*models.Activity
	soft     []int64
	deleted  []int64
}

func (s *stubActivityStore) FindByID(_ context.Context, _ int64) (*models.Activity, error) {
	if s.detail == nil {
		return nil, sql.ErrNoRows
	}
	return &s.detail.Activity, nil
}

func (s *stubActivityStore) GetDetail(_ context.Context, _ int64) (*models.ActivityDetail, error) {
	if s.detail == nil {
		return nil, sql.ErrNoRows
	}
	return s.detail, nil
}

func (s *stubActivityStore) Create(_ context.Context, activity *models.Activity, _ []models.ActivityInstance) (int64, error) {
	s.created = append(s.created, activity)
	return 42, nil
}

func (s *stubActivityStore) UpdateHeader(_ context.Context, activity *models.Activity) error {
	s.headers = append(s.headers, activity)
	return nil
}

func (s *stubActivityStore) ReplaceInstances(_ context.Context, activity *models.Activity, _ []models.ActivityInstance) error {
	s.replaced = append(s.replaced, activity)
	return nil
}

func (s *stubActivityStore) SoftDelete(_ context.Context, id int64, _ string) error {
	s.soft = append(s.soft, id)
	return nil
}

func (s *stubActivityStore) DeleteCascade(_ context.Context, id int64) error {
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *stubActivityStore) Search(_ context.Context, _ models.ActivitySearchFilter) ([]models.ActivitySearchResult, error) {
	return nil, nil
}

func (s *stubActivityStore) Calendar(_ context.Context, _, _ time.Time) ([]models.CalendarItem, error) {
	return nil, nil
}

type stubInstanceStore struct {
	staffing *models.InstanceStaffing
	deleted  []int64
}

func (s *stubInstanceStore) GetStaffing(_ context.Context, _ int64) (*models.InstanceStaffing, error) {
	if s.staffing == nil {
		return nil, sql.ErrNoRows
	}
	return s.staffing, nil
}

func (s *stubInstanceStore) Create(_ context.Context, _ *models.ActivityInstance) (int64, error) {
	return 11, nil
}

func (s *stubInstanceStore) Update(_ context.Context, _ *models.ActivityInstance) error { return nil }

func (s *stubInstanceStore) SoftDelete(_ context.Context, _ int64, _ string) error { return nil }

func (s *stubInstanceStore) DeleteCascade(_ context.Context, id int64) error {
	s.deleted = append(s.deleted, id)
	return nil
}

func validActivityInput() ActivityInput {
	return ActivityInput{
		Name:             "June Field Training",
		ActivityTypeID:   1,
		CourseID:         3,
		LeadInstructorID: 7,
		Instances: []InstanceInput{{
			StartAt:             time.Date(2025, 6, 12, 9, 0, 0, 0, time.UTC),
			EndAt:               time.Date(2025, 6, 12, 17, 0, 0, 0, time.UTC),
			RoomsCount:          2,
			RequiredInstructors: 2,
		}},
	}
}

func TestCreateActivity(t *testing.T) {
	store := &stubActivityStore{}
	svc := NewActivityService(store, &stubInstanceStore{}, nil, nil, nil)

	id, err := svc.Create(context.Background(), validActivityInput())

	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	require.Len(t, store.created, 1)
	assert.Equal(t, "June Field Training", store.created[0].Name)
}

func TestCreateActivityRejectsInvertedSlot(t *testing.T) {
	input := validActivityInput()
	input.Instances[0].EndAt = input.Instances[0].StartAt.Add(-time.Hour)
	svc := NewActivityService(&stubActivityStore{}, &stubInstanceStore{}, nil, nil, nil)

	_, err := svc.Create(context.Background(), input)

	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "end must be after start")
}

func TestCreateActivityRequiresInstances(t *testing.T) {
	input := validActivityInput()
	input.Instances = nil
	svc := NewActivityService(&stubActivityStore{}, &stubInstanceStore{}, nil, nil, nil)

	_, err := svc.Create(context.Background(), input)

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestUpdateHeaderLeavesInstancesAlone(t *testing.T) {
	store := &stubActivityStore{detail: &models.ActivityDetail{Activity: models.Activity{ID: 1, LeadInstructorID: 7}}}
	svc := NewActivityService(store, &stubInstanceStore{}, nil, nil, nil)

	err := svc.UpdateHeader(context.Background(), 1, ActivityHeaderInput{
		Name:             "June Field Training v2",
		ActivityTypeID:   1,
		CourseID:         3,
		LeadInstructorID: 8,
	})

	require.NoError(t, err)
	require.Len(t, store.headers, 1)
	assert.Equal(t, int64(1), store.headers[0].ID)
	assert.Equal(t, "June Field Training v2", store.headers[0].Name)
	assert.Equal(t, int64(8), store.headers[0].LeadInstructorID)
	assert.Empty(t, store.replaced)
}

func TestUpdateHeaderUnknownActivity(t *testing.T) {
	svc := NewActivityService(&stubActivityStore{}, &stubInstanceStore{}, nil, nil, nil)

	err := svc.UpdateHeader(context.Background(), 99, ActivityHeaderInput{
		Name:             "Renamed",
		ActivityTypeID:   1,
		CourseID:         3,
		LeadInstructorID: 7,
	})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestDeleteActivityCascadesAndAudits(t *testing.T) {
	store := &stubActivityStore{detail: &models.ActivityDetail{Activity: models.Activity{ID: 1, LeadInstructorID: 7}}}
	audit := &stubAudit{}
	svc := NewActivityService(store, &stubInstanceStore{}, audit, nil, nil)

	err := svc.Delete(context.Background(), 1, 99)

	require.NoError(t, err)
	assert.Equal(t, []int64{1}, store.deleted)
	assert.Contains(t, audit.actions, models.AuditActionHardDelete)
}

func TestSoftDeleteActivity(t *testing.T) {
	store := &stubActivityStore{detail: &models.ActivityDetail{Activity: models.Activity{ID: 1}}}
	audit := &stubAudit{}
	svc := NewActivityService(store, &stubInstanceStore{}, audit, nil, nil)

	err := svc.SoftDelete(context.Background(), 1, "weather", 99)

	require.NoError(t, err)
	assert.Equal(t, []int64{1}, store.soft)
	assert.Contains(t, audit.actions, models.AuditActionSoftDelete)
}

func TestGetForLeadGuard(t *testing.T) {
	store := &stubActivityStore{detail: &models.ActivityDetail{Activity: models.Activity{ID: 1, LeadInstructorID: 7}}}
	svc := NewActivityService(store, &stubInstanceStore{}, nil, nil, nil)

	_, err := svc.GetForLead(context.Background(), 1, 8)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	detail, err := svc.GetForLead(context.Background(), 1, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(1), detail.ID)
}

func TestDeleteUnknownActivity(t *testing.T) {
	svc := NewActivityService(&stubActivityStore{}, &stubInstanceStore{}, nil, nil, nil)

	err := svc.Delete(context.Background(), 99, 1)

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestCalendarRejectsInvertedWindow(t *testing.T) {
	svc := NewActivityService(&stubActivityStore{}, &stubInstanceStore{}, nil, nil, nil)

	from := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
	_, err := svc.Calendar(context.Background(), from, from.AddDate(0, 0, -7))

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
