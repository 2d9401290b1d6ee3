package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trainops/staffing-api/internal/models"
	"github.com/trainops/staffing-api/pkg/config"
	appErrors "github.com/trainops/staffing-api/pkg/errors"
)

type stubCourseReader struct {
	course *models.Course
}

func (s *stubCourseReader) FindByID(_ context.Context, _ int64) (*models.Course, error) {
	return s.course, nil
}

type stubResponded struct {
	ids []int64
}

func (s *stubResponded) ListRespondedIDs(_ context.Context, _ int64) ([]int64, error) {
	return s.ids, nil
}

func reminderFixture(certified []models.Instructor, responded []int64) (*ReminderService, *stubQueuer) {
	outbox := &stubQueuer{}
	svc := NewReminderService(
		&stubStaffingReader{staffing: staffingFixture()},
		&stubActivityReader{activity: &models.Activity{ID: 1, Name: "June Field Training", CourseID: 3, LeadInstructorID: 7}},
		&stubCourseReader{course: &models.Course{ID: 3, Name: "Navigation"}},
		&stubCertifiedLister{certified: map[int64][]models.Instructor{3: certified}},
		&stubResponded{ids: responded},
		outbox,
		nil,
		config.AppConfig{BaseURL: "https://staffing.example.org", Timezone: "UTC"},
		nil,
	)
	return svc, outbox
}

func TestSendRemindersToAllEligible(t *testing.T) {
	certified := []models.Instructor{
		{ID: 4, FullName: "Dana", Email: "dana@example.org", Status: models.InstructorStatusActive},
		{ID: 5, FullName: "Omer", Email: "omer@example.org", Status: models.InstructorStatusActive},
	}
	svc, outbox := reminderFixture(certified, nil)

	result, err := svc.Send(context.Background(), 10, SendRemindersRequest{}, 7, leadPtr(7))

	require.NoError(t, err)
	assert.Equal(t, 2, result.Queued)
	assert.Equal(t, 0, result.Skipped)
	require.Len(t, outbox.payloads, 2)
	assert.Contains(t, outbox.payloads[0].BodyHTML, "June Field Training")
	assert.Contains(t, outbox.payloads[0].BodyHTML, "instance_id=10")
}

func TestSendRemindersSkipsRespondedWhenRequested(t *testing.T) {
	certified := []models.Instructor{
		{ID: 4, FullName: "Dana", Email: "dana@example.org", Status: models.InstructorStatusActive},
		{ID: 5, FullName: "Omer", Email: "omer@example.org", Status: models.InstructorStatusActive},
	}
	svc, outbox := reminderFixture(certified, []int64{4})

	result, err := svc.Send(context.Background(), 10, SendRemindersRequest{OnlyNotResponded: true}, 7, leadPtr(7))

	require.NoError(t, err)
	assert.Equal(t, 1, result.Queued)
	assert.Equal(t, 1, result.Skipped)
	require.Len(t, outbox.payloads, 1)
	assert.Equal(t, "omer@example.org", outbox.payloads[0].ToEmail)
}

func TestSendRemindersSkipsInactiveAndMissingEmail(t *testing.T) {
	certified := []models.Instructor{
		{ID: 4, FullName: "Dana", Email: "dana@example.org", Status: models.InstructorStatusInactive},
		{ID: 5, FullName: "Omer", Email: "", Status: models.InstructorStatusActive},
		{ID: 6, FullName: "Noa", Email: "noa@example.org", Status: models.InstructorStatusActive},
	}
	svc, outbox := reminderFixture(certified, nil)

	result, err := svc.Send(context.Background(), 10, SendRemindersRequest{}, 7, nil)

	require.NoError(t, err)
	assert.Equal(t, 1, result.Queued)
	assert.Equal(t, 2, result.Skipped)
	require.Len(t, outbox.payloads, 1)
	assert.Equal(t, "noa@example.org", outbox.payloads[0].ToEmail)
}

func TestSendRemindersLeadGuard(t *testing.T) {
	svc, outbox := reminderFixture(nil, nil)

	_, err := svc.Send(context.Background(), 10, SendRemindersRequest{}, 8, leadPtr(8))

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
	assert.Empty(t, outbox.payloads)
}
