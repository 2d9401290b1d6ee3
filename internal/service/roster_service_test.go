package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trainops/staffing-api/internal/models"
	"github.com/trainops/staffing-api/pkg/config"
	appErrors "github.com/trainops/staffing-api/pkg/errors"
)

type stubRosterLister struct {
	rows []models.InstanceAvailabilityRow
}

func (s *stubRosterLister) ListRoster(_ context.Context, _ int64) ([]models.InstanceAvailabilityRow, error) {
	return s.rows, nil
}

func rosterFixture(rows []models.InstanceAvailabilityRow) *RosterService {
	return NewRosterService(
		&stubStaffingReader{staffing: staffingFixture()},
		&stubActivityReader{activity: &models.Activity{ID: 1, Name: "June Field Training", CourseID: 3, LeadInstructorID: 7}},
		&stubCourseReader{course: &models.Course{ID: 3, Name: "Navigation"}},
		&stubRosterLister{rows: rows},
		config.AppConfig{Timezone: "UTC"},
		nil,
	)
}

func TestExportCSVIncludesAssignmentTime(t *testing.T) {
	assignedAt := time.Date(2025, 6, 10, 14, 30, 0, 0, time.UTC)
	svc := rosterFixture([]models.InstanceAvailabilityRow{{
		InstructorID: 4,
		FullName:     "Dana",
		Email:        "dana@example.org",
		Status:       models.AssignmentStatusApproved,
		SubmittedAt:  assignedAt,
		DecisionAt:   &assignedAt,
		IsAssigned:   true,
	}})

	out, err := svc.Export(context.Background(), 10, RosterFormatCSV, nil)

	require.NoError(t, err)
	assert.Equal(t, "text/csv", out.ContentType)
	assert.Equal(t, "roster-2025-06-12.csv", out.FileName)
	body := string(out.Body)
	assert.Contains(t, body, "Dana,dana@example.org,Approved,10/06/2025 14:30")
}

func TestExportRejectsUnknownFormat(t *testing.T) {
	svc := rosterFixture(nil)

	_, err := svc.Export(context.Background(), 10, "xlsx", nil)

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestExportEnforcesLeadGuard(t *testing.T) {
	svc := rosterFixture(nil)

	_, err := svc.Export(context.Background(), 10, RosterFormatCSV, leadPtr(8))

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
