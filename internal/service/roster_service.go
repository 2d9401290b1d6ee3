package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/trainops/staffing-api/internal/models"
	"github.com/trainops/staffing-api/pkg/config"
	appErrors "github.com/trainops/staffing-api/pkg/errors"
	"github.com/trainops/staffing-api/pkg/export"
)

// Roster export formats.
const (
	RosterFormatCSV = "csv"
	RosterFormatPDF = "pdf"
)

type rosterLister interface {
	ListRoster(ctx context.Context, instanceID int64) ([]models.InstanceAvailabilityRow, error)
}

// RosterExport is a rendered roster file ready for download.
type RosterExport struct {
	FileName    string
	ContentType string
	Body        []byte
}

// RosterService renders the approved staffing roster of an instance as a
// downloadable CSV or PDF.
type RosterService struct {
	staffing   staffingReader
	activities activityReader
	courses    courseReader
	roster     rosterLister
	app        config.AppConfig
	logger     *zap.Logger
}

// NewRosterService creates a service instance.
func NewRosterService(staffing staffingReader, activities activityReader, courses courseReader, roster rosterLister, app config.AppConfig, logger *zap.Logger) *RosterService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RosterService{
		staffing:   staffing,
		activities: activities,
		courses:    courses,
		roster:     roster,
		app:        app,
		logger:     logger,
	}
}

// Export renders the roster in the requested format. Non-admin callers must
// be the lead instructor of the parent activity.
func (s *RosterService) Export(ctx context.Context, instanceID int64, format string, enforcedLeadID *int64) (*RosterExport, error) {
	if format != RosterFormatCSV && format != RosterFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

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

	activity, err := s.activities.FindByID(ctx, staffing.ActivityID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load activity")
	}
	course, err := s.courses.FindByID(ctx, activity.CourseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	rows, err := s.roster.ListRoster(ctx, instanceID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}

	loc, err := time.LoadLocation(s.app.Timezone)
	if err != nil {
		loc = time.UTC
	}

	doc := export.RosterDocument{
		ActivityName: activity.Name,
		CourseName:   course.Name,
		Slot:         staffing.StartAt.In(loc).Format("Monday, 02 Jan 2006 15:04"),
	}
	for _, row := range rows {
		assignedAt := ""
		if row.DecisionAt != nil {
			assignedAt = row.DecisionAt.In(loc).Format("02/01/2006 15:04")
		}
		doc.Rows = append(doc.Rows, export.RosterRow{
			FullName:   row.FullName,
			Email:      row.Email,
			Status:     row.Status,
			AssignedAt: assignedAt,
		})
	}

	stamp := staffing.StartAt.In(loc).Format("2006-01-02")
	out := &RosterExport{}
	switch format {
	case RosterFormatCSV:
		body, err := export.RenderCSV(doc)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render roster")
		}
		out.Body = body
		out.ContentType = "text/csv"
		out.FileName = "roster-" + stamp + ".csv"
	case RosterFormatPDF:
		body, err := export.RenderPDF(doc)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render roster")
		}
		out.Body = body
		out.ContentType = "application/pdf"
		out.FileName = "roster-" + stamp + ".pdf"
	}
	return out, nil
}
