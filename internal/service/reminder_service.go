package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"html"
	"time"

	"go.uber.org/zap"

	"github.com/trainops/staffing-api/internal/models"
	"github.com/trainops/staffing-api/pkg/config"
	appErrors "github.com/trainops/staffing-api/pkg/errors"
)

type courseReader interface {
	FindByID(ctx context.Context, id int64) (*models.Course, error)
}

type respondedLister interface {
	ListRespondedIDs(ctx context.Context, instanceID int64) ([]int64, error)
}

type emailQueuer interface {
	Queue(ctx context.Context, payload models.EmailPayload) (int64, error)
}

// SendRemindersRequest controls reminder targeting for one instance.
type SendRemindersRequest struct {
	OnlyNotResponded bool    `json:"only_not_responded"`
	Note             *string `json:"note"`
}

// ReminderResult summarizes a reminder send.
type ReminderResult struct {
	Queued  int `json:"queued"`
	Skipped int `json:"skipped"`
}

// ReminderService emails availability reminders to the instructors eligible
// for an instance.
type ReminderService struct {
	staffing    staffingReader
	activities  activityReader
	courses     courseReader
	instructors certifiedLister
	responded   respondedLister
	outbox      emailQueuer
	audit       auditRecorder
	app         config.AppConfig
	logger      *zap.Logger
}

// NewReminderService creates a service instance.
func NewReminderService(
	staffing staffingReader,
	activities activityReader,
	courses courseReader,
	instructors certifiedLister,
	responded respondedLister,
	outbox emailQueuer,
	audit auditRecorder,
	app config.AppConfig,
	logger *zap.Logger,
) *ReminderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReminderService{
		staffing:    staffing,
		activities:  activities,
		courses:     courses,
		instructors: instructors,
		responded:   responded,
		outbox:      outbox,
		audit:       audit,
		app:         app,
		logger:      logger,
	}
}

// Send queues reminder emails for every active, certified instructor of the
// instance's course. With OnlyNotResponded set, instructors who already
// submitted availability are skipped. Non-admin callers must be the lead
// instructor of the parent activity.
func (s *ReminderService) Send(ctx context.Context, instanceID int64, req SendRemindersRequest, actorID int64, enforcedLeadID *int64) (*ReminderResult, error) {
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

	eligible, err := s.instructors.ListCertifiedForCourse(ctx, activity.CourseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list eligible instructors")
	}

	skip := make(map[int64]struct{})
	if req.OnlyNotResponded {
		respondedIDs, err := s.responded.ListRespondedIDs(ctx, instanceID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list responded instructors")
		}
		for _, id := range respondedIDs {
			skip[id] = struct{}{}
		}
	}

	result := &ReminderResult{}
	for _, instructor := range eligible {
		if instructor.Status != models.InstructorStatusActive || instructor.Email == "" {
			result.Skipped++
			continue
		}
		if _, skipped := skip[instructor.ID]; skipped {
			result.Skipped++
			continue
		}

		payload := s.buildPayload(instructor, activity, course, staffing, req.Note)
		if _, err := s.outbox.Queue(ctx, payload); err != nil {
			s.logger.Sugar().Warnw("reminder queue failed",
				"instance_id", instanceID, "instructor_id", instructor.ID, "error", err)
			result.Skipped++
			continue
		}
		result.Queued++
	}

	if s.audit != nil {
		s.audit.Record(ctx, &actorID, models.AuditActionSendReminder, models.AuditEntityInstance,
			fmt.Sprintf("%d", instanceID), map[string]interface{}{
				"queued":             result.Queued,
				"skipped":            result.Skipped,
				"only_not_responded": req.OnlyNotResponded,
			})
	}
	s.logger.Sugar().Infow("reminders queued",
		"instance_id", instanceID, "queued", result.Queued, "skipped", result.Skipped)
	return result, nil
}

func (s *ReminderService) buildPayload(instructor models.Instructor, activity *models.Activity, course *models.Course, staffing *models.InstanceStaffing, note *string) models.EmailPayload {
	loc, err := time.LoadLocation(s.app.Timezone)
	if err != nil {
		loc = time.UTC
	}
	startLocal := staffing.StartAt.In(loc)

	subject := fmt.Sprintf("Availability reminder: %s on %s", activity.Name, startLocal.Format("02/01/2006"))
	link := fmt.Sprintf("%s/availability?instance_id=%d", s.app.BaseURL, staffing.InstanceID)

	body := fmt.Sprintf(
		`<p>Hello %s,</p>
<p>Please submit your availability for <strong>%s</strong> (%s), starting %s.</p>`,
		html.EscapeString(instructor.FullName),
		html.EscapeString(activity.Name),
		html.EscapeString(course.Name),
		startLocal.Format("Monday, 02 Jan 2006 15:04"),
	)
	if note != nil && *note != "" {
		body += fmt.Sprintf("<p>%s</p>", html.EscapeString(*note))
	}
	body += fmt.Sprintf(`<p><a href="%s">Open the availability page</a></p>`, link)

	return models.EmailPayload{
		ToEmail:       instructor.Email,
		ToName:        instructor.FullName,
		Subject:       subject,
		BodyHTML:      body,
		RelatedEntity: models.AuditEntityInstance,
		RelatedID:     fmt.Sprintf("%d", staffing.InstanceID),
	}
}
