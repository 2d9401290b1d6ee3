package models

import "time"

// Activity is a recurring training offering tied to a course and a lead
// instructor. It owns zero or more instances.
type Activity struct {
	ID               int64      `db:"id" json:"id"`
	Name             string     `db:"name" json:"name"`
	ActivityTypeID   int64      `db:"activity_type_id" json:"activity_type_id"`
	CourseID         int64      `db:"course_id" json:"course_id"`
	LeadInstructorID int64      `db:"lead_instructor_id" json:"lead_instructor_id"`
	DeadlineAt       *time.Time `db:"deadline_at" json:"deadline_at,omitempty"`
	IsCancelled      bool       `db:"is_cancelled" json:"is_cancelled"`
	CancelReason     *string    `db:"cancel_reason" json:"cancel_reason,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

// ActivityInstance is one concrete occurrence of an activity with its own
// staffing requirement. end must be after start.
type ActivityInstance struct {
	ID                  int64     `db:"id" json:"id"`
	ActivityID          int64     `db:"activity_id" json:"activity_id"`
	StartAt             time.Time `db:"start_at" json:"start_at"`
	EndAt               time.Time `db:"end_at" json:"end_at"`
	RoomsCount          int       `db:"rooms_count" json:"rooms_count"`
	RequiredInstructors int       `db:"required_instructors" json:"required_instructors"`
	IsCancelled         bool      `db:"is_cancelled" json:"is_cancelled"`
	CancelReason        *string   `db:"cancel_reason" json:"cancel_reason,omitempty"`
}

// ActivityDetail is the activity header together with its ordered instances.
type ActivityDetail struct {
	Activity
	Instances []ActivityInstance `json:"instances"`
}

// InstanceStaffing is the staffing context of one instance, joined to its
// parent activity. Used by the approval engine and the lead guard.
type InstanceStaffing struct {
	InstanceID          int64     `db:"instance_id"`
	ActivityID          int64     `db:"activity_id"`
	CourseID            int64     `db:"course_id"`
	LeadInstructorID    *int64    `db:"lead_instructor_id"`
	RequiredInstructors int       `db:"required_instructors"`
	StartAt             time.Time `db:"start_at"`
}

// ActivitySearchResult is a flattened search projection.
type ActivitySearchResult struct {
	ID               int64      `db:"id" json:"id"`
	Name             string     `db:"name" json:"name"`
	ActivityTypeName string     `db:"activity_type_name" json:"activity_type_name"`
	CourseName       string     `db:"course_name" json:"course_name"`
	LeadName         *string    `db:"lead_name" json:"lead_name,omitempty"`
	FirstStartAt     *time.Time `db:"first_start_at" json:"first_start_at,omitempty"`
	InstanceCount    int        `db:"instance_count" json:"instance_count"`
	IsCancelled      bool       `db:"is_cancelled" json:"is_cancelled"`
}

// ActivitySearchFilter captures search criteria for activities.
type ActivitySearchFilter struct {
	Query          string
	ActivityTypeID int64
	CourseID       int64
	From           *time.Time
	To             *time.Time
}

// CalendarItem is one instance projected onto the scheduling calendar.
type CalendarItem struct {
	InstanceID   int64     `db:"instance_id" json:"instance_id"`
	ActivityID   int64     `db:"activity_id" json:"activity_id"`
	ActivityName string    `db:"activity_name" json:"activity_name"`
	CourseName   *string   `db:"course_name" json:"course_name,omitempty"`
	StartAt      time.Time `db:"start_at" json:"start_at"`
	EndAt        time.Time `db:"end_at" json:"end_at"`
	RoomsCount   int       `db:"rooms_count" json:"rooms_count"`
	IsCancelled  bool      `db:"is_cancelled" json:"is_cancelled"`
}

// ActivityType groups courses.
type ActivityType struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}
