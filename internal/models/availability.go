package models

import "time"

// Availability request statuses.
const (
	AvailabilityStatusSubmitted = "Submitted"
	AvailabilityStatusApproved  = "Approved"
)

// AvailabilityRequest is an instructor's declaration of willingness for a
// specific instance. At most one row exists per (instance, instructor).
type AvailabilityRequest struct {
	ID           int64      `db:"id" json:"id"`
	InstanceID   int64      `db:"instance_id" json:"instance_id"`
	InstructorID int64      `db:"instructor_id" json:"instructor_id"`
	Status       string     `db:"status" json:"status"`
	SubmittedAt  time.Time  `db:"submitted_at" json:"submitted_at"`
	DecisionAt   *time.Time `db:"decision_at" json:"decision_at,omitempty"`
	DecisionBy   *int64     `db:"decision_by" json:"decision_by,omitempty"`
	DecisionNote *string    `db:"decision_note" json:"decision_note,omitempty"`
}

// InstanceAvailabilityRow is one availability row enriched with instructor
// identity and the assignment lock flag, as rendered on the lead's screen.
type InstanceAvailabilityRow struct {
	InstructorID int64      `db:"instructor_id" json:"instructor_id"`
	FullName     string     `db:"full_name" json:"full_name"`
	Email        string     `db:"email" json:"email"`
	Status       string     `db:"status" json:"status"`
	SubmittedAt  time.Time  `db:"submitted_at" json:"submitted_at"`
	DecisionAt   *time.Time `db:"decision_at" json:"decision_at,omitempty"`
	IsAssigned   bool       `db:"is_assigned" json:"is_assigned"`
}

// FairnessRow ranks an eligible instructor by approved assignments inside the
// month containing the instance's start. Lower counts surface first.
type FairnessRow struct {
	InstructorID    int64  `db:"instructor_id" json:"instructor_id"`
	FullName        string `db:"full_name" json:"full_name"`
	Email           string `db:"email" json:"email"`
	ApprovedInMonth int    `db:"approved_in_month" json:"approved_in_month"`
}
