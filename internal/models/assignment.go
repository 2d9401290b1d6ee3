package models

import (
	"fmt"
	"time"
)

// Assignment statuses.
const (
	AssignmentStatusApproved = "Approved"
)

// Assignment is the authoritative record that an instructor is slated to
// staff an instance. It counts as active only when status is Approved AND
// cancelled_at is null; every count-based rule filters on both.
type Assignment struct {
	ID           int64      `db:"id" json:"id"`
	InstanceID   int64      `db:"instance_id" json:"instance_id"`
	InstructorID int64      `db:"instructor_id" json:"instructor_id"`
	Status       string     `db:"status" json:"status"`
	AssignedAt   time.Time  `db:"assigned_at" json:"assigned_at"`
	AssignedBy   int64      `db:"assigned_by" json:"assigned_by"`
	CancelledAt  *time.Time `db:"cancelled_at" json:"cancelled_at,omitempty"`
}

// Active reports whether the assignment currently occupies a staffing slot.
func (a Assignment) Active() bool {
	return a.Status == AssignmentStatusApproved && a.CancelledAt == nil
}

// CapacityError reports an approval roster that would exceed the instance's
// required instructor count.
type CapacityError struct {
	Required       int
	ExistingActive int
	Requested      int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("too many instructors: required=%d, already assigned=%d, requested=%d",
		e.Required, e.ExistingActive, e.Requested)
}

// ApproveBatch is the unit of work the approval engine commits atomically.
type ApproveBatch struct {
	InstanceID    int64
	InstructorIDs []int64
	ActorID       int64
	Note          *string
}
