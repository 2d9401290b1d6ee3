package models

// Instructor roles.
type InstructorRole string

const (
	RoleInstructor InstructorRole = "Instructor"
	RoleAdmin      InstructorRole = "Admin"
)

// Instructor statuses.
const (
	InstructorStatusActive   = "Active"
	InstructorStatusInactive = "Inactive"
)

// Instructor is a person who can teach. Certification for courses is held in
// the instructor_courses mapping.
type Instructor struct {
	ID         int64          `db:"id" json:"id"`
	FullName   string         `db:"full_name" json:"full_name"`
	Email      string         `db:"email" json:"email"`
	Role       InstructorRole `db:"role" json:"role"`
	Department *string        `db:"department" json:"department,omitempty"`
	Status     string         `db:"status" json:"status"`
}

// IsAdmin reports whether the instructor may bypass lead guards.
func (i Instructor) IsAdmin() bool { return i.Role == RoleAdmin }

// Course is a subject instructors can be certified for.
type Course struct {
	ID             int64  `db:"id" json:"id"`
	Name           string `db:"name" json:"name"`
	ActivityTypeID int64  `db:"activity_type_id" json:"activity_type_id"`
}
