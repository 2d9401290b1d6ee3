package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/trainops/staffing-api/internal/models"
)

// AssignmentRepository handles persistence of assignments, including the
// transactional approval batch.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository constructs the repository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// IsAssigned reports whether the instructor holds an active approved
// assignment for the instance. This is the lock gate for availability edits.
func (r *AssignmentRepository) IsAssigned(ctx context.Context, instanceID, instructorID int64) (bool, error) {
	const query = `SELECT 1 FROM assignments
        WHERE instance_id = $1 AND instructor_id = $2
          AND status = $3 AND cancelled_at IS NULL
        LIMIT 1`
	var one int
	if err := r.db.GetContext(ctx, &one, query,
		instanceID, instructorID, models.AssignmentStatusApproved); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check assignment: %w", err)
	}
	return true, nil
}

// FairnessCounts returns, for every instructor certified for the course, the
// count of active approved assignments with assigned_at inside [from, to).
// Ordered by count ascending, then name.
func (r *AssignmentRepository) FairnessCounts(ctx context.Context, courseID int64, from, to time.Time) ([]models.FairnessRow, error) {
	const query = `SELECT i.id AS instructor_id, i.full_name, i.email,
        (
            SELECT COUNT(*) FROM assignments s
            WHERE s.instructor_id = i.id
              AND s.status = $2
              AND s.cancelled_at IS NULL
              AND s.assigned_at >= $3
              AND s.assigned_at < $4
        ) AS approved_in_month
        FROM instructors i
        JOIN instructor_courses ic ON ic.instructor_id = i.id
        WHERE ic.course_id = $1
        ORDER BY approved_in_month, i.full_name`
	var rows []models.FairnessRow
	if err := r.db.SelectContext(ctx, &rows, query,
		courseID, models.AssignmentStatusApproved, from, to); err != nil {
		return nil, fmt.Errorf("fairness counts: %w", err)
	}
	return rows, nil
}

// ListRoster returns the active approved assignments of an instance with
// instructor identity, ordered by name. Used for roster export.
func (r *AssignmentRepository) ListRoster(ctx context.Context, instanceID int64) ([]models.InstanceAvailabilityRow, error) {
	const query = `SELECT s.instructor_id, i.full_name, i.email, s.status,
        s.assigned_at AS submitted_at, s.assigned_at AS decision_at, TRUE AS is_assigned
        FROM assignments s
        JOIN instructors i ON i.id = s.instructor_id
        WHERE s.instance_id = $1 AND s.status = $2 AND s.cancelled_at IS NULL
        ORDER BY i.full_name`
	var rows []models.InstanceAvailabilityRow
	if err := r.db.SelectContext(ctx, &rows, query, instanceID, models.AssignmentStatusApproved); err != nil {
		return nil, fmt.Errorf("list roster: %w", err)
	}
	return rows, nil
}

// ApproveBatch commits the approval unit of work atomically: it locks the
// instance row, re-checks the staffing ceiling against the rows already
// active, then upserts an Approved assignment and an Approved availability
// request per instructor. Any failure rolls the whole batch back.
//
// The ceiling counts existing active assignments for instructors outside the
// request plus the full request, so repeated approvals of the same roster are
// idempotent while genuine over-staffing is rejected even under concurrent
// calls (the row lock serializes them).
func (r *AssignmentRepository) ApproveBatch(ctx context.Context, batch models.ApproveBatch) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin approve batch: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const lockQuery = `SELECT COALESCE(required_instructors, 0) AS required_instructors
        FROM activity_instances WHERE id = $1 FOR UPDATE`
	var required int
	if err := tx.GetContext(ctx, &required, lockQuery, batch.InstanceID); err != nil {
		return err
	}

	const countQuery = `SELECT COUNT(*) FROM assignments
        WHERE instance_id = $1 AND status = $2 AND cancelled_at IS NULL
          AND NOT (instructor_id = ANY($3))`
	var existing int
	if err := tx.GetContext(ctx, &existing, countQuery,
		batch.InstanceID, models.AssignmentStatusApproved,
		pq.Array(batch.InstructorIDs)); err != nil {
		return fmt.Errorf("count active assignments: %w", err)
	}
	if existing+len(batch.InstructorIDs) > required {
		return &models.CapacityError{
			Required:       required,
			ExistingActive: existing,
			Requested:      len(batch.InstructorIDs),
		}
	}

	const upsertAssignment = `INSERT INTO assignments
        (instance_id, instructor_id, status, assigned_at, assigned_by)
        VALUES ($1, $2, $3, NOW(), $4)
        ON CONFLICT (instance_id, instructor_id) WHERE cancelled_at IS NULL
        DO UPDATE SET status = EXCLUDED.status, assigned_at = NOW(), assigned_by = EXCLUDED.assigned_by`

	const upsertAvailability = `INSERT INTO availability_requests
        (instance_id, instructor_id, status, submitted_at, decision_at, decision_by, decision_note)
        VALUES ($1, $2, $3, NOW(), NOW(), $4, $5)
        ON CONFLICT (instance_id, instructor_id)
        DO UPDATE SET status = EXCLUDED.status, decision_at = NOW(),
            decision_by = EXCLUDED.decision_by, decision_note = EXCLUDED.decision_note`

	for _, instructorID := range batch.InstructorIDs {
		if _, err := tx.ExecContext(ctx, upsertAssignment,
			batch.InstanceID, instructorID, models.AssignmentStatusApproved, batch.ActorID); err != nil {
			return fmt.Errorf("upsert assignment: %w", err)
		}
		if _, err := tx.ExecContext(ctx, upsertAvailability,
			batch.InstanceID, instructorID, models.AvailabilityStatusApproved,
			batch.ActorID, batch.Note); err != nil {
			return fmt.Errorf("upsert availability: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit approve batch: %w", err)
	}
	return nil
}

// CancelAssignment marks an active assignment cancelled. It stops counting
// toward fairness and staffing immediately.
func (r *AssignmentRepository) CancelAssignment(ctx context.Context, instanceID, instructorID int64) error {
	const query = `UPDATE assignments SET cancelled_at = NOW()
        WHERE instance_id = $1 AND instructor_id = $2
          AND status = $3 AND cancelled_at IS NULL`
	res, err := r.db.ExecContext(ctx, query,
		instanceID, instructorID, models.AssignmentStatusApproved)
	if err != nil {
		return fmt.Errorf("cancel assignment: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
