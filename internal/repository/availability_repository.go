package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/trainops/staffing-api/internal/models"
)

// AvailabilityRepository handles persistence of availability requests.
type AvailabilityRepository struct {
	db *sqlx.DB
}

// NewAvailabilityRepository constructs the repository.
func NewAvailabilityRepository(db *sqlx.DB) *AvailabilityRepository {
	return &AvailabilityRepository{db: db}
}

// UpsertSubmitted inserts an availability offer or, when the row already
// exists, refreshes submitted_at only. An Approved status is never downgraded.
func (r *AvailabilityRepository) UpsertSubmitted(ctx context.Context, instanceID, instructorID int64) error {
	const query = `INSERT INTO availability_requests
        (instance_id, instructor_id, status, submitted_at)
        VALUES ($1, $2, $3, NOW())
        ON CONFLICT (instance_id, instructor_id)
        DO UPDATE SET submitted_at = NOW()`
	if _, err := r.db.ExecContext(ctx, query,
		instanceID, instructorID, models.AvailabilityStatusSubmitted); err != nil {
		return fmt.Errorf("upsert availability: %w", err)
	}
	return nil
}

// Delete removes the availability row for the pair. Missing rows are a no-op.
func (r *AvailabilityRepository) Delete(ctx context.Context, instanceID, instructorID int64) error {
	const query = `DELETE FROM availability_requests
        WHERE instance_id = $1 AND instructor_id = $2`
	if _, err := r.db.ExecContext(ctx, query, instanceID, instructorID); err != nil {
		return fmt.Errorf("delete availability: %w", err)
	}
	return nil
}

// ListForInstance returns the availability rows of an instance with the
// assignment lock flag, ordered by instructor name.
func (r *AvailabilityRepository) ListForInstance(ctx context.Context, instanceID int64) ([]models.InstanceAvailabilityRow, error) {
	const query = `SELECT ar.instructor_id, i.full_name, i.email, ar.status,
        ar.submitted_at, ar.decision_at,
        EXISTS (
            SELECT 1 FROM assignments s
            WHERE s.instance_id = ar.instance_id
              AND s.instructor_id = ar.instructor_id
              AND s.status = $2
              AND s.cancelled_at IS NULL
        ) AS is_assigned
        FROM availability_requests ar
        JOIN instructors i ON i.id = ar.instructor_id
        WHERE ar.instance_id = $1
        ORDER BY i.full_name`
	var rows []models.InstanceAvailabilityRow
	if err := r.db.SelectContext(ctx, &rows, query, instanceID, models.AssignmentStatusApproved); err != nil {
		return nil, fmt.Errorf("list instance availability: %w", err)
	}
	return rows, nil
}

// ListRespondedIDs returns the ids of instructors who already have an
// availability row for the instance, regardless of status.
func (r *AvailabilityRepository) ListRespondedIDs(ctx context.Context, instanceID int64) ([]int64, error) {
	const query = `SELECT instructor_id FROM availability_requests WHERE instance_id = $1`
	var ids []int64
	if err := r.db.SelectContext(ctx, &ids, query, instanceID); err != nil {
		return nil, fmt.Errorf("list responded instructors: %w", err)
	}
	return ids, nil
}
