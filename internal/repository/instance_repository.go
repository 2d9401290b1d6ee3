package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/trainops/staffing-api/internal/models"
)

// InstanceRepository handles persistence of activity instances.
type InstanceRepository struct {
	db *sqlx.DB
}

// NewInstanceRepository constructs the repository.
func NewInstanceRepository(db *sqlx.DB) *InstanceRepository {
	return &InstanceRepository{db: db}
}

// GetStaffing returns the staffing context of an instance joined to its
// parent activity.
func (r *InstanceRepository) GetStaffing(ctx context.Context, instanceID int64) (*models.InstanceStaffing, error) {
	const query = `SELECT i.id AS instance_id, a.id AS activity_id, a.course_id,
        a.lead_instructor_id, COALESCE(i.required_instructors, 0) AS required_instructors,
        i.start_at
        FROM activity_instances i
        JOIN activities a ON a.id = i.activity_id
        WHERE i.id = $1`
	var staffing models.InstanceStaffing
	if err := r.db.GetContext(ctx, &staffing, query, instanceID); err != nil {
		return nil, err
	}
	return &staffing, nil
}

// Create inserts an instance under an activity and returns its id.
func (r *InstanceRepository) Create(ctx context.Context, inst *models.ActivityInstance) (int64, error) {
	const query = `INSERT INTO activity_instances
        (activity_id, start_at, end_at, rooms_count, required_instructors)
        VALUES ($1, $2, $3, $4, $5) RETURNING id`
	var id int64
	if err := r.db.GetContext(ctx, &id, query,
		inst.ActivityID, inst.StartAt, inst.EndAt, inst.RoomsCount, inst.RequiredInstructors); err != nil {
		return 0, fmt.Errorf("insert instance: %w", err)
	}
	return id, nil
}

// Update overwrites the instance's schedule and staffing fields.
func (r *InstanceRepository) Update(ctx context.Context, inst *models.ActivityInstance) error {
	const query = `UPDATE activity_instances SET
        start_at = $2, end_at = $3, rooms_count = $4, required_instructors = $5
        WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query,
		inst.ID, inst.StartAt, inst.EndAt, inst.RoomsCount, inst.RequiredInstructors)
	if err != nil {
		return fmt.Errorf("update instance: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SoftDelete flags a single instance as cancelled with a reason.
func (r *InstanceRepository) SoftDelete(ctx context.Context, id int64, reason string) error {
	const query = `UPDATE activity_instances
        SET is_cancelled = TRUE, cancel_reason = $2
        WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, reason)
	if err != nil {
		return fmt.Errorf("soft delete instance: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteCascade hard-deletes the instance and its dependent availability and
// assignment rows in one transaction.
func (r *InstanceRepository) DeleteCascade(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete instance: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM availability_requests WHERE instance_id = $1`, id); err != nil {
		return fmt.Errorf("delete availability rows: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM assignments WHERE instance_id = $1`, id); err != nil {
		return fmt.Errorf("delete assignment rows: %w", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM activity_instances WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete instance: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return sql.ErrNoRows
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete instance: %w", err)
	}
	return nil
}
