package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/trainops/staffing-api/internal/models"
)

// ActivityRepository handles persistence of activities and their instances.
type ActivityRepository struct {
	db *sqlx.DB
}

// NewActivityRepository constructs the repository.
func NewActivityRepository(db *sqlx.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// FindByID returns an activity header by id.
func (r *ActivityRepository) FindByID(ctx context.Context, id int64) (*models.Activity, error) {
	const query = `SELECT id, name, activity_type_id, course_id, lead_instructor_id,
        deadline_at, is_cancelled, cancel_reason, created_at, updated_at
        FROM activities WHERE id = $1`
	var activity models.Activity
	if err := r.db.GetContext(ctx, &activity, query, id); err != nil {
		return nil, err
	}
	return &activity, nil
}

// GetDetail returns an activity header with its instances ordered by start.
func (r *ActivityRepository) GetDetail(ctx context.Context, id int64) (*models.ActivityDetail, error) {
	activity, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	const query = `SELECT id, activity_id, start_at, end_at,
        COALESCE(rooms_count, 0) AS rooms_count,
        COALESCE(required_instructors, 0) AS required_instructors,
        is_cancelled, cancel_reason
        FROM activity_instances WHERE activity_id = $1 ORDER BY start_at`
	var instances []models.ActivityInstance
	if err := r.db.SelectContext(ctx, &instances, query, id); err != nil {
		return nil, fmt.Errorf("list activity instances: %w", err)
	}
	return &models.ActivityDetail{Activity: *activity, Instances: instances}, nil
}

// Create persists an activity together with its initial instances in one
// transaction and returns the activity id.
func (r *ActivityRepository) Create(ctx context.Context, activity *models.Activity, instances []models.ActivityInstance) (int64, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin create activity: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const insertActivity = `INSERT INTO activities
        (name, activity_type_id, course_id, lead_instructor_id, deadline_at, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, NOW(), NOW()) RETURNING id`
	var id int64
	if err := tx.GetContext(ctx, &id, insertActivity,
		activity.Name, activity.ActivityTypeID, activity.CourseID,
		activity.LeadInstructorID, activity.DeadlineAt); err != nil {
		return 0, fmt.Errorf("insert activity: %w", err)
	}

	for _, inst := range instances {
		if err := insertInstanceTx(ctx, tx, id, inst); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit create activity: %w", err)
	}
	return id, nil
}

// UpdateHeader updates the activity header fields only.
func (r *ActivityRepository) UpdateHeader(ctx context.Context, activity *models.Activity) error {
	const query = `UPDATE activities SET
        name = $2, activity_type_id = $3, course_id = $4,
        lead_instructor_id = $5, deadline_at = $6, updated_at = NOW()
        WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query,
		activity.ID, activity.Name, activity.ActivityTypeID,
		activity.CourseID, activity.LeadInstructorID, activity.DeadlineAt)
	if err != nil {
		return fmt.Errorf("update activity header: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ReplaceInstances updates the header and replaces every instance of the
// activity inside one transaction.
func (r *ActivityRepository) ReplaceInstances(ctx context.Context, activity *models.Activity, instances []models.ActivityInstance) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace instances: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const updateActivity = `UPDATE activities SET
        name = $2, activity_type_id = $3, course_id = $4,
        lead_instructor_id = $5, deadline_at = $6, updated_at = NOW()
        WHERE id = $1`
	res, err := tx.ExecContext(ctx, updateActivity,
		activity.ID, activity.Name, activity.ActivityTypeID,
		activity.CourseID, activity.LeadInstructorID, activity.DeadlineAt)
	if err != nil {
		return fmt.Errorf("update activity: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return sql.ErrNoRows
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM activity_instances WHERE activity_id = $1`, activity.ID); err != nil {
		return fmt.Errorf("clear activity instances: %w", err)
	}
	for _, inst := range instances {
		if err := insertInstanceTx(ctx, tx, activity.ID, inst); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace instances: %w", err)
	}
	return nil
}

func insertInstanceTx(ctx context.Context, tx *sqlx.Tx, activityID int64, inst models.ActivityInstance) error {
	const query = `INSERT INTO activity_instances
        (activity_id, start_at, end_at, rooms_count, required_instructors)
        VALUES ($1, $2, $3, $4, $5)`
	if _, err := tx.ExecContext(ctx, query,
		activityID, inst.StartAt, inst.EndAt, inst.RoomsCount, inst.RequiredInstructors); err != nil {
		return fmt.Errorf("insert activity instance: %w", err)
	}
	return nil
}

// SoftDelete flags the activity and all its instances as cancelled with a
// reason, in one transaction.
func (r *ActivityRepository) SoftDelete(ctx context.Context, id int64, reason string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin soft delete activity: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const updateActivity = `UPDATE activities
        SET is_cancelled = TRUE, cancel_reason = $2, updated_at = NOW()
        WHERE id = $1`
	res, err := tx.ExecContext(ctx, updateActivity, id, reason)
	if err != nil {
		return fmt.Errorf("soft delete activity: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return sql.ErrNoRows
	}

	const updateInstances = `UPDATE activity_instances
        SET is_cancelled = TRUE, cancel_reason = $2
        WHERE activity_id = $1`
	if _, err := tx.ExecContext(ctx, updateInstances, id, reason); err != nil {
		return fmt.Errorf("soft delete activity instances: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit soft delete activity: %w", err)
	}
	return nil
}

// DeleteCascade hard-deletes the activity, its instances, and the
// availability/assignment rows hanging off them, in one transaction.
func (r *ActivityRepository) DeleteCascade(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete activity: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const deleteAvailability = `DELETE FROM availability_requests
        WHERE instance_id IN (SELECT id FROM activity_instances WHERE activity_id = $1)`
	if _, err := tx.ExecContext(ctx, deleteAvailability, id); err != nil {
		return fmt.Errorf("delete availability rows: %w", err)
	}

	const deleteAssignments = `DELETE FROM assignments
        WHERE instance_id IN (SELECT id FROM activity_instances WHERE activity_id = $1)`
	if _, err := tx.ExecContext(ctx, deleteAssignments, id); err != nil {
		return fmt.Errorf("delete assignment rows: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM activity_instances WHERE activity_id = $1`, id); err != nil {
		return fmt.Errorf("delete activity instances: %w", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM activities WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete activity: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return sql.ErrNoRows
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete activity: %w", err)
	}
	return nil
}

// Search returns activities matching the filter, newest first.
func (r *ActivityRepository) Search(ctx context.Context, filter models.ActivitySearchFilter) ([]models.ActivitySearchResult, error) {
	base := `FROM activities a
JOIN activity_types t ON t.id = a.activity_type_id
JOIN courses c ON c.id = a.course_id
LEFT JOIN instructors l ON l.id = a.lead_instructor_id`
	var conditions []string
	var args []interface{}

	if filter.Query != "" {
		conditions = append(conditions, fmt.Sprintf("a.name ILIKE $%d", len(args)+1))
		args = append(args, "%"+filter.Query+"%")
	}
	if filter.ActivityTypeID > 0 {
		conditions = append(conditions, fmt.Sprintf("a.activity_type_id = $%d", len(args)+1))
		args = append(args, filter.ActivityTypeID)
	}
	if filter.CourseID > 0 {
		conditions = append(conditions, fmt.Sprintf("a.course_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM activity_instances i WHERE i.activity_id = a.id AND i.start_at >= $%d)", len(args)+1))
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM activity_instances i WHERE i.activity_id = a.id AND i.start_at < $%d)", len(args)+1))
		args = append(args, *filter.To)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`SELECT a.id, a.name, t.name AS activity_type_name, c.name AS course_name,
        l.full_name AS lead_name,
        (SELECT MIN(i.start_at) FROM activity_instances i WHERE i.activity_id = a.id) AS first_start_at,
        (SELECT COUNT(*) FROM activity_instances i WHERE i.activity_id = a.id) AS instance_count,
        a.is_cancelled
        %s ORDER BY a.created_at DESC`, base+clause)

	var results []models.ActivitySearchResult
	if err := r.db.SelectContext(ctx, &results, query, args...); err != nil {
		return nil, fmt.Errorf("search activities: %w", err)
	}
	return results, nil
}

// Calendar returns instances overlapping the [from, to) window.
func (r *ActivityRepository) Calendar(ctx context.Context, from, to time.Time) ([]models.CalendarItem, error) {
	const query = `SELECT i.id AS instance_id, a.id AS activity_id, a.name AS activity_name,
        c.name AS course_name, i.start_at, i.end_at,
        COALESCE(i.rooms_count, 0) AS rooms_count, i.is_cancelled
        FROM activity_instances i
        JOIN activities a ON a.id = i.activity_id
        LEFT JOIN courses c ON c.id = a.course_id
        WHERE i.start_at < $2 AND i.end_at > $1
        ORDER BY i.start_at`
	var items []models.CalendarItem
	if err := r.db.SelectContext(ctx, &items, query, from, to); err != nil {
		return nil, fmt.Errorf("load calendar: %w", err)
	}
	return items, nil
}
