package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/trainops/staffing-api/internal/models"
)

// CourseRepository handles persistence of courses and activity types.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// List returns all courses ordered by name.
func (r *CourseRepository) List(ctx context.Context) ([]models.Course, error) {
	const query = `SELECT id, name, activity_type_id FROM courses ORDER BY name`
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query); err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return courses, nil
}

// ListByActivityType returns courses under an activity type.
func (r *CourseRepository) ListByActivityType(ctx context.Context, activityTypeID int64) ([]models.Course, error) {
	const query = `SELECT id, name, activity_type_id FROM courses
        WHERE activity_type_id = $1 ORDER BY name`
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, activityTypeID); err != nil {
		return nil, fmt.Errorf("list courses by type: %w", err)
	}
	return courses, nil
}

// FindByID returns a course by id.
func (r *CourseRepository) FindByID(ctx context.Context, id int64) (*models.Course, error) {
	const query = `SELECT id, name, activity_type_id FROM courses WHERE id = $1`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, err
	}
	return &course, nil
}

// ListTypes returns all activity types ordered by name.
func (r *CourseRepository) ListTypes(ctx context.Context) ([]models.ActivityType, error) {
	const query = `SELECT id, name FROM activity_types ORDER BY name`
	var types []models.ActivityType
	if err := r.db.SelectContext(ctx, &types, query); err != nil {
		return nil, fmt.Errorf("list activity types: %w", err)
	}
	return types, nil
}

// CreateType inserts an activity type and returns its id.
func (r *CourseRepository) CreateType(ctx context.Context, name string) (int64, error) {
	const query = `INSERT INTO activity_types (name) VALUES ($1) RETURNING id`
	var id int64
	if err := r.db.GetContext(ctx, &id, query, name); err != nil {
		return 0, fmt.Errorf("create activity type: %w", err)
	}
	return id, nil
}

// UpdateType renames an activity type.
func (r *CourseRepository) UpdateType(ctx context.Context, id int64, name string) error {
	const query = `UPDATE activity_types SET name = $2 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, name)
	if err != nil {
		return fmt.Errorf("update activity type: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// TypeHasCourses reports whether courses reference the activity type.
func (r *CourseRepository) TypeHasCourses(ctx context.Context, id int64) (bool, error) {
	const query = `SELECT 1 FROM courses WHERE activity_type_id = $1 LIMIT 1`
	var one int
	if err := r.db.GetContext(ctx, &one, query, id); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check activity type usage: %w", err)
	}
	return true, nil
}

// DeleteType removes an activity type.
func (r *CourseRepository) DeleteType(ctx context.Context, id int64) error {
	const query = `DELETE FROM activity_types WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete activity type: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
