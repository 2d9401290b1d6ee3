package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/trainops/staffing-api/internal/models"
)

// InstructorRepository handles persistence of instructors and their course
// certifications.
type InstructorRepository struct {
	db *sqlx.DB
}

// NewInstructorRepository constructs the repository.
func NewInstructorRepository(db *sqlx.DB) *InstructorRepository {
	return &InstructorRepository{db: db}
}

// List returns all instructors ordered by full name.
func (r *InstructorRepository) List(ctx context.Context) ([]models.Instructor, error) {
	const query = `SELECT id, full_name, email, role, department, status
        FROM instructors ORDER BY full_name`
	var instructors []models.Instructor
	if err := r.db.SelectContext(ctx, &instructors, query); err != nil {
		return nil, fmt.Errorf("list instructors: %w", err)
	}
	return instructors, nil
}

// FindByEmail returns an instructor by email.
func (r *InstructorRepository) FindByEmail(ctx context.Context, email string) (*models.Instructor, error) {
	const query = `SELECT id, full_name, email, role, department, status
        FROM instructors WHERE email = $1`
	var instructor models.Instructor
	if err := r.db.GetContext(ctx, &instructor, query, email); err != nil {
		return nil, err
	}
	return &instructor, nil
}

// ListCertifiedForCourse returns instructors holding a certification for the
// course, ordered by full name.
func (r *InstructorRepository) ListCertifiedForCourse(ctx context.Context, courseID int64) ([]models.Instructor, error) {
	const query = `SELECT i.id, i.full_name, i.email, i.role, i.department, i.status
        FROM instructors i
        JOIN instructor_courses ic ON ic.instructor_id = i.id
        WHERE ic.course_id = $1
        ORDER BY i.full_name`
	var instructors []models.Instructor
	if err := r.db.SelectContext(ctx, &instructors, query, courseID); err != nil {
		return nil, fmt.Errorf("list certified instructors: %w", err)
	}
	return instructors, nil
}

// ReplaceCertifications replaces the instructor set for a course in one
// transaction.
func (r *InstructorRepository) ReplaceCertifications(ctx context.Context, courseID int64, instructorIDs []int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace certifications: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM instructor_courses WHERE course_id = $1`, courseID); err != nil {
		return fmt.Errorf("clear certifications: %w", err)
	}
	for _, id := range instructorIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO instructor_courses (course_id, instructor_id) VALUES ($1, $2)`,
			courseID, id); err != nil {
			return fmt.Errorf("insert certification: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace certifications: %w", err)
	}
	return nil
}
