package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/galleon/clash-of-courses/internal/models"
)

// StudentRepository provides database access to student records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository creates a new instance of StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// FindByID returns a student by identifier.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	const query = `SELECT id, external_sis_id, full_name, program_id, standing, financial_status, credits_completed, active_term_id, created_at, updated_at
FROM students WHERE id = $1 LIMIT 1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find student by id: %w", err)
	}
	return &student, nil
}

// ListCompletedCourseIDs returns the distinct course IDs the student has
// completed. Enrollments still in registered status do not count.
func (r *StudentRepository) ListCompletedCourseIDs(ctx context.Context, studentID string) ([]string, error) {
	const query = `SELECT DISTINCT s.course_id
FROM enrollments e
JOIN sections s ON s.id = e.section_id
WHERE e.student_id = $1 AND e.status = $2
ORDER BY s.course_id`
	courseIDs := make([]string, 0)
	if err := r.db.SelectContext(ctx, &courseIDs, query, studentID, models.EnrollmentStatusCompleted); err != nil {
		return nil, fmt.Errorf("list completed courses: %w", err)
	}
	return courseIDs, nil
}
