package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/galleon/clash-of-courses/internal/models"
)

// EnrollmentRepository provides database access to enrollments.
type EnrollmentRepository struct {
	db       *sqlx.DB
	sections *SectionRepository
}

// NewEnrollmentRepository creates a new instance of EnrollmentRepository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db, sections: NewSectionRepository(db)}
}

type enrollmentDetailRow struct {
	models.Enrollment
	SectionCourseID string `db:"section_course_id"`
	TermID          string `db:"term_id"`
	SectionCode     string `db:"section_code"`
	Instructor      string `db:"instructor"`
	Capacity        int    `db:"capacity"`
	EnrolledCount   int    `db:"enrolled_count"`
	CourseCode      string `db:"course_code"`
	CourseTitle     string `db:"course_title"`
	CourseCredits   int    `db:"course_credits"`
	CourseLevel     int    `db:"course_level"`
}

func (row enrollmentDetailRow) toDetail() models.EnrollmentDetail {
	return models.EnrollmentDetail{
		Enrollment: row.Enrollment,
		Section: models.Section{
			ID:            row.SectionID,
			CourseID:      row.SectionCourseID,
			TermID:        row.TermID,
			SectionCode:   row.SectionCode,
			Instructor:    row.Instructor,
			Capacity:      row.Capacity,
			EnrolledCount: row.EnrolledCount,
		},
		Course: models.Course{
			ID:      row.SectionCourseID,
			Code:    row.CourseCode,
			Title:   row.CourseTitle,
			Credits: row.CourseCredits,
			Level:   row.CourseLevel,
		},
	}
}

// ListActiveByStudent returns the student's registered enrollments for a
// term with section, course, and meeting context. This is the busy
// schedule the conflict detector evaluates against.
func (r *EnrollmentRepository) ListActiveByStudent(ctx context.Context, studentID, termID string) ([]models.EnrollmentDetail, error) {
	const query = `SELECT e.id, e.student_id, e.section_id, e.status, e.enrolled_at, e.dropped_at,
s.course_id AS section_course_id, s.term_id, s.section_code, s.instructor, s.capacity, s.enrolled_count,
c.code AS course_code, c.title AS course_title, c.credits AS course_credits, c.level AS course_level
FROM enrollments e
JOIN sections s ON s.id = e.section_id
JOIN courses c ON c.id = s.course_id
WHERE e.student_id = $1 AND e.status = $2 AND s.term_id = $3
ORDER BY c.code, s.section_code`

	rows := make([]enrollmentDetailRow, 0)
	if err := r.db.SelectContext(ctx, &rows, query, studentID, models.EnrollmentStatusRegistered, termID); err != nil {
		return nil, fmt.Errorf("list active enrollments: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	sectionIDs := make([]string, 0, len(rows))
	for _, row := range rows {
		sectionIDs = append(sectionIDs, row.SectionID)
	}
	meetings, err := r.sections.ListMeetings(ctx, sectionIDs)
	if err != nil {
		return nil, err
	}

	details := make([]models.EnrollmentDetail, 0, len(rows))
	for _, row := range rows {
		detail := row.toDetail()
		detail.Meetings = meetings[row.SectionID]
		details = append(details, detail)
	}
	return details, nil
}

// FindActive returns the registered enrollment tying a student to a
// section, or sql.ErrNoRows when none exists.
func (r *EnrollmentRepository) FindActive(ctx context.Context, studentID, sectionID string) (*models.Enrollment, error) {
	const query = `SELECT id, student_id, section_id, status, enrolled_at, dropped_at
FROM enrollments WHERE student_id = $1 AND section_id = $2 AND status = $3 LIMIT 1`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, studentID, sectionID, models.EnrollmentStatusRegistered); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find active enrollment: %w", err)
	}
	return &enrollment, nil
}

// Create persists a new enrollment record.
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	if enrollment.EnrolledAt.IsZero() {
		enrollment.EnrolledAt = time.Now().UTC()
	}
	if enrollment.Status == "" {
		enrollment.Status = models.EnrollmentStatusRegistered
	}
	const query = `INSERT INTO enrollments (id, student_id, section_id, status, enrolled_at, dropped_at)
VALUES (:id, :student_id, :section_id, :status, :enrolled_at, :dropped_at)`
	if _, err := r.db.NamedExecContext(ctx, query, enrollment); err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

// Drop marks an enrollment as dropped at the given time.
func (r *EnrollmentRepository) Drop(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE enrollments SET status = $2, dropped_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, models.EnrollmentStatusDropped, at); err != nil {
		return fmt.Errorf("drop enrollment: %w", err)
	}
	return nil
}
