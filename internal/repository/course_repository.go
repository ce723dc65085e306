package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/galleon/clash-of-courses/internal/models"
)

// CourseRepository provides database access to the course catalog.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository creates a new instance of CourseRepository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// FindByID returns a course with its prerequisite IDs populated.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	const query = `SELECT id, code, title, credits, level FROM courses WHERE id = $1 LIMIT 1`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find course by id: %w", err)
	}

	prereqs, err := r.ListPrerequisites(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, p := range prereqs {
		course.PrerequisiteIDs = append(course.PrerequisiteIDs, p.ReqCourseID)
	}
	return &course, nil
}

// ListPrerequisites returns the prerequisite rows for a course including
// the required course codes used in violation details.
func (r *CourseRepository) ListPrerequisites(ctx context.Context, courseID string) ([]models.CoursePrerequisite, error) {
	const query = `SELECT p.course_id, p.req_course_id, c.code AS req_code
FROM course_prerequisites p
JOIN courses c ON c.id = p.req_course_id
WHERE p.course_id = $1
ORDER BY c.code`
	prereqs := make([]models.CoursePrerequisite, 0)
	if err := r.db.SelectContext(ctx, &prereqs, query, courseID); err != nil {
		return nil, fmt.Errorf("list prerequisites: %w", err)
	}
	return prereqs, nil
}

// Search returns catalog courses matching the filter with a total count.
func (r *CourseRepository) Search(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error) {
	base := `FROM courses c WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(c.code ILIKE $%d OR c.title ILIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}
	if filter.Level > 0 {
		conditions = append(conditions, fmt.Sprintf("c.level = $%d", len(args)+1))
		args = append(args, filter.Level)
	}
	if filter.AvailableOnly && filter.TermID != "" {
		conditions = append(conditions, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM sections s WHERE s.course_id = c.id AND s.term_id = $%d AND s.enrolled_count < s.capacity)",
			len(args)+1))
		args = append(args, filter.TermID)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 {
		pageSize = 20
	}

	query := fmt.Sprintf(`SELECT c.id, c.code, c.title, c.credits, c.level %s ORDER BY c.code LIMIT $%d OFFSET $%d`,
		base+clause, len(args)+1, len(args)+2)
	listArgs := append(append([]interface{}{}, args...), pageSize, (page-1)*pageSize)

	courses := make([]models.Course, 0)
	if err := r.db.SelectContext(ctx, &courses, query, listArgs...); err != nil {
		return nil, 0, fmt.Errorf("search courses: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count courses: %w", err)
	}
	return courses, total, nil
}
