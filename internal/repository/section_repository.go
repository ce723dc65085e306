package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/galleon/clash-of-courses/internal/models"
)

// SectionRepository provides database access to sections and their meetings.
type SectionRepository struct {
	db *sqlx.DB
}

// NewSectionRepository creates a new instance of SectionRepository.
func NewSectionRepository(db *sqlx.DB) *SectionRepository {
	return &SectionRepository{db: db}
}

type sectionDetailRow struct {
	models.Section
	CourseCode    string `db:"course_code"`
	CourseTitle   string `db:"course_title"`
	CourseCredits int    `db:"course_credits"`
	CourseLevel   int    `db:"course_level"`
}

func (row sectionDetailRow) toDetail() models.SectionDetail {
	return models.SectionDetail{
		Section: row.Section,
		Course: models.Course{
			ID:      row.CourseID,
			Code:    row.CourseCode,
			Title:   row.CourseTitle,
			Credits: row.CourseCredits,
			Level:   row.CourseLevel,
		},
	}
}

const sectionDetailColumns = `s.id, s.course_id, s.term_id, s.section_code, s.instructor, s.capacity, s.enrolled_count,
c.code AS course_code, c.title AS course_title, c.credits AS course_credits, c.level AS course_level`

// FindDetailByID returns a section with its course and meetings.
func (r *SectionRepository) FindDetailByID(ctx context.Context, id string) (*models.SectionDetail, error) {
	query := fmt.Sprintf(`SELECT %s FROM sections s JOIN courses c ON c.id = s.course_id WHERE s.id = $1 LIMIT 1`, sectionDetailColumns)
	var row sectionDetailRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find section by id: %w", err)
	}

	detail := row.toDetail()
	meetings, err := r.ListMeetings(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	detail.Meetings = meetings[id]
	return &detail, nil
}

// ListSiblings returns the other sections of the same course in the same
// term, with meetings attached. The excluded ID is the section that was
// found unattachable.
func (r *SectionRepository) ListSiblings(ctx context.Context, courseID, termID, excludeID string) ([]models.SectionDetail, error) {
	query := fmt.Sprintf(`SELECT %s FROM sections s JOIN courses c ON c.id = s.course_id
WHERE s.course_id = $1 AND s.term_id = $2 AND s.id <> $3
ORDER BY s.section_code`, sectionDetailColumns)

	rows := make([]sectionDetailRow, 0)
	if err := r.db.SelectContext(ctx, &rows, query, courseID, termID, excludeID); err != nil {
		return nil, fmt.Errorf("list sibling sections: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	meetings, err := r.ListMeetings(ctx, ids)
	if err != nil {
		return nil, err
	}

	details := make([]models.SectionDetail, 0, len(rows))
	for _, row := range rows {
		detail := row.toDetail()
		detail.Meetings = meetings[row.ID]
		details = append(details, detail)
	}
	return details, nil
}

// ListMeetings returns meetings for the given sections keyed by section ID.
func (r *SectionRepository) ListMeetings(ctx context.Context, sectionIDs []string) (map[string][]models.Meeting, error) {
	if len(sectionIDs) == 0 {
		return map[string][]models.Meeting{}, nil
	}
	const query = `SELECT id, section_id, activity, day_of_week, start_min, end_min, room
FROM meetings WHERE section_id = ANY($1)
ORDER BY day_of_week, start_min`
	meetings := make([]models.Meeting, 0)
	if err := r.db.SelectContext(ctx, &meetings, query, pq.Array(sectionIDs)); err != nil {
		return nil, fmt.Errorf("list meetings: %w", err)
	}

	bySection := make(map[string][]models.Meeting, len(sectionIDs))
	for _, m := range meetings {
		bySection[m.SectionID] = append(bySection[m.SectionID], m)
	}
	return bySection, nil
}

// ReserveSeat increments the enrolled count only while a seat remains. It
// returns false without error when the section filled up concurrently.
func (r *SectionRepository) ReserveSeat(ctx context.Context, sectionID string) (bool, error) {
	const query = `UPDATE sections SET enrolled_count = enrolled_count + 1
WHERE id = $1 AND enrolled_count < capacity`
	result, err := r.db.ExecContext(ctx, query, sectionID)
	if err != nil {
		return false, fmt.Errorf("reserve seat: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reserve seat result: %w", err)
	}
	return affected == 1, nil
}

// ReleaseSeat decrements the enrolled count, never below zero.
func (r *SectionRepository) ReleaseSeat(ctx context.Context, sectionID string) error {
	const query = `UPDATE sections SET enrolled_count = enrolled_count - 1
WHERE id = $1 AND enrolled_count > 0`
	if _, err := r.db.ExecContext(ctx, query, sectionID); err != nil {
		return fmt.Errorf("release seat: %w", err)
	}
	return nil
}

// OverrideCapacity sets a new capacity for a section. Lowering capacity
// below the current enrolled count is rejected at the database layer.
func (r *SectionRepository) OverrideCapacity(ctx context.Context, sectionID string, capacity int) (bool, error) {
	const query = `UPDATE sections SET capacity = $2
WHERE id = $1 AND $2 >= enrolled_count`
	result, err := r.db.ExecContext(ctx, query, sectionID, capacity)
	if err != nil {
		return false, fmt.Errorf("override capacity: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("override capacity result: %w", err)
	}
	return affected == 1, nil
}

// ListByTerm returns section fill data for a term, used by reports.
func (r *SectionRepository) ListByTerm(ctx context.Context, termID string) ([]models.SectionDetail, error) {
	query := fmt.Sprintf(`SELECT %s FROM sections s JOIN courses c ON c.id = s.course_id
WHERE s.term_id = $1 ORDER BY c.code, s.section_code`, sectionDetailColumns)

	rows := make([]sectionDetailRow, 0)
	if err := r.db.SelectContext(ctx, &rows, query, termID); err != nil {
		return nil, fmt.Errorf("list sections by term: %w", err)
	}
	details := make([]models.SectionDetail, 0, len(rows))
	for _, row := range rows {
		details = append(details, row.toDetail())
	}
	return details, nil
}
