package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"

	"go.uber.org/zap"

	"github.com/galleon/clash-of-courses/internal/models"
	appErrors "github.com/galleon/clash-of-courses/pkg/errors"
)

type scheduleStudentStore interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type scheduleEnrollmentStore interface {
	ListActiveByStudent(ctx context.Context, studentID, termID string) ([]models.EnrollmentDetail, error)
}

// ScheduleEntry is one meeting on a student's weekly grid, flattened for
// clients that render a timetable.
type ScheduleEntry struct {
	CourseCode  string                 `json:"course_code"`
	CourseTitle string                 `json:"course_title"`
	SectionCode string                 `json:"section_code"`
	Instructor  string                 `json:"instructor"`
	Activity    models.MeetingActivity `json:"activity"`
	DayOfWeek   int                    `json:"day_of_week"`
	StartMin    int                    `json:"start_min"`
	EndMin      int                    `json:"end_min"`
	Room        string                 `json:"room"`
}

// WeeklySchedule is a student's current timetable plus its credit load.
type WeeklySchedule struct {
	StudentID    string          `json:"student_id"`
	TermID       string          `json:"term_id"`
	TotalCredits int             `json:"total_credits"`
	Entries      []ScheduleEntry `json:"entries"`
}

// ScheduleService assembles weekly schedules from active enrollments.
type ScheduleService struct {
	students    scheduleStudentStore
	enrollments scheduleEnrollmentStore
	logger      *zap.Logger
}

// NewScheduleService constructs the service.
func NewScheduleService(students scheduleStudentStore, enrollments scheduleEnrollmentStore, logger *zap.Logger) *ScheduleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{students: students, enrollments: enrollments, logger: logger}
}

// CurrentSchedule returns the student's registered meetings for their
// active term, ordered by day then start time.
func (s *ScheduleService) CurrentSchedule(ctx context.Context, studentID string) (*WeeklySchedule, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	details, err := s.enrollments.ListActiveByStudent(ctx, studentID, student.ActiveTermID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollments")
	}

	schedule := &WeeklySchedule{
		StudentID: studentID,
		TermID:    student.ActiveTermID,
		Entries:   make([]ScheduleEntry, 0),
	}
	for _, d := range details {
		schedule.TotalCredits += d.Course.Credits
		for _, m := range d.Meetings {
			schedule.Entries = append(schedule.Entries, ScheduleEntry{
				CourseCode:  d.Course.Code,
				CourseTitle: d.Course.Title,
				SectionCode: d.Section.SectionCode,
				Instructor:  d.Section.Instructor,
				Activity:    m.Activity,
				DayOfWeek:   m.DayOfWeek,
				StartMin:    m.StartMin,
				EndMin:      m.EndMin,
				Room:        m.Room,
			})
		}
	}
	sort.SliceStable(schedule.Entries, func(i, j int) bool {
		if schedule.Entries[i].DayOfWeek != schedule.Entries[j].DayOfWeek {
			return schedule.Entries[i].DayOfWeek < schedule.Entries[j].DayOfWeek
		}
		return schedule.Entries[i].StartMin < schedule.Entries[j].StartMin
	})
	return schedule, nil
}
