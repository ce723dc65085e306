package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/galleon/clash-of-courses/internal/models"
)

func newEnrollmentRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestEnrollmentRepositoryListActiveByStudent(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	enrollmentRows := sqlmock.NewRows([]string{
		"id", "student_id", "section_id", "status", "enrolled_at", "dropped_at",
		"section_course_id", "term_id", "section_code", "instructor", "capacity", "enrolled_count",
		"course_code", "course_title", "course_credits", "course_level",
	}).AddRow("enr-1", "stu-1", "sec-1", models.EnrollmentStatusRegistered, time.Now(), nil,
		"course-1", "term-1", "A1", "Dr. Ellis", 30, 12, "CS101", "Intro to Computing", 3, 100)
	mock.ExpectQuery(regexp.QuoteMeta("FROM enrollments e")).
		WithArgs("stu-1", models.EnrollmentStatusRegistered, "term-1").
		WillReturnRows(enrollmentRows)

	meetingRows := sqlmock.NewRows([]string{"id", "section_id", "activity", "day_of_week", "start_min", "end_min", "room"}).
		AddRow("mtg-1", "sec-1", "LEC", 0, 600, 675, "B-201").
		AddRow("mtg-2", "sec-1", "LAB", 2, 840, 950, "L-3")
	mock.ExpectQuery(regexp.QuoteMeta("FROM meetings WHERE section_id = ANY($1)")).
		WillReturnRows(meetingRows)

	details, err := repo.ListActiveByStudent(context.Background(), "stu-1", "term-1")
	require.NoError(t, err)
	require.Len(t, details, 1)
	require.Equal(t, "CS101", details[0].Course.Code)
	require.Len(t, details[0].Meetings, 2)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryDrop(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE enrollments SET status = $2, dropped_at = $3 WHERE id = $1")).
		WithArgs("enr-1", models.EnrollmentStatusDropped, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Drop(context.Background(), "enr-1", time.Now()))
	require.NoError(t, mock.ExpectationsWereMet())
}
