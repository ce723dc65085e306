package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func newSectionRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestSectionRepositoryFindDetailByID(t *testing.T) {
	db, mock, cleanup := newSectionRepoMock(t)
	defer cleanup()
	repo := NewSectionRepository(db)

	sectionRows := sqlmock.NewRows([]string{
		"id", "course_id", "term_id", "section_code", "instructor", "capacity", "enrolled_count",
		"course_code", "course_title", "course_credits", "course_level",
	}).AddRow("sec-1", "course-1", "term-1", "A1", "Dr. Ellis", 30, 12, "CS101", "Intro to Computing", 3, 100)
	mock.ExpectQuery(regexp.QuoteMeta("FROM sections s JOIN courses c ON c.id = s.course_id WHERE s.id = $1")).
		WithArgs("sec-1").
		WillReturnRows(sectionRows)

	meetingRows := sqlmock.NewRows([]string{"id", "section_id", "activity", "day_of_week", "start_min", "end_min", "room"}).
		AddRow("mtg-1", "sec-1", "LEC", 0, 600, 675, "B-201")
	mock.ExpectQuery(regexp.QuoteMeta("FROM meetings WHERE section_id = ANY($1)")).
		WillReturnRows(meetingRows)

	detail, err := repo.FindDetailByID(context.Background(), "sec-1")
	require.NoError(t, err)
	require.Equal(t, "CS101", detail.Course.Code)
	require.Len(t, detail.Meetings, 1)
	require.Equal(t, 600, detail.Meetings[0].StartMin)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSectionRepositoryReserveSeat(t *testing.T) {
	db, mock, cleanup := newSectionRepoMock(t)
	defer cleanup()
	repo := NewSectionRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE sections SET enrolled_count = enrolled_count + 1")).
		WithArgs("sec-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	reserved, err := repo.ReserveSeat(context.Background(), "sec-1")
	require.NoError(t, err)
	require.True(t, reserved)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSectionRepositoryReserveSeatFull(t *testing.T) {
	db, mock, cleanup := newSectionRepoMock(t)
	defer cleanup()
	repo := NewSectionRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE sections SET enrolled_count = enrolled_count + 1")).
		WithArgs("sec-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	reserved, err := repo.ReserveSeat(context.Background(), "sec-1")
	require.NoError(t, err)
	require.False(t, reserved)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSectionRepositoryOverrideCapacityBelowEnrolled(t *testing.T) {
	db, mock, cleanup := newSectionRepoMock(t)
	defer cleanup()
	repo := NewSectionRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE sections SET capacity = $2")).
		WithArgs("sec-1", 5).
		WillReturnResult(sqlmock.NewResult(0, 0))

	applied, err := repo.OverrideCapacity(context.Background(), "sec-1", 5)
	require.NoError(t, err)
	require.False(t, applied)
	require.NoError(t, mock.ExpectationsWereMet())
}
