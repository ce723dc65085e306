package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/galleon/clash-of-courses/internal/dto"
	"github.com/galleon/clash-of-courses/internal/middleware"
	"github.com/galleon/clash-of-courses/internal/models"
	"github.com/galleon/clash-of-courses/internal/service"
	"github.com/galleon/clash-of-courses/pkg/config"
)

type studentStoreFake struct{ student models.Student }

func (f *studentStoreFake) FindByID(ctx context.Context, id string) (*models.Student, error) {
	st := f.student
	return &st, nil
}

func (f *studentStoreFake) ListCompletedCourseIDs(ctx context.Context, studentID string) ([]string, error) {
	return nil, nil
}

type courseStoreFake struct{}

func (f *courseStoreFake) ListPrerequisites(ctx context.Context, courseID string) ([]models.CoursePrerequisite, error) {
	return nil, nil
}

type sectionStoreFake struct{ detail models.SectionDetail }

func (f *sectionStoreFake) FindDetailByID(ctx context.Context, id string) (*models.SectionDetail, error) {
	detail := f.detail
	return &detail, nil
}

func (f *sectionStoreFake) ListSiblings(ctx context.Context, courseID, termID, excludeID string) ([]models.SectionDetail, error) {
	return nil, nil
}

func (f *sectionStoreFake) ReserveSeat(ctx context.Context, sectionID string) (bool, error) {
	return true, nil
}

func (f *sectionStoreFake) ReleaseSeat(ctx context.Context, sectionID string) error { return nil }

type enrollmentStoreFake struct{}

func (f *enrollmentStoreFake) ListActiveByStudent(ctx context.Context, studentID, termID string) ([]models.EnrollmentDetail, error) {
	return nil, nil
}

func (f *enrollmentStoreFake) FindActive(ctx context.Context, studentID, sectionID string) (*models.Enrollment, error) {
	return nil, sql.ErrNoRows
}

func (f *enrollmentStoreFake) Create(ctx context.Context, enrollment *models.Enrollment) error {
	return nil
}

func (f *enrollmentStoreFake) Drop(ctx context.Context, id string, at time.Time) error { return nil }

type requestStoreFake struct{}

func (f *requestStoreFake) Create(ctx context.Context, request *models.RegistrationRequest) error {
	return nil
}

func (f *requestStoreFake) GetByID(ctx context.Context, id string) (*models.RegistrationRequest, error) {
	return nil, sql.ErrNoRows
}

func (f *requestStoreFake) List(ctx context.Context, filter models.RequestFilter) ([]models.RegistrationRequest, int, error) {
	return nil, 0, nil
}

func (f *requestStoreFake) UpdateState(ctx context.Context, id string, from, to models.RequestState, updatedAt time.Time) (bool, error) {
	return true, nil
}

func (f *requestStoreFake) AppendDecision(ctx context.Context, decision *models.Decision) error {
	return nil
}

func newRegistrationHandler() *RegistrationHandler {
	svc := service.NewRegistrationService(
		&studentStoreFake{student: models.Student{
			ID: "stu-1", Standing: models.StandingRegular, FinancialStatus: models.FinancialClear, ActiveTermID: "term-1",
		}},
		&courseStoreFake{},
		&sectionStoreFake{detail: models.SectionDetail{
			Section: models.Section{ID: "sec-1", CourseID: "course-1", TermID: "term-1", Capacity: 30},
			Course:  models.Course{ID: "course-1", Code: "CS201", Credits: 3},
			Meetings: []models.Meeting{
				{ID: "mtg-1", SectionID: "sec-1", Activity: models.ActivityLecture, DayOfWeek: 0, StartMin: 600, EndMin: 675},
			},
		}},
		&enrollmentStoreFake{},
		&requestStoreFake{},
		nil,
		config.RegistrationConfig{MaxCreditsPerTerm: 18},
		nil,
	)
	return NewRegistrationHandler(svc)
}

func TestRegistrationHandlerSubmitEligible(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newRegistrationHandler()

	payload, _ := json.Marshal(dto.SubmitRequestRequest{StudentID: "stu-1", Type: models.RequestTypeAdd, ToSectionID: "sec-1"})
	c, w := newGinContext(http.MethodPost, "/registration/requests", payload)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "user-1", Role: models.RoleStudent, StudentID: "stu-1"})

	handler.Submit(c)
	require.Equal(t, http.StatusCreated, w.Code)
}

func TestRegistrationHandlerSubmitForeignStudentForbidden(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newRegistrationHandler()

	payload, _ := json.Marshal(dto.SubmitRequestRequest{StudentID: "stu-2", Type: models.RequestTypeAdd, ToSectionID: "sec-1"})
	c, w := newGinContext(http.MethodPost, "/registration/requests", payload)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "user-1", Role: models.RoleStudent, StudentID: "stu-1"})

	handler.Submit(c)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestRegistrationHandlerEvaluate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newRegistrationHandler()

	payload, _ := json.Marshal(dto.EvaluateRequest{StudentID: "stu-1", SectionID: "sec-1"})
	c, w := newGinContext(http.MethodPost, "/registration/evaluate", payload)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "user-2", Role: models.RoleAdvisor})

	handler.Evaluate(c)
	require.Equal(t, http.StatusOK, w.Code)
}
