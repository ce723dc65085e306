package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/galleon/clash-of-courses/internal/dto"
	"github.com/galleon/clash-of-courses/internal/models"
	"github.com/galleon/clash-of-courses/pkg/config"
	appErrors "github.com/galleon/clash-of-courses/pkg/errors"
	"github.com/galleon/clash-of-courses/pkg/jobs"
)

type stubStudentStore struct {
	student   models.Student
	completed []string
}

func (s *stubStudentStore) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if id != s.student.ID {
		return nil, sql.ErrNoRows
	}
	st := s.student
	return &st, nil
}

func (s *stubStudentStore) ListCompletedCourseIDs(ctx context.Context, studentID string) ([]string, error) {
	return s.completed, nil
}

type stubCourseStore struct {
	prereqs map[string][]models.CoursePrerequisite
}

func (s *stubCourseStore) ListPrerequisites(ctx context.Context, courseID string) ([]models.CoursePrerequisite, error) {
	return s.prereqs[courseID], nil
}

type stubSectionStore struct {
	details  map[string]models.SectionDetail
	siblings []models.SectionDetail

	seatDenied bool
	reserved   []string
	released   []string
}

func (s *stubSectionStore) FindDetailByID(ctx context.Context, id string) (*models.SectionDetail, error) {
	detail, ok := s.details[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &detail, nil
}

func (s *stubSectionStore) ListSiblings(ctx context.Context, courseID, termID, excludeID string) ([]models.SectionDetail, error) {
	return s.siblings, nil
}

func (s *stubSectionStore) ReserveSeat(ctx context.Context, sectionID string) (bool, error) {
	if s.seatDenied {
		return false, nil
	}
	s.reserved = append(s.reserved, sectionID)
	return true, nil
}

func (s *stubSectionStore) ReleaseSeat(ctx context.Context, sectionID string) error {
	s.released = append(s.released, sectionID)
	return nil
}

type stubEnrollmentStore struct {
	schedule []models.EnrollmentDetail
	active   map[string]models.Enrollment

	created []models.Enrollment
	dropped []string
}

func (s *stubEnrollmentStore) ListActiveByStudent(ctx context.Context, studentID, termID string) ([]models.EnrollmentDetail, error) {
	return s.schedule, nil
}

func (s *stubEnrollmentStore) FindActive(ctx context.Context, studentID, sectionID string) (*models.Enrollment, error) {
	enrollment, ok := s.active[sectionID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &enrollment, nil
}

func (s *stubEnrollmentStore) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = "enr-new"
	}
	s.created = append(s.created, *enrollment)
	return nil
}

func (s *stubEnrollmentStore) Drop(ctx context.Context, id string, at time.Time) error {
	s.dropped = append(s.dropped, id)
	return nil
}

type stubRequestStore struct {
	requests  map[string]*models.RegistrationRequest
	decisions []models.Decision
	created   []*models.RegistrationRequest

	updateDenied bool
	createErr    error
}

func (s *stubRequestStore) Create(ctx context.Context, request *models.RegistrationRequest) error {
	if s.createErr != nil {
		return s.createErr
	}
	if s.requests == nil {
		s.requests = make(map[string]*models.RegistrationRequest)
	}
	s.requests[request.ID] = request
	s.created = append(s.created, request)
	return nil
}

func (s *stubRequestStore) GetByID(ctx context.Context, id string) (*models.RegistrationRequest, error) {
	request, ok := s.requests[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *request
	return &copied, nil
}

func (s *stubRequestStore) List(ctx context.Context, filter models.RequestFilter) ([]models.RegistrationRequest, int, error) {
	out := make([]models.RegistrationRequest, 0, len(s.requests))
	for _, r := range s.requests {
		out = append(out, *r)
	}
	return out, len(out), nil
}

func (s *stubRequestStore) UpdateState(ctx context.Context, id string, from, to models.RequestState, updatedAt time.Time) (bool, error) {
	if s.updateDenied {
		return false, nil
	}
	request, ok := s.requests[id]
	if !ok || request.State != from {
		return false, nil
	}
	request.State = to
	return true, nil
}

func (s *stubRequestStore) AppendDecision(ctx context.Context, decision *models.Decision) error {
	s.decisions = append(s.decisions, *decision)
	return nil
}

type stubAudit struct {
	entries []models.AuditLog
}

func (s *stubAudit) Create(ctx context.Context, entry *models.AuditLog) error {
	s.entries = append(s.entries, *entry)
	return nil
}

type stubNotifier struct {
	jobs []jobs.Job
}

func (s *stubNotifier) Enqueue(job jobs.Job) error {
	s.jobs = append(s.jobs, job)
	return nil
}

type fixture struct {
	students    *stubStudentStore
	courses     *stubCourseStore
	sections    *stubSectionStore
	enrollments *stubEnrollmentStore
	requests    *stubRequestStore
	audit       *stubAudit
	notify      *stubNotifier
	svc         *RegistrationService
}

func meeting(id, sectionID string, day, start, end int) models.Meeting {
	return models.Meeting{ID: id, SectionID: sectionID, Activity: models.ActivityLecture, DayOfWeek: day, StartMin: start, EndMin: end, Room: "B-201"}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		students: &stubStudentStore{
			student: models.Student{
				ID:              "stu-1",
				FullName:        "Jordan Perez",
				Standing:        models.StandingRegular,
				FinancialStatus: models.FinancialClear,
				ActiveTermID:    "term-1",
			},
		},
		courses:     &stubCourseStore{prereqs: map[string][]models.CoursePrerequisite{}},
		sections:    &stubSectionStore{details: map[string]models.SectionDetail{}},
		enrollments: &stubEnrollmentStore{active: map[string]models.Enrollment{}},
		requests:    &stubRequestStore{requests: map[string]*models.RegistrationRequest{}},
		audit:       &stubAudit{},
		notify:      &stubNotifier{},
	}
	f.svc = NewRegistrationService(
		f.students, f.courses, f.sections, f.enrollments, f.requests, f.audit,
		config.RegistrationConfig{MaxCreditsPerTerm: 18, AutoResolveConflicts: true},
		zap.NewNop(),
		WithNotifier(f.notify),
	)
	return f
}

func (f *fixture) addSection(id, courseID, code string, capacity, enrolled int, meetings ...models.Meeting) {
	f.sections.details[id] = models.SectionDetail{
		Section:  models.Section{ID: id, CourseID: courseID, TermID: "term-1", SectionCode: code, Instructor: "Dr. Ellis", Capacity: capacity, EnrolledCount: enrolled},
		Course:   models.Course{ID: courseID, Code: "CS201", Title: "Data Structures", Credits: 3, Level: 200},
		Meetings: meetings,
	}
}

func TestSubmitAddCommitsWhenEligible(t *testing.T) {
	f := newFixture(t)
	f.addSection("sec-1", "course-1", "A1", 30, 10, meeting("mtg-1", "sec-1", 0, 600, 675))

	resp, err := f.svc.Submit(context.Background(), dto.SubmitRequestRequest{
		StudentID: "stu-1", Type: models.RequestTypeAdd, ToSectionID: "sec-1",
	})
	require.NoError(t, err)
	require.Equal(t, models.StateApproved, resp.Request.State)
	require.False(t, resp.AutoResolved)
	require.Equal(t, []string{"sec-1"}, f.sections.reserved)
	require.Len(t, f.enrollments.created, 1)
	require.Len(t, f.requests.decisions, 1)
	require.Equal(t, models.ActorSystem, f.requests.decisions[0].ActorRole)
}

func TestSubmitAddReleasesSeatWhenRequestPersistFails(t *testing.T) {
	f := newFixture(t)
	f.addSection("sec-1", "course-1", "A1", 30, 10, meeting("mtg-1", "sec-1", 0, 600, 675))
	f.requests.createErr = errors.New("insert failed")

	_, err := f.svc.Submit(context.Background(), dto.SubmitRequestRequest{
		StudentID: "stu-1", Type: models.RequestTypeAdd, ToSectionID: "sec-1",
	})
	require.Error(t, err)
	require.Equal(t, []string{"sec-1"}, f.sections.reserved)
	require.Equal(t, []string{"sec-1"}, f.sections.released)
	require.Empty(t, f.enrollments.created)
	require.Empty(t, f.requests.decisions)
}

func TestSubmitAddAutoResolvesTimeConflict(t *testing.T) {
	f := newFixture(t)
	busy := meeting("mtg-busy", "sec-busy", 0, 630, 705)
	f.enrollments.schedule = []models.EnrollmentDetail{{
		Enrollment: models.Enrollment{ID: "enr-busy", SectionID: "sec-busy", Status: models.EnrollmentStatusRegistered},
		Section:    models.Section{ID: "sec-busy", CourseID: "course-9", TermID: "term-1"},
		Course:     models.Course{ID: "course-9", Code: "MATH150", Credits: 3},
		Meetings:   []models.Meeting{busy},
	}}
	f.addSection("sec-1", "course-1", "A1", 30, 10, meeting("mtg-1", "sec-1", 0, 600, 675))
	f.sections.siblings = []models.SectionDetail{{
		Section:  models.Section{ID: "sec-2", CourseID: "course-1", TermID: "term-1", SectionCode: "A2", Capacity: 30, EnrolledCount: 5},
		Course:   models.Course{ID: "course-1", Code: "CS201", Credits: 3},
		Meetings: []models.Meeting{meeting("mtg-2", "sec-2", 2, 600, 675)},
	}}

	resp, err := f.svc.Submit(context.Background(), dto.SubmitRequestRequest{
		StudentID: "stu-1", Type: models.RequestTypeAdd, ToSectionID: "sec-1",
	})
	require.NoError(t, err)
	require.True(t, resp.AutoResolved)
	require.Equal(t, "sec-2", resp.Alternative.Section.ID)
	require.Equal(t, models.StateApproved, resp.Request.State)
	require.Equal(t, []string{"sec-2"}, f.sections.reserved)
	require.NotEmpty(t, resp.Request.Violations)
}

func TestSubmitAddEscalatesMixedViolations(t *testing.T) {
	f := newFixture(t)
	f.courses.prereqs["course-1"] = []models.CoursePrerequisite{
		{CourseID: "course-1", ReqCourseID: "course-0", ReqCode: "ENGR101"},
	}
	f.addSection("sec-1", "course-1", "A1", 30, 10, meeting("mtg-1", "sec-1", 0, 600, 675))

	resp, err := f.svc.Submit(context.Background(), dto.SubmitRequestRequest{
		StudentID: "stu-1", Type: models.RequestTypeAdd, ToSectionID: "sec-1",
	})
	require.NoError(t, err)
	require.Equal(t, models.StateSubmitted, resp.Request.State)
	require.Empty(t, f.sections.reserved)
	require.Empty(t, f.enrollments.created)
	require.Len(t, f.notify.jobs, 1)
	require.Equal(t, "notify_advisor", f.notify.jobs[0].Type)
}

func TestSubmitAddFullSectionEscalates(t *testing.T) {
	f := newFixture(t)
	f.addSection("sec-1", "course-1", "A1", 30, 30, meeting("mtg-1", "sec-1", 0, 600, 675))

	resp, err := f.svc.Submit(context.Background(), dto.SubmitRequestRequest{
		StudentID: "stu-1", Type: models.RequestTypeAdd, ToSectionID: "sec-1",
	})
	require.NoError(t, err)
	require.Equal(t, models.StateSubmitted, resp.Request.State)
	require.False(t, resp.AutoResolved)
	require.Len(t, resp.Request.Violations, 1)
	require.Equal(t, models.RuleSectionFull, resp.Request.Violations[0].RuleCode)
	require.Empty(t, f.sections.reserved)
	require.Empty(t, f.enrollments.created)
	require.Len(t, f.notify.jobs, 1)
	require.Equal(t, "notify_advisor", f.notify.jobs[0].Type)
}

func TestSubmitAddHoldNotifiesDepartmentHead(t *testing.T) {
	f := newFixture(t)
	f.students.student.FinancialStatus = models.FinancialOwed
	f.addSection("sec-1", "course-1", "A1", 30, 10, meeting("mtg-1", "sec-1", 0, 600, 675))

	resp, err := f.svc.Submit(context.Background(), dto.SubmitRequestRequest{
		StudentID: "stu-1", Type: models.RequestTypeAdd, ToSectionID: "sec-1",
	})
	require.NoError(t, err)
	require.Equal(t, models.StateSubmitted, resp.Request.State)
	require.Len(t, f.notify.jobs, 1)
	require.Equal(t, "notify_department_head", f.notify.jobs[0].Type)
}

func TestSubmitDropAlwaysCommits(t *testing.T) {
	f := newFixture(t)
	f.enrollments.active["sec-1"] = models.Enrollment{ID: "enr-1", StudentID: "stu-1", SectionID: "sec-1", Status: models.EnrollmentStatusRegistered}

	resp, err := f.svc.Submit(context.Background(), dto.SubmitRequestRequest{
		StudentID: "stu-1", Type: models.RequestTypeDrop, FromSectionID: "sec-1",
	})
	require.NoError(t, err)
	require.Equal(t, models.StateApproved, resp.Request.State)
	require.Equal(t, []string{"enr-1"}, f.enrollments.dropped)
	require.Equal(t, []string{"sec-1"}, f.sections.released)
}

func TestSubmitDropWithoutEnrollment(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Submit(context.Background(), dto.SubmitRequestRequest{
		StudentID: "stu-1", Type: models.RequestTypeDrop, FromSectionID: "sec-1",
	})
	require.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestSubmitChangeSectionIgnoresLeftSection(t *testing.T) {
	f := newFixture(t)
	oldMeeting := meeting("mtg-old", "sec-old", 0, 600, 675)
	f.enrollments.active["sec-old"] = models.Enrollment{ID: "enr-old", StudentID: "stu-1", SectionID: "sec-old", Status: models.EnrollmentStatusRegistered}
	f.enrollments.schedule = []models.EnrollmentDetail{{
		Enrollment: models.Enrollment{ID: "enr-old", SectionID: "sec-old", Status: models.EnrollmentStatusRegistered},
		Section:    models.Section{ID: "sec-old", CourseID: "course-1", TermID: "term-1"},
		Course:     models.Course{ID: "course-1", Code: "CS201", Credits: 3},
		Meetings:   []models.Meeting{oldMeeting},
	}}
	// Same slot as the old section: only attachable because the old
	// section is excluded from the busy schedule.
	f.addSection("sec-new", "course-1", "A2", 30, 10, meeting("mtg-new", "sec-new", 0, 600, 675))

	resp, err := f.svc.Submit(context.Background(), dto.SubmitRequestRequest{
		StudentID: "stu-1", Type: models.RequestTypeChangeSection, FromSectionID: "sec-old", ToSectionID: "sec-new",
	})
	require.NoError(t, err)
	require.Equal(t, models.StateApproved, resp.Request.State)
	require.Equal(t, []string{"enr-old"}, f.enrollments.dropped)
	require.Contains(t, f.sections.reserved, "sec-new")
	require.Contains(t, f.sections.released, "sec-old")
}

func TestDecideApproveCommitsWithCapacityRecheck(t *testing.T) {
	f := newFixture(t)
	to := "sec-1"
	f.requests.requests["req-1"] = &models.RegistrationRequest{
		ID: "req-1", StudentID: "stu-1", Type: models.RequestTypeAdd, ToSectionID: &to, State: models.StateSubmitted,
	}

	request, err := f.svc.Decide(context.Background(), "req-1", Actor{UserID: "adv-1", Role: models.RoleAdvisor}, dto.DecideRequestRequest{
		Action: models.ActionApprove, Rationale: "cleared with the student",
	})
	require.NoError(t, err)
	require.Equal(t, models.StateApproved, request.State)
	require.Equal(t, []string{"sec-1"}, f.sections.reserved)
	require.Len(t, f.enrollments.created, 1)
}

func TestDecideApproveSurfacesSeatRace(t *testing.T) {
	f := newFixture(t)
	f.sections.seatDenied = true
	to := "sec-1"
	f.requests.requests["req-1"] = &models.RegistrationRequest{
		ID: "req-1", StudentID: "stu-1", Type: models.RequestTypeAdd, ToSectionID: &to, State: models.StateSubmitted,
	}

	_, err := f.svc.Decide(context.Background(), "req-1", Actor{UserID: "adv-1", Role: models.RoleAdvisor}, dto.DecideRequestRequest{
		Action: models.ActionApprove,
	})
	require.True(t, appErrors.Is(err, appErrors.ErrSectionFull))
}

func TestDecideIllegalTransition(t *testing.T) {
	f := newFixture(t)
	f.requests.requests["req-1"] = &models.RegistrationRequest{
		ID: "req-1", StudentID: "stu-1", Type: models.RequestTypeAdd, State: models.StateApproved,
	}

	_, err := f.svc.Decide(context.Background(), "req-1", Actor{UserID: "adv-1", Role: models.RoleAdvisor}, dto.DecideRequestRequest{
		Action: models.ActionApprove,
	})
	require.True(t, appErrors.Is(err, appErrors.ErrIllegalTransition))
}

func TestDecideReferNotifiesDepartmentHead(t *testing.T) {
	f := newFixture(t)
	f.requests.requests["req-1"] = &models.RegistrationRequest{
		ID: "req-1", StudentID: "stu-1", Type: models.RequestTypeAdd, State: models.StateSubmitted,
	}

	request, err := f.svc.Decide(context.Background(), "req-1", Actor{UserID: "adv-1", Role: models.RoleAdvisor}, dto.DecideRequestRequest{
		Action: models.ActionRefer, Rationale: "needs a hold override",
	})
	require.NoError(t, err)
	require.Equal(t, models.StateDeptReview, request.State)
	require.Len(t, f.notify.jobs, 1)
	require.Equal(t, "notify_department_head", f.notify.jobs[0].Type)
}

func TestDecideStudentCannotActOnForeignRequest(t *testing.T) {
	f := newFixture(t)
	f.requests.requests["req-1"] = &models.RegistrationRequest{
		ID: "req-1", StudentID: "stu-other", Type: models.RequestTypeAdd, State: models.StateSubmitted,
	}

	_, err := f.svc.Decide(context.Background(), "req-1", Actor{UserID: "user-1", Role: models.RoleStudent, StudentID: "stu-1"}, dto.DecideRequestRequest{
		Action: models.ActionCancel,
	})
	require.True(t, appErrors.Is(err, appErrors.ErrForbidden))
	require.Equal(t, models.StateSubmitted, f.requests.requests["req-1"].State)
	require.Empty(t, f.requests.decisions)
}

func TestDecideStudentCancelsOwnRequest(t *testing.T) {
	f := newFixture(t)
	f.requests.requests["req-1"] = &models.RegistrationRequest{
		ID: "req-1", StudentID: "stu-1", Type: models.RequestTypeAdd, State: models.StateSubmitted,
	}

	request, err := f.svc.Decide(context.Background(), "req-1", Actor{UserID: "user-1", Role: models.RoleStudent, StudentID: "stu-1"}, dto.DecideRequestRequest{
		Action: models.ActionCancel,
	})
	require.NoError(t, err)
	require.Equal(t, models.StateCancelled, request.State)
}

func TestDecideConcurrentUpdateRejected(t *testing.T) {
	f := newFixture(t)
	f.requests.requests["req-1"] = &models.RegistrationRequest{
		ID: "req-1", StudentID: "stu-1", Type: models.RequestTypeAdd, State: models.StateSubmitted,
	}
	f.requests.updateDenied = true

	_, err := f.svc.Decide(context.Background(), "req-1", Actor{UserID: "adv-1", Role: models.RoleAdvisor}, dto.DecideRequestRequest{
		Action: models.ActionReject,
	})
	require.True(t, appErrors.Is(err, appErrors.ErrConflict))
}

func TestEvaluateSuggestsAlternativeForConflicts(t *testing.T) {
	f := newFixture(t)
	busy := meeting("mtg-busy", "sec-busy", 0, 630, 705)
	f.enrollments.schedule = []models.EnrollmentDetail{{
		Enrollment: models.Enrollment{ID: "enr-busy", SectionID: "sec-busy", Status: models.EnrollmentStatusRegistered},
		Section:    models.Section{ID: "sec-busy", CourseID: "course-9", TermID: "term-1"},
		Course:     models.Course{ID: "course-9", Code: "MATH150", Credits: 3},
		Meetings:   []models.Meeting{busy},
	}}
	f.addSection("sec-1", "course-1", "A1", 30, 10, meeting("mtg-1", "sec-1", 0, 600, 675))
	f.sections.siblings = []models.SectionDetail{{
		Section:  models.Section{ID: "sec-2", CourseID: "course-1", TermID: "term-1", SectionCode: "A2", Capacity: 30, EnrolledCount: 5},
		Course:   models.Course{ID: "course-1", Code: "CS201", Credits: 3},
		Meetings: []models.Meeting{meeting("mtg-2", "sec-2", 2, 600, 675)},
	}}

	resp, err := f.svc.Evaluate(context.Background(), dto.EvaluateRequest{StudentID: "stu-1", SectionID: "sec-1"})
	require.NoError(t, err)
	require.False(t, resp.Attachable)
	require.NotNil(t, resp.Alternative)
	require.Equal(t, "sec-2", resp.Alternative.Section.ID)
}
