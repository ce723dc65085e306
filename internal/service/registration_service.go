package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/galleon/clash-of-courses/internal/dto"
	"github.com/galleon/clash-of-courses/internal/engine"
	"github.com/galleon/clash-of-courses/internal/models"
	"github.com/galleon/clash-of-courses/pkg/config"
	appErrors "github.com/galleon/clash-of-courses/pkg/errors"
	"github.com/galleon/clash-of-courses/pkg/jobs"
)

type studentStore interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	ListCompletedCourseIDs(ctx context.Context, studentID string) ([]string, error)
}

type courseStore interface {
	ListPrerequisites(ctx context.Context, courseID string) ([]models.CoursePrerequisite, error)
}

type sectionStore interface {
	FindDetailByID(ctx context.Context, id string) (*models.SectionDetail, error)
	ListSiblings(ctx context.Context, courseID, termID, excludeID string) ([]models.SectionDetail, error)
	ReserveSeat(ctx context.Context, sectionID string) (bool, error)
	ReleaseSeat(ctx context.Context, sectionID string) error
}

type enrollmentStore interface {
	ListActiveByStudent(ctx context.Context, studentID, termID string) ([]models.EnrollmentDetail, error)
	FindActive(ctx context.Context, studentID, sectionID string) (*models.Enrollment, error)
	Create(ctx context.Context, enrollment *models.Enrollment) error
	Drop(ctx context.Context, id string, at time.Time) error
}

type requestStore interface {
	Create(ctx context.Context, request *models.RegistrationRequest) error
	GetByID(ctx context.Context, id string) (*models.RegistrationRequest, error)
	List(ctx context.Context, filter models.RequestFilter) ([]models.RegistrationRequest, int, error)
	UpdateState(ctx context.Context, id string, from, to models.RequestState, updatedAt time.Time) (bool, error)
	AppendDecision(ctx context.Context, decision *models.Decision) error
}

type auditLogger interface {
	Create(ctx context.Context, entry *models.AuditLog) error
}

type notifier interface {
	Enqueue(job jobs.Job) error
}

// EngineObserver receives engine outcome signals for metrics collection.
type EngineObserver interface {
	ObserveEvaluation(attachable bool)
	ObserveViolation(code models.RuleCode)
	ObserveAutoResolve(resolved bool)
}

type nopObserver struct{}

func (nopObserver) ObserveEvaluation(bool)           {}
func (nopObserver) ObserveViolation(models.RuleCode) {}
func (nopObserver) ObserveAutoResolve(bool)          {}

// RegistrationService runs the eligibility engine against live data and
// drives the request workflow. The engine stays pure; every read and
// write happens here.
type RegistrationService struct {
	students    studentStore
	courses     courseStore
	sections    sectionStore
	enrollments enrollmentStore
	requests    requestStore
	audit       auditLogger
	notify      notifier
	observer    EngineObserver
	cfg         config.RegistrationConfig
	validator   *validator.Validate
	logger      *zap.Logger
}

// RegistrationServiceOption configures the service.
type RegistrationServiceOption func(*RegistrationService)

// WithNotifier routes workflow notifications through the given queue.
func WithNotifier(n notifier) RegistrationServiceOption {
	return func(s *RegistrationService) {
		if n != nil {
			s.notify = n
		}
	}
}

// WithEngineObserver attaches a metrics observer.
func WithEngineObserver(o EngineObserver) RegistrationServiceOption {
	return func(s *RegistrationService) {
		if o != nil {
			s.observer = o
		}
	}
}

// NewRegistrationService constructs the service with defaults.
func NewRegistrationService(
	students studentStore,
	courses courseStore,
	sections sectionStore,
	enrollments enrollmentStore,
	requests requestStore,
	audit auditLogger,
	cfg config.RegistrationConfig,
	logger *zap.Logger,
	opts ...RegistrationServiceOption,
) *RegistrationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxCreditsPerTerm <= 0 {
		cfg.MaxCreditsPerTerm = 18
	}
	svc := &RegistrationService{
		students:    students,
		courses:     courses,
		sections:    sections,
		enrollments: enrollments,
		requests:    requests,
		audit:       audit,
		observer:    nopObserver{},
		cfg:         cfg,
		validator:   validator.New(),
		logger:      logger,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// evaluation bundles an engine run with the data it was computed from, so
// commit paths can reuse the loaded snapshot.
type evaluation struct {
	student *models.Student
	target  *models.SectionDetail
	input   engine.EligibilityInput
	result  engine.Result
}

// Evaluate runs the full rule set for a student against a target section
// and reports every violation found. When only time conflicts block the
// attachment, a conflict-free sibling section is suggested.
func (s *RegistrationService) Evaluate(ctx context.Context, req dto.EvaluateRequest) (*dto.EvaluationResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	eval, err := s.evaluate(ctx, req.StudentID, req.SectionID, "")
	if err != nil {
		return nil, err
	}

	resp := &dto.EvaluationResponse{
		Attachable: eval.result.Eligible,
		Violations: eval.result.Violations,
	}
	if !eval.result.Eligible && eval.result.ConflictOnly() {
		if alt, found := s.findAlternative(ctx, eval); found {
			resp.Alternative = alt
		}
	}
	return resp, nil
}

// Submit processes a registration request. Eligible ADD and
// CHANGE_SECTION requests commit immediately with a synthetic system
// approval; requests blocked only by time conflicts are auto-resolved
// onto a sibling section when enabled; everything else lands in the
// review workflow. DROP requests always commit.
func (s *RegistrationService) Submit(ctx context.Context, req dto.SubmitRequestRequest) (*dto.SubmitRequestResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	switch req.Type {
	case models.RequestTypeAdd:
		if req.ToSectionID == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "to_section_id is required for ADD")
		}
		return s.submitAdd(ctx, req)
	case models.RequestTypeDrop:
		if req.FromSectionID == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "from_section_id is required for DROP")
		}
		return s.submitDrop(ctx, req)
	case models.RequestTypeChangeSection:
		if req.FromSectionID == "" || req.ToSectionID == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "from_section_id and to_section_id are required for CHANGE_SECTION")
		}
		return s.submitChange(ctx, req)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported request type %q", req.Type))
	}
}

func (s *RegistrationService) submitAdd(ctx context.Context, req dto.SubmitRequestRequest) (*dto.SubmitRequestResponse, error) {
	eval, err := s.evaluate(ctx, req.StudentID, req.ToSectionID, "")
	if err != nil {
		return nil, err
	}

	request := s.newRequest(req)

	if eval.result.Eligible {
		// The request and its system decision are persisted while the seat
		// is held but before the enrollment exists, so a storage failure at
		// any point leaves no enrollment without a request on record.
		if err := s.reserveSeat(ctx, eval.target.Section.ID); err != nil {
			return nil, err
		}
		if err := s.approveSystem(ctx, request, "all checks passed"); err != nil {
			_ = s.sections.ReleaseSeat(ctx, eval.target.Section.ID)
			return nil, err
		}
		if err := s.finishAttachment(ctx, req.StudentID, eval.target.Section.ID, ""); err != nil {
			return nil, err
		}
		s.emitAudit(ctx, req.StudentID, models.AuditActionEnrollmentCommit, "section", eval.target.Section.ID, nil)
		return &dto.SubmitRequestResponse{Request: request}, nil
	}

	if s.cfg.AutoResolveConflicts && eval.result.ConflictOnly() {
		if alt, found := s.findAlternative(ctx, eval); found {
			if err := s.reserveSeat(ctx, alt.Section.ID); err != nil {
				return nil, err
			}
			rationale := fmt.Sprintf("time conflict auto-resolved onto section %s", alt.Section.SectionCode)
			request.Violations = eval.result.Violations
			if err := s.approveSystem(ctx, request, rationale); err != nil {
				_ = s.sections.ReleaseSeat(ctx, alt.Section.ID)
				return nil, err
			}
			if err := s.finishAttachment(ctx, req.StudentID, alt.Section.ID, ""); err != nil {
				return nil, err
			}
			s.observer.ObserveAutoResolve(true)
			s.emitAudit(ctx, req.StudentID, models.AuditActionAutoResolve, "request", request.ID, map[string]interface{}{
				"requested_section": eval.target.Section.ID,
				"resolved_section":  alt.Section.ID,
			})
			return &dto.SubmitRequestResponse{Request: request, AutoResolved: true, Alternative: alt}, nil
		}
		s.observer.ObserveAutoResolve(false)
	}

	request.Violations = eval.result.Violations
	if err := s.requests.Create(ctx, request); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store request")
	}
	s.notifyReviewers(request, eval.result.Violations)
	s.emitAudit(ctx, req.StudentID, models.AuditActionRequestSubmit, "request", request.ID, nil)
	return &dto.SubmitRequestResponse{Request: request}, nil
}

func (s *RegistrationService) submitDrop(ctx context.Context, req dto.SubmitRequestRequest) (*dto.SubmitRequestResponse, error) {
	enrollment, err := s.enrollments.FindActive(ctx, req.StudentID, req.FromSectionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no active enrollment in that section")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}

	now := time.Now().UTC()
	if err := s.enrollments.Drop(ctx, enrollment.ID, now); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to drop enrollment")
	}
	if err := s.sections.ReleaseSeat(ctx, req.FromSectionID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to release seat")
	}

	request := s.newRequest(req)
	if err := s.approveSystem(ctx, request, "drop is always permitted"); err != nil {
		return nil, err
	}
	s.emitAudit(ctx, req.StudentID, models.AuditActionEnrollmentDrop, "section", req.FromSectionID, nil)
	return &dto.SubmitRequestResponse{Request: request}, nil
}

func (s *RegistrationService) submitChange(ctx context.Context, req dto.SubmitRequestRequest) (*dto.SubmitRequestResponse, error) {
	if _, err := s.enrollments.FindActive(ctx, req.StudentID, req.FromSectionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no active enrollment in the section being changed")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}

	// The section being left does not count against credits or conflicts.
	eval, err := s.evaluate(ctx, req.StudentID, req.ToSectionID, req.FromSectionID)
	if err != nil {
		return nil, err
	}

	request := s.newRequest(req)

	if eval.result.Eligible {
		if err := s.reserveSeat(ctx, eval.target.Section.ID); err != nil {
			return nil, err
		}
		if err := s.approveSystem(ctx, request, "all checks passed"); err != nil {
			_ = s.sections.ReleaseSeat(ctx, eval.target.Section.ID)
			return nil, err
		}
		if err := s.finishAttachment(ctx, req.StudentID, eval.target.Section.ID, req.FromSectionID); err != nil {
			return nil, err
		}
		s.emitAudit(ctx, req.StudentID, models.AuditActionEnrollmentCommit, "section", eval.target.Section.ID, nil)
		return &dto.SubmitRequestResponse{Request: request}, nil
	}

	request.Violations = eval.result.Violations
	if err := s.requests.Create(ctx, request); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store request")
	}
	s.notifyReviewers(request, eval.result.Violations)
	s.emitAudit(ctx, req.StudentID, models.AuditActionRequestSubmit, "request", request.ID, nil)
	return &dto.SubmitRequestResponse{Request: request}, nil
}

// Actor identifies the authenticated caller applying a decision.
// StudentID is set only for student accounts and scopes cancellation to
// the student's own requests.
type Actor struct {
	UserID    string
	Role      models.UserRole
	StudentID string
}

// Decide applies a reviewer action to a pending request. The transition
// table decides legality; an approval of an ADD or CHANGE_SECTION request
// re-checks capacity at commit time because seats may have filled while
// the request waited.
func (s *RegistrationService) Decide(ctx context.Context, requestID string, actor Actor, req dto.DecideRequestRequest) (*models.RegistrationRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	request, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request")
	}

	actorRole := actor.Role.ActorRole()
	if actorRole == "" {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "role cannot act on requests")
	}
	if actor.Role == models.RoleStudent && request.StudentID != actor.StudentID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "students may only act on their own requests")
	}

	prevState := request.State
	decision, err := engine.Decide(request, actorRole, actor.UserID, req.Action, req.Rationale)
	if err != nil {
		return nil, err
	}

	applied, err := s.requests.UpdateState(ctx, request.ID, prevState, request.State, request.UpdatedAt)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist transition")
	}
	if !applied {
		return nil, appErrors.Clone(appErrors.ErrConflict, "request was decided concurrently")
	}
	if err := s.requests.AppendDecision(ctx, &decision); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record decision")
	}
	request.Decisions = append(request.Decisions, decision)

	if request.State == models.StateApproved && req.Action == models.ActionApprove {
		if err := s.commitApproved(ctx, request); err != nil {
			return nil, err
		}
	}
	if req.Action == models.ActionRefer {
		s.notifyDepartmentHead(request)
	}

	s.emitAudit(ctx, actor.UserID, models.AuditActionRequestDecide, "request", request.ID, map[string]interface{}{
		"action": req.Action,
		"from":   prevState,
		"to":     request.State,
	})
	return request, nil
}

// GetRequest returns a request with its violations and decision log.
func (s *RegistrationService) GetRequest(ctx context.Context, id string) (*models.RegistrationRequest, error) {
	request, err := s.requests.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request")
	}
	return request, nil
}

// ListRequests returns requests matching the filter.
func (s *RegistrationService) ListRequests(ctx context.Context, filter models.RequestFilter) ([]models.RegistrationRequest, *models.Pagination, error) {
	requests, total, err := s.requests.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list requests")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 {
		pageSize = 20
	}
	return requests, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

func (s *RegistrationService) evaluate(ctx context.Context, studentID, sectionID, excludeSectionID string) (*evaluation, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	target, err := s.sections.FindDetailByID(ctx, sectionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
	}

	prereqs, err := s.courses.ListPrerequisites(ctx, target.Section.CourseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load prerequisites")
	}

	completed, err := s.students.ListCompletedCourseIDs(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load completed courses")
	}

	schedule, err := s.enrollments.ListActiveByStudent(ctx, studentID, target.Section.TermID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}
	if excludeSectionID != "" {
		filtered := schedule[:0]
		for _, d := range schedule {
			if d.Section.ID != excludeSectionID {
				filtered = append(filtered, d)
			}
		}
		schedule = filtered
	}

	input := engine.EligibilityInput{
		Student:            *student,
		Target:             *target,
		Prerequisites:      prereqs,
		CompletedCourseIDs: completed,
		Schedule:           schedule,
		MaxCredits:         s.cfg.MaxCreditsPerTerm,
	}
	result := engine.CheckEligibility(input)

	s.observer.ObserveEvaluation(result.Eligible)
	for _, v := range result.Violations {
		s.observer.ObserveViolation(v.RuleCode)
	}

	return &evaluation{student: student, target: target, input: input, result: result}, nil
}

func (s *RegistrationService) findAlternative(ctx context.Context, eval *evaluation) (*models.SectionDetail, bool) {
	siblings, err := s.sections.ListSiblings(ctx, eval.target.Section.CourseID, eval.target.Section.TermID, eval.target.Section.ID)
	if err != nil {
		s.logger.Warn("sibling lookup failed", zap.String("section_id", eval.target.Section.ID), zap.Error(err))
		return nil, false
	}
	alt, found := engine.FindAlternative(engine.AlternativeInput{
		Student:            eval.input.Student,
		Siblings:           siblings,
		ExcludeSectionID:   eval.target.Section.ID,
		Prerequisites:      eval.input.Prerequisites,
		CompletedCourseIDs: eval.input.CompletedCourseIDs,
		Schedule:           eval.input.Schedule,
		MaxCredits:         eval.input.MaxCredits,
	})
	if !found {
		return nil, false
	}
	return &alt, true
}

// commitAttachment reserves a seat and creates the enrollment, dropping
// the previous section first when changing. The guarded seat reservation
// is the race boundary: losing it surfaces SECTION_FULL.
func (s *RegistrationService) commitAttachment(ctx context.Context, studentID, sectionID, dropSectionID string) error {
	if err := s.reserveSeat(ctx, sectionID); err != nil {
		return err
	}
	return s.finishAttachment(ctx, studentID, sectionID, dropSectionID)
}

func (s *RegistrationService) reserveSeat(ctx context.Context, sectionID string) error {
	reserved, err := s.sections.ReserveSeat(ctx, sectionID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reserve seat")
	}
	if !reserved {
		return appErrors.Clone(appErrors.ErrSectionFull, "section filled before the seat could be reserved")
	}
	return nil
}

// finishAttachment completes an attachment whose seat is already held:
// drop the previous section when changing, then create the enrollment.
// The held seat is released on any failure.
func (s *RegistrationService) finishAttachment(ctx context.Context, studentID, sectionID, dropSectionID string) error {
	if dropSectionID != "" {
		enrollment, err := s.enrollments.FindActive(ctx, studentID, dropSectionID)
		if err != nil {
			_ = s.sections.ReleaseSeat(ctx, sectionID)
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment being changed")
		}
		if err := s.enrollments.Drop(ctx, enrollment.ID, time.Now().UTC()); err != nil {
			_ = s.sections.ReleaseSeat(ctx, sectionID)
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to drop previous enrollment")
		}
		if err := s.sections.ReleaseSeat(ctx, dropSectionID); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to release previous seat")
		}
	}

	enrollment := &models.Enrollment{
		StudentID: studentID,
		SectionID: sectionID,
	}
	if err := s.enrollments.Create(ctx, enrollment); err != nil {
		_ = s.sections.ReleaseSeat(ctx, sectionID)
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
	}
	return nil
}

// commitApproved replays an approved ADD or CHANGE_SECTION onto the
// enrollment tables after a human decision.
func (s *RegistrationService) commitApproved(ctx context.Context, request *models.RegistrationRequest) error {
	switch request.Type {
	case models.RequestTypeAdd:
		if request.ToSectionID == nil {
			return appErrors.Clone(appErrors.ErrPreconditionFailed, "approved ADD request lacks a target section")
		}
		return s.commitAttachment(ctx, request.StudentID, *request.ToSectionID, "")
	case models.RequestTypeChangeSection:
		if request.ToSectionID == nil || request.FromSectionID == nil {
			return appErrors.Clone(appErrors.ErrPreconditionFailed, "approved CHANGE_SECTION request lacks section references")
		}
		return s.commitAttachment(ctx, request.StudentID, *request.ToSectionID, *request.FromSectionID)
	case models.RequestTypeDrop:
		// Drops commit at submission time.
		return nil
	default:
		return appErrors.Clone(appErrors.ErrPreconditionFailed, fmt.Sprintf("cannot commit request type %q", request.Type))
	}
}

// approveSystem persists a request that the engine decided without human
// review, writing the synthetic system decision into the log.
func (s *RegistrationService) approveSystem(ctx context.Context, request *models.RegistrationRequest, rationale string) error {
	decision, err := engine.Decide(request, models.ActorSystem, "system", models.ActionApprove, rationale)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "system approval rejected by transition table")
	}
	if err := s.requests.Create(ctx, request); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store request")
	}
	if err := s.requests.AppendDecision(ctx, &decision); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record system decision")
	}
	request.Decisions = append(request.Decisions, decision)
	return nil
}

func (s *RegistrationService) newRequest(req dto.SubmitRequestRequest) *models.RegistrationRequest {
	request := &models.RegistrationRequest{
		ID:        uuid.NewString(),
		StudentID: req.StudentID,
		Type:      req.Type,
		Reason:    req.Reason,
		State:     models.StateSubmitted,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	if req.FromSectionID != "" {
		from := req.FromSectionID
		request.FromSectionID = &from
	}
	if req.ToSectionID != "" {
		to := req.ToSectionID
		request.ToSectionID = &to
	}
	return request
}

// notifyReviewers queues an advisor notification for a pending request,
// escalating straight to the department head when a hold is involved.
func (s *RegistrationService) notifyReviewers(request *models.RegistrationRequest, violations []models.Violation) {
	if s.notify == nil {
		return
	}
	jobType := "notify_advisor"
	for _, v := range violations {
		if v.RuleCode == models.RuleHoldBlocks {
			jobType = "notify_department_head"
			break
		}
	}
	s.enqueueNotification(jobType, request)
}

func (s *RegistrationService) notifyDepartmentHead(request *models.RegistrationRequest) {
	if s.notify == nil {
		return
	}
	s.enqueueNotification("notify_department_head", request)
}

func (s *RegistrationService) enqueueNotification(jobType string, request *models.RegistrationRequest) {
	err := s.notify.Enqueue(jobs.Job{
		ID:   uuid.NewString(),
		Type: jobType,
		Payload: map[string]string{
			"request_id": request.ID,
			"student_id": request.StudentID,
			"state":      string(request.State),
		},
	})
	if err != nil {
		s.logger.Warn("notification enqueue failed", zap.String("request_id", request.ID), zap.Error(err))
	}
}

func (s *RegistrationService) emitAudit(ctx context.Context, userID, action, resource, resourceID string, values map[string]interface{}) {
	if s.audit == nil {
		return
	}
	entry := &models.AuditLog{
		Action:   action,
		Resource: resource,
	}
	if userID != "" {
		uid := userID
		entry.UserID = &uid
	}
	if resourceID != "" {
		rid := resourceID
		entry.ResourceID = &rid
	}
	if values != nil {
		if data, err := json.Marshal(values); err == nil {
			entry.NewValues = data
		}
	}
	if err := s.audit.Create(ctx, entry); err != nil {
		s.logger.Warn("audit write failed", zap.String("action", action), zap.Error(err))
	}
}

// NotificationHandler returns the queue handler that delivers workflow
// notifications. Delivery is a structured log line; wiring an email or
// push transport only requires replacing this handler.
func NotificationHandler(logger *zap.Logger) jobs.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(ctx context.Context, job jobs.Job) error {
		payload, ok := job.Payload.(map[string]string)
		if !ok {
			return fmt.Errorf("unexpected notification payload %T", job.Payload)
		}
		logger.Info("workflow notification",
			zap.String("type", job.Type),
			zap.String("request_id", payload["request_id"]),
			zap.String("student_id", payload["student_id"]),
			zap.String("state", payload["state"]),
		)
		return nil
	}
}
