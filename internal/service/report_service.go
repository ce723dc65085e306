package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/galleon/clash-of-courses/internal/dto"
	"github.com/galleon/clash-of-courses/internal/models"
	"github.com/galleon/clash-of-courses/internal/repository"
	appErrors "github.com/galleon/clash-of-courses/pkg/errors"
	"github.com/galleon/clash-of-courses/pkg/export"
	"github.com/galleon/clash-of-courses/pkg/jobs"
	"github.com/galleon/clash-of-courses/pkg/storage"
)

type reportJobStore interface {
	Create(ctx context.Context, job *models.ReportJob) error
	GetByID(ctx context.Context, id string) (*models.ReportJob, error)
	Update(ctx context.Context, id string, params repository.UpdateReportJobParams) error
}

type reportRequestStore interface {
	List(ctx context.Context, filter models.RequestFilter) ([]models.RegistrationRequest, int, error)
	ListDecisionsByTerm(ctx context.Context, termID string) ([]models.Decision, error)
}

type reportSectionStore interface {
	ListByTerm(ctx context.Context, termID string) ([]models.SectionDetail, error)
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

// ReportDownload aggregates resolved download data.
type ReportDownload struct {
	File     *os.File
	Filename string
	Format   models.ReportFormat
}

// ReportService generates registration reports asynchronously: the job
// row is created immediately, a worker renders the file, and clients
// fetch it through a signed URL.
type ReportService struct {
	jobsRepo  reportJobStore
	requests  reportRequestStore
	sections  reportSectionStore
	queue     jobDispatcher
	csv       *export.CSVExporter
	pdf       *export.PDFExporter
	store     *storage.LocalStorage
	signer    *storage.SignedURLSigner
	validator *validator.Validate
	logger    *zap.Logger
}

// NewReportService constructs the report service.
func NewReportService(
	jobsRepo reportJobStore,
	requests reportRequestStore,
	sections reportSectionStore,
	queue jobDispatcher,
	store *storage.LocalStorage,
	signer *storage.SignedURLSigner,
	logger *zap.Logger,
) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		jobsRepo:  jobsRepo,
		requests:  requests,
		sections:  sections,
		queue:     queue,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
		store:     store,
		signer:    signer,
		validator: validator.New(),
		logger:    logger,
	}
}

// SetQueue attaches the dispatcher after construction. The worker queue
// is built from this service's handler, so it cannot exist yet when the
// service is constructed.
func (s *ReportService) SetQueue(queue jobDispatcher) {
	s.queue = queue
}

// CreateJob persists a report job and enqueues its generation.
func (s *ReportService) CreateJob(ctx context.Context, req dto.CreateReportRequest, actorID string) (*dto.ReportJobResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	params := models.ReportJobParams{TermID: req.TermID, Format: req.Format}
	if req.StudentID != "" {
		sid := req.StudentID
		params.StudentID = &sid
	}
	if req.CourseID != "" {
		cid := req.CourseID
		params.CourseID = &cid
	}
	job := &models.ReportJob{
		Type:      req.Type,
		Params:    params,
		Status:    models.ReportStatusQueued,
		CreatedBy: actorID,
	}
	if err := s.jobsRepo.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create report job")
	}

	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: string(job.Type)}); err != nil {
		s.markFailed(ctx, job.ID, "failed to enqueue job")
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue report job")
	}
	return s.toResponse(job), nil
}

// GetJob exposes job status. Only the creator may view a job.
func (s *ReportService) GetJob(ctx context.Context, id, actorID string) (*dto.ReportJobResponse, error) {
	job, err := s.jobsRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "report job not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report job")
	}
	if job.CreatedBy != actorID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "report belongs to another user")
	}
	return s.toResponse(job), nil
}

// Download validates a signed token and opens the stored file.
func (s *ReportService) Download(ctx context.Context, token string) (*ReportDownload, error) {
	jobID, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrForbidden.Code, appErrors.ErrForbidden.Status, "invalid download token")
	}
	job, err := s.jobsRepo.GetByID(ctx, jobID)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "report job not found")
	}
	file, err := s.store.Open(relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "report file missing")
	}
	return &ReportDownload{File: file, Filename: relPath, Format: job.Params.Format}, nil
}

// Handler returns the queue handler that renders report files.
func (s *ReportService) Handler() jobs.Handler {
	return func(ctx context.Context, job jobs.Job) error {
		return s.process(ctx, job.ID)
	}
}

func (s *ReportService) process(ctx context.Context, jobID string) error {
	job, err := s.jobsRepo.GetByID(ctx, jobID)
	if err != nil {
		return fmt.Errorf("load report job %s: %w", jobID, err)
	}

	processing := models.ReportStatusProcessing
	if err := s.jobsRepo.Update(ctx, job.ID, repository.UpdateReportJobParams{Status: &processing}); err != nil {
		return err
	}

	dataset, title, err := s.buildDataset(ctx, job)
	if err != nil {
		s.markFailed(ctx, job.ID, err.Error())
		return err
	}

	var payload []byte
	switch job.Params.Format {
	case models.ReportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
	default:
		payload, err = s.csv.Render(dataset)
	}
	if err != nil {
		s.markFailed(ctx, job.ID, err.Error())
		return err
	}

	filename := fmt.Sprintf("%s/%s.%s", job.Type, job.ID, job.Params.Format)
	if _, err := s.store.Save(filename, payload); err != nil {
		s.markFailed(ctx, job.ID, err.Error())
		return err
	}

	token, _, err := s.signer.Generate(job.ID, filename)
	if err != nil {
		s.markFailed(ctx, job.ID, err.Error())
		return err
	}

	finished := models.ReportStatusFinished
	progress := 100
	now := time.Now().UTC()
	resultURL := fmt.Sprintf("/reports/download?token=%s", token)
	return s.jobsRepo.Update(ctx, job.ID, repository.UpdateReportJobParams{
		Status:     &finished,
		Progress:   &progress,
		ResultURL:  &resultURL,
		FinishedAt: &now,
	})
}

func (s *ReportService) buildDataset(ctx context.Context, job *models.ReportJob) (export.Dataset, string, error) {
	switch job.Type {
	case models.ReportTypeDecisionLog:
		return s.decisionLogDataset(ctx, job.Params.TermID)
	case models.ReportTypePendingRequests:
		return s.pendingRequestsDataset(ctx, job.Params)
	case models.ReportTypeSectionFill:
		return s.sectionFillDataset(ctx, job.Params.TermID)
	default:
		return export.Dataset{}, "", fmt.Errorf("unsupported report type %q", job.Type)
	}
}

func (s *ReportService) decisionLogDataset(ctx context.Context, termID string) (export.Dataset, string, error) {
	decisions, err := s.requests.ListDecisionsByTerm(ctx, termID)
	if err != nil {
		return export.Dataset{}, "", err
	}
	headers := []string{"Request", "Actor Role", "Actor", "Action", "Rationale", "Decided At"}
	rows := make([]map[string]string, 0, len(decisions))
	for _, d := range decisions {
		rows = append(rows, map[string]string{
			"Request":    d.RequestID,
			"Actor Role": string(d.ActorRole),
			"Actor":      d.ActorID,
			"Action":     string(d.Action),
			"Rationale":  d.Rationale,
			"Decided At": d.DecidedAt.UTC().Format(time.RFC3339),
		})
	}
	return export.Dataset{Headers: headers, Rows: rows}, "Decision Log", nil
}

func (s *ReportService) pendingRequestsDataset(ctx context.Context, params models.ReportJobParams) (export.Dataset, string, error) {
	filter := models.RequestFilter{
		States:   []models.RequestState{models.StateSubmitted, models.StateAdvisorReview, models.StateDeptReview},
		PageSize: 1000,
	}
	if params.StudentID != nil {
		filter.StudentID = *params.StudentID
	}
	requests, _, err := s.requests.List(ctx, filter)
	if err != nil {
		return export.Dataset{}, "", err
	}
	headers := []string{"Request", "Student", "Type", "State", "Created At"}
	rows := make([]map[string]string, 0, len(requests))
	for _, r := range requests {
		rows = append(rows, map[string]string{
			"Request":    r.ID,
			"Student":    r.StudentID,
			"Type":       string(r.Type),
			"State":      string(r.State),
			"Created At": r.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return export.Dataset{Headers: headers, Rows: rows}, "Pending Requests", nil
}

func (s *ReportService) sectionFillDataset(ctx context.Context, termID string) (export.Dataset, string, error) {
	sections, err := s.sections.ListByTerm(ctx, termID)
	if err != nil {
		return export.Dataset{}, "", err
	}
	headers := []string{"Course", "Section", "Instructor", "Enrolled", "Capacity"}
	rows := make([]map[string]string, 0, len(sections))
	for _, detail := range sections {
		rows = append(rows, map[string]string{
			"Course":     detail.Course.Code,
			"Section":    detail.Section.SectionCode,
			"Instructor": detail.Section.Instructor,
			"Enrolled":   fmt.Sprintf("%d", detail.Section.EnrolledCount),
			"Capacity":   fmt.Sprintf("%d", detail.Section.Capacity),
		})
	}
	return export.Dataset{Headers: headers, Rows: rows}, "Section Fill", nil
}

func (s *ReportService) markFailed(ctx context.Context, jobID, message string) {
	failed := models.ReportStatusFailed
	now := time.Now().UTC()
	if err := s.jobsRepo.Update(ctx, jobID, repository.UpdateReportJobParams{
		Status:       &failed,
		ErrorMessage: &message,
		FinishedAt:   &now,
	}); err != nil {
		s.logger.Warn("failed to mark report job failed", zap.String("job_id", jobID), zap.Error(err))
	}
}

func (s *ReportService) toResponse(job *models.ReportJob) *dto.ReportJobResponse {
	resp := &dto.ReportJobResponse{
		ID:       job.ID,
		Type:     job.Type,
		Status:   job.Status,
		Progress: job.Progress,
	}
	if job.ResultURL != nil {
		resp.DownloadURL = job.ResultURL
	}
	if job.ErrorMessage != nil && *job.ErrorMessage != "" {
		resp.Error = job.ErrorMessage
	}
	return resp
}
