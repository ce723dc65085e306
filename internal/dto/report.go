package dto

import "github.com/galleon/clash-of-courses/internal/models"

// CreateReportRequest enqueues an asynchronous report job.
type CreateReportRequest struct {
	Type      models.ReportType   `json:"type" validate:"required,oneof=decision_log pending_requests section_fill"`
	TermID    string              `json:"term_id" validate:"required"`
	StudentID string              `json:"student_id,omitempty"`
	CourseID  string              `json:"course_id,omitempty"`
	Format    models.ReportFormat `json:"format" validate:"required,oneof=csv pdf"`
}

// ReportJobResponse describes job progress and the signed download URL
// once the job finishes.
type ReportJobResponse struct {
	ID          string              `json:"id"`
	Type        models.ReportType   `json:"type"`
	Status      models.ReportStatus `json:"status"`
	Progress    int                 `json:"progress"`
	DownloadURL *string             `json:"download_url,omitempty"`
	Error       *string             `json:"error,omitempty"`
}
