package dto

import "github.com/galleon/clash-of-courses/internal/models"

// EvaluateRequest asks whether a student may attach to a section.
type EvaluateRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	SectionID string `json:"section_id" validate:"required"`
}

// EvaluationResponse reports the eligibility outcome in full. Violations
// is empty exactly when Attachable is true.
type EvaluationResponse struct {
	Attachable  bool                  `json:"attachable"`
	Violations  []models.Violation    `json:"violations"`
	Alternative *models.SectionDetail `json:"alternative,omitempty"`
}

// SubmitRequestRequest creates a registration request.
type SubmitRequestRequest struct {
	StudentID     string             `json:"student_id" validate:"required"`
	Type          models.RequestType `json:"type" validate:"required,oneof=ADD DROP CHANGE_SECTION"`
	FromSectionID string             `json:"from_section_id,omitempty"`
	ToSectionID   string             `json:"to_section_id,omitempty"`
	Reason        string             `json:"reason,omitempty"`
}

// SubmitRequestResponse reports the stored request plus what the engine
// concluded at submission time.
type SubmitRequestResponse struct {
	Request      *models.RegistrationRequest `json:"request"`
	AutoResolved bool                        `json:"auto_resolved"`
	Alternative  *models.SectionDetail       `json:"alternative,omitempty"`
}

// DecideRequestRequest records a reviewer action on a pending request.
type DecideRequestRequest struct {
	Action    models.DecisionAction `json:"action" validate:"required,oneof=approve reject refer hold cancel"`
	Rationale string                `json:"rationale,omitempty"`
}

// OverrideCapacityRequest raises or lowers a section's seat limit.
type OverrideCapacityRequest struct {
	Capacity int    `json:"capacity" validate:"required,min=1"`
	Reason   string `json:"reason" validate:"required"`
}

// ExplainRuleResponse documents one business rule for reviewers.
type ExplainRuleResponse struct {
	RuleCode    models.RuleCode `json:"rule_code"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
}
