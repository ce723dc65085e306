package models

import "time"

// RequestType enumerates registration request categories.
type RequestType string

// Possible request types.
const (
	RequestTypeAdd           RequestType = "ADD"
	RequestTypeDrop          RequestType = "DROP"
	RequestTypeChangeSection RequestType = "CHANGE_SECTION"
)

// RequestState captures the workflow state of a registration request.
type RequestState string

// Request states. Approved, rejected, and cancelled are terminal.
const (
	StateSubmitted     RequestState = "submitted"
	StateAdvisorReview RequestState = "advisor_review"
	StateDeptReview    RequestState = "dept_review"
	StateApproved      RequestState = "approved"
	StateRejected      RequestState = "rejected"
	StateCancelled     RequestState = "cancelled"
)

// Terminal reports whether no further transitions may occur.
func (s RequestState) Terminal() bool {
	return s == StateApproved || s == StateRejected || s == StateCancelled
}

// ActorRole identifies who acts on a request.
type ActorRole string

// Possible actor roles. RoleSystem records synthetic auto-resolution
// decisions that bypass human review.
const (
	ActorStudent        ActorRole = "student"
	ActorAdvisor        ActorRole = "advisor"
	ActorDepartmentHead ActorRole = "department_head"
	ActorSystem         ActorRole = "system"
)

// DecisionAction enumerates actions taken on a request.
type DecisionAction string

// Possible decision actions.
const (
	ActionApprove DecisionAction = "approve"
	ActionReject  DecisionAction = "reject"
	ActionRefer   DecisionAction = "refer"
	ActionHold    DecisionAction = "hold"
	ActionCancel  DecisionAction = "cancel"
)

// Decision is one immutable entry in a request's audit trail. The log is
// only ever extended, never rewritten.
type Decision struct {
	ID        string         `db:"id" json:"id"`
	RequestID string         `db:"request_id" json:"request_id"`
	ActorRole ActorRole      `db:"actor_role" json:"actor_role"`
	ActorID   string         `db:"actor_id" json:"actor_id"`
	Action    DecisionAction `db:"action" json:"action"`
	Rationale string         `db:"rationale" json:"rationale"`
	DecidedAt time.Time      `db:"decided_at" json:"decided_at"`
}

// RegistrationRequest models an add/drop/change request moving through the
// approval workflow. Mutated only through state-machine transitions and
// never deleted; rejected and cancelled are soft-terminal.
type RegistrationRequest struct {
	ID            string       `db:"id" json:"id"`
	StudentID     string       `db:"student_id" json:"student_id"`
	Type          RequestType  `db:"type" json:"type"`
	FromSectionID *string      `db:"from_section_id" json:"from_section_id,omitempty"`
	ToSectionID   *string      `db:"to_section_id" json:"to_section_id,omitempty"`
	Reason        string       `db:"reason" json:"reason"`
	State         RequestState `db:"state" json:"state"`
	CreatedAt     time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time    `db:"updated_at" json:"updated_at"`

	Violations []Violation `db:"-" json:"violations,omitempty"`
	Decisions  []Decision  `db:"-" json:"decisions,omitempty"`
}

// RequestFilter constrains request listing queries.
type RequestFilter struct {
	StudentID string
	States    []RequestState
	Type      RequestType
	Page      int
	PageSize  int
}
