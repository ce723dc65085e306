package models

import "time"

// AcademicStanding enumerates the standing states that gate registration.
type AcademicStanding string

// Possible academic standings.
const (
	StandingRegular   AcademicStanding = "regular"
	StandingProbation AcademicStanding = "probation"
	StandingSuspended AcademicStanding = "suspended"
)

// FinancialStatus enumerates financial clearance states.
type FinancialStatus string

// Possible financial statuses.
const (
	FinancialClear  FinancialStatus = "clear"
	FinancialOwed   FinancialStatus = "owed"
	FinancialExempt FinancialStatus = "exempt"
)

// Student represents a learner registered in the institution.
type Student struct {
	ID               string           `db:"id" json:"id"`
	ExternalSISID    string           `db:"external_sis_id" json:"external_sis_id"`
	FullName         string           `db:"full_name" json:"full_name"`
	ProgramID        string           `db:"program_id" json:"program_id"`
	Standing         AcademicStanding `db:"standing" json:"standing"`
	FinancialStatus  FinancialStatus  `db:"financial_status" json:"financial_status"`
	CreditsCompleted int              `db:"credits_completed" json:"credits_completed"`
	ActiveTermID     string           `db:"active_term_id" json:"active_term_id"`
	CreatedAt        time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time        `db:"updated_at" json:"updated_at"`
}

// StudentContext is the consistent snapshot the engine evaluates against:
// who the student is, what they have completed, and what they currently take.
type StudentContext struct {
	Student            Student            `json:"student"`
	CompletedCourseIDs []string           `json:"completed_course_ids"`
	ActiveEnrollments  []EnrollmentDetail `json:"active_enrollments"`
}
