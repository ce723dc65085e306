package models

import "time"

// EnrollmentStatus represents the lifecycle of an enrollment.
type EnrollmentStatus string

// Possible enrollment statuses. Completed enrollments satisfy
// prerequisites; registered ones do not.
const (
	EnrollmentStatusRegistered EnrollmentStatus = "registered"
	EnrollmentStatusCompleted  EnrollmentStatus = "completed"
	EnrollmentStatusDropped    EnrollmentStatus = "dropped"
)

// Enrollment captures a student's attachment to a section.
type Enrollment struct {
	ID         string           `db:"id" json:"id"`
	StudentID  string           `db:"student_id" json:"student_id"`
	SectionID  string           `db:"section_id" json:"section_id"`
	Status     EnrollmentStatus `db:"status" json:"status"`
	EnrolledAt time.Time        `db:"enrolled_at" json:"enrolled_at"`
	DroppedAt  *time.Time       `db:"dropped_at" json:"dropped_at,omitempty"`
}

// EnrollmentDetail enriches an enrollment with section, course, and
// meeting context. A student's registered details form their busy schedule.
type EnrollmentDetail struct {
	Enrollment Enrollment `json:"enrollment"`
	Section    Section    `json:"section"`
	Course     Course     `json:"course"`
	Meetings   []Meeting  `json:"meetings"`
}
