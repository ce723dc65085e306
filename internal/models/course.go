package models

// Course represents a catalog course. Immutable within a term.
type Course struct {
	ID      string `db:"id" json:"id"`
	Code    string `db:"code" json:"code"`
	Title   string `db:"title" json:"title"`
	Credits int    `db:"credits" json:"credits"`
	Level   int    `db:"level" json:"level"`

	// PrerequisiteIDs are course IDs that must be completed (not merely
	// enrolled in) before a student may attach to any section of this course.
	PrerequisiteIDs []string `db:"-" json:"prerequisite_ids,omitempty"`
}

// CoursePrerequisite joins a course to one required course.
type CoursePrerequisite struct {
	CourseID    string `db:"course_id" json:"course_id"`
	ReqCourseID string `db:"req_course_id" json:"req_course_id"`
	ReqCode     string `db:"req_code" json:"req_code"`
}

// CourseFilter constrains catalog search queries.
type CourseFilter struct {
	Search        string
	Level         int
	TermID        string
	AvailableOnly bool
	Page          int
	PageSize      int
}
