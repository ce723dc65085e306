package models

// MeetingActivity enumerates meeting kinds.
type MeetingActivity string

// Possible meeting activities.
const (
	ActivityLecture  MeetingActivity = "LEC"
	ActivityLab      MeetingActivity = "LAB"
	ActivityTutorial MeetingActivity = "TUT"
)

// Meeting is one weekly recurring meeting of a section: a day of week
// (0 = Monday .. 6 = Sunday) and a half-open [start, end) minute-of-day
// range. Meetings spanning midnight are not representable; the scheduler
// never produces them.
type Meeting struct {
	ID        string          `db:"id" json:"id"`
	SectionID string          `db:"section_id" json:"section_id"`
	Activity  MeetingActivity `db:"activity" json:"activity"`
	DayOfWeek int             `db:"day_of_week" json:"day_of_week"`
	StartMin  int             `db:"start_min" json:"start_min"`
	EndMin    int             `db:"end_min" json:"end_min"`
	Room      string          `db:"room" json:"room"`
}

// Section is one offering of a course within a term.
type Section struct {
	ID            string `db:"id" json:"id"`
	CourseID      string `db:"course_id" json:"course_id"`
	TermID        string `db:"term_id" json:"term_id"`
	SectionCode   string `db:"section_code" json:"section_code"`
	Instructor    string `db:"instructor" json:"instructor"`
	Capacity      int    `db:"capacity" json:"capacity"`
	EnrolledCount int    `db:"enrolled_count" json:"enrolled_count"`
}

// AvailableSeats reports remaining capacity.
func (s Section) AvailableSeats() int {
	return s.Capacity - s.EnrolledCount
}

// SectionDetail bundles a section with its course and meeting times — the
// unit the eligibility engine evaluates.
type SectionDetail struct {
	Section  Section   `json:"section"`
	Course   Course    `json:"course"`
	Meetings []Meeting `json:"meetings"`
}
