package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/galleon/clash-of-courses/internal/models"
)

// EligibilityInput is the snapshot a single eligibility check evaluates.
// All data is read-only; concurrent checks over distinct inputs are safe.
type EligibilityInput struct {
	Student models.Student
	Target  models.SectionDetail

	// Prerequisites of the target course, resolved to codes for reporting.
	Prerequisites []models.CoursePrerequisite

	// CompletedCourseIDs hold courses the student has finished. Courses the
	// student is merely enrolled in do not satisfy prerequisites.
	CompletedCourseIDs []string

	// Schedule is the student's active (registered) enrollments with their
	// meetings — the busy calendar conflicts are detected against.
	Schedule []models.EnrollmentDetail

	// MaxCredits is the program's credit-load ceiling per term.
	MaxCredits int
}

// Result is the outcome of an eligibility check. Eligible is true iff the
// violation list is empty.
type Result struct {
	Eligible   bool               `json:"eligible"`
	Violations []models.Violation `json:"violations"`
	Conflicts  []ConflictPair     `json:"conflicts,omitempty"`
}

// ConflictOnly reports whether every violation is a time conflict, the one
// class of violation the alternative finder may resolve automatically.
func (r Result) ConflictOnly() bool {
	if len(r.Violations) == 0 {
		return false
	}
	for _, v := range r.Violations {
		if v.RuleCode != models.RuleTimeConflict {
			return false
		}
	}
	return true
}

// CheckEligibility evaluates every registration rule against the input and
// returns the complete violation list. Rules run in a fixed order and never
// short-circuit, so callers always see the full picture: prerequisites,
// capacity, holds, credit cap, duplicate enrollment, then time conflicts.
// The check is pure — it never mutates enrollment or request state.
func CheckEligibility(in EligibilityInput) Result {
	var violations []models.Violation

	if v := checkPrerequisites(in); v != nil {
		violations = append(violations, *v)
	}
	if v := checkCapacity(in.Target.Section); v != nil {
		violations = append(violations, *v)
	}
	if v := checkHolds(in.Student); v != nil {
		violations = append(violations, *v)
	}
	if v := checkCreditCap(in); v != nil {
		violations = append(violations, *v)
	}
	if v := checkDuplicateCourse(in); v != nil {
		violations = append(violations, *v)
	}

	conflicts := findScheduleConflicts(in)
	for _, pair := range conflicts {
		violations = append(violations, conflictViolation(pair, in.Schedule))
	}

	return Result{
		Eligible:   len(violations) == 0,
		Violations: violations,
		Conflicts:  conflicts,
	}
}

func checkPrerequisites(in EligibilityInput) *models.Violation {
	completed := make(map[string]struct{}, len(in.CompletedCourseIDs))
	for _, id := range in.CompletedCourseIDs {
		completed[id] = struct{}{}
	}

	var missing []string
	for _, prereq := range in.Prerequisites {
		if _, ok := completed[prereq.ReqCourseID]; !ok {
			missing = append(missing, prereq.ReqCode)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return &models.Violation{
		RuleCode: models.RulePrereqNotMet,
		Severity: models.SeverityError,
		Description: fmt.Sprintf("missing prerequisites for %s: %s",
			in.Target.Course.Code, strings.Join(missing, ", ")),
		Details: map[string]interface{}{"missing_courses": missing},
	}
}

func checkCapacity(section models.Section) *models.Violation {
	if section.EnrolledCount < section.Capacity {
		return nil
	}
	return &models.Violation{
		RuleCode: models.RuleSectionFull,
		Severity: models.SeverityError,
		Description: fmt.Sprintf("section %s is full (%d/%d)",
			section.SectionCode, section.EnrolledCount, section.Capacity),
		Details: map[string]interface{}{
			"capacity": section.Capacity,
			"enrolled": section.EnrolledCount,
		},
	}
}

func checkHolds(student models.Student) *models.Violation {
	suspended := student.Standing == models.StandingSuspended
	owed := student.FinancialStatus == models.FinancialOwed
	if !suspended && !owed {
		return nil
	}
	reason := "financial hold"
	if suspended {
		reason = "academic suspension"
	}
	return &models.Violation{
		RuleCode:    models.RuleHoldBlocks,
		Severity:    models.SeverityError,
		Description: fmt.Sprintf("registration blocked by %s", reason),
		Details: map[string]interface{}{
			"standing":         string(student.Standing),
			"financial_status": string(student.FinancialStatus),
		},
	}
}

func checkCreditCap(in EligibilityInput) *models.Violation {
	if in.MaxCredits <= 0 {
		return nil
	}
	active := 0
	for _, enr := range in.Schedule {
		active += enr.Course.Credits
	}
	total := active + in.Target.Course.Credits
	if total <= in.MaxCredits {
		return nil
	}
	return &models.Violation{
		RuleCode: models.RuleCreditCapExceeded,
		Severity: models.SeverityError,
		Description: fmt.Sprintf("credit load %d would exceed the %d-credit cap",
			total, in.MaxCredits),
		Details: map[string]interface{}{
			"active_credits": active,
			"added_credits":  in.Target.Course.Credits,
			"max_credits":    in.MaxCredits,
		},
	}
}

func checkDuplicateCourse(in EligibilityInput) *models.Violation {
	for _, enr := range in.Schedule {
		if enr.Course.ID == in.Target.Course.ID {
			return &models.Violation{
				RuleCode: models.RuleAlreadyEnrolled,
				Severity: models.SeverityError,
				Description: fmt.Sprintf("already enrolled in %s section %s",
					enr.Course.Code, enr.Section.SectionCode),
				Details: map[string]interface{}{"section_id": enr.Section.ID},
			}
		}
	}
	return nil
}

func findScheduleConflicts(in EligibilityInput) []ConflictPair {
	var busy []models.Meeting
	for _, enr := range in.Schedule {
		busy = append(busy, enr.Meetings...)
	}
	return FindConflicts(in.Target.Meetings, busy)
}

func conflictViolation(pair ConflictPair, schedule []models.EnrollmentDetail) models.Violation {
	courseCode := ""
	for _, enr := range schedule {
		if enr.Section.ID == pair.Existing.SectionID {
			courseCode = enr.Course.Code
			break
		}
	}
	return models.Violation{
		RuleCode: models.RuleTimeConflict,
		Severity: models.SeverityError,
		Description: fmt.Sprintf("time conflict on day %d with %s (%s vs %s)",
			pair.Candidate.DayOfWeek, courseCode,
			formatRange(pair.Candidate), formatRange(pair.Existing)),
		Details: map[string]interface{}{
			"candidate_meeting_id": pair.Candidate.ID,
			"existing_meeting_id":  pair.Existing.ID,
			"existing_section_id":  pair.Existing.SectionID,
			"conflicting_course":   courseCode,
		},
	}
}

func formatRange(m models.Meeting) string {
	return fmt.Sprintf("%02d:%02d-%02d:%02d",
		m.StartMin/60, m.StartMin%60, m.EndMin/60, m.EndMin%60)
}
