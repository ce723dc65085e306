package engine

import (
	"sort"

	"github.com/galleon/clash-of-courses/internal/models"
)

// AlternativeInput drives a sibling-section search for one course.
type AlternativeInput struct {
	Student            models.Student
	Siblings           []models.SectionDetail
	ExcludeSectionID   string
	Prerequisites      []models.CoursePrerequisite
	CompletedCourseIDs []string
	Schedule           []models.EnrollmentDetail
	MaxCredits         int
}

// FindAlternative searches the sibling sections of a course for one that is
// simultaneously eligible and conflict-free for the student. Candidates that
// produce any violation are discarded; survivors are ranked by fewest total
// meetings (simplest schedule impact), then lexicographic section code, then
// discovery order. The search only recommends — it never mutates enrollment.
// found is false when no sibling clears every check, in which case the
// caller must escalate to human review.
func FindAlternative(in AlternativeInput) (models.SectionDetail, bool) {
	var candidates []models.SectionDetail
	for _, sibling := range in.Siblings {
		if sibling.Section.ID == in.ExcludeSectionID {
			continue
		}
		result := CheckEligibility(EligibilityInput{
			Student:            in.Student,
			Target:             sibling,
			Prerequisites:      in.Prerequisites,
			CompletedCourseIDs: in.CompletedCourseIDs,
			Schedule:           in.Schedule,
			MaxCredits:         in.MaxCredits,
		})
		if result.Eligible {
			candidates = append(candidates, sibling)
		}
	}
	if len(candidates) == 0 {
		return models.SectionDetail{}, false
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if len(candidates[i].Meetings) != len(candidates[j].Meetings) {
			return len(candidates[i].Meetings) < len(candidates[j].Meetings)
		}
		return candidates[i].Section.SectionCode < candidates[j].Section.SectionCode
	})
	return candidates[0], true
}
