package engine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/galleon/clash-of-courses/internal/models"
)

// Scenario C: requested B1 conflicts; sibling A2 is clean and wins.
func TestFindAlternativePrefersConflictFreeSibling(t *testing.T) {
	busy := offering("sec-busy", "crs-b", "HIST210", "A1", 3, 30, 10, meeting(0, 600, 675))

	b1 := offering("sec-b1", "crs-1", "CS101", "B1", 3, 30, 5, meeting(0, 630, 705))
	a2 := offering("sec-a2", "crs-1", "CS101", "A2", 3, 30, 5, meeting(2, 600, 675))

	alt, found := FindAlternative(AlternativeInput{
		Student:          baseStudent(),
		Siblings:         []models.SectionDetail{b1, a2},
		ExcludeSectionID: "sec-b1",
		Schedule:         []models.EnrollmentDetail{enrolled(busy)},
		MaxCredits:       18,
	})
	require.True(t, found)
	require.Equal(t, "A2", alt.Section.SectionCode)
}

func TestFindAlternativeExcludesRequestedSection(t *testing.T) {
	only := offering("sec-b1", "crs-1", "CS101", "B1", 3, 30, 5)
	_, found := FindAlternative(AlternativeInput{
		Student:          baseStudent(),
		Siblings:         []models.SectionDetail{only},
		ExcludeSectionID: "sec-b1",
		MaxCredits:       18,
	})
	require.False(t, found)
}

// Scenario D: every sibling is full, no alternative exists.
func TestFindAlternativeAllSiblingsFull(t *testing.T) {
	siblings := []models.SectionDetail{
		offering("sec-a1", "crs-1", "CS101", "A1", 3, 20, 20),
		offering("sec-a2", "crs-1", "CS101", "A2", 3, 25, 25),
	}
	_, found := FindAlternative(AlternativeInput{
		Student:          baseStudent(),
		Siblings:         siblings,
		ExcludeSectionID: "sec-b1",
		MaxCredits:       18,
	})
	require.False(t, found)
}

func TestFindAlternativeRanksByFewestMeetings(t *testing.T) {
	twoMeetings := offering("sec-a1", "crs-1", "CS101", "A1", 3, 30, 5,
		meeting(0, 480, 540), meeting(2, 480, 540))
	oneMeeting := offering("sec-c3", "crs-1", "CS101", "C3", 3, 30, 5,
		meeting(4, 480, 600))

	alt, found := FindAlternative(AlternativeInput{
		Student:          baseStudent(),
		Siblings:         []models.SectionDetail{twoMeetings, oneMeeting},
		ExcludeSectionID: "sec-b1",
		MaxCredits:       18,
	})
	require.True(t, found)
	require.Equal(t, "C3", alt.Section.SectionCode)
}

func TestFindAlternativeTieBreaksOnSectionCode(t *testing.T) {
	b2 := offering("sec-b2", "crs-1", "CS101", "B2", 3, 30, 5, meeting(0, 480, 540))
	a2 := offering("sec-a2", "crs-1", "CS101", "A2", 3, 30, 5, meeting(2, 480, 540))

	alt, found := FindAlternative(AlternativeInput{
		Student:          baseStudent(),
		Siblings:         []models.SectionDetail{b2, a2},
		ExcludeSectionID: "sec-b1",
		MaxCredits:       18,
	})
	require.True(t, found)
	require.Equal(t, "A2", alt.Section.SectionCode)
}

func TestFindAlternativeAppliesFullEligibility(t *testing.T) {
	// The open sibling still fails prerequisites, so finding must fail.
	open := offering("sec-a2", "crs-2", "ENGR201", "A2", 3, 30, 5)
	_, found := FindAlternative(AlternativeInput{
		Student:          baseStudent(),
		Siblings:         []models.SectionDetail{open},
		ExcludeSectionID: "sec-b1",
		Prerequisites: []models.CoursePrerequisite{
			{CourseID: "crs-2", ReqCourseID: "crs-1", ReqCode: "ENGR101"},
		},
		MaxCredits: 18,
	})
	require.False(t, found)
}
